package shp

import "io"

// ByteReader is the minimal collaborator a Reader needs from a byte
// stream: sequential reads, random access via Seek, and Close. *os.File
// satisfies it directly; the current position is recovered with tell
// below, a zero-offset relative Seek.
type ByteReader interface {
	io.Reader
	io.Seeker
	io.Closer
}

// ByteWriter is the minimal collaborator a Writer needs: sequential
// writes plus random access via Seek, for rewriting the placeholder
// header once the body's true length is known.
type ByteWriter interface {
	io.Writer
	io.Seeker
	io.Closer
}

// tell returns the current offset of s without changing it.
func tell(s io.Seeker) (int64, error) {
	return s.Seek(0, io.SeekCurrent)
}
