package shp

const (
	fileCode      = 9994
	fileVersion   = 1000
	shpHeaderLen  = 100
	shxEntryLen   = 8
)

// FileHeader is the common 100-byte header shared by .shp and .shx,
// spec.md §4.1/§4.2.
type FileHeader struct {
	FileLength int32 // in 16-bit words, including the header itself
	ShapeType  ShapeType
	Bounds     Box
	ZRange     [2]float64
	MRange     [2]float64
}

// readFileHeader reads and validates the 100-byte shp/shx header.
func readFileHeader(er *errReader) (FileHeader, error) {
	var code int32
	readBE(er, &code)
	if er.e == nil && code != fileCode {
		return FileHeader{}, NewShapeError(ErrMalformedFile, "bad file code", nil)
	}
	var unused [5]int32
	readBE(er, &unused)
	var h FileHeader
	readBE(er, &h.FileLength)
	var version int32
	readLE(er, &version)
	if er.e == nil && version != fileVersion {
		return FileHeader{}, NewShapeError(ErrMalformedFile, "unsupported file version", nil)
	}
	var shapeType int32
	readLE(er, &shapeType)
	h.ShapeType = ShapeType(shapeType)
	h.Bounds = readBBox(er)
	readLE(er, &h.ZRange)
	readLE(er, &h.MRange)
	if er.e != nil {
		return FileHeader{}, NewShapeError(ErrIOError, "reading file header", er.e)
	}
	return h, nil
}

// writeFileHeader writes the 100-byte shp/shx header.
func writeFileHeader(ew *errWriter, h FileHeader) {
	writeBE(ew, int32(fileCode))
	var unused [5]int32
	writeBE(ew, unused)
	writeBE(ew, h.FileLength)
	writeLE(ew, int32(fileVersion))
	writeLE(ew, int32(h.ShapeType))
	writeLE(ew, h.Bounds)
	writeLE(ew, h.ZRange)
	writeLE(ew, h.MRange)
}

// shxEntry is one 8-byte record in the .shx index: both fields are word
// counts (16-bit words), matching the record header's content-length unit.
type shxEntry struct {
	Offset        int32
	ContentLength int32
}

func readShxEntry(er *errReader) shxEntry {
	var e shxEntry
	readBE(er, &e.Offset)
	readBE(er, &e.ContentLength)
	return e
}

func writeShxEntry(ew *errWriter, e shxEntry) {
	writeBE(ew, e.Offset)
	writeBE(ew, e.ContentLength)
}

// recordHeader is the 8-byte header preceding every shp record body.
type recordHeader struct {
	RecordNumber  int32 // 1-based
	ContentLength int32 // in 16-bit words, excluding this header
}

func readRecordHeader(er *errReader) recordHeader {
	var h recordHeader
	readBE(er, &h.RecordNumber)
	readBE(er, &h.ContentLength)
	return h
}

func writeRecordHeader(ew *errWriter, h recordHeader) {
	writeBE(ew, h.RecordNumber)
	writeBE(ew, h.ContentLength)
}
