package shp

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// EncodingErrorPolicy controls what happens when a dbf Character/Memo cell
// contains a byte sequence the configured encoding cannot decode, per
// spec.md §4.5.
type EncodingErrorPolicy int

const (
	// PolicyStrict fails the read/write with an EncodingError.
	PolicyStrict EncodingErrorPolicy = iota
	// PolicyReplace substitutes U+FFFD for undecodable bytes.
	PolicyReplace
	// PolicyIgnore drops undecodable bytes silently.
	PolicyIgnore
)

// DefaultDbfEncoding is the codepage assumed when neither a .cpg sidecar
// nor an explicit WithEncoding option names one (spec.md §4.5/§6).
const DefaultDbfEncoding = "UTF-8"

// namedEncodings resolves the handful of codepage names that appear most
// often in .cpg sidecars and aren't always present in ianaindex's table
// under that exact spelling.
var namedEncodings = map[string]encoding.Encoding{
	"ISO-8859-1":  charmap.ISO8859_1,
	"LATIN1":      charmap.ISO8859_1,
	"WINDOWS-1252": charmap.Windows1252,
	"CP1252":      charmap.Windows1252,
	"UTF-8":       encoding.Nop,
	"UTF8":        encoding.Nop,
	"ASCII":       encoding.Nop,
	"UTF-16LE":    unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"UTF-16BE":    unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
}

// resolveEncoding maps a codepage name (as it would appear in a .cpg file
// or a WithEncoding option) to an x/text Encoding.
func resolveEncoding(name string) (encoding.Encoding, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if enc, ok := namedEncodings[key]; ok {
		return enc, nil
	}
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, nil
	}
	return nil, NewShapeError(ErrEncodingError, fmt.Sprintf("unrecognized encoding %q", name), nil)
}

// decodeBytes converts raw dbf cell bytes to a string under enc and
// policy.
func decodeBytes(enc encoding.Encoding, policy EncodingErrorPolicy, b []byte) (string, error) {
	switch policy {
	case PolicyIgnore:
		var out bytes.Buffer
		dec := enc.NewDecoder()
		for _, c := range b {
			chunk, _, err := transform.Bytes(dec, []byte{c})
			if err != nil {
				continue
			}
			out.Write(chunk)
		}
		return strings.ToValidUTF8(out.String(), ""), nil
	case PolicyReplace:
		out, _, err := transform.Bytes(enc.NewDecoder(), b)
		if err != nil {
			// best-effort: x/text decoders already substitute U+FFFD for
			// most invalid sequences; only a hard transformer error
			// reaches here, in which case fall back to the raw bytes.
			return string(b), nil
		}
		return strings.ToValidUTF8(string(out), "�"), nil
	default: // PolicyStrict
		out, _, err := transform.Bytes(enc.NewDecoder(), b)
		if err != nil {
			return "", NewShapeError(ErrEncodingError, "cannot decode dbf cell", err)
		}
		if !utf8.Valid(out) {
			return "", NewShapeError(ErrEncodingError, "cannot decode dbf cell", nil)
		}
		return string(out), nil
	}
}

// encodeString converts a Go string back to on-disk bytes under enc.
func encodeString(enc encoding.Encoding, policy EncodingErrorPolicy, s string) ([]byte, error) {
	out, _, err := transform.Bytes(enc.NewEncoder(), []byte(s))
	if err != nil {
		if policy == PolicyStrict {
			return nil, NewShapeError(ErrEncodingError, "cannot encode dbf cell", err)
		}
		return []byte(s), nil
	}
	return out, nil
}

// sniffCPG reads a .cpg sidecar stream, returning the trimmed codepage
// name it names. Per spec.md §4.5, a .cpg sidecar takes precedence over
// the default encoding but not over one passed through WithEncoding.
func sniffCPG(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", NewShapeError(ErrIOError, "reading .cpg", err)
	}
	return strings.TrimSpace(string(b)), nil
}
