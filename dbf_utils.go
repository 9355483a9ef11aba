package shp

import (
	"fmt"
	"strconv"
	"strings"
)

// dbfTableHeader is the parsed 32-byte dbf header plus its field
// descriptor array.
type dbfTableHeader struct {
	NumRecords   int32
	HeaderLength int16
	RecordLength int16
	Fields       []Field
}

// readDbfTableHeader parses the dbf header and field descriptors, leaving
// the stream positioned at the first data row.
func readDbfTableHeader(er *errReader) (dbfTableHeader, error) {
	var version byte
	readLE(er, &version)
	var skip [3]byte
	readLE(er, &skip)
	var h dbfTableHeader
	readLE(er, &h.NumRecords)
	readLE(er, &h.HeaderLength)
	readLE(er, &h.RecordLength)
	var padding [dbfHeaderPaddingLen]byte
	readLE(er, &padding)
	if er.e != nil {
		return dbfTableHeader{}, NewShapeError(ErrIOError, "reading dbf header", er.e)
	}
	numFields := calcNumFields(h.HeaderLength)
	h.Fields = make([]Field, 0, numFields)
	for i := 0; i < numFields; i++ {
		var buf [dbfFieldDescriptorLen]byte
		readLE(er, &buf)
		if er.e != nil {
			return dbfTableHeader{}, NewShapeError(ErrMalformedFile, "reading dbf field descriptor", er.e)
		}
		h.Fields = append(h.Fields, decodeFieldDescriptor(buf))
	}
	var terminator byte
	readLE(er, &terminator)
	if er.e != nil {
		return dbfTableHeader{}, NewShapeError(ErrMalformedFile, "reading dbf field terminator", er.e)
	}
	if terminator != dbfFieldTerminator {
		return dbfTableHeader{}, NewShapeError(ErrMalformedFile, "missing dbf field terminator", nil)
	}
	return h, nil
}

// writeDbfTableHeader writes the 32-byte dbf header, one descriptor per
// field, and the terminator byte.
func writeDbfTableHeader(ew *errWriter, h dbfTableHeader) {
	writeLE(ew, byte(dbfVersionByte))
	writeLE(ew, [3]byte{})
	writeLE(ew, h.NumRecords)
	writeLE(ew, h.HeaderLength)
	writeLE(ew, h.RecordLength)
	writeLE(ew, [dbfHeaderPaddingLen]byte{})
	for _, f := range h.Fields {
		buf := encodeFieldDescriptor(f)
		writeLE(ew, buf)
	}
	writeLE(ew, byte(dbfFieldTerminator))
}

// dbf layout constants, kept from the teacher's dbf_utils.go.
const (
	dbfHeaderLen          = 32
	dbfOffsetNumRecords   = 4
	dbfOffsetHeaderLen    = 8
	dbfOffsetRecordLen    = 10
	dbfHeaderPaddingLen   = 20
	dbfFieldDescriptorLen = 32
	dbfHeaderFieldsBase   = 32
	dbfRowDeletionFlagSz  = 1
	dbfDeletionFlagNotDeleted = 0x20
	dbfDeletionFlagDeleted    = 0x2a
	dbfFieldTerminator        = 0x0d
	dbfFileTerminator         = 0x1a
	dbfVersionByte            = 0x03
)

// calcRecordLength returns the fixed row width (deletion flag + every
// field's declared byte length).
func calcRecordLength(fields []Field) int16 {
	total := dbfRowDeletionFlagSz
	for _, f := range fields {
		total += int(f.Length)
	}
	return int16(total)
}

// calcHeaderLength returns the dbf header length: the 32-byte fixed header,
// one 32-byte descriptor per field, and the 0x0d terminator byte.
func calcHeaderLength(fields []Field) int16 {
	return int16(dbfHeaderLen + len(fields)*dbfFieldDescriptorLen + 1)
}

// calcNumFields derives the field count from a header length read off
// disk, the inverse of calcHeaderLength.
func calcNumFields(headerLength int16) int {
	return int((int(headerLength) - dbfHeaderLen - 1) / dbfFieldDescriptorLen)
}

// dbfFieldStartByte returns the byte offset of field index i within a row
// (after the 1-byte deletion flag).
func dbfFieldStartByte(fields []Field, i int) int {
	start := dbfRowDeletionFlagSz
	for _, f := range fields[:i] {
		start += int(f.Length)
	}
	return start
}

// encodeFieldDescriptor writes one 32-byte dbf field descriptor.
func encodeFieldDescriptor(f Field) [dbfFieldDescriptorLen]byte {
	var buf [dbfFieldDescriptorLen]byte
	copy(buf[0:11], f.Name)
	buf[11] = byte(f.Kind)
	buf[16] = f.Length
	buf[17] = f.Decimal
	return buf
}

// decodeFieldDescriptor parses one 32-byte dbf field descriptor.
func decodeFieldDescriptor(buf [dbfFieldDescriptorLen]byte) Field {
	name := strings.TrimRight(string(buf[0:11]), "\x00")
	return Field{
		Name:    name,
		Kind:    FieldKind(buf[11]),
		Length:  buf[16],
		Decimal: buf[17],
	}
}

// formatValue renders v as the fixed-width ASCII cell for field f, padding
// or right/left-justifying per its kind. A Number/Float value whose
// formatted width exceeds f.Length fails with ValueError (spec.md §4.4,
// DESIGN.md Open Question iii); Character/Memo text longer than f.Length is
// truncated to f.Length bytes.
func formatValue(f Field, v Value) (string, error) {
	width := int(f.Length)
	if v.IsNull() {
		return blankCell(f), nil
	}
	switch f.Kind {
	case Character, Memo:
		s, ok := v.Text()
		if !ok {
			return "", NewShapeError(ErrValueError, fmt.Sprintf("field %q expects text", f.Name), nil)
		}
		if len(s) > width {
			s = s[:width]
		}
		return s + strings.Repeat(" ", width-len(s)), nil
	case Number:
		i, ok := v.Integer()
		if !ok {
			if r, okr := v.Real(); okr {
				i = int64(r)
			} else {
				return "", NewShapeError(ErrValueError, fmt.Sprintf("field %q expects a number", f.Name), nil)
			}
		}
		s := strconv.FormatInt(i, 10)
		if len(s) > width {
			return "", NewShapeError(ErrValueError, fmt.Sprintf("field %q: %q exceeds width %d", f.Name, s, width), nil)
		}
		return strings.Repeat(" ", width-len(s)) + s, nil
	case Float:
		r, ok := v.Real()
		if !ok {
			if i, oki := v.Integer(); oki {
				r = float64(i)
			} else {
				return "", NewShapeError(ErrValueError, fmt.Sprintf("field %q expects a real value", f.Name), nil)
			}
		}
		s := strconv.FormatFloat(r, 'f', int(f.Decimal), 64)
		if len(s) > width {
			return "", NewShapeError(ErrValueError, fmt.Sprintf("field %q: %q exceeds width %d", f.Name, s, width), nil)
		}
		return strings.Repeat(" ", width-len(s)) + s, nil
	case Logical:
		b, ok := v.Bool()
		if !ok {
			return "", NewShapeError(ErrValueError, fmt.Sprintf("field %q expects a boolean", f.Name), nil)
		}
		if b {
			return "T", nil
		}
		return "F", nil
	case Date:
		d, ok := v.ShapeDate()
		if !ok {
			return "", NewShapeError(ErrValueError, fmt.Sprintf("field %q expects a date", f.Name), nil)
		}
		if d.IsZero() {
			return blankCell(f), nil
		}
		return d.String(), nil
	default:
		return "", NewShapeError(ErrSchemaError, fmt.Sprintf("field %q has unknown kind %q", f.Name, f.Kind), nil)
	}
}

// blankCell returns the on-disk representation of a null value for f's
// kind: spaces for text/number/float/date, '?' for logical.
func blankCell(f Field) string {
	if f.Kind == Logical {
		return "?"
	}
	return strings.Repeat(" ", int(f.Length))
}

// parseValue decodes the fixed-width ASCII cell for field f into a typed
// Value, recognizing each kind's null representation. A cell that can't be
// parsed as its declared kind degrades to a missing value rather than
// failing the read; cfg (nil is fine) gates a warning on the way out.
func parseValue(f Field, cell string, cfg *ReaderConfig) (Value, error) {
	switch f.Kind {
	case Character, Memo:
		trimmed := strings.TrimRight(cell, " ")
		if trimmed == "" {
			return NullValue(), nil
		}
		return TextValue(trimmed), nil
	case Number:
		trimmed := strings.TrimSpace(cell)
		if trimmed == "" {
			return NullValue(), nil
		}
		i, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			f2, ferr := strconv.ParseFloat(trimmed, 64)
			if ferr != nil {
				warnDegraded(cfg, "field %q: %q is not numeric; yielding missing", f.Name, cell)
				return NullValue(), nil
			}
			return IntegerValue(int64(f2)), nil
		}
		return IntegerValue(i), nil
	case Float:
		trimmed := strings.TrimSpace(cell)
		if trimmed == "" {
			return NullValue(), nil
		}
		r, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			warnDegraded(cfg, "field %q: %q is not a real value; yielding missing", f.Name, cell)
			return NullValue(), nil
		}
		return RealValue(r), nil
	case Logical:
		switch cell {
		case "Y", "y", "T", "t":
			return BooleanValue(true), nil
		case "N", "n", "F", "f":
			return BooleanValue(false), nil
		default:
			return NullValue(), nil
		}
	case Date:
		d, outcome := parseShapeDateLenient(cell)
		switch outcome {
		case dateOK:
			if d.IsZero() {
				return NullValue(), nil
			}
			return DateValue(d), nil
		case dateText:
			warnDegraded(cfg, "field %q: %q is not a well-formed date; keeping as text", f.Name, cell)
			return TextValue(strings.TrimSpace(cell)), nil
		default:
			warnDegraded(cfg, "field %q: %q is not a date; yielding missing", f.Name, cell)
			return NullValue(), nil
		}
	default:
		return Value{}, NewShapeError(ErrSchemaError, fmt.Sprintf("field %q has unknown kind %q", f.Name, f.Kind), nil)
	}
}

// warnDegraded logs a non-fatal value-parsing degradation when cfg asks
// for it; cfg may be nil (no logging).
func warnDegraded(cfg *ReaderConfig, format string, args ...interface{}) {
	if cfg != nil && cfg.Verbose && cfg.Logger != nil {
		cfg.Logger.Printf("dbf: "+format, args...)
	}
}
