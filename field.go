package shp

import "fmt"

// FieldKind is the single-byte dbf type tag (spec.md §3/§4.4).
type FieldKind byte

const (
	Character FieldKind = 'C'
	Number    FieldKind = 'N'
	Float     FieldKind = 'F'
	Logical   FieldKind = 'L'
	Date      FieldKind = 'D'
	Memo      FieldKind = 'M'
)

func (k FieldKind) String() string {
	return string(k)
}

// maxFields is the largest number of field descriptors a dbf header can
// address (32-byte header + N*32-byte descriptors must still fit a 16-bit
// header-length field).
const maxFields = 2046

// Field describes one dbf column: its on-disk name, type tag, byte width,
// and (for Number/Float) decimal precision.
type Field struct {
	Name    string
	Kind    FieldKind
	Length  byte
	Decimal byte
}

// CharacterField builds a text field of the given byte length (max 255;
// every other field kind tops out at 254).
func CharacterField(name string, length int) (Field, error) {
	return newField(name, Character, length, 0)
}

// NumberField builds an integer-valued field of the given byte length.
func NumberField(name string, length int) (Field, error) {
	return newField(name, Number, length, 0)
}

// FloatField builds a real-valued field with the given byte length and
// decimal precision.
func FloatField(name string, length, decimal int) (Field, error) {
	return newField(name, Float, length, decimal)
}

// LogicalField builds a boolean field (always 1 byte wide on disk).
func LogicalField(name string) (Field, error) {
	return newField(name, Logical, 1, 0)
}

// DateField builds an 8-byte YYYYMMDD date field.
func DateField(name string) (Field, error) {
	return newField(name, Date, 8, 0)
}

// MemoField builds a memo-reference field of the given byte length
// (typically 10, holding a decimal block pointer into a .dbt this package
// does not itself read).
func MemoField(name string, length int) (Field, error) {
	return newField(name, Memo, length, 0)
}

func newField(name string, kind FieldKind, length, decimal int) (Field, error) {
	if len(name) == 0 || len(name) > 10 {
		return Field{}, NewShapeError(ErrSchemaError, fmt.Sprintf("field name %q must be 1-10 bytes", name), nil)
	}
	maxLength := 254
	if kind == Character {
		maxLength = 255
	}
	if length <= 0 || length > maxLength {
		return Field{}, NewShapeError(ErrSchemaError, fmt.Sprintf("field %q length %d out of range 1-%d", name, length, maxLength), nil)
	}
	if decimal < 0 || decimal > 254 {
		return Field{}, NewShapeError(ErrSchemaError, fmt.Sprintf("field %q decimal %d out of range", name, decimal), nil)
	}
	return Field{Name: name, Kind: kind, Length: byte(length), Decimal: byte(decimal)}, nil
}

// defaultLength returns the conventional default byte width for fields
// built through Writer.Field without an explicit length.
func defaultLength(kind FieldKind) byte {
	switch kind {
	case Character:
		return 50
	case Number, Float, Memo:
		return 10
	case Logical:
		return 1
	case Date:
		return 8
	default:
		return 1
	}
}
