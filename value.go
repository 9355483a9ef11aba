package shp

import "fmt"

// ValueKind discriminates the payload carried by a Value.
type ValueKind int

const (
	VNull ValueKind = iota
	VText
	VInteger
	VReal
	VBoolean
	VDate
)

// Value is a single dbf cell: exactly one of text/integer/real/boolean/date
// is meaningful, selected by Kind. A Logical field whose on-disk byte is
// '?' and a Character/Number/Float/Date field left blank both decode to
// the null Value, per spec.md §4.4.
type Value struct {
	kind    ValueKind
	text    string
	integer int64
	real    float64
	boolean bool
	date    ShapeDate
}

func NullValue() Value               { return Value{kind: VNull} }
func TextValue(s string) Value       { return Value{kind: VText, text: s} }
func IntegerValue(i int64) Value     { return Value{kind: VInteger, integer: i} }
func RealValue(f float64) Value      { return Value{kind: VReal, real: f} }
func BooleanValue(b bool) Value      { return Value{kind: VBoolean, boolean: b} }
func DateValue(d ShapeDate) Value    { return Value{kind: VDate, date: d} }

// Kind reports which accessor is meaningful.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether v carries no data.
func (v Value) IsNull() bool { return v.kind == VNull }

// Text returns v's text payload and whether v.Kind() == VText.
func (v Value) Text() (string, bool) { return v.text, v.kind == VText }

// Integer returns v's integer payload and whether v.Kind() == VInteger.
func (v Value) Integer() (int64, bool) { return v.integer, v.kind == VInteger }

// Real returns v's real payload and whether v.Kind() == VReal.
func (v Value) Real() (float64, bool) { return v.real, v.kind == VReal }

// Bool returns v's boolean payload and whether v.Kind() == VBoolean.
func (v Value) Bool() (bool, bool) { return v.boolean, v.kind == VBoolean }

// ShapeDate returns v's date payload and whether v.Kind() == VDate.
func (v Value) ShapeDate() (ShapeDate, bool) { return v.date, v.kind == VDate }

// String renders v for display/debugging; it is not the dbf wire format.
func (v Value) String() string {
	switch v.kind {
	case VNull:
		return ""
	case VText:
		return v.text
	case VInteger:
		return fmt.Sprintf("%d", v.integer)
	case VReal:
		return fmt.Sprintf("%v", v.real)
	case VBoolean:
		if v.boolean {
			return "T"
		}
		return "F"
	case VDate:
		return v.date.String()
	default:
		return ""
	}
}
