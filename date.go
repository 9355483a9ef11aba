package shp

import "fmt"

// ShapeDate is a calendar date as stored in a dbf Date field: 8 ASCII
// digits, YYYYMMDD, with no timezone.
type ShapeDate struct {
	Year  int
	Month int
	Day   int
}

// String formats d as YYYYMMDD, the on-disk layout.
func (d ShapeDate) String() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether d is the blank date used for a null Date value.
func (d ShapeDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// parseShapeDate parses an 8-digit YYYYMMDD string. An all-spaces or
// all-zero field decodes as the zero ShapeDate (treated as null). Used by
// the write path, where a malformed date is the caller's bug and should
// surface as an error.
func parseShapeDate(s string) (ShapeDate, error) {
	if isBlank(s) {
		return ShapeDate{}, nil
	}
	if len(s) != 8 {
		return ShapeDate{}, NewShapeError(ErrValueError, fmt.Sprintf("date value %q is not 8 digits", s), nil)
	}
	var y, m, day int
	if _, err := fmt.Sscanf(s, "%04d%02d%02d", &y, &m, &day); err != nil {
		return ShapeDate{}, NewShapeError(ErrValueError, fmt.Sprintf("date value %q is not numeric", s), err)
	}
	return ShapeDate{Year: y, Month: m, Day: day}, nil
}

// dateOutcome classifies a raw dbf Date cell for the read path, which
// degrades instead of erroring: dateMissing for junk bytes, dateText when
// the cell is digits but not a well-formed 8-digit date (the caller should
// keep it as text rather than drop it), dateOK when it decoded cleanly. A
// blank cell is dateOK with the zero ShapeDate, which callers read as null.
type dateOutcome int

const (
	dateMissing dateOutcome = iota
	dateText
	dateOK
)

// parseShapeDateLenient is the read-path counterpart of parseShapeDate: a
// malformed cell is the producing file's problem, not ours, so it never
// returns an error.
func parseShapeDateLenient(s string) (d ShapeDate, outcome dateOutcome) {
	if isBlank(s) {
		return ShapeDate{}, dateOK
	}
	if !isAllDigits(s) {
		return ShapeDate{}, dateMissing
	}
	if len(s) != 8 {
		return ShapeDate{}, dateText
	}
	var y, m, day int
	if _, err := fmt.Sscanf(s, "%04d%02d%02d", &y, &m, &day); err != nil {
		return ShapeDate{}, dateText
	}
	return ShapeDate{Year: y, Month: m, Day: day}, dateOK
}

func isBlank(s string) bool {
	for _, c := range s {
		if c != ' ' && c != 0 {
			return false
		}
	}
	return true
}

func isAllDigits(s string) bool {
	trimmed := false
	for _, c := range s {
		if c == ' ' {
			continue
		}
		trimmed = true
		if c < '0' || c > '9' {
			return false
		}
	}
	return trimmed
}
