package shp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatValueFloatFixedWidth(t *testing.T) {
	expected := "      1.3217328000"
	width := len(expected)
	decimal := 10
	f, err := FloatField("VAL", width, decimal)
	require.NoError(t, err)

	got, err := formatValue(f, RealValue(1.3217328))
	require.NoError(t, err)
	assert.Equal(t, expected, got)
}

func TestFormatValueOverflowFails(t *testing.T) {
	f, err := NumberField("ID", 2)
	require.NoError(t, err)
	_, err = formatValue(f, IntegerValue(12345))
	require.Error(t, err)
	var se *ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ErrValueError, se.Type)
}

func TestFormatAndParseValueRoundTrip(t *testing.T) {
	cf, _ := CharacterField("NAME", 20)
	nf, _ := NumberField("COUNT", 6)
	lf, _ := LogicalField("FLAG")
	df, _ := DateField("WHEN")

	cases := []struct {
		field Field
		value Value
	}{
		{cf, TextValue("Golden Gate")},
		{nf, IntegerValue(42)},
		{lf, BooleanValue(true)},
		{df, DateValue(ShapeDate{Year: 2026, Month: 7, Day: 31})},
	}
	for _, c := range cases {
		cell, err := formatValue(c.field, c.value)
		require.NoError(t, err)
		got, err := parseValue(c.field, cell, nil)
		require.NoError(t, err)
		assert.Equal(t, c.value, got)
	}
}

func TestFormatValueNullProducesBlankCell(t *testing.T) {
	cf, _ := CharacterField("NAME", 5)
	cell, err := formatValue(cf, NullValue())
	require.NoError(t, err)
	assert.Equal(t, "     ", cell)

	lf, _ := LogicalField("FLAG")
	cell, err = formatValue(lf, NullValue())
	require.NoError(t, err)
	assert.Equal(t, "?", cell)
}

func TestParseValueBlankIsNull(t *testing.T) {
	nf, _ := NumberField("ID", 6)
	v, err := parseValue(nf, "      ", nil)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestParseValueDegradesInsteadOfErroring(t *testing.T) {
	nf, _ := NumberField("ID", 6)
	v, err := parseValue(nf, "  abc ", nil)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	ff, _ := FloatField("VAL", 10, 4)
	v, err = parseValue(ff, "  xyz    ", nil)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	df, _ := DateField("WHEN")
	v, err = parseValue(df, "202607", nil) // digits, but not 8 of them
	require.NoError(t, err)
	text, ok := v.Text()
	assert.True(t, ok)
	assert.Equal(t, "202607", text)

	v, err = parseValue(df, "garbage!", nil)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestCalcHeaderAndRecordLength(t *testing.T) {
	fields := []Field{
		mustField(CharacterField("NAME", 20)),
		mustField(NumberField("ID", 6)),
	}
	assert.Equal(t, int16(32+2*32+1), calcHeaderLength(fields))
	assert.Equal(t, int16(1+20+6), calcRecordLength(fields))
	assert.Equal(t, 2, calcNumFields(calcHeaderLength(fields)))
}

func mustField(f Field, err error) Field {
	if err != nil {
		panic(err)
	}
	return f
}
