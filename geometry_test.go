package shp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxExtend(t *testing.T) {
	a := Box{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}
	b := Box{MinX: -1, MinY: 0.5, MaxX: 5, MaxY: 2}
	got := a.Extend(b)
	assert.Equal(t, Box{MinX: -1, MinY: 0, MaxX: 5, MaxY: 2}, got)
}

func TestBoxIntersects(t *testing.T) {
	a := Box{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	b := Box{MinX: 10, MinY: 10, MaxX: 20, MaxY: 20}
	assert.True(t, a.Intersects(b), "touching boxes count as intersecting")

	c := Box{MinX: 11, MinY: 11, MaxX: 20, MaxY: 20}
	assert.False(t, a.Intersects(c))
}

func TestSignedAreaOrientation(t *testing.T) {
	clockwise := []Point{{0, 0}, {0, 10}, {10, 10}, {10, 0}}
	assert.True(t, isClockwise(clockwise))

	counterClockwise := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	assert.False(t, isClockwise(counterClockwise))
}

func TestPointRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	ew := &errWriter{Writer: &buf}
	p := &Point{X: 122.5, Y: 37.2}
	p.write(ew)
	require.NoError(t, ew.e)

	er := &errReader{Reader: &buf}
	var got Point
	got.read(er, 16)
	require.NoError(t, er.e)
	assert.Equal(t, *p, got)
}

func TestPointMMissingMeasure(t *testing.T) {
	var buf bytes.Buffer
	ew := &errWriter{Writer: &buf}
	writeLE(ew, 1.0)
	writeLE(ew, 2.0)
	require.NoError(t, ew.e)

	er := &errReader{Reader: &buf}
	var got PointM
	got.read(er, 16) // no M block present
	require.NoError(t, er.e)
	assert.True(t, NoData(got.M))
}

func TestNewPolyLineMultiPart(t *testing.T) {
	parts := [][]Point{
		{{0, 0}, {1, 1}},
		{{5, 5}, {6, 6}, {7, 7}},
	}
	pl := NewPolyLine(parts)
	assert.Equal(t, int32(2), pl.NumParts)
	assert.Equal(t, int32(5), pl.NumPoints)
	assert.Equal(t, []int32{0, 2}, pl.Parts)
	assert.Equal(t, Box{MinX: 0, MinY: 0, MaxX: 7, MaxY: 7}, pl.BBox())
}

func TestPartSpanLastPartEndsAtLen(t *testing.T) {
	parts := []int32{0, 3, 5}
	start, end := partSpan(parts, 2, 8)
	assert.Equal(t, 5, start)
	assert.Equal(t, 8, end)
}

func TestShapeTypeFlags(t *testing.T) {
	assert.True(t, POLYGONZ.HasZ())
	assert.True(t, POLYGONZ.HasM())
	assert.False(t, POLYGON.HasZ())
	assert.True(t, MULTIPATCH.IsMultiPart())
	assert.False(t, POINT.IsMultiPart())
	assert.Equal(t, "POLYGON", POLYGON.String())
	assert.Equal(t, "UNKNOWN", ShapeType(99).String())
}
