package shp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestToGeomPoint(t *testing.T) {
	g, err := ToGeom(&Point{X: 10, Y: 20})
	require.NoError(t, err)
	p, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, []float64{10, 20}, p.FlatCoords())
}

func TestToGeomSinglePolygonWithHole(t *testing.T) {
	outer := []Point{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}} // clockwise
	hole := []Point{{2, 2}, {4, 2}, {4, 4}, {2, 4}, {2, 2}}      // counter-clockwise
	pg := NewPolygon([][]Point{outer, hole})

	g, err := ToGeom(pg)
	require.NoError(t, err)
	poly, ok := g.(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, 2, poly.NumLinearRings())
}

func TestFromGeomPolygonRoundTrip(t *testing.T) {
	ring := []Point{{0, 0}, {0, 5}, {5, 5}, {5, 0}, {0, 0}}
	pg := NewPolygon([][]Point{ring})

	g, err := ToGeom(pg)
	require.NoError(t, err)
	shape, err := FromGeom(g, POLYGON)
	require.NoError(t, err)
	got, ok := shape.(*Polygon)
	require.True(t, ok)
	assert.Equal(t, int32(len(ring)), (*PolyLine)(got).NumPoints)
}

func TestTriangulateFan(t *testing.T) {
	pts := []Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	parts := triangulateFan(pts)
	require.Len(t, parts, 2)
	for _, p := range parts {
		assert.Equal(t, RING, p.typ)
		assert.Equal(t, p.pts[0], p.pts[len(p.pts)-1], "each fanned-out triangle ring must be closed")
	}
}

func TestToFeaturePropertiesFromRecord(t *testing.T) {
	rec := Record{
		OID:    1,
		Fields: []Field{mustField(CharacterField("NAME", 10))},
		Values: []Value{TextValue("pier")},
	}
	sr := ShapeRecord{OID: 1, Shape: &Point{X: 1, Y: 1}, Record: rec}
	f, err := ToFeature(sr)
	require.NoError(t, err)
	assert.Equal(t, "pier", f.Properties["NAME"])
}
