package shp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointWriteReadRoundTrip(t *testing.T) {
	shp, shx, dbf := newMemFile(), newMemFile(), newMemFile()
	w, err := Create(shp, shx, dbf, POINT)
	require.NoError(t, err)
	require.NoError(t, w.Field(mustField(CharacterField("NAME", 20))))
	require.NoError(t, w.Field(mustField(NumberField("ID", 6))))

	_, err = w.WriteShapeRecord(&Point{X: 1, Y: 2}, []Value{TextValue("alpha"), IntegerValue(1)})
	require.NoError(t, err)
	_, err = w.WriteShapeRecord(&Point{X: 3, Y: 4}, []Value{TextValue("beta"), IntegerValue(2)})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := OpenStreams(shp.reader(), shx.reader(), dbf.reader(), nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, POINT, r.ShapeType())
	n, err := r.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, Box{MinX: 1, MinY: 2, MaxX: 3, MaxY: 4}, r.BBox())

	s0, err := r.Shape(0)
	require.NoError(t, err)
	assert.Equal(t, &Point{X: 1, Y: 2}, s0)

	rec1, err := r.Record(1)
	require.NoError(t, err)
	name, _ := rec1.ByName("NAME")
	nameText, _ := name.Text()
	assert.Equal(t, "beta", nameText)
}

func TestPolygonAutoCloseAndOrientation(t *testing.T) {
	shp, shx, dbf := newMemFile(), newMemFile(), newMemFile()
	w, err := Create(shp, shx, dbf, POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.Field(mustField(NumberField("ID", 6))))

	outer := []Point{{0, 0}, {0, 10}, {10, 10}, {10, 0}} // open ring
	_, err = w.WriteShapeRecord(mustPolygon(t, [][]Point{outer}), []Value{IntegerValue(1)})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := OpenStreams(shp.reader(), shx.reader(), nil, nil)
	require.NoError(t, err)
	defer r.Close()

	shape, err := r.Shape(0)
	require.NoError(t, err)
	pg, ok := shape.(*Polygon)
	require.True(t, ok)
	pl := (*PolyLine)(pg)
	assert.Equal(t, outer[0], pl.Points[len(pl.Points)-1], "ring must be closed")
	assert.Len(t, pl.Points, len(outer)+1)
	assert.True(t, isClockwise(pl.Points), "outer ring keeps its clockwise winding")
}

func mustPolygon(t *testing.T, rings [][]Point) Shape {
	t.Helper()
	closed := make([][]Point, len(rings))
	for i, ring := range rings {
		c, err := closeRing(ring)
		require.NoError(t, err)
		closed[i] = c
	}
	return NewPolygon(closed)
}

func TestPolygonRejectsDegenerateRing(t *testing.T) {
	_, err := closeRing([]Point{{0, 0}, {1, 1}})
	require.Error(t, err)
	var se *ShapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ErrMalformedFile, se.Type)
}

func TestAutoBalanceFillsMissingDbfRows(t *testing.T) {
	shpS, shxS, dbfS := newMemFile(), newMemFile(), newMemFile()
	w, err := Create(shpS, shxS, dbfS, POINT, WithAutoBalance(true))
	require.NoError(t, err)
	require.NoError(t, w.Field(mustField(NumberField("ID", 6))))

	_, err = w.WriteShape(&Point{X: 0, Y: 0})
	require.NoError(t, err)
	_, err = w.WriteShape(&Point{X: 1, Y: 1})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := OpenStreams(shpS.reader(), shxS.reader(), dbfS.reader(), nil)
	require.NoError(t, err)
	defer r.Close()

	n, err := r.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	rec, err := r.Record(0)
	require.NoError(t, err)
	v, _ := rec.Get(0)
	assert.True(t, v.IsNull())
}

func TestMissingShxScanThenCache(t *testing.T) {
	shpS, shxS, dbfS := newMemFile(), newMemFile(), newMemFile()
	w, err := Create(shpS, shxS, dbfS, POINT)
	require.NoError(t, err)
	require.NoError(t, w.Field(mustField(NumberField("ID", 6))))
	for i := 0; i < 5; i++ {
		_, err := w.WriteShapeRecord(&Point{X: float64(i), Y: float64(i)}, []Value{IntegerValue(int64(i))})
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r, err := OpenStreams(shpS.reader(), nil, nil, nil)
	require.NoError(t, err)
	defer r.Close()

	n, err := r.Len()
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	s2, err := r.Shape(2)
	require.NoError(t, err)
	assert.Equal(t, &Point{X: 2, Y: 2}, s2)
}

func TestBBoxPrefilter(t *testing.T) {
	shpS, shxS, dbfS := newMemFile(), newMemFile(), newMemFile()
	w, err := Create(shpS, shxS, dbfS, POINT)
	require.NoError(t, err)
	require.NoError(t, w.Field(mustField(NumberField("ID", 6))))
	for x := 0; x < 10; x++ {
		for y := 0; y < 10; y++ {
			_, err := w.WriteShapeRecord(&Point{X: float64(x), Y: float64(y)}, []Value{IntegerValue(int64(x*10 + y))})
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())

	r, err := OpenStreams(shpS.reader(), shxS.reader(), dbfS.reader(), nil)
	require.NoError(t, err)
	defer r.Close()

	it := r.Iterate(WithBBox(Box{MinX: 2, MinY: 2, MaxX: 3, MaxY: 3}))
	var oids []int32
	for it.Next() {
		oids = append(oids, it.OID())
	}
	require.NoError(t, it.Err())
	assert.Len(t, oids, 4)
	for i := 1; i < len(oids); i++ {
		assert.Greater(t, oids[i], oids[i-1], "iteration must proceed in ascending oid order")
	}
}
