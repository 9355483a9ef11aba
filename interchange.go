package shp

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// ToGeom converts a decoded Shape into a go-geom geometry tree, per
// spec.md §4.8. Points map to geom.Point, multipoints to
// geom.MultiPoint, single-part lines to geom.LineString, multi-part
// lines to geom.MultiLineString, and polygons/multipatches to
// geom.Polygon or geom.MultiPolygon depending on how many outer rings
// their parts group into.
func ToGeom(s Shape) (geom.T, error) {
	switch v := s.(type) {
	case *Null:
		return nil, nil
	case *Point:
		return geom.NewPointFlat(geom.XY, []float64{v.X, v.Y}), nil
	case *PointM:
		return geom.NewPointFlat(geom.XYM, []float64{v.X, v.Y, v.M}), nil
	case *PointZ:
		return geom.NewPointFlat(geom.XYZM, []float64{v.X, v.Y, v.Z, v.M}), nil
	case *MultiPoint:
		return multiPointToGeom(geom.XY, flattenXY(v.Points))
	case *MultiPointM:
		return multiPointToGeom(geom.XYM, flattenXYM(v.Points, v.MArray))
	case *MultiPointZ:
		return multiPointToGeom(geom.XYZM, flattenXYZM(v.Points, v.ZArray, v.MArray))
	case *PolyLine:
		return polyLineToGeom(geom.XY, v.Parts, flattenXY(v.Points), len(v.Points))
	case *PolyLineM:
		return polyLineToGeom(geom.XYM, v.Parts, flattenXYM(v.Points, v.MArray), len(v.Points))
	case *PolyLineZ:
		return polyLineToGeom(geom.XYZM, v.Parts, flattenXYZM(v.Points, v.ZArray, v.MArray), len(v.Points))
	case *Polygon:
		pl := (*PolyLine)(v)
		return polygonToGeom(geom.XY, pl.Parts, pl.Points, flattenXY(pl.Points))
	case *PolygonM:
		pl := (*PolyLineM)(v)
		return polygonToGeom(geom.XYM, pl.Parts, pl.Points, flattenXYM(pl.Points, pl.MArray))
	case *PolygonZ:
		pl := (*PolyLineZ)(v)
		return polygonToGeom(geom.XYZM, pl.Parts, pl.Points, flattenXYZM(pl.Points, pl.ZArray, pl.MArray))
	case *MultiPatch:
		return multiPatchToGeom(v)
	default:
		return nil, NewShapeError(ErrSchemaError, fmt.Sprintf("unconvertible shape %T", s), nil)
	}
}

func flattenXY(points []Point) []float64 {
	out := make([]float64, 0, len(points)*2)
	for _, p := range points {
		out = append(out, p.X, p.Y)
	}
	return out
}

func flattenXYM(points []Point, m []float64) []float64 {
	out := make([]float64, 0, len(points)*3)
	for i, p := range points {
		out = append(out, p.X, p.Y, m[i])
	}
	return out
}

func flattenXYZM(points []Point, z, m []float64) []float64 {
	out := make([]float64, 0, len(points)*4)
	for i, p := range points {
		out = append(out, p.X, p.Y, z[i], m[i])
	}
	return out
}

func multiPointToGeom(layout geom.Layout, flat []float64) (geom.T, error) {
	if len(flat) == 0 {
		return geom.NewMultiPoint(layout), nil
	}
	return geom.NewMultiPointFlat(layout, flat), nil
}

// partEnds converts the shp "start offset per part" layout into go-geom's
// "end offset per ring, in coordinate stride units" layout.
func partEnds(parts []int32, stride, numPoints int) []int {
	ends := make([]int, len(parts))
	for i := range parts {
		_, end := partSpan(parts, i, numPoints)
		ends[i] = end * stride
	}
	return ends
}

func polyLineToGeom(layout geom.Layout, parts []int32, flat []float64, numPoints int) (geom.T, error) {
	stride := layout.Stride()
	if len(parts) <= 1 {
		return geom.NewLineStringFlat(layout, flat), nil
	}
	ends := partEnds(parts, stride, numPoints)
	return geom.NewMultiLineStringFlat(layout, flat, ends), nil
}

// polygonToGeom groups a polygon's rings into one or more outer+holes
// assemblies using clockwise/counter-clockwise winding (spec.md §3/§4.8):
// a clockwise ring starts a new outer polygon; each counter-clockwise ring
// is attached as a hole of the nearest preceding outer ring (DESIGN.md
// Open Question ii).
func polygonToGeom(layout geom.Layout, parts []int32, points []Point, flat []float64) (geom.T, error) {
	stride := layout.Stride()
	numParts := len(parts)
	if numParts == 0 {
		return geom.NewPolygon(layout), nil
	}
	type ring struct {
		start, end int // point index range
	}
	var outers []ring
	holesOf := map[int][]ring{}
	lastOuter := -1
	for i := 0; i < numParts; i++ {
		start, end := partSpan(parts, i, len(points))
		r := ring{start, end}
		if isClockwise(points[start:end]) || lastOuter < 0 {
			outers = append(outers, r)
			lastOuter = len(outers) - 1
		} else {
			holesOf[lastOuter] = append(holesOf[lastOuter], r)
		}
	}
	if len(outers) == 1 {
		ends := make([]int, 0, 1+len(holesOf[0]))
		ends = append(ends, outers[0].end*stride)
		for _, h := range holesOf[0] {
			ends = append(ends, h.end*stride)
		}
		return geom.NewPolygonFlat(layout, flat, ends), nil
	}
	endss := make([][]int, len(outers))
	for i, o := range outers {
		ends := []int{o.end * stride}
		for _, h := range holesOf[i] {
			ends = append(ends, h.end*stride)
		}
		endss[i] = ends
	}
	return geom.NewMultiPolygonFlat(layout, flat, endss), nil
}

// multiPatchPart is one fanned-out or original MultiPatch part: a point
// ring tagged with its (possibly reclassified) PartType.
type multiPatchPart struct {
	pts []Point
	typ PartType
}

// multiPatchToGeom assembles a MultiPatch's RING-typed parts into a
// MultiPolygon; TRIANGLE_STRIP/TRIANGLE_FAN parts are fanned out into
// individual triangular rings first, per spec.md §4.8.
func multiPatchToGeom(v *MultiPatch) (geom.T, error) {
	layout := geom.XYZM
	stride := layout.Stride()
	var flat []float64
	var endss [][]int

	var parts []multiPatchPart
	for i := range v.Parts {
		start, end := partSpan(v.Parts, i, int(v.NumPoints))
		pts := v.Points[start:end]
		typ := v.PartTypes[i]
		switch typ {
		case TRIANGLE_STRIP:
			parts = append(parts, triangulateStrip(pts)...)
		case TRIANGLE_FAN:
			parts = append(parts, triangulateFan(pts)...)
		default:
			parts = append(parts, multiPatchPart{pts: pts, typ: typ})
		}
	}

	var outers [][]Point
	holesOf := map[int][][]Point{}
	lastOuter := -1
	for _, p := range parts {
		switch p.typ {
		case OUTER_RING, FIRST_RING:
			outers = append(outers, p.pts)
			lastOuter = len(outers) - 1
		case INNER_RING:
			holesOf[lastOuter] = append(holesOf[lastOuter], p.pts)
		default: // RING, or a triangulated strip/fan part
			if isClockwise(p.pts) || lastOuter < 0 {
				outers = append(outers, p.pts)
				lastOuter = len(outers) - 1
			} else {
				holesOf[lastOuter] = append(holesOf[lastOuter], p.pts)
			}
		}
	}

	z := func(i int) float64 {
		if i < len(v.ZArray) {
			return v.ZArray[i]
		}
		return 0
	}
	m := func(i int) float64 {
		if i < len(v.MArray) {
			return v.MArray[i]
		}
		return NoDataValue
	}
	pointIndex := make(map[Point]int, len(v.Points))
	for i, p := range v.Points {
		if _, ok := pointIndex[p]; !ok {
			pointIndex[p] = i
		}
	}
	appendRing := func(ring []Point) []int {
		start := len(flat) / stride
		for _, p := range ring {
			idx, ok := pointIndex[p]
			if !ok {
				idx = 0
			}
			flat = append(flat, p.X, p.Y, z(idx), m(idx))
		}
		return []int{(start + len(ring)) * stride}
	}

	for oi, outer := range outers {
		ends := appendRing(outer)
		for _, hole := range holesOf[oi] {
			holeEnds := appendRing(hole)
			ends = append(ends, holeEnds...)
		}
		endss = append(endss, ends)
	}

	if len(endss) == 0 {
		return geom.NewPolygon(layout), nil
	}
	if len(endss) == 1 {
		return geom.NewPolygonFlat(layout, flat, endss[0]), nil
	}
	return geom.NewMultiPolygonFlat(layout, flat, endss), nil
}

// triangulateStrip expands a TRIANGLE_STRIP part into its individual
// triangle rings, alternating winding as the spec's fan-out rule
// requires.
func triangulateStrip(pts []Point) []multiPatchPart {
	var out []multiPatchPart
	for i := 0; i+2 < len(pts); i++ {
		var tri []Point
		if i%2 == 0 {
			tri = []Point{pts[i], pts[i+1], pts[i+2]}
		} else {
			tri = []Point{pts[i+1], pts[i], pts[i+2]}
		}
		out = append(out, multiPatchPart{pts: closedTriangle(tri), typ: RING})
	}
	return out
}

// triangulateFan expands a TRIANGLE_FAN part into its individual triangle
// rings, all sharing the first point.
func triangulateFan(pts []Point) []multiPatchPart {
	var out []multiPatchPart
	if len(pts) == 0 {
		return out
	}
	hub := pts[0]
	for i := 1; i+1 < len(pts); i++ {
		tri := []Point{hub, pts[i], pts[i+1]}
		out = append(out, multiPatchPart{pts: closedTriangle(tri), typ: RING})
	}
	return out
}

func closedTriangle(tri []Point) []Point {
	return append(append([]Point{}, tri...), tri[0])
}

// ToFeature builds a single geojson.Feature from a shape record's
// geometry and attributes.
func ToFeature(rec ShapeRecord) (*geojson.Feature, error) {
	g, err := ToGeom(rec.Shape)
	if err != nil {
		return nil, err
	}
	props := make(map[string]interface{}, len(rec.Record.Fields))
	for k, v := range rec.Record.Map() {
		props[k] = valueToInterface(v)
	}
	return &geojson.Feature{
		Geometry:   g,
		Properties: props,
	}, nil
}

// FeatureCollection builds a geojson.FeatureCollection for every record
// in the Reader, in ascending oid order.
func (r *Reader) FeatureCollection() (*geojson.FeatureCollection, error) {
	n, err := r.Len()
	if err != nil {
		return nil, err
	}
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, n)}
	for oid := int32(0); oid < int32(n); oid++ {
		sr, err := r.ShapeRecord(oid)
		if err != nil {
			return nil, err
		}
		f, err := ToFeature(sr)
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, f)
	}
	return fc, nil
}

func valueToInterface(v Value) interface{} {
	switch v.Kind() {
	case VText:
		s, _ := v.Text()
		return s
	case VInteger:
		i, _ := v.Integer()
		return i
	case VReal:
		r, _ := v.Real()
		return r
	case VBoolean:
		b, _ := v.Bool()
		return b
	case VDate:
		d, _ := v.ShapeDate()
		return d.String()
	default:
		return nil
	}
}

// FromGeom converts a go-geom geometry back into a Shape of shapeType,
// the writer's current file type, per spec.md §4.8's inverse direction.
// Every standard shape type is covered, including the Z/M variants and
// MultiPatch.
func FromGeom(g geom.T, shapeType ShapeType) (Shape, error) {
	switch shapeType {
	case NULL:
		return &Null{}, nil
	case POINT, POINTM, POINTZ:
		return fromGeomPoint(g, shapeType)
	case POLYLINE, POLYLINEM, POLYLINEZ:
		return fromGeomLine(g, shapeType)
	case POLYGON, POLYGONM, POLYGONZ:
		return fromGeomPolygon(g, shapeType)
	case MULTIPOINT, MULTIPOINTM, MULTIPOINTZ:
		return fromGeomMultiPoint(g, shapeType)
	case MULTIPATCH:
		return fromGeomMultiPatch(g)
	default:
		return nil, NewShapeError(ErrSchemaError, "unsupported shape type for FromGeom", nil)
	}
}

func pointsFromFlat(flat []float64, stride int) []Point {
	points := make([]Point, 0, len(flat)/stride)
	for i := 0; i < len(flat); i += stride {
		points = append(points, Point{X: flat[i], Y: flat[i+1]})
	}
	return points
}

// zmFromFlat extracts the per-point Z and/or M values from flat coords laid
// out per layout, or nil for whichever layout lacks that component.
func zmFromFlat(flat []float64, layout geom.Layout) (z, m []float64) {
	stride := layout.Stride()
	if stride == 0 {
		return nil, nil
	}
	n := len(flat) / stride
	if zi := layout.ZIndex(); zi >= 0 {
		z = make([]float64, n)
		for i := 0; i < n; i++ {
			z[i] = flat[i*stride+zi]
		}
	}
	if mi := layout.MIndex(); mi >= 0 {
		m = make([]float64, n)
		for i := 0; i < n; i++ {
			m[i] = flat[i*stride+mi]
		}
	}
	return z, m
}

func fromGeomPoint(g geom.T, shapeType ShapeType) (Shape, error) {
	p, ok := g.(*geom.Point)
	if !ok {
		return nil, NewShapeError(ErrSchemaError, "expected a Point geometry", nil)
	}
	c := p.FlatCoords()
	layout := p.Layout()
	switch shapeType {
	case POINT:
		return &Point{X: c[0], Y: c[1]}, nil
	case POINTM:
		m := NoDataValue
		if mi := layout.MIndex(); mi >= 0 {
			m = c[mi]
		}
		return &PointM{X: c[0], Y: c[1], M: m}, nil
	case POINTZ:
		var z float64
		m := NoDataValue
		if zi := layout.ZIndex(); zi >= 0 {
			z = c[zi]
		}
		if mi := layout.MIndex(); mi >= 0 {
			m = c[mi]
		}
		return &PointZ{X: c[0], Y: c[1], Z: z, M: m}, nil
	default:
		return nil, NewShapeError(ErrSchemaError, "unsupported point shape type", nil)
	}
}

// buildPolyLineShape assembles a PolyLine/PolyLineM/PolyLineZ from parts
// already split out, with z/m aligned to the flattened point list.
func buildPolyLineShape(shapeType ShapeType, parts [][]Point, z, m []float64) Shape {
	pl := NewPolyLine(parts)
	switch shapeType {
	case POLYLINEM:
		return &PolyLineM{Box: pl.Box, NumParts: pl.NumParts, NumPoints: pl.NumPoints,
			Parts: pl.Parts, Points: pl.Points, MArray: m, MRange: rangeOf(m)}
	case POLYLINEZ:
		return &PolyLineZ{Box: pl.Box, NumParts: pl.NumParts, NumPoints: pl.NumPoints,
			Parts: pl.Parts, Points: pl.Points,
			ZArray: z, ZRange: rangeOf(z), MArray: m, MRange: rangeOf(m)}
	default:
		return pl
	}
}

// buildPolygonShape assembles a Polygon/PolygonM/PolygonZ from rings
// already split out, with z/m aligned to the flattened point list.
func buildPolygonShape(shapeType ShapeType, rings [][]Point, z, m []float64) Shape {
	pl := NewPolyLine(rings)
	switch shapeType {
	case POLYGONM:
		return &PolygonM{Box: pl.Box, NumParts: pl.NumParts, NumPoints: pl.NumPoints,
			Parts: pl.Parts, Points: pl.Points, MArray: m, MRange: rangeOf(m)}
	case POLYGONZ:
		return &PolygonZ{Box: pl.Box, NumParts: pl.NumParts, NumPoints: pl.NumPoints,
			Parts: pl.Parts, Points: pl.Points,
			ZArray: z, ZRange: rangeOf(z), MArray: m, MRange: rangeOf(m)}
	default:
		return (*Polygon)(pl)
	}
}

func fromGeomLine(g geom.T, shapeType ShapeType) (Shape, error) {
	switch v := g.(type) {
	case *geom.LineString:
		stride := v.Layout().Stride()
		flat := v.FlatCoords()
		z, m := zmFromFlat(flat, v.Layout())
		return buildPolyLineShape(shapeType, [][]Point{pointsFromFlat(flat, stride)}, z, m), nil
	case *geom.MultiLineString:
		stride := v.Layout().Stride()
		flat := v.FlatCoords()
		var parts [][]Point
		start := 0
		for _, end := range v.Ends() {
			parts = append(parts, pointsFromFlat(flat[start:end], stride))
			start = end
		}
		z, m := zmFromFlat(flat, v.Layout())
		return buildPolyLineShape(shapeType, parts, z, m), nil
	default:
		return nil, NewShapeError(ErrSchemaError, "expected a LineString or MultiLineString geometry", nil)
	}
}

func fromGeomPolygon(g geom.T, shapeType ShapeType) (Shape, error) {
	switch v := g.(type) {
	case *geom.Polygon:
		stride := v.Layout().Stride()
		flat := v.FlatCoords()
		var rings [][]Point
		start := 0
		for _, end := range v.Ends() {
			rings = append(rings, pointsFromFlat(flat[start:end], stride))
			start = end
		}
		z, m := zmFromFlat(flat, v.Layout())
		return buildPolygonShape(shapeType, rings, z, m), nil
	case *geom.MultiPolygon:
		stride := v.Layout().Stride()
		flat := v.FlatCoords()
		var rings [][]Point
		start := 0
		for _, end := range v.Endss() {
			for _, e := range end {
				rings = append(rings, pointsFromFlat(flat[start:e], stride))
				start = e
			}
		}
		z, m := zmFromFlat(flat, v.Layout())
		return buildPolygonShape(shapeType, rings, z, m), nil
	default:
		return nil, NewShapeError(ErrSchemaError, "expected a Polygon or MultiPolygon geometry", nil)
	}
}

func fromGeomMultiPoint(g geom.T, shapeType ShapeType) (Shape, error) {
	mp, ok := g.(*geom.MultiPoint)
	if !ok {
		return nil, NewShapeError(ErrSchemaError, "expected a MultiPoint geometry", nil)
	}
	flat := mp.FlatCoords()
	points := pointsFromFlat(flat, mp.Layout().Stride())
	z, m := zmFromFlat(flat, mp.Layout())
	switch shapeType {
	case MULTIPOINTM:
		out := &MultiPointM{NumPoints: int32(len(points)), Points: points, MArray: m, MRange: rangeOf(m)}
		if len(points) > 0 {
			out.Box = BBoxFromPoints(points)
		}
		return out, nil
	case MULTIPOINTZ:
		out := &MultiPointZ{NumPoints: int32(len(points)), Points: points,
			ZArray: z, ZRange: rangeOf(z), MArray: m, MRange: rangeOf(m)}
		if len(points) > 0 {
			out.Box = BBoxFromPoints(points)
		}
		return out, nil
	default:
		return NewMultiPoint(points), nil
	}
}

// fromGeomMultiPatch rebuilds a MultiPatch from a Polygon/MultiPolygon tree,
// tagging each polygon's first ring FIRST_RING and the rest INNER_RING
// (spec.md §4.8's inverse direction does not need to recover the original
// triangle strips/fans, only a ring-typed MultiPatch that round-trips the
// same surface).
func fromGeomMultiPatch(g geom.T) (Shape, error) {
	var parts []multiPatchPart
	var flat []float64
	var layout geom.Layout
	switch v := g.(type) {
	case *geom.Polygon:
		stride := v.Layout().Stride()
		flat = v.FlatCoords()
		layout = v.Layout()
		start := 0
		for i, end := range v.Ends() {
			typ := INNER_RING
			if i == 0 {
				typ = FIRST_RING
			}
			parts = append(parts, multiPatchPart{pts: pointsFromFlat(flat[start:end], stride), typ: typ})
			start = end
		}
	case *geom.MultiPolygon:
		stride := v.Layout().Stride()
		flat = v.FlatCoords()
		layout = v.Layout()
		start := 0
		for _, endsForPoly := range v.Endss() {
			for i, end := range endsForPoly {
				typ := INNER_RING
				if i == 0 {
					typ = FIRST_RING
				}
				parts = append(parts, multiPatchPart{pts: pointsFromFlat(flat[start:end], stride), typ: typ})
				start = end
			}
		}
	default:
		return nil, NewShapeError(ErrSchemaError, "expected a Polygon or MultiPolygon geometry", nil)
	}
	z, m := zmFromFlat(flat, layout)
	mp := &MultiPatch{NumParts: int32(len(parts))}
	offset := int32(0)
	for _, p := range parts {
		mp.Parts = append(mp.Parts, offset)
		mp.PartTypes = append(mp.PartTypes, p.typ)
		mp.Points = append(mp.Points, p.pts...)
		offset += int32(len(p.pts))
	}
	mp.NumPoints = offset
	if len(mp.Points) > 0 {
		mp.Box = BBoxFromPoints(mp.Points)
	}
	mp.ZArray, mp.ZRange = z, rangeOf(z)
	mp.MArray, mp.MRange = m, rangeOf(m)
	return mp, nil
}
