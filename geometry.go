package shp

// NoDataValue is the value the writer emits for a missing M coordinate.
const NoDataValue = -1e38

// NoData reports whether v represents a missing M measure. Any value at or
// below -1e38 is treated as missing, matching the sentinel the writer emits
// (see spec §4.1/§6 and the NoData helper in twpayne/go-shapefile's
// shxheader.go, which this follows literally: x <= -1e38).
func NoData(v float64) bool {
	return v <= -1e38
}

// Point is a single XY coordinate pair.
type Point struct {
	X, Y float64
}

// Box is an axis-aligned bounding rectangle in XY space.
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

// Extend grows b so that it also contains other, returning the result.
func (b Box) Extend(other Box) Box {
	if other.MinX < b.MinX {
		b.MinX = other.MinX
	}
	if other.MinY < b.MinY {
		b.MinY = other.MinY
	}
	if other.MaxX > b.MaxX {
		b.MaxX = other.MaxX
	}
	if other.MaxY > b.MaxY {
		b.MaxY = other.MaxY
	}
	return b
}

// Intersects reports whether b and other overlap, inclusive of shared edges.
func (b Box) Intersects(other Box) bool {
	return b.MinX <= other.MaxX && b.MaxX >= other.MinX &&
		b.MinY <= other.MaxY && b.MaxY >= other.MinY
}

// BBoxFromPoints computes the bounding box of points. The caller must ensure
// points is non-empty.
func BBoxFromPoints(points []Point) Box {
	box := Box{MinX: points[0].X, MinY: points[0].Y, MaxX: points[0].X, MaxY: points[0].Y}
	for _, p := range points[1:] {
		if p.X < box.MinX {
			box.MinX = p.X
		}
		if p.Y < box.MinY {
			box.MinY = p.Y
		}
		if p.X > box.MaxX {
			box.MaxX = p.X
		}
		if p.Y > box.MaxY {
			box.MaxY = p.Y
		}
	}
	return box
}

// rangeOf returns the [min, max] of values, or [0,0] if values is empty.
func rangeOf(values []float64) [2]float64 {
	if len(values) == 0 {
		return [2]float64{0, 0}
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return [2]float64{lo, hi}
}

// Shape is implemented by every decoded/encoded geometry record. The read
// and write methods operate on the payload that follows the shape-type
// code; framing (record number, content length, shape-type tag) is handled
// by the reader/writer, matching the teacher's split between
// reader.Next()/Writer.Write() and the per-shape read/write methods.
type Shape interface {
	ShapeType() ShapeType
	BBox() Box
	read(er *errReader, remaining int64)
	write(ew *errWriter)
}

// newShape allocates a zero-valued Shape for shapeType, or reports
// an ErrUnsupportedType ShapeError for a code outside the 14 standard types. Per
// spec §4.2/§7, callers encountering an unknown code on disk should
// instead synthesize a minimal Null-equivalent shape rather than fail.
func newShape(shapeType ShapeType) (Shape, error) {
	switch shapeType {
	case NULL:
		return &Null{}, nil
	case POINT:
		return &Point{}, nil
	case POLYLINE:
		return &PolyLine{}, nil
	case POLYGON:
		return &Polygon{}, nil
	case MULTIPOINT:
		return &MultiPoint{}, nil
	case POINTZ:
		return &PointZ{}, nil
	case POLYLINEZ:
		return &PolyLineZ{}, nil
	case POLYGONZ:
		return &PolygonZ{}, nil
	case MULTIPOINTZ:
		return &MultiPointZ{}, nil
	case POINTM:
		return &PointM{}, nil
	case POLYLINEM:
		return &PolyLineM{}, nil
	case POLYGONM:
		return &PolygonM{}, nil
	case MULTIPOINTM:
		return &MultiPointM{}, nil
	case MULTIPATCH:
		return &MultiPatch{}, nil
	default:
		return nil, NewShapeError(ErrUnsupportedType, "unsupported shape type", nil)
	}
}

// ---- Null ----

// Null is the empty geometry; it carries no points and no bounding box.
type Null struct{}

func (s *Null) ShapeType() ShapeType            { return NULL }
func (s *Null) BBox() Box                       { return Box{} }
func (s *Null) read(er *errReader, _ int64)     {}
func (s *Null) write(ew *errWriter)             {}

// ---- Point family ----

func (s *Point) ShapeType() ShapeType { return POINT }
func (s *Point) BBox() Box            { return Box{s.X, s.Y, s.X, s.Y} }

func (s *Point) read(er *errReader, _ int64) {
	readLE(er, &s.X)
	readLE(er, &s.Y)
}

func (s *Point) write(ew *errWriter) {
	writeLE(ew, s.X)
	writeLE(ew, s.Y)
}

// PointM is a point with a measure value.
type PointM struct {
	X, Y, M float64
}

func (s *PointM) ShapeType() ShapeType { return POINTM }
func (s *PointM) BBox() Box            { return Box{s.X, s.Y, s.X, s.Y} }

func (s *PointM) read(er *errReader, remaining int64) {
	readLE(er, &s.X)
	readLE(er, &s.Y)
	if remainingAfter(remaining, er) >= 8 {
		readLE(er, &s.M)
	} else {
		s.M = NoDataValue
	}
}

func (s *PointM) write(ew *errWriter) {
	writeLE(ew, s.X)
	writeLE(ew, s.Y)
	writeLE(ew, s.M)
}

// PointZ is a point with both Z and M values. M always follows Z on disk,
// but per spec §4.2 the M value may be truncated from the file; a short
// read yields the missing-M sentinel rather than failing.
type PointZ struct {
	X, Y, Z, M float64
}

func (s *PointZ) ShapeType() ShapeType { return POINTZ }
func (s *PointZ) BBox() Box            { return Box{s.X, s.Y, s.X, s.Y} }

func (s *PointZ) read(er *errReader, remaining int64) {
	readLE(er, &s.X)
	readLE(er, &s.Y)
	readLE(er, &s.Z)
	if remainingAfter(remaining, er) >= 8 {
		readLE(er, &s.M)
	} else {
		s.M = NoDataValue
	}
}

func (s *PointZ) write(ew *errWriter) {
	writeLE(ew, s.X)
	writeLE(ew, s.Y)
	writeLE(ew, s.Z)
	writeLE(ew, s.M)
}

// remainingAfter returns how many bytes of the declared record payload are
// still unread, given how many the errReader has consumed so far.
func remainingAfter(remaining int64, er *errReader) int64 {
	return remaining - er.bytesRead
}

// ---- MultiPoint family ----

// MultiPoint is an unordered set of points sharing one record.
type MultiPoint struct {
	Box       Box
	NumPoints int32
	Points    []Point
}

func (s *MultiPoint) ShapeType() ShapeType { return MULTIPOINT }
func (s *MultiPoint) BBox() Box            { return s.Box }

func (s *MultiPoint) read(er *errReader, _ int64) {
	s.Box = readBBox(er)
	readLE(er, &s.NumPoints)
	s.Points = make([]Point, s.NumPoints)
	readLE(er, &s.Points)
}

func (s *MultiPoint) write(ew *errWriter) {
	writeLE(ew, s.Box)
	writeLE(ew, s.NumPoints)
	writeLE(ew, s.Points)
}

// NewMultiPoint builds a MultiPoint from points, computing its bounding box.
func NewMultiPoint(points []Point) *MultiPoint {
	mp := &MultiPoint{NumPoints: int32(len(points)), Points: points}
	if len(points) > 0 {
		mp.Box = BBoxFromPoints(points)
	}
	return mp
}

// MultiPointM is a MultiPoint with one measure per point.
type MultiPointM struct {
	Box       Box
	NumPoints int32
	Points    []Point
	MRange    [2]float64
	MArray    []float64
}

func (s *MultiPointM) ShapeType() ShapeType { return MULTIPOINTM }
func (s *MultiPointM) BBox() Box            { return s.Box }

func (s *MultiPointM) read(er *errReader, remaining int64) {
	s.Box = readBBox(er)
	readLE(er, &s.NumPoints)
	s.Points = make([]Point, s.NumPoints)
	readLE(er, &s.Points)
	if remainingAfter(remaining, er) >= 16+8*int64(s.NumPoints) {
		readLE(er, &s.MRange)
		s.MArray = make([]float64, s.NumPoints)
		readLE(er, &s.MArray)
	} else {
		s.MArray = fillNoData(int(s.NumPoints))
		s.MRange = [2]float64{NoDataValue, NoDataValue}
	}
}

func (s *MultiPointM) write(ew *errWriter) {
	writeLE(ew, s.Box)
	writeLE(ew, s.NumPoints)
	writeLE(ew, s.Points)
	writeLE(ew, s.MRange)
	writeLE(ew, s.MArray)
}

// MultiPointZ is a MultiPoint with Z and (optional) M values per point.
type MultiPointZ struct {
	Box       Box
	NumPoints int32
	Points    []Point
	ZRange    [2]float64
	ZArray    []float64
	MRange    [2]float64
	MArray    []float64
}

func (s *MultiPointZ) ShapeType() ShapeType { return MULTIPOINTZ }
func (s *MultiPointZ) BBox() Box            { return s.Box }

func (s *MultiPointZ) read(er *errReader, remaining int64) {
	s.Box = readBBox(er)
	readLE(er, &s.NumPoints)
	s.Points = make([]Point, s.NumPoints)
	readLE(er, &s.Points)
	readLE(er, &s.ZRange)
	s.ZArray = make([]float64, s.NumPoints)
	readLE(er, &s.ZArray)
	if remainingAfter(remaining, er) >= 16+8*int64(s.NumPoints) {
		readLE(er, &s.MRange)
		s.MArray = make([]float64, s.NumPoints)
		readLE(er, &s.MArray)
	} else {
		s.MArray = fillNoData(int(s.NumPoints))
		s.MRange = [2]float64{NoDataValue, NoDataValue}
	}
}

func (s *MultiPointZ) write(ew *errWriter) {
	writeLE(ew, s.Box)
	writeLE(ew, s.NumPoints)
	writeLE(ew, s.Points)
	writeLE(ew, s.ZRange)
	writeLE(ew, s.ZArray)
	writeLE(ew, s.MRange)
	writeLE(ew, s.MArray)
}

func fillNoData(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = NoDataValue
	}
	return out
}

// ---- PolyLine family ----

// PolyLine is an ordered collection of one or more parts (open or closed
// vertex chains), sharing one record.
type PolyLine struct {
	Box       Box
	NumParts  int32
	NumPoints int32
	Parts     []int32
	Points    []Point
}

func (s *PolyLine) ShapeType() ShapeType { return POLYLINE }
func (s *PolyLine) BBox() Box            { return s.Box }

func (s *PolyLine) read(er *errReader, _ int64) {
	s.Box = readBBox(er)
	readLE(er, &s.NumParts)
	readLE(er, &s.NumPoints)
	s.Parts = make([]int32, s.NumParts)
	readLE(er, &s.Parts)
	s.Points = make([]Point, s.NumPoints)
	readLE(er, &s.Points)
}

func (s *PolyLine) write(ew *errWriter) {
	writeLE(ew, s.Box)
	writeLE(ew, s.NumParts)
	writeLE(ew, s.NumPoints)
	writeLE(ew, s.Parts)
	writeLE(ew, s.Points)
}

// NewPolyLine builds a PolyLine from parts (each a slice of points),
// computing NumParts/NumPoints/Parts/Points and the overall bounding box.
func NewPolyLine(parts [][]Point) *PolyLine {
	pl := &PolyLine{NumParts: int32(len(parts))}
	offset := int32(0)
	for _, part := range parts {
		pl.Parts = append(pl.Parts, offset)
		pl.Points = append(pl.Points, part...)
		offset += int32(len(part))
	}
	pl.NumPoints = offset
	if len(pl.Points) > 0 {
		pl.Box = BBoxFromPoints(pl.Points)
	}
	return pl
}

// PolyLineM is a PolyLine with one measure per point.
type PolyLineM struct {
	Box       Box
	NumParts  int32
	NumPoints int32
	Parts     []int32
	Points    []Point
	MRange    [2]float64
	MArray    []float64
}

func (s *PolyLineM) ShapeType() ShapeType { return POLYLINEM }
func (s *PolyLineM) BBox() Box            { return s.Box }

func (s *PolyLineM) read(er *errReader, remaining int64) {
	s.Box = readBBox(er)
	readLE(er, &s.NumParts)
	readLE(er, &s.NumPoints)
	s.Parts = make([]int32, s.NumParts)
	readLE(er, &s.Parts)
	s.Points = make([]Point, s.NumPoints)
	readLE(er, &s.Points)
	if remainingAfter(remaining, er) >= 16+8*int64(s.NumPoints) {
		readLE(er, &s.MRange)
		s.MArray = make([]float64, s.NumPoints)
		readLE(er, &s.MArray)
	} else {
		s.MArray = fillNoData(int(s.NumPoints))
		s.MRange = [2]float64{NoDataValue, NoDataValue}
	}
}

func (s *PolyLineM) write(ew *errWriter) {
	writeLE(ew, s.Box)
	writeLE(ew, s.NumParts)
	writeLE(ew, s.NumPoints)
	writeLE(ew, s.Parts)
	writeLE(ew, s.Points)
	writeLE(ew, s.MRange)
	writeLE(ew, s.MArray)
}

// PolyLineZ is a PolyLine with Z and (optional) M values per point.
type PolyLineZ struct {
	Box       Box
	NumParts  int32
	NumPoints int32
	Parts     []int32
	Points    []Point
	ZRange    [2]float64
	ZArray    []float64
	MRange    [2]float64
	MArray    []float64
}

func (s *PolyLineZ) ShapeType() ShapeType { return POLYLINEZ }
func (s *PolyLineZ) BBox() Box            { return s.Box }

func (s *PolyLineZ) read(er *errReader, remaining int64) {
	s.Box = readBBox(er)
	readLE(er, &s.NumParts)
	readLE(er, &s.NumPoints)
	s.Parts = make([]int32, s.NumParts)
	readLE(er, &s.Parts)
	s.Points = make([]Point, s.NumPoints)
	readLE(er, &s.Points)
	readLE(er, &s.ZRange)
	s.ZArray = make([]float64, s.NumPoints)
	readLE(er, &s.ZArray)
	if remainingAfter(remaining, er) >= 16+8*int64(s.NumPoints) {
		readLE(er, &s.MRange)
		s.MArray = make([]float64, s.NumPoints)
		readLE(er, &s.MArray)
	} else {
		s.MArray = fillNoData(int(s.NumPoints))
		s.MRange = [2]float64{NoDataValue, NoDataValue}
	}
}

func (s *PolyLineZ) write(ew *errWriter) {
	writeLE(ew, s.Box)
	writeLE(ew, s.NumParts)
	writeLE(ew, s.NumPoints)
	writeLE(ew, s.Parts)
	writeLE(ew, s.Points)
	writeLE(ew, s.ZRange)
	writeLE(ew, s.ZArray)
	writeLE(ew, s.MRange)
	writeLE(ew, s.MArray)
}

// ---- Polygon family ----
//
// A Polygon has the exact on-disk layout of a PolyLine (ESRI defines it
// that way); we follow the teacher's idiom of a distinct named type over
// the same fields so the two are not interchangeable at the type level,
// converting through the underlying PolyLine type for the shared codec.

type Polygon PolyLine

func (s *Polygon) ShapeType() ShapeType        { return POLYGON }
func (s *Polygon) BBox() Box                   { return s.Box }
func (s *Polygon) read(er *errReader, r int64)  { (*PolyLine)(s).read(er, r) }
func (s *Polygon) write(ew *errWriter)          { (*PolyLine)(s).write(ew) }

// NewPolygon builds a Polygon from rings (closed or open; callers that
// need auto-closing should go through Writer.Polygon instead).
func NewPolygon(rings [][]Point) *Polygon {
	return (*Polygon)(NewPolyLine(rings))
}

type PolygonZ PolyLineZ

func (s *PolygonZ) ShapeType() ShapeType       { return POLYGONZ }
func (s *PolygonZ) BBox() Box                  { return s.Box }
func (s *PolygonZ) read(er *errReader, r int64) { (*PolyLineZ)(s).read(er, r) }
func (s *PolygonZ) write(ew *errWriter)         { (*PolyLineZ)(s).write(ew) }

type PolygonM PolyLineM

func (s *PolygonM) ShapeType() ShapeType       { return POLYGONM }
func (s *PolygonM) BBox() Box                  { return s.Box }
func (s *PolygonM) read(er *errReader, r int64) { (*PolyLineM)(s).read(er, r) }
func (s *PolygonM) write(ew *errWriter)         { (*PolyLineM)(s).write(ew) }

// ---- MultiPatch ----

// MultiPatch represents a 3D surface built from triangle strips/fans and
// ring-typed patches.
type MultiPatch struct {
	Box       Box
	NumParts  int32
	NumPoints int32
	Parts     []int32
	PartTypes []PartType
	Points    []Point
	ZRange    [2]float64
	ZArray    []float64
	MRange    [2]float64
	MArray    []float64
}

func (s *MultiPatch) ShapeType() ShapeType { return MULTIPATCH }
func (s *MultiPatch) BBox() Box            { return s.Box }

func (s *MultiPatch) read(er *errReader, remaining int64) {
	s.Box = readBBox(er)
	readLE(er, &s.NumParts)
	readLE(er, &s.NumPoints)
	s.Parts = make([]int32, s.NumParts)
	readLE(er, &s.Parts)
	s.PartTypes = make([]PartType, s.NumParts)
	readLE(er, &s.PartTypes)
	s.Points = make([]Point, s.NumPoints)
	readLE(er, &s.Points)
	readLE(er, &s.ZRange)
	s.ZArray = make([]float64, s.NumPoints)
	readLE(er, &s.ZArray)
	if remainingAfter(remaining, er) >= 16+8*int64(s.NumPoints) {
		readLE(er, &s.MRange)
		s.MArray = make([]float64, s.NumPoints)
		readLE(er, &s.MArray)
	} else {
		s.MArray = fillNoData(int(s.NumPoints))
		s.MRange = [2]float64{NoDataValue, NoDataValue}
	}
}

func (s *MultiPatch) write(ew *errWriter) {
	writeLE(ew, s.Box)
	writeLE(ew, s.NumParts)
	writeLE(ew, s.NumPoints)
	writeLE(ew, s.Parts)
	writeLE(ew, s.PartTypes)
	writeLE(ew, s.Points)
	writeLE(ew, s.ZRange)
	writeLE(ew, s.ZArray)
	writeLE(ew, s.MRange)
	writeLE(ew, s.MArray)
}

// partSpan returns the half-open [start, end) point range of part i among
// numParts parts spanning numPoints points total, per spec §3's "last part
// ending at len(points)" rule.
func partSpan(parts []int32, i int, numPoints int) (int, int) {
	start := int(parts[i])
	if i+1 < len(parts) {
		return start, int(parts[i+1])
	}
	return start, numPoints
}

// signedArea computes the signed area of a closed ring using the shoelace
// formula. Negative indicates clockwise winding in XY, which
// spec §3 defines as an outer ring; positive indicates counter-clockwise
// (a hole).
func signedArea(points []Point) float64 {
	if len(points) < 3 {
		return 0
	}
	sum := 0.0
	for i := 0; i < len(points); i++ {
		j := (i + 1) % len(points)
		sum += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	return sum / 2
}

// isClockwise reports whether a ring is wound clockwise in XY (an outer
// ring per spec §3).
func isClockwise(points []Point) bool {
	return signedArea(points) < 0
}

// shapeZMRange reports the per-record Z/M extent carried by shape, used by
// the writer to roll up the file-level Z/M range declared in the header
// (spec.md §4.2/§4.7). hasZ/hasM are false for shape types that carry no
// such coordinate at all.
func shapeZMRange(shape Shape) (zRange [2]float64, hasZ bool, mRange [2]float64, hasM bool) {
	switch v := shape.(type) {
	case *PointZ:
		return [2]float64{v.Z, v.Z}, true, [2]float64{v.M, v.M}, true
	case *MultiPointZ:
		return v.ZRange, true, v.MRange, true
	case *PolyLineZ:
		return v.ZRange, true, v.MRange, true
	case *PolygonZ:
		pl := (*PolyLineZ)(v)
		return pl.ZRange, true, pl.MRange, true
	case *MultiPatch:
		return v.ZRange, true, v.MRange, true
	case *PointM:
		return [2]float64{}, false, [2]float64{v.M, v.M}, true
	case *MultiPointM:
		return [2]float64{}, false, v.MRange, true
	case *PolyLineM:
		return [2]float64{}, false, v.MRange, true
	case *PolygonM:
		pl := (*PolyLineM)(v)
		return [2]float64{}, false, pl.MRange, true
	default:
		return [2]float64{}, false, [2]float64{}, false
	}
}

func boxContains(outer, inner Box) bool {
	return outer.MinX <= inner.MinX && outer.MinY <= inner.MinY &&
		outer.MaxX >= inner.MaxX && outer.MaxY >= inner.MaxY
}
