package shp

import (
	"bytes"
	"io"

	"golang.org/x/text/encoding"
)

// Writer streams a shapefile triplet to any subset of shp/shx/dbf byte
// sinks, finalizing headers on Close. Per spec.md §4.7, headers are
// written as placeholders up front and rewritten once the true file
// length/bbox/record count are known.
type Writer struct {
	shp ByteWriter
	shx ByteWriter
	dbf ByteWriter

	hasShp, hasShx, hasDbf bool

	shapeType ShapeType
	shpPos    int64 // bytes written to shp so far, including its header
	shpNum    int32 // shapes written

	bbox    Box
	bboxSet bool
	zRange  [2]float64
	zSet    bool
	mRange  [2]float64
	mSet    bool

	dbfFields       []Field
	dbfNum          int32 // rows written
	dbfStarted      bool  // true once the dbf header has been written (fields frozen)
	dbfRecordLength int16
	dbfHeaderLength int16

	config *WriterConfig
	enc    encoding.Encoding
}

// Create opens a Writer for shapeType over shp/shx/dbf, any of which may
// be nil to omit that output. Headers for shp/shx are written immediately
// as placeholders.
func Create(shp, shx, dbf ByteWriter, shapeType ShapeType, opts ...WriterOption) (*Writer, error) {
	cfg := DefaultWriterConfig()
	for _, o := range opts {
		o(cfg)
	}
	enc, err := resolveEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}
	w := &Writer{
		shp: shp, shx: shx, dbf: dbf,
		hasShp: shp != nil, hasShx: shx != nil, hasDbf: dbf != nil,
		shapeType: shapeType,
		config:    cfg,
		enc:       enc,
	}
	if w.hasShp {
		ew := &errWriter{Writer: shp}
		writeFileHeader(ew, FileHeader{ShapeType: shapeType})
		if ew.e != nil {
			return nil, NewShapeError(ErrIOError, "writing .shp header placeholder", ew.e)
		}
		w.shpPos = shpHeaderLen
	}
	if w.hasShx {
		ew := &errWriter{Writer: shx}
		writeFileHeader(ew, FileHeader{ShapeType: shapeType})
		if ew.e != nil {
			return nil, NewShapeError(ErrIOError, "writing .shx header placeholder", ew.e)
		}
	}
	return w, nil
}

// Field declares one dbf column. Fields may not be added once any record
// has been written (spec.md §4.4/§4.7).
func (w *Writer) Field(f Field) error {
	if w.dbfStarted {
		return ErrFieldsAfterRecord
	}
	if len(w.dbfFields) >= maxFields {
		return ErrTooManyFields
	}
	w.dbfFields = append(w.dbfFields, f)
	return nil
}

// startDbf freezes the field schema and writes the dbf header placeholder.
func (w *Writer) startDbf() error {
	if w.dbfStarted || !w.hasDbf {
		return nil
	}
	w.dbfStarted = true
	w.dbfRecordLength = calcRecordLength(w.dbfFields)
	w.dbfHeaderLength = calcHeaderLength(w.dbfFields)
	ew := &errWriter{Writer: w.dbf}
	writeDbfTableHeader(ew, dbfTableHeader{
		NumRecords:   0,
		HeaderLength: w.dbfHeaderLength,
		RecordLength: w.dbfRecordLength,
		Fields:       w.dbfFields,
	})
	if ew.e != nil {
		return NewShapeError(ErrIOError, "writing .dbf header placeholder", ew.e)
	}
	return nil
}

// WriteShape appends one geometry record to shp/shx, returning its new
// oid (0-based, per spec.md §3). The shape's type must match the file's
// declared shape type, or be Null (Null is valid in any shapefile, per
// spec.md §4.2).
func (w *Writer) WriteShape(shape Shape) (int32, error) {
	if !w.hasShp {
		return 0, NewShapeError(ErrSchemaError, "no .shp stream opened", nil)
	}
	if shape.ShapeType() != NULL && shape.ShapeType() != w.shapeType {
		return 0, ErrShapeTypeMismatch
	}
	var body bytes.Buffer
	ew := &errWriter{Writer: &body}
	writeLE(ew, int32(shape.ShapeType()))
	shape.write(ew)
	if ew.e != nil {
		return 0, NewShapeError(ErrIOError, "encoding shape", ew.e)
	}
	contentWords := int32(body.Len() / 2)

	fileEw := &errWriter{Writer: w.shp}
	writeRecordHeader(fileEw, recordHeader{RecordNumber: w.shpNum + 1, ContentLength: contentWords})
	if fileEw.e != nil {
		return 0, NewShapeError(ErrIOError, "writing .shp record header", fileEw.e)
	}
	if _, err := w.shp.Write(body.Bytes()); err != nil {
		return 0, NewShapeError(ErrIOError, "writing .shp record", err)
	}

	wordOffset := int32(w.shpPos / 2)
	if w.hasShx {
		shxEw := &errWriter{Writer: w.shx}
		writeShxEntry(shxEw, shxEntry{Offset: wordOffset, ContentLength: contentWords})
		if shxEw.e != nil {
			return 0, NewShapeError(ErrIOError, "writing .shx entry", shxEw.e)
		}
	}
	w.shpPos += 8 + int64(contentWords)*2
	oid := w.shpNum
	w.shpNum++

	if shape.ShapeType() != NULL {
		box := shape.BBox()
		if !w.bboxSet {
			w.bbox, w.bboxSet = box, true
		} else {
			w.bbox = w.bbox.Extend(box)
		}
		z, hasZ, m, hasM := shapeZMRange(shape)
		if hasZ {
			if !w.zSet {
				w.zRange, w.zSet = z, true
			} else {
				w.zRange = extendRange(w.zRange, z)
			}
		}
		if hasM {
			if !w.mSet {
				w.mRange, w.mSet = m, true
			} else {
				w.mRange = extendRange(w.mRange, m)
			}
		}
	}

	if w.config.AutoBalance {
		if err := w.balanceDbf(); err != nil {
			return 0, err
		}
	}
	return oid, nil
}

// extendRange grows a so that it also contains b, returning the result.
func extendRange(a, b [2]float64) [2]float64 {
	if b[0] < a[0] {
		a[0] = b[0]
	}
	if b[1] > a[1] {
		a[1] = b[1]
	}
	return a
}

// WriteRecord appends one dbf row built from values, which must align
// positionally with the fields declared via Field.
func (w *Writer) WriteRecord(values []Value) (int32, error) {
	if !w.hasDbf {
		return 0, NewShapeError(ErrSchemaError, "no .dbf stream opened", nil)
	}
	if err := w.startDbf(); err != nil {
		return 0, err
	}
	if len(values) != len(w.dbfFields) {
		return 0, NewShapeError(ErrSchemaError, "record has wrong number of values for the declared fields", nil)
	}
	row := make([]byte, 0, w.dbfRecordLength)
	row = append(row, dbfDeletionFlagNotDeleted)
	for i, f := range w.dbfFields {
		if s, ok := values[i].Text(); ok && (f.Kind == Character || f.Kind == Memo) &&
			len(s) > int(f.Length) && w.config.Verbose {
			w.config.Logger.Printf("dbf: field %q: value truncated to %d bytes", f.Name, f.Length)
		}
		cell, err := formatValue(f, values[i])
		if err != nil {
			return 0, err
		}
		if f.Kind == Character || f.Kind == Memo {
			encoded, err := encodeString(w.enc, w.config.EncodingErrors, cell)
			if err != nil {
				return 0, err
			}
			if len(encoded) > int(f.Length) {
				encoded = encoded[:f.Length]
			}
			padded := make([]byte, f.Length)
			copy(padded, encoded)
			for i := len(encoded); i < int(f.Length); i++ {
				padded[i] = ' '
			}
			row = append(row, padded...)
		} else {
			row = append(row, []byte(cell)...)
		}
	}
	if _, err := w.dbf.Write(row); err != nil {
		return 0, NewShapeError(ErrIOError, "writing .dbf row", err)
	}
	oid := w.dbfNum
	w.dbfNum++

	if w.config.AutoBalance {
		if err := w.balanceShp(); err != nil {
			return 0, err
		}
	}
	return oid, nil
}

// WriteShapeRecord writes a shape and its attribute row as one atomic
// append, keeping shpNum and dbfNum equal without relying on auto-balance.
func (w *Writer) WriteShapeRecord(shape Shape, values []Value) (int32, error) {
	oid, err := w.WriteShape(shape)
	if err != nil {
		return 0, err
	}
	if w.hasDbf {
		if _, err := w.WriteRecord(values); err != nil {
			return 0, err
		}
	}
	return oid, nil
}

// balanceDbf emits blank dbf rows until dbfNum catches up to shpNum.
func (w *Writer) balanceDbf() error {
	if !w.hasDbf {
		return nil
	}
	if err := w.startDbf(); err != nil {
		return err
	}
	for w.dbfNum < w.shpNum {
		blank := make([]Value, len(w.dbfFields))
		for i := range blank {
			blank[i] = NullValue()
		}
		if _, err := w.WriteRecord(blank); err != nil {
			return err
		}
	}
	return nil
}

// balanceShp emits Null shapes until shpNum catches up to dbfNum.
func (w *Writer) balanceShp() error {
	if !w.hasShp {
		return nil
	}
	for w.shpNum < w.dbfNum {
		if _, err := w.WriteShape(&Null{}); err != nil {
			return err
		}
	}
	return nil
}

// Balance manually catches up whichever of shp/dbf lags the other. Use it
// when auto-balance is disabled (WithAutoBalance(false)).
func (w *Writer) Balance() error {
	if err := w.balanceDbf(); err != nil {
		return err
	}
	return w.balanceShp()
}

// BBox returns the accumulated file-level bounding box.
func (w *Writer) BBox() Box { return w.bbox }

// Close finalizes every stream that was opened: rewriting the shp/shx
// headers with the true file length and bounding box, and the dbf header
// with the true record count plus its 0x1A trailer.
func (w *Writer) Close() error {
	if w.config.AutoBalance {
		if err := w.Balance(); err != nil {
			return err
		}
	}
	if w.hasShp {
		if err := w.finalizeShpLike(w.shp, w.shpPos); err != nil {
			return err
		}
	}
	if w.hasShx {
		shxLen := shpHeaderLen + int64(w.shpNum)*shxEntryLen
		if err := w.finalizeShpLike(w.shx, shxLen); err != nil {
			return err
		}
	}
	if w.hasDbf {
		if err := w.startDbf(); err != nil {
			return err
		}
		if _, err := w.dbf.Seek(dbfOffsetNumRecords, io.SeekStart); err != nil {
			return NewShapeError(ErrIOError, "seeking .dbf header", err)
		}
		ew := &errWriter{Writer: w.dbf}
		writeLE(ew, w.dbfNum)
		if ew.e != nil {
			return NewShapeError(ErrIOError, "patching .dbf record count", ew.e)
		}
		if _, err := w.dbf.Seek(0, io.SeekEnd); err != nil {
			return NewShapeError(ErrIOError, "seeking .dbf end", err)
		}
		if _, err := w.dbf.Write([]byte{dbfFileTerminator}); err != nil {
			return NewShapeError(ErrIOError, "writing .dbf trailer", err)
		}
	}
	var first error
	for _, c := range []ByteWriter{w.shp, w.shx, w.dbf} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// finalizeShpLike rewrites the 100-byte shp/shx header with the true
// total length (in words) and the accumulated bounding box.
func (w *Writer) finalizeShpLike(s ByteWriter, totalBytes int64) error {
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return NewShapeError(ErrIOError, "seeking header", err)
	}
	ew := &errWriter{Writer: s}
	writeFileHeader(ew, FileHeader{
		FileLength: int32(totalBytes / 2),
		ShapeType:  w.shapeType,
		Bounds:     w.bbox,
		ZRange:     w.zRange,
		MRange:     w.mRange,
	})
	if ew.e != nil {
		return NewShapeError(ErrIOError, "patching header", ew.e)
	}
	return nil
}

// ---- per-shape-type convenience constructors ----

// Point appends a POINT shape.
func (w *Writer) Point(x, y float64) (int32, error) {
	return w.WriteShape(&Point{X: x, Y: y})
}

// MultiPoint appends a MULTIPOINT shape.
func (w *Writer) MultiPoint(points []Point) (int32, error) {
	return w.WriteShape(NewMultiPoint(points))
}

// PolyLine appends a POLYLINE shape built from one or more parts.
func (w *Writer) PolyLine(parts [][]Point) (int32, error) {
	return w.WriteShape(NewPolyLine(parts))
}

// Polygon appends a POLYGON shape built from one or more rings. Each ring
// is closed automatically if not already, and rejected with
// ErrUnclosablePolygon if it has fewer than 3 distinct points (spec.md
// §4.2/§8).
func (w *Writer) Polygon(rings [][]Point) (int32, error) {
	closed := make([][]Point, len(rings))
	for i, ring := range rings {
		c, err := closeRing(ring)
		if err != nil {
			return 0, err
		}
		closed[i] = c
	}
	return w.WriteShape(NewPolygon(closed))
}

// closeRing returns ring with its first point appended if it isn't
// already closed, and fails if fewer than 3 distinct points remain.
func closeRing(ring []Point) ([]Point, error) {
	if len(ring) == 0 {
		return nil, ErrUnclosablePolygon
	}
	distinct := distinctPointCount(ring)
	if distinct < 3 {
		return nil, ErrUnclosablePolygon
	}
	first, last := ring[0], ring[len(ring)-1]
	if first.X == last.X && first.Y == last.Y {
		return ring, nil
	}
	out := make([]Point, len(ring)+1)
	copy(out, ring)
	out[len(ring)] = first
	return out, nil
}

func distinctPointCount(points []Point) int {
	seen := make(map[Point]struct{}, len(points))
	for _, p := range points {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// MultiPatchShape appends a MULTIPATCH shape.
func (w *Writer) MultiPatchShape(parts [][]Point, partTypes []PartType) (int32, error) {
	mp := &MultiPatch{NumParts: int32(len(parts))}
	offset := int32(0)
	for _, part := range parts {
		mp.Parts = append(mp.Parts, offset)
		mp.Points = append(mp.Points, part...)
		offset += int32(len(part))
	}
	mp.NumPoints = offset
	mp.PartTypes = partTypes
	if len(mp.Points) > 0 {
		mp.Box = BBoxFromPoints(mp.Points)
	}
	return w.WriteShape(mp)
}

// PointM appends a POINTM shape.
func (w *Writer) PointM(x, y, m float64) (int32, error) {
	return w.WriteShape(&PointM{X: x, Y: y, M: m})
}

// PointZ appends a POINTZ shape.
func (w *Writer) PointZ(x, y, z, m float64) (int32, error) {
	return w.WriteShape(&PointZ{X: x, Y: y, Z: z, M: m})
}

// MultiPointM appends a MULTIPOINTM shape; m must align positionally with
// points.
func (w *Writer) MultiPointM(points []Point, m []float64) (int32, error) {
	mp := &MultiPointM{NumPoints: int32(len(points)), Points: points, MArray: m, MRange: rangeOf(m)}
	if len(points) > 0 {
		mp.Box = BBoxFromPoints(points)
	}
	return w.WriteShape(mp)
}

// MultiPointZ appends a MULTIPOINTZ shape; z and m must each align
// positionally with points.
func (w *Writer) MultiPointZ(points []Point, z, m []float64) (int32, error) {
	mp := &MultiPointZ{
		NumPoints: int32(len(points)), Points: points,
		ZArray: z, ZRange: rangeOf(z),
		MArray: m, MRange: rangeOf(m),
	}
	if len(points) > 0 {
		mp.Box = BBoxFromPoints(points)
	}
	return w.WriteShape(mp)
}

// PolyLineM appends a POLYLINEM shape built from one or more parts; m must
// align positionally with the flattened point list.
func (w *Writer) PolyLineM(parts [][]Point, m []float64) (int32, error) {
	pl := NewPolyLine(parts)
	return w.WriteShape(&PolyLineM{
		Box: pl.Box, NumParts: pl.NumParts, NumPoints: pl.NumPoints,
		Parts: pl.Parts, Points: pl.Points,
		MArray: m, MRange: rangeOf(m),
	})
}

// PolyLineZ appends a POLYLINEZ shape built from one or more parts; z and m
// must each align positionally with the flattened point list.
func (w *Writer) PolyLineZ(parts [][]Point, z, m []float64) (int32, error) {
	pl := NewPolyLine(parts)
	return w.WriteShape(&PolyLineZ{
		Box: pl.Box, NumParts: pl.NumParts, NumPoints: pl.NumPoints,
		Parts: pl.Parts, Points: pl.Points,
		ZArray: z, ZRange: rangeOf(z),
		MArray: m, MRange: rangeOf(m),
	})
}

// PolygonM appends a POLYGONM shape built from one or more rings; unlike
// Polygon, rings must already be closed (matching NewPolygon's contract),
// since m must align positionally with the flattened, already-closed point
// list.
func (w *Writer) PolygonM(rings [][]Point, m []float64) (int32, error) {
	pl := NewPolyLine(rings)
	return w.WriteShape(&PolygonM{
		Box: pl.Box, NumParts: pl.NumParts, NumPoints: pl.NumPoints,
		Parts: pl.Parts, Points: pl.Points,
		MArray: m, MRange: rangeOf(m),
	})
}

// PolygonZ appends a POLYGONZ shape built from one or more rings; rings
// must already be closed, and z/m must each align positionally with the
// flattened point list.
func (w *Writer) PolygonZ(rings [][]Point, z, m []float64) (int32, error) {
	pl := NewPolyLine(rings)
	return w.WriteShape(&PolygonZ{
		Box: pl.Box, NumParts: pl.NumParts, NumPoints: pl.NumPoints,
		Parts: pl.Parts, Points: pl.Points,
		ZArray: z, ZRange: rangeOf(z),
		MArray: m, MRange: rangeOf(m),
	})
}
