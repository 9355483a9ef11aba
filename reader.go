package shp

import (
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
)

// Reader provides lazy, random-access reading of a shapefile triplet. Any
// of shp/shx/dbf may be absent; Reader degrades gracefully per spec.md
// §4.6 (e.g. a dbf-only Reader still answers Record/Fields/Len).
type Reader struct {
	shp ByteReader
	shx ByteReader
	dbf ByteReader

	hasShp, hasShx, hasDbf bool

	shpHeader FileHeader

	shxEntries []shxEntry // populated eagerly when shx is present

	offsetCache  []shxEntry // populated lazily when shx is absent
	cachePos     int64      // next unscanned byte offset in shp
	cacheScanned bool       // true once offsetCache covers the whole file

	dbfHeader dbfTableHeader

	enc     encoding.Encoding
	encName string

	config *ReaderConfig
}

// Open opens the shapefile triplet named by path (the .shp/.shx/.dbf/.cpg
// extension is inferred from whatever base path is given, case-preserving
// the rest). Any sibling file that doesn't exist is simply omitted.
func Open(path string, opts ...ReaderOption) (*Reader, error) {
	base := strings.TrimSuffix(path, extOf(path))

	var shp, shx, dbf ByteReader
	var cpg io.Reader

	if f, err := os.Open(base + ".shp"); err == nil {
		shp = f
	}
	if f, err := os.Open(base + ".shx"); err == nil {
		shx = f
	}
	if f, err := os.Open(base + ".dbf"); err == nil {
		dbf = f
	}
	if f, err := os.Open(base + ".cpg"); err == nil {
		defer f.Close()
		cpg = f
	}
	if shp == nil && shx == nil && dbf == nil {
		return nil, NewShapeError(ErrIOError, "no .shp, .shx, or .dbf found for "+path, nil)
	}
	return OpenStreams(shp, shx, dbf, cpg, opts...)
}

func extOf(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i:]
	}
	return ""
}

// OpenStreams builds a Reader directly from byte streams, any of which may
// be nil. cpg, if non-nil, is read once and its codepage name replaces the
// default encoding; an encoding set through WithEncoding is kept instead
// and cpg is then not read (spec.md §4.5).
func OpenStreams(shp, shx, dbf ByteReader, cpg io.Reader, opts ...ReaderOption) (*Reader, error) {
	cfg := DefaultReaderConfig()
	for _, o := range opts {
		o(cfg)
	}
	if cpg != nil && !cfg.EncodingExplicit {
		name, err := sniffCPG(cpg)
		if err != nil {
			return nil, err
		}
		if name != "" {
			cfg.Encoding = name
		}
	}
	enc, err := resolveEncoding(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		shp:     shp,
		shx:     shx,
		dbf:     dbf,
		config:  cfg,
		enc:     enc,
		encName: cfg.Encoding,
	}
	r.hasShp = shp != nil
	r.hasShx = shx != nil
	r.hasDbf = dbf != nil

	if r.hasShp {
		er := &errReader{Reader: shp}
		h, err := readFileHeader(er)
		if err != nil {
			return nil, err
		}
		r.shpHeader = h
		r.cachePos = shpHeaderLen
	}
	if r.hasShx {
		er := &errReader{Reader: shx}
		if _, err := readFileHeader(er); err != nil {
			return nil, err
		}
		for {
			e := readShxEntry(er)
			if er.e != nil {
				break
			}
			r.shxEntries = append(r.shxEntries, e)
		}
	}
	if r.hasDbf {
		er := &errReader{Reader: dbf}
		h, err := readDbfTableHeader(er)
		if err != nil {
			return nil, err
		}
		r.dbfHeader = h
	}
	return r, nil
}

// Close closes every underlying stream that was provided.
func (r *Reader) Close() error {
	var first error
	for _, c := range []ByteReader{r.shp, r.shx, r.dbf} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ShapeType is the shape type declared in the .shp header.
func (r *Reader) ShapeType() ShapeType { return r.shpHeader.ShapeType }

// BBox is the file-level XY bounding box declared in the .shp header.
func (r *Reader) BBox() Box { return r.shpHeader.Bounds }

// ZRange is the file-level Z range declared in the .shp header.
func (r *Reader) ZRange() [2]float64 { return r.shpHeader.ZRange }

// MRange is the file-level M range declared in the .shp header.
func (r *Reader) MRange() [2]float64 { return r.shpHeader.MRange }

// Fields returns the dbf schema, or nil if no dbf was opened.
func (r *Reader) Fields() []Field {
	return r.dbfHeader.Fields
}

// Encoding returns the codepage name in effect: the WithEncoding value if
// one was given, else the .cpg sidecar's name if any, else the default.
func (r *Reader) Encoding() string { return r.encName }

// Len reports the number of records. With a .shx present this is O(1);
// with only a .dbf present it is the declared record count; with only a
// bare .shp it requires (and triggers) a one-time full scan, cached for
// subsequent calls.
func (r *Reader) Len() (int, error) {
	switch {
	case r.hasShx:
		return len(r.shxEntries), nil
	case r.hasShp:
		if err := r.scanAll(); err != nil {
			return 0, err
		}
		return len(r.offsetCache), nil
	case r.hasDbf:
		return int(r.dbfHeader.NumRecords), nil
	default:
		return 0, nil
	}
}

// entryAt returns the shx-equivalent entry for oid (0-based), consulting
// the real .shx if present, or the lazily built scan cache otherwise.
func (r *Reader) entryAt(oid int32) (shxEntry, error) {
	if oid < 0 {
		return shxEntry{}, NewShapeError(ErrOutOfRange, "oid must be >= 0", nil)
	}
	if r.hasShx {
		idx := int(oid)
		if idx >= len(r.shxEntries) {
			return shxEntry{}, NewShapeError(ErrOutOfRange, "oid beyond end of .shx", nil)
		}
		return r.shxEntries[idx], nil
	}
	if err := r.scanUpTo(oid); err != nil {
		return shxEntry{}, err
	}
	idx := int(oid)
	if idx >= len(r.offsetCache) {
		return shxEntry{}, NewShapeError(ErrOutOfRange, "oid beyond end of .shp", nil)
	}
	return r.offsetCache[idx], nil
}

// scanUpTo extends offsetCache, by linear scan of the .shp stream, until
// it covers oid (inclusive) or the file ends.
func (r *Reader) scanUpTo(oid int32) error {
	for !r.cacheScanned && int32(len(r.offsetCache)) <= oid {
		if err := r.scanOne(); err != nil {
			return err
		}
	}
	return nil
}

// scanAll extends offsetCache to cover the entire .shp file.
func (r *Reader) scanAll() error {
	for !r.cacheScanned {
		if err := r.scanOne(); err != nil {
			return err
		}
	}
	return nil
}

// scanOne decodes the record header at r.cachePos, appends a cache entry,
// and advances r.cachePos past the record body. Reaching EOF sets
// cacheScanned and is not an error.
func (r *Reader) scanOne() error {
	if _, err := r.shp.Seek(r.cachePos, io.SeekStart); err != nil {
		return NewShapeError(ErrIOError, "seeking .shp during scan", err)
	}
	er := &errReader{Reader: r.shp}
	var recordNumber int32
	readBE(er, &recordNumber)
	if er.e == io.EOF {
		r.cacheScanned = true
		return nil
	}
	var contentLength int32
	readBE(er, &contentLength)
	if er.e != nil {
		return NewShapeError(ErrMalformedFile, "truncated record header during scan", er.e)
	}
	r.offsetCache = append(r.offsetCache, shxEntry{
		Offset:        int32(r.cachePos / 2),
		ContentLength: contentLength,
	})
	r.cachePos += 8 + int64(contentLength)*2
	return nil
}

// Shape returns the decoded geometry for oid (0-based).
func (r *Reader) Shape(oid int32) (Shape, error) {
	if !r.hasShp {
		return nil, NewShapeError(ErrSchemaError, "no .shp stream opened", nil)
	}
	entry, err := r.entryAt(oid)
	if err != nil {
		return nil, err
	}
	byteOffset := int64(entry.Offset) * 2
	if _, err := r.shp.Seek(byteOffset, io.SeekStart); err != nil {
		return nil, NewShapeError(ErrIOError, "seeking .shp", err)
	}
	er := &errReader{Reader: r.shp}
	rh := readRecordHeader(er)
	if er.e != nil {
		return nil, NewShapeError(ErrMalformedFile, "reading record header", er.e)
	}
	var shapeTypeCode int32
	readLE(er, &shapeTypeCode)
	if er.e != nil {
		return nil, NewShapeError(ErrMalformedFile, "reading shape type", er.e)
	}
	shape, err := newShape(ShapeType(shapeTypeCode))
	if err != nil {
		if r.config.Verbose {
			r.config.Logger.Printf("shp: oid %d: %v; treating as Null", oid, err)
		}
		shape = &Null{}
	}
	remaining := int64(rh.ContentLength)*2 - 4
	er.bytesRead = 0 // remainingAfter counts from the start of the payload
	shape.read(er, remaining)
	if er.e != nil {
		return nil, NewShapeError(ErrMalformedFile, "reading shape body", er.e)
	}
	return shape, nil
}

// Record returns the decoded attribute row for oid (0-based).
func (r *Reader) Record(oid int32) (Record, error) {
	if !r.hasDbf {
		return Record{}, NewShapeError(ErrSchemaError, "no .dbf stream opened", nil)
	}
	if oid < 0 || oid >= r.dbfHeader.NumRecords {
		return Record{}, NewShapeError(ErrOutOfRange, "oid beyond end of .dbf", nil)
	}
	pos := int64(r.dbfHeader.HeaderLength) + int64(oid)*int64(r.dbfHeader.RecordLength)
	if _, err := r.dbf.Seek(pos, io.SeekStart); err != nil {
		return Record{}, NewShapeError(ErrIOError, "seeking .dbf", err)
	}
	row := make([]byte, r.dbfHeader.RecordLength)
	if _, err := io.ReadFull(r.dbf, row); err != nil {
		return Record{}, NewShapeError(ErrMalformedFile, "reading dbf row", err)
	}
	return r.decodeRow(oid, row)
}

func (r *Reader) decodeRow(oid int32, row []byte) (Record, error) {
	rec := Record{OID: oid, Fields: r.dbfHeader.Fields, Values: make([]Value, len(r.dbfHeader.Fields))}
	for i, f := range r.dbfHeader.Fields {
		start := dbfFieldStartByte(r.dbfHeader.Fields, i)
		raw := row[start : start+int(f.Length)]
		var cell string
		if f.Kind == Character || f.Kind == Memo {
			decoded, err := decodeBytes(r.enc, r.config.EncodingErrors, raw)
			if err != nil {
				return Record{}, err
			}
			cell = decoded
		} else {
			cell = string(raw)
		}
		v, err := parseValue(f, cell, r.config)
		if err != nil {
			return Record{}, err
		}
		rec.Values[i] = v
	}
	return rec, nil
}

// ShapeRecord returns both the geometry and the attribute row for oid.
func (r *Reader) ShapeRecord(oid int32) (ShapeRecord, error) {
	shape, err := r.Shape(oid)
	if err != nil {
		return ShapeRecord{}, err
	}
	rec, err := r.Record(oid)
	if err != nil {
		return ShapeRecord{}, err
	}
	return ShapeRecord{OID: oid, Shape: shape, Record: rec}, nil
}

// iterConfig holds the options accepted by Iterate.
type iterConfig struct {
	start, stop int32 // [start, stop), 0-based; stop == 0 means "to EOF"
	bbox        *Box
}

// IterOption configures an Iterator.
type IterOption func(*iterConfig)

// WithRange restricts iteration to oids in [start, stop).
func WithRange(start, stop int32) IterOption {
	return func(c *iterConfig) { c.start, c.stop = start, stop }
}

// WithBBox restricts iteration to shapes whose bounding box intersects b.
// Null shapes are always skipped when a bbox filter is active, per
// spec.md §4.6.
func WithBBox(b Box) IterOption {
	return func(c *iterConfig) { c.bbox = &b }
}

// Iterator walks shapes/records in ascending oid order.
type Iterator struct {
	r    *Reader
	cfg  iterConfig
	next int32
	oid  int32
	err  error
}

// Iterate returns a forward Iterator over this Reader's records.
func (r *Reader) Iterate(opts ...IterOption) *Iterator {
	cfg := iterConfig{start: 0}
	for _, o := range opts {
		o(&cfg)
	}
	return &Iterator{r: r, cfg: cfg, next: cfg.start}
}

// Next advances the iterator, applying the bbox filter if configured. It
// returns false at the end of the range or on error (check Err after).
func (it *Iterator) Next() bool {
	for {
		if it.cfg.stop != 0 && it.next >= it.cfg.stop {
			return false
		}
		n, err := it.r.Len()
		if err != nil {
			it.err = err
			return false
		}
		if it.next >= int32(n) {
			return false
		}
		oid := it.next
		it.next++
		if it.cfg.bbox != nil {
			entry, err := it.r.entryAt(oid)
			if err != nil {
				it.err = err
				return false
			}
			if entry.ContentLength == 2 {
				// a content length of exactly 2 words (the shape-type
				// field alone) is a Null shape; bbox filters always skip it.
				continue
			}
			shape, err := it.r.Shape(oid)
			if err != nil {
				it.err = err
				return false
			}
			if !shape.BBox().Intersects(*it.cfg.bbox) {
				continue
			}
		}
		it.oid = oid
		return true
	}
}

// OID returns the oid of the current record.
func (it *Iterator) OID() int32 { return it.oid }

// Shape returns the current record's geometry.
func (it *Iterator) Shape() (Shape, error) { return it.r.Shape(it.oid) }

// Record returns the current record's attribute row.
func (it *Iterator) Record() (Record, error) { return it.r.Record(it.oid) }

// ShapeRecord returns both.
func (it *Iterator) ShapeRecord() (ShapeRecord, error) { return it.r.ShapeRecord(it.oid) }

// Err returns the error, if any, that stopped iteration.
func (it *Iterator) Err() error { return it.err }
