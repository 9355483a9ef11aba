// Command convert round-trips a shapefile triplet and its GeoJSON-equivalent
// interchange representation.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/twpayne/go-geom/encoding/geojson"

	shp "github.com/geospatialpython/shapefile"
)

func main() {
	input := flag.String("input", "", "input file: .shp or .geojson")
	output := flag.String("output", "", "output file: .shp or .geojson")
	encoding := flag.String("encoding", "", "dbf text codepage override (e.g. UTF-8, ISO-8859-1)")
	flag.Parse()

	if *input == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "usage: convert -input <path> -output <path> [-encoding <name>]")
		os.Exit(2)
	}
	if err := run(*input, *output, *encoding); err != nil {
		log.Fatal(err)
	}
}

func run(input, output, enc string) error {
	switch {
	case strings.HasSuffix(input, ".shp") && strings.HasSuffix(output, ".geojson"):
		return shapeToGeoJSON(input, output, enc)
	case strings.HasSuffix(input, ".geojson") && strings.HasSuffix(output, ".shp"):
		return geoJSONToShape(input, output, enc)
	default:
		return fmt.Errorf("unsupported conversion: %s -> %s", input, output)
	}
}

func shapeToGeoJSON(input, output, enc string) error {
	var opts []shp.ReaderOption
	if enc != "" {
		opts = append(opts, shp.WithEncoding(enc))
	}
	r, err := shp.Open(input, opts...)
	if err != nil {
		return err
	}
	defer r.Close()

	fc, err := r.FeatureCollection()
	if err != nil {
		return err
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return err
	}
	return os.WriteFile(output, data, 0o644)
}

func geoJSONToShape(input, output, enc string) error {
	raw, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return err
	}
	if len(fc.Features) == 0 {
		return fmt.Errorf("%s has no features", input)
	}

	shapeType, err := geomKindToShapeType(fc.Features[0])
	if err != nil {
		return err
	}
	fields := fieldsFromProperties(fc.Features)

	base := strings.TrimSuffix(output, ".shp")
	shpFile, err := os.Create(base + ".shp")
	if err != nil {
		return err
	}
	shxFile, err := os.Create(base + ".shx")
	if err != nil {
		return err
	}
	dbfFile, err := os.Create(base + ".dbf")
	if err != nil {
		return err
	}

	var opts []shp.WriterOption
	if enc != "" {
		opts = append(opts, shp.WithWriterEncoding(enc))
	}
	w, err := shp.Create(shpFile, shxFile, dbfFile, shapeType, opts...)
	if err != nil {
		return err
	}
	for _, f := range fields {
		if err := w.Field(f); err != nil {
			return err
		}
	}
	for _, feature := range fc.Features {
		shape, err := shp.FromGeom(feature.Geometry, shapeType)
		if err != nil {
			return err
		}
		values := valuesFor(fields, feature.Properties)
		if _, err := w.WriteShapeRecord(shape, values); err != nil {
			return err
		}
	}
	return w.Close()
}

func geomKindToShapeType(f *geojson.Feature) (shp.ShapeType, error) {
	switch fmt.Sprintf("%T", f.Geometry) {
	case "*geom.Point":
		return shp.POINT, nil
	case "*geom.MultiPoint":
		return shp.MULTIPOINT, nil
	case "*geom.LineString", "*geom.MultiLineString":
		return shp.POLYLINE, nil
	case "*geom.Polygon", "*geom.MultiPolygon":
		return shp.POLYGON, nil
	default:
		return 0, fmt.Errorf("unsupported geometry type %T", f.Geometry)
	}
}

// fieldsFromProperties derives a dbf schema from the union of property
// keys across every feature, defaulting every column to a generous
// Character field since GeoJSON properties carry no fixed-width schema.
func fieldsFromProperties(features []*geojson.Feature) []shp.Field {
	seen := map[string]bool{}
	var names []string
	for _, f := range features {
		for k := range f.Properties {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	fields := make([]shp.Field, 0, len(names))
	for _, name := range names {
		field, err := shp.CharacterField(truncateFieldName(name), 254)
		if err != nil {
			continue
		}
		fields = append(fields, field)
	}
	return fields
}

func truncateFieldName(name string) string {
	if len(name) > 10 {
		return name[:10]
	}
	return name
}

func valuesFor(fields []shp.Field, props map[string]interface{}) []shp.Value {
	values := make([]shp.Value, len(fields))
	for i, f := range fields {
		v, ok := props[f.Name]
		if !ok {
			values[i] = shp.NullValue()
			continue
		}
		values[i] = shp.TextValue(fmt.Sprintf("%v", v))
	}
	return values
}
