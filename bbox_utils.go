package shp

// readBBox reads a 32-byte XY bounding box (MinX, MinY, MaxX, MaxY), the
// layout shared by every multi-point/multi-part shape record.
func readBBox(er *errReader) Box {
	var b Box
	readLE(er, &b.MinX)
	readLE(er, &b.MinY)
	readLE(er, &b.MaxX)
	readLE(er, &b.MaxY)
	return b
}
