package operators

import "geojoin-go/geo"

// QueryTemp is the per-tile scratch: the tile buffer (geometries plus raw
// fields, per set id, in insertion order) and the derived statistics the
// projector reads. The bucket executor owns it; evaluators borrow it for the
// duration of a tile.
type QueryTemp struct {
	TileID string

	PolyData map[int][]geo.Geom
	RawData  map[int][][]string

	Area1         float64
	Area2         float64
	UnionArea     float64
	IntersectArea float64
	Jaccard       float64
	Dice          float64
	Distance      float64
}

func NewQueryTemp() *QueryTemp {
	return &QueryTemp{
		PolyData: make(map[int][]geo.Geom),
		RawData:  make(map[int][][]string),
	}
}

// Append buffers one parsed record under its set id. Ordinal position within
// the sequence is the object's local id within the tile.
func (t *QueryTemp) Append(sid int, g geo.Geom, fields []string) {
	t.PolyData[sid] = append(t.PolyData[sid], g)
	t.RawData[sid] = append(t.RawData[sid], fields)
}

// Release drops the buffered geometries and raw fields for set ids 1..maxCard
// (capped by the join cardinality). In cache-file mode maxCard is 1 so the
// cached second set survives the whole run.
func (t *QueryTemp) Release(cardinality, maxCard int) {
	if cardinality <= 0 {
		return
	}
	for j := 0; j < cardinality && j < maxCard; j++ {
		sid := j + 1
		t.PolyData[sid] = nil
		t.RawData[sid] = nil
	}
}

// ExtractWKT pulls the geometry field at index out of a record. skip is true
// for an empty geometry field (the record is silently dropped); a position
// beyond the record is a schema error.
func ExtractWKT(fields []string, index int) (wkt string, skip bool, err error) {
	if index < 0 || index >= len(fields) {
		return "", false, ErrMissingField(index, len(fields))
	}
	if len(fields[index]) == 0 {
		return "", true, nil
	}
	return fields[index], false, nil
}
