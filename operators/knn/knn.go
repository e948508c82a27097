package knn

import (
	"sort"

	"geojoin-go/geo"
	"geojoin-go/operators"
	"geojoin-go/operators/project"
	"geojoin-go/spidx"
)

type neighbor struct {
	j    int
	dist float64
}

// Bucket runs the k-nearest-neighbor query over the current tile: for every
// object in the first set, its k nearest second-set objects by the
// configured metric, nearest first. Returns the number of emitted pairs.
//
// In a self join the identity pair is excluded and the next-nearest object
// takes its slot.
func Bucket(op *operators.QueryOp, tmp *operators.QueryTemp, idx *spidx.RTree, rep *project.Reporter) (int, error) {
	first := tmp.PolyData[operators.SID1]
	second := tmp.PolyData[op.SIDSecondSet]
	selfJoin := op.JoinCardinality == 1

	pairs := 0
	for i, a := range first {
		self := -1
		if selfJoin {
			self = i
		}
		for _, nb := range nearest(op, idx, a, second, self) {
			tmp.Distance = nb.dist
			if err := rep.Pair(tmp, i, nb.j); err != nil {
				return pairs, err
			}
			pairs++
		}
	}
	return pairs, nil
}

// Single answers the k-NN query for one streamed object against the cached
// second set.
func Single(op *operators.QueryOp, tmp *operators.QueryTemp, idx *spidx.RTree, a geo.Geom, aFields []string, rep *project.Reporter) (int, error) {
	second := tmp.PolyData[operators.SID2]
	pairs := 0
	for _, nb := range nearest(op, idx, a, second, -1) {
		tmp.Distance = nb.dist
		if err := rep.CachePair(tmp, aFields, nb.j, false); err != nil {
			return pairs, err
		}
		pairs++
	}
	return pairs, nil
}

// nearest retrieves candidates via the index's nearest-neighbor search,
// ranks them by ascending distance with ties broken by ascending local id,
// and keeps the top k. selfIdx excludes the identity pair in a self join
// (-1 to keep everything).
func nearest(op *operators.QueryOp, idx *spidx.RTree, a geo.Geom, second []geo.Geom, selfIdx int) []neighbor {
	fetch := op.K
	if selfIdx >= 0 {
		fetch++
	}
	cands := idx.Nearest(spidx.BoxOf(a.Envelope()), fetch)

	nbs := make([]neighbor, 0, len(cands))
	for _, j := range cands {
		if j == selfIdx {
			continue
		}
		d, ok := geo.CentroidDistance(a, second[j], op.EarthDistance)
		if !ok {
			continue
		}
		nbs = append(nbs, neighbor{j: j, dist: d})
	}
	sort.SliceStable(nbs, func(x, y int) bool {
		if nbs[x].dist != nbs[y].dist {
			return nbs[x].dist < nbs[y].dist
		}
		return nbs[x].j < nbs[y].j
	})
	if len(nbs) > op.K {
		nbs = nbs[:op.K]
	}
	return nbs
}
