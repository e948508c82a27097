package join

import (
	"geojoin-go/geo"
	"geojoin-go/operators"
	"geojoin-go/operators/project"
	"geojoin-go/spidx"
)

// Bucket runs the spatial join over the current tile: for every object in
// the first set, probe the index over the second set for MBR candidates and
// evaluate the predicate on each. Returns the number of matched pairs.
//
// In a self join both sides are the same buffer and the same index, and the
// pairs (a,b) and (b,a) are both emitted.
func Bucket(op *operators.QueryOp, tmp *operators.QueryTemp, idx *spidx.RTree, rep *project.Reporter) (int, error) {
	first := tmp.PolyData[operators.SID1]
	second := tmp.PolyData[op.SIDSecondSet]
	envs := envelopes(second)

	pairs := 0
	for i, a := range first {
		n, err := probe(op, tmp, idx, a, second, envs, func(j int) error {
			return rep.Pair(tmp, i, j)
		})
		if err != nil {
			return pairs, err
		}
		pairs += n
	}
	return pairs, nil
}

// Single joins one streamed first-set object against the cached second set.
// aFields supplies the raw fields of the streamed record.
func Single(op *operators.QueryOp, tmp *operators.QueryTemp, idx *spidx.RTree, a geo.Geom, aFields []string, envs []geo.Envelope, rep *project.Reporter) (int, error) {
	second := tmp.PolyData[operators.SID2]
	return probe(op, tmp, idx, a, second, envs, func(j int) error {
		return rep.CachePair(tmp, aFields, j, false)
	})
}

// probe evaluates one first-set object against its candidates and emits on
// match. Candidates come from the index in query order, except for
// st_disjoint, which scans the whole second set.
func probe(op *operators.QueryOp, tmp *operators.QueryTemp, idx *spidx.RTree, a geo.Geom, second []geo.Geom, envs []geo.Envelope, emit func(j int) error) (int, error) {
	envA := a.Envelope()
	matched := 0

	evalOne := func(j int) error {
		ok, err := EvalPredicate(op, tmp, a, second[j], envA, envs[j])
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := emit(j); err != nil {
			return err
		}
		matched++
		return nil
	}

	if op.Predicate == operators.PredDisjoint {
		for j := range second {
			if err := evalOne(j); err != nil {
				return matched, err
			}
		}
		return matched, nil
	}

	queryEnv := envA
	if op.ExpansionDistance > 0 {
		queryEnv = envA.ExpandBy(op.ExpansionDistance)
	}
	if err := idx.Search(spidx.BoxOf(queryEnv), evalOne); err != nil {
		return matched, err
	}
	return matched, nil
}

func envelopes(geoms []geo.Geom) []geo.Envelope {
	envs := make([]geo.Envelope, len(geoms))
	for i, g := range geoms {
		envs[i] = g.Envelope()
	}
	return envs
}
