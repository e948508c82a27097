package join

import (
	"fmt"

	"geojoin-go/geo"
	"geojoin-go/operators"
)

// EvalPredicate decides match/no-match for one candidate pair and, on match,
// fills the derived statistics the projection references into the scratch.
//
// Envelopes are tested first and a negative test short-circuits to no-match.
// st_disjoint is the exception: envelope disjointness does not bound the
// complement in the useful direction, so the full predicate runs for every
// pair. With a positive expansion distance the first geometry is dilated
// before evaluation; the dilated geometry is transient and dropped on
// return. st_dwithin is evaluated directly as minimum distance against the
// expansion distance.
func EvalPredicate(op *operators.QueryOp, tmp *operators.QueryTemp, a, b geo.Geom, envA, envB geo.Envelope) (bool, error) {
	if op.Predicate == operators.PredDisjoint {
		subject := a
		if op.ExpansionDistance > 0 {
			var err error
			subject, err = geo.Buffer(a, op.ExpansionDistance)
			if err != nil {
				return false, fmt.Errorf("expand first geometry: %w", err)
			}
		}
		if !geo.Disjoint(subject, b) {
			return false, nil
		}
		return true, computeStats(op, tmp, a, b)
	}

	queryEnv := envA
	if op.ExpansionDistance > 0 {
		queryEnv = envA.ExpandBy(op.ExpansionDistance)
	}
	if !queryEnv.Intersects(envB) {
		return false, nil
	}

	subject := a
	if op.ExpansionDistance > 0 && op.Predicate != operators.PredDWithin {
		var err error
		subject, err = geo.Buffer(a, op.ExpansionDistance)
		if err != nil {
			return false, fmt.Errorf("expand first geometry: %w", err)
		}
	}

	var (
		match bool
		err   error
	)
	switch op.Predicate {
	case operators.PredIntersects:
		match = geo.Intersects(subject, b)
	case operators.PredTouches:
		match, err = geo.Touches(subject, b)
	case operators.PredCrosses:
		match, err = geo.Crosses(subject, b)
	case operators.PredContains:
		match, err = geo.Contains(subject, b)
	case operators.PredWithin:
		match, err = geo.Within(subject, b)
	case operators.PredOverlaps:
		match, err = geo.Overlaps(subject, b)
	case operators.PredEquals:
		match, err = geo.Equals(subject, b)
	case operators.PredDWithin:
		d, ok := geo.Distance(a, b)
		match = ok && d <= op.ExpansionDistance
	default:
		return false, operators.ErrBadOperator(fmt.Sprintf("predicate %s cannot be evaluated pairwise", op.Predicate))
	}
	if err != nil {
		return false, fmt.Errorf("evaluate %s: %w", op.Predicate, err)
	}
	if !match {
		return false, nil
	}
	return true, computeStats(op, tmp, a, b)
}

// computeStats derives the statistics referenced by the projection, and only
// those, over the original (unbuffered) geometries.
func computeStats(op *operators.QueryOp, tmp *operators.QueryTemp, a, b geo.Geom) error {
	if op.NeedArea1 {
		tmp.Area1 = a.Area()
	}
	if op.NeedArea2 {
		tmp.Area2 = b.Area()
	}
	if op.NeedIntersectArea {
		in, err := geo.Intersection(a, b)
		if err != nil {
			return fmt.Errorf("intersect area: %w", err)
		}
		tmp.IntersectArea = in.Area()
	}
	if op.NeedUnionArea {
		un, err := geo.Union(a, b)
		if err != nil {
			return fmt.Errorf("union area: %w", err)
		}
		tmp.UnionArea = un.Area()
	}
	if op.NeedJaccard {
		tmp.Jaccard = 0
		if tmp.UnionArea != 0 {
			tmp.Jaccard = tmp.IntersectArea / tmp.UnionArea
		}
	}
	if op.NeedDice {
		tmp.Dice = 0
		if denom := tmp.Area1 + tmp.Area2; denom != 0 {
			tmp.Dice = 2 * tmp.IntersectArea / denom
		}
	}
	if op.NeedMinDist {
		if op.EarthDistance {
			if d, ok := geo.CentroidDistance(a, b, true); ok {
				tmp.Distance = d
			}
		} else if d, ok := geo.Distance(a, b); ok {
			tmp.Distance = d
		}
	}
	return nil
}
