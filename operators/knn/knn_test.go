package knn

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geojoin-go/config"
	"geojoin-go/geo"
	"geojoin-go/operators"
	"geojoin-go/operators/project"
	"geojoin-go/spidx"
)

func mustGeom(t *testing.T, wkt string) geo.Geom {
	t.Helper()
	g, err := geo.ParseWKT(wkt)
	require.NoError(t, err)
	return g
}

func nearestOp(t *testing.T, cardinality, k int) *operators.QueryOp {
	t.Helper()
	fields, err := operators.ParseOutputFields("a:3,b:3,stat:min_dist")
	require.NoError(t, err)
	op := &operators.QueryOp{
		JoinCardinality: cardinality,
		Predicate:       operators.PredNearest,
		K:               k,
		OutputFields:    fields,
	}
	require.NoError(t, op.Prepare())
	return op
}

func run(t *testing.T, op *operators.QueryOp, tmp *operators.QueryTemp) (int, string) {
	t.Helper()
	tree, storage, err := spidx.BuildGeoms(tmp.PolyData[op.SIDSecondSet], config.GetConfig().Index)
	require.NoError(t, err)
	defer storage.Release()

	var out bytes.Buffer
	rep := project.NewReporter(&out, op, 6)
	pairs, err := Bucket(op, tmp, tree, rep)
	require.NoError(t, err)
	require.NoError(t, rep.Flush())
	return pairs, out.String()
}

func TestBucketKNN(t *testing.T) {
	assert := assert.New(t)
	op := nearestOp(t, 2, 2)

	tmp := operators.NewQueryTemp()
	tmp.Append(operators.SID1, mustGeom(t, "POINT(0 0)"), []string{"T1", "1", "g", "a"})
	tmp.Append(operators.SID2, mustGeom(t, "POINT(3 0)"), []string{"T1", "2", "g", "b1"})
	tmp.Append(operators.SID2, mustGeom(t, "POINT(1 0)"), []string{"T1", "2", "g", "b2"})
	tmp.Append(operators.SID2, mustGeom(t, "POINT(10 10)"), []string{"T1", "2", "g", "b3"})

	pairs, out := run(t, op, tmp)
	assert.Equal(2, pairs)
	assert.Equal("a\tb2\t1\na\tb1\t3\n", out)
}

func TestBucketKNNTieBreak(t *testing.T) {
	assert := assert.New(t)
	op := nearestOp(t, 2, 2)

	tmp := operators.NewQueryTemp()
	tmp.Append(operators.SID1, mustGeom(t, "POINT(0 0)"), []string{"T1", "1", "g", "a"})
	// both at distance 1; ascending local id wins
	tmp.Append(operators.SID2, mustGeom(t, "POINT(1 0)"), []string{"T1", "2", "g", "east"})
	tmp.Append(operators.SID2, mustGeom(t, "POINT(-1 0)"), []string{"T1", "2", "g", "west"})

	_, out := run(t, op, tmp)
	assert.Equal("a\teast\t1\na\twest\t1\n", out)
}

func TestBucketKNNSelfJoinExcludesIdentity(t *testing.T) {
	assert := assert.New(t)
	op := nearestOp(t, 1, 1)

	tmp := operators.NewQueryTemp()
	tmp.Append(operators.SID1, mustGeom(t, "POINT(0 0)"), []string{"T1", "1", "g", "p"})
	tmp.Append(operators.SID1, mustGeom(t, "POINT(2 0)"), []string{"T1", "1", "g", "q"})
	tmp.Append(operators.SID1, mustGeom(t, "POINT(9 0)"), []string{"T1", "1", "g", "r"})

	pairs, out := run(t, op, tmp)
	assert.Equal(3, pairs)
	assert.Equal("p\tq\t2\nq\tp\t2\nr\tq\t7\n", out)
}

func TestBucketKNNFewerThanK(t *testing.T) {
	assert := assert.New(t)
	op := nearestOp(t, 2, 5)

	tmp := operators.NewQueryTemp()
	tmp.Append(operators.SID1, mustGeom(t, "POINT(0 0)"), []string{"T1", "1", "g", "a"})
	tmp.Append(operators.SID2, mustGeom(t, "POINT(1 0)"), []string{"T1", "2", "g", "b1"})
	tmp.Append(operators.SID2, mustGeom(t, "POINT(2 0)"), []string{"T1", "2", "g", "b2"})

	pairs, out := run(t, op, tmp)
	assert.Equal(2, pairs)
	assert.Equal("a\tb1\t1\na\tb2\t2\n", out)
}
