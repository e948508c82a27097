package bucket

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geojoin-go/config"
	"geojoin-go/operators"
)

func streamOp(t *testing.T, predicate operators.Predicate, fields string, mutate ...func(*operators.QueryOp)) *operators.QueryOp {
	t.Helper()
	out, err := operators.ParseOutputFields(fields)
	require.NoError(t, err)
	op := &operators.QueryOp{
		JoinCardinality: 2,
		ShapeIdx1:       2,
		ShapeIdx2:       2,
		Predicate:       predicate,
		OutputFields:    out,
	}
	for _, m := range mutate {
		m(op)
	}
	require.NoError(t, op.Prepare())
	return op
}

func runStream(t *testing.T, op *operators.QueryOp, input string) (string, int) {
	t.Helper()
	var out bytes.Buffer
	e := New(op, &out, config.GetConfig())
	tiles, err := e.Run(strings.NewReader(input))
	require.NoError(t, err)
	return out.String(), tiles
}

const twoTileInput = "T1\t1\tPOLYGON((0 0,2 0,2 2,0 2,0 0))\n" +
	"T1\t2\tPOLYGON((1 1,3 1,3 3,1 3,1 1))\n" +
	"T1\t2\tPOLYGON((5 5,6 5,6 6,5 6,5 5))\n" +
	"T2\t1\tPOLYGON((0 0,1 0,1 1,0 1,0 0))\n" +
	"T2\t2\tPOLYGON((2 2,3 2,3 3,2 3,2 2))\n"

func TestRunIntersectsTwoTiles(t *testing.T) {
	assert := assert.New(t)
	op := streamOp(t, operators.PredIntersects, "a:0,b:0")

	out, tiles := runStream(t, op, twoTileInput)
	assert.Equal("T1\tT1\n", out)
	assert.Equal(2, tiles)
}

func TestRunDisjointSingleTile(t *testing.T) {
	assert := assert.New(t)
	op := streamOp(t, operators.PredDisjoint, "a:0,b:0")

	input := "T1\t1\tPOLYGON((0 0,2 0,2 2,0 2,0 0))\n" +
		"T1\t2\tPOLYGON((1 1,3 1,3 3,1 3,1 1))\n" +
		"T1\t2\tPOLYGON((5 5,6 5,6 6,5 6,5 5))\n"
	out, tiles := runStream(t, op, input)
	assert.Equal("T1\tT1\n", out)
	assert.Equal(1, tiles)
}

func TestRunDWithin(t *testing.T) {
	assert := assert.New(t)
	op := streamOp(t, operators.PredDWithin, "a:0,b:0,stat:min_dist", func(op *operators.QueryOp) {
		op.ExpansionDistance = 1.5
	})

	input := "T1\t1\tPOINT(0 0)\n" +
		"T1\t2\tPOINT(1 0)\n" +
		"T1\t2\tPOINT(5 0)\n"
	out, _ := runStream(t, op, input)
	assert.Equal("T1\tT1\t1\n", out)
}

func TestRunNearest(t *testing.T) {
	assert := assert.New(t)
	op := streamOp(t, operators.PredNearest, "a:3,b:3,stat:min_dist", func(op *operators.QueryOp) {
		op.K = 2
	})

	input := "T1\t1\tPOINT(0 0)\ta\n" +
		"T1\t2\tPOINT(3 0)\tb1\n" +
		"T1\t2\tPOINT(1 0)\tb2\n" +
		"T1\t2\tPOINT(10 10)\tb3\n"
	out, _ := runStream(t, op, input)
	assert.Equal("a\tb2\t1\na\tb1\t3\n", out)
}

func TestRunJaccardStatistics(t *testing.T) {
	assert := assert.New(t)
	op := streamOp(t, operators.PredIntersects, "stat:jaccard,stat:dice")

	input := "T1\t1\tPOLYGON((0 0,1 0,1 1,0 1,0 0))\n" +
		"T1\t2\tPOLYGON((0.5 0,1.5 0,1.5 1,0.5 1,0.5 0))\n"
	out, _ := runStream(t, op, input)
	assert.Equal("0.333333\t0.5\n", out)
}

func TestRunSkipsEmptyGeometry(t *testing.T) {
	assert := assert.New(t)
	op := streamOp(t, operators.PredIntersects, "a:0,b:0")

	input := "T1\t1\t\n" +
		"T1\t1\tPOLYGON((0 0,2 0,2 2,0 2,0 0))\n" +
		"T1\t2\t\n" +
		"T1\t2\tPOLYGON((1 1,3 1,3 3,1 3,1 1))\n"
	out, tiles := runStream(t, op, input)
	assert.Equal("T1\tT1\n", out)
	assert.Equal(1, tiles)
}

func TestRunEmptySecondSetEmitsNothing(t *testing.T) {
	assert := assert.New(t)
	op := streamOp(t, operators.PredIntersects, "a:0,b:0")

	input := "T1\t1\tPOLYGON((0 0,2 0,2 2,0 2,0 0))\n"
	out, tiles := runStream(t, op, input)
	assert.Empty(out)
	assert.Equal(1, tiles)
}

func TestRunEmptyInput(t *testing.T) {
	assert := assert.New(t)
	op := streamOp(t, operators.PredIntersects, "a:0,b:0")

	out, tiles := runStream(t, op, "")
	assert.Empty(out)
	assert.Zero(tiles)
}

func TestRunFatalErrors(t *testing.T) {
	assert := assert.New(t)

	t.Run("unknown sid", func(t *testing.T) {
		op := streamOp(t, operators.PredIntersects, "a:0,b:0")
		var out bytes.Buffer
		e := New(op, &out, config.GetConfig())
		_, err := e.Run(strings.NewReader("T1\t7\tPOINT(0 0)\n"))
		assert.ErrorIs(err, operators.ErrSchema)
	})

	t.Run("malformed wkt", func(t *testing.T) {
		op := streamOp(t, operators.PredIntersects, "a:0,b:0")
		var out bytes.Buffer
		e := New(op, &out, config.GetConfig())
		_, err := e.Run(strings.NewReader("T1\t1\tPOLYGON((broken\n"))
		assert.ErrorIs(err, operators.ErrParse)
	})

	t.Run("record too short", func(t *testing.T) {
		op := streamOp(t, operators.PredIntersects, "a:0,b:0")
		var out bytes.Buffer
		e := New(op, &out, config.GetConfig())
		_, err := e.Run(strings.NewReader("T1\n"))
		assert.ErrorIs(err, operators.ErrSchema)
	})
}

func TestRunDeterministic(t *testing.T) {
	assert := assert.New(t)

	run := func() string {
		op := streamOp(t, operators.PredIntersects, "")
		out, _ := runStream(t, op, twoTileInput)
		return out
	}
	assert.Equal(run(), run())
}

func TestRunSelfJoin(t *testing.T) {
	assert := assert.New(t)
	op := streamOp(t, operators.PredIntersects, "a:3,b:3", func(op *operators.QueryOp) {
		op.JoinCardinality = 1
	})

	input := "T1\t1\tPOLYGON((0 0,2 0,2 2,0 2,0 0))\tx\n" +
		"T1\t1\tPOLYGON((1 1,3 1,3 3,1 3,1 1))\ty\n"
	out, _ := runStream(t, op, input)

	// every ordered pair whose boxes meet the predicate, identity included
	assert.Equal(4, strings.Count(out, "\n"))
	assert.Contains(out, "x\tx\n")
	assert.Contains(out, "x\ty\n")
	assert.Contains(out, "y\tx\n")
	assert.Contains(out, "y\ty\n")
}
