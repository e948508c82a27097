package bucket

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"geojoin-go/config"
	"geojoin-go/geo"
	"geojoin-go/operators"
	"geojoin-go/operators/join"
	"geojoin-go/operators/knn"
	"geojoin-go/operators/project"
	"geojoin-go/spidx"
)

// reading-loop states
type runState int

const (
	stateIdle runState = iota
	stateFilling
	stateFlushing
	stateDone
)

// Executor streams records from a reader, groups them by tile id, and
// executes each full tile: build the index over the second set, dispatch to
// the join or k-NN evaluator, release the tile memory. A tile buffer is
// always flushed before the first record of a different tile is appended.
type Executor struct {
	op  *operators.QueryOp
	cfg *config.Config
	tmp *operators.QueryTemp
	rep *project.Reporter

	state runState
	tiles int

	readTime time.Duration
	execTime time.Duration
}

func New(op *operators.QueryOp, w io.Writer, cfg *config.Config) *Executor {
	return &Executor{
		op:  op,
		cfg: cfg,
		tmp: operators.NewQueryTemp(),
		rep: project.NewReporter(w, op, cfg.Input.FloatPrecision),
	}
}

// Rows is the number of result rows emitted so far.
func (e *Executor) Rows() int {
	return e.rep.Rows()
}

// Run consumes the stream until EOF or a fatal error. Returns the number of
// processed tiles.
func (e *Executor) Run(r io.Reader) (int, error) {
	maxCardRelease := e.op.JoinCardinality
	if e.op.UseCacheFile && maxCardRelease > 1 {
		maxCardRelease = 1 // the cached second set lives for the whole run
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, e.cfg.Input.ScannerBufferKB*1024), e.cfg.Input.MaxLineMB*1024*1024)

	e.state = stateIdle
	previd := ""
	readStart := time.Now()

	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, operators.SEP)
		if len(fields) < operators.DefaultOffset {
			return e.tiles, operators.ErrMissingField(1, len(fields))
		}
		sid, err := strconv.Atoi(fields[1])
		if err != nil || (sid != operators.SID1 && sid != operators.SID2) {
			return e.tiles, operators.ErrWrongSID(fields[1])
		}
		tileID := fields[0]

		wkt, skip, err := operators.ExtractWKT(fields, e.op.ShapeIdx(sid))
		if err != nil {
			return e.tiles, err
		}
		if skip {
			continue
		}
		g, err := geo.ParseWKT(wkt)
		if err != nil {
			return e.tiles, operators.ErrBadWKT(err)
		}

		switch e.state {
		case stateIdle:
			e.state = stateFilling
		case stateFilling:
			if tileID != previd {
				e.readTime += time.Since(readStart)
				if err := e.flush(previd, maxCardRelease); err != nil {
					return e.tiles, err
				}
				readStart = time.Now()
			}
		}
		e.tmp.Append(sid, g, fields)
		previd = tileID
	}
	if err := sc.Err(); err != nil {
		return e.tiles, fmt.Errorf("read input: %w", err)
	}
	e.readTime += time.Since(readStart)

	// the last tile is whatever remains buffered
	if e.state == stateFilling {
		if err := e.flush(previd, e.op.JoinCardinality); err != nil {
			return e.tiles, err
		}
	}
	e.state = stateDone

	if err := e.rep.Flush(); err != nil {
		return e.tiles, fmt.Errorf("flush output: %w", err)
	}
	if e.cfg.Log.Timing {
		slog.Debug("timing", "reading", e.readTime, "execution", e.execTime)
	}
	return e.tiles, nil
}

// flush executes the buffered tile and releases its memory.
func (e *Executor) flush(tileID string, maxCard int) error {
	e.state = stateFlushing
	start := time.Now()

	e.tmp.TileID = tileID
	pairs, err := e.joinBucket()
	if err != nil {
		return err
	}
	slog.Debug("bucket",
		"tile", tileID,
		"first", len(e.tmp.PolyData[operators.SID1]),
		"second", len(e.tmp.PolyData[e.op.SIDSecondSet]),
		"pairs", pairs,
	)
	e.tiles++
	e.tmp.Release(e.op.JoinCardinality, maxCard)

	e.execTime += time.Since(start)
	e.state = stateFilling
	return nil
}

// joinBucket builds the index over the second set and dispatches the tile to
// the evaluator the predicate selects.
func (e *Executor) joinBucket() (int, error) {
	second := e.tmp.PolyData[e.op.SIDSecondSet]
	if len(second) == 0 {
		return 0, nil // nothing to join against
	}
	tree, storage, err := spidx.BuildGeoms(second, e.cfg.Index)
	if err != nil {
		return 0, operators.ErrInvalidIndex(err.Error())
	}
	defer storage.Release()

	if e.op.Predicate.IsKNN() {
		return knn.Bucket(e.op, e.tmp, tree, e.rep)
	}
	return join.Bucket(e.op, e.tmp, tree, e.rep)
}
