package bucket

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"geojoin-go/config"
	"geojoin-go/geo"
	"geojoin-go/operators"
	"geojoin-go/operators/join"
	"geojoin-go/operators/knn"
	"geojoin-go/operators/project"
	"geojoin-go/spidx"
)

// CacheExecutor loads the second data set in full from a side file and
// streams the first set against it as one logical tile. With a single cached
// object it takes a window fast path that never builds an index; otherwise
// the index is built once and reused for the whole stream.
type CacheExecutor struct {
	op  *operators.QueryOp
	cfg *config.Config
	tmp *operators.QueryTemp
	rep *project.Reporter
}

func NewCache(op *operators.QueryOp, w io.Writer, cfg *config.Config) *CacheExecutor {
	return &CacheExecutor{
		op:  op,
		cfg: cfg,
		tmp: operators.NewQueryTemp(),
		rep: project.NewReporter(w, op, cfg.Input.FloatPrecision),
	}
}

// Run loads the cache, then consumes the stream until EOF or a fatal error.
// Returns the number of emitted rows.
func (e *CacheExecutor) Run(in io.Reader) (int, error) {
	if err := e.loadCache(); err != nil {
		return 0, err
	}
	second := e.tmp.PolyData[operators.SID2]
	slog.Debug("cache loaded", "objects", len(second))

	var err error
	if len(second) == 1 {
		err = e.windowRun(in)
	} else {
		err = e.indexedRun(in)
	}
	if err != nil {
		return e.rep.Rows(), err
	}
	if err := e.rep.Flush(); err != nil {
		return e.rep.Rows(), fmt.Errorf("flush output: %w", err)
	}
	return e.rep.Rows(), nil
}

// loadCache reads every non-empty cache line as a second-set record. No
// tile-id or set-id discipline applies to the cache file.
func (e *CacheExecutor) loadCache() error {
	rc, err := openCache(e.op.CacheFileName, e.cfg)
	if err != nil {
		return operators.ErrBadCache(err.Error())
	}
	defer rc.Close()

	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, e.cfg.Input.ScannerBufferKB*1024), e.cfg.Input.MaxLineMB*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, operators.SEP)
		wkt, skip, err := operators.ExtractWKT(fields, e.op.ShapeIdx2)
		if err != nil {
			return err
		}
		if skip {
			continue
		}
		g, err := geo.ParseWKT(wkt)
		if err != nil {
			return operators.ErrBadWKT(err)
		}
		e.tmp.Append(operators.SID2, g, fields)
	}
	if err := sc.Err(); err != nil {
		return operators.ErrBadCache(err.Error())
	}
	if len(e.tmp.PolyData[operators.SID2]) == 0 {
		return operators.ErrBadCache("no cache geometry")
	}
	return nil
}

// windowRun is the single-window fast path: each streamed object is tested
// against the sole cached geometry, no index involved.
func (e *CacheExecutor) windowRun(in io.Reader) error {
	window := e.tmp.PolyData[operators.SID2][0]
	windowEnv := window.Envelope()

	return e.stream(in, func(a geo.Geom, fields []string) error {
		envA := a.Envelope()
		if !envA.Intersects(windowEnv) && e.op.Predicate != operators.PredDisjoint {
			return nil
		}
		ok, err := join.EvalPredicate(e.op, e.tmp, a, window, envA, windowEnv)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		return e.rep.CachePair(e.tmp, fields, 0, true)
	})
}

// indexedRun builds the index over the cached set once and probes it for
// every streamed object.
func (e *CacheExecutor) indexedRun(in io.Reader) error {
	second := e.tmp.PolyData[operators.SID2]
	tree, storage, err := spidx.BuildGeoms(second, e.cfg.Index)
	if err != nil {
		return operators.ErrInvalidIndex(err.Error())
	}
	defer storage.Release()
	envs := make([]geo.Envelope, len(second))
	for i, g := range second {
		envs[i] = g.Envelope()
	}

	return e.stream(in, func(a geo.Geom, fields []string) error {
		var err error
		if e.op.Predicate.IsKNN() {
			_, err = knn.Single(e.op, e.tmp, tree, a, fields, e.rep)
		} else {
			_, err = join.Single(e.op, e.tmp, tree, a, fields, envs, e.rep)
		}
		return err
	})
}

// stream feeds every first-set record of the input to fn. The stream carries
// no tile discipline; the tile id in the scratch stays undefined.
func (e *CacheExecutor) stream(in io.Reader, fn func(a geo.Geom, fields []string) error) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, e.cfg.Input.ScannerBufferKB*1024), e.cfg.Input.MaxLineMB*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, operators.SEP)
		wkt, skip, err := operators.ExtractWKT(fields, e.op.ShapeIdx1)
		if err != nil {
			return err
		}
		if skip {
			continue
		}
		a, err := geo.ParseWKT(wkt)
		if err != nil {
			return operators.ErrBadWKT(err)
		}
		if err := fn(a, fields); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
