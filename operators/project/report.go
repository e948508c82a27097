package project

import (
	"bufio"
	"io"
	"strconv"

	"geojoin-go/operators"
)

// Reporter renders result rows: raw fields picked from either side plus
// derived statistics, tab separated, newline terminated. It owns the
// buffered writer; call Flush before the process exits.
type Reporter struct {
	w         *bufio.Writer
	op        *operators.QueryOp
	precision int
	rows      int
}

func NewReporter(w io.Writer, op *operators.QueryOp, precision int) *Reporter {
	return &Reporter{
		w:         bufio.NewWriter(w),
		op:        op,
		precision: precision,
	}
}

// Pair emits one row for the tile-buffer pair (i, j): i indexes the first
// set, j the second (which is the first again in a self join).
func (r *Reporter) Pair(tmp *operators.QueryTemp, i, j int) error {
	a := tmp.RawData[operators.SID1][i]
	b := tmp.RawData[r.op.SIDSecondSet][j]
	return r.write(tmp, a, b, false)
}

// CachePair emits one row for a streamed first-set record against cache
// object j. skipWindowData suppresses the window's own fields in the
// all-fields projection, for the single-window fast path.
func (r *Reporter) CachePair(tmp *operators.QueryTemp, set1fields []string, j int, skipWindowData bool) error {
	b := tmp.RawData[operators.SID2][j]
	return r.write(tmp, set1fields, b, skipWindowData)
}

// Rows is the number of rows emitted so far.
func (r *Reporter) Rows() int {
	return r.rows
}

func (r *Reporter) Flush() error {
	return r.w.Flush()
}

func (r *Reporter) write(tmp *operators.QueryTemp, a, b []string, skipB bool) error {
	if len(r.op.OutputFields) == 0 {
		// No output fields have been set: print all fields read.
		for k, f := range a {
			if k > 0 {
				r.w.WriteString(operators.SEP)
			}
			r.w.WriteString(f)
		}
		if !skipB {
			for _, f := range b {
				r.w.WriteString(operators.SEP)
				r.w.WriteString(f)
			}
		}
	} else {
		for k, f := range r.op.OutputFields {
			if k > 0 {
				r.w.WriteString(operators.SEP)
			}
			if err := r.writeField(tmp, f, a, b); err != nil {
				return err
			}
		}
	}
	_, err := r.w.WriteString(operators.LineSep)
	if err == nil {
		r.rows++
	}
	return err
}

func (r *Reporter) writeField(tmp *operators.QueryTemp, f operators.OutputField, a, b []string) error {
	switch f.Source {
	case operators.SourceA:
		if f.Index >= len(a) {
			return operators.ErrMissingField(f.Index, len(a))
		}
		r.w.WriteString(a[f.Index])
	case operators.SourceB:
		if f.Index >= len(b) {
			return operators.ErrMissingField(f.Index, len(b))
		}
		r.w.WriteString(b[f.Index])
	case operators.SourceStat:
		switch f.Stat {
		case operators.StatArea1:
			r.w.WriteString(r.float(tmp.Area1))
		case operators.StatArea2:
			r.w.WriteString(r.float(tmp.Area2))
		case operators.StatUnionArea:
			r.w.WriteString(r.float(tmp.UnionArea))
		case operators.StatIntersectArea:
			r.w.WriteString(r.float(tmp.IntersectArea))
		case operators.StatJaccard:
			r.w.WriteString(r.float(tmp.Jaccard))
		case operators.StatDice:
			r.w.WriteString(r.float(tmp.Dice))
		case operators.StatTileID:
			r.w.WriteString(tmp.TileID)
		case operators.StatMinDist:
			r.w.WriteString(r.float(tmp.Distance))
		}
	}
	return nil
}

func (r *Reporter) float(v float64) string {
	return strconv.FormatFloat(v, 'g', r.precision, 64)
}
