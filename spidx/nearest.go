package spidx

import (
	"container/heap"
	"math"
)

// priority queue item: either a node to expand or a record to emit
type nearestItem struct {
	dist   float64
	record bool
	index  int
	seq    int // insertion order, tie break for determinism
}

type nearestQueue []nearestItem

func (q nearestQueue) Len() int { return len(q) }

func (q nearestQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].seq < q[j].seq
}

func (q nearestQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *nearestQueue) Push(x any) { *q = append(*q, x.(nearestItem)) }

func (q *nearestQueue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

// Nearest returns up to k record indices in ascending order of box distance
// from bb. Candidates at equal box distance come back in the order the
// search reached them; within one leaf that is packed order.
func (t *RTree) Nearest(bb BBox, k int) []int {
	if k <= 0 || t.count == 0 {
		return nil
	}
	q := &nearestQueue{}
	seq := 0
	push := func(dist float64, record bool, index int) {
		heap.Push(q, nearestItem{dist: dist, record: record, index: index, seq: seq})
		seq++
	}
	push(0, false, t.rootIndex)

	var out []int
	for q.Len() > 0 && len(out) < k {
		it := heap.Pop(q).(nearestItem)
		if it.record {
			out = append(out, it.index)
			continue
		}
		n := &t.storage.nodes[it.index]
		for _, entry := range n.Entries {
			push(boxDistance(bb, entry.BBox), n.IsLeaf, entry.Index)
		}
	}
	return out
}

// boxDistance is the minimum Euclidean distance between two boxes; zero when
// they overlap.
func boxDistance(a, b BBox) float64 {
	dx := math.Max(0, math.Max(a.MinX-b.MaxX, b.MinX-a.MaxX))
	dy := math.Max(0, math.Max(a.MinY-b.MaxY, b.MinY-a.MaxY))
	return math.Hypot(dx, dy)
}
