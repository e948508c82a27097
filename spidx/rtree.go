package spidx

import (
	"errors"
	"math"
	"sort"

	"geojoin-go/config"
	"geojoin-go/geo"
)

var (
	// Stop terminates a Search early without error.
	Stop = errors.New("stop search")

	ErrBadParams = errors.New("invalid index parameters")
)

type BBox struct {
	MinX, MinY, MaxX, MaxY float64
}

// Entry points at a record (leaf node) or at a child node (internal node).
type Entry struct {
	BBox  BBox
	Index int
}

type Node struct {
	IsLeaf  bool
	Entries []Entry
}

// Storage is the memory arena backing an index's nodes. Build hands out the
// index and its storage as a pair; they are released together at the end of
// a tile.
type Storage struct {
	nodes []Node
}

// Release drops the node arena. The paired RTree must not be used afterwards.
func (s *Storage) Release() {
	s.nodes = nil
}

func (s *Storage) alloc(n Node) int {
	s.nodes = append(s.nodes, n)
	return len(s.nodes) - 1
}

type RTree struct {
	storage   *Storage
	rootIndex int
	count     int
}

// Count is the number of indexed records.
func (t *RTree) Count() int {
	return t.count
}

// Build bulk loads an R-tree over the given boxes with Sort-Tile-Recursive
// packing. Box i carries record index i.
func Build(boxes []BBox, p config.Index) (*RTree, *Storage, error) {
	if p.LeafCapacity <= 0 || p.IndexCapacity <= 1 || p.FillFactor <= 0 || p.FillFactor > 1 {
		return nil, nil, ErrBadParams
	}
	st := &Storage{}
	t := &RTree{storage: st, count: len(boxes)}
	if len(boxes) == 0 {
		t.rootIndex = st.alloc(Node{IsLeaf: true})
		return t, st, nil
	}

	entries := make([]Entry, len(boxes))
	for i, bb := range boxes {
		entries[i] = Entry{BBox: bb, Index: i}
	}

	leafFill := fill(p.LeafCapacity, p.FillFactor)
	nodes, nodeBoxes := packLevel(st, entries, leafFill, true)

	indexFill := fill(p.IndexCapacity, p.FillFactor)
	for len(nodes) > 1 {
		entries = entries[:0]
		for i, idx := range nodes {
			entries = append(entries, Entry{BBox: nodeBoxes[i], Index: idx})
		}
		nodes, nodeBoxes = packLevel(st, entries, indexFill, false)
	}
	t.rootIndex = nodes[0]
	return t, st, nil
}

// BuildGeoms bulk loads an R-tree over the envelopes of a numbered set of
// geometries; ordinal position is the record's local id.
func BuildGeoms(geoms []geo.Geom, p config.Index) (*RTree, *Storage, error) {
	boxes := make([]BBox, len(geoms))
	for i, g := range geoms {
		env := g.Envelope()
		if env.IsEmpty() {
			continue // zero box at the origin
		}
		boxes[i] = BBox{MinX: env.MinX, MinY: env.MinY, MaxX: env.MaxX, MaxY: env.MaxY}
	}
	t, st, err := Build(boxes, p)
	if err != nil {
		return nil, nil, err
	}
	if !t.IsValid() {
		st.Release()
		return nil, nil, errors.New("bulk load produced an invalid index")
	}
	return t, st, nil
}

func fill(capacity int, factor float64) int {
	f := int(float64(capacity) * factor)
	if f < 2 {
		f = 2
	}
	if f > capacity {
		f = capacity
	}
	return f
}

// packLevel packs entries into nodes of at most perNode entries using STR:
// sort by center x, cut into vertical slices, sort each slice by center y,
// pack runs. Ties keep input order so the packing is deterministic.
func packLevel(st *Storage, entries []Entry, perNode int, leaf bool) ([]int, []BBox) {
	n := len(entries)
	numNodes := (n + perNode - 1) / perNode
	numSlices := int(math.Ceil(math.Sqrt(float64(numNodes))))
	sliceSize := numSlices * perNode

	sorted := make([]Entry, n)
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return centerX(sorted[i].BBox) < centerX(sorted[j].BBox)
	})

	var nodes []int
	var nodeBoxes []BBox
	for s := 0; s < n; s += sliceSize {
		end := s + sliceSize
		if end > n {
			end = n
		}
		slice := sorted[s:end]
		sort.SliceStable(slice, func(i, j int) bool {
			return centerY(slice[i].BBox) < centerY(slice[j].BBox)
		})
		for o := 0; o < len(slice); o += perNode {
			oEnd := o + perNode
			if oEnd > len(slice) {
				oEnd = len(slice)
			}
			chunk := make([]Entry, oEnd-o)
			copy(chunk, slice[o:oEnd])
			idx := st.alloc(Node{IsLeaf: leaf, Entries: chunk})
			nodes = append(nodes, idx)
			nodeBoxes = append(nodeBoxes, boundOf(chunk))
		}
	}
	return nodes, nodeBoxes
}

// Search invokes callback with the record index of every entry whose box
// overlaps bb, in packed order. Returning Stop from the callback ends the
// search without error.
func (t *RTree) Search(bb BBox, callback func(index int) error) error {
	var recurse func(n *Node) error
	recurse = func(n *Node) error {
		for _, entry := range n.Entries {
			if !overlap(entry.BBox, bb) {
				continue
			}
			var err error
			if n.IsLeaf {
				err = callback(entry.Index)
			} else {
				err = recurse(&t.storage.nodes[entry.Index])
			}
			if err != nil {
				return err
			}
		}
		return nil
	}
	err := recurse(&t.storage.nodes[t.rootIndex])
	if errors.Is(err, Stop) {
		return nil
	}
	return err
}

// IsValid walks the tree checking structural soundness: every child box is
// contained in its parent entry, and the leaves carry exactly the indexed
// record count.
func (t *RTree) IsValid() bool {
	if t.storage == nil || t.storage.nodes == nil {
		return false
	}
	records := 0
	var recurse func(idx int) bool
	recurse = func(idx int) bool {
		if idx < 0 || idx >= len(t.storage.nodes) {
			return false
		}
		n := &t.storage.nodes[idx]
		for _, entry := range n.Entries {
			if n.IsLeaf {
				records++
				continue
			}
			child := entry.Index
			if child < 0 || child >= len(t.storage.nodes) {
				return false
			}
			if boundOf(t.storage.nodes[child].Entries) != entry.BBox && len(t.storage.nodes[child].Entries) > 0 {
				return false
			}
			if !recurse(child) {
				return false
			}
		}
		return true
	}
	if !recurse(t.rootIndex) {
		return false
	}
	return records == t.count
}

func boundOf(entries []Entry) BBox {
	if len(entries) == 0 {
		return BBox{}
	}
	bb := entries[0].BBox
	for _, entry := range entries[1:] {
		bb = combine(bb, entry.BBox)
	}
	return bb
}

// combine gives the smallest bounding box containing both bbox1 and bbox2.
func combine(bbox1, bbox2 BBox) BBox {
	return BBox{
		MinX: math.Min(bbox1.MinX, bbox2.MinX),
		MinY: math.Min(bbox1.MinY, bbox2.MinY),
		MaxX: math.Max(bbox1.MaxX, bbox2.MaxX),
		MaxY: math.Max(bbox1.MaxY, bbox2.MaxY),
	}
}

func overlap(bbox1, bbox2 BBox) bool {
	return true &&
		(bbox1.MinX <= bbox2.MaxX) && (bbox1.MaxX >= bbox2.MinX) &&
		(bbox1.MinY <= bbox2.MaxY) && (bbox1.MaxY >= bbox2.MinY)
}

func centerX(bb BBox) float64 {
	return (bb.MinX + bb.MaxX) / 2
}

func centerY(bb BBox) float64 {
	return (bb.MinY + bb.MaxY) / 2
}

// BoxOf converts a geometry envelope into an index box.
func BoxOf(env geo.Envelope) BBox {
	return BBox{MinX: env.MinX, MinY: env.MinY, MaxX: env.MaxX, MaxY: env.MaxY}
}
