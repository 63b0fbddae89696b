// Package segment holds the interval machinery shared by simplification and
// ancestor linking: a per-run arena of linked segments, per-node ancestry
// lists built on it, the segment-overlap sweep and the per-child edge buffer.
//
// Everything here is scratch state owned by a single run. Nothing is safe
// for concurrent use.
package segment

import (
	"math"
	"sort"
)

// Handle addresses a segment in an Arena.
type Handle int32

// Nil is the handle that addresses nothing.
const Nil Handle = -1

// Segment maps the interval [Left, Right) to Node.
type Segment struct {
	Left  float64
	Right float64
	Node  int32
}

// Seg is an arena cell: a segment plus its intrusive link.
type Seg struct {
	Segment
	Next Handle
}

// Arena is a growable pool of segments. Handles stay valid until Reset;
// pointers returned by At do not survive the next call to New.
type Arena struct {
	segs []Seg
}

// NewArena returns an arena with room for capacity segments.
func NewArena(capacity int) *Arena {
	return &Arena{segs: make([]Seg, 0, capacity)}
}

// New allocates an unlinked segment.
func (a *Arena) New(left, right float64, node int32) Handle {
	a.segs = append(a.segs, Seg{Segment: Segment{Left: left, Right: right, Node: node}, Next: Nil})
	return Handle(len(a.segs) - 1)
}

// At returns the cell for h.
func (a *Arena) At(h Handle) *Seg {
	return &a.segs[h]
}

// Len returns the number of allocated segments.
func (a *Arena) Len() int {
	return len(a.segs)
}

// Reset releases every segment at once.
func (a *Arena) Reset() {
	a.segs = a.segs[:0]
}

// Map keeps one ordered, disjoint segment list per node.
type Map struct {
	arena *Arena
	head  []Handle
	tail  []Handle
}

// NewMap returns a map with an empty list for each of n nodes.
func NewMap(n int) *Map {
	m := &Map{
		arena: NewArena(2 * n),
		head:  make([]Handle, n),
		tail:  make([]Handle, n),
	}
	for j := range m.head {
		m.head[j] = Nil
		m.tail[j] = Nil
	}
	return m
}

// Empty reports whether node k has no segments.
func (m *Map) Empty(k int32) bool {
	return m.head[k] == Nil
}

// Tail returns the last segment of node k. The list must be non-empty.
func (m *Map) Tail(k int32) Segment {
	return m.arena.At(m.tail[k]).Segment
}

// Add appends [left, right) -> node to the list of k. When the tail ends at
// left and maps to the same node it is extended instead.
func (m *Map) Add(k int32, left, right float64, node int32) {
	t := m.tail[k]
	if t == Nil {
		h := m.arena.New(left, right, node)
		m.head[k], m.tail[k] = h, h
		return
	}
	tail := m.arena.At(t)
	if tail.Right == left && tail.Node == node {
		tail.Right = right
		return
	}
	h := m.arena.New(left, right, node)
	m.arena.At(t).Next = h
	m.tail[k] = h
}

// Clear detaches the list of k. Its cells stay allocated until Reset.
func (m *Map) Clear(k int32) {
	m.head[k], m.tail[k] = Nil, Nil
}

// Each calls fn for every segment of k in order.
func (m *Map) Each(k int32, fn func(Segment)) {
	for h := m.head[k]; h != Nil; {
		s := m.arena.At(h)
		next := s.Next
		fn(s.Segment)
		h = next
	}
}

// Overlapping calls fn with the intersection of [left, right) and every
// segment of k that overlaps it. The list is left unchanged.
func (m *Map) Overlapping(k int32, left, right float64, fn func(Segment)) {
	m.Each(k, func(s Segment) {
		if s.Right > left && right > s.Left {
			fn(Segment{Left: max(s.Left, left), Right: min(s.Right, right), Node: s.Node})
		}
	})
}

// Extract removes [left, right) from the list of k, calling fn with each
// removed piece in order. Segments that straddle an end are split.
func (m *Map) Extract(k int32, left, right float64, fn func(Segment)) {
	a := m.arena
	head, prev := Nil, Nil
	link := func(h Handle) {
		if prev == Nil {
			head = h
		} else {
			a.At(prev).Next = h
		}
	}
	x := m.head[k]
	for x != Nil {
		s := a.At(x)
		if !(s.Right > left && right > s.Left) {
			if prev == Nil {
				head = x
			}
			prev = x
			x = s.Next
			continue
		}
		y := Segment{Left: max(s.Left, left), Right: min(s.Right, right), Node: s.Node}
		fn(y)
		if s.Left != y.Left {
			h := a.New(s.Left, y.Left, s.Node)
			link(h)
			prev = h
			s = a.At(x)
		}
		next := s.Next
		if s.Right != y.Right {
			s.Left = y.Right
			next = x
		}
		link(next)
		x = next
	}
	m.head[k], m.tail[k] = head, prev
}

// Reset empties every list and releases the arena.
func (m *Map) Reset() {
	for j := range m.head {
		m.head[j] = Nil
		m.tail[j] = Nil
	}
	m.arena.Reset()
}

// Overlapper sweeps a set of segments left to right and yields the maximal
// intervals over which the set of covering segments is constant.
type Overlapper struct {
	segs        []Segment
	overlapping []Segment
	n           int
	index       int
	left        float64
	right       float64
}

// Reset loads segs for a new sweep. segs is copied.
func (o *Overlapper) Reset(segs []Segment) {
	o.segs = append(o.segs[:0], segs...)
	sort.Slice(o.segs, func(a, b int) bool {
		if o.segs[a].Left != o.segs[b].Left {
			return o.segs[a].Left < o.segs[b].Left
		}
		return o.segs[a].Node < o.segs[b].Node
	})
	o.n = len(segs)
	o.segs = append(o.segs, Segment{Left: math.MaxFloat64, Right: math.MaxFloat64, Node: -1})
	o.overlapping = o.overlapping[:0]
	o.index = 0
	o.left = 0
	o.right = math.MaxFloat64
}

// Next returns the next interval and the segments covering it. The returned
// slice is reused by the following call. ok is false once the sweep ends.
func (o *Overlapper) Next() (left, right float64, overlapping []Segment, ok bool) {
	if o.index < o.n {
		o.left = o.right
		o.compact()
		if len(o.overlapping) == 0 {
			o.left = o.segs[o.index].Left
		}
		for o.index < o.n && o.segs[o.index].Left == o.left {
			o.overlapping = append(o.overlapping, o.segs[o.index])
			o.index++
		}
		o.right = o.segs[o.index].Left
		for _, s := range o.overlapping {
			o.right = min(o.right, s.Right)
		}
		return o.left, o.right, o.overlapping, true
	}
	o.left = o.right
	o.right = math.MaxFloat64
	o.compact()
	if len(o.overlapping) == 0 {
		return 0, 0, nil, false
	}
	for _, s := range o.overlapping {
		o.right = min(o.right, s.Right)
	}
	return o.left, o.right, o.overlapping, true
}

// compact drops the segments that end at or before the current left.
func (o *Overlapper) compact() {
	k := 0
	for _, s := range o.overlapping {
		if s.Right > o.left {
			o.overlapping[k] = s
			k++
		}
	}
	o.overlapping = o.overlapping[:k]
}

// Interval is a half-open genome interval.
type Interval struct {
	Left  float64
	Right float64
}

// EdgeBuffer collects the output edges of one parent, grouped by child.
type EdgeBuffer struct {
	lists    [][]Interval
	children []int32
}

// NewEdgeBuffer returns a buffer for child ids in [0, n).
func NewEdgeBuffer(n int) *EdgeBuffer {
	return &EdgeBuffer{lists: make([][]Interval, n)}
}

// Record buffers [left, right) for child, extending the child's last
// interval when it ends at left.
func (b *EdgeBuffer) Record(left, right float64, child int32) {
	list := b.lists[child]
	if len(list) == 0 {
		b.children = append(b.children, child)
		b.lists[child] = append(list, Interval{Left: left, Right: right})
		return
	}
	if tail := &list[len(list)-1]; tail.Right == left {
		tail.Right = right
		return
	}
	b.lists[child] = append(list, Interval{Left: left, Right: right})
}

// Pending returns the number of buffered children.
func (b *EdgeBuffer) Pending() int {
	return len(b.children)
}

// Flush emits every buffered interval as an edge from parent, children in
// increasing id order, and empties the buffer. It returns the number of
// edges emitted.
func (b *EdgeBuffer) Flush(parent int32, emit func(left, right float64, parent, child int32) error) (int, error) {
	sort.Slice(b.children, func(i, j int) bool { return b.children[i] < b.children[j] })
	n := 0
	for _, child := range b.children {
		for _, iv := range b.lists[child] {
			if err := emit(iv.Left, iv.Right, parent, child); err != nil {
				return n, err
			}
			n++
		}
		b.lists[child] = b.lists[child][:0]
	}
	b.children = b.children[:0]
	return n, nil
}
