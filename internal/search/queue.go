package search

import "container/heap"

// Node is an entry in the open list. Parent links form the search tree that
// paths are rebuilt from.
type Node[S comparable] struct {
	State  S
	F, G   float64
	Parent *Node[S]
	seq    uint64
	index  int // heap index
}

// Queue is a best-first open list ordered by f, then lower g, then insertion
// order. Stale entries are not removed; callers skip them when popped.
type Queue[S comparable] struct {
	ol  openList[S]
	seq uint64
}

// Push adds state with the given scores and returns its node.
func (q *Queue[S]) Push(state S, f, g float64, parent *Node[S]) *Node[S] {
	n := &Node[S]{State: state, F: f, G: g, Parent: parent, seq: q.seq}
	q.seq++
	heap.Push(&q.ol, n)
	return n
}

// Pop removes and returns the best node, or nil when empty.
func (q *Queue[S]) Pop() *Node[S] {
	if len(q.ol) == 0 {
		return nil
	}
	return heap.Pop(&q.ol).(*Node[S])
}

// Len returns the number of queued entries, stale ones included.
func (q *Queue[S]) Len() int { return len(q.ol) }

// States returns the queued states in insertion order, stale ones included.
func (q *Queue[S]) States() []S {
	nodes := make([]*Node[S], len(q.ol))
	copy(nodes, q.ol)
	// insertion sort by seq; the open list is small when workings are drawn
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && nodes[j].seq < nodes[j-1].seq; j-- {
			nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
		}
	}
	out := make([]S, len(nodes))
	for i, n := range nodes {
		out[i] = n.State
	}
	return out
}

// Walk returns the states from the root of n's tree down to n.
func Walk[S comparable](n *Node[S]) []S {
	var out []S
	for ; n != nil; n = n.Parent {
		out = append(out, n.State)
	}
	// Reverse
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

type openList[S comparable] []*Node[S]

func (ol openList[S]) Len() int { return len(ol) }
func (ol openList[S]) Less(i, j int) bool {
	a, b := ol[i], ol[j]
	if a.F != b.F {
		return a.F < b.F
	}
	if a.G != b.G {
		return a.G < b.G
	}
	return a.seq < b.seq
}
func (ol openList[S]) Swap(i, j int) { ol[i], ol[j] = ol[j], ol[i]; ol[i].index = i; ol[j].index = j }
func (ol *openList[S]) Push(x any)   { n := x.(*Node[S]); n.index = len(*ol); *ol = append(*ol, n) }
func (ol *openList[S]) Pop() any {
	old := *ol
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*ol = old[:len(old)-1]
	return n
}
