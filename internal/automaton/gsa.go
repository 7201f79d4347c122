// Package automaton implements the Generalized Suffix Automaton (GSA)
// that backs every substring lookup in the engine. A GSA is the minimal
// DFA accepting all substrings of a set of strings; each state is an
// equivalence class of substrings and carries the sorted set of record
// ids whose string contains a member of that class.
//
// Construction follows the classical online suffix-automaton algorithm
// (Blumer et al.), generalized to multiple strings by resetting the
// "last" cursor before each new string, per spec §4.3.
package automaton

import (
	"errors"
	"sort"
)

// ErrEmptyAutomaton is returned by operations that require at least one
// state to have been built.
var ErrEmptyAutomaton = errors.New("automaton: no states built")

// transition is a single sparse character -> state edge. States rarely
// have more than a handful of outgoing transitions in practice, so a
// sorted slice searched by binary search is cheaper than a map per
// state, per spec §4.3's "small open-addressing or sorted-vector map"
// guidance.
type transition struct {
	ch byte
	to int32
}

// State is one equivalence class of substrings.
type State struct {
	Len  int   // length of the longest substring in this class
	Link int32 // suffix link, -1 for the initial state

	next []transition // sorted by ch

	// IDs is the sorted, duplicate-free set of record ids whose string
	// contains a substring represented by this state. Released after
	// build via DropIDs since it is only needed during construction and
	// for statistics.
	IDs []uint32
}

// Next returns the destination state for character c, or -1 if no such
// transition exists.
func (s *State) Next(c byte) int32 {
	i := sort.Search(len(s.next), func(i int) bool { return s.next[i].ch >= c })
	if i < len(s.next) && s.next[i].ch == c {
		return s.next[i].to
	}
	return -1
}

func (s *State) setNext(c byte, to int32) {
	i := sort.Search(len(s.next), func(i int) bool { return s.next[i].ch >= c })
	if i < len(s.next) && s.next[i].ch == c {
		s.next[i].to = to
		return
	}
	s.next = append(s.next, transition{})
	copy(s.next[i+1:], s.next[i:])
	s.next[i] = transition{ch: c, to: to}
}

// Transitions returns the destination states reachable directly from s,
// in character order. Used by the build scheduler to find successors.
func (s *State) Transitions() []int32 {
	out := make([]int32, len(s.next))
	for i, t := range s.next {
		out[i] = t.to
	}
	return out
}

// GSA is the Generalized Suffix Automaton over every string added via
// AddString.
type GSA struct {
	States []*State
	last   int32
}

// New creates a GSA with only the initial state (state 0), whose
// suffix link is -1 and whose id set starts empty and grows to the full
// record population as strings are added.
func New() *GSA {
	g := &GSA{}
	g.States = append(g.States, &State{Len: 0, Link: -1})
	g.last = 0
	return g
}

// AddString extends the automaton's recognized language with s, tagging
// every resulting state's id set with id. Amortized O(|s|*alphabet) per
// spec §4.3.
//
// The id-set walk happens after every character, not once at the end of
// the string: g.last after processing s[0..i] is the state for that
// prefix, and its suffix-link ancestors are exactly the states for every
// substring of s ending at position i. Only propagating once from the
// final g.last (the full string) would tag just the full string's
// suffixes and miss substrings that end earlier than the last
// character, so every extend step gets its own propagateID walk.
func (g *GSA) AddString(id uint32, s string) {
	g.last = 0
	for i := 0; i < len(s); i++ {
		g.extend(s[i], id)
		g.propagateID(g.last, id)
	}
}

// extend performs one character's worth of the classical SAM extension
// algorithm, steps 1-4 of spec §4.3. Id tagging is left to the
// propagateID walk AddString runs afterward; the only id-set work extend
// does is giving a new clone a copy of q's id set.
func (g *GSA) extend(c byte, id uint32) {
	lastState := g.States[g.last]

	if q := lastState.Next(c); q != -1 && g.States[q].Len == lastState.Len+1 {
		g.last = q
		return
	}

	cur := int32(len(g.States))
	g.States = append(g.States, &State{Len: lastState.Len + 1, Link: -1})

	p := g.last
	var q int32 = -1
	for p != -1 {
		pState := g.States[p]
		nxt := pState.Next(c)
		if nxt != -1 {
			q = nxt
			break
		}
		pState.setNext(c, cur)
		p = pState.Link
	}

	switch {
	case p == -1:
		g.States[cur].Link = 0
	case g.States[q].Len == g.States[p].Len+1:
		g.States[cur].Link = q
	default:
		clone := int32(len(g.States))
		qState := g.States[q]
		cloneState := &State{
			Len:  g.States[p].Len + 1,
			Link: qState.Link,
			next: append([]transition(nil), qState.next...),
			IDs:  append([]uint32(nil), qState.IDs...),
		}
		g.States = append(g.States, cloneState)

		for p != -1 && g.States[p].Next(c) == q {
			g.States[p].setNext(c, clone)
			p = g.States[p].Link
		}

		qState.Link = clone
		g.States[cur].Link = clone
	}

	g.last = cur
}

// appendID adds id to state i's id set if not already present, keeping
// the set sorted, per the "ids is maintained in ascending order"
// invariant of spec §3. Newly created states during AddString append in
// increasing-id order by construction (ids only grow as 0..N-1), so this
// is a cheap tail-append, not a general insertion sort.
func (g *GSA) appendID(i int, id uint32) bool {
	ids := g.States[i].IDs
	if n := len(ids); n > 0 && ids[n-1] == id {
		return false
	}
	g.States[i].IDs = append(ids, id)
	return true
}

// propagateID walks suffix links from state i (the state for the prefix
// just extended) up to the initial state, appending id to every visited
// state's id set and stopping as soon as a state already contains id -
// every later character's walk up the same chain is cut short the
// moment it rejoins a state an earlier character already tagged. This
// realizes the subset invariant ids[v] subseteq ids[link[v]] in O(|s|)
// amortized per string, per §9's "do not re-scan the whole string"
// guidance.
func (g *GSA) propagateID(i int32, id uint32) {
	for i != -1 {
		if !g.appendID(int(i), id) {
			return
		}
		i = g.States[i].Link
	}
}

// Query walks transitions from the initial state over p, returning the
// destination state or -1 if any transition is missing. The empty
// string returns state 0, matching every record.
func (g *GSA) Query(p string) int32 {
	cur := int32(0)
	for i := 0; i < len(p); i++ {
		cur = g.States[cur].Next(p[i])
		if cur == -1 {
			return -1
		}
	}
	return cur
}

// Size returns the number of states.
func (g *GSA) Size() int { return len(g.States) }

// SizeTot returns the sum of |ids| across all states.
func (g *GSA) SizeTot() int {
	total := 0
	for _, st := range g.States {
		total += len(st.IDs)
	}
	return total
}

// TopoSort returns state indices in order of non-decreasing Len, a valid
// topological order of the suffix-automaton DAG (descendants, which are
// always longer in Len along a `next` edge, come later).
//
// Note: along a `next` transition u->v, Len[v] > Len[u] always holds for
// the classical SAM, so sorting by ascending Len visits ancestors before
// descendants. Callers that need descendants-before-ancestors (the build
// schedulers) must iterate this slice in reverse.
func (g *GSA) TopoSort() []int32 {
	order := make([]int32, len(g.States))
	for i := range order {
		order[i] = int32(i)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return g.States[order[i]].Len < g.States[order[j]].Len
	})
	return order
}

// DropIDs releases every state's id slice. Safe to call once the build
// scheduler has finished consuming them (ids are only needed during
// construction and for statistics, per spec §3).
func (g *GSA) DropIDs() {
	for _, st := range g.States {
		st.IDs = nil
	}
}

// DepthBucket is one row of GetStatistics' observational output.
type DepthBucket struct {
	Depth       int
	NumStates   int
	MedianIDs   int
	MeanIDs     float64
}

// GetStatistics buckets states by depth (minimum transition count from
// the initial state) and reports the median/mean id-set size per
// bucket. Observational only, grounded on the original's per-depth
// logging in pre_filtering.cpp's build_gsa.
func (g *GSA) GetStatistics() []DepthBucket {
	depths := g.depths()

	byDepth := map[int][]int{}
	maxDepth := 0
	for i, d := range depths {
		byDepth[d] = append(byDepth[d], len(g.States[i].IDs))
		if d > maxDepth {
			maxDepth = d
		}
	}

	buckets := make([]DepthBucket, 0, maxDepth+1)
	for d := 0; d <= maxDepth; d++ {
		sizes := byDepth[d]
		if len(sizes) == 0 {
			continue
		}
		sorted := append([]int(nil), sizes...)
		sort.Ints(sorted)

		sum := 0
		for _, v := range sorted {
			sum += v
		}
		median := sorted[len(sorted)/2]
		mean := float64(sum) / float64(len(sorted))

		buckets = append(buckets, DepthBucket{
			Depth:     d,
			NumStates: len(sorted),
			MedianIDs: median,
			MeanIDs:   mean,
		})
	}
	return buckets
}

// depths computes, for every state, the minimum number of transitions
// from the initial state via a BFS over `next` edges.
func (g *GSA) depths() []int {
	depth := make([]int, len(g.States))
	for i := range depth {
		depth[i] = -1
	}
	depth[0] = 0

	queue := []int32{0}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range g.States[u].Transitions() {
			if depth[v] == -1 {
				depth[v] = depth[u] + 1
				queue = append(queue, v)
			}
		}
	}
	return depth
}

// CheckSubsetInvariant verifies, for every transition and suffix link,
// that the child's id set is a subset of the parent's. It is used by
// tests; the build schedulers and the query path never call it.
func (g *GSA) CheckSubsetInvariant() error {
	for u, st := range g.States {
		for _, t := range st.next {
			if !isSubset(g.States[t.to].IDs, st.IDs) {
				return &invariantError{kind: "transition", from: u, to: int(t.to)}
			}
		}
		if st.Link != -1 {
			if !isSubset(st.IDs, g.States[st.Link].IDs) {
				return &invariantError{kind: "suffix link", from: u, to: int(st.Link)}
			}
		}
	}
	return nil
}

func isSubset(child, parent []uint32) bool {
	pi := 0
	for _, id := range child {
		for pi < len(parent) && parent[pi] < id {
			pi++
		}
		if pi >= len(parent) || parent[pi] != id {
			return false
		}
	}
	return true
}

type invariantError struct {
	kind     string
	from, to int
}

func (e *invariantError) Error() string {
	return "automaton: subset invariant violated across " + e.kind
}
