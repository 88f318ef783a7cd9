package scheduler

import (
	"github.com/xentripetal/verseengine/access"
	"github.com/xentripetal/verseengine/internal/bitset"
)

// SetLabel identifies a system set. Any comparable value works: a string
// for a named set, a small typed struct value `type MySet struct{}` used as
// a singleton label, or an enum constant — the graph only ever compares
// labels for equality and uses them as map keys.
type SetLabel any

// edgeKind distinguishes ordering strength: a plain before/after edge
// forces a deferred-command flush between the two systems if the earlier
// one has deferred commands; the ignore_deferred variant orders execution
// without that barrier.
type edgeKind uint8

const (
	edgeBefore edgeKind = iota
	edgeBeforeIgnoreDeferred
	edgeAmbiguousWith
)

// NodeRef points at either a single system (by index) or every system in a
// set (by label), letting ordering and ambiguity edges be declared at
// either granularity.
type NodeRef struct {
	sysIdx int
	label  SetLabel
	isSet  bool
}

// Sys refers to a single system by its Graph.AddSystem index.
func Sys(i int) NodeRef { return NodeRef{sysIdx: i} }

// Set refers to every system added to label via Graph.AddToSet.
func Set(label SetLabel) NodeRef { return NodeRef{label: label, isSet: true} }

type rawEdge struct {
	from, to NodeRef
	kind     edgeKind
}

// Graph accumulates systems, set membership and ordering/ambiguity edges,
// then builds a SystemSchedule via Build.
type Graph struct {
	systems []*System
	setsOf  map[int][]SetLabel
	members map[any][]int // label -> member system indices, keyed via labelKey

	edges []rawEdge

	setConditions map[any][]Condition
	ignore        *access.GloballyIgnoredAmbiguities
}

// NewGraph returns an empty Graph.
func NewGraph() *Graph {
	return &Graph{
		setsOf:        make(map[int][]SetLabel),
		members:       make(map[any][]int),
		setConditions: make(map[any][]Condition),
	}
}

func labelKey(l SetLabel) any { return l }

// AddSystem registers sys and returns its index, stable for the life of the
// graph.
func (g *Graph) AddSystem(sys *System) int {
	g.systems = append(g.systems, sys)
	return len(g.systems) - 1
}

// AddApplyDeferred registers an explicit ApplyDeferredSystem flush-point
// node and returns its index, so the caller can wire it into the order with
// Before/After/Chain the same as any other system, e.g.
// g.Chain(Sys(spawner), Sys(g.AddApplyDeferred()), Sys(reader)) to guarantee
// a flush lands exactly there even if spawner never calls .Deferred().
func (g *Graph) AddApplyDeferred() int {
	return g.AddSystem(ApplyDeferredSystem())
}

// AddToSet records that system sysIdx is a member of label.
func (g *Graph) AddToSet(sysIdx int, label SetLabel) {
	g.setsOf[sysIdx] = append(g.setsOf[sysIdx], label)
	k := labelKey(label)
	g.members[k] = append(g.members[k], sysIdx)
}

// AddSetCondition records a run condition for label; Build copies it into
// SystemSchedule.SetConditions. The executors in this package evaluate only
// each system's own Conditions and do not consult SetConditions.
func (g *Graph) AddSetCondition(label SetLabel, c Condition) {
	g.setConditions[labelKey(label)] = append(g.setConditions[labelKey(label)], c)
}

// Before declares that every system reachable from `from` must run before
// every system reachable from `to`, forcing a deferred-command flush
// between them if the earlier system has one.
func (g *Graph) Before(from, to NodeRef) {
	g.edges = append(g.edges, rawEdge{from: from, to: to, kind: edgeBefore})
}

// After is sugar for Before(to, from).
func (g *Graph) After(from, to NodeRef) { g.Before(to, from) }

// BeforeIgnoreDeferred is Before without the implied flush barrier.
func (g *Graph) BeforeIgnoreDeferred(from, to NodeRef) {
	g.edges = append(g.edges, rawEdge{from: from, to: to, kind: edgeBeforeIgnoreDeferred})
}

// AfterIgnoreDeferred is sugar for BeforeIgnoreDeferred(to, from).
func (g *Graph) AfterIgnoreDeferred(from, to NodeRef) { g.BeforeIgnoreDeferred(to, from) }

// Chain declares a strict sequential order over refs, each implying a
// Before edge to the next (and so a flush barrier after any Deferred one).
func (g *Graph) Chain(refs ...NodeRef) {
	for i := 0; i+1 < len(refs); i++ {
		g.Before(refs[i], refs[i+1])
	}
}

// AmbiguousWith suppresses the access-conflict diagnostic between every
// pair of systems reachable from a and b.
func (g *Graph) AmbiguousWith(a, b NodeRef) {
	g.edges = append(g.edges, rawEdge{from: a, to: b, kind: edgeAmbiguousWith})
}

// SetIgnoreList installs the world-wide set of component/resource IDs that
// must never be blamed for a conflict.
func (g *Graph) SetIgnoreList(ignore *access.GloballyIgnoredAmbiguities) {
	g.ignore = ignore
}

func (g *Graph) membersOf(ref NodeRef) []int {
	if !ref.isSet {
		return []int{ref.sysIdx}
	}
	return g.members[labelKey(ref.label)]
}

// flatEdge is a system-index-to-system-index edge after set expansion.
type flatEdge struct {
	from, to     int
	requiresFlush bool
}

// SystemSchedule is the compiled output of Graph.Build: a flat execution
// order plus the bookkeeping the executor and condition evaluator need.
type SystemSchedule struct {
	Systems []*System
	Order   []int // indices into Systems, in an order consistent with every declared edge

	// Barriers[i] reports whether a deferred-command flush must happen
	// between Order[i] and Order[i+1].
	Barriers []bool

	// Predecessors[i] lists every system index that some declared ordering
	// edge (Before/After/Chain, with or without the Deferred flush) requires
	// to finish running before Systems[i] starts. This is independent of
	// Barriers: a barrier only exists where the edge's source has deferred
	// commands to flush, but the ordering itself — "every observable effect
	// of the earlier system precedes every observation by the later one" —
	// applies to every edge, flush or not. An executor that only serializes
	// at barrier points and otherwise runs a whole segment concurrently must
	// still honor Predecessors within that segment.
	Predecessors [][]int

	// SetMembership[i] is the bitset of set indices (see SetIndex) that
	// Systems[i] belongs to.
	SetMembership []*bitset.Set
	SetIndex      map[any]int
	SetConditions map[int][]Condition
}

// Build validates the graph and compiles a SystemSchedule: it flattens set
// membership into edges between individual systems, performs a topological
// sort that fails on cycles, and checks every pair of systems lacking an
// ordering edge for an access conflict neither an ambiguous_with edge nor
// the ignore list excuses.
func (g *Graph) Build() (*SystemSchedule, error) {
	n := len(g.systems)
	ambiguous := make(map[[2]int]bool)
	var ordering []flatEdge

	for _, e := range g.edges {
		froms := g.membersOf(e.from)
		tos := g.membersOf(e.to)
		switch e.kind {
		case edgeBefore, edgeBeforeIgnoreDeferred:
			for _, f := range froms {
				for _, t := range tos {
					if f == t {
						continue
					}
					ordering = append(ordering, flatEdge{from: f, to: t, requiresFlush: e.kind == edgeBefore})
				}
			}
		case edgeAmbiguousWith:
			for _, f := range froms {
				for _, t := range tos {
					ambiguous[pairKey(f, t)] = true
				}
			}
		}
	}

	order, err := topoSort(n, ordering)
	if err != nil {
		return nil, err
	}

	hasEdge := make(map[[2]int]bool, len(ordering))
	for _, e := range ordering {
		hasEdge[[2]int{e.from, e.to}] = true
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if hasEdge[[2]int{i, j}] || hasEdge[[2]int{j, i}] {
				continue
			}
			if ambiguous[pairKey(i, j)] {
				continue
			}
			conflicts := g.systems[i].Meta.Access.GetConflicts(g.systems[j].Meta.Access, g.ignore)
			if conflicts.HasAnySet() {
				return nil, newDiagnostic(CodeAccessConflict,
					"systems %q and %q have no declared order and conflict on component/resource ids %v",
					g.systems[i].Meta.Name, g.systems[j].Meta.Name, conflicts.Slice())
			}
		}
	}

	setIndex := make(map[any]int)
	for _, labels := range g.setsOf {
		for _, l := range labels {
			k := labelKey(l)
			if _, ok := setIndex[k]; !ok {
				setIndex[k] = len(setIndex)
			}
		}
	}

	membership := make([]*bitset.Set, n)
	for i := range membership {
		membership[i] = bitset.New(len(setIndex))
	}
	for sysIdx, labels := range g.setsOf {
		for _, l := range labels {
			membership[sysIdx].Set(setIndex[labelKey(l)])
		}
	}

	setConditions := make(map[int][]Condition)
	for k, conds := range g.setConditions {
		if idx, ok := setIndex[k]; ok {
			setConditions[idx] = conds
		}
	}

	barriers := make([]bool, 0)
	if len(order) > 1 {
		barriers = make([]bool, len(order)-1)
		for i := 0; i+1 < len(order); i++ {
			from, to := order[i], order[i+1]
			if hasFlushEdge(ordering, from, to) && g.systems[from].Meta.HasDeferred {
				barriers[i] = true
			}
			// An explicit ApplyDeferred node always forces a flush right
			// after its own position, regardless of the Deferred flag on
			// either neighbor — that's the whole point of naming it
			// explicitly rather than relying on inference.
			if g.systems[from].Meta.IsApplyDeferred {
				barriers[i] = true
			}
		}
		// A flush edge whose two systems are not adjacent in Order still
		// needs its barrier: place it right before the later system.
		pos := make([]int, n)
		for i, idx := range order {
			pos[idx] = i
		}
		for _, e := range ordering {
			if e.requiresFlush && g.systems[e.from].Meta.HasDeferred {
				barriers[pos[e.to]-1] = true
			}
		}
	}

	predecessors := make([][]int, n)
	for _, e := range ordering {
		predecessors[e.to] = append(predecessors[e.to], e.from)
	}

	return &SystemSchedule{
		Systems:       g.systems,
		Order:         order,
		Barriers:      barriers,
		Predecessors:  predecessors,
		SetMembership: membership,
		SetIndex:      setIndex,
		SetConditions: setConditions,
	}, nil
}

func hasFlushEdge(edges []flatEdge, from, to int) bool {
	for _, e := range edges {
		if e.from == from && e.to == to && e.requiresFlush {
			return true
		}
	}
	return false
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// topoSort runs Kahn's algorithm over n nodes and the given edges, failing
// with CodeOrderingCycle if a cycle makes a full ordering impossible.
func topoSort(n int, edges []flatEdge) ([]int, error) {
	adj := make([][]int, n)
	indegree := make([]int, n)
	for _, e := range edges {
		adj[e.from] = append(adj[e.from], e.to)
		indegree[e.to]++
	}

	var queue []int
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, n)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		for _, next := range adj[cur] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != n {
		return nil, newDiagnostic(CodeOrderingCycle, "ordering graph has a cycle among %d systems not yet scheduled", n-len(order))
	}
	return order, nil
}
