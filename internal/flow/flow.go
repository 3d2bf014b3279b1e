// Package flow is the control-flow graph built during analysis pass two.
// It records how branches, loops, and returns connect so that identifier
// types can be narrowed at a given source position.
package flow

// NodeKind tags a flow node.
type NodeKind int

const (
	Start NodeKind = iota
	Unreachable
	BranchLabel
	LoopLabel
	NamedLabel
	DeclPosition
	Assignment
	TrueCondition
	FalseCondition
	ForIStat
	Break
	Return
)

func (k NodeKind) String() string {
	switch k {
	case Start:
		return "start"
	case Unreachable:
		return "unreachable"
	case BranchLabel:
		return "branch-label"
	case LoopLabel:
		return "loop-label"
	case NamedLabel:
		return "named-label"
	case DeclPosition:
		return "decl"
	case Assignment:
		return "assignment"
	case TrueCondition:
		return "true-condition"
	case FalseCondition:
		return "false-condition"
	case ForIStat:
		return "for-i"
	case Break:
		return "break"
	case Return:
		return "return"
	}
	return "node"
}

// NodeID indexes a node within its Graph.
type NodeID int

// Sentinel node ids. Every Graph allocates them first.
const (
	StartID       NodeID = 0
	UnreachableID NodeID = 1
)

type antecedentKind int

const (
	antNone antecedentKind = iota
	antSingle
	antMultiple
)

type node struct {
	kind NodeKind
	ant  antecedentKind
	// single predecessor, or an index into Graph.lists when multiple.
	pred NodeID
	list int
	// data is the offset of the expression the node is bound to, -1 when
	// the node carries none.
	data int
}

// Graph holds the flow nodes of one analysis run plus the mapping from
// source offsets to the node in effect at that position.
type Graph struct {
	nodes []node
	// lists is the side table backing multiple-predecessor nodes.
	lists   [][]NodeID
	offsets map[int]NodeID
}

// NewGraph creates a Graph with the start and unreachable sentinels.
func NewGraph() *Graph {
	g := &Graph{offsets: map[int]NodeID{}}
	g.nodes = append(g.nodes,
		node{kind: Start, data: -1},
		node{kind: Unreachable, data: -1},
	)
	return g
}

// NewNode allocates a flow node. data is the source offset the node is
// bound to; pass -1 for none.
func (g *Graph) NewNode(kind NodeKind, data int) NodeID {
	g.nodes = append(g.nodes, node{kind: kind, data: data})
	return NodeID(len(g.nodes) - 1)
}

// Kind returns the kind of a node.
func (g *Graph) Kind(id NodeID) NodeKind {
	return g.nodes[id].kind
}

// Data returns the source offset a node is bound to, -1 when none.
func (g *Graph) Data(id NodeID) int {
	return g.nodes[id].data
}

// AddAntecedent links pred as a predecessor of id. No-op when either
// endpoint is the unreachable sentinel. The first antecedent is stored
// inline; a second converts the node to a side list; duplicates are
// dropped.
func (g *Graph) AddAntecedent(id, pred NodeID) {
	if id == UnreachableID || pred == UnreachableID {
		return
	}
	n := &g.nodes[id]
	switch n.ant {
	case antNone:
		n.ant = antSingle
		n.pred = pred
	case antSingle:
		if n.pred == pred {
			return
		}
		g.lists = append(g.lists, []NodeID{n.pred, pred})
		n.ant = antMultiple
		n.list = len(g.lists) - 1
	case antMultiple:
		for _, p := range g.lists[n.list] {
			if p == pred {
				return
			}
		}
		g.lists[n.list] = append(g.lists[n.list], pred)
	}
}

// Antecedents returns a node's predecessors.
func (g *Graph) Antecedents(id NodeID) []NodeID {
	n := g.nodes[id]
	switch n.ant {
	case antSingle:
		return []NodeID{n.pred}
	case antMultiple:
		return g.lists[n.list]
	}
	return nil
}

// FinishLabel merges the current flow into a label node. When the label is
// unreachable nothing merges into dead code and current is returned
// unchanged; otherwise current becomes a predecessor of the label and the
// label is the new current flow.
func (g *Graph) FinishLabel(label, current NodeID) NodeID {
	if label == UnreachableID {
		return current
	}
	g.AddAntecedent(label, current)
	return label
}

// BindOffset records the flow node in effect at a source offset, enabling
// "what is known about X here" queries.
func (g *Graph) BindOffset(offset int, id NodeID) {
	g.offsets[offset] = id
}

// AtOffset returns the flow node bound to an offset.
func (g *Graph) AtOffset(offset int) (NodeID, bool) {
	id, ok := g.offsets[offset]
	return id, ok
}

// Reachable reports whether the node's antecedent chain reaches the start
// sentinel. Nodes that cannot are dead code.
func (g *Graph) Reachable(id NodeID) bool {
	seen := make(map[NodeID]bool)
	var walk func(NodeID) bool
	walk = func(n NodeID) bool {
		if n == StartID {
			return true
		}
		if n == UnreachableID || seen[n] {
			return false
		}
		seen[n] = true
		for _, p := range g.Antecedents(n) {
			if walk(p) {
				return true
			}
		}
		return false
	}
	return walk(id)
}

// Len returns the number of allocated nodes including sentinels.
func (g *Graph) Len() int {
	return len(g.nodes)
}
