package graphs

import (
	"fmt"

	"github.com/reusee/grex/grexvm"
)

// Graph is the mutable handle injected into runs as the `graph` global.
// Node identity is stable for the lifetime of a run: identity tokens
// and colors key off the pointers.
type Graph struct {
	Directed bool
	Multi    bool
	Attrs    *grexvm.Dict

	Nodes []*Node
	Edges []*Edge

	nodesByID map[string]*Node
}

type Node struct {
	ID    string
	Name  string
	Value any
	Attrs *grexvm.Dict
}

type Edge struct {
	Source *Node
	Target *Node
	Attrs  *grexvm.Dict
}

func New(directed bool, multi bool) *Graph {
	return &Graph{
		Directed:  directed,
		Multi:     multi,
		Attrs:     grexvm.NewDict(),
		nodesByID: make(map[string]*Node),
	}
}

func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodesByID[id]
	return n, ok
}

func (g *Graph) AddNode(id string) (*Node, error) {
	if n, ok := g.nodesByID[id]; ok {
		return n, nil
	}
	n := &Node{
		ID:    id,
		Name:  id,
		Value: id,
		Attrs: grexvm.NewDict(),
	}
	g.Nodes = append(g.Nodes, n)
	g.nodesByID[id] = n
	return n, nil
}

func (g *Graph) AddEdge(sourceID, targetID string) (*Edge, error) {
	source, err := g.AddNode(sourceID)
	if err != nil {
		return nil, err
	}
	target, err := g.AddNode(targetID)
	if err != nil {
		return nil, err
	}
	if !g.Multi {
		for _, e := range g.Edges {
			if e.connects(source, target, g.Directed) {
				return e, nil
			}
		}
	}
	e := &Edge{
		Source: source,
		Target: target,
		Attrs:  grexvm.NewDict(),
	}
	g.Edges = append(g.Edges, e)
	return e, nil
}

func (e *Edge) connects(a, b *Node, directed bool) bool {
	if e.Source == a && e.Target == b {
		return true
	}
	if !directed && e.Source == b && e.Target == a {
		return true
	}
	return false
}

func (g *Graph) RemoveNode(id string) error {
	n, ok := g.nodesByID[id]
	if !ok {
		return fmt.Errorf("node not in graph: %s", id)
	}
	delete(g.nodesByID, id)
	for i, x := range g.Nodes {
		if x == n {
			g.Nodes = append(g.Nodes[:i], g.Nodes[i+1:]...)
			break
		}
	}
	kept := g.Edges[:0]
	for _, e := range g.Edges {
		if e.Source != n && e.Target != n {
			kept = append(kept, e)
		}
	}
	g.Edges = kept
	return nil
}

func (g *Graph) RemoveEdge(sourceID, targetID string) error {
	source, ok1 := g.nodesByID[sourceID]
	target, ok2 := g.nodesByID[targetID]
	if !ok1 || !ok2 {
		return fmt.Errorf("edge not in graph: %s -> %s", sourceID, targetID)
	}
	for i, e := range g.Edges {
		if e.connects(source, target, g.Directed) {
			g.Edges = append(g.Edges[:i], g.Edges[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("edge not in graph: %s -> %s", sourceID, targetID)
}

// Neighbors returns adjacent nodes in edge insertion order.
func (g *Graph) Neighbors(id string) ([]*Node, error) {
	n, ok := g.nodesByID[id]
	if !ok {
		return nil, fmt.Errorf("node not in graph: %s", id)
	}
	var out []*Node
	seen := make(map[*Node]bool)
	for _, e := range g.Edges {
		var other *Node
		if e.Source == n {
			other = e.Target
		} else if !g.Directed && e.Target == n {
			other = e.Source
		} else {
			continue
		}
		if !seen[other] {
			seen[other] = true
			out = append(out, other)
		}
	}
	return out, nil
}

func (n *Node) String() string {
	return fmt.Sprintf("Node(%s)", n.ID)
}

func (e *Edge) String() string {
	return fmt.Sprintf("Edge(%s, %s)", e.Source.ID, e.Target.ID)
}

func (g *Graph) String() string {
	kind := "Graph"
	if g.Directed {
		kind = "DiGraph"
	}
	return fmt.Sprintf("%s(nodes=%d, edges=%d)", kind, len(g.Nodes), len(g.Edges))
}
