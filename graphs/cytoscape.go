package graphs

import (
	"encoding/json"
	"fmt"
)

// Cyjs is the cytoscape JSON document exchanged with clients.
type Cyjs struct {
	Data       json.RawMessage `json:"data,omitempty"`
	Directed   bool            `json:"directed"`
	Multigraph bool            `json:"multigraph"`
	Elements   CyjsElements    `json:"elements"`
}

type CyjsElements struct {
	Nodes []CyjsNode `json:"nodes"`
	Edges []CyjsEdge `json:"edges"`
}

type CyjsNode struct {
	Data CyjsNodeData `json:"data"`
}

type CyjsNodeData struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
	Name  string `json:"name"`
}

type CyjsEdge struct {
	Data CyjsEdgeData `json:"data"`
}

type CyjsEdgeData struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// FromCyjs builds a graph handle from a client document. An empty or
// null payload yields an empty undirected graph.
func FromCyjs(raw json.RawMessage) (*Graph, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return New(false, false), nil
	}
	var doc Cyjs
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("bad graph payload: %w", err)
	}
	g := New(doc.Directed, doc.Multigraph)
	for _, cn := range doc.Elements.Nodes {
		if cn.Data.ID == "" {
			return nil, fmt.Errorf("graph node without id")
		}
		n, err := g.AddNode(cn.Data.ID)
		if err != nil {
			return nil, err
		}
		if cn.Data.Name != "" {
			n.Name = cn.Data.Name
		}
		if cn.Data.Value != nil {
			n.Value = normalizeValue(cn.Data.Value)
		}
	}
	for _, ce := range doc.Elements.Edges {
		if _, ok := g.Node(ce.Data.Source); !ok {
			return nil, fmt.Errorf("edge source not in graph: %s", ce.Data.Source)
		}
		if _, ok := g.Node(ce.Data.Target); !ok {
			return nil, fmt.Errorf("edge target not in graph: %s", ce.Data.Target)
		}
		if _, err := g.AddEdge(ce.Data.Source, ce.Data.Target); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// ToCyjs serializes the terminal graph state.
func (g *Graph) ToCyjs() *Cyjs {
	doc := &Cyjs{
		Directed:   g.Directed,
		Multigraph: g.Multi,
		Elements: CyjsElements{
			Nodes: make([]CyjsNode, 0, len(g.Nodes)),
			Edges: make([]CyjsEdge, 0, len(g.Edges)),
		},
	}
	for _, n := range g.Nodes {
		doc.Elements.Nodes = append(doc.Elements.Nodes, CyjsNode{
			Data: CyjsNodeData{
				ID:    n.ID,
				Value: n.Value,
				Name:  n.Name,
			},
		})
	}
	for _, e := range g.Edges {
		doc.Elements.Edges = append(doc.Elements.Edges, CyjsEdge{
			Data: CyjsEdgeData{
				Source: e.Source.ID,
				Target: e.Target.ID,
			},
		})
	}
	return doc
}

// normalizeValue maps JSON numbers onto the interpreter's value model.
func normalizeValue(val any) any {
	switch x := val.(type) {
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
		return x
	}
	return val
}
