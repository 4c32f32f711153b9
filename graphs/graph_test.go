package graphs

import (
	"encoding/json"
	"testing"
)

func TestAddNode(t *testing.T) {
	g := New(false, false)
	n1, err := g.AddNode("a")
	if err != nil {
		t.Fatal(err)
	}
	n2, err := g.AddNode("a")
	if err != nil {
		t.Fatal(err)
	}
	if n1 != n2 {
		t.Fatal("adding an existing id must return the same node")
	}
	if len(g.Nodes) != 1 {
		t.Fatalf("got %d nodes", len(g.Nodes))
	}
}

func TestAddEdge(t *testing.T) {
	g := New(false, false)
	e1, err := g.AddEdge("a", "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != 2 {
		t.Fatal("edge endpoints must be created")
	}
	// duplicate in a simple graph returns the existing edge
	e2, err := g.AddEdge("b", "a")
	if err != nil {
		t.Fatal(err)
	}
	if e1 != e2 {
		t.Fatal("undirected simple graph must dedup reversed edges")
	}

	multi := New(false, true)
	multi.AddEdge("a", "b")
	multi.AddEdge("a", "b")
	if len(multi.Edges) != 2 {
		t.Fatalf("got %d edges", len(multi.Edges))
	}

	directed := New(true, false)
	directed.AddEdge("a", "b")
	directed.AddEdge("b", "a")
	if len(directed.Edges) != 2 {
		t.Fatal("directed graph must keep both directions")
	}
}

func TestRemove(t *testing.T) {
	g := New(false, false)
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")

	if err := g.RemoveEdge("a", "b"); err != nil {
		t.Fatal(err)
	}
	if len(g.Edges) != 1 {
		t.Fatalf("got %d edges", len(g.Edges))
	}

	if err := g.RemoveNode("b"); err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != 2 {
		t.Fatalf("got %d nodes", len(g.Nodes))
	}
	if len(g.Edges) != 0 {
		t.Fatal("removing a node must drop its edges")
	}

	if err := g.RemoveNode("missing"); err == nil {
		t.Fatal("expected error")
	}
}

func TestNeighbors(t *testing.T) {
	g := New(false, false)
	g.AddEdge("a", "b")
	g.AddEdge("c", "a")
	g.AddEdge("a", "d")

	nodes, err := g.Neighbors("a")
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	want := []string{"b", "c", "d"}
	if len(ids) != len(want) {
		t.Fatalf("got %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v, want %v", ids, want)
		}
	}

	directed := New(true, false)
	directed.AddEdge("a", "b")
	directed.AddEdge("c", "a")
	nodes, err = directed.Neighbors("a")
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 || nodes[0].ID != "b" {
		t.Fatalf("got %v", nodes)
	}
}

func TestCyjsRoundTrip(t *testing.T) {
	doc := `{
		"directed": true,
		"multigraph": false,
		"elements": {
			"nodes": [
				{"data": {"id": "1", "value": 7, "name": "one"}},
				{"data": {"id": "2", "value": 8, "name": "two"}}
			],
			"edges": [
				{"data": {"source": "1", "target": "2"}}
			]
		}
	}`
	g, err := FromCyjs(json.RawMessage(doc))
	if err != nil {
		t.Fatal(err)
	}
	if !g.Directed {
		t.Fatal()
	}
	n, ok := g.Node("1")
	if !ok {
		t.Fatal()
	}
	if n.Name != "one" || n.Value != int64(7) {
		t.Fatalf("got %+v", n)
	}

	out := g.ToCyjs()
	if len(out.Elements.Nodes) != 2 || len(out.Elements.Edges) != 1 {
		t.Fatalf("got %+v", out.Elements)
	}
	if out.Elements.Nodes[0].Data.ID != "1" {
		t.Fatalf("got %+v", out.Elements.Nodes[0].Data)
	}
	if out.Elements.Edges[0].Data.Source != "1" || out.Elements.Edges[0].Data.Target != "2" {
		t.Fatalf("got %+v", out.Elements.Edges[0].Data)
	}
}

func TestFromCyjsEmpty(t *testing.T) {
	g, err := FromCyjs(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != 0 || g.Directed {
		t.Fatalf("got %+v", g)
	}
	g, err = FromCyjs(json.RawMessage("null"))
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != 0 {
		t.Fatalf("got %+v", g)
	}
}

func TestFromCyjsBadEdge(t *testing.T) {
	doc := `{"elements": {"nodes": [], "edges": [{"data": {"source": "x", "target": "y"}}]}}`
	if _, err := FromCyjs(json.RawMessage(doc)); err == nil {
		t.Fatal("expected error")
	}
}

func TestStrings(t *testing.T) {
	g := New(true, false)
	g.AddEdge("a", "b")
	if g.String() != "DiGraph(nodes=2, edges=1)" {
		t.Fatalf("got %s", g.String())
	}
	n, _ := g.Node("a")
	if n.String() != "Node(a)" {
		t.Fatalf("got %s", n.String())
	}
	if g.Edges[0].String() != "Edge(a, b)" {
		t.Fatalf("got %s", g.Edges[0].String())
	}
}
