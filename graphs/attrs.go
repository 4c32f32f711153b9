package graphs

import (
	"fmt"
	"strconv"

	"github.com/reusee/grex/grexvm"
)

// idString coerces a node identifier argument. Numeric identifiers are
// accepted and keyed by their decimal form.
func idString(val any) (string, error) {
	switch x := val.(type) {
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case *Node:
		return x.ID, nil
	}
	return "", fmt.Errorf("node identifier must be a string or int, got %T", val)
}

var _ grexvm.HasAttrs = new(Graph)

func (g *Graph) GetAttr(name string) (any, bool) {
	switch name {
	case "directed":
		return g.Directed, true
	case "add_node":
		return g.method(name, 1, func(args []any) (any, error) {
			id, err := idString(args[0])
			if err != nil {
				return nil, err
			}
			return g.AddNode(id)
		}), true
	case "add_edge":
		return g.method(name, 2, func(args []any) (any, error) {
			src, err := idString(args[0])
			if err != nil {
				return nil, err
			}
			dst, err := idString(args[1])
			if err != nil {
				return nil, err
			}
			return g.AddEdge(src, dst)
		}), true
	case "remove_node":
		return g.method(name, 1, func(args []any) (any, error) {
			id, err := idString(args[0])
			if err != nil {
				return nil, err
			}
			return nil, g.RemoveNode(id)
		}), true
	case "remove_edge":
		return g.method(name, 2, func(args []any) (any, error) {
			src, err := idString(args[0])
			if err != nil {
				return nil, err
			}
			dst, err := idString(args[1])
			if err != nil {
				return nil, err
			}
			return nil, g.RemoveEdge(src, dst)
		}), true
	case "has_node":
		return g.method(name, 1, func(args []any) (any, error) {
			id, err := idString(args[0])
			if err != nil {
				return nil, err
			}
			_, ok := g.Node(id)
			return ok, nil
		}), true
	case "has_edge":
		return g.method(name, 2, func(args []any) (any, error) {
			src, err := idString(args[0])
			if err != nil {
				return nil, err
			}
			dst, err := idString(args[1])
			if err != nil {
				return nil, err
			}
			a, ok1 := g.Node(src)
			b, ok2 := g.Node(dst)
			if !ok1 || !ok2 {
				return false, nil
			}
			for _, e := range g.Edges {
				if e.connects(a, b, g.Directed) {
					return true, nil
				}
			}
			return false, nil
		}), true
	case "node":
		return g.method(name, 1, func(args []any) (any, error) {
			id, err := idString(args[0])
			if err != nil {
				return nil, err
			}
			n, ok := g.Node(id)
			if !ok {
				return nil, fmt.Errorf("node not in graph: %s", id)
			}
			return n, nil
		}), true
	case "nodes":
		return g.method(name, 0, func(args []any) (any, error) {
			out := make([]any, len(g.Nodes))
			for i, n := range g.Nodes {
				out[i] = n
			}
			return &grexvm.List{Elements: out}, nil
		}), true
	case "edges":
		return g.method(name, 0, func(args []any) (any, error) {
			out := make([]any, len(g.Edges))
			for i, e := range g.Edges {
				out[i] = e
			}
			return &grexvm.List{Elements: out}, nil
		}), true
	case "neighbors":
		return g.method(name, 1, func(args []any) (any, error) {
			id, err := idString(args[0])
			if err != nil {
				return nil, err
			}
			nodes, err := g.Neighbors(id)
			if err != nil {
				return nil, err
			}
			out := make([]any, len(nodes))
			for i, n := range nodes {
				out[i] = n
			}
			return &grexvm.List{Elements: out}, nil
		}), true
	case "node_count":
		return g.method(name, 0, func(args []any) (any, error) {
			return int64(len(g.Nodes)), nil
		}), true
	case "edge_count":
		return g.method(name, 0, func(args []any) (any, error) {
			return int64(len(g.Edges)), nil
		}), true
	}
	return nil, false
}

func (g *Graph) method(name string, arity int, f func(args []any) (any, error)) grexvm.NativeFunc {
	return grexvm.NativeFunc{
		Name: name,
		Func: func(vm *grexvm.VM, args []any) (any, error) {
			if len(args) != arity {
				return nil, fmt.Errorf("%s expects %d arguments, got %d", name, arity, len(args))
			}
			return f(args)
		},
	}
}

var _ grexvm.HasAttrs = new(Node)

func (n *Node) GetAttr(name string) (any, bool) {
	switch name {
	case "id":
		return n.ID, true
	case "name":
		return n.Name, true
	case "value":
		return n.Value, true
	case "attr":
		return n.Attrs, true
	}
	return nil, false
}

var _ grexvm.HasSetAttr = new(Node)

func (n *Node) SetAttr(name string, val any) error {
	switch name {
	case "name":
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("node name must be a string")
		}
		n.Name = s
		return nil
	case "value":
		n.Value = val
		return nil
	}
	return fmt.Errorf("node attribute %s is read only", name)
}

var _ grexvm.HasAttrs = new(Edge)

func (e *Edge) GetAttr(name string) (any, bool) {
	switch name {
	case "source":
		return e.Source, true
	case "target":
		return e.Target, true
	case "attr":
		return e.Attrs, true
	}
	return nil, false
}
