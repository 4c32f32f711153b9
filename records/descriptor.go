package records

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/reusee/grex/graphs"
	"github.com/reusee/grex/grexvm"
)

// Descriptor is the serialized form of one value in a trace frame.
type Descriptor struct {
	Type       string         `json:"type"`
	Identity   uint64         `json:"identity,omitempty"`
	Color      string         `json:"color,omitempty"`
	Repr       any            `json:"repr"`
	GraphID    string         `json:"id,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Pair is a serialized mapping entry. Keys get full descriptors too, a
// key can be a node or an edge.
type Pair struct {
	Key   *Descriptor `json:"key"`
	Value *Descriptor `json:"value"`
}

const (
	TypeNumber    = "Number"
	TypeString    = "String"
	TypeNone      = "None"
	TypeList      = "List"
	TypeTuple     = "Tuple"
	TypeMapping   = "Mapping"
	TypeNode      = "Node"
	TypeEdge      = "Edge"
	TypeGraph     = "Graph"
	TypeObject    = "Object"
	TypeInit      = "init"
	TypeReference = "reference"
)

// Serializer renders interpreter values into descriptors, assigning
// identity tokens through the registry as it goes.
type Serializer struct {
	Reg       *Registry
	Precision int
}

func NewSerializer(reg *Registry, precision int) *Serializer {
	return &Serializer{
		Reg:       reg,
		Precision: precision,
	}
}

// Describe serializes a value. Nested values take the inner color.
func (s *Serializer) Describe(val any, color string) *Descriptor {
	return s.describe(val, color, make(map[any]bool))
}

// InitDescriptor is the placeholder recorded for a watched name before
// the traced function has run.
func (s *Serializer) InitDescriptor(color string) *Descriptor {
	return &Descriptor{
		Type:  TypeInit,
		Color: color,
	}
}

// Fingerprint renders a value into a stable string used for change
// detection between consecutive frames. Two values fingerprint equal
// exactly when their descriptors would serialize identically.
func (s *Serializer) Fingerprint(val any) string {
	desc := s.describe(val, "", make(map[any]bool))
	buf, err := json.Marshal(desc)
	if err != nil {
		return fmt.Sprintf("%#v", val)
	}
	return string(buf)
}

func (s *Serializer) describe(val any, color string, path map[any]bool) *Descriptor {
	switch x := val.(type) {

	case nil:
		return &Descriptor{
			Type:  TypeNone,
			Color: color,
			Repr:  "None",
		}

	case bool:
		repr := "False"
		if x {
			repr = "True"
		}
		return &Descriptor{
			Type:     TypeNumber,
			Identity: s.Reg.Identity(val),
			Color:    color,
			Repr:     repr,
		}

	case int64:
		return &Descriptor{
			Type:     TypeNumber,
			Identity: s.Reg.Identity(val),
			Color:    color,
			Repr:     strconv.FormatInt(x, 10),
		}

	case float64:
		return &Descriptor{
			Type:     TypeNumber,
			Identity: s.Reg.Identity(val),
			Color:    color,
			Repr:     strconv.FormatFloat(x, 'g', s.Precision, 64),
		}

	case string:
		return &Descriptor{
			Type:     TypeString,
			Identity: s.Reg.Identity(val),
			Color:    color,
			Repr:     "'" + x + "'",
		}

	case *grexvm.List:
		if path[x] {
			return s.reference(val, color)
		}
		path[x] = true
		elems := make([]any, len(x.Elements))
		for i, el := range x.Elements {
			elems[i] = s.describe(el, s.Reg.InnerColor(), path)
		}
		delete(path, x)
		typ := TypeList
		if x.Immutable {
			typ = TypeTuple
		}
		return &Descriptor{
			Type:     typ,
			Identity: s.Reg.Identity(val),
			Color:    color,
			Repr:     elems,
		}

	case *grexvm.Dict:
		if path[x] {
			return s.reference(val, color)
		}
		path[x] = true
		pairs := make([]*Pair, 0, x.Len())
		for _, key := range x.Keys {
			v, _ := x.Get(key)
			pairs = append(pairs, &Pair{
				Key:   s.describe(key, s.Reg.InnerColor(), path),
				Value: s.describe(v, s.Reg.InnerColor(), path),
			})
		}
		delete(path, x)
		return &Descriptor{
			Type:     TypeMapping,
			Identity: s.Reg.Identity(val),
			Color:    color,
			Repr:     pairs,
		}

	case *grexvm.Range:
		return &Descriptor{
			Type:     TypeObject,
			Identity: s.Reg.Identity(val),
			Color:    color,
			Repr:     rangeRepr(x),
		}

	case *grexvm.Closure:
		return &Descriptor{
			Type:     TypeObject,
			Identity: s.Reg.Identity(val),
			Color:    color,
			Repr:     fmt.Sprintf("<function %s>", x.Fun.Name),
		}

	case grexvm.NativeFunc:
		return &Descriptor{
			Type:     TypeObject,
			Identity: s.Reg.Identity(val),
			Color:    color,
			Repr:     fmt.Sprintf("<function %s>", x.Name),
		}

	case *graphs.Node:
		return &Descriptor{
			Type:     TypeNode,
			Identity: s.Reg.Identity(val),
			Color:    color,
			Repr:     x.String(),
			GraphID:  x.ID,
			Properties: map[string]any{
				"name":  x.Name,
				"value": scalarProperty(x.Value),
			},
		}

	case *graphs.Edge:
		return &Descriptor{
			Type:     TypeEdge,
			Identity: s.Reg.Identity(val),
			Color:    color,
			Repr:     x.String(),
			GraphID:  x.String(),
			Properties: map[string]any{
				"source": x.Source.ID,
				"target": x.Target.ID,
			},
		}

	case *graphs.Graph:
		return &Descriptor{
			Type:     TypeGraph,
			Identity: s.Reg.Identity(val),
			Color:    color,
			GraphID:  x.String(),
			Properties: map[string]any{
				"directed":   x.Directed,
				"multigraph": x.Multi,
			},
		}

	}
	return &Descriptor{
		Type:     TypeObject,
		Identity: s.Reg.Identity(val),
		Color:    color,
		Repr:     fmt.Sprintf("%v", val),
	}
}

// reference stands in for a container already on the current descent
// path, so cyclic structures serialize finitely.
func (s *Serializer) reference(val any, color string) *Descriptor {
	return &Descriptor{
		Type:     TypeReference,
		Identity: s.Reg.Identity(val),
		Color:    color,
	}
}

func rangeRepr(r *grexvm.Range) string {
	if r.Step == 1 {
		return fmt.Sprintf("range(%d, %d)", r.Start, r.Stop)
	}
	return fmt.Sprintf("range(%d, %d, %d)", r.Start, r.Stop, r.Step)
}

// scalarProperty keeps graph object properties JSON friendly.
func scalarProperty(val any) any {
	switch val.(type) {
	case nil, bool, int64, float64, string:
		return val
	}
	return fmt.Sprintf("%v", val)
}
