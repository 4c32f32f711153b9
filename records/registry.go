package records

import (
	"github.com/reusee/grex/graphs"
	"github.com/reusee/grex/grexvm"
)

// IdentifierSeparator joins a scope name and a variable name into a
// qualified identifier. The zero-width space keeps it out of the way of
// user-visible names.
const IdentifierSeparator = "​@"

// Qualify builds the qualified identifier for a variable in a scope.
func Qualify(scope, name string) string {
	return scope + IdentifierSeparator + name
}

// Palette is the fixed color wheel. Slot 0 colors nested values, slot 1
// colors accessed intermediates, variables draw from slot 2 on.
var Palette = []string{
	"#828282",
	"#B15928",
	"#A6CEE3",
	"#1F78B4",
	"#B2DF8A",
	"#33A02C",
	"#FB9A99",
	"#E31A1C",
	"#FDBF6F",
	"#FF7F00",
	"#CAB2D6",
	"#6A3D9A",
	"#FFFF99",
}

const (
	innerIdentifier    = IdentifierSeparator + "​inner"
	accessedIdentifier = "global" + IdentifierSeparator + "accessed var"

	firstVariableSlot = 2
)

// Registry owns per-run identity tokens and color assignments. Both are
// deterministic: identities count up from 1 in first-observation order,
// colors cycle the palette in first-appearance order.
type Registry struct {
	identities   map[any]uint64
	nextIdentity uint64

	colors    map[string]string
	nextColor int
}

func NewRegistry() *Registry {
	return &Registry{
		identities: make(map[any]uint64),
		colors: map[string]string{
			innerIdentifier:    Palette[0],
			accessedIdentifier: Palette[1],
		},
		nextColor: firstVariableSlot,
	}
}

// Identity returns the stable token for a value. Containers, closures
// and graph objects key by pointer, scalars by value, so rebinding the
// same object to another name keeps its token.
func (r *Registry) Identity(val any) uint64 {
	switch val.(type) {
	case nil, bool, int64, float64, string,
		*grexvm.List, *grexvm.Dict, *grexvm.Range, *grexvm.Closure,
		*graphs.Graph, *graphs.Node, *graphs.Edge:
		if id, ok := r.identities[val]; ok {
			return id
		}
		r.nextIdentity++
		r.identities[val] = r.nextIdentity
		return r.nextIdentity
	}
	r.nextIdentity++
	return r.nextIdentity
}

// Color returns the color for a qualified identifier, assigning the
// next palette slot on first sight. Exhausting the palette wraps back
// to the first variable slot.
func (r *Registry) Color(identifier string) string {
	if c, ok := r.colors[identifier]; ok {
		return c
	}
	c := Palette[r.nextColor]
	r.colors[identifier] = c
	r.nextColor++
	if r.nextColor >= len(Palette) {
		r.nextColor = firstVariableSlot
	}
	return c
}

func (r *Registry) InnerColor() string {
	return Palette[0]
}

func (r *Registry) AccessColor() string {
	return Palette[1]
}
