package grexpy

import (
	"strings"

	"github.com/reusee/grex/grexvm"
	"go.starlark.net/syntax"
)

// Compile turns a submitted program into a module-level function.
// Trace decorators are extracted before parsing; the map of directives
// is returned so the recorder can preassign watched names.
func Compile(name string, source string) (*grexvm.Function, map[int]*Directive, error) {
	cleaned, directives, err := scanDirectives(source)
	if err != nil {
		return nil, nil, err
	}

	file, err := fileOptions.Parse(name, strings.NewReader(cleaned), 0)
	if err != nil {
		return nil, nil, err
	}

	c := newCompiler(name, directives)
	if err := c.compileStmts(file.Stmts); err != nil {
		return nil, nil, err
	}
	// implicit return at end of module
	c.emit(grexvm.OpLoadConst.With(c.addConst(nil)))
	c.emit(grexvm.OpReturn)

	return c.toFunction(), directives, nil
}

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}
