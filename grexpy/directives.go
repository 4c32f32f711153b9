package grexpy

import (
	"fmt"
	"regexp"
	"strings"
)

// Directive is a trace request attached to a function definition.
type Directive struct {
	FuncName string
	DefLine  int
	Watch    []string
	PeekAll  bool
}

var (
	directiveRe = regexp.MustCompile(`^\s*@(\w+)\s*(?:\((.*)\))?\s*$`)
	defRe       = regexp.MustCompile(`^\s*def\s+(\w+)\s*\(`)
	argRe       = regexp.MustCompile(`^(?:'([^']*)'|"([^"]*)")$`)
)

// scanDirectives extracts @tracer and @peek decorator lines from the
// source and blanks them, keeping line numbers intact for the parser.
// The returned map is keyed by the line of the decorated def statement.
func scanDirectives(source string) (string, map[int]*Directive, error) {
	lines := strings.Split(source, "\n")
	directives := make(map[int]*Directive)

	for i := 0; i < len(lines); i++ {
		m := directiveRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		name := m[1]
		if name != "tracer" && name != "peek" {
			return "", nil, fmt.Errorf("line %d: unknown decorator @%s", i+1, name)
		}

		d := &Directive{
			PeekAll: name == "peek",
		}
		if !d.PeekAll {
			watch, err := parseWatchList(m[2])
			if err != nil {
				return "", nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			d.Watch = watch
		}
		lines[i] = ""

		defIdx := i + 1
		for defIdx < len(lines) && strings.TrimSpace(lines[defIdx]) == "" {
			defIdx++
		}
		if defIdx >= len(lines) {
			return "", nil, fmt.Errorf("line %d: decorator without function definition", i+1)
		}
		dm := defRe.FindStringSubmatch(lines[defIdx])
		if dm == nil {
			return "", nil, fmt.Errorf("line %d: decorator must precede a def statement", i+1)
		}
		defLine := defIdx + 1
		if _, exists := directives[defLine]; exists {
			return "", nil, fmt.Errorf("line %d: function %s has multiple trace decorators", i+1, dm[1])
		}
		d.FuncName = dm[1]
		d.DefLine = defLine
		directives[defLine] = d
	}

	return strings.Join(lines, "\n"), directives, nil
}

func parseWatchList(argStr string) ([]string, error) {
	argStr = strings.TrimSpace(argStr)
	if argStr == "" {
		return nil, nil
	}
	var watch []string
	for _, part := range strings.Split(argStr, ",") {
		part = strings.TrimSpace(part)
		m := argRe.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("tracer arguments must be string literals, got %q", part)
		}
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if name == "" {
			return nil, fmt.Errorf("tracer argument cannot be empty")
		}
		watch = append(watch, name)
	}
	return watch, nil
}
