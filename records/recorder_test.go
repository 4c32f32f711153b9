package records

import (
	"encoding/json"
	"sort"
	"strings"
	"testing"

	"github.com/reusee/grex/grexpy"
	"github.com/reusee/grex/grexvm"
)

func trace(t *testing.T, src string, precision int) *Recorder {
	t.Helper()
	rec := NewRecorder(precision)
	vm, directives, err := grexpy.NewVM("test", src, grexpy.Options{
		Stdout: rec,
	})
	if err != nil {
		t.Fatal(err)
	}
	vm.Hook = rec

	lines := make([]int, 0, len(directives))
	for line := range directives {
		lines = append(lines, line)
	}
	sort.Ints(lines)
	var sets []WatchSet
	for _, line := range lines {
		d := directives[line]
		sets = append(sets, WatchSet{
			Scope: d.FuncName,
			Names: d.Watch,
		})
	}
	rec.Init(sets)

	for _, err := range vm.Run {
		if err != nil {
			t.Fatalf("runtime error: %v", err)
		}
	}
	return rec
}

func frameVar(t *testing.T, f *Frame, scope, name string) *Descriptor {
	t.Helper()
	d, ok := f.Variables[Qualify(scope, name)]
	if !ok {
		t.Fatalf("line %d: variable %s not in frame", f.Line, name)
	}
	return d
}

const workedExample = `@tracer('a', 'b')
def test(a, b, c):
	a = a * c
	b = b * c
	c = c * c
	return a + b * c

test(7, 9, 11)
`

func TestWorkedExample(t *testing.T) {
	rec := trace(t, workedExample, 4)
	frames := rec.Frames()

	if len(frames) != 10 {
		for _, f := range frames {
			t.Logf("frame line=%d vars=%v accesses=%v", f.Line, f.Variables, f.Accesses)
		}
		t.Fatalf("got %d frames, want 10", len(frames))
	}

	// init frame
	if frames[0].Line != 0 {
		t.Fatalf("init frame line = %d", frames[0].Line)
	}
	for _, name := range []string{"a", "b"} {
		d := frameVar(t, frames[0], "test", name)
		if d.Type != TypeInit {
			t.Fatalf("%s init type = %s", name, d.Type)
		}
		if d.Repr != nil {
			t.Fatalf("%s init repr = %v", name, d.Repr)
		}
	}

	// entry frame at the def line with bound parameters
	if frames[1].Line != 2 {
		t.Fatalf("entry frame line = %d", frames[1].Line)
	}
	if d := frameVar(t, frames[1], "test", "a"); d.Repr != "7" {
		t.Fatalf("a entry repr = %v", d.Repr)
	}
	if d := frameVar(t, frames[1], "test", "b"); d.Repr != "9" {
		t.Fatalf("b entry repr = %v", d.Repr)
	}

	// a = a * c
	if frames[2].Line != 3 || frames[2].Variables != nil || frames[2].Accesses != nil {
		t.Fatalf("reach frame not bare: %+v", frames[2])
	}
	if d := frameVar(t, frames[3], "test", "a"); d.Repr != "77" {
		t.Fatalf("a repr = %v", d.Repr)
	}
	if len(frames[3].Accesses) != 1 || frames[3].Accesses[0].Repr != "77" {
		t.Fatalf("accesses = %+v", frames[3].Accesses)
	}

	// b = b * c
	if d := frameVar(t, frames[5], "test", "b"); d.Repr != "99" {
		t.Fatalf("b repr = %v", d.Repr)
	}
	if len(frames[5].Accesses) != 1 || frames[5].Accesses[0].Repr != "99" {
		t.Fatalf("accesses = %+v", frames[5].Accesses)
	}

	// c = c * c changes no watched variable, the access is still seen
	if frames[7].Variables != nil {
		t.Fatalf("unwatched assignment recorded variables: %+v", frames[7].Variables)
	}
	if len(frames[7].Accesses) != 1 || frames[7].Accesses[0].Repr != "121" {
		t.Fatalf("accesses = %+v", frames[7].Accesses)
	}

	// return frame carries the return expression's intermediates
	last := frames[9]
	if last.Variables != nil {
		t.Fatalf("return frame variables: %+v", last.Variables)
	}
	if len(last.Accesses) != 2 {
		t.Fatalf("return accesses = %+v", last.Accesses)
	}
	if last.Accesses[0].Repr != "11979" || last.Accesses[1].Repr != "12056" {
		t.Fatalf("return accesses = %v %v", last.Accesses[0].Repr, last.Accesses[1].Repr)
	}

	// terminal return payload
	if rec.Returned() == nil || rec.Returned().Repr != "12056" {
		t.Fatalf("returned = %+v", rec.Returned())
	}
}

func TestColorAssignment(t *testing.T) {
	rec := trace(t, workedExample, 4)
	frames := rec.Frames()

	a := frameVar(t, frames[0], "test", "a")
	b := frameVar(t, frames[0], "test", "b")
	if a.Color != Palette[2] {
		t.Fatalf("a color = %s", a.Color)
	}
	if b.Color != Palette[3] {
		t.Fatalf("b color = %s", b.Color)
	}
	if len(frames[3].Accesses) == 0 || frames[3].Accesses[0].Color != Palette[1] {
		t.Fatal("accesses must use the access color")
	}

	// colors are stable across frames
	if frameVar(t, frames[1], "test", "a").Color != a.Color {
		t.Fatal("a color changed between frames")
	}
}

func TestPaletteCycling(t *testing.T) {
	reg := NewRegistry()
	first := reg.Color("v0")
	if first != Palette[2] {
		t.Fatalf("got %s", first)
	}
	for i := 1; i < len(Palette)-2; i++ {
		reg.Color(Qualify("f", string(rune('a'+i))))
	}
	// palette exhausted, wraps back to the first variable slot
	wrapped := reg.Color("overflow")
	if wrapped != Palette[2] {
		t.Fatalf("got %s", wrapped)
	}
	// already assigned identifiers keep their color
	if reg.Color("v0") != first {
		t.Fatal("assigned color changed")
	}
}

func TestAliasingIdentity(t *testing.T) {
	rec := trace(t, `@tracer('a', 'b')
def f():
	a = [1, 2]
	b = a
	return b

f()
`, 4)
	frames := rec.Frames()

	var aID, bID uint64
	for _, f := range frames {
		if f.Variables == nil {
			continue
		}
		if d, ok := f.Variables[Qualify("f", "a")]; ok {
			aID = d.Identity
		}
		if d, ok := f.Variables[Qualify("f", "b")]; ok {
			bID = d.Identity
		}
	}
	if aID == 0 || bID == 0 {
		t.Fatal("identities not assigned")
	}
	if aID != bID {
		t.Fatalf("aliases must share identity: %d != %d", aID, bID)
	}
}

func TestDiffSuppression(t *testing.T) {
	rec := trace(t, `@tracer('a')
def f():
	a = 1
	x = 2
	a = 1
	a = 3
	return a

f()
`, 4)

	var reprs []any
	for _, f := range rec.Frames() {
		if d, ok := f.Variables[Qualify("f", "a")]; ok && d.Type != TypeInit {
			reprs = append(reprs, d.Repr)
		}
	}
	// a=1 records once, the re-binding to the same value is suppressed
	want := []any{"1", "3"}
	if len(reprs) != len(want) {
		t.Fatalf("got %v", reprs)
	}
	for i := range want {
		if reprs[i] != want[i] {
			t.Fatalf("got %v", reprs)
		}
	}
}

func TestPeekAll(t *testing.T) {
	rec := trace(t, `@peek
def f():
	x = 1
	y = "s"
	return x

f()
`, 4)

	seen := make(map[string]bool)
	for _, f := range rec.Frames() {
		for name := range f.Variables {
			seen[name] = true
		}
	}
	if !seen[Qualify("f", "x")] || !seen[Qualify("f", "y")] {
		t.Fatalf("got %v", seen)
	}
}

func TestFloatPrecision(t *testing.T) {
	src := `@tracer('x')
def f():
	x = 1.0 / 3.0
	return x

f()
`
	find := func(rec *Recorder) string {
		for _, f := range rec.Frames() {
			if d, ok := f.Variables[Qualify("f", "x")]; ok && d.Type == TypeNumber {
				return d.Repr.(string)
			}
		}
		return ""
	}
	if got := find(trace(t, src, 4)); got != "0.3333" {
		t.Fatalf("got %q", got)
	}
	if got := find(trace(t, src, 8)); got != "0.33333333" {
		t.Fatalf("got %q", got)
	}
}

func TestStdoutAttachment(t *testing.T) {
	rec := trace(t, `@tracer('x')
def f():
	print("mid")
	x = 1
	return x

f()
`, 4)

	var got string
	for _, f := range rec.Frames() {
		if f.Stdout != "" {
			got = f.Stdout
			break
		}
	}
	if got != "mid\n" {
		t.Fatalf("got %q", got)
	}
}

func TestCycleReference(t *testing.T) {
	reg := NewRegistry()
	ser := NewSerializer(reg, 4)

	l := &grexvm.List{}
	l.Elements = append(l.Elements, l)
	desc := ser.Describe(l, reg.Color("v"))

	elems := desc.Repr.([]any)
	if len(elems) != 1 {
		t.Fatalf("got %v", desc.Repr)
	}
	inner := elems[0].(*Descriptor)
	if inner.Type != TypeReference {
		t.Fatalf("got %s", inner.Type)
	}
	if inner.Identity != desc.Identity {
		t.Fatal("reference must carry the cycled identity")
	}
}

func TestSharedSubtreeIsNotReference(t *testing.T) {
	reg := NewRegistry()
	ser := NewSerializer(reg, 4)

	shared := &grexvm.List{Elements: []any{int64(1)}}
	outer := &grexvm.List{Elements: []any{shared, shared}}
	desc := ser.Describe(outer, reg.Color("v"))

	elems := desc.Repr.([]any)
	for _, e := range elems {
		if e.(*Descriptor).Type != TypeList {
			t.Fatalf("diamond sharing serialized as %s", e.(*Descriptor).Type)
		}
	}
}

func TestDescriptorJSON(t *testing.T) {
	reg := NewRegistry()
	ser := NewSerializer(reg, 4)

	desc := ser.Describe(grexvm.NewDict(), reg.Color("v"))
	buf, err := json.Marshal(desc)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"type"`, `"identity"`, `"color"`, `"repr"`} {
		if !strings.Contains(string(buf), key) {
			t.Fatalf("missing %s in %s", key, buf)
		}
	}
}

func TestStringRepr(t *testing.T) {
	reg := NewRegistry()
	ser := NewSerializer(reg, 4)

	desc := ser.Describe("abc", reg.Color("v"))
	if desc.Type != TypeString || desc.Repr != "'abc'" {
		t.Fatalf("got %+v", desc)
	}
}

func TestRecursionScopes(t *testing.T) {
	rec := trace(t, `@tracer('n')
def f(n):
	if n > 0:
		f(n - 1)
	return n

f(2)
`, 4)

	// each invocation gets its own entry frame at the def line
	entries := 0
	for _, f := range rec.Frames() {
		if f.Line == 2 && f.Variables != nil {
			entries++
		}
	}
	if entries != 3 {
		t.Fatalf("got %d entry frames, want 3", entries)
	}
}
