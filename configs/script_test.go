package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reusee/dscope"
)

type testPort int

var _ Configurable = testPort(0)

func (testPort) GrexConfigurable() {}

type testName string

var _ Configurable = testName("")

func (testName) GrexConfigurable() {}

func TestScriptFork(t *testing.T) {
	scope := dscope.New(
		dscope.Provide(testPort(1)),
		dscope.Provide(testName("default")),
	)

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.py")
	err := os.WriteFile(path, []byte(`
port = testPort(4242)
name = testName("from script")
`), 0644)
	if err != nil {
		t.Fatal(err)
	}

	scope, err = FromScripts(scope, []string{path})
	if err != nil {
		t.Fatal(err)
	}

	if port := dscope.Get[testPort](scope); port != 4242 {
		t.Fatalf("got %v", port)
	}
	if name := dscope.Get[testName](scope); name != "from script" {
		t.Fatalf("got %v", name)
	}
}

func TestScriptLatestBindingWins(t *testing.T) {
	scope := dscope.New(
		dscope.Provide(testPort(1)),
	)

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.py")
	err := os.WriteFile(path, []byte(`
p = testPort(1000)
p = testPort(2000)
`), 0644)
	if err != nil {
		t.Fatal(err)
	}

	scope, err = FromScripts(scope, []string{path})
	if err != nil {
		t.Fatal(err)
	}
	if port := dscope.Get[testPort](scope); port != 2000 {
		t.Fatalf("got %v", port)
	}
}

func TestScriptBadConversion(t *testing.T) {
	scope := dscope.New(
		dscope.Provide(testPort(1)),
	)

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.py")
	err := os.WriteFile(path, []byte(`
p = testPort([1, 2])
`), 0644)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := FromScripts(scope, []string{path}); err == nil {
		t.Fatal("expected error")
	}
}
