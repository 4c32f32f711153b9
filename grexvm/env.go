package grexvm

// Env is a chained scope. Bindings keep definition order so scope
// iteration is deterministic across runs.
type Env struct {
	Parent *Env
	Vars   []Binding
}

type Binding struct {
	Name string
	Val  any
}

func (e *Env) Get(name string) (any, bool) {
	for i := range e.Vars {
		if e.Vars[i].Name == name {
			return e.Vars[i].Val, true
		}
	}
	if e.Parent != nil {
		return e.Parent.Get(name)
	}
	return nil, false
}

func (e *Env) Def(name string, val any) {
	for i := range e.Vars {
		if e.Vars[i].Name == name {
			e.Vars[i].Val = val
			return
		}
	}
	e.Vars = append(e.Vars, Binding{Name: name, Val: val})
}

func (e *Env) Set(name string, val any) bool {
	for i := range e.Vars {
		if e.Vars[i].Name == name {
			e.Vars[i].Val = val
			return true
		}
	}
	if e.Parent != nil {
		return e.Parent.Set(name, val)
	}
	return false
}

func (e *Env) NewChild() *Env {
	return &Env{
		Parent: e,
	}
}
