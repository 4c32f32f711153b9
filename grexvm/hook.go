package grexvm

// Hook receives tracing events from instructions compiled into traced
// function bodies. All callbacks run on the interpreter goroutine.
type Hook interface {
	// OnEnter fires after arguments are bound, before the first statement.
	OnEnter(fn *Function, scope *Env)
	// OnReach fires when control arrives at a statement or loop header.
	OnReach(line int)
	// OnDone fires when a simple statement completes.
	OnDone(line int, scope *Env)
	// OnObserve reports an intermediate expression value.
	OnObserve(val any)
	// OnReturn fires when a traced function returns, explicitly or by
	// falling off the end.
	OnReturn(fn *Function, line int, val any)
}
