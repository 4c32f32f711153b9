package grexvm

type AbortKind int32

const (
	AbortNone AbortKind = iota
	AbortTimeout
	AbortMemory
)

// Interrupt is yielded from Run when an abort request is honored.
type Interrupt struct {
	Kind AbortKind
}

// Abort requests the interpreter to stop. Honored at statement
// boundaries, backward jumps, iteration steps and calls. Safe to call
// from another goroutine. The first request wins.
func (v *VM) Abort(kind AbortKind) {
	v.interrupt.CompareAndSwap(int32(AbortNone), int32(kind))
}

func (v *VM) aborted() AbortKind {
	return AbortKind(v.interrupt.Load())
}
