package limits

import (
	"context"
	"errors"
	"time"

	"github.com/reusee/grex/grexvm"
)

var (
	ErrTimeout        = errors.New("execution timed out")
	ErrMemoryExceeded = errors.New("memory ceiling exceeded")
)

// Limits is the resource budget of one run.
type Limits struct {
	Timeout time.Duration
	Memory  int64
}

// Govern drives the interpreter to completion under a wall clock budget
// and a memory ceiling. The memory ceiling is enforced inside the
// interpreter through its allocation accounting, the wall clock from a
// watcher goroutine posting an abort request.
//
// Returns nil on normal completion, ErrTimeout or ErrMemoryExceeded on
// abort, or the first runtime error raised by the program. In every
// case the interpreter stops at a statement boundary, so hooks have
// seen a consistent prefix of the run.
func Govern(ctx context.Context, vm *grexvm.VM, l Limits) error {
	vm.MemLimit = l.Memory

	ctx, cancel := context.WithTimeout(ctx, l.Timeout)
	defer cancel()
	watcherDone := make(chan struct{})
	defer close(watcherDone)
	go func() {
		select {
		case <-ctx.Done():
			vm.Abort(grexvm.AbortTimeout)
		case <-watcherDone:
		}
	}()

	var runErr error
	vm.Run(func(interrupt *grexvm.Interrupt, err error) bool {
		if interrupt != nil {
			runErr = abortError(interrupt.Kind)
			return false
		}
		if err != nil {
			runErr = err
			return false
		}
		return true
	})
	return runErr
}

func abortError(kind grexvm.AbortKind) error {
	switch kind {
	case grexvm.AbortTimeout:
		return ErrTimeout
	case grexvm.AbortMemory:
		return ErrMemoryExceeded
	}
	return nil
}
