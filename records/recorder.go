package records

import (
	"bytes"

	"github.com/reusee/grex/grexvm"
)

// Frame is one entry of the trace. Variables holds only names whose
// value changed since the previous frame of the same scope. Accesses
// holds intermediate values observed while the statement ran.
type Frame struct {
	Line      int                    `json:"line"`
	Variables map[string]*Descriptor `json:"variables"`
	Accesses  []*Descriptor          `json:"accesses"`
	Stdout    string                 `json:"stdout,omitempty"`
}

// WatchSet names the variables a traced function declares up front.
type WatchSet struct {
	Scope string
	Names []string
}

// Recorder turns hook events into trace frames. It also collects the
// program's stdout, attaching each chunk to the frame during which it
// was written.
type Recorder struct {
	reg    *Registry
	ser    *Serializer
	stdout bytes.Buffer

	frames   []*Frame
	scopes   []*scopeState
	pending  []*Descriptor
	returned *Descriptor
}

type scopeState struct {
	fn   *grexvm.Function
	env  *grexvm.Env
	prev map[string]string
}

var _ grexvm.Hook = new(Recorder)

func NewRecorder(precision int) *Recorder {
	reg := NewRegistry()
	return &Recorder{
		reg: reg,
		ser: NewSerializer(reg, precision),
	}
}

func (r *Recorder) Registry() *Registry {
	return r.reg
}

func (r *Recorder) Serializer() *Serializer {
	return r.ser
}

// Write collects program stdout. The recorder is handed to the VM as
// its stdout sink.
func (r *Recorder) Write(p []byte) (int, error) {
	return r.stdout.Write(p)
}

// Frames returns the trace recorded so far. Safe to call after an
// aborted run, the partial trace is kept.
func (r *Recorder) Frames() []*Frame {
	if len(r.frames) == 0 {
		return []*Frame{}
	}
	return r.frames
}

// Returned is the value of the last traced function return, nil when no
// traced function returned.
func (r *Recorder) Returned() *Descriptor {
	return r.returned
}

// Init emits the line-zero frame declaring every watched name with a
// placeholder descriptor. Declaration order fixes color assignment.
func (r *Recorder) Init(watches []WatchSet) {
	vars := make(map[string]*Descriptor)
	for _, w := range watches {
		for _, name := range w.Names {
			identifier := Qualify(w.Scope, name)
			color := r.reg.Color(identifier)
			vars[identifier] = r.ser.InitDescriptor(color)
		}
	}
	r.frames = append(r.frames, &Frame{
		Line:      0,
		Variables: vars,
	})
}

func (r *Recorder) OnEnter(fn *grexvm.Function, scope *grexvm.Env) {
	state := &scopeState{
		fn:   fn,
		env:  scope,
		prev: make(map[string]string),
	}
	r.scopes = append(r.scopes, state)
	r.frames = append(r.frames, &Frame{
		Line:      fn.DefLine,
		Variables: r.diff(state),
		Stdout:    r.drainStdout(),
	})
}

func (r *Recorder) OnReach(line int) {
	r.frames = append(r.frames, &Frame{
		Line:   line,
		Stdout: r.drainStdout(),
	})
}

func (r *Recorder) OnDone(line int, scope *grexvm.Env) {
	if len(r.scopes) == 0 {
		return
	}
	state := r.scopes[len(r.scopes)-1]
	state.env = scope
	frame := &Frame{
		Line:      line,
		Variables: r.diff(state),
		Accesses:  r.pending,
		Stdout:    r.drainStdout(),
	}
	r.pending = nil
	r.frames = append(r.frames, frame)
}

func (r *Recorder) OnObserve(val any) {
	r.pending = append(r.pending, r.ser.Describe(val, r.reg.AccessColor()))
}

func (r *Recorder) OnReturn(fn *grexvm.Function, line int, val any) {
	if len(r.scopes) == 0 {
		return
	}
	state := r.scopes[len(r.scopes)-1]
	r.frames = append(r.frames, &Frame{
		Line:      line,
		Variables: r.diff(state),
		Accesses:  r.pending,
		Stdout:    r.drainStdout(),
	})
	r.scopes = r.scopes[:len(r.scopes)-1]
	r.pending = nil
	r.returned = r.ser.Describe(val, r.reg.InnerColor())
}

// diff serializes the tracked names whose value changed since the
// scope's previous frame, updating the per-scope snapshots.
func (r *Recorder) diff(state *scopeState) map[string]*Descriptor {
	var changed map[string]*Descriptor
	record := func(name string, val any) {
		identifier := Qualify(state.fn.Name, name)
		fp := r.ser.Fingerprint(val)
		if state.prev[identifier] == fp {
			return
		}
		state.prev[identifier] = fp
		if changed == nil {
			changed = make(map[string]*Descriptor)
		}
		changed[identifier] = r.ser.Describe(val, r.reg.Color(identifier))
	}
	if state.fn.PeekAll {
		for i := range state.env.Vars {
			record(state.env.Vars[i].Name, state.env.Vars[i].Val)
		}
	} else {
		for _, name := range state.fn.Watch {
			val, ok := state.env.Get(name)
			if !ok {
				continue
			}
			record(name, val)
		}
	}
	return changed
}

func (r *Recorder) drainStdout() string {
	if r.stdout.Len() == 0 {
		return ""
	}
	out := r.stdout.String()
	r.stdout.Reset()
	return out
}
