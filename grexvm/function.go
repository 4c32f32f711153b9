package grexvm

type Function struct {
	Name        string
	NumParams   int
	NumDefaults int
	Variadic    bool
	ParamNames  []string
	Code        []OpCode
	Constants   []any

	// Lines[i] is the source line of Code[i].
	Lines []int32

	// DefLine is the line of the def statement, 0 for the module body.
	DefLine int

	// Traced marks a function body compiled with tracing ops.
	Traced  bool
	Watch   []string
	PeekAll bool
}

func (f *Function) LineAt(ip int) int {
	if ip < 0 || ip >= len(f.Lines) {
		return 0
	}
	return int(f.Lines[ip])
}
