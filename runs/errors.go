package runs

// ErrorKind classifies a failed run for the client.
type ErrorKind string

const (
	KindVersionMismatch ErrorKind = "VersionMismatch"
	KindProtocolError   ErrorKind = "ProtocolError"
	KindSyntaxError     ErrorKind = "SyntaxError"
	KindRuntimeError    ErrorKind = "RuntimeError"
	KindTimeout         ErrorKind = "Timeout"
	KindMemoryExceeded  ErrorKind = "MemoryExceeded"
)

// ErrorReport is the errors half of a response. Line is set for runtime
// errors only, pointing at the source line being executed.
type ErrorReport struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Line    int       `json:"line,omitempty"`
}

func report(kind ErrorKind, message string) *ErrorReport {
	return &ErrorReport{
		Kind:    kind,
		Message: message,
	}
}
