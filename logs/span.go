package logs

// Span identifies one request or run in log records.
type Span string

type spanKeyType struct{}

var SpanKey spanKeyType
