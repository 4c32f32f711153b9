package logs

import (
	"io"
	"os"
)

type Writer io.Writer

func (Module) Writer() Writer {
	if path := os.Getenv("GREX_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			return f
		}
	}
	return os.Stderr
}
