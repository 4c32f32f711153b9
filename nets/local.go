package nets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/reusee/grex/debugs"
	"github.com/reusee/grex/logs"
	"github.com/reusee/grex/runs"
)

// LocalExchange reads one request document, executes it, and writes
// the response. Diagnostics go to errOut, the response document is the
// only thing written to out.
func LocalExchange(
	ctx context.Context,
	controller *runs.Controller,
	in io.Reader,
	out io.Writer,
	errOut io.Writer,
) (*runs.Response, error) {
	var req runs.Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		fmt.Fprintf(errOut, "bad request: %v\n", err)
		resp := &runs.Response{
			Errors: &runs.ErrorReport{
				Kind:    runs.KindProtocolError,
				Message: "bad request: " + err.Error(),
			},
		}
		return resp, json.NewEncoder(out).Encode(resp)
	}
	if req.Options == nil {
		req.Options = &runs.Options{}
	}
	req.Options.IsLocal = true

	resp := controller.Execute(ctx, &req)
	if resp.Errors != nil {
		fmt.Fprintf(errOut, "%s: %s\n", resp.Errors.Kind, resp.Errors.Message)
	}
	return resp, json.NewEncoder(out).Encode(resp)
}

type RunLocal func(ctx context.Context) error

func (Module) RunLocal(
	controller *runs.Controller,
	newSpan logs.NewSpan,
	tap debugs.Tap,
	debugREPL DebugREPL,
) RunLocal {
	return func(ctx context.Context) error {
		ctx, _ = newSpan(ctx, "")
		resp, err := LocalExchange(ctx, controller, os.Stdin, os.Stdout, os.Stderr)
		if err != nil {
			return err
		}
		if debugREPL {
			tap(ctx, "response", map[string]any{
				"response": resp,
			})
		}
		return nil
	}
}
