package runs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"

	"github.com/reusee/grex/graphs"
	"github.com/reusee/grex/grexpy"
	"github.com/reusee/grex/limits"
	"github.com/reusee/grex/records"
)

// Request is one versioned trace request.
type Request struct {
	Code    string          `json:"code"`
	Graph   json.RawMessage `json:"graph,omitempty"`
	Version string          `json:"version"`
	Options *Options        `json:"options,omitempty"`
}

// Info is the success half of a response.
type Info struct {
	Result   []*records.Frame    `json:"result"`
	Graph    *graphs.Cyjs        `json:"graph"`
	Returned *records.Descriptor `json:"returned"`
}

type Response struct {
	Errors *ErrorReport `json:"errors"`
	Info   *Info        `json:"info"`
}

// Controller runs trace requests end to end: version gate, graph
// construction, compilation, governed execution, response assembly.
type Controller struct {
	Version  string
	Defaults Options
	Logger   *slog.Logger
}

func NewController(version string, defaults Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		Version:  version,
		Defaults: defaults,
		Logger:   logger,
	}
}

// Execute never returns an error; every failure mode is folded into the
// response. The version gate runs before anything with a side effect.
func (c *Controller) Execute(ctx context.Context, req *Request) *Response {
	if req.Version != c.Version {
		return &Response{
			Errors: report(KindVersionMismatch,
				"request version "+req.Version+" does not match server version "+c.Version),
		}
	}
	if req.Code == "" {
		return &Response{
			Errors: report(KindProtocolError, "request has no code"),
		}
	}
	opts := c.Defaults.merged(req.Options)

	graph, err := graphs.FromCyjs(normalizeGraphPayload(req.Graph))
	if err != nil {
		return &Response{
			Errors: report(KindProtocolError, err.Error()),
		}
	}

	recorder := records.NewRecorder(opts.FloatPrecision)
	vm, directives, err := grexpy.NewVM("program", req.Code, grexpy.Options{
		Stdout: recorder,
		Inputs: opts.inputs(),
		Seed:   opts.RandSeed,
		Globals: map[string]any{
			"graph": graph,
		},
	})
	if err != nil {
		return &Response{
			Errors: report(KindSyntaxError, err.Error()),
		}
	}
	vm.Hook = recorder
	recorder.Init(watchSets(directives))

	runErr := limits.Govern(ctx, vm, limits.Limits{
		Timeout: opts.timeout(),
		Memory:  opts.ExecMemLimit,
	})

	info := &Info{
		Result:   recorder.Frames(),
		Graph:    graph.ToCyjs(),
		Returned: recorder.Returned(),
	}

	switch {
	case runErr == nil:
		c.Logger.InfoContext(ctx, "run completed",
			"frames", len(info.Result),
		)
		return &Response{
			Info: info,
		}

	case errors.Is(runErr, limits.ErrTimeout):
		// aborts keep the partial trace alongside the error
		c.Logger.WarnContext(ctx, "run aborted", "reason", "timeout")
		return &Response{
			Errors: report(KindTimeout, runErr.Error()),
			Info:   info,
		}

	case errors.Is(runErr, limits.ErrMemoryExceeded):
		c.Logger.WarnContext(ctx, "run aborted", "reason", "memory")
		return &Response{
			Errors: report(KindMemoryExceeded, runErr.Error()),
			Info:   info,
		}

	default:
		line := vm.Line()
		c.Logger.InfoContext(ctx, "run failed",
			"error", runErr,
			"line", line,
		)
		return &Response{
			Errors: &ErrorReport{
				Kind:    KindRuntimeError,
				Message: runErr.Error(),
				Line:    line,
			},
		}
	}
}

// watchSets orders trace targets by their definition line, which fixes
// init frame contents and color assignment.
func watchSets(directives map[int]*grexpy.Directive) []records.WatchSet {
	ordered := make([]*grexpy.Directive, 0, len(directives))
	for _, d := range directives {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].DefLine < ordered[j].DefLine
	})
	sets := make([]records.WatchSet, 0, len(ordered))
	for _, d := range ordered {
		sets = append(sets, records.WatchSet{
			Scope: d.FuncName,
			Names: d.Watch,
		})
	}
	return sets
}

// normalizeGraphPayload accepts the graph document either inline or as
// a JSON string wrapping the document.
func normalizeGraphPayload(raw json.RawMessage) json.RawMessage {
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err == nil {
			return json.RawMessage(inner)
		}
	}
	return raw
}
