package runs

import (
	"fmt"
	"strconv"
	"time"
)

// Options is the per-run knob set carried in a request. Zero fields
// take the server defaults.
type Options struct {
	RandSeed       int64   `json:"rand_seed"`
	FloatPrecision int     `json:"float_precision"`
	ExecTimeout    float64 `json:"exec_time_out"`
	ExecMemLimit   int64   `json:"exec_mem_out"`
	InputList      []any   `json:"input_list"`
	IsLocal        bool    `json:"is_local"`
}

// DefaultOptions are the stock execution limits.
func DefaultOptions() Options {
	return Options{
		RandSeed:       0,
		FloatPrecision: 4,
		ExecTimeout:    5,
		ExecMemLimit:   100 << 20,
	}
}

// merged overlays non-zero request options onto the defaults.
func (o Options) merged(req *Options) Options {
	if req == nil {
		return o
	}
	out := o
	if req.RandSeed != 0 {
		out.RandSeed = req.RandSeed
	}
	if req.FloatPrecision != 0 {
		out.FloatPrecision = req.FloatPrecision
	}
	if req.ExecTimeout != 0 {
		out.ExecTimeout = req.ExecTimeout
	}
	if req.ExecMemLimit != 0 {
		out.ExecMemLimit = req.ExecMemLimit
	}
	out.InputList = req.InputList
	out.IsLocal = req.IsLocal
	return out
}

func (o Options) timeout() time.Duration {
	return time.Duration(o.ExecTimeout * float64(time.Second))
}

// inputs renders the input list the way a line-based reader would see
// it, one string per simulated read.
func (o Options) inputs() []string {
	if len(o.InputList) == 0 {
		return nil
	}
	out := make([]string, len(o.InputList))
	for i, val := range o.InputList {
		switch x := val.(type) {
		case string:
			out[i] = x
		case float64:
			if x == float64(int64(x)) {
				out[i] = strconv.FormatInt(int64(x), 10)
			} else {
				out[i] = strconv.FormatFloat(x, 'g', -1, 64)
			}
		case bool:
			if x {
				out[i] = "True"
			} else {
				out[i] = "False"
			}
		case nil:
			out[i] = "None"
		default:
			out[i] = fmt.Sprintf("%v", x)
		}
	}
	return out
}
