package nets

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"golang.org/x/net/netutil"

	"github.com/reusee/grex/configs"
	"github.com/reusee/grex/logs"
	"github.com/reusee/grex/runs"
)

type Handler http.Handler

func (Module) Handler(
	controller *runs.Controller,
	isAllowed IsAllowedOrigin,
	newSpan logs.NewSpan,
	logger logs.Logger,
	origins Origins,
	defaults ExecDefaults,
) Handler {
	mux := http.NewServeMux()

	cors := func(w http.ResponseWriter, r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin != "" && isAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return false
		}
		return true
	}

	respond := func(ctx context.Context, w http.ResponseWriter, resp *runs.Response) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.ErrorContext(ctx, "write response", "error", err)
		}
	}

	mux.HandleFunc("/run", func(w http.ResponseWriter, r *http.Request) {
		if !cors(w, r) {
			return
		}
		ctx, _ := newSpan(r.Context(), "")
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req runs.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond(ctx, w, &runs.Response{
				Errors: &runs.ErrorReport{
					Kind:    runs.KindProtocolError,
					Message: "bad request: " + err.Error(),
				},
			})
			return
		}
		respond(ctx, w, controller.Execute(ctx, &req))
	})

	mux.HandleFunc("/env", func(w http.ResponseWriter, r *http.Request) {
		if !cors(w, r) {
			return
		}
		ctx, _ := newSpan(r.Context(), "")
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{
			"version":         configs.ServerVersion,
			"origins":         origins,
			"exec_time_out":   defaults.ExecTimeout,
			"exec_mem_out":    defaults.ExecMemLimit,
			"rand_seed":       defaults.RandSeed,
			"float_precision": defaults.FloatPrecision,
		}); err != nil {
			logger.ErrorContext(ctx, "write env", "error", err)
		}
	})

	return mux
}

type Serve func(ctx context.Context) error

func (Module) Serve(
	addr ServerAddr,
	port ServerPort,
	maxConns MaxConns,
	handler Handler,
	logger logs.Logger,
) Serve {
	return func(ctx context.Context) error {
		ln, err := net.Listen("tcp", net.JoinHostPort(
			string(addr),
			strconv.Itoa(int(port)),
		))
		if err != nil {
			return err
		}
		ln = netutil.LimitListener(ln, int(maxConns))

		server := &http.Server{
			Handler: handler,
			BaseContext: func(net.Listener) context.Context {
				return ctx
			},
		}
		go func() {
			<-ctx.Done()
			server.Shutdown(context.Background())
		}()

		logger.InfoContext(ctx, "serving", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
