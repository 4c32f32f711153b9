package nets

import (
	"os"
	"strconv"
	"strings"

	"github.com/reusee/grex/configs"
	"github.com/reusee/grex/logs"
	"github.com/reusee/grex/runs"
	"github.com/reusee/grex/vars"
)

// Server settings come from the environment first (GREX_ prefix), then
// config files, then the stock defaults.

type ServerAddr string

func (ServerAddr) GrexConfigurable() {}

var _ configs.Configurable = ServerAddr("")

func (Module) ServerAddr(
	loader configs.Loader,
	logger logs.Logger,
) (ret ServerAddr) {
	defer func() {
		logger.Info("server", "addr", ret)
	}()
	return vars.FirstNonZero(
		ServerAddr(os.Getenv("GREX_ADDR")),
		configs.First[ServerAddr](loader, "addr"),
		ServerAddr("127.0.0.1"),
	)
}

type ServerPort int

func (ServerPort) GrexConfigurable() {}

var _ configs.Configurable = ServerPort(0)

func (Module) ServerPort(
	loader configs.Loader,
) ServerPort {
	if s := os.Getenv("GREX_PORT"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return ServerPort(n)
		}
	}
	return vars.FirstNonZero(
		configs.First[ServerPort](loader, "port"),
		ServerPort(7590),
	)
}

// Origins is the CORS allow list. Empty means loopback origins only.
type Origins []string

func (Origins) GrexConfigurable() {}

var _ configs.Configurable = Origins(nil)

func (Module) Origins(
	loader configs.Loader,
) Origins {
	if s := os.Getenv("GREX_ORIGINS"); s != "" {
		return Origins(strings.Split(s, ","))
	}
	return configs.First[Origins](loader, "origins")
}

type MaxConns int

func (MaxConns) GrexConfigurable() {}

var _ configs.Configurable = MaxConns(0)

func (Module) MaxConns(
	loader configs.Loader,
) MaxConns {
	if s := os.Getenv("GREX_MAX_CONNS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return MaxConns(n)
		}
	}
	return vars.FirstNonZero(
		configs.First[MaxConns](loader, "max_conns"),
		MaxConns(128),
	)
}

// LocalMode selects the stdin/stdout transport instead of the server.
type LocalMode bool

func (LocalMode) GrexConfigurable() {}

var _ configs.Configurable = LocalMode(false)

func (Module) LocalMode(
	loader configs.Loader,
) LocalMode {
	if s := os.Getenv("GREX_LOCAL"); s != "" {
		return LocalMode(vars.StrToBool(s))
	}
	return configs.First[LocalMode](loader, "local")
}

// DebugREPL drops into an inspection REPL after a local exchange.
type DebugREPL bool

func (DebugREPL) GrexConfigurable() {}

var _ configs.Configurable = DebugREPL(false)

func (Module) DebugREPL() DebugREPL {
	if s := os.Getenv("GREX_REPL"); s != "" {
		return DebugREPL(vars.StrToBool(s))
	}
	return false
}

// ExecDefaults are the per-run limits applied when a request leaves an
// option unset.
type ExecDefaults runs.Options

func (Module) ExecDefaults(
	loader configs.Loader,
	logger logs.Logger,
) (ret ExecDefaults) {
	defer func() {
		logger.Info("exec defaults",
			"timeout", ret.ExecTimeout,
			"mem_limit", ret.ExecMemLimit,
			"seed", ret.RandSeed,
			"precision", ret.FloatPrecision,
		)
	}()
	opts := runs.DefaultOptions()

	if v := configs.First[float64](loader, "exec_timeout"); v != 0 {
		opts.ExecTimeout = v
	}
	if s := os.Getenv("GREX_TIMEOUT"); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			opts.ExecTimeout = v
		}
	}

	if v := configs.First[int64](loader, "exec_mem_limit"); v != 0 {
		opts.ExecMemLimit = v
	}
	if s := os.Getenv("GREX_MEM_LIMIT"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			opts.ExecMemLimit = v
		}
	}

	if v := configs.First[int64](loader, "rand_seed"); v != 0 {
		opts.RandSeed = v
	}
	if s := os.Getenv("GREX_SEED"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			opts.RandSeed = v
		}
	}

	if v := configs.First[int](loader, "float_precision"); v != 0 {
		opts.FloatPrecision = v
	}
	if s := os.Getenv("GREX_PRECISION"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			opts.FloatPrecision = v
		}
	}

	return ExecDefaults(opts)
}

func (Module) Controller(
	defaults ExecDefaults,
	logger logs.Logger,
) *runs.Controller {
	return runs.NewController(configs.ServerVersion, runs.Options(defaults), logger)
}
