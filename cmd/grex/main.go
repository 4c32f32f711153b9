package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/reusee/dscope"
	"github.com/reusee/grex/cmds"
	"github.com/reusee/grex/configs"
	"github.com/reusee/grex/logs"
	"github.com/reusee/grex/modes"
	"github.com/reusee/grex/nets"
)

var (
	configFiles = cmds.Collect[string]("-config")
	settings    = cmds.Collect[string]("-settings")
	localFlag   = cmds.Switch("-local")
)

func init() {
	cmds.Define("-version", cmds.Func(func() {
		fmt.Println(configs.ServerVersion)
		os.Exit(0)
	}).Desc("print the protocol version"))
}

func main() {
	cmds.Execute(os.Args[1:])

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	scope := dscope.New(
		new(nets.Module),
		modes.ForProduction(),
		dscope.Provide(configs.NewLoader(*configFiles, configs.Schema)),
	)

	if len(*settings) > 0 {
		var err error
		scope, err = configs.FromScripts(scope, *settings)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	scope.Call(func(
		localMode nets.LocalMode,
		runLocal nets.RunLocal,
		serve nets.Serve,
		logger logs.Logger,
	) {
		if *localFlag || bool(localMode) {
			if err := runLocal(ctx); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			return
		}
		if err := serve(ctx); err != nil {
			logger.ErrorContext(ctx, "server", "error", err)
			os.Exit(1)
		}
	})
}
