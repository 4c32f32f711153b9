package cmds

// GlobalExecutor backs the package level command set. Packages register
// their flags in init functions through Define.
var GlobalExecutor = NewExecutor()

func Define(name string, command *Command) {
	GlobalExecutor.Define(name, command)
}

func Execute(args []string) {
	GlobalExecutor.MustExecute(args)
}
