package grexvm

type Closure struct {
	Fun      *Function
	Env      *Env
	Defaults []any
}
