package nets

import (
	"github.com/reusee/dscope"

	"github.com/reusee/grex/configs"
	"github.com/reusee/grex/debugs"
	"github.com/reusee/grex/logs"
)

type Module struct {
	dscope.Module
	Configs configs.Module
	Debugs  debugs.Module
	Logs    logs.Module
}
