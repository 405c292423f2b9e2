package charge

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/chargeway/internal/charge/service"
)

var Module = fx.Module("charge.orchestrator",
	fx.Provide(service.New),
)
