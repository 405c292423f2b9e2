package paymethod

import "go.uber.org/fx"

var Module = fx.Module("paymethod.service",
	fx.Provide(New),
)
