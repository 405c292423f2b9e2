package registry

import (
	"github.com/smallbiznis/chargeway/internal/registry/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("registry.store",
	fx.Provide(repository.Provide),
)
