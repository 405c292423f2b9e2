package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/smallbiznis/chargeway/internal/charge"
	"github.com/smallbiznis/chargeway/internal/config"
	"github.com/smallbiznis/chargeway/internal/migration"
	"github.com/smallbiznis/chargeway/internal/observability"
	"github.com/smallbiznis/chargeway/internal/onboarding"
	"github.com/smallbiznis/chargeway/internal/payment"
	"github.com/smallbiznis/chargeway/internal/paymethod"
	"github.com/smallbiznis/chargeway/internal/providers/email"
	"github.com/smallbiznis/chargeway/internal/ratelimit"
	"github.com/smallbiznis/chargeway/internal/recon"
	"github.com/smallbiznis/chargeway/internal/registry"
	"github.com/smallbiznis/chargeway/internal/server"
	"github.com/smallbiznis/chargeway/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		registry.Module,
		payment.Module,
		onboarding.Module,
		paymethod.Module,
		charge.Module,
		recon.Module,
		email.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
