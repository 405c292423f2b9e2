package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	chargedomain "github.com/smallbiznis/chargeway/internal/charge/domain"
	"github.com/smallbiznis/chargeway/internal/config"
	customerdomain "github.com/smallbiznis/chargeway/internal/customer/domain"
	paymentdomain "github.com/smallbiznis/chargeway/internal/payment/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// Versioned migrations are written for postgres; other
			// dialects (local mysql, sqlite in tests) take the model
			// schema directly.
			return conn.AutoMigrate(
				&customerdomain.CustomerRecord{},
				&chargedomain.PolicyRecord{},
				&paymentdomain.EventRecord{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
