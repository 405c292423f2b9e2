package payment

import (
	"github.com/smallbiznis/chargeway/internal/config"
	"github.com/smallbiznis/chargeway/internal/payment/domain"
	"github.com/smallbiznis/chargeway/internal/payment/stripe"
	"github.com/smallbiznis/chargeway/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.gateway",
	fx.Provide(func(cfg config.Config) domain.Gateway {
		return stripe.NewClient(cfg.StripeSecretKey, cfg.UpstreamTimeout)
	}),
	fx.Provide(func(cfg config.Config) (domain.WebhookAdapter, error) {
		return stripe.NewWebhookAdapter(cfg.WebhookSigningSecret)
	}),
	fx.Provide(webhook.NewService),
)
