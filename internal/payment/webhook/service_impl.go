package webhook

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/chargeway/internal/customer/domain"
	"github.com/smallbiznis/chargeway/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/chargeway/internal/payment/domain"
	registrydomain "github.com/smallbiznis/chargeway/internal/registry/domain"
	"github.com/smallbiznis/chargeway/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Store   registrydomain.Store
	Adapter paymentdomain.WebhookAdapter
	Metrics *metrics.Metrics `optional:"true"`
}

// Service converges the local registry with the external system's state when
// the external system reports an out-of-band change.
type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	store   registrydomain.Store
	adapter paymentdomain.WebhookAdapter
	metrics *metrics.Metrics
}

func NewService(p Params) paymentdomain.WebhookService {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("payment.webhook"),
		genID:   p.GenID,
		store:   p.Store,
		adapter: p.Adapter,
		metrics: p.Metrics,
	}
}

// Ingest verifies, decodes and applies one webhook delivery. Verification or
// decode failure rejects the delivery before any local mutation. Unrecognized
// event types are acknowledged without side effects. Redelivered events
// return ErrEventAlreadyProcessed.
func (s *Service) Ingest(ctx context.Context, payload []byte, headers http.Header) error {
	if err := s.adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("webhook signature verification failed", zap.Error(err))
		s.record(ctx, "", "rejected")
		return err
	}

	event, err := s.adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			s.log.Debug("ignoring unhandled webhook event type")
			s.record(ctx, "", "ignored")
			return nil
		}
		s.log.Warn("webhook payload rejected", zap.Error(err))
		s.record(ctx, "", "rejected")
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := paymentdomain.EventRecord{
			ID:              s.genID.Generate().Int64(),
			Provider:        event.Provider,
			ProviderEventID: event.ProviderEventID,
			EventType:       event.Type,
			CustomerID:      event.CustomerID,
			ReceivedAt:      time.Now().UTC(),
		}
		if err := tx.Create(&record).Error; err != nil {
			if db.IsDuplicateKeyErr(err) {
				return paymentdomain.ErrEventAlreadyProcessed
			}
			return err
		}

		return s.apply(ctx, tx, event)
	})
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
			s.record(ctx, event.Type, "duplicate")
			return err
		}
		s.log.Error("webhook convergence failed",
			zap.String("provider_event_id", event.ProviderEventID),
			zap.Error(err),
		)
		s.record(ctx, event.Type, "error")
		return err
	}

	s.record(ctx, event.Type, "applied")
	return nil
}

func (s *Service) apply(ctx context.Context, tx *gorm.DB, event *paymentdomain.WebhookEvent) error {
	switch event.Type {
	case paymentdomain.EventTypeAccountDeleted:
		rows, err := s.store.Delete(ctx, tx, customerdomain.Table, []registrydomain.Condition{
			{Field: "customer_id", Value: event.CustomerID},
		})
		if err != nil {
			return err
		}
		// Zero rows is the idempotent case: the record is already gone or
		// was never onboarded here.
		s.log.Info("external account deletion applied",
			zap.String("customer_id", event.CustomerID),
			zap.Int64("rows_deleted", rows),
		)
		return nil
	default:
		return nil
	}
}

func (s *Service) record(ctx context.Context, eventType, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordWebhookEvent(ctx, s.adapter.Provider(), eventType, result)
}
