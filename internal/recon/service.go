package recon

import (
	"context"
	"errors"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	customerdomain "github.com/smallbiznis/chargeway/internal/customer/domain"
	"github.com/smallbiznis/chargeway/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/chargeway/internal/payment/domain"
	registrydomain "github.com/smallbiznis/chargeway/internal/registry/domain"
)

// AuditReport lists registry records whose external payment account no
// longer exists. Missing entries are reported, not deleted; convergence
// stays webhook-driven.
type AuditReport struct {
	Checked int      `json:"checked"`
	Missing []string `json:"missing"`
}

type Auditor interface {
	Audit(ctx context.Context) (AuditReport, error)
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Store   registrydomain.Store
	Gateway paymentdomain.Gateway
	Metrics *metrics.Metrics `optional:"true"`
}

type service struct {
	db      *gorm.DB
	log     *zap.Logger
	store   registrydomain.Store
	gateway paymentdomain.Gateway
	metrics *metrics.Metrics
}

func New(p Params) Auditor {
	return &service{
		db:      p.DB,
		log:     p.Log.Named("recon.auditor"),
		store:   p.Store,
		gateway: p.Gateway,
		metrics: p.Metrics,
	}
}

func (s *service) Audit(ctx context.Context) (AuditReport, error) {
	rows, err := s.store.Fetch(ctx, s.db, customerdomain.Table, nil, []string{"customer_id"})
	if err != nil {
		return AuditReport{}, err
	}

	report := AuditReport{Missing: []string{}}
	for _, row := range rows {
		customerID, _ := row["customer_id"].(string)
		if customerID == "" {
			continue
		}
		report.Checked++

		_, err := s.gateway.GetAccount(ctx, customerID)
		switch {
		case err == nil:
		case errors.Is(err, paymentdomain.ErrAccountNotFound):
			report.Missing = append(report.Missing, customerID)
			s.log.Warn("registry record has no external account", zap.String("customer_id", customerID))
		default:
			return AuditReport{}, err
		}
	}

	if s.metrics != nil && len(report.Missing) > 0 {
		s.metrics.RecordReconMissing(ctx, int64(len(report.Missing)))
	}
	s.log.Info("existence audit complete",
		zap.Int("checked", report.Checked),
		zap.Int("missing", len(report.Missing)),
	)
	return report, nil
}

var Module = fx.Module("recon.auditor",
	fx.Provide(New),
)
