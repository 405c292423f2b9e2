package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/smallbiznis/chargeway/internal/charge/domain"
	"github.com/smallbiznis/chargeway/internal/config"
	customerdomain "github.com/smallbiznis/chargeway/internal/customer/domain"
	"github.com/smallbiznis/chargeway/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/chargeway/internal/payment/domain"
	paymethoddomain "github.com/smallbiznis/chargeway/internal/paymethod/domain"
	"github.com/smallbiznis/chargeway/internal/providers/email"
	registrydomain "github.com/smallbiznis/chargeway/internal/registry/domain"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	Store    registrydomain.Store
	Gateway  paymentdomain.Gateway
	Resolver paymethoddomain.Service
	Holder   *config.ChargeConfigHolder
	Email    email.Provider
	Metrics  *metrics.Metrics `optional:"true"`
}

type Orchestrator struct {
	db         *gorm.DB
	log        *zap.Logger
	store      registrydomain.Store
	gateway    paymentdomain.Gateway
	resolver   paymethoddomain.Service
	holder     *config.ChargeConfigHolder
	email      email.Provider
	metrics    *metrics.Metrics
	staffEmail string
}

func New(p Params) domain.Orchestrator {
	return &Orchestrator{
		db:         p.DB,
		log:        p.Log.Named("charge.orchestrator"),
		store:      p.Store,
		gateway:    p.Gateway,
		resolver:   p.Resolver,
		holder:     p.Holder,
		email:      p.Email,
		metrics:    p.Metrics,
		staffEmail: p.Cfg.Email.StaffEmail,
	}
}

// RunBatch charges every customer enrolled under typeCode. The cohort is
// read once at the start; each customer is processed independently on a
// bounded worker pool writing its own outcome slot, so a single failure
// never aborts the run.
func (o *Orchestrator) RunBatch(ctx context.Context, typeCode string) (domain.BatchReport, error) {
	policy, ok, err := o.lookupPolicy(ctx, typeCode)
	if err != nil {
		return domain.BatchReport{}, err
	}
	if !ok {
		return domain.BatchReport{Outcomes: []domain.Outcome{}}, nil
	}

	cohort, err := o.store.Fetch(ctx, o.db, customerdomain.Table,
		[]registrydomain.Condition{{Field: "customer_type", Value: typeCode}},
		[]string{"customer_id", "email"},
	)
	if err != nil {
		return domain.BatchReport{}, err
	}

	cfg := o.holder.Get()
	outcomes := make([]domain.Outcome, len(cohort))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.BatchWorkers)
	for i, row := range cohort {
		g.Go(func() error {
			customerID, _ := row["customer_id"].(string)
			customerEmail, _ := row["email"].(string)
			outcomes[i] = o.chargeOne(gctx, policy, cfg.Currency, customerID, customerEmail)
			return nil
		})
	}
	_ = g.Wait()

	report := domain.BatchReport{
		Outcomes:       outcomes,
		TotalCustomers: len(outcomes),
	}
	for _, out := range outcomes {
		if o.metrics != nil {
			o.metrics.RecordChargeOutcome(ctx, typeCode, out.Status)
		}
		if out.Status == domain.StatusSuccess {
			report.ChargedCustomers++
		}
	}

	o.log.Info("batch complete",
		zap.String("type_code", typeCode),
		zap.Int("total_customers", report.TotalCustomers),
		zap.Int("charged_customers", report.ChargedCustomers),
	)
	o.sendBatchSummary(ctx, typeCode, report)
	return report, nil
}

// sendBatchSummary mails the staff address, when one is configured, after a
// batch finishes. Best effort, same as the customer alert.
func (o *Orchestrator) sendBatchSummary(ctx context.Context, typeCode string, report domain.BatchReport) {
	if o.staffEmail == "" {
		return
	}
	body := fmt.Sprintf("<p>Charge batch %s finished: %d of %d customers charged.</p>",
		typeCode, report.ChargedCustomers, report.TotalCustomers)
	subject := fmt.Sprintf("Charge batch %s complete", typeCode)
	if err := o.email.Send(ctx, []string{o.staffEmail}, subject, body); err != nil {
		o.log.Warn("batch summary mail failed",
			zap.String("type_code", typeCode),
			zap.Error(err),
		)
	}
}

// lookupPolicy returns ok=false for zero or multiple policy rows. That is
// a configuration error, not a request error: it is logged and the batch
// degrades to empty rather than failing.
func (o *Orchestrator) lookupPolicy(ctx context.Context, typeCode string) (domain.Policy, bool, error) {
	rows, err := o.store.Fetch(ctx, o.db, domain.Table,
		[]registrydomain.Condition{{Field: "type_code", Value: typeCode}},
		[]string{"type_code", "amount", "card_upcharge"},
	)
	if err != nil {
		return domain.Policy{}, false, err
	}
	if len(rows) != 1 {
		o.log.Warn("charge policy misconfigured, treating batch as empty",
			zap.String("type_code", typeCode),
			zap.Int("policy_rows", len(rows)),
		)
		return domain.Policy{}, false, nil
	}

	amount, amountOK := toInt64(rows[0]["amount"])
	upcharge, upchargeOK := toInt64(rows[0]["card_upcharge"])
	if !amountOK || !upchargeOK {
		o.log.Warn("charge policy has non-numeric amounts, treating batch as empty",
			zap.String("type_code", typeCode),
			zap.Any("amount", rows[0]["amount"]),
			zap.Any("card_upcharge", rows[0]["card_upcharge"]),
		)
		return domain.Policy{}, false, nil
	}

	return domain.Policy{
		TypeCode:     typeCode,
		Amount:       amount,
		CardUpcharge: upcharge,
	}, true, nil
}

func (o *Orchestrator) chargeOne(ctx context.Context, policy domain.Policy, currency, customerID, customerEmail string) domain.Outcome {
	out := domain.Outcome{
		CustomerID: customerID,
		ChargeType: policy.TypeCode,
		Status:     domain.StatusFailure,
	}

	if _, err := o.gateway.GetAccount(ctx, customerID); err != nil {
		if errors.Is(err, paymentdomain.ErrAccountNotFound) {
			out.Reason = domain.ReasonAccountMissing
		} else {
			out.Reason = err.Error()
		}
		o.log.Warn("charge skipped", zap.String("customer_id", customerID), zap.String("reason", out.Reason))
		return out
	}

	method, _, err := o.resolver.ResolveDefault(ctx, customerID)
	if err != nil {
		if errors.Is(err, paymethoddomain.ErrNoPaymentMethod) {
			out.Reason = domain.ReasonNoPaymentMethod
			o.sendPaymentUpdateAlert(ctx, customerID, customerEmail)
		} else {
			out.Reason = err.Error()
		}
		o.log.Warn("charge skipped", zap.String("customer_id", customerID), zap.String("reason", out.Reason))
		return out
	}

	amount := policy.Amount
	if method.Type == paymentdomain.MethodTypeCard {
		amount += policy.CardUpcharge
	}

	charge, err := o.gateway.CreateCharge(ctx, paymentdomain.ChargeRequest{
		AccountID:      customerID,
		Amount:         amount,
		Currency:       currency,
		MethodID:       method.ID,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		out.Reason = err.Error()
		o.log.Warn("charge failed",
			zap.String("customer_id", customerID),
			zap.Int64("amount", amount),
			zap.Error(err),
		)
		return out
	}

	out.Status = domain.StatusSuccess
	out.AmountCharged = amount
	out.Reason = ""
	o.log.Info("charge succeeded",
		zap.String("customer_id", customerID),
		zap.String("charge_id", charge.ID),
		zap.Int64("amount", amount),
	)
	return out
}

// sendPaymentUpdateAlert is best effort: an unreachable mail relay must not
// change the outcome already recorded for the customer.
func (o *Orchestrator) sendPaymentUpdateAlert(ctx context.Context, customerID, customerEmail string) {
	if customerEmail == "" {
		return
	}
	body := fmt.Sprintf("<p>We could not find a payment method on file for your account (%s). Please add one to avoid service interruption.</p>", customerID)
	if err := o.email.Send(ctx, []string{customerEmail}, "Action required: update your payment method", body); err != nil {
		o.log.Warn("payment update alert failed",
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
	}
}

// toInt64 normalizes the numeric types different drivers hand back for an
// integer column. ok is false when the value cannot be read as an integer.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case []byte:
		parsed, err := strconv.ParseInt(string(n), 10, 64)
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}
