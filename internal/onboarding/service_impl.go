package onboarding

import (
	"context"
	"fmt"
	"strings"
	"time"

	customerdomain "github.com/smallbiznis/chargeway/internal/customer/domain"
	"github.com/smallbiznis/chargeway/internal/observability/metrics"
	"github.com/smallbiznis/chargeway/internal/onboarding/domain"
	paymentdomain "github.com/smallbiznis/chargeway/internal/payment/domain"
	registrydomain "github.com/smallbiznis/chargeway/internal/registry/domain"
	"github.com/smallbiznis/chargeway/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Store   registrydomain.Store
	Gateway paymentdomain.Gateway
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	store   registrydomain.Store
	gateway paymentdomain.Gateway
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("onboarding.service"),
		store:   p.Store,
		gateway: p.Gateway,
		metrics: p.Metrics,
	}
}

// Onboard checks both stores for an existing customer, then creates the
// external account and the local record. Both existence checks run before
// any mutation. If the local insert fails after the external create
// succeeded, the external account is deleted before returning, so the two
// stores never disagree past the end of this call.
func (s *Service) Onboard(ctx context.Context, req domain.OnboardRequest) (customerdomain.CustomerRecord, error) {
	req, err := validate(req)
	if err != nil {
		s.record(ctx, "invalid")
		return customerdomain.CustomerRecord{}, err
	}

	externalExists, err := s.existsExternal(ctx, req.Email)
	if err != nil {
		s.record(ctx, "error")
		return customerdomain.CustomerRecord{}, err
	}

	localExists, err := s.store.Exists(ctx, s.db, customerdomain.Table, []registrydomain.Condition{
		{Field: "email", Value: req.Email},
		{Field: "phone", Value: req.Phone},
	})
	if err != nil {
		s.record(ctx, "error")
		return customerdomain.CustomerRecord{}, err
	}

	if externalExists || localExists {
		s.record(ctx, "duplicate")
		return customerdomain.CustomerRecord{}, domain.ErrDuplicateCustomer
	}

	account, err := s.gateway.CreateAccount(ctx, paymentdomain.CreateAccountRequest{
		Name:  fmt.Sprintf("%s, %s", req.Name.First, req.Name.Last),
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		s.log.Error("external account creation failed", zap.Error(err))
		s.record(ctx, "error")
		return customerdomain.CustomerRecord{}, err
	}

	record := customerdomain.CustomerRecord{
		CustomerID: account.ID,
		Email:      req.Email,
		Phone:      req.Phone,
		Name: datatypes.JSONMap{
			"first": req.Name.First,
			"last":  req.Name.Last,
		},
		Address: datatypes.JSONMap{
			"state":    req.Address.State,
			"city":     req.Address.City,
			"address1": req.Address.Line1,
			"zip":      req.Address.PostalCode,
		},
		Metadata:     datatypes.JSONMap(req.Metadata),
		CustomerType: req.CustomerType,
		CreatedAt:    time.Now().UTC(),
	}
	if record.Metadata == nil {
		record.Metadata = datatypes.JSONMap{}
	}

	if err := s.store.Insert(ctx, s.db, customerdomain.Table, rowFromRecord(record)); err != nil {
		s.compensate(ctx, account.ID, err)
		if db.IsDuplicateKeyErr(err) {
			s.record(ctx, "duplicate")
			return customerdomain.CustomerRecord{}, domain.ErrDuplicateCustomer
		}
		s.record(ctx, "error")
		return customerdomain.CustomerRecord{}, err
	}

	s.record(ctx, "created")
	return record, nil
}

func (s *Service) existsExternal(ctx context.Context, email string) (bool, error) {
	_, found, err := paymentdomain.First(ctx, s.gateway.Accounts(email))
	if err != nil {
		s.log.Error("external existence check failed", zap.Error(err))
		return false, err
	}
	return found, nil
}

// compensate deletes the just-created external account after a failed local
// insert. Its own failure is logged separately from the insert failure so
// operators can find stranded accounts.
func (s *Service) compensate(ctx context.Context, accountID string, insertErr error) {
	s.log.Error("local insert failed after external create, rolling back external account",
		zap.String("customer_id", accountID),
		zap.Error(insertErr),
	)
	if err := s.gateway.DeleteAccount(ctx, accountID); err != nil {
		s.log.Error("compensating external delete failed, stores may disagree",
			zap.String("customer_id", accountID),
			zap.Error(err),
		)
	}
}

func (s *Service) record(ctx context.Context, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordOnboarding(ctx, result)
}

func rowFromRecord(record customerdomain.CustomerRecord) registrydomain.Row {
	return registrydomain.Row{
		"customer_id":   record.CustomerID,
		"email":         record.Email,
		"phone":         record.Phone,
		"name":          record.Name,
		"address":       record.Address,
		"metadata":      record.Metadata,
		"customer_type": record.CustomerType,
		"created_at":    record.CreatedAt,
	}
}

func validate(req domain.OnboardRequest) (domain.OnboardRequest, error) {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return req, domain.ErrInvalidEmail
	}

	req.Phone = strings.TrimSpace(req.Phone)
	if req.Phone == "" {
		return req, domain.ErrInvalidPhone
	}

	req.Name.First = strings.TrimSpace(req.Name.First)
	req.Name.Last = strings.TrimSpace(req.Name.Last)
	if req.Name.First == "" || req.Name.Last == "" {
		return req, domain.ErrInvalidName
	}

	req.Address.State = strings.TrimSpace(req.Address.State)
	req.Address.City = strings.TrimSpace(req.Address.City)
	req.Address.Line1 = strings.TrimSpace(req.Address.Line1)
	req.Address.PostalCode = strings.TrimSpace(req.Address.PostalCode)
	if req.Address.State == "" || req.Address.City == "" || req.Address.Line1 == "" || req.Address.PostalCode == "" {
		return req, domain.ErrInvalidAddress
	}

	req.CustomerType = strings.TrimSpace(req.CustomerType)
	return req, nil
}
