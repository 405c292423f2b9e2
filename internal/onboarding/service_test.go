package onboarding

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	customerdomain "github.com/smallbiznis/chargeway/internal/customer/domain"
	"github.com/smallbiznis/chargeway/internal/onboarding/domain"
	paymentdomain "github.com/smallbiznis/chargeway/internal/payment/domain"
	registryrepo "github.com/smallbiznis/chargeway/internal/registry/repository"
)

// fakeGateway records the mutating call sequence so tests can assert the
// compensating-delete ordering.
type fakeGateway struct {
	existingEmails map[string]bool
	nextAccountID  string
	createErr      error
	listErr        error

	calls []string
}

func (f *fakeGateway) GetAccount(ctx context.Context, id string) (*paymentdomain.Account, error) {
	return nil, paymentdomain.ErrAccountNotFound
}

func (f *fakeGateway) CreateAccount(ctx context.Context, req paymentdomain.CreateAccountRequest) (*paymentdomain.Account, error) {
	f.calls = append(f.calls, "create")
	if f.createErr != nil {
		return nil, f.createErr
	}
	id := f.nextAccountID
	if id == "" {
		id = "cus_new"
	}
	return &paymentdomain.Account{ID: id, Email: req.Email, Name: req.Name, Phone: req.Phone}, nil
}

func (f *fakeGateway) DeleteAccount(ctx context.Context, id string) error {
	f.calls = append(f.calls, "delete:"+id)
	return nil
}

func (f *fakeGateway) GetPaymentMethod(ctx context.Context, id string) (*paymentdomain.PaymentMethod, error) {
	return nil, paymentdomain.ErrMethodNotFound
}

func (f *fakeGateway) SetDefaultPaymentMethod(ctx context.Context, accountID, methodID string) error {
	f.calls = append(f.calls, "set_default")
	return nil
}

func (f *fakeGateway) CreateCharge(ctx context.Context, req paymentdomain.ChargeRequest) (*paymentdomain.Charge, error) {
	return nil, paymentdomain.ErrUpstream
}

func (f *fakeGateway) CreateSetupSession(ctx context.Context, accountID, successURL string) (*paymentdomain.SetupSession, error) {
	return nil, paymentdomain.ErrUpstream
}

func (f *fakeGateway) PaymentMethods(accountID string) paymentdomain.PageFunc[paymentdomain.PaymentMethod] {
	return func(ctx context.Context, cursor string) (paymentdomain.Page[paymentdomain.PaymentMethod], error) {
		return paymentdomain.Page[paymentdomain.PaymentMethod]{}, nil
	}
}

func (f *fakeGateway) Accounts(emailFilter string) paymentdomain.PageFunc[paymentdomain.Account] {
	return func(ctx context.Context, cursor string) (paymentdomain.Page[paymentdomain.Account], error) {
		f.calls = append(f.calls, "accounts.list")
		if f.listErr != nil {
			return paymentdomain.Page[paymentdomain.Account]{}, f.listErr
		}
		page := paymentdomain.Page[paymentdomain.Account]{}
		if f.existingEmails[emailFilter] {
			page.Items = []paymentdomain.Account{{ID: "cus_existing", Email: emailFilter}}
		}
		return page, nil
	}
}

var _ paymentdomain.Gateway = (*fakeGateway)(nil)

func setupService(t *testing.T, gateway *fakeGateway) (domain.Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:onboarding_%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&customerdomain.CustomerRecord{}))

	svc := New(Params{
		DB:      conn,
		Log:     zap.NewNop(),
		Store:   registryrepo.Provide(),
		Gateway: gateway,
	})
	return svc, conn
}

func validRequest() domain.OnboardRequest {
	return domain.OnboardRequest{
		Name:  domain.Name{First: "Ada", Last: "Lovelace"},
		Email: "ada@example.com",
		Phone: "555-0001",
		Address: domain.Address{
			State:      "CA",
			City:       "Oakland",
			Line1:      "1 Main St",
			PostalCode: "94601",
		},
		Metadata:     map[string]any{"source": "test"},
		CustomerType: "standard",
	}
}

func countCustomers(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&customerdomain.CustomerRecord{}).Count(&n).Error)
	return n
}

func TestOnboardValidation(t *testing.T) {
	gateway := &fakeGateway{}
	svc, conn := setupService(t, gateway)

	cases := []struct {
		mutate func(*domain.OnboardRequest)
		want   error
	}{
		{func(r *domain.OnboardRequest) { r.Email = "" }, domain.ErrInvalidEmail},
		{func(r *domain.OnboardRequest) { r.Email = "not-an-email" }, domain.ErrInvalidEmail},
		{func(r *domain.OnboardRequest) { r.Phone = " " }, domain.ErrInvalidPhone},
		{func(r *domain.OnboardRequest) { r.Name.Last = "" }, domain.ErrInvalidName},
		{func(r *domain.OnboardRequest) { r.Address.PostalCode = "" }, domain.ErrInvalidAddress},
	}
	for _, tc := range cases {
		req := validRequest()
		tc.mutate(&req)
		_, err := svc.Onboard(context.Background(), req)
		assert.True(t, errors.Is(err, tc.want), "expected %v, got %v", tc.want, err)
	}

	assert.Empty(t, gateway.calls, "validation failures must not reach the gateway")
	assert.Zero(t, countCustomers(t, conn))
}

func TestOnboardDuplicateExternal(t *testing.T) {
	gateway := &fakeGateway{existingEmails: map[string]bool{"ada@example.com": true}}
	svc, conn := setupService(t, gateway)

	_, err := svc.Onboard(context.Background(), validRequest())
	assert.True(t, errors.Is(err, domain.ErrDuplicateCustomer))

	assert.Equal(t, []string{"accounts.list"}, gateway.calls, "no mutation on duplicate")
	assert.Zero(t, countCustomers(t, conn))
}

func TestOnboardDuplicateLocal(t *testing.T) {
	gateway := &fakeGateway{}
	svc, conn := setupService(t, gateway)

	require.NoError(t, conn.Create(&customerdomain.CustomerRecord{
		CustomerID: "cus_prev",
		Email:      "other@example.com",
		Phone:      "555-0001", // same phone, different email
		CreatedAt:  time.Now().UTC(),
	}).Error)

	_, err := svc.Onboard(context.Background(), validRequest())
	assert.True(t, errors.Is(err, domain.ErrDuplicateCustomer))

	assert.Equal(t, []string{"accounts.list"}, gateway.calls)
	assert.EqualValues(t, 1, countCustomers(t, conn))
}

func TestOnboardSuccess(t *testing.T) {
	gateway := &fakeGateway{nextAccountID: "cus_123"}
	svc, conn := setupService(t, gateway)

	record, err := svc.Onboard(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "cus_123", record.CustomerID)
	assert.Equal(t, "standard", record.CustomerType)

	assert.Equal(t, []string{"accounts.list", "create"}, gateway.calls)

	var stored customerdomain.CustomerRecord
	require.NoError(t, conn.First(&stored, "customer_id = ?", "cus_123").Error)
	assert.Equal(t, "ada@example.com", stored.Email)
}

func TestOnboardCompensatesFailedInsert(t *testing.T) {
	// The external create returns an ID already present locally, so the
	// insert hits the primary-key constraint after the external account
	// exists. The account must be deleted before the call returns.
	gateway := &fakeGateway{nextAccountID: "cus_taken"}
	svc, conn := setupService(t, gateway)

	require.NoError(t, conn.Create(&customerdomain.CustomerRecord{
		CustomerID: "cus_taken",
		Email:      "someone@example.com",
		Phone:      "555-9999",
		CreatedAt:  time.Now().UTC(),
	}).Error)

	_, err := svc.Onboard(context.Background(), validRequest())
	assert.True(t, errors.Is(err, domain.ErrDuplicateCustomer), "dup-key insert maps to ErrDuplicateCustomer, got %v", err)

	assert.Equal(t, []string{"accounts.list", "create", "delete:cus_taken"}, gateway.calls)
	assert.EqualValues(t, 1, countCustomers(t, conn), "only the pre-existing record remains")
}

func TestOnboardUpstreamCheckFailure(t *testing.T) {
	gateway := &fakeGateway{listErr: paymentdomain.ErrUpstream}
	svc, conn := setupService(t, gateway)

	_, err := svc.Onboard(context.Background(), validRequest())
	assert.True(t, errors.Is(err, paymentdomain.ErrUpstream))
	assert.Equal(t, []string{"accounts.list"}, gateway.calls)
	assert.Zero(t, countCustomers(t, conn))
}
