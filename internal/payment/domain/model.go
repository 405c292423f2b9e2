package domain

import (
	"context"
	"errors"
)

// Account is the external payment-processor side of a customer.
type Account struct {
	ID                     string
	Email                  string
	Name                   string
	Phone                  string
	DefaultPaymentMethodID string
}

// PaymentMethod is an external payment instrument reference. It is never
// persisted locally; callers resolve it per charge attempt.
type PaymentMethod struct {
	ID   string
	Type string
}

const (
	MethodTypeCard        = "card"
	MethodTypeBankAccount = "us_bank_account"
)

// Charge is a confirmed off-session payment intent.
type Charge struct {
	ID       string
	Amount   int64
	Currency string
	Status   string
}

// SetupSession is a hosted session where a customer attaches a payment
// instrument to their account.
type SetupSession struct {
	ID  string
	URL string
}

type CreateAccountRequest struct {
	Name  string
	Email string
	Phone string
}

type ChargeRequest struct {
	AccountID      string
	Amount         int64
	Currency       string
	MethodID       string
	IdempotencyKey string
}

// Gateway is the thin typed facade over the external payment processor.
// Every call must respect the deadline on ctx; a timeout or transport
// failure surfaces as ErrUpstream and is never retried here.
type Gateway interface {
	GetAccount(ctx context.Context, id string) (*Account, error)
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*Account, error)
	DeleteAccount(ctx context.Context, id string) error
	GetPaymentMethod(ctx context.Context, id string) (*PaymentMethod, error)
	SetDefaultPaymentMethod(ctx context.Context, accountID, methodID string) error
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	CreateSetupSession(ctx context.Context, accountID, successURL string) (*SetupSession, error)

	// PaymentMethods and Accounts return restartable page sequences;
	// invoking the sequence with an empty cursor starts over.
	PaymentMethods(accountID string) PageFunc[PaymentMethod]
	Accounts(emailFilter string) PageFunc[Account]
}

var (
	ErrAccountNotFound = errors.New("account_not_found")
	ErrMethodNotFound  = errors.New("method_not_found")
	ErrUpstream        = errors.New("upstream_unavailable")
	ErrChargeDeclined  = errors.New("charge_declined")
	ErrInvalidConfig   = errors.New("invalid_gateway_config")
)
