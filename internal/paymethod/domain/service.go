package domain

import (
	"context"
	"errors"

	paymentdomain "github.com/smallbiznis/chargeway/internal/payment/domain"
)

// MethodInfo is one listed payment method with its default flag.
type MethodInfo struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	IsDefault bool   `json:"is_default"`
}

// Service resolves the payment instrument used for off-session charges.
type Service interface {
	// ResolveDefault returns the customer's default payment method. When no
	// default is set but methods exist, the first listed method is assigned
	// as the new default and returned with assignedNew=true.
	ResolveDefault(ctx context.Context, customerID string) (paymentdomain.PaymentMethod, bool, error)

	// ListMethods returns every method on file with its default flag.
	ListMethods(ctx context.Context, customerID string) ([]MethodInfo, error)

	// SetDefault assigns methodID as the default. Assigning the current
	// default is a no-op.
	SetDefault(ctx context.Context, customerID, methodID string) error
}

// ErrNoPaymentMethod is terminal for a resolution attempt: the account has
// no instrument on file and none can be created here.
var ErrNoPaymentMethod = errors.New("no_payment_method")
