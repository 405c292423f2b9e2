package domain

import (
	"context"
	"errors"

	customerdomain "github.com/smallbiznis/chargeway/internal/customer/domain"
)

type Name struct {
	First string `json:"first"`
	Last  string `json:"last"`
}

type Address struct {
	State      string `json:"state"`
	City       string `json:"city"`
	Line1      string `json:"address1"`
	PostalCode string `json:"zip"`
}

type OnboardRequest struct {
	Name         Name           `json:"name"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	Address      Address        `json:"address"`
	Metadata     map[string]any `json:"metadata"`
	CustomerType string         `json:"customer_type"`
}

// Service creates a customer consistently across the external payment system
// and the local registry, or not at all.
type Service interface {
	Onboard(ctx context.Context, req OnboardRequest) (customerdomain.CustomerRecord, error)
}

var (
	ErrInvalidEmail      = errors.New("invalid_email")
	ErrInvalidPhone      = errors.New("invalid_phone")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidAddress    = errors.New("invalid_address")
	ErrDuplicateCustomer = errors.New("duplicate_customer")
)
