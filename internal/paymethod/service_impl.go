package paymethod

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	paymentdomain "github.com/smallbiznis/chargeway/internal/payment/domain"
	"github.com/smallbiznis/chargeway/internal/paymethod/domain"
)

type Params struct {
	fx.In
	Log     *zap.Logger
	Gateway paymentdomain.Gateway
}

type service struct {
	log     *zap.Logger
	gateway paymentdomain.Gateway
}

func New(p Params) domain.Service {
	return &service{
		log:     p.Log.Named("paymethod.service"),
		gateway: p.Gateway,
	}
}

func (s *service) ResolveDefault(ctx context.Context, customerID string) (paymentdomain.PaymentMethod, bool, error) {
	account, err := s.gateway.GetAccount(ctx, customerID)
	if err != nil {
		return paymentdomain.PaymentMethod{}, false, err
	}

	if account.DefaultPaymentMethodID != "" {
		method, err := s.gateway.GetPaymentMethod(ctx, account.DefaultPaymentMethodID)
		if err != nil {
			return paymentdomain.PaymentMethod{}, false, err
		}
		return *method, false, nil
	}

	method, ok, err := paymentdomain.First(ctx, s.gateway.PaymentMethods(customerID))
	if err != nil {
		return paymentdomain.PaymentMethod{}, false, err
	}
	if !ok {
		return paymentdomain.PaymentMethod{}, false, domain.ErrNoPaymentMethod
	}

	if err := s.gateway.SetDefaultPaymentMethod(ctx, customerID, method.ID); err != nil {
		return paymentdomain.PaymentMethod{}, false, err
	}

	s.log.Info("assigned default payment method",
		zap.String("customer_id", customerID),
		zap.String("payment_method_id", method.ID),
	)
	return method, true, nil
}

func (s *service) ListMethods(ctx context.Context, customerID string) ([]domain.MethodInfo, error) {
	account, err := s.gateway.GetAccount(ctx, customerID)
	if err != nil {
		return nil, err
	}

	methods, err := paymentdomain.Drain(ctx, s.gateway.PaymentMethods(customerID))
	if err != nil {
		return nil, err
	}

	infos := make([]domain.MethodInfo, 0, len(methods))
	for _, m := range methods {
		infos = append(infos, domain.MethodInfo{
			ID:        m.ID,
			Type:      m.Type,
			IsDefault: m.ID == account.DefaultPaymentMethodID,
		})
	}
	return infos, nil
}

func (s *service) SetDefault(ctx context.Context, customerID, methodID string) error {
	account, err := s.gateway.GetAccount(ctx, customerID)
	if err != nil {
		return err
	}
	if account.DefaultPaymentMethodID == methodID {
		return nil
	}

	if _, err := s.gateway.GetPaymentMethod(ctx, methodID); err != nil {
		return err
	}
	return s.gateway.SetDefaultPaymentMethod(ctx, customerID, methodID)
}
