package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	paymentdomain "github.com/smallbiznis/chargeway/internal/payment/domain"
)

const apiBase = "https://api.stripe.com"

// listLimit is Stripe's maximum page size.
const listLimit = 100

// Client is a thin typed facade over the Stripe REST API covering only the
// account, payment-method and charge operations this service needs.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient builds a gateway client. The http.Client timeout is a backstop;
// per-call deadlines come from the caller's context.
func NewClient(apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: apiBase,
		client:  &http.Client{Timeout: timeout},
	}
}

// WithBaseURL points the client at a different API host, for tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

type stripeCustomer struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Deleted         bool   `json:"deleted"`
	InvoiceSettings struct {
		DefaultPaymentMethod string `json:"default_payment_method"`
	} `json:"invoice_settings"`
}

type stripePaymentMethod struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type stripePaymentIntent struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type stripeCheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type stripeList[T any] struct {
	Data    []T  `json:"data"`
	HasMore bool `json:"has_more"`
}

type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) GetAccount(ctx context.Context, id string) (*paymentdomain.Account, error) {
	var customer stripeCustomer
	if err := c.doRequest(ctx, http.MethodGet, "/v1/customers/"+url.PathEscape(id), nil, "", &customer); err != nil {
		return nil, err
	}
	if customer.Deleted {
		return nil, paymentdomain.ErrAccountNotFound
	}
	return accountFromCustomer(customer), nil
}

func (c *Client) CreateAccount(ctx context.Context, req paymentdomain.CreateAccountRequest) (*paymentdomain.Account, error) {
	values := url.Values{}
	values.Set("name", req.Name)
	values.Set("email", req.Email)
	values.Set("phone", req.Phone)

	var customer stripeCustomer
	if err := c.doRequest(ctx, http.MethodPost, "/v1/customers", values, "", &customer); err != nil {
		return nil, err
	}
	return accountFromCustomer(customer), nil
}

func (c *Client) DeleteAccount(ctx context.Context, id string) error {
	var customer stripeCustomer
	return c.doRequest(ctx, http.MethodDelete, "/v1/customers/"+url.PathEscape(id), nil, "", &customer)
}

func (c *Client) GetPaymentMethod(ctx context.Context, id string) (*paymentdomain.PaymentMethod, error) {
	var method stripePaymentMethod
	if err := c.doRequest(ctx, http.MethodGet, "/v1/payment_methods/"+url.PathEscape(id), nil, "", &method); err != nil {
		if errors.Is(err, paymentdomain.ErrAccountNotFound) {
			return nil, paymentdomain.ErrMethodNotFound
		}
		return nil, err
	}
	return &paymentdomain.PaymentMethod{ID: method.ID, Type: method.Type}, nil
}

func (c *Client) SetDefaultPaymentMethod(ctx context.Context, accountID, methodID string) error {
	values := url.Values{}
	values.Set("invoice_settings[default_payment_method]", methodID)

	var customer stripeCustomer
	return c.doRequest(ctx, http.MethodPost, "/v1/customers/"+url.PathEscape(accountID), values, "", &customer)
}

func (c *Client) CreateCharge(ctx context.Context, req paymentdomain.ChargeRequest) (*paymentdomain.Charge, error) {
	values := url.Values{}
	values.Set("amount", fmt.Sprintf("%d", req.Amount))
	values.Set("currency", strings.ToLower(req.Currency))
	values.Set("customer", req.AccountID)
	values.Set("payment_method", req.MethodID)
	values.Set("off_session", "true")
	values.Set("confirm", "true")

	var intent stripePaymentIntent
	if err := c.doRequest(ctx, http.MethodPost, "/v1/payment_intents", values, req.IdempotencyKey, &intent); err != nil {
		return nil, err
	}
	return &paymentdomain.Charge{
		ID:       intent.ID,
		Amount:   intent.Amount,
		Currency: intent.Currency,
		Status:   intent.Status,
	}, nil
}

func (c *Client) CreateSetupSession(ctx context.Context, accountID, successURL string) (*paymentdomain.SetupSession, error) {
	values := url.Values{}
	values.Set("customer", accountID)
	values.Set("mode", "setup")
	values.Set("success_url", successURL)
	values.Add("payment_method_types[]", paymentdomain.MethodTypeCard)
	values.Add("payment_method_types[]", paymentdomain.MethodTypeBankAccount)

	var session stripeCheckoutSession
	if err := c.doRequest(ctx, http.MethodPost, "/v1/checkout/sessions", values, "", &session); err != nil {
		return nil, err
	}
	return &paymentdomain.SetupSession{ID: session.ID, URL: session.URL}, nil
}

func (c *Client) PaymentMethods(accountID string) paymentdomain.PageFunc[paymentdomain.PaymentMethod] {
	return func(ctx context.Context, cursor string) (paymentdomain.Page[paymentdomain.PaymentMethod], error) {
		query := url.Values{}
		query.Set("customer", accountID)
		query.Set("limit", fmt.Sprintf("%d", listLimit))
		if cursor != "" {
			query.Set("starting_after", cursor)
		}

		var list stripeList[stripePaymentMethod]
		err := c.doRequest(ctx, http.MethodGet, "/v1/payment_methods?"+query.Encode(), nil, "", &list)
		if err != nil {
			return paymentdomain.Page[paymentdomain.PaymentMethod]{}, err
		}

		page := paymentdomain.Page[paymentdomain.PaymentMethod]{HasMore: list.HasMore}
		for _, method := range list.Data {
			page.Items = append(page.Items, paymentdomain.PaymentMethod{ID: method.ID, Type: method.Type})
		}
		if list.HasMore && len(list.Data) > 0 {
			page.NextCursor = list.Data[len(list.Data)-1].ID
		}
		return page, nil
	}
}

func (c *Client) Accounts(emailFilter string) paymentdomain.PageFunc[paymentdomain.Account] {
	return func(ctx context.Context, cursor string) (paymentdomain.Page[paymentdomain.Account], error) {
		query := url.Values{}
		if emailFilter != "" {
			query.Set("email", emailFilter)
		}
		query.Set("limit", fmt.Sprintf("%d", listLimit))
		if cursor != "" {
			query.Set("starting_after", cursor)
		}

		var list stripeList[stripeCustomer]
		err := c.doRequest(ctx, http.MethodGet, "/v1/customers?"+query.Encode(), nil, "", &list)
		if err != nil {
			return paymentdomain.Page[paymentdomain.Account]{}, err
		}

		page := paymentdomain.Page[paymentdomain.Account]{HasMore: list.HasMore}
		for _, customer := range list.Data {
			page.Items = append(page.Items, *accountFromCustomer(customer))
		}
		if list.HasMore && len(list.Data) > 0 {
			page.NextCursor = list.Data[len(list.Data)-1].ID
		}
		return page, nil
	}
}

func (c *Client) doRequest(
	ctx context.Context,
	method string,
	path string,
	values url.Values,
	idempotencyKey string,
	out any,
) error {
	if c.apiKey == "" {
		return paymentdomain.ErrInvalidConfig
	}

	var bodyReader io.Reader
	if values != nil {
		bodyReader = strings.NewReader(values.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", paymentdomain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return classifyError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", paymentdomain.ErrUpstream, err)
	}
	return nil
}

func classifyError(resp *http.Response) error {
	var stripeErr stripeErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&stripeErr)
	message := strings.TrimSpace(stripeErr.Error.Message)

	switch {
	case resp.StatusCode == http.StatusNotFound || stripeErr.Error.Code == "resource_missing":
		return paymentdomain.ErrAccountNotFound
	case stripeErr.Error.Type == "card_error" || resp.StatusCode == http.StatusPaymentRequired:
		if message == "" {
			message = "card declined"
		}
		return fmt.Errorf("%w: %s", paymentdomain.ErrChargeDeclined, message)
	default:
		if message == "" {
			message = resp.Status
		}
		return fmt.Errorf("%w: %s", paymentdomain.ErrUpstream, message)
	}
}

func accountFromCustomer(customer stripeCustomer) *paymentdomain.Account {
	return &paymentdomain.Account{
		ID:                     customer.ID,
		Email:                  customer.Email,
		Name:                   customer.Name,
		Phone:                  customer.Phone,
		DefaultPaymentMethodID: customer.InvoiceSettings.DefaultPaymentMethod,
	}
}

var _ paymentdomain.Gateway = (*Client)(nil)
