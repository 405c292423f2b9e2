package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	paymentdomain "github.com/smallbiznis/chargeway/internal/payment/domain"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("sk_test_key", 2*time.Second).WithBaseURL(srv.URL)
}

func TestGetAccount(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk_test_key" {
			t.Errorf("missing bearer auth, got %q", r.Header.Get("Authorization"))
		}
		switch r.URL.Path {
		case "/v1/customers/cus_1":
			fmt.Fprint(w, `{"id":"cus_1","email":"a@b.co","invoice_settings":{"default_payment_method":"pm_1"}}`)
		case "/v1/customers/cus_gone":
			fmt.Fprint(w, `{"id":"cus_gone","deleted":true}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"type":"invalid_request_error","code":"resource_missing"}}`)
		}
	}))

	account, err := client.GetAccount(context.Background(), "cus_1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.DefaultPaymentMethodID != "pm_1" {
		t.Fatalf("expected default pm_1, got %q", account.DefaultPaymentMethodID)
	}

	if _, err := client.GetAccount(context.Background(), "cus_gone"); !errors.Is(err, paymentdomain.ErrAccountNotFound) {
		t.Fatalf("soft-deleted customer: expected ErrAccountNotFound, got %v", err)
	}

	if _, err := client.GetAccount(context.Background(), "cus_missing"); !errors.Is(err, paymentdomain.ErrAccountNotFound) {
		t.Fatalf("404: expected ErrAccountNotFound, got %v", err)
	}
}

func TestCreateChargeSendsOffSessionForm(t *testing.T) {
	var gotKey string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_intents" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotKey = r.Header.Get("Idempotency-Key")
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("off_session") != "true" || r.PostForm.Get("confirm") != "true" {
			t.Errorf("expected off_session+confirm, got %v", r.PostForm)
		}
		if r.PostForm.Get("amount") != "1200" {
			t.Errorf("expected amount 1200, got %q", r.PostForm.Get("amount"))
		}
		fmt.Fprint(w, `{"id":"pi_1","amount":1200,"currency":"usd","status":"succeeded"}`)
	}))

	charge, err := client.CreateCharge(context.Background(), paymentdomain.ChargeRequest{
		AccountID:      "cus_1",
		Amount:         1200,
		Currency:       "USD",
		MethodID:       "pm_1",
		IdempotencyKey: "idem-123",
	})
	if err != nil {
		t.Fatalf("create charge: %v", err)
	}
	if charge.ID != "pi_1" || charge.Amount != 1200 {
		t.Fatalf("unexpected charge %+v", charge)
	}
	if gotKey != "idem-123" {
		t.Fatalf("expected idempotency key on request, got %q", gotKey)
	}
}

func TestCreateChargeDeclined(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":{"type":"card_error","code":"card_declined","message":"Your card was declined."}}`)
	}))

	_, err := client.CreateCharge(context.Background(), paymentdomain.ChargeRequest{
		AccountID: "cus_1",
		Amount:    1000,
		Currency:  "usd",
		MethodID:  "pm_1",
	})
	if !errors.Is(err, paymentdomain.ErrChargeDeclined) {
		t.Fatalf("expected ErrChargeDeclined, got %v", err)
	}
}

func TestPaymentMethodsPaging(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("customer") != "cus_1" {
			t.Errorf("expected customer filter, got %q", r.URL.Query().Get("customer"))
		}
		switch r.URL.Query().Get("starting_after") {
		case "":
			fmt.Fprint(w, `{"data":[{"id":"pm_1","type":"card"},{"id":"pm_2","type":"us_bank_account"}],"has_more":true}`)
		case "pm_2":
			fmt.Fprint(w, `{"data":[{"id":"pm_3","type":"card"}],"has_more":false}`)
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("starting_after"))
		}
	}))

	methods, err := paymentdomain.Drain(context.Background(), client.PaymentMethods("cus_1"))
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(methods) != 3 {
		t.Fatalf("expected 3 methods across pages, got %d", len(methods))
	}
	if methods[0].ID != "pm_1" || methods[2].ID != "pm_3" {
		t.Fatalf("unexpected order %+v", methods)
	}

	first, ok, err := paymentdomain.First(context.Background(), client.PaymentMethods("cus_1"))
	if err != nil || !ok {
		t.Fatalf("first: ok=%v err=%v", ok, err)
	}
	if first.ID != "pm_1" {
		t.Fatalf("expected first pm_1, got %q", first.ID)
	}
}

func TestAccountsEmailFilter(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("email") != "a@b.co" {
			t.Errorf("expected email filter, got %q", r.URL.Query().Get("email"))
		}
		fmt.Fprint(w, `{"data":[],"has_more":false}`)
	}))

	_, found, err := paymentdomain.First(context.Background(), client.Accounts("a@b.co"))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if found {
		t.Fatal("expected no accounts")
	}
}

func TestUpstreamTimeout(t *testing.T) {
	var attempts atomic.Int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.GetAccount(ctx, "cus_1")
	if !errors.Is(err, paymentdomain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream on deadline, got %v", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestUpstreamUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	client := NewClient("sk_test_key", time.Second).WithBaseURL(srv.URL)

	if _, err := client.GetAccount(context.Background(), "cus_1"); !errors.Is(err, paymentdomain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream for unreachable host, got %v", err)
	}
}

func TestMissingAPIKey(t *testing.T) {
	client := NewClient("", time.Second)
	if _, err := client.GetAccount(context.Background(), "cus_1"); !errors.Is(err, paymentdomain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
