package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Provider-side intent states the reconciliation logic keys off. Values match
// the Stripe wire format so they round-trip through logs unchanged.
const (
	IntentStatusSucceeded             = "succeeded"
	IntentStatusCanceled              = "canceled"
	IntentStatusRequiresPaymentMethod = "requires_payment_method"
)

type PaymentIntent struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// PaymentProvider abstracts the card-present terminal backend so the
// reconciliation usecase can be tested without network calls.
type PaymentProvider interface {
	CreateConnectionToken(ctx context.Context) (string, error)
	CreateIntent(ctx context.Context, amount int64, currency string, orderID int64, idempotencyKey string) (*PaymentIntent, error)
	GetIntent(ctx context.Context, intentID string) (*PaymentIntent, error)
	CancelIntent(ctx context.Context, intentID string) (*PaymentIntent, error)
	Ping(ctx context.Context) error
}

type stripeProvider struct {
	sc  *client.API
	log *logrus.Logger
}

// NewStripeProvider builds a Stripe-backed provider. Every outbound call is
// bounded by timeout at the HTTP client level on top of per-call contexts.
func NewStripeProvider(secretKey string, timeout time.Duration, logger *logrus.Logger) (PaymentProvider, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key cannot be empty")
	}

	httpClient := &http.Client{Timeout: timeout}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: httpClient,
	})
	sc := &client.API{}
	sc.Init(secretKey, &stripe.Backends{API: backend, Uploads: backend})

	return &stripeProvider{sc: sc, log: logger}, nil
}

func (p *stripeProvider) CreateConnectionToken(ctx context.Context) (string, error) {
	params := &stripe.TerminalConnectionTokenParams{
		Params: stripe.Params{Context: ctx},
	}
	token, err := p.sc.TerminalConnectionTokens.New(params)
	if err != nil {
		p.log.Errorf("Stripe connection token creation failed: %v", err)
		return "", fmt.Errorf("create connection token: %w", err)
	}
	return token.Secret, nil
}

func (p *stripeProvider) CreateIntent(ctx context.Context, amount int64, currency string, orderID int64, idempotencyKey string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Params:             stripe.Params{Context: ctx},
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card_present"}),
		CaptureMethod:      stripe.String(string(stripe.PaymentIntentCaptureMethodAutomatic)),
	}
	params.AddMetadata("order_id", strconv.FormatInt(orderID, 10))
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	pi, err := p.sc.PaymentIntents.New(params)
	if err != nil {
		p.log.Errorf("Stripe payment intent creation failed for order %d: %v", orderID, err)
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	p.log.Infof("Stripe payment intent %s created for order %d (amount %d %s)", pi.ID, orderID, amount, currency)
	return fromStripeIntent(pi), nil
}

func (p *stripeProvider) GetIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	}
	pi, err := p.sc.PaymentIntents.Get(intentID, params)
	if err != nil {
		p.log.Errorf("Stripe payment intent retrieval failed for %s: %v", intentID, err)
		return nil, fmt.Errorf("get payment intent: %w", err)
	}
	return fromStripeIntent(pi), nil
}

func (p *stripeProvider) CancelIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentCancelParams{
		Params: stripe.Params{Context: ctx},
	}
	pi, err := p.sc.PaymentIntents.Cancel(intentID, params)
	if err != nil {
		// Cancelling an already-canceled intent is a no-op for callers.
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodePaymentIntentUnexpectedState {
			current, getErr := p.GetIntent(ctx, intentID)
			if getErr == nil && current.Status == IntentStatusCanceled {
				p.log.Infof("Stripe payment intent %s was already canceled", intentID)
				return current, nil
			}
		}
		p.log.Errorf("Stripe payment intent cancellation failed for %s: %v", intentID, err)
		return nil, fmt.Errorf("cancel payment intent: %w", err)
	}
	p.log.Infof("Stripe payment intent %s canceled", intentID)
	return fromStripeIntent(pi), nil
}

// Ping lists a single terminal reader to verify credentials and reachability.
func (p *stripeProvider) Ping(ctx context.Context) error {
	params := &stripe.TerminalReaderListParams{}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	it := p.sc.TerminalReaders.List(params)
	for it.Next() {
		break
	}
	if err := it.Err(); err != nil {
		p.log.Errorf("Stripe reachability check failed: %v", err)
		return fmt.Errorf("stripe reachability check: %w", err)
	}
	return nil
}

func fromStripeIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:       pi.ID,
		Status:   string(pi.Status),
		Amount:   pi.Amount,
		Currency: string(pi.Currency),
	}
}
