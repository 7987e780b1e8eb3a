package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"restaurant_service/internal/clients"
	"restaurant_service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	tokenFn  func(ctx context.Context) (string, error)
	createFn func(ctx context.Context, amount int64, currency string, orderID int64, idempotencyKey string) (*clients.PaymentIntent, error)
	getFn    func(ctx context.Context, intentID string) (*clients.PaymentIntent, error)
	cancelFn func(ctx context.Context, intentID string) (*clients.PaymentIntent, error)
	pingFn   func(ctx context.Context) error
}

func (f *fakeProvider) CreateConnectionToken(ctx context.Context) (string, error) {
	if f.tokenFn == nil {
		return "", errNotConfigured
	}
	return f.tokenFn(ctx)
}

func (f *fakeProvider) CreateIntent(ctx context.Context, amount int64, currency string, orderID int64, idempotencyKey string) (*clients.PaymentIntent, error) {
	if f.createFn == nil {
		return nil, errNotConfigured
	}
	return f.createFn(ctx, amount, currency, orderID, idempotencyKey)
}

func (f *fakeProvider) GetIntent(ctx context.Context, intentID string) (*clients.PaymentIntent, error) {
	if f.getFn == nil {
		return nil, errNotConfigured
	}
	return f.getFn(ctx, intentID)
}

func (f *fakeProvider) CancelIntent(ctx context.Context, intentID string) (*clients.PaymentIntent, error) {
	if f.cancelFn == nil {
		return nil, errNotConfigured
	}
	return f.cancelFn(ctx, intentID)
}

func (f *fakeProvider) Ping(ctx context.Context) error {
	if f.pingFn == nil {
		return errNotConfigured
	}
	return f.pingFn(ctx)
}

func paymentFixture(order *domain.Order, provider *fakeProvider) (domain.PaymentUseCase, *mockOrderRepo) {
	repo := &mockOrderRepo{
		getFn: func(id int64) (*domain.Order, error) {
			copy := *order
			return &copy, nil
		},
		updatePaymentFn: func(id int64, status domain.PaymentStatus, posReference string) (*domain.Order, error) {
			updated := *order
			updated.PaymentStatus = status
			updated.POSReference = posReference
			return &updated, nil
		},
	}
	return NewPaymentUseCase(repo, provider, "usd", time.Second, testLogger()), repo
}

func unpaidOrder() *domain.Order {
	return &domain.Order{
		ID:            11,
		Type:          domain.TypeDineIn,
		Status:        domain.StatusServed,
		PaymentStatus: domain.PaymentPending,
		PhoneNumber:   "+49151000001",
		TableNumber:   "4",
		Total:         2000,
	}
}

func TestCreateIntentStoresReference(t *testing.T) {
	var gotAmount int64
	var gotOrderID int64
	var gotKey string
	provider := &fakeProvider{
		createFn: func(ctx context.Context, amount int64, currency string, orderID int64, idempotencyKey string) (*clients.PaymentIntent, error) {
			gotAmount = amount
			gotOrderID = orderID
			gotKey = idempotencyKey
			return &clients.PaymentIntent{ID: "pi_123", Status: clients.IntentStatusRequiresPaymentMethod, Amount: amount, Currency: currency}, nil
		},
	}

	uc, _ := paymentFixture(unpaidOrder(), provider)
	updated, err := uc.CreateIntent(context.Background(), 11)
	require.NoError(t, err)

	assert.EqualValues(t, 2000, gotAmount)
	assert.EqualValues(t, 11, gotOrderID)
	assert.NotEmpty(t, gotKey, "intent creation carries an idempotency key")
	assert.Equal(t, "pi_123", updated.POSReference)
	assert.Equal(t, domain.PaymentPending, updated.PaymentStatus)
}

func TestCreateIntentProviderFailureLeavesOrderUntouched(t *testing.T) {
	provider := &fakeProvider{
		createFn: func(ctx context.Context, amount int64, currency string, orderID int64, idempotencyKey string) (*clients.PaymentIntent, error) {
			return nil, errors.New("invalid api key")
		},
	}

	order := unpaidOrder()
	repo := &mockOrderRepo{
		getFn: func(id int64) (*domain.Order, error) { return order, nil },
		updatePaymentFn: func(id int64, status domain.PaymentStatus, posReference string) (*domain.Order, error) {
			t.Fatal("order must not be written when the provider rejects the intent")
			return nil, nil
		},
	}
	uc := NewPaymentUseCase(repo, provider, "usd", time.Second, testLogger())

	_, err := uc.CreateIntent(context.Background(), 11)
	require.ErrorIs(t, err, domain.ErrProvider)
}

func TestCreateIntentRejectsTerminalAndPaidOrders(t *testing.T) {
	uc, _ := paymentFixture(&domain.Order{ID: 11, Status: domain.StatusCancelled}, &fakeProvider{})
	_, err := uc.CreateIntent(context.Background(), 11)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	paid := unpaidOrder()
	paid.PaymentStatus = domain.PaymentPaid
	uc, _ = paymentFixture(paid, &fakeProvider{})
	_, err = uc.CreateIntent(context.Background(), 11)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCompletePaymentVerifiesAgainstProvider(t *testing.T) {
	order := unpaidOrder()
	order.POSReference = "pi_123"
	provider := &fakeProvider{
		getFn: func(ctx context.Context, intentID string) (*clients.PaymentIntent, error) {
			return &clients.PaymentIntent{ID: intentID, Status: clients.IntentStatusSucceeded}, nil
		},
	}

	uc, _ := paymentFixture(order, provider)
	updated, err := uc.CompletePayment(context.Background(), 11, "pi_123", true)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, updated.PaymentStatus)
}

func TestCompletePaymentRejectsUncorroboratedSuccess(t *testing.T) {
	order := unpaidOrder()
	order.POSReference = "pi_123"
	provider := &fakeProvider{
		getFn: func(ctx context.Context, intentID string) (*clients.PaymentIntent, error) {
			return &clients.PaymentIntent{ID: intentID, Status: clients.IntentStatusRequiresPaymentMethod}, nil
		},
	}

	repo := &mockOrderRepo{
		getFn: func(id int64) (*domain.Order, error) { return order, nil },
		updatePaymentFn: func(id int64, status domain.PaymentStatus, posReference string) (*domain.Order, error) {
			t.Fatal("payment status must not change when the provider disagrees")
			return nil, nil
		},
	}
	uc := NewPaymentUseCase(repo, provider, "usd", time.Second, testLogger())

	_, err := uc.CompletePayment(context.Background(), 11, "pi_123", true)
	require.ErrorIs(t, err, domain.ErrPaymentVerification)
}

func TestCompletePaymentIdempotentWhenAlreadyPaid(t *testing.T) {
	order := unpaidOrder()
	order.POSReference = "pi_123"
	order.PaymentStatus = domain.PaymentPaid

	provider := &fakeProvider{
		getFn: func(ctx context.Context, intentID string) (*clients.PaymentIntent, error) {
			return &clients.PaymentIntent{ID: intentID, Status: clients.IntentStatusSucceeded}, nil
		},
	}
	repo := &mockOrderRepo{
		getFn: func(id int64) (*domain.Order, error) {
			copy := *order
			return &copy, nil
		},
		updatePaymentFn: func(id int64, status domain.PaymentStatus, posReference string) (*domain.Order, error) {
			t.Fatal("a repeated completion must not re-apply the payment write")
			return nil, nil
		},
	}
	uc := NewPaymentUseCase(repo, provider, "usd", time.Second, testLogger())

	updated, err := uc.CompletePayment(context.Background(), 11, "pi_123", true)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, updated.PaymentStatus)
}

func TestCompletePaymentIndeterminateOnVerificationFailure(t *testing.T) {
	order := unpaidOrder()
	order.POSReference = "pi_123"
	provider := &fakeProvider{
		getFn: func(ctx context.Context, intentID string) (*clients.PaymentIntent, error) {
			return nil, context.DeadlineExceeded
		},
	}

	repo := &mockOrderRepo{
		getFn: func(id int64) (*domain.Order, error) { return order, nil },
		updatePaymentFn: func(id int64, status domain.PaymentStatus, posReference string) (*domain.Order, error) {
			t.Fatal("a timed-out verification must leave the order untouched")
			return nil, nil
		},
	}
	uc := NewPaymentUseCase(repo, provider, "usd", time.Second, testLogger())

	_, err := uc.CompletePayment(context.Background(), 11, "pi_123", true)
	require.ErrorIs(t, err, domain.ErrProvider)
}

func TestCompletePaymentFailureCancelsIntent(t *testing.T) {
	order := unpaidOrder()
	order.POSReference = "pi_123"
	canceled := false
	provider := &fakeProvider{
		cancelFn: func(ctx context.Context, intentID string) (*clients.PaymentIntent, error) {
			canceled = true
			return &clients.PaymentIntent{ID: intentID, Status: clients.IntentStatusCanceled}, nil
		},
	}

	uc, _ := paymentFixture(order, provider)
	updated, err := uc.CompletePayment(context.Background(), 11, "pi_123", false)
	require.NoError(t, err)
	assert.True(t, canceled)
	assert.Equal(t, domain.PaymentFailed, updated.PaymentStatus)
}

func TestCompletePaymentFailureToleratesAlreadyCanceled(t *testing.T) {
	order := unpaidOrder()
	order.POSReference = "pi_123"
	provider := &fakeProvider{
		cancelFn: func(ctx context.Context, intentID string) (*clients.PaymentIntent, error) {
			return nil, errors.New("intent is already canceled")
		},
		getFn: func(ctx context.Context, intentID string) (*clients.PaymentIntent, error) {
			return &clients.PaymentIntent{ID: intentID, Status: clients.IntentStatusCanceled}, nil
		},
	}

	uc, _ := paymentFixture(order, provider)
	updated, err := uc.CompletePayment(context.Background(), 11, "pi_123", false)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, updated.PaymentStatus)
}

func TestCompletePaymentFailureClaimRejectedWhenAlreadyPaid(t *testing.T) {
	order := unpaidOrder()
	order.POSReference = "pi_123"
	order.PaymentStatus = domain.PaymentPaid

	provider := &fakeProvider{
		cancelFn: func(ctx context.Context, intentID string) (*clients.PaymentIntent, error) {
			t.Fatal("a settled payment's intent must not be cancelled")
			return nil, nil
		},
	}
	repo := &mockOrderRepo{
		getFn: func(id int64) (*domain.Order, error) { return order, nil },
		updatePaymentFn: func(id int64, status domain.PaymentStatus, posReference string) (*domain.Order, error) {
			t.Fatal("a settled payment must not be downgraded to failed")
			return nil, nil
		},
	}
	uc := NewPaymentUseCase(repo, provider, "usd", time.Second, testLogger())

	_, err := uc.CompletePayment(context.Background(), 11, "pi_123", false)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCompletePaymentIntentMismatch(t *testing.T) {
	order := unpaidOrder()
	order.POSReference = "pi_123"

	uc, _ := paymentFixture(order, &fakeProvider{})
	_, err := uc.CompletePayment(context.Background(), 11, "pi_999", true)
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestCompletePaymentFallsBackToStoredReference(t *testing.T) {
	order := unpaidOrder()
	order.POSReference = "pi_123"
	var verifiedIntent string
	provider := &fakeProvider{
		getFn: func(ctx context.Context, intentID string) (*clients.PaymentIntent, error) {
			verifiedIntent = intentID
			return &clients.PaymentIntent{ID: intentID, Status: clients.IntentStatusSucceeded}, nil
		},
	}

	uc, _ := paymentFixture(order, provider)
	_, err := uc.CompletePayment(context.Background(), 11, "", true)
	require.NoError(t, err)
	assert.Equal(t, "pi_123", verifiedIntent)
}

func TestConnectionTokenAndTestConnection(t *testing.T) {
	provider := &fakeProvider{
		tokenFn: func(ctx context.Context) (string, error) { return "pst_secret", nil },
		pingFn:  func(ctx context.Context) error { return nil },
	}

	uc, _ := paymentFixture(unpaidOrder(), provider)
	token, err := uc.ConnectionToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pst_secret", token)
	require.NoError(t, uc.TestConnection(context.Background()))

	provider.pingFn = func(ctx context.Context) error { return errors.New("401 unauthorized") }
	require.ErrorIs(t, uc.TestConnection(context.Background()), domain.ErrProvider)
}
