package usecase

import (
	"context"
	"fmt"
	"time"

	"restaurant_service/internal/clients"
	"restaurant_service/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var _ domain.PaymentUseCase = (*paymentUseCase)(nil)

// paymentUseCase reconciles an order's payment status with the terminal
// provider's authoritative intent state. The order row is never held locked
// across a provider round-trip: it is read before and conditionally written
// after.
type paymentUseCase struct {
	orderRepo       domain.OrderRepository
	provider        clients.PaymentProvider
	currency        string
	providerTimeout time.Duration
	log             *logrus.Logger
}

func NewPaymentUseCase(
	orderRepo domain.OrderRepository,
	provider clients.PaymentProvider,
	currency string,
	providerTimeout time.Duration,
	logger *logrus.Logger,
) domain.PaymentUseCase {
	return &paymentUseCase{
		orderRepo:       orderRepo,
		provider:        provider,
		currency:        currency,
		providerTimeout: providerTimeout,
		log:             logger,
	}
}

func (uc *paymentUseCase) providerCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, uc.providerTimeout)
}

func (uc *paymentUseCase) ConnectionToken(ctx context.Context) (string, error) {
	pctx, cancel := uc.providerCtx(ctx)
	defer cancel()

	token, err := uc.provider.CreateConnectionToken(pctx)
	if err != nil {
		return "", fmt.Errorf("connection token: %v: %w", err, domain.ErrProvider)
	}
	return token, nil
}

// CreateIntent registers a provider-side intent for the order total and
// records its id as the order's POS reference. On provider failure the order
// is left untouched.
func (uc *paymentUseCase) CreateIntent(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := uc.orderRepo.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, fmt.Errorf("order %d is '%s': %w", orderID, order.Status, domain.ErrInvalidTransition)
	}
	if order.PaymentStatus == domain.PaymentPaid {
		return nil, fmt.Errorf("order %d is already paid: %w", orderID, domain.ErrInvalidTransition)
	}

	idempotencyKey := uuid.NewString()
	pctx, cancel := uc.providerCtx(ctx)
	defer cancel()

	intent, err := uc.provider.CreateIntent(pctx, order.Total, uc.currency, order.ID, idempotencyKey)
	if err != nil {
		uc.log.Errorf("Provider rejected intent creation for order %d: %v", orderID, err)
		return nil, fmt.Errorf("create intent for order %d: %v: %w", orderID, err, domain.ErrProvider)
	}

	updated, err := uc.orderRepo.UpdateOrderPayment(order.ID, domain.PaymentPending, intent.ID)
	if err != nil {
		uc.log.Errorf("Failed to record intent %s on order %d: %v", intent.ID, orderID, err)
		return nil, err
	}

	uc.log.Infof("Payment intent %s created for order %d (amount %d)", intent.ID, orderID, order.Total)
	return updated, nil
}

// CompletePayment finalizes the terminal flow. The caller's success flag is
// never trusted on its own: success is confirmed against the provider's own
// intent state before the order is marked paid. The call is idempotent for a
// given (order, intent) pair.
func (uc *paymentUseCase) CompletePayment(ctx context.Context, orderID int64, intentID string, success bool) (*domain.Order, error) {
	order, err := uc.orderRepo.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}

	if intentID == "" {
		intentID = order.POSReference
	}
	if intentID == "" {
		return nil, domain.NewValidationError("intentId", "order has no payment intent")
	}
	if order.POSReference != "" && order.POSReference != intentID {
		return nil, domain.NewValidationError("intentId",
			fmt.Sprintf("does not match the order's payment intent %s", order.POSReference))
	}

	if !success {
		return uc.failPayment(ctx, order, intentID)
	}

	pctx, cancel := uc.providerCtx(ctx)
	defer cancel()

	intent, err := uc.provider.GetIntent(pctx, intentID)
	if err != nil {
		// Indeterminate: nothing is written, the caller retries verification.
		uc.log.Errorf("Could not verify intent %s for order %d: %v", intentID, orderID, err)
		return nil, fmt.Errorf("verify intent %s: %v: %w", intentID, err, domain.ErrProvider)
	}
	if intent.Status != clients.IntentStatusSucceeded {
		uc.log.Warnf("Intent %s for order %d reported '%s', refusing to mark paid", intentID, orderID, intent.Status)
		return nil, fmt.Errorf("intent %s is '%s', not '%s': %w",
			intentID, intent.Status, clients.IntentStatusSucceeded, domain.ErrPaymentVerification)
	}

	if order.PaymentStatus == domain.PaymentPaid {
		uc.log.Infof("Order %d already paid via intent %s, nothing to do", orderID, intentID)
		return order, nil
	}

	updated, err := uc.orderRepo.UpdateOrderPayment(order.ID, domain.PaymentPaid, intentID)
	if err != nil {
		return nil, err
	}
	uc.log.Infof("Order %d marked paid via intent %s", orderID, intentID)
	return updated, nil
}

func (uc *paymentUseCase) failPayment(ctx context.Context, order *domain.Order, intentID string) (*domain.Order, error) {
	if order.PaymentStatus == domain.PaymentPaid {
		uc.log.Warnf("Refusing failure claim for order %d: payment already settled via intent %s", order.ID, intentID)
		return nil, fmt.Errorf("order %d payment is already settled: %w", order.ID, domain.ErrInvalidTransition)
	}

	pctx, cancel := uc.providerCtx(ctx)
	defer cancel()

	if _, err := uc.provider.CancelIntent(pctx, intentID); err != nil {
		// The provider may already hold the intent canceled; only a state we
		// cannot confirm keeps the order untouched.
		current, getErr := uc.provider.GetIntent(pctx, intentID)
		if getErr != nil || current.Status != clients.IntentStatusCanceled {
			uc.log.Errorf("Could not cancel intent %s for order %d: %v", intentID, order.ID, err)
			return nil, fmt.Errorf("cancel intent %s: %v: %w", intentID, err, domain.ErrProvider)
		}
	}

	updated, err := uc.orderRepo.UpdateOrderPayment(order.ID, domain.PaymentFailed, intentID)
	if err != nil {
		return nil, err
	}
	uc.log.Infof("Order %d payment marked failed, intent %s canceled", order.ID, intentID)
	return updated, nil
}

func (uc *paymentUseCase) TestConnection(ctx context.Context) error {
	pctx, cancel := uc.providerCtx(ctx)
	defer cancel()

	if err := uc.provider.Ping(pctx); err != nil {
		return fmt.Errorf("provider unreachable: %v: %w", err, domain.ErrProvider)
	}
	return nil
}
