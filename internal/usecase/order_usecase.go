package usecase

import (
	"context"
	"fmt"
	"time"

	"restaurant_service/config"
	"restaurant_service/internal/domain"

	"github.com/sirupsen/logrus"
)

// trackingWindow bounds the public phone-number tracking endpoint.
const trackingWindow = 24 * time.Hour

var _ domain.OrderUseCase = (*orderUseCase)(nil)

type orderUseCase struct {
	orderRepo      domain.OrderRepository
	menuRepo       domain.MenuRepository
	paymentPolicy  string
	onStatusChange domain.StatusChangeHook
	log            *logrus.Logger
}

func NewOrderUseCase(
	orderRepo domain.OrderRepository,
	menuRepo domain.MenuRepository,
	paymentPolicy string,
	hook domain.StatusChangeHook,
	logger *logrus.Logger,
) domain.OrderUseCase {
	return &orderUseCase{
		orderRepo:      orderRepo,
		menuRepo:       menuRepo,
		paymentPolicy:  paymentPolicy,
		onStatusChange: hook,
		log:            logger,
	}
}

func validateCreateInput(input *domain.CreateOrderInput) error {
	if !domain.IsValidOrderType(input.Type) {
		return domain.NewValidationError("type", fmt.Sprintf("must be '%s' or '%s'", domain.TypeDineIn, domain.TypeTakeaway))
	}
	if input.PhoneNumber == "" {
		return domain.NewValidationError("phoneNumber", "is required")
	}
	switch input.Type {
	case domain.TypeTakeaway:
		if input.CustomerName == "" {
			return domain.NewValidationError("customerName", "is required for takeaway orders")
		}
		if input.TableNumber != "" {
			return domain.NewValidationError("tableNumber", "must not be set for takeaway orders")
		}
	case domain.TypeDineIn:
		if input.TableNumber == "" {
			return domain.NewValidationError("tableNumber", "is required for dine-in orders")
		}
		if input.CustomerName != "" {
			return domain.NewValidationError("customerName", "must not be set for dine-in orders")
		}
	}
	if len(input.Items) == 0 {
		return domain.NewValidationError("items", "cannot be empty")
	}
	for i, item := range input.Items {
		if item.MenuItemID <= 0 {
			return domain.NewValidationError(fmt.Sprintf("items[%d].menuItemId", i), "must be positive")
		}
		if item.Quantity < 1 {
			return domain.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
	}
	return nil
}

// CreateOrder resolves every menu item, snapshots price and localized name,
// computes the immutable total and persists the order as pending.
func (uc *orderUseCase) CreateOrder(ctx context.Context, input *domain.CreateOrderInput) (*domain.Order, error) {
	if err := validateCreateInput(input); err != nil {
		uc.log.Warnf("Order creation rejected: %v", err)
		return nil, err
	}

	ids := make([]int64, 0, len(input.Items))
	for _, item := range input.Items {
		ids = append(ids, item.MenuItemID)
	}
	menuItems, err := uc.menuRepo.GetItemsByIDs(ids)
	if err != nil {
		uc.log.Errorf("Failed to resolve menu items for new order: %v", err)
		return nil, err
	}

	order := &domain.Order{
		Type:                input.Type,
		Status:              domain.StatusPending,
		PaymentStatus:       domain.PaymentPending,
		PhoneNumber:         input.PhoneNumber,
		CustomerName:        input.CustomerName,
		TableNumber:         input.TableNumber,
		SpecialInstructions: input.SpecialInstructions,
		Items:               make([]domain.OrderItem, 0, len(input.Items)),
	}

	var total int64
	for _, item := range input.Items {
		menuItem, ok := menuItems[item.MenuItemID]
		if !ok {
			uc.log.Warnf("Order creation rejected: menu item %d does not exist", item.MenuItemID)
			return nil, fmt.Errorf("menu item %d: %w", item.MenuItemID, domain.ErrNotFound)
		}
		order.Items = append(order.Items, domain.OrderItem{
			MenuItemID:          menuItem.ID,
			Quantity:            item.Quantity,
			Price:               menuItem.Price,
			Name:                menuItem.Name.Resolve("en"),
			SpecialInstructions: item.SpecialInstructions,
		})
		total += menuItem.Price * int64(item.Quantity)
	}
	order.Total = total

	created, err := uc.orderRepo.CreateOrder(order)
	if err != nil {
		uc.log.Errorf("Repository failed to create order for phone %s: %v", input.PhoneNumber, err)
		return nil, err
	}

	uc.log.Infof("Order %d created for phone %s (total %d)", created.ID, created.PhoneNumber, created.Total)
	return created, nil
}

func (uc *orderUseCase) GetOrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, domain.NewValidationError("id", "must be positive")
	}
	return uc.orderRepo.GetOrderByID(id)
}

// Transition validates the requested edge against the state machine, applies
// the configured payment gate, and persists via a compare-and-swap so two
// racing transitions from the same source state cannot both win.
func (uc *orderUseCase) Transition(ctx context.Context, id int64, target domain.OrderStatus) (*domain.Order, error) {
	if id <= 0 {
		return nil, domain.NewValidationError("id", "must be positive")
	}
	if !domain.IsValidStatus(target) {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status '%s'", target))
	}

	current, err := uc.orderRepo.GetOrderByID(id)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransition(current.Status, target) {
		uc.log.Warnf("Rejected transition for order %d: '%s' -> '%s'", id, current.Status, target)
		return nil, fmt.Errorf("cannot move order %d from '%s' to '%s': %w",
			id, current.Status, target, domain.ErrInvalidTransition)
	}

	if err := uc.checkPaymentGate(current, target); err != nil {
		return nil, err
	}

	updated, err := uc.orderRepo.UpdateOrderStatus(id, current.Status, target)
	if err != nil {
		uc.log.Warnf("Transition failed for order %d ('%s' -> '%s'): %v", id, current.Status, target, err)
		return nil, err
	}

	uc.log.Infof("Order %d transitioned '%s' -> '%s'", id, current.Status, target)
	if uc.onStatusChange != nil {
		uc.onStatusChange(updated, current.Status)
	}
	return updated, nil
}

// checkPaymentGate enforces when an unpaid order may advance. Under
// pay-at-service the gate sits on served->completed; under pay-at-order the
// kitchen does not start until payment cleared, so the gate sits on
// pending->preparing instead.
func (uc *orderUseCase) checkPaymentGate(order *domain.Order, target domain.OrderStatus) error {
	var gated bool
	switch uc.paymentPolicy {
	case config.PolicyPayAtService:
		gated = order.Status == domain.StatusServed && target == domain.StatusCompleted
	case config.PolicyPayAtOrder:
		gated = order.Status == domain.StatusPending && target == domain.StatusPreparing
	}
	if gated && order.PaymentStatus != domain.PaymentPaid {
		uc.log.Warnf("Payment gate blocked order %d ('%s' -> '%s'): payment status is '%s'",
			order.ID, order.Status, target, order.PaymentStatus)
		return fmt.Errorf("order %d must be paid before moving to '%s': %w",
			order.ID, target, domain.ErrInvalidTransition)
	}
	return nil
}

// CompleteDirect is the narrow exception for the public pay-later flow: it
// forces completed from any non-terminal status without the payment gate.
func (uc *orderUseCase) CompleteDirect(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, domain.NewValidationError("id", "must be positive")
	}

	current, err := uc.orderRepo.GetOrderByID(id)
	if err != nil {
		return nil, err
	}

	updated, err := uc.orderRepo.CompleteOrder(id)
	if err != nil {
		return nil, err
	}

	uc.log.Infof("Order %d completed via public completion flow (was '%s')", id, current.Status)
	if uc.onStatusChange != nil {
		uc.onStatusChange(updated, current.Status)
	}
	return updated, nil
}

func (uc *orderUseCase) ListByStatus(ctx context.Context, statuses []domain.OrderStatus) ([]domain.Order, error) {
	if len(statuses) == 0 {
		statuses = domain.ActiveStatuses
	}
	for _, s := range statuses {
		if !domain.IsValidStatus(s) {
			return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status '%s'", s))
		}
	}
	return uc.orderRepo.ListOrdersByStatus(statuses)
}

func (uc *orderUseCase) TrackByPhone(ctx context.Context, phoneNumber string) ([]domain.Order, error) {
	if phoneNumber == "" {
		return nil, domain.NewValidationError("phoneNumber", "is required")
	}
	since := time.Now().Add(-trackingWindow)
	return uc.orderRepo.ListOrdersByPhoneSince(phoneNumber, since)
}
