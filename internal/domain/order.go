package domain

import (
	"context"
	"time"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusDelayed   OrderStatus = "delayed"
	StatusReady     OrderStatus = "ready"
	StatusServed    OrderStatus = "served"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type OrderType string

const (
	TypeDineIn   OrderType = "dine-in"
	TypeTakeaway OrderType = "takeaway"
)

// validTransitions is the authoritative edge set of the order state machine.
// delayed is a substate of preparing: it still has to pass through ready.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusDelayed, StatusCancelled},
	StatusDelayed:   {StatusReady, StatusCancelled},
	StatusReady:     {StatusServed, StatusCancelled},
	StatusServed:    {StatusCompleted},
	StatusCompleted: {},
	StatusCancelled: {},
}

func IsValidStatus(status OrderStatus) bool {
	_, ok := validTransitions[status]
	return ok
}

func IsValidOrderType(t OrderType) bool {
	return t == TypeDineIn || t == TypeTakeaway
}

// CanTransition reports whether the edge from→to exists in the state machine.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal states admit no further status or payment mutation.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ActiveStatuses are the statuses of orders the kitchen is still working on.
var ActiveStatuses = []OrderStatus{StatusPending, StatusPreparing, StatusDelayed, StatusReady}

type Order struct {
	ID                  int64         `json:"id"`
	Type                OrderType     `json:"type"`
	Status              OrderStatus   `json:"status"`
	PaymentStatus       PaymentStatus `json:"paymentStatus"`
	PhoneNumber         string        `json:"phoneNumber"`
	CustomerName        string        `json:"customerName,omitempty"`
	TableNumber         string        `json:"tableNumber,omitempty"`
	Items               []OrderItem   `json:"items"`
	Total               int64         `json:"total"`
	POSReference        string        `json:"posReference,omitempty"`
	SpecialInstructions string        `json:"specialInstructions,omitempty"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}

// OrderItem snapshots price and localized name at order-creation time; later
// menu edits never touch existing orders.
type OrderItem struct {
	MenuItemID          int64  `json:"menuItemId"`
	Quantity            int    `json:"quantity"`
	Price               int64  `json:"price"`
	Name                string `json:"name"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

type CreateOrderItemInput struct {
	MenuItemID          int64  `json:"menuItemId"`
	Quantity            int    `json:"quantity"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

type CreateOrderInput struct {
	Type                OrderType              `json:"type"`
	PhoneNumber         string                 `json:"phoneNumber"`
	CustomerName        string                 `json:"customerName,omitempty"`
	TableNumber         string                 `json:"tableNumber,omitempty"`
	Items               []CreateOrderItemInput `json:"items"`
	SpecialInstructions string                 `json:"specialInstructions,omitempty"`
}

type OrderRepository interface {
	CreateOrder(order *Order) (*Order, error)
	GetOrderByID(id int64) (*Order, error)
	// UpdateOrderStatus is a compare-and-swap: the row is updated only if its
	// status still equals from. A concurrent writer winning the race surfaces
	// as ErrInvalidTransition.
	UpdateOrderStatus(id int64, from, to OrderStatus) (*Order, error)
	// CompleteOrder forces status to completed from any non-terminal status.
	// Reserved for the public pay-later completion flow.
	CompleteOrder(id int64) (*Order, error)
	// UpdateOrderPayment sets payment_status (and pos_reference when non-empty)
	// unless the order is terminal or its payment is already settled.
	UpdateOrderPayment(id int64, status PaymentStatus, posReference string) (*Order, error)
	ListOrdersByStatus(statuses []OrderStatus) ([]Order, error)
	ListOrdersByPhoneSince(phoneNumber string, since time.Time) ([]Order, error)
}

// StatusChangeHook observes successful transitions, e.g. to deduct ingredient
// stock once an order is served. prev is the status before the transition.
type StatusChangeHook func(order *Order, prev OrderStatus)

type OrderUseCase interface {
	CreateOrder(ctx context.Context, input *CreateOrderInput) (*Order, error)
	GetOrderByID(ctx context.Context, id int64) (*Order, error)
	Transition(ctx context.Context, id int64, target OrderStatus) (*Order, error)
	CompleteDirect(ctx context.Context, id int64) (*Order, error)
	ListByStatus(ctx context.Context, statuses []OrderStatus) ([]Order, error)
	TrackByPhone(ctx context.Context, phoneNumber string) ([]Order, error)
}

type PaymentUseCase interface {
	ConnectionToken(ctx context.Context) (string, error)
	CreateIntent(ctx context.Context, orderID int64) (*Order, error)
	CompletePayment(ctx context.Context, orderID int64, intentID string, success bool) (*Order, error)
	TestConnection(ctx context.Context) error
}
