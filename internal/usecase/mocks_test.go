package usecase

import (
	"errors"
	"io"
	"time"

	"restaurant_service/internal/domain"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

var errNotConfigured = errors.New("mock call not configured")

type mockOrderRepo struct {
	createFn        func(order *domain.Order) (*domain.Order, error)
	getFn           func(id int64) (*domain.Order, error)
	updateStatusFn  func(id int64, from, to domain.OrderStatus) (*domain.Order, error)
	completeFn      func(id int64) (*domain.Order, error)
	updatePaymentFn func(id int64, status domain.PaymentStatus, posReference string) (*domain.Order, error)
	listStatusFn    func(statuses []domain.OrderStatus) ([]domain.Order, error)
	listPhoneFn     func(phoneNumber string, since time.Time) ([]domain.Order, error)
}

func (m *mockOrderRepo) CreateOrder(order *domain.Order) (*domain.Order, error) {
	if m.createFn == nil {
		return nil, errNotConfigured
	}
	return m.createFn(order)
}

func (m *mockOrderRepo) GetOrderByID(id int64) (*domain.Order, error) {
	if m.getFn == nil {
		return nil, errNotConfigured
	}
	return m.getFn(id)
}

func (m *mockOrderRepo) UpdateOrderStatus(id int64, from, to domain.OrderStatus) (*domain.Order, error) {
	if m.updateStatusFn == nil {
		return nil, errNotConfigured
	}
	return m.updateStatusFn(id, from, to)
}

func (m *mockOrderRepo) CompleteOrder(id int64) (*domain.Order, error) {
	if m.completeFn == nil {
		return nil, errNotConfigured
	}
	return m.completeFn(id)
}

func (m *mockOrderRepo) UpdateOrderPayment(id int64, status domain.PaymentStatus, posReference string) (*domain.Order, error) {
	if m.updatePaymentFn == nil {
		return nil, errNotConfigured
	}
	return m.updatePaymentFn(id, status, posReference)
}

func (m *mockOrderRepo) ListOrdersByStatus(statuses []domain.OrderStatus) ([]domain.Order, error) {
	if m.listStatusFn == nil {
		return nil, errNotConfigured
	}
	return m.listStatusFn(statuses)
}

func (m *mockOrderRepo) ListOrdersByPhoneSince(phoneNumber string, since time.Time) ([]domain.Order, error) {
	if m.listPhoneFn == nil {
		return nil, errNotConfigured
	}
	return m.listPhoneFn(phoneNumber, since)
}

type mockMenuRepo struct {
	itemsFn   func(ids []int64) (map[int64]domain.MenuItem, error)
	countFn   func() (int64, error)
	dietaryFn func() (map[string]int64, error)
}

func (m *mockMenuRepo) GetItemsByIDs(ids []int64) (map[int64]domain.MenuItem, error) {
	if m.itemsFn == nil {
		return nil, errNotConfigured
	}
	return m.itemsFn(ids)
}

func (m *mockMenuRepo) CountItems() (int64, error) {
	if m.countFn == nil {
		return 0, errNotConfigured
	}
	return m.countFn()
}

func (m *mockMenuRepo) DietaryTagCounts() (map[string]int64, error) {
	if m.dietaryFn == nil {
		return nil, errNotConfigured
	}
	return m.dietaryFn()
}

type mockStatsRepo struct {
	statusCountsFn   func() (map[domain.OrderStatus]int64, error)
	revenueSinceFn   func(since time.Time) (int64, error)
	popularItemsFn   func(limit int) ([]domain.PopularItem, error)
	orderBucketsFn   func(unit string, since time.Time) ([]domain.TimeBucket, error)
	revenueBucketsFn func(unit string, since time.Time) ([]domain.RevenueBucket, error)
	countUsersFn     func() (int64, error)
}

func (m *mockStatsRepo) CountOrdersByStatus() (map[domain.OrderStatus]int64, error) {
	if m.statusCountsFn == nil {
		return map[domain.OrderStatus]int64{}, nil
	}
	return m.statusCountsFn()
}

func (m *mockStatsRepo) RevenueSince(since time.Time) (int64, error) {
	if m.revenueSinceFn == nil {
		return 0, nil
	}
	return m.revenueSinceFn(since)
}

func (m *mockStatsRepo) PopularItems(limit int) ([]domain.PopularItem, error) {
	if m.popularItemsFn == nil {
		return nil, nil
	}
	return m.popularItemsFn(limit)
}

func (m *mockStatsRepo) OrderBuckets(unit string, since time.Time) ([]domain.TimeBucket, error) {
	if m.orderBucketsFn == nil {
		return nil, nil
	}
	return m.orderBucketsFn(unit, since)
}

func (m *mockStatsRepo) RevenueBuckets(unit string, since time.Time) ([]domain.RevenueBucket, error) {
	if m.revenueBucketsFn == nil {
		return nil, nil
	}
	return m.revenueBucketsFn(unit, since)
}

func (m *mockStatsRepo) CountUsers() (int64, error) {
	if m.countUsersFn == nil {
		return 0, nil
	}
	return m.countUsersFn()
}
