package domain

import "time"

type PopularItem struct {
	MenuItemID    int64  `json:"menuItemId"`
	Name          string `json:"name"`
	TotalQuantity int64  `json:"totalQuantity"`
}

type OverviewMetrics struct {
	MenuItemCount   int64                 `json:"menuItemCount"`
	ActiveOrders    int64                 `json:"activeOrders"`
	CompletedOrders int64                 `json:"completedOrders"`
	UserCount       int64                 `json:"userCount"`
	RevenueToday    int64                 `json:"revenueToday"`
	RevenueWeek     int64                 `json:"revenueWeek"`
	RevenueMonth    int64                 `json:"revenueMonth"`
	PopularItems    []PopularItem         `json:"popularItems"`
	StatusCounts    map[OrderStatus]int64 `json:"statusCounts"`
}

// TimeBucket is one calendar bucket of an order-count series. Buckets with no
// orders are absent, not zero-filled.
type TimeBucket struct {
	Period time.Time `json:"period"`
	Count  int64     `json:"count"`
}

type RevenueBucket struct {
	Period     time.Time `json:"period"`
	Revenue    int64     `json:"revenue"`
	OrderCount int64     `json:"orderCount"`
}

type OrdersMetrics struct {
	Hourly  []TimeBucket `json:"hourly"`
	Daily   []TimeBucket `json:"daily"`
	Monthly []TimeBucket `json:"monthly"`
}

type RevenueMetrics struct {
	Hourly  []RevenueBucket `json:"hourly"`
	Daily   []RevenueBucket `json:"daily"`
	Monthly []RevenueBucket `json:"monthly"`
}

type DietaryMetrics struct {
	TagCounts map[string]int64 `json:"tagCounts"`
}

// StatsRepository runs the aggregate queries backing the metrics cache.
type StatsRepository interface {
	CountOrdersByStatus() (map[OrderStatus]int64, error)
	// RevenueSince sums totals of non-cancelled orders created at or after since.
	RevenueSince(since time.Time) (int64, error)
	// PopularItems ranks menu items by summed ordered quantity, descending.
	PopularItems(limit int) ([]PopularItem, error)
	// OrderBuckets and RevenueBuckets group by the given date_trunc unit
	// ("hour", "day" or "month"), ascending, sparse.
	OrderBuckets(unit string, since time.Time) ([]TimeBucket, error)
	RevenueBuckets(unit string, since time.Time) ([]RevenueBucket, error)
	CountUsers() (int64, error)
}
