package usecase

import (
	"context"
	"sync"
	"time"

	"restaurant_service/internal/domain"

	"github.com/sirupsen/logrus"
)

const popularItemsLimit = 5

// MetricsCache holds pre-computed dashboard aggregates so reads never touch
// the store. Each partition is swapped atomically and timestamped on its own:
// a failed recomputation of one partition leaves the other three fresh and
// that one serving its previous value.
type MetricsCache struct {
	stats domain.StatsRepository
	menu  domain.MenuRepository
	log   *logrus.Logger

	mu       sync.RWMutex
	overview partition[domain.OverviewMetrics]
	orders   partition[domain.OrdersMetrics]
	revenue  partition[domain.RevenueMetrics]
	dietary  partition[domain.DietaryMetrics]

	// refreshMu serializes whole-snapshot refreshes; timer ticks that arrive
	// while one is running are skipped, not queued.
	refreshMu sync.Mutex

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type partition[T any] struct {
	value       T
	lastUpdated time.Time
}

func NewMetricsCache(stats domain.StatsRepository, menu domain.MenuRepository, logger *logrus.Logger) *MetricsCache {
	return &MetricsCache{
		stats: stats,
		menu:  menu,
		log:   logger,
	}
}

// Start performs one immediate refresh and then refreshes every interval.
// Calling Start while a loop is running replaces the old loop instead of
// stacking a second one.
func (c *MetricsCache) Start(interval time.Duration) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.cancel != nil {
		c.cancel()
		<-c.done
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	c.RefreshAll()
	c.log.Infof("Metrics cache started with refresh interval %s", interval)

	go c.loop(ctx, interval, c.done)
}

func (c *MetricsCache) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.tryRefresh() {
				c.log.Debug("Skipping metrics refresh tick: previous refresh still running")
			}
		}
	}
}

// Stop cancels the periodic refresh. The last computed snapshot stays
// readable. Stopping an already-stopped cache is a no-op.
func (c *MetricsCache) Stop() {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil
	c.log.Info("Metrics cache stopped")
}

// RefreshAll recomputes all four partitions, waiting if a refresh is already
// in flight. Used by Start and by the manual admin refresh endpoint.
func (c *MetricsCache) RefreshAll() {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	c.refreshAll()
}

func (c *MetricsCache) tryRefresh() bool {
	if !c.refreshMu.TryLock() {
		return false
	}
	defer c.refreshMu.Unlock()
	c.refreshAll()
	return true
}

func (c *MetricsCache) refreshAll() {
	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		value, err := c.computeOverview()
		if err != nil {
			c.log.Errorf("Metrics overview partition refresh failed, keeping previous value: %v", err)
			return
		}
		c.mu.Lock()
		c.overview = partition[domain.OverviewMetrics]{value: value, lastUpdated: time.Now()}
		c.mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		value, err := c.computeOrders()
		if err != nil {
			c.log.Errorf("Metrics orders partition refresh failed, keeping previous value: %v", err)
			return
		}
		c.mu.Lock()
		c.orders = partition[domain.OrdersMetrics]{value: value, lastUpdated: time.Now()}
		c.mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		value, err := c.computeRevenue()
		if err != nil {
			c.log.Errorf("Metrics revenue partition refresh failed, keeping previous value: %v", err)
			return
		}
		c.mu.Lock()
		c.revenue = partition[domain.RevenueMetrics]{value: value, lastUpdated: time.Now()}
		c.mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		value, err := c.computeDietary()
		if err != nil {
			c.log.Errorf("Metrics dietary partition refresh failed, keeping previous value: %v", err)
			return
		}
		c.mu.Lock()
		c.dietary = partition[domain.DietaryMetrics]{value: value, lastUpdated: time.Now()}
		c.mu.Unlock()
	}()

	wg.Wait()
	c.log.Infof("Metrics refresh finished in %s", time.Since(start))
}

func (c *MetricsCache) computeOverview() (domain.OverviewMetrics, error) {
	var m domain.OverviewMetrics

	statusCounts, err := c.stats.CountOrdersByStatus()
	if err != nil {
		return m, err
	}
	m.StatusCounts = statusCounts
	for _, s := range domain.ActiveStatuses {
		m.ActiveOrders += statusCounts[s]
	}
	m.CompletedOrders = statusCounts[domain.StatusCompleted] + statusCounts[domain.StatusServed]

	m.MenuItemCount, err = c.menu.CountItems()
	if err != nil {
		return m, err
	}
	m.UserCount, err = c.stats.CountUsers()
	if err != nil {
		return m, err
	}

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := dayStart.AddDate(0, 0, -int((dayStart.Weekday()+6)%7))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	m.RevenueToday, err = c.stats.RevenueSince(dayStart)
	if err != nil {
		return m, err
	}
	m.RevenueWeek, err = c.stats.RevenueSince(weekStart)
	if err != nil {
		return m, err
	}
	m.RevenueMonth, err = c.stats.RevenueSince(monthStart)
	if err != nil {
		return m, err
	}

	m.PopularItems, err = c.stats.PopularItems(popularItemsLimit)
	if err != nil {
		return m, err
	}
	return m, nil
}

func (c *MetricsCache) computeOrders() (domain.OrdersMetrics, error) {
	var m domain.OrdersMetrics
	now := time.Now()

	var err error
	m.Hourly, err = c.stats.OrderBuckets("hour", now.Add(-24*time.Hour))
	if err != nil {
		return m, err
	}
	m.Daily, err = c.stats.OrderBuckets("day", now.AddDate(0, 0, -7))
	if err != nil {
		return m, err
	}
	m.Monthly, err = c.stats.OrderBuckets("month", now.AddDate(0, -6, 0))
	if err != nil {
		return m, err
	}
	return m, nil
}

func (c *MetricsCache) computeRevenue() (domain.RevenueMetrics, error) {
	var m domain.RevenueMetrics
	now := time.Now()

	var err error
	m.Hourly, err = c.stats.RevenueBuckets("hour", now.Add(-24*time.Hour))
	if err != nil {
		return m, err
	}
	m.Daily, err = c.stats.RevenueBuckets("day", now.AddDate(0, 0, -7))
	if err != nil {
		return m, err
	}
	m.Monthly, err = c.stats.RevenueBuckets("month", now.AddDate(0, -6, 0))
	if err != nil {
		return m, err
	}
	return m, nil
}

func (c *MetricsCache) computeDietary() (domain.DietaryMetrics, error) {
	counts, err := c.menu.DietaryTagCounts()
	if err != nil {
		return domain.DietaryMetrics{}, err
	}
	return domain.DietaryMetrics{TagCounts: counts}, nil
}

func (c *MetricsCache) Overview() (domain.OverviewMetrics, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.overview.value, c.overview.lastUpdated
}

func (c *MetricsCache) Orders() (domain.OrdersMetrics, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.orders.value, c.orders.lastUpdated
}

func (c *MetricsCache) Revenue() (domain.RevenueMetrics, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revenue.value, c.revenue.lastUpdated
}

func (c *MetricsCache) Dietary() (domain.DietaryMetrics, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dietary.value, c.dietary.lastUpdated
}
