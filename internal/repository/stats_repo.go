package repository

import (
	"database/sql"
	"fmt"
	"time"

	"restaurant_service/internal/domain"

	"github.com/sirupsen/logrus"
)

type postgresStatsRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresStatsRepository(db *sql.DB, logger *logrus.Logger) domain.StatsRepository {
	return &postgresStatsRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresStatsRepository) CountOrdersByStatus() (map[domain.OrderStatus]int64, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		r.log.Errorf("Failed to count orders by status: %v", err)
		return nil, fmt.Errorf("could not count orders by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.OrderStatus]int64)
	for rows.Next() {
		var status domain.OrderStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			r.log.Errorf("Failed to scan status count row: %v", err)
			return nil, fmt.Errorf("error scanning status count: %w", err)
		}
		counts[status] = count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}
	return counts, nil
}

func (r *postgresStatsRepository) RevenueSince(since time.Time) (int64, error) {
	var revenue int64
	query := `
        SELECT COALESCE(SUM(total), 0)
        FROM orders
        WHERE created_at >= $1 AND status <> $2
    `
	err := r.db.QueryRow(query, since, domain.StatusCancelled).Scan(&revenue)
	if err != nil {
		r.log.Errorf("Failed to sum revenue since %s: %v", since, err)
		return 0, fmt.Errorf("could not compute revenue: %w", err)
	}
	return revenue, nil
}

// PopularItems ranks by summed ordered quantity, so one order of five units
// counts the same as five orders of one.
func (r *postgresStatsRepository) PopularItems(limit int) ([]domain.PopularItem, error) {
	if limit <= 0 {
		limit = 5
	}
	query := `
        SELECT oi.menu_item_id, oi.name, SUM(oi.quantity) AS total_quantity
        FROM order_items oi
        JOIN orders o ON o.id = oi.order_id
        WHERE o.status <> $1
        GROUP BY oi.menu_item_id, oi.name
        ORDER BY total_quantity DESC, oi.menu_item_id
        LIMIT $2
    `
	rows, err := r.db.Query(query, domain.StatusCancelled, limit)
	if err != nil {
		r.log.Errorf("Failed to query popular items: %v", err)
		return nil, fmt.Errorf("could not retrieve popular items: %w", err)
	}
	defer rows.Close()

	var items []domain.PopularItem
	for rows.Next() {
		var item domain.PopularItem
		if err := rows.Scan(&item.MenuItemID, &item.Name, &item.TotalQuantity); err != nil {
			r.log.Errorf("Failed to scan popular item row: %v", err)
			return nil, fmt.Errorf("error scanning popular item: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating popular items: %w", err)
	}
	return items, nil
}

func validBucketUnit(unit string) bool {
	return unit == "hour" || unit == "day" || unit == "month"
}

func (r *postgresStatsRepository) OrderBuckets(unit string, since time.Time) ([]domain.TimeBucket, error) {
	if !validBucketUnit(unit) {
		return nil, fmt.Errorf("invalid bucket unit: %s", unit)
	}
	query := `
        SELECT date_trunc($1, created_at) AS bucket, COUNT(*)
        FROM orders
        WHERE created_at >= $2 AND status <> $3
        GROUP BY bucket
        ORDER BY bucket ASC
    `
	rows, err := r.db.Query(query, unit, since, domain.StatusCancelled)
	if err != nil {
		r.log.Errorf("Failed to query order buckets (%s): %v", unit, err)
		return nil, fmt.Errorf("could not retrieve order buckets: %w", err)
	}
	defer rows.Close()

	var buckets []domain.TimeBucket
	for rows.Next() {
		var b domain.TimeBucket
		if err := rows.Scan(&b.Period, &b.Count); err != nil {
			r.log.Errorf("Failed to scan order bucket row: %v", err)
			return nil, fmt.Errorf("error scanning order bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order buckets: %w", err)
	}
	return buckets, nil
}

func (r *postgresStatsRepository) RevenueBuckets(unit string, since time.Time) ([]domain.RevenueBucket, error) {
	if !validBucketUnit(unit) {
		return nil, fmt.Errorf("invalid bucket unit: %s", unit)
	}
	query := `
        SELECT date_trunc($1, created_at) AS bucket, COALESCE(SUM(total), 0), COUNT(*)
        FROM orders
        WHERE created_at >= $2 AND status <> $3
        GROUP BY bucket
        ORDER BY bucket ASC
    `
	rows, err := r.db.Query(query, unit, since, domain.StatusCancelled)
	if err != nil {
		r.log.Errorf("Failed to query revenue buckets (%s): %v", unit, err)
		return nil, fmt.Errorf("could not retrieve revenue buckets: %w", err)
	}
	defer rows.Close()

	var buckets []domain.RevenueBucket
	for rows.Next() {
		var b domain.RevenueBucket
		if err := rows.Scan(&b.Period, &b.Revenue, &b.OrderCount); err != nil {
			r.log.Errorf("Failed to scan revenue bucket row: %v", err)
			return nil, fmt.Errorf("error scanning revenue bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating revenue buckets: %w", err)
	}
	return buckets, nil
}

func (r *postgresStatsRepository) CountUsers() (int64, error) {
	var count int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		r.log.Errorf("Failed to count users: %v", err)
		return 0, fmt.Errorf("could not count users: %w", err)
	}
	return count, nil
}
