package repository

import (
	"database/sql"
	"fmt"

	"restaurant_service/internal/domain"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type postgresMenuRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresMenuRepository(db *sql.DB, logger *logrus.Logger) domain.MenuRepository {
	return &postgresMenuRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresMenuRepository) GetItemsByIDs(ids []int64) (map[int64]domain.MenuItem, error) {
	if len(ids) == 0 {
		return map[int64]domain.MenuItem{}, nil
	}

	query := `
        SELECT id, name, description, price, COALESCE(category, ''), dietary_tags, available, created_at, updated_at
        FROM menu_items
        WHERE id = ANY($1::bigint[])
    `
	rows, err := r.db.Query(query, pq.Array(ids))
	if err != nil {
		r.log.Errorf("Failed to query menu items %v: %v", ids, err)
		return nil, fmt.Errorf("could not retrieve menu items: %w", err)
	}
	defer rows.Close()

	items := make(map[int64]domain.MenuItem, len(ids))
	for rows.Next() {
		var item domain.MenuItem
		if err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Description,
			&item.Price,
			&item.Category,
			pq.Array(&item.DietaryTags),
			&item.Available,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			r.log.Errorf("Failed to scan menu item row: %v", err)
			return nil, fmt.Errorf("error scanning menu item: %w", err)
		}
		items[item.ID] = item
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Error during menu items iteration: %v", err)
		return nil, fmt.Errorf("error iterating menu items: %w", err)
	}

	return items, nil
}

func (r *postgresMenuRepository) CountItems() (int64, error) {
	var count int64
	err := r.db.QueryRow(`SELECT COUNT(*) FROM menu_items`).Scan(&count)
	if err != nil {
		r.log.Errorf("Failed to count menu items: %v", err)
		return 0, fmt.Errorf("could not count menu items: %w", err)
	}
	return count, nil
}

func (r *postgresMenuRepository) DietaryTagCounts() (map[string]int64, error) {
	query := `
        SELECT tag, COUNT(*)
        FROM menu_items, unnest(dietary_tags) AS tag
        GROUP BY tag
        ORDER BY tag
    `
	rows, err := r.db.Query(query)
	if err != nil {
		r.log.Errorf("Failed to query dietary tag counts: %v", err)
		return nil, fmt.Errorf("could not retrieve dietary tag counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var tag string
		var count int64
		if err := rows.Scan(&tag, &count); err != nil {
			r.log.Errorf("Failed to scan dietary tag row: %v", err)
			return nil, fmt.Errorf("error scanning dietary tag count: %w", err)
		}
		counts[tag] = count
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Error during dietary tag iteration: %v", err)
		return nil, fmt.Errorf("error iterating dietary tag counts: %w", err)
	}

	return counts, nil
}
