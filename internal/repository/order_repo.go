package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"restaurant_service/internal/domain"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const orderColumns = `id, type, status, payment_status, phone_number,
	COALESCE(customer_name, ''), COALESCE(table_number, ''), total,
	COALESCE(pos_reference, ''), COALESCE(special_instructions, ''),
	created_at, updated_at`

type postgresOrderRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresOrderRepository(db *sql.DB, logger *logrus.Logger) domain.OrderRepository {
	return &postgresOrderRepository{
		db:  db,
		log: logger,
	}
}

func scanOrder(row interface{ Scan(...interface{}) error }, order *domain.Order) error {
	return row.Scan(
		&order.ID,
		&order.Type,
		&order.Status,
		&order.PaymentStatus,
		&order.PhoneNumber,
		&order.CustomerName,
		&order.TableNumber,
		&order.Total,
		&order.POSReference,
		&order.SpecialInstructions,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
}

func (r *postgresOrderRepository) CreateOrder(order *domain.Order) (*domain.Order, error) {
	tx, err := r.db.Begin()
	if err != nil {
		r.log.Errorf("Failed to begin transaction: %v", err)
		return nil, fmt.Errorf("could not start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Recovered from panic, rolling back transaction")
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			r.log.Warnf("Rolling back transaction due to error: %v", err)
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Errorf("Failed to rollback transaction: %v", rbErr)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				r.log.Errorf("Failed to commit transaction: %v", cErr)
				err = fmt.Errorf("failed to commit transaction: %w", cErr)
			}
		}
	}()

	orderQuery := `
        INSERT INTO orders (type, status, payment_status, phone_number, customer_name, table_number, total, special_instructions)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, NULLIF($8, ''))
        RETURNING id, created_at, updated_at
    `
	err = tx.QueryRow(orderQuery,
		order.Type,
		order.Status,
		order.PaymentStatus,
		order.PhoneNumber,
		order.CustomerName,
		order.TableNumber,
		order.Total,
		order.SpecialInstructions,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		r.log.Errorf("Failed to insert order for phone %s: %v", order.PhoneNumber, err)
		return nil, fmt.Errorf("could not create order entry: %w", err)
	}

	itemQuery := `
        INSERT INTO order_items (order_id, menu_item_id, name, quantity, price, special_instructions)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
    `
	stmt, err := tx.Prepare(itemQuery)
	if err != nil {
		r.log.Errorf("Failed to prepare order item statement: %v", err)
		return nil, fmt.Errorf("could not prepare item statement: %w", err)
	}
	defer stmt.Close()

	for i := range order.Items {
		item := &order.Items[i]
		_, err = stmt.Exec(order.ID, item.MenuItemID, item.Name, item.Quantity, item.Price, item.SpecialInstructions)
		if err != nil {
			r.log.Errorf("Failed to insert order item (menu_item_id: %d) for order %d: %v", item.MenuItemID, order.ID, err)
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23514" {
				return nil, fmt.Errorf("invalid item data (menu_item_id: %d): %s", item.MenuItemID, pqErr.Message)
			}
			return nil, fmt.Errorf("could not create order item (menu_item_id: %d): %w", item.MenuItemID, err)
		}
	}

	r.log.Infof("Order %d created with %d items (total %d)", order.ID, len(order.Items), order.Total)
	return order, nil
}

func (r *postgresOrderRepository) GetOrderByID(id int64) (*domain.Order, error) {
	order := &domain.Order{}
	orderQuery := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	err := scanOrder(r.db.QueryRow(orderQuery, id), order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Order with ID %d not found", id)
			return nil, fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
		}
		r.log.Errorf("Failed to get order by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not retrieve order: %w", err)
	}

	items, err := r.getOrderItems(id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *postgresOrderRepository) getOrderItems(orderID int64) ([]domain.OrderItem, error) {
	itemsQuery := `
        SELECT menu_item_id, name, quantity, price, COALESCE(special_instructions, '')
        FROM order_items
        WHERE order_id = $1
        ORDER BY id
    `
	rows, err := r.db.Query(itemsQuery, orderID)
	if err != nil {
		r.log.Errorf("Failed to query order items for order ID %d: %v", orderID, err)
		return nil, fmt.Errorf("could not retrieve order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.MenuItemID, &item.Name, &item.Quantity, &item.Price, &item.SpecialInstructions); err != nil {
			r.log.Errorf("Failed to scan order item row for order ID %d: %v", orderID, err)
			return nil, fmt.Errorf("error scanning order item: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Error during order items iteration for order ID %d: %v", orderID, err)
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return items, nil
}

// UpdateOrderStatus applies the transition only if the row's status is still
// the one the caller validated against. Zero rows affected means either the
// order vanished or a concurrent transition won the race.
func (r *postgresOrderRepository) UpdateOrderStatus(id int64, from, to domain.OrderStatus) (*domain.Order, error) {
	query := `
        UPDATE orders
        SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status = $3
        RETURNING ` + orderColumns

	updated := &domain.Order{}
	err := scanOrder(r.db.QueryRow(query, to, id, from), updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.resolveConditionalMiss(id, from, to)
		}
		r.log.Errorf("Failed to update status for order ID %d: %v", id, err)
		return nil, fmt.Errorf("could not update order status: %w", err)
	}

	items, err := r.getOrderItems(id)
	if err != nil {
		return nil, fmt.Errorf("order status updated, but failed to retrieve items: %w", err)
	}
	updated.Items = items

	r.log.Infof("Order %d status updated '%s' -> '%s'", id, from, to)
	return updated, nil
}

func (r *postgresOrderRepository) resolveConditionalMiss(id int64, from, to domain.OrderStatus) error {
	var current domain.OrderStatus
	err := r.db.QueryRow(`SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		r.log.Warnf("Order with ID %d not found for status update", id)
		return fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		r.log.Errorf("Failed to re-read order %d after conditional update miss: %v", id, err)
		return fmt.Errorf("could not verify order state: %w", err)
	}
	r.log.Warnf("Conditional update lost for order %d: status is '%s', expected '%s' (target '%s')", id, current, from, to)
	return fmt.Errorf("order %d status is '%s', not '%s': %w", id, current, from, domain.ErrInvalidTransition)
}

// CompleteOrder is the pay-later customer flow: any non-terminal order jumps
// straight to completed.
func (r *postgresOrderRepository) CompleteOrder(id int64) (*domain.Order, error) {
	query := `
        UPDATE orders
        SET status = $1, updated_at = NOW()
        WHERE id = $2 AND status NOT IN ($3, $4)
        RETURNING ` + orderColumns

	updated := &domain.Order{}
	err := scanOrder(r.db.QueryRow(query, domain.StatusCompleted, id, domain.StatusCompleted, domain.StatusCancelled), updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.resolveTerminalMiss(id, "complete")
		}
		r.log.Errorf("Failed to complete order ID %d: %v", id, err)
		return nil, fmt.Errorf("could not complete order: %w", err)
	}

	items, err := r.getOrderItems(id)
	if err != nil {
		return nil, fmt.Errorf("order completed, but failed to retrieve items: %w", err)
	}
	updated.Items = items

	r.log.Infof("Order %d force-completed", id)
	return updated, nil
}

func (r *postgresOrderRepository) resolveTerminalMiss(id int64, action string) error {
	var current domain.OrderStatus
	err := r.db.QueryRow(`SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("could not verify order state: %w", err)
	}
	r.log.Warnf("Cannot %s order %d in terminal status '%s'", action, id, current)
	return fmt.Errorf("order %d is '%s': %w", id, current, domain.ErrInvalidTransition)
}

func (r *postgresOrderRepository) resolvePaymentMiss(id int64, requested domain.PaymentStatus) error {
	var status domain.OrderStatus
	var payment domain.PaymentStatus
	err := r.db.QueryRow(`SELECT status, payment_status FROM orders WHERE id = $1`, id).Scan(&status, &payment)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("order %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("could not verify order state: %w", err)
	}
	if status.Terminal() {
		r.log.Warnf("Cannot update payment of order %d in terminal status '%s'", id, status)
		return fmt.Errorf("order %d is '%s': %w", id, status, domain.ErrInvalidTransition)
	}
	r.log.Warnf("Refusing to move payment of order %d from '%s' to '%s'", id, payment, requested)
	return fmt.Errorf("order %d payment is already '%s': %w", id, payment, domain.ErrInvalidTransition)
}

func (r *postgresOrderRepository) UpdateOrderPayment(id int64, status domain.PaymentStatus, posReference string) (*domain.Order, error) {
	// A settled payment can only be re-written as paid; nothing downgrades it.
	query := `
        UPDATE orders
        SET payment_status = $1,
            pos_reference = COALESCE(NULLIF($2, ''), pos_reference),
            updated_at = NOW()
        WHERE id = $3 AND status NOT IN ($4, $5)
          AND (payment_status <> $6 OR $1 = $6)
        RETURNING ` + orderColumns

	updated := &domain.Order{}
	err := scanOrder(r.db.QueryRow(query, status, posReference, id, domain.StatusCompleted, domain.StatusCancelled, domain.PaymentPaid), updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.resolvePaymentMiss(id, status)
		}
		r.log.Errorf("Failed to update payment for order ID %d: %v", id, err)
		return nil, fmt.Errorf("could not update order payment: %w", err)
	}

	items, err := r.getOrderItems(id)
	if err != nil {
		return nil, fmt.Errorf("payment updated, but failed to retrieve items: %w", err)
	}
	updated.Items = items

	r.log.Infof("Order %d payment status updated to '%s'", id, status)
	return updated, nil
}

func (r *postgresOrderRepository) ListOrdersByStatus(statuses []domain.OrderStatus) ([]domain.Order, error) {
	strs := make([]string, len(statuses))
	for i, s := range statuses {
		strs[i] = string(s)
	}

	ordersQuery := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE status = ANY($1::text[])
        ORDER BY created_at ASC
    `
	return r.listOrders(ordersQuery, pq.Array(strs))
}

func (r *postgresOrderRepository) ListOrdersByPhoneSince(phoneNumber string, since time.Time) ([]domain.Order, error) {
	ordersQuery := `
        SELECT ` + orderColumns + `
        FROM orders
        WHERE phone_number = $1 AND created_at >= $2
        ORDER BY created_at DESC
    `
	return r.listOrders(ordersQuery, phoneNumber, since)
}

func (r *postgresOrderRepository) listOrders(query string, args ...interface{}) ([]domain.Order, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.log.Errorf("Failed to list orders: %v", err)
		return nil, fmt.Errorf("could not retrieve orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	orderIDs := []int64{}
	for rows.Next() {
		var order domain.Order
		if err := scanOrder(rows, &order); err != nil {
			r.log.Errorf("Failed to scan order row: %v", err)
			return nil, fmt.Errorf("error scanning order data: %w", err)
		}
		orders = append(orders, order)
		orderIDs = append(orderIDs, order.ID)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Error during orders iteration: %v", err)
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if len(orders) == 0 {
		return []domain.Order{}, nil
	}

	itemsQuery := `
        SELECT order_id, menu_item_id, name, quantity, price, COALESCE(special_instructions, '')
        FROM order_items
        WHERE order_id = ANY($1::bigint[])
        ORDER BY order_id, id
    `
	itemRows, err := r.db.Query(itemsQuery, pq.Array(orderIDs))
	if err != nil {
		r.log.Errorf("Failed to query items for multiple orders (%v): %v", orderIDs, err)
		return nil, fmt.Errorf("could not retrieve order items for list: %w", err)
	}
	defer itemRows.Close()

	itemsMap := make(map[int64][]domain.OrderItem)
	for itemRows.Next() {
		var item domain.OrderItem
		var orderID int64
		if err := itemRows.Scan(&orderID, &item.MenuItemID, &item.Name, &item.Quantity, &item.Price, &item.SpecialInstructions); err != nil {
			r.log.Errorf("Failed to scan order item row during multi-order fetch: %v", err)
			return nil, fmt.Errorf("error scanning order item data for list: %w", err)
		}
		itemsMap[orderID] = append(itemsMap[orderID], item)
	}
	if err = itemRows.Err(); err != nil {
		r.log.Errorf("Error during multi-order items iteration: %v", err)
		return nil, fmt.Errorf("error iterating order items for list: %w", err)
	}

	for i := range orders {
		if items, ok := itemsMap[orders[i].ID]; ok {
			orders[i].Items = items
		} else {
			orders[i].Items = []domain.OrderItem{}
		}
	}

	return orders, nil
}
