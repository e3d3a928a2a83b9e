package database

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	orderColumns = "id, number, customer_name, address, latitude, longitude, status, total_price, created_at, updated_at"

	createSubItemQuery = "INSERT INTO sub_items (order_id, title, type, amount, price) " +
		"VALUES ($1, $2, $3, $4, $5) RETURNING id, order_id, title, type, amount, price"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var o Order
	err := row.Scan(
		&o.Id,
		&o.Number,
		&o.CustomerName,
		&o.Address,
		&o.Latitude,
		&o.Longitude,
		&o.Status,
		&o.TotalPrice,
		&o.CreatedAt,
		&o.UpdatedAt,
	)

	return o, err
}

func (db *PgOrderRepository) CreateOrder(params CreateOrderParams) (Order, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Order{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var total float64
	for _, item := range params.SubItems {
		total += item.Price * float64(item.Amount)
	}

	res := tx.QueryRow(
		"INSERT INTO orders (number, customer_name, address, latitude, longitude, status, total_price, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING "+orderColumns,
		params.Number,
		params.CustomerName,
		params.Address,
		params.Latitude,
		params.Longitude,
		params.Status,
		total,
		time.Now().UTC(),
	)

	var order Order
	order, err = scanOrder(res)
	if err != nil {
		return Order{}, err
	}

	for _, item := range params.SubItems {
		var sub SubItem
		err = tx.QueryRow(
			createSubItemQuery,
			order.Id,
			item.Title,
			item.Type,
			item.Amount,
			item.Price,
		).Scan(&sub.Id, &sub.OrderId, &sub.Title, &sub.Type, &sub.Amount, &sub.Price)
		if err != nil {
			return Order{}, err
		}

		order.SubItems = append(order.SubItems, sub)
	}

	if err = tx.Commit(); err != nil {
		return Order{}, err
	}

	return order, nil
}

func (db *PgOrderRepository) GetOrderById(orderId int) (Order, error) {
	row := db.conn.QueryRow(
		"SELECT "+orderColumns+" FROM orders WHERE id = $1 LIMIT 1",
		orderId,
	)

	order, err := scanOrder(row)
	if err != nil {
		return Order{}, err
	}

	order.SubItems, err = db.subItemsForOrder(order.Id)

	return order, err
}

func (db *PgOrderRepository) subItemsForOrder(orderId int) ([]SubItem, error) {
	rows, err := db.conn.Query(
		"SELECT id, order_id, title, type, amount, price FROM sub_items WHERE order_id = $1 ORDER BY id",
		orderId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items = make([]SubItem, 0)
	for rows.Next() {
		var item SubItem
		if err = rows.Scan(&item.Id, &item.OrderId, &item.Title, &item.Type, &item.Amount, &item.Price); err != nil {
			break
		}

		items = append(items, item)
	}

	return items, err
}

func (db *PgOrderRepository) ListOrders(params ListOrdersParams) ([]Order, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	var (
		rows *sql.Rows
		err  error
	)

	if params.Status != "" {
		rows, err = db.conn.Query(
			"SELECT "+orderColumns+" FROM orders WHERE status = $1 "+
				"ORDER BY created_at DESC LIMIT $2 OFFSET $3",
			params.Status,
			limit,
			params.Offset,
		)
	} else {
		rows, err = db.conn.Query(
			"SELECT "+orderColumns+" FROM orders "+
				"ORDER BY created_at DESC LIMIT $1 OFFSET $2",
			limit,
			params.Offset,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders = make([]Order, 0, limit)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}

		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if params.IncludeSubItems {
		for i := range orders {
			items, err := db.subItemsForOrder(orders[i].Id)
			if err != nil {
				return nil, fmt.Errorf("sub items for order %d: %w", orders[i].Id, err)
			}
			orders[i].SubItems = items
		}
	}

	return orders, nil
}

func (db *PgOrderRepository) UpdateOrder(params UpdateOrderParams) (Order, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Order{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var total float64
	for _, item := range params.SubItems {
		total += item.Price * float64(item.Amount)
	}

	res := tx.QueryRow(
		"UPDATE orders SET customer_name = $2, address = $3, latitude = $4, longitude = $5, total_price = $6, updated_at = $7 "+
			"WHERE id = $1 RETURNING "+orderColumns,
		params.OrderId,
		params.CustomerName,
		params.Address,
		params.Latitude,
		params.Longitude,
		total,
		time.Now().UTC(),
	)

	var order Order
	order, err = scanOrder(res)
	if err != nil {
		return Order{}, err
	}

	// sub-items are replaced wholesale on update
	_, err = tx.Exec("DELETE FROM sub_items WHERE order_id = $1", order.Id)
	if err != nil {
		return Order{}, err
	}

	for _, item := range params.SubItems {
		var sub SubItem
		err = tx.QueryRow(
			createSubItemQuery,
			order.Id,
			item.Title,
			item.Type,
			item.Amount,
			item.Price,
		).Scan(&sub.Id, &sub.OrderId, &sub.Title, &sub.Type, &sub.Amount, &sub.Price)
		if err != nil {
			return Order{}, err
		}

		order.SubItems = append(order.SubItems, sub)
	}

	if err = tx.Commit(); err != nil {
		return Order{}, err
	}

	return order, nil
}

func (db *PgOrderRepository) UpdateOrderStatus(orderId int, status string) (Order, error) {
	res := db.conn.QueryRow(
		"UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1 RETURNING "+orderColumns,
		orderId,
		status,
		time.Now().UTC(),
	)

	return scanOrder(res)
}

func (db *PgOrderRepository) DeleteOrder(orderId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec("DELETE FROM sub_items WHERE order_id = $1", orderId)
	if err != nil {
		return err
	}

	var deletedId int
	err = tx.QueryRow("DELETE FROM orders WHERE id = $1 RETURNING id", orderId).Scan(&deletedId)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgOrderRepository) StatusCounts() ([]StatusCount, error) {
	rows, err := db.conn.Query(
		"SELECT status, COUNT(*) FROM orders GROUP BY status ORDER BY status",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts = make([]StatusCount, 0)
	for rows.Next() {
		var sc StatusCount
		if err = rows.Scan(&sc.Status, &sc.Count); err != nil {
			break
		}

		counts = append(counts, sc)
	}

	return counts, err
}
