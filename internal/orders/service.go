// Package orders implements the order service: field validation at the
// API boundary and pass-through persistence calls. Status transitions are
// deliberately unconstrained; any status may be set to any other so that
// manual corrections remain possible.
package orders

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/teris-io/shortid"

	"github.com/hsagiv/pizza-orders-assignment/internal/database"
	"github.com/hsagiv/pizza-orders-assignment/internal/types"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid order status")
	ErrInvalidOrder  = errors.New("invalid order")
)

const (
	maxCustomerNameLen = 100
	maxAddressLen      = 200
	maxSubItemTitleLen = 50
	maxSubItems        = 20
)

type SubItemParams struct {
	Title  string  `json:"title"`
	Type   string  `json:"type"`
	Amount int     `json:"amount"`
	Price  float64 `json:"price"`
}

type CreateOrderParams struct {
	CustomerName string          `json:"customer_name"`
	Address      string          `json:"address"`
	Latitude     float64         `json:"latitude"`
	Longitude    float64         `json:"longitude"`
	Status       string          `json:"status"`
	SubItems     []SubItemParams `json:"sub_items"`
}

type UpdateOrderParams struct {
	CustomerName string          `json:"customer_name"`
	Address      string          `json:"address"`
	Latitude     float64         `json:"latitude"`
	Longitude    float64         `json:"longitude"`
	SubItems     []SubItemParams `json:"sub_items"`
}

type ListQuery struct {
	Status          types.OrderStatus
	Limit           int
	Offset          int
	IncludeSubItems bool
}

type Service struct {
	log *log.Logger
	db  database.OrderRepository
}

func NewService(logger *log.Logger, db database.OrderRepository) *Service {
	return &Service{log: logger, db: db}
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping() error {
	return s.db.Ping()
}

func validateSubItems(items []SubItemParams) error {
	if len(items) < 1 || len(items) > maxSubItems {
		return fmt.Errorf("%w: order must have 1-%d items", ErrInvalidOrder, maxSubItems)
	}

	for _, item := range items {
		if len(item.Title) < 1 || len(item.Title) > maxSubItemTitleLen {
			return fmt.Errorf("%w: item title must be 1-%d characters", ErrInvalidOrder, maxSubItemTitleLen)
		}
		if item.Amount < 1 {
			return fmt.Errorf("%w: item amount must be at least 1", ErrInvalidOrder)
		}
		if item.Price < 0 {
			return fmt.Errorf("%w: item price cannot be negative", ErrInvalidOrder)
		}
	}

	return nil
}

func validateOrderFields(customerName, address string) error {
	if len(customerName) < 1 || len(customerName) > maxCustomerNameLen {
		return fmt.Errorf("%w: customer name must be 1-%d characters", ErrInvalidOrder, maxCustomerNameLen)
	}
	if len(address) < 1 || len(address) > maxAddressLen {
		return fmt.Errorf("%w: address must be 1-%d characters", ErrInvalidOrder, maxAddressLen)
	}

	return nil
}

func (s *Service) Create(params CreateOrderParams) (types.Order, error) {
	if err := validateOrderFields(params.CustomerName, params.Address); err != nil {
		return types.Order{}, err
	}
	if err := validateSubItems(params.SubItems); err != nil {
		return types.Order{}, err
	}

	status := types.StatusReceived
	if params.Status != "" {
		var err error
		status, err = types.ParseStatus(params.Status)
		if err != nil {
			return types.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, params.Status)
		}
	}

	number, err := shortid.Generate()
	if err != nil {
		return types.Order{}, fmt.Errorf("generate order number: %w", err)
	}

	dbOrder, err := s.db.CreateOrder(database.CreateOrderParams{
		Number:       number,
		CustomerName: params.CustomerName,
		Address:      params.Address,
		Latitude:     params.Latitude,
		Longitude:    params.Longitude,
		Status:       string(status),
		SubItems:     toDbSubItems(params.SubItems),
	})
	if err != nil {
		return types.Order{}, fmt.Errorf("create order: %w", err)
	}

	return toOrder(dbOrder), nil
}

func (s *Service) Get(orderId int) (types.Order, error) {
	dbOrder, err := s.db.GetOrderById(orderId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Order{}, ErrOrderNotFound
		}
		return types.Order{}, fmt.Errorf("get order: %w", err)
	}

	return toOrder(dbOrder), nil
}

func (s *Service) List(q ListQuery) ([]types.Order, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, q.Status)
	}

	dbOrders, err := s.db.ListOrders(database.ListOrdersParams{
		Status:          string(q.Status),
		Limit:           q.Limit,
		Offset:          q.Offset,
		IncludeSubItems: q.IncludeSubItems,
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]types.Order, len(dbOrders))
	for i, dbOrder := range dbOrders {
		orders[i] = toOrder(dbOrder)
	}

	return orders, nil
}

func (s *Service) Update(orderId int, params UpdateOrderParams) (types.Order, error) {
	if err := validateOrderFields(params.CustomerName, params.Address); err != nil {
		return types.Order{}, err
	}
	if err := validateSubItems(params.SubItems); err != nil {
		return types.Order{}, err
	}

	dbOrder, err := s.db.UpdateOrder(database.UpdateOrderParams{
		OrderId:      orderId,
		CustomerName: params.CustomerName,
		Address:      params.Address,
		Latitude:     params.Latitude,
		Longitude:    params.Longitude,
		SubItems:     toDbSubItems(params.SubItems),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Order{}, ErrOrderNotFound
		}
		return types.Order{}, fmt.Errorf("update order: %w", err)
	}

	return toOrder(dbOrder), nil
}

// UpdateStatus sets an order's status and returns the updated order along
// with the status it held before the update.
func (s *Service) UpdateStatus(orderId int, status types.OrderStatus) (types.Order, types.OrderStatus, error) {
	if !status.Valid() {
		return types.Order{}, "", fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	current, err := s.db.GetOrderById(orderId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Order{}, "", ErrOrderNotFound
		}
		return types.Order{}, "", fmt.Errorf("get order: %w", err)
	}

	dbOrder, err := s.db.UpdateOrderStatus(orderId, string(status))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Order{}, "", ErrOrderNotFound
		}
		return types.Order{}, "", fmt.Errorf("update order status: %w", err)
	}

	order := toOrder(dbOrder)
	order.SubItems = toSubItems(current.SubItems)

	return order, types.OrderStatus(current.Status), nil
}

func (s *Service) Delete(orderId int) error {
	if err := s.db.DeleteOrder(orderId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("delete order: %w", err)
	}

	return nil
}

// StatusCounts returns the number of orders per status, with zero entries
// for statuses that have no orders.
func (s *Service) StatusCounts() (map[types.OrderStatus]int, error) {
	dbCounts, err := s.db.StatusCounts()
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}

	counts := make(map[types.OrderStatus]int, len(types.Statuses()))
	for _, status := range types.Statuses() {
		counts[status] = 0
	}
	for _, sc := range dbCounts {
		counts[types.OrderStatus(sc.Status)] = sc.Count
	}

	return counts, nil
}

func toDbSubItems(items []SubItemParams) []database.CreateSubItemParams {
	dbItems := make([]database.CreateSubItemParams, len(items))
	for i, item := range items {
		dbItems[i] = database.CreateSubItemParams{
			Title:  item.Title,
			Type:   item.Type,
			Amount: item.Amount,
			Price:  item.Price,
		}
	}
	return dbItems
}

func toSubItems(items []database.SubItem) []types.SubItem {
	if items == nil {
		return nil
	}

	subItems := make([]types.SubItem, len(items))
	for i, item := range items {
		subItems[i] = types.SubItem{
			Id:      item.Id,
			OrderId: item.OrderId,
			Title:   item.Title,
			Type:    item.Type,
			Amount:  item.Amount,
			Price:   item.Price,
		}
	}
	return subItems
}

func toOrder(dbOrder database.Order) types.Order {
	return types.Order{
		Id:           dbOrder.Id,
		Number:       dbOrder.Number,
		CustomerName: dbOrder.CustomerName,
		Address:      dbOrder.Address,
		Latitude:     dbOrder.Latitude,
		Longitude:    dbOrder.Longitude,
		Status:       types.OrderStatus(dbOrder.Status),
		TotalPrice:   dbOrder.TotalPrice,
		SubItems:     toSubItems(dbOrder.SubItems),
		CreatedAt:    dbOrder.CreatedAt,
		UpdatedAt:    dbOrder.UpdatedAt,
	}
}
