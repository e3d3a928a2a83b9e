package types

import (
	"fmt"
	"time"
)

// OrderStatus is the lifecycle stage of an order. The values are the
// wire representation used by both the REST API and broadcast payloads.
type OrderStatus string

const (
	StatusReceived  OrderStatus = "Received"
	StatusPreparing OrderStatus = "Preparing"
	StatusReady     OrderStatus = "Ready"
	StatusEnRoute   OrderStatus = "En-Route"
	StatusDelivered OrderStatus = "Delivered"
)

// Statuses returns every order status in lifecycle order.
func Statuses() []OrderStatus {
	return []OrderStatus{
		StatusReceived,
		StatusPreparing,
		StatusReady,
		StatusEnRoute,
		StatusDelivered,
	}
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusReceived, StatusPreparing, StatusReady, StatusEnRoute, StatusDelivered:
		return true
	}
	return false
}

// ParseStatus validates a wire status value.
func ParseStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return status, nil
}

// Role is a connection's classification, assigned once at handshake and
// never re-evaluated.
type Role string

const (
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// CanMutate reports whether the role may create, update or delete orders.
func (r Role) CanMutate() bool {
	return r == RoleUser || r == RoleAdmin
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

type SubItem struct {
	Id      int     `json:"id"`
	OrderId int     `json:"order_id"`
	Title   string  `json:"title"`
	Type    string  `json:"type"`
	Amount  int     `json:"amount"`
	Price   float64 `json:"price"`
}

type Order struct {
	Id           int         `json:"id"`
	Number       string      `json:"number"`
	CustomerName string      `json:"customer_name"`
	Address      string      `json:"address"`
	Latitude     float64     `json:"latitude"`
	Longitude    float64     `json:"longitude"`
	Status       OrderStatus `json:"status"`
	TotalPrice   float64     `json:"total_price"`
	SubItems     []SubItem   `json:"sub_items,omitempty"`
	CreatedAt    time.Time   `json:"created_at,omitempty"`
	UpdatedAt    time.Time   `json:"updated_at,omitempty"`
}
