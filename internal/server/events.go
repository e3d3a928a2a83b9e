package server

import (
	"github.com/hsagiv/pizza-orders-assignment/internal/types"
)

// DomainEvent describes a change to an order. Events are ephemeral: they
// are broadcast once and discarded, never persisted. The type is a sealed
// sum so the broadcaster's fan-out switch stays exhaustive.
type DomainEvent interface {
	domainEvent()
}

type OrderCreated struct {
	Order types.Order
}

type OrderUpdated struct {
	Order types.Order
}

type OrderStatusChanged struct {
	Order     types.Order
	OldStatus types.OrderStatus
}

type OrderDeleted struct {
	OrderId int
}

func (OrderCreated) domainEvent()       {}
func (OrderUpdated) domainEvent()       {}
func (OrderStatusChanged) domainEvent() {}
func (OrderDeleted) domainEvent()       {}

// DeletedOrder is the payload of an order:deleted broadcast; the order's
// full state is no longer known at that point.
type DeletedOrder struct {
	Id int `json:"id"`
}
