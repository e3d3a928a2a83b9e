package server

import (
	"net/http"
	"time"
)

// Outbound event names, room-scoped. The global room sees the order:*
// events, status rooms the occupancy events, the admin room the rest.
const (
	EventOrderCreated       = "order:created"
	EventOrderUpdated       = "order:updated"
	EventOrderStatusChanged = "order:status-changed"
	EventOrderDeleted       = "order:deleted"
	EventNewOrder           = "new-order"
	EventOrderJoinedStatus  = "order-joined-status"
	EventOrderLeftStatus    = "order-left-status"
	EventAdminMessage       = "admin-message"
	EventStatisticsUpdate   = "statistics-update"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is an inbound frame. Exactly one of the operation fields
// is expected to be set; the field names are the wire event names.
type ClientMessage struct {
	BaseMessage
	JoinStatusRoom    *JoinStatusRoom    `json:"join-status-room,omitempty"`
	LeaveStatusRoom   *LeaveStatusRoom   `json:"leave-status-room,omitempty"`
	JoinUpdatesRoom   *JoinUpdatesRoom   `json:"join-updates-room,omitempty"`
	GetOrders         *GetOrders         `json:"get-orders,omitempty"`
	UpdateOrderStatus *UpdateOrderStatus `json:"update-order-status,omitempty"`

	client *Client
}

type JoinStatusRoom struct {
	Status string `json:"status"`
}

type LeaveStatusRoom struct {
	Status string `json:"status"`
}

type JoinUpdatesRoom struct{}

type GetOrders struct {
	Status          string `json:"status,omitempty"`
	Limit           int    `json:"limit,omitempty"`
	Offset          int    `json:"offset,omitempty"`
	IncludeSubItems bool   `json:"includeSubItems,omitempty"`
}

type UpdateOrderStatus struct {
	Id     int    `json:"id"`
	Status string `json:"status"`
}

// ServerMessage is an outbound frame: either a room broadcast (Event set)
// or a direct reply to the sender (Id correlates to the client message).
// Timestamp is the wall-clock moment the fan-out executed, not when the
// originating event was created.
type ServerMessage struct {
	Id        int       `json:"id,omitempty"`
	Event     string    `json:"event,omitempty"`
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	OldStatus string    `json:"oldStatus,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		Id:        id,
		Success:   true,
		Data:      data,
		Timestamp: Now(),
	}
}

func ErrInvalidMessage(id int) *ServerMessage {
	return errMessage(id, http.StatusBadRequest, "invalid message format")
}

func ErrBadRequest(id int, detail string) *ServerMessage {
	return errMessage(id, http.StatusBadRequest, detail)
}

func ErrOrderNotFound(id int) *ServerMessage {
	return errMessage(id, http.StatusNotFound, "order not found")
}

func ErrUnauthorized(id int) *ServerMessage {
	return errMessage(id, http.StatusUnauthorized, "insufficient role")
}

func ErrInternalError(id int) *ServerMessage {
	return errMessage(id, http.StatusInternalServerError, "internal server error")
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return errMessage(id, http.StatusServiceUnavailable, "service unavailable")
}

func errMessage(id, code int, detail string) *ServerMessage {
	msg := &ServerMessage{
		Success:   false,
		Error:     detail,
		Data:      map[string]any{"code": code},
		Timestamp: Now(),
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
