package server

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hsagiv/pizza-orders-assignment/internal/orders"
	"github.com/hsagiv/pizza-orders-assignment/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 256
)

// Client is one open connection. The role is assigned once at handshake
// by the gatekeeper and never mutated afterwards.
type Client struct {
	id       string
	role     types.Role
	conn     *websocket.Conn
	ts       *TrackerServer
	log      *log.Logger
	send     chan *ServerMessage
	stop     chan struct{}
	stopOnce sync.Once
}

func NewClient(id string, role types.Role, conn *websocket.Conn, ts *TrackerServer, l *log.Logger) *Client {
	return &Client{
		id:   id,
		role: role,
		conn: conn,
		ts:   ts,
		log:  l,
		send: make(chan *ServerMessage, sendQueueSize),
		stop: make(chan struct{}),
	}
}

func (c *Client) Id() string {
	return c.id
}

func (c *Client) Role() types.Role {
	return c.role
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.client = c
		c.handleMessage(&msg)
	}
}

func (c *Client) handleMessage(msg *ClientMessage) {
	switch {
	case msg.JoinStatusRoom != nil:
		c.handleJoinStatusRoom(msg)
	case msg.LeaveStatusRoom != nil:
		c.handleLeaveStatusRoom(msg)
	case msg.JoinUpdatesRoom != nil:
		c.ts.Registry().Join(c, UpdatesRoom)
		c.queueMessage(NoErrOK(msg.Id, nil))
	case msg.GetOrders != nil:
		c.handleGetOrders(msg)
	case msg.UpdateOrderStatus != nil:
		c.handleUpdateOrderStatus(msg)
	default:
		c.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

// handleJoinStatusRoom subscribes the client to one status room. A status
// outside the fixed enum is ignored (no room is created for it).
func (c *Client) handleJoinStatusRoom(msg *ClientMessage) {
	status, err := types.ParseStatus(msg.JoinStatusRoom.Status)
	if err != nil {
		c.log.Printf("join-status-room: %v", err)
		return
	}

	c.ts.Registry().Join(c, StatusRoom(status))
	c.queueMessage(NoErrOK(msg.Id, nil))
}

func (c *Client) handleLeaveStatusRoom(msg *ClientMessage) {
	status, err := types.ParseStatus(msg.LeaveStatusRoom.Status)
	if err != nil {
		c.log.Printf("leave-status-room: %v", err)
		return
	}

	c.ts.Registry().Leave(c, StatusRoom(status))
	c.queueMessage(NoErrOK(msg.Id, nil))
}

// handleGetOrders delegates to the order service and echoes the result to
// the sender only.
func (c *Client) handleGetOrders(msg *ClientMessage) {
	req := msg.GetOrders

	list, err := c.ts.Orders().List(orders.ListQuery{
		Status:          types.OrderStatus(req.Status),
		Limit:           req.Limit,
		Offset:          req.Offset,
		IncludeSubItems: req.IncludeSubItems,
	})
	if err != nil {
		c.log.Println("get-orders:", err)
		if errors.Is(err, orders.ErrInvalidStatus) {
			c.queueMessage(ErrBadRequest(msg.Id, err.Error()))
		} else {
			c.queueMessage(ErrInternalError(msg.Id))
		}
		return
	}

	c.queueMessage(NoErrOK(msg.Id, list))
}

// handleUpdateOrderStatus delegates to the order service; a successful
// write triggers the status-changed broadcast to all rooms.
func (c *Client) handleUpdateOrderStatus(msg *ClientMessage) {
	if !c.role.CanMutate() {
		c.queueMessage(ErrUnauthorized(msg.Id))
		return
	}

	req := msg.UpdateOrderStatus
	order, oldStatus, err := c.ts.Orders().UpdateStatus(req.Id, types.OrderStatus(req.Status))
	if err != nil {
		c.log.Println("update-order-status:", err)
		switch {
		case errors.Is(err, orders.ErrInvalidStatus):
			c.queueMessage(ErrBadRequest(msg.Id, err.Error()))
		case errors.Is(err, orders.ErrOrderNotFound):
			c.queueMessage(ErrOrderNotFound(msg.Id))
		default:
			c.queueMessage(ErrInternalError(msg.Id))
		}
		return
	}

	c.queueMessage(NoErrOK(msg.Id, order))
	c.ts.OrderStatusChanged(order, oldStatus)
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	c.ts.DeregisterClient(c)
	c.stopClient()
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}
