package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/hsagiv/pizza-orders-assignment/internal/orders"
	"github.com/hsagiv/pizza-orders-assignment/internal/stats"
	"github.com/hsagiv/pizza-orders-assignment/internal/types"
)

const defaultStatsInterval = 30 * time.Second

// TrackerServer owns the connection set, the room registry and the
// broadcaster. Every connection joins the global room at registration;
// admin connections additionally join the admin room. The admin room
// receives a statistics-update broadcast on a fixed interval.
type TrackerServer struct {
	log           *log.Logger
	orders        *orders.Service
	registry      *RoomRegistry
	broadcaster   *Broadcaster
	stats         stats.StatsProvider
	clients       map[*Client]struct{}
	clientsLock   sync.Mutex
	statsInterval time.Duration
	stop          chan struct{}
	done          chan struct{}
}

func NewTrackerServer(logger *log.Logger, svc *orders.Service, registry *RoomRegistry, bc *Broadcaster, sp stats.StatsProvider) (*TrackerServer, error) {
	sp.RegisterMetric(stats.ActiveConnections)
	sp.RegisterMetric(stats.OrdersCreated)
	sp.RegisterMetric(stats.OrdersUpdated)
	sp.RegisterMetric(stats.OrdersDeleted)
	sp.RegisterMetric(stats.StatusChanges)

	return &TrackerServer{
		log:           logger,
		orders:        svc,
		registry:      registry,
		broadcaster:   bc,
		stats:         sp,
		clients:       make(map[*Client]struct{}),
		statsInterval: defaultStatsInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}, nil
}

func (ts *TrackerServer) Registry() *RoomRegistry {
	return ts.registry
}

func (ts *TrackerServer) Orders() *orders.Service {
	return ts.orders
}

// RegisterClient adds a new connection: it joins the global room, and
// admins are auto-joined to the admin room.
func (ts *TrackerServer) RegisterClient(c *Client) {
	ts.clientsLock.Lock()
	ts.clients[c] = struct{}{}
	ts.clientsLock.Unlock()

	ts.registry.Join(c, GlobalRoom)
	if c.Role().IsAdmin() {
		ts.registry.Join(c, AdminRoom)
	}

	ts.stats.Incr(stats.ActiveConnections)
	ts.log.Printf("registered %s connection %s", c.Role(), c.Id())
}

// DeregisterClient removes a connection and all of its room memberships.
// Safe to call for a client that was never registered.
func (ts *TrackerServer) DeregisterClient(c *Client) {
	ts.clientsLock.Lock()
	_, registered := ts.clients[c]
	delete(ts.clients, c)
	ts.clientsLock.Unlock()

	ts.registry.OnDisconnect(c)

	if registered {
		ts.stats.Decr(stats.ActiveConnections)
		ts.log.Printf("deregistered connection %s", c.Id())
	}
}

// OrderCreated publishes an order-created event. Called by the API layer
// after the persistence write is acknowledged.
func (ts *TrackerServer) OrderCreated(order types.Order) {
	ts.stats.Incr(stats.OrdersCreated)
	ts.broadcaster.Publish(OrderCreated{Order: order})
}

func (ts *TrackerServer) OrderUpdated(order types.Order) {
	ts.stats.Incr(stats.OrdersUpdated)
	ts.broadcaster.Publish(OrderUpdated{Order: order})
}

func (ts *TrackerServer) OrderStatusChanged(order types.Order, oldStatus types.OrderStatus) {
	ts.stats.Incr(stats.StatusChanges)
	ts.broadcaster.Publish(OrderStatusChanged{Order: order, OldStatus: oldStatus})
}

func (ts *TrackerServer) OrderDeleted(orderId int) {
	ts.stats.Incr(stats.OrdersDeleted)
	ts.broadcaster.Publish(OrderDeleted{OrderId: orderId})
}

// AdminMessage fans an operator notice out to the admin room.
func (ts *TrackerServer) AdminMessage(content string) {
	ts.sendToRoom(AdminRoom, &ServerMessage{
		Event:     EventAdminMessage,
		Success:   true,
		Data:      content,
		Timestamp: Now(),
	})
}

func (ts *TrackerServer) broadcastStatistics() {
	ts.sendToRoom(AdminRoom, &ServerMessage{
		Event:     EventStatisticsUpdate,
		Success:   true,
		Data:      ts.stats.Snapshot(),
		Timestamp: Now(),
	})
}

func (ts *TrackerServer) sendToRoom(room RoomName, msg *ServerMessage) {
	for _, c := range ts.registry.MembersOf(room) {
		if !c.queueMessage(msg) {
			ts.log.Printf("dropped %q for client %s", msg.Event, c.Id())
		}
	}
}

func (ts *TrackerServer) Run() {
	ticker := time.NewTicker(ts.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ts.broadcastStatistics()
		case <-ts.stop:
			close(ts.done)
			return
		}
	}
}

// Shutdown stops the run loop and closes every client connection.
func (ts *TrackerServer) Shutdown(ctx context.Context) error {
	close(ts.stop)

	select {
	case <-ts.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	ts.clientsLock.Lock()
	defer ts.clientsLock.Unlock()
	for c := range ts.clients {
		c.stopClient()
	}

	return nil
}
