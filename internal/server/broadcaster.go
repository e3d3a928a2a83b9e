package server

import (
	"log"

	"github.com/hsagiv/pizza-orders-assignment/internal/stats"
)

const eventQueueSize = 256

// Broadcaster fans a DomainEvent out to the correct rooms with the
// correct message shape per room. Publishing never blocks the caller:
// events are queued on a buffered channel and dispatched by a single
// goroutine, which also guarantees that the two notifications of a
// status change are observed in order. Delivery is best effort; a full
// queue or a slow client loses notifications, never orders.
type Broadcaster struct {
	log      *log.Logger
	registry *RoomRegistry
	stats    stats.StatsProvider
	events   chan DomainEvent
	stop     chan struct{}
	done     chan struct{}
}

func NewBroadcaster(logger *log.Logger, registry *RoomRegistry, sp stats.StatsProvider) *Broadcaster {
	sp.RegisterMetric(stats.BroadcastsSent)
	sp.RegisterMetric(stats.DroppedMessages)

	return &Broadcaster{
		log:      logger,
		registry: registry,
		stats:    sp,
		events:   make(chan DomainEvent, eventQueueSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Publish queues an event for fan-out. If the queue is full the event is
// dropped and logged; the originating API call is never failed.
func (b *Broadcaster) Publish(event DomainEvent) {
	select {
	case b.events <- event:
	default:
		b.log.Printf("event queue full, dropping %T", event)
		b.stats.Incr(stats.DroppedMessages)
	}
}

func (b *Broadcaster) Run() {
	for {
		select {
		case event := <-b.events:
			b.dispatch(event)
		case <-b.stop:
			// drain whatever was queued before shutting down
			for {
				select {
				case event := <-b.events:
					b.dispatch(event)
				default:
					close(b.done)
					return
				}
			}
		}
	}
}

func (b *Broadcaster) Shutdown() {
	close(b.stop)
	<-b.done
}

// dispatch is the fan-out table. The timestamp on every outbound message
// is captured here, at the moment fan-out executes.
func (b *Broadcaster) dispatch(event DomainEvent) {
	switch ev := event.(type) {
	case OrderCreated:
		b.send(GlobalRoom, &ServerMessage{
			Event:     EventOrderCreated,
			Success:   true,
			Data:      ev.Order,
			Timestamp: Now(),
		})
		b.send(StatusRoom(ev.Order.Status), &ServerMessage{
			Event:     EventNewOrder,
			Success:   true,
			Data:      ev.Order,
			Timestamp: Now(),
		})
	case OrderUpdated:
		b.send(GlobalRoom, &ServerMessage{
			Event:     EventOrderUpdated,
			Success:   true,
			Data:      ev.Order,
			Timestamp: Now(),
		})
		b.send(UpdatesRoom, &ServerMessage{
			Event:     EventOrderUpdated,
			Success:   true,
			Data:      ev.Order,
			Timestamp: Now(),
		})
	case OrderStatusChanged:
		b.send(GlobalRoom, &ServerMessage{
			Event:     EventOrderStatusChanged,
			Success:   true,
			Data:      ev.Order,
			OldStatus: string(ev.OldStatus),
			Timestamp: Now(),
		})
		// the "left" notice precedes the "joined" notice so observers
		// counting room occupancy never see a double-count
		b.send(StatusRoom(ev.OldStatus), &ServerMessage{
			Event:     EventOrderLeftStatus,
			Success:   true,
			Data:      ev.Order,
			OldStatus: string(ev.OldStatus),
			Timestamp: Now(),
		})
		b.send(StatusRoom(ev.Order.Status), &ServerMessage{
			Event:     EventOrderJoinedStatus,
			Success:   true,
			Data:      ev.Order,
			Timestamp: Now(),
		})
	case OrderDeleted:
		msg := &ServerMessage{
			Event:     EventOrderDeleted,
			Success:   true,
			Data:      DeletedOrder{Id: ev.OrderId},
			Timestamp: Now(),
		}
		b.send(GlobalRoom, msg)
		b.send(UpdatesRoom, msg)
	default:
		b.log.Printf("unknown domain event %T", event)
	}
}

// send delivers a message to every current member of the room. The
// membership snapshot is taken at the moment of send; a disconnect racing
// a broadcast either sees the message or doesn't.
func (b *Broadcaster) send(room RoomName, msg *ServerMessage) {
	for _, c := range b.registry.MembersOf(room) {
		if !c.queueMessage(msg) {
			b.log.Printf("dropped %q for client %s in room %q", msg.Event, c.Id(), room)
			b.stats.Incr(stats.DroppedMessages)
		}
	}

	b.stats.Incr(stats.BroadcastsSent)
}
