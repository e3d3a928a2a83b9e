package server

import (
	"sync"

	"github.com/hsagiv/pizza-orders-assignment/internal/types"
)

// RoomName identifies a broadcast group. Room identity is derived
// deterministically from its kind; there is no dynamic room creation.
type RoomName string

const (
	// GlobalRoom receives every order event. All connections are joined
	// to it at registration time.
	GlobalRoom RoomName = "global"
	// UpdatesRoom is the secondary all-subscribers-of-updates audience,
	// joined explicitly via join-updates-room.
	UpdatesRoom RoomName = "order-updates"
	// AdminRoom receives admin messages and statistics. Only connections
	// classified as admin are joined, at registration time.
	AdminRoom RoomName = "admin"
)

// StatusRoom returns the room for clients interested in orders currently
// in the given status.
func StatusRoom(status types.OrderStatus) RoomName {
	return RoomName("status:" + string(status))
}

// RoomRegistry maintains the mapping between rooms and their member
// connections. Membership is symmetric: a client is in a room's member
// set exactly when the room is in the client's room set. The registry is
// the only shared mutable state in the fan-out path, so every mutation
// and read holds the lock.
type RoomRegistry struct {
	mu      sync.RWMutex
	rooms   map[RoomName]map[*Client]struct{}
	clients map[*Client]map[RoomName]struct{}
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:   make(map[RoomName]map[*Client]struct{}),
		clients: make(map[*Client]map[RoomName]struct{}),
	}
}

// Join adds the client to the room. Joining a room the client is already
// a member of is a no-op.
func (r *RoomRegistry) Join(c *Client, room RoomName) {
	if c == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[room] == nil {
		r.rooms[room] = make(map[*Client]struct{})
	}
	r.rooms[room][c] = struct{}{}

	if r.clients[c] == nil {
		r.clients[c] = make(map[RoomName]struct{})
	}
	r.clients[c][room] = struct{}{}
}

// Leave removes the client from the room. Leaving a room the client is
// not a member of is a no-op.
func (r *RoomRegistry) Leave(c *Client, room RoomName) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(c, room)
}

func (r *RoomRegistry) removeLocked(c *Client, room RoomName) {
	if members, ok := r.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}

	if memberships, ok := r.clients[c]; ok {
		delete(memberships, room)
		if len(memberships) == 0 {
			delete(r.clients, c)
		}
	}
}

// OnDisconnect removes the client from every room it belongs to. It is
// safe to call for a client that was never registered.
func (r *RoomRegistry) OnDisconnect(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.clients[c] {
		r.removeLocked(c, room)
	}
	delete(r.clients, c)
}

// MembersOf returns a snapshot of the room's membership. Unknown rooms
// yield an empty slice.
func (r *RoomRegistry) MembersOf(room RoomName) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*Client, 0, len(r.rooms[room]))
	for c := range r.rooms[room] {
		members = append(members, c)
	}

	return members
}

// RoomsOf returns the rooms the client currently belongs to.
func (r *RoomRegistry) RoomsOf(c *Client) []RoomName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]RoomName, 0, len(r.clients[c]))
	for room := range r.clients[c] {
		rooms = append(rooms, room)
	}

	return rooms
}
