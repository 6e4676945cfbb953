// Package notify fans committed domain events out to connected clients.
package notify

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/events"
)

const DefaultBufferSize = 64

// Room groups subscribers that receive the same messages.
type Room string

const (
	RoomQueue     Room = "queue"
	RoomDashboard Room = "dashboard"
)

// OperatorRoom is the private room of one operator.
func OperatorRoom(operatorID string) Room {
	return Room("operator:" + operatorID)
}

// Message is what a subscriber receives.
type Message struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Subscriber is one connected client.
type Subscriber struct {
	id       uint64
	rooms    []Room
	messages chan Message
	dropped  atomic.Int64
}

// Messages is closed when the subscriber is removed or the hub shuts down.
func (s *Subscriber) Messages() <-chan Message {
	return s.messages
}

func (s *Subscriber) Rooms() []Room {
	return s.rooms
}

// Dropped counts messages discarded because the buffer was full.
func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

// Hub owns the process-wide subscriber set. Delivery never blocks: a slow
// subscriber loses messages instead of stalling the publisher.
type Hub struct {
	logger     *slog.Logger
	bufferSize int

	mu       sync.Mutex
	nextID   uint64
	closed   bool
	subs     map[*Subscriber]struct{}
	rooms    map[Room]map[*Subscriber]struct{}
	versions map[string]int64
}

func NewHub(logger *slog.Logger, bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &Hub{
		logger:     logger,
		bufferSize: bufferSize,
		subs:       make(map[*Subscriber]struct{}),
		rooms:      make(map[Room]map[*Subscriber]struct{}),
		versions:   make(map[string]int64),
	}
}

// Subscribe joins the given rooms. On a closed hub the returned subscriber's
// channel is already closed.
func (h *Hub) Subscribe(rooms ...Room) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscriber{
		id:       h.nextID,
		rooms:    dedupe(rooms),
		messages: make(chan Message, h.bufferSize),
	}

	if h.closed {
		close(sub.messages)

		return sub
	}

	h.subs[sub] = struct{}{}

	for _, room := range sub.rooms {
		members, ok := h.rooms[room]
		if !ok {
			members = make(map[*Subscriber]struct{})
			h.rooms[room] = members
		}

		members[sub] = struct{}{}
	}

	h.logger.Debug("subscriber joined", "subscriber_id", sub.id, "rooms", sub.rooms)

	return sub
}

// Unsubscribe removes sub and closes its channel. Calling it twice is a no-op.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	if _, ok := h.subs[sub]; !ok {
		return
	}

	delete(h.subs, sub)

	for _, room := range sub.rooms {
		members := h.rooms[room]
		delete(members, sub)

		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}

	close(sub.messages)
	h.logger.Debug("subscriber left", "subscriber_id", sub.id)
}

// Deliver sends event to every subscriber of its audience rooms, once each.
// Events older than one already delivered for the same submission are dropped.
// It returns the number of subscribers that received the event.
func (h *Hub) Deliver(event events.Event) int {
	header := event.Header()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0
	}

	version := header.Version()
	if last, seen := h.versions[header.SubmissionID]; seen && version < last {
		h.logger.Debug("dropping stale event",
			"event_id", header.ID, "submission_id", header.SubmissionID, "version", version, "delivered_version", last)

		return 0
	}

	h.versions[header.SubmissionID] = version

	msg := Message{ID: header.ID, Type: string(event.GetType()), Data: event}

	return h.send(audienceRooms(header), msg)
}

// Broadcast sends msg to every subscriber of room.
func (h *Hub) Broadcast(room Room, msg Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0
	}

	return h.send([]Room{room}, msg)
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subs)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true

	for sub := range h.subs {
		close(sub.messages)
	}

	h.subs = make(map[*Subscriber]struct{})
	h.rooms = make(map[Room]map[*Subscriber]struct{})
}

func (h *Hub) send(rooms []Room, msg Message) int {
	delivered := 0
	seen := make(map[*Subscriber]struct{})

	for _, room := range rooms {
		for sub := range h.rooms[room] {
			if _, done := seen[sub]; done {
				continue
			}

			seen[sub] = struct{}{}

			select {
			case sub.messages <- msg:
				delivered++
			default:
				sub.dropped.Add(1)
				h.logger.Warn("subscriber buffer full, dropping message",
					"subscriber_id", sub.id, "message_type", msg.Type, "message_id", msg.ID)
			}
		}
	}

	return delivered
}

func audienceRooms(header events.BaseEvent) []Room {
	rooms := make([]Room, 0, len(header.Audiences))

	for _, audience := range header.Audiences {
		switch audience {
		case events.AudienceOwner:
			if operatorID := header.OperatorID(); operatorID != "" {
				rooms = append(rooms, OperatorRoom(operatorID))
			}
		case events.AudienceQueue:
			rooms = append(rooms, RoomQueue)
		case events.AudienceDashboard:
			rooms = append(rooms, RoomDashboard)
		}
	}

	return rooms
}

func dedupe(rooms []Room) []Room {
	seen := make(map[Room]struct{}, len(rooms))
	unique := make([]Room, 0, len(rooms))

	for _, room := range rooms {
		if _, ok := seen[room]; ok || room == "" {
			continue
		}

		seen[room] = struct{}{}
		unique = append(unique, room)
	}

	return unique
}
