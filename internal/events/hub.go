// Package events fans lifecycle transitions out to websocket subscribers.
package events

import (
	"context"
	"net/http"
	"sync"
	"time"

	"parcel-backend/internal/models"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Item is one booking touched by a transition.
type Item struct {
	GrnNo        int64  `json:"grnNo"`
	PickUpBranch string `json:"pickUpBranch"`
	FromCity     string `json:"fromCity"`
}

// Event describes a committed transition.
type Event struct {
	CompanyID  int64                `json:"-"`
	Status     models.BookingStatus `json:"bookingStatus"`
	StatusName string               `json:"status"`
	VoucherNo  int64                `json:"voucherNo,omitempty"`
	By         string               `json:"by"`
	At         time.Time            `json:"at"`
	Items      []Item               `json:"items"`
}

// NewEvent builds an event from the bookings a transition touched.
func NewEvent(companyID int64, t models.Transition, bookings []*models.Booking) Event {
	evt := Event{
		CompanyID:  companyID,
		Status:     t.To,
		StatusName: t.To.String(),
		VoucherNo:  t.VoucherNo,
		By:         t.By,
		At:         t.At,
		Items:      make([]Item, 0, len(bookings)),
	}
	for _, b := range bookings {
		evt.Items = append(evt.Items, Item{GrnNo: b.GrnNo, PickUpBranch: b.PickUpBranch, FromCity: b.FromCity})
	}
	return evt
}

// forScope keeps only the items the subscriber may see. ok is false when
// nothing is left.
func (e Event) forScope(s models.Scope) (Event, bool) {
	if e.CompanyID != s.CompanyID {
		return Event{}, false
	}
	out := e
	out.Items = nil
	for _, it := range e.Items {
		if s.PickUpBranch != "" && it.PickUpBranch != s.PickUpBranch {
			continue
		}
		if s.FromCity != "" && it.FromCity != s.FromCity {
			continue
		}
		out.Items = append(out.Items, it)
	}
	return out, len(out.Items) > 0
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Hub struct {
	clients    map[*websocket.Conn]models.Scope
	clientsMux sync.Mutex
	broadcast  chan Event
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]models.Scope),
		broadcast: make(chan Event, 256),
	}
}

// Publish queues an event without blocking the caller. Events are dropped
// when the queue is full.
func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	select {
	case h.broadcast <- evt:
	default:
		log.Printf("[Events] Broadcast queue full, dropping %s event", evt.StatusName)
	}
}

// Run delivers queued events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case evt := <-h.broadcast:
			h.deliver(evt)
		}
	}
}

func (h *Hub) deliver(evt Event) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for conn, scope := range h.clients {
		scoped, ok := evt.forScope(scope)
		if !ok {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(scoped); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) closeAll() {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	return len(h.clients)
}

// Serve upgrades the request and keeps the subscriber registered until it
// disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, scope models.Scope) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Events] WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.clientsMux.Lock()
	h.clients[conn] = scope
	h.clientsMux.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.clientsMux.Lock()
			delete(h.clients, conn)
			h.clientsMux.Unlock()
			return
		}
	}
}
