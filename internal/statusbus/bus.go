// Package statusbus fans out document state transitions to dashboard
// subscribers. Publishing is fire-and-forget: a slow or disconnected
// subscriber never blocks a stage transition. Each subscriber owns a
// bounded queue; on overflow the oldest buffered event is replaced by a
// resync marker telling the subscriber to refetch current state.
package statusbus

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conduitworks/conduit/internal/documents"
)

// EventType distinguishes status events from resync markers.
type EventType string

const (
	// EventStatus carries a committed document transition.
	EventStatus EventType = "status"
	// EventResync tells the subscriber its queue overflowed and it must
	// refetch current state as a new baseline.
	EventResync EventType = "resync"
)

// Event is a single status bus message. Resync markers carry only the
// owner and timestamp.
type Event struct {
	Type            EventType          `json:"type"`
	DocumentID      uuid.UUID          `json:"document_id,omitempty"`
	OwnerID         uuid.UUID          `json:"owner_id"`
	Stage           documents.Stage    `json:"stage,omitempty"`
	Status          documents.Status   `json:"status,omitempty"`
	ConfidenceScore *float64           `json:"confidence_score,omitempty"`
	Timestamp       time.Time          `json:"timestamp"`
}

// FromDocument builds a status event from a committed document.
func FromDocument(doc *documents.Document) Event {
	return Event{
		Type:            EventStatus,
		DocumentID:      doc.ID,
		OwnerID:         doc.OwnerID,
		Stage:           doc.Stage,
		Status:          doc.Status,
		ConfidenceScore: doc.ConfidenceScore,
		Timestamp:       doc.UpdatedAt,
	}
}

// Bus is the publish/subscribe fan-out keyed by owner id.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[*Subscription]struct{}
	buffer      int
	logger      *slog.Logger
}

// New creates a Bus whose subscribers buffer up to buffer events.
func New(buffer int, logger *slog.Logger) *Bus {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus{
		subscribers: make(map[uuid.UUID]map[*Subscription]struct{}),
		buffer:      buffer,
		logger:      logger.With("system", "statusbus"),
	}
}

// Subscribe registers for all of an owner's document transitions.
// Transitions committed before subscription are not delivered; the
// subscriber fetches current state separately as its baseline.
func (b *Bus) Subscribe(ownerID uuid.UUID) *Subscription {
	return b.subscribe(ownerID, uuid.Nil)
}

// SubscribeDocument registers for a single document's transitions.
func (b *Bus) SubscribeDocument(ownerID, documentID uuid.UUID) *Subscription {
	return b.subscribe(ownerID, documentID)
}

func (b *Bus) subscribe(ownerID, documentID uuid.UUID) *Subscription {
	sub := &Subscription{
		bus:        b,
		owner:      ownerID,
		documentID: documentID,
		limit:      b.buffer,
		notify:     make(chan struct{}, 1),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.subscribers[ownerID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subscribers[ownerID] = set
	}
	set[sub] = struct{}{}

	return sub
}

// Publish delivers an event to every active subscriber for its owner.
// It never blocks.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers[evt.OwnerID] {
		if sub.documentID != uuid.Nil && sub.documentID != evt.DocumentID {
			continue
		}
		sub.push(evt)
	}
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.subscribers[sub.owner]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subscribers, sub.owner)
	}
}
