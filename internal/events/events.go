// Package events delivers change notifications raised during an import.
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type identifies an event kind
type Type string

const (
	TypeContainersChanged  Type = "stack.containers_changed"       // A stack reference needs re-evaluation
	TypeStackActivated     Type = "stack.activated"                // A machine stack became the active one
	TypeCategoriesExpanded Type = "preferences.categories_changed" // Preference copy requests a UI refresh
)

// Event is one change notification
type Event struct {
	ID          string    // Unique event id
	Type        Type      // Event kind
	StackID     string    // Stack raising the notification
	ContainerID string    // Contained reference involved
	At          time.Time // Emission time
}

// Handler receives published events
type Handler func(Event)

// Bus fans events out to subscribers synchronously in subscription order.
type Bus struct {
	mu       sync.Mutex
	handlers []Handler
	logger   *slog.Logger
}

// NewBus creates an event bus. A nil logger falls back to slog.Default.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers a handler for all subsequent events
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish assigns the event an id and timestamp and delivers it to every
// subscriber before returning.
func (b *Bus) Publish(evt Event) {
	evt.ID = uuid.NewString()
	evt.At = time.Now()

	b.mu.Lock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	b.logger.Debug("event published",
		"type", string(evt.Type),
		"stack", evt.StackID,
		"container", evt.ContainerID)

	for _, h := range handlers {
		h(evt)
	}
}

// PublishContainersChanged raises a containers-changed notification for one
// reference held by a stack
func (b *Bus) PublishContainersChanged(stackID, containerID string) {
	b.Publish(Event{Type: TypeContainersChanged, StackID: stackID, ContainerID: containerID})
}

// PublishStackActivated raises an activation notification for a machine stack
func (b *Bus) PublishStackActivated(stackID string) {
	b.Publish(Event{Type: TypeStackActivated, StackID: stackID})
}

// PublishCategoriesExpanded raises the preference UI refresh notification
func (b *Bus) PublishCategoriesExpanded() {
	b.Publish(Event{Type: TypeCategoriesExpanded})
}
