package events

import "sync"

// Recorder collects published events for test assertions.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates a recorder and subscribes it to the bus
func NewRecorder(bus *Bus) *Recorder {
	r := &Recorder{}
	bus.Subscribe(r.record)
	return r
}

func (r *Recorder) record(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

// Events returns all recorded events in publication order
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByType returns recorded events of one kind in publication order
func (r *Recorder) ByType(t Type) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Event
	for _, evt := range r.events {
		if evt.Type == t {
			out = append(out, evt)
		}
	}
	return out
}
