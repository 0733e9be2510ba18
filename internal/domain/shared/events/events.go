package events

import "time"

// DomainEvent is a fact produced by an aggregate that the outbox relays downstream.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// Recorder buffers events until the application layer drains them into the outbox.
type Recorder struct {
	pending []DomainEvent
}

func (r *Recorder) Record(event DomainEvent) {
	if event == nil {
		return
	}
	r.pending = append(r.pending, event)
}

// PullEvents returns buffered events and resets the buffer.
func (r *Recorder) PullEvents() []DomainEvent {
	out := r.pending
	r.pending = nil
	return out
}

// PendingEvents returns a copy of the buffered events without draining them.
func (r *Recorder) PendingEvents() []DomainEvent {
	out := make([]DomainEvent, len(r.pending))
	copy(out, r.pending)
	return out
}
