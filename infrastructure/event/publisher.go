// Package event provides decision log publishing.
package event

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/agentsim/domain/event"
)

// Publisher publishes events to an event store.
type Publisher struct {
	store     event.Store
	buffer    []event.Event
	bufSize   int
	published int
	mu        sync.Mutex
}

// PublisherOption configures the publisher.
type PublisherOption func(*Publisher)

// WithBufferSize sets the event buffer size.
func WithBufferSize(size int) PublisherOption {
	return func(p *Publisher) {
		p.bufSize = size
	}
}

// NewPublisher creates a new event publisher.
func NewPublisher(store event.Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize > 0 {
		p.buffer = make([]event.Event, 0, p.bufSize)
	}
	return p
}

// Publish sends events to the event store.
func (p *Publisher) Publish(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bufSize == 0 {
		if err := p.store.Append(ctx, events...); err != nil {
			return err
		}
		p.published += len(events)
		return nil
	}

	p.buffer = append(p.buffer, events...)
	if len(p.buffer) >= p.bufSize {
		return p.flush(ctx)
	}
	return nil
}

// Flush writes all buffered events to the store.
func (p *Publisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flush(ctx)
}

// flush writes buffered events to the store (must hold lock).
func (p *Publisher) flush(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}
	if err := p.store.Append(ctx, p.buffer...); err != nil {
		return err
	}
	p.published += len(p.buffer)
	p.buffer = p.buffer[:0]
	return nil
}

// Published returns the number of events written to the store.
func (p *Publisher) Published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published
}

// Pending returns the number of buffered events.
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffer)
}

// Close flushes remaining events.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flush(context.Background())
}

var _ event.Publisher = (*Publisher)(nil)

// Recorder builds typed decision log events for one simulation and
// publishes them.
type Recorder struct {
	publisher    event.Publisher
	simulationID string
	now          func() time.Time
}

// NewRecorder creates a recorder. A nil clock uses time.Now.
func NewRecorder(publisher event.Publisher, simulationID string, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{publisher: publisher, simulationID: simulationID, now: now}
}

// SimulationID returns the simulation the recorder writes for.
func (r *Recorder) SimulationID() string {
	return r.simulationID
}

// Record publishes one event with the given payload.
func (r *Recorder) Record(ctx context.Context, eventType event.Type, payload any) error {
	e, err := event.NewEvent(r.simulationID, eventType, r.now(), payload)
	if err != nil {
		return err
	}
	return r.publisher.Publish(ctx, e)
}

// Flush flushes the underlying publisher.
func (r *Recorder) Flush(ctx context.Context) error {
	return r.publisher.Flush(ctx)
}
