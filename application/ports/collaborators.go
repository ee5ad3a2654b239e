package ports

import (
	"context"
	"time"

	"github.com/Widerk/shapesbonding/domain/core/entities"
	"github.com/Widerk/shapesbonding/domain/events"
)

// Document is one entry of the remote profile collection
type Document struct {
	ID     string
	Record entities.ProfileRecord
}

// Unsubscribe stops a subscription. It is safe to call more than once.
type Unsubscribe func()

// RemoteCollection is the shared store of saved profiles.
// Implementations must deliver the full document set once on subscribe and
// again after every change, at least once. Upsert and Delete are idempotent
// per ID.
type RemoteCollection interface {
	// Subscribe registers callbacks for snapshot pushes and subscription
	// failures. Callbacks may run on any goroutine.
	Subscribe(ctx context.Context, onSnapshot func([]Document), onError func(error)) (Unsubscribe, error)

	// Upsert replaces the whole record stored under id
	Upsert(ctx context.Context, id string, record entities.ProfileRecord) error

	// Delete removes id; a missing id is not an error
	Delete(ctx context.Context, id string) error
}

// IdentityProvider reports who the current user is, if anyone
type IdentityProvider interface {
	// Identity returns the opaque owner token and whether one is established
	Identity() (string, bool)

	// OnChange registers fn to run whenever the identity is established or
	// revoked. The returned func removes the registration.
	OnChange(fn func()) (cancel func())
}

// EventPublisher fans domain events out to other systems
type EventPublisher interface {
	Publish(ctx context.Context, events []events.DomainEvent) error
}

// Clock is the time source for saved profile timestamps
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// MetricsRecorder receives application level measurements
type MetricsRecorder interface {
	RecordCommand(name string, duration time.Duration, err error)
	RecordReconcile(profiles int)
	RecordRemoteFailure(operation string)
}

// NopMetrics discards every measurement
type NopMetrics struct{}

func (NopMetrics) RecordCommand(string, time.Duration, error) {}
func (NopMetrics) RecordReconcile(int)                        {}
func (NopMetrics) RecordRemoteFailure(string)                 {}
