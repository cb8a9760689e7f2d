package registry

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ruteri/certificate-registry/interfaces"
)

// Registry is an in-memory implementation of interfaces.CertificateRegistry.
type Registry struct {
	mu                sync.RWMutex
	owner             interfaces.Principal
	authorizedIssuers map[interfaces.Principal]bool
	certificates      map[string]interfaces.CertificateRecord
	usedHashes        map[interfaces.ContentHash]string // fingerprint -> certificate id

	events *EventLog
	clock  clock.Clock
	log    *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the time source used for issue dates and event timestamps.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) {
		r.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		r.log = log
	}
}

// New creates a registry owned by owner. The owner is an authorized issuer
// from the start.
func New(owner interfaces.Principal, opts ...Option) *Registry {
	r := &Registry{
		owner:             owner,
		authorizedIssuers: map[interfaces.Principal]bool{owner: true},
		certificates:      make(map[string]interfaces.CertificateRecord),
		usedHashes:        make(map[interfaces.ContentHash]string),
		events:            NewEventLog(),
		clock:             clock.New(),
		log:               slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Events returns the notification log of this registry.
func (r *Registry) Events() *EventLog {
	return r.events
}

// now returns the current time in UTC at second precision, the form that
// survives JSON encoding of records and events unchanged.
func (r *Registry) now() time.Time {
	return r.clock.Now().UTC().Truncate(time.Second)
}

// EventsSince implements interfaces.EventSource.
func (r *Registry) EventsSince(after uint64, limit int) []interfaces.Event {
	return r.events.Since(after, limit)
}

// SubscribeEvents implements interfaces.EventSource.
func (r *Registry) SubscribeEvents(buffer int) (<-chan interfaces.Event, func()) {
	sub := r.events.Subscribe(buffer)
	return sub.C, sub.Close
}

var (
	_ interfaces.CertificateRegistry = (*Registry)(nil)
	_ interfaces.EventSource         = (*Registry)(nil)
)
