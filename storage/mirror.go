package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ruteri/certificate-registry/interfaces"
	"go.uber.org/atomic"
)

// RecordLookup resolves certificate records for archiving.
type RecordLookup interface {
	GetCertificate(certificateID string) (interfaces.CertificateRecord, bool)
}

// MirrorOption configures an ArchiveMirror.
type MirrorOption func(*ArchiveMirror)

// WithMirrorClock sets the clock driving the resync ticker.
func WithMirrorClock(c clock.Clock) MirrorOption {
	return func(m *ArchiveMirror) { m.clock = c }
}

// WithResyncInterval sets how often the mirror polls for events that were
// dropped from its subscription and retries failed stores. Zero disables
// both.
func WithResyncInterval(d time.Duration) MirrorOption {
	return func(m *ArchiveMirror) { m.resyncInterval = d }
}

// WithSubscriptionBuffer sets the event channel buffer size.
func WithSubscriptionBuffer(n int) MirrorOption {
	return func(m *ArchiveMirror) { m.buffer = n }
}

// ArchiveMirror copies the document of every issued certificate into a
// storage backend. It follows the registry event log and never blocks or
// fails registry operations.
type ArchiveMirror struct {
	source  interfaces.EventSource
	records RecordLookup
	backend interfaces.StorageBackend
	log     *slog.Logger

	clock          clock.Clock
	resyncInterval time.Duration
	buffer         int

	lastSeq  atomic.Uint64
	archived atomic.Uint64
	failed   atomic.Uint64

	pendingMu sync.Mutex
	pending   map[string]struct{} // certificate ids whose store failed
}

// errPermanent marks archive failures a retry cannot fix.
var errPermanent = errors.New("not retryable")

// NewArchiveMirror creates a mirror from source into backend.
func NewArchiveMirror(source interfaces.EventSource, records RecordLookup, backend interfaces.StorageBackend, log *slog.Logger, opts ...MirrorOption) *ArchiveMirror {
	m := &ArchiveMirror{
		source:         source,
		records:        records,
		backend:        backend,
		log:            log,
		clock:          clock.New(),
		resyncInterval: 10 * time.Second,
		buffer:         256,
		pending:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LastSeq returns the sequence number of the last processed event.
func (m *ArchiveMirror) LastSeq() uint64 { return m.lastSeq.Load() }

// Archived returns the number of documents stored successfully.
func (m *ArchiveMirror) Archived() uint64 { return m.archived.Load() }

// Failed returns the number of failed archive attempts, retries included.
func (m *ArchiveMirror) Failed() uint64 { return m.failed.Load() }

// Pending returns the number of documents waiting for a store retry.
func (m *ArchiveMirror) Pending() int {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	return len(m.pending)
}

// Run mirrors events until ctx is cancelled. Events already in the log
// when Run starts are archived first.
func (m *ArchiveMirror) Run(ctx context.Context) error {
	events, cancel := m.source.SubscribeEvents(m.buffer)
	defer cancel()

	// Subscribe before catching up so nothing falls between the two.
	m.catchUp(ctx)

	var resync <-chan time.Time
	if m.resyncInterval > 0 {
		ticker := m.clock.Ticker(m.resyncInterval)
		defer ticker.Stop()
		resync = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch last := m.lastSeq.Load(); {
			case ev.Seq <= last:
				continue
			case ev.Seq > last+1:
				m.log.Debug("Event gap detected, backfilling",
					slog.Uint64("last_seq", last),
					slog.Uint64("seq", ev.Seq))
				m.catchUp(ctx)
			default:
				m.process(ctx, ev)
			}
		case <-resync:
			m.retryPending(ctx)
			m.catchUp(ctx)
		}
	}
}

func (m *ArchiveMirror) catchUp(ctx context.Context) {
	for _, ev := range m.source.EventsSince(m.lastSeq.Load(), 0) {
		if ctx.Err() != nil {
			return
		}
		m.process(ctx, ev)
	}
}

func (m *ArchiveMirror) process(ctx context.Context, ev interfaces.Event) {
	defer m.lastSeq.Store(ev.Seq)

	if ev.Kind != interfaces.CertificateIssued {
		return
	}

	err := m.archive(ctx, ev.CertificateID)
	if err == nil || errors.Is(err, errPermanent) {
		return
	}

	m.pendingMu.Lock()
	m.pending[ev.CertificateID] = struct{}{}
	m.pendingMu.Unlock()
}

// retryPending stores the documents whose earlier store failed.
func (m *ArchiveMirror) retryPending(ctx context.Context) {
	m.pendingMu.Lock()
	ids := make([]string, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	m.pendingMu.Unlock()

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		err := m.archive(ctx, id)
		if err != nil && !errors.Is(err, errPermanent) {
			continue
		}
		m.pendingMu.Lock()
		delete(m.pending, id)
		m.pendingMu.Unlock()
	}
}

// archive stores the document of one certificate. Failures are logged and
// counted; errors wrapping errPermanent are not worth retrying.
func (m *ArchiveMirror) archive(ctx context.Context, certificateID string) error {
	record, found := m.records.GetCertificate(certificateID)
	if !found {
		m.log.Error("Issued certificate missing from registry",
			slog.String("certificate_id", certificateID))
		m.failed.Inc()
		return errPermanent
	}

	data, err := MarshalDocument(record)
	if err != nil {
		m.log.Error("Failed to encode certificate document",
			slog.String("certificate_id", certificateID),
			"err", err)
		m.failed.Inc()
		return errors.Join(errPermanent, err)
	}

	if err := m.backend.Store(ctx, record.Fingerprint, data); err != nil {
		m.log.Error("Failed to archive certificate document",
			slog.String("certificate_id", certificateID),
			slog.String("fingerprint", record.Fingerprint.String()),
			slog.String("backend", m.backend.Name()),
			"err", err)
		m.failed.Inc()
		return err
	}

	m.archived.Inc()
	m.log.Debug("Archived certificate document",
		slog.String("certificate_id", certificateID),
		slog.String("fingerprint", record.Fingerprint.String()))
	return nil
}
