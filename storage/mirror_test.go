package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/certificate-registry/interfaces"
	"github.com/ruteri/certificate-registry/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var mirrorOwner = common.HexToAddress("0x00000000000000000000000000000000000000a1")

func runMirror(t *testing.T, m *ArchiveMirror) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestArchiveMirror_ArchivesIssuedCertificates(t *testing.T) {
	reg := registry.New(mirrorOwner)
	backend, err := NewFileBackend(t.TempDir(), discardLogger())
	require.NoError(t, err)

	// Issued before the mirror starts, picked up by the catch-up pass.
	require.NoError(t, reg.IssueCertificate(mirrorOwner, "CERT-1",
		interfaces.CertificateSubject{Name: "Alice", RollNumber: "R-1", Marks: 90}))

	mirror := NewArchiveMirror(reg, reg, backend, discardLogger(), WithResyncInterval(0))
	runMirror(t, mirror)

	require.NoError(t, reg.IssueCertificatesBulk(mirrorOwner,
		[]string{"CERT-2", "CERT-3"},
		[]interfaces.CertificateSubject{
			{Name: "Bob", RollNumber: "R-2", Marks: 75},
			{Name: "Carol", RollNumber: "R-3", Marks: 82},
		}))

	// CertificateIssued x3 plus the bulk aggregate.
	require.Eventually(t, func() bool { return mirror.LastSeq() == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(3), mirror.Archived())
	assert.Equal(t, uint64(0), mirror.Failed())

	for _, id := range []string{"CERT-1", "CERT-2", "CERT-3"} {
		record, found := reg.GetCertificate(id)
		require.True(t, found)

		data, err := backend.Fetch(context.Background(), record.Fingerprint)
		require.NoError(t, err)

		archived, err := UnmarshalDocument(record.Fingerprint, data)
		require.NoError(t, err)
		assert.Equal(t, record, archived)
	}
}

func TestArchiveMirror_StoreFailureDoesNotStopMirror(t *testing.T) {
	reg := registry.New(mirrorOwner)
	backend := &MockStorageBackend{BackendName: "flaky"}
	backend.On("Store", mock.Anything, interfaces.FingerprintOf(interfaces.CertificateSubject{Name: "Alice"}), mock.Anything).
		Return(errors.New("disk full")).Once()
	backend.On("Store", mock.Anything, interfaces.FingerprintOf(interfaces.CertificateSubject{Name: "Bob"}), mock.Anything).
		Return(nil).Once()

	mirror := NewArchiveMirror(reg, reg, backend, discardLogger(), WithResyncInterval(0))
	runMirror(t, mirror)

	require.NoError(t, reg.IssueCertificate(mirrorOwner, "CERT-1", interfaces.CertificateSubject{Name: "Alice"}))
	require.NoError(t, reg.IssueCertificate(mirrorOwner, "CERT-2", interfaces.CertificateSubject{Name: "Bob"}))

	require.Eventually(t, func() bool { return mirror.LastSeq() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(1), mirror.Failed())
	assert.Equal(t, uint64(1), mirror.Archived())
	assert.Equal(t, 1, mirror.Pending())
	assert.True(t, reg.CertificateExists("CERT-1"), "archive failures never affect the registry")
	backend.AssertExpectations(t)
}

func TestArchiveMirror_RetriesFailedStores(t *testing.T) {
	reg := registry.New(mirrorOwner)
	alice := interfaces.CertificateSubject{Name: "Alice"}
	backend := &MockStorageBackend{BackendName: "flaky"}
	backend.On("Store", mock.Anything, interfaces.FingerprintOf(alice), mock.Anything).
		Return(errors.New("connection refused")).Twice()
	backend.On("Store", mock.Anything, interfaces.FingerprintOf(alice), mock.Anything).
		Return(nil).Once()

	mockClock := clock.NewMock()
	mirror := NewArchiveMirror(reg, reg, backend, discardLogger(),
		WithMirrorClock(mockClock), WithResyncInterval(time.Second))
	runMirror(t, mirror)

	require.NoError(t, reg.IssueCertificate(mirrorOwner, "CERT-1", alice))
	require.Eventually(t, func() bool { return mirror.Pending() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(1), mirror.LastSeq(), "the event itself is consumed")

	// The backend stays down for one more tick, then recovers.
	require.Eventually(t, func() bool {
		mockClock.Add(time.Second)
		return mirror.Archived() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, mirror.Pending())
	assert.Equal(t, uint64(2), mirror.Failed())
	backend.AssertExpectations(t)
}

// scriptedSource is an EventSource whose subscription channel is fed by the test.
type scriptedSource struct {
	mu     sync.Mutex
	events []interfaces.Event
	ch     chan interfaces.Event
}

func (s *scriptedSource) add(ev interfaces.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev.Seq = uint64(len(s.events)) + 1
	s.events = append(s.events, ev)
}

func (s *scriptedSource) EventsSince(after uint64, limit int) []interfaces.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if after >= uint64(len(s.events)) {
		return nil
	}
	tail := s.events[after:]
	if limit > 0 && len(tail) > limit {
		tail = tail[:limit]
	}
	return append([]interfaces.Event(nil), tail...)
}

func (s *scriptedSource) SubscribeEvents(int) (<-chan interfaces.Event, func()) {
	return s.ch, func() {}
}

type recordMap struct {
	mu      sync.Mutex
	records map[string]interfaces.CertificateRecord
}

func newRecordMap() *recordMap {
	return &recordMap{records: make(map[string]interfaces.CertificateRecord)}
}

func (m *recordMap) put(r interfaces.CertificateRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.CertificateID] = r
}

func (m *recordMap) GetCertificate(id string) (interfaces.CertificateRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	return r, ok
}

func issuedRecord(id, name string) interfaces.CertificateRecord {
	subject := interfaces.CertificateSubject{Name: name}
	return interfaces.CertificateRecord{
		CertificateID: id,
		Name:          name,
		Fingerprint:   interfaces.FingerprintOf(subject),
		Issuer:        mirrorOwner,
		Exists:        true,
	}
}

func TestArchiveMirror_BackfillsGaps(t *testing.T) {
	records := newRecordMap()
	source := &scriptedSource{ch: make(chan interfaces.Event)}
	for i, name := range []string{"Alice", "Bob", "Carol"} {
		rec := issuedRecord("CERT-"+string(rune('1'+i)), name)
		records.put(rec)
		source.add(interfaces.Event{Kind: interfaces.CertificateIssued, CertificateID: rec.CertificateID, Fingerprint: rec.Fingerprint})
	}

	backend, err := NewFileBackend(t.TempDir(), discardLogger())
	require.NoError(t, err)
	mirror := NewArchiveMirror(source, records, backend, discardLogger(), WithResyncInterval(0))
	runMirror(t, mirror)
	require.Eventually(t, func() bool { return mirror.LastSeq() == 3 }, time.Second, 5*time.Millisecond)

	// Events 4 and 5 never reach the subscription, event 6 reveals the gap.
	for i, name := range []string{"Dave", "Erin", "Frank"} {
		rec := issuedRecord("CERT-"+string(rune('4'+i)), name)
		records.put(rec)
		source.add(interfaces.Event{Kind: interfaces.CertificateIssued, CertificateID: rec.CertificateID, Fingerprint: rec.Fingerprint})
	}
	source.ch <- source.EventsSince(5, 1)[0]

	require.Eventually(t, func() bool { return mirror.LastSeq() == 6 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(6), mirror.Archived())

	// A duplicate delivery of an already processed event is ignored.
	source.ch <- source.EventsSince(3, 1)[0]
	assert.Never(t, func() bool { return mirror.Archived() != 6 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestArchiveMirror_ResyncPicksUpDroppedTail(t *testing.T) {
	records := newRecordMap()
	source := &scriptedSource{ch: make(chan interfaces.Event)}
	backend, err := NewFileBackend(t.TempDir(), discardLogger())
	require.NoError(t, err)

	mockClock := clock.NewMock()
	mirror := NewArchiveMirror(source, records, backend, discardLogger(),
		WithMirrorClock(mockClock), WithResyncInterval(time.Second))
	runMirror(t, mirror)

	rec := issuedRecord("CERT-1", "Alice")
	records.put(rec)
	source.add(interfaces.Event{Kind: interfaces.CertificateIssued, CertificateID: rec.CertificateID, Fingerprint: rec.Fingerprint})

	// The event was never delivered on the channel, only the ticker finds it.
	require.Eventually(t, func() bool {
		mockClock.Add(time.Second)
		return mirror.LastSeq() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(1), mirror.Archived())
}
