package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/certificate-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner        = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	issuer       = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	unauthorized = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

func subject(name string) interfaces.CertificateSubject {
	return interfaces.CertificateSubject{Name: name, RollNumber: "R-" + name, Marks: 87}
}

func newTestRegistry(t *testing.T) (*Registry, *clock.Mock) {
	t.Helper()
	mockClock := clock.NewMock()
	mockClock.Set(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	return New(owner, WithClock(mockClock)), mockClock
}

func TestNew_OwnerIsAuthorized(t *testing.T) {
	reg, _ := newTestRegistry(t)

	assert.Equal(t, owner, reg.Owner())
	assert.True(t, reg.IsAuthorized(owner))
	assert.False(t, reg.IsAuthorized(issuer))
	assert.False(t, reg.IsAuthorized(unauthorized))
	assert.Empty(t, reg.EventsSince(0, 0), "creation emits no events")
}

func TestAuthorizeIssuer(t *testing.T) {
	reg, _ := newTestRegistry(t)

	require.NoError(t, reg.AuthorizeIssuer(owner, issuer))
	assert.True(t, reg.IsAuthorized(issuer))

	events := reg.EventsSince(0, 0)
	require.Len(t, events, 1)
	assert.Equal(t, interfaces.IssuerAuthorized, events[0].Kind)
	assert.Equal(t, issuer, events[0].Principal)
	assert.Equal(t, uint64(1), events[0].Seq)
}

func TestAuthorizeIssuer_Idempotent(t *testing.T) {
	reg, _ := newTestRegistry(t)

	require.NoError(t, reg.AuthorizeIssuer(owner, issuer))
	require.NoError(t, reg.AuthorizeIssuer(owner, issuer))

	assert.True(t, reg.IsAuthorized(issuer))
	// One notification per successful call.
	events := reg.EventsSince(0, 0)
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, interfaces.IssuerAuthorized, ev.Kind)
		assert.Equal(t, issuer, ev.Principal)
	}
}

func TestAuthorizeIssuer_OnlyOwner(t *testing.T) {
	reg, _ := newTestRegistry(t)
	require.NoError(t, reg.AuthorizeIssuer(owner, issuer))

	// Authorized issuers are not admins.
	err := reg.AuthorizeIssuer(issuer, unauthorized)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	err = reg.AuthorizeIssuer(unauthorized, unauthorized)
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	assert.False(t, reg.IsAuthorized(unauthorized))
	assert.Len(t, reg.EventsSince(0, 0), 1)
}

func TestIssueCertificate_ByOwner(t *testing.T) {
	reg, mockClock := newTestRegistry(t)
	s := subject("TestCertificateData")

	require.NoError(t, reg.IssueCertificate(owner, "CERT001", s))

	assert.True(t, reg.CertificateExists("CERT001"))
	assert.Equal(t, interfaces.FingerprintOf(s), reg.GetCertificateHash("CERT001"))

	v := reg.VerifyCertificate("CERT001")
	assert.Equal(t, interfaces.Verification{
		Name:       s.Name,
		RollNumber: s.RollNumber,
		Marks:      s.Marks,
		IssueDate:  mockClock.Now().UTC(),
		Issuer:     owner,
		IsValid:    true,
	}, v)

	record, ok := reg.GetCertificate("CERT001")
	require.True(t, ok)
	assert.Equal(t, "CERT001", record.CertificateID)
	assert.Equal(t, s, record.Subject())
	assert.Equal(t, 1, reg.CertificateCount())
}

func TestIssueCertificate_ByAuthorizedIssuer(t *testing.T) {
	reg, _ := newTestRegistry(t)
	require.NoError(t, reg.AuthorizeIssuer(owner, issuer))

	s := subject("Alice")
	require.NoError(t, reg.IssueCertificate(issuer, "CERT001", s))

	events := reg.EventsSince(1, 0)
	require.Len(t, events, 1)
	assert.Equal(t, interfaces.CertificateIssued, events[0].Kind)
	assert.Equal(t, "CERT001", events[0].CertificateID)
	assert.Equal(t, interfaces.FingerprintOf(s), events[0].Fingerprint)
	assert.Equal(t, issuer, events[0].Issuer)

	assert.Equal(t, issuer, reg.VerifyCertificate("CERT001").Issuer)
}

func TestIssueCertificate_NotAuthorized(t *testing.T) {
	reg, _ := newTestRegistry(t)

	err := reg.IssueCertificate(unauthorized, "CERT002", subject("AnotherCertificate"))
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)

	assert.False(t, reg.CertificateExists("CERT002"))
	assert.True(t, reg.GetCertificateHash("CERT002").IsZero())
	assert.Empty(t, reg.EventsSince(0, 0))
}

func TestIssueCertificate_DuplicateID(t *testing.T) {
	reg, _ := newTestRegistry(t)
	first := subject("FirstData")

	require.NoError(t, reg.IssueCertificate(owner, "CERT001", first))

	err := reg.IssueCertificate(owner, "CERT001", subject("SecondData"))
	assert.ErrorIs(t, err, interfaces.ErrDuplicateID)

	assert.Equal(t, interfaces.FingerprintOf(first), reg.GetCertificateHash("CERT001"))
	assert.Len(t, reg.EventsSince(0, 0), 1)
}

func TestIssueCertificate_DuplicateContent(t *testing.T) {
	reg, _ := newTestRegistry(t)
	s := subject("UniqueData")

	require.NoError(t, reg.IssueCertificate(owner, "CERT001", s))

	err := reg.IssueCertificate(owner, "CERT002", s)
	assert.ErrorIs(t, err, interfaces.ErrDuplicateContent)
	assert.False(t, reg.CertificateExists("CERT002"))
	assert.Equal(t, 1, reg.CertificateCount())
}

func TestIssueCertificate_CheckOrder(t *testing.T) {
	reg, _ := newTestRegistry(t)
	s := subject("Data")
	require.NoError(t, reg.IssueCertificate(owner, "CERT001", s))

	// Authorization is checked before uniqueness.
	err := reg.IssueCertificate(unauthorized, "CERT001", s)
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)

	// Id uniqueness is checked before content uniqueness.
	err = reg.IssueCertificate(owner, "CERT001", s)
	assert.ErrorIs(t, err, interfaces.ErrDuplicateID)
	assert.NotErrorIs(t, err, interfaces.ErrDuplicateContent)
}

func TestReads_MissingCertificate(t *testing.T) {
	reg, _ := newTestRegistry(t)

	assert.False(t, reg.CertificateExists("NON_EXISTENT_CERT"))
	assert.Equal(t, interfaces.ContentHash{}, reg.GetCertificateHash("NON_EXISTENT_CERT"))
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000000",
		reg.GetCertificateHash("NON_EXISTENT_CERT").String())
	assert.Equal(t, interfaces.Verification{}, reg.VerifyCertificate("NON_EXISTENT_CERT"))

	_, ok := reg.GetCertificate("NON_EXISTENT_CERT")
	assert.False(t, ok)
}

func TestIssueCertificatesBulk_Success(t *testing.T) {
	reg, mockClock := newTestRegistry(t)
	require.NoError(t, reg.AuthorizeIssuer(owner, issuer))

	ids := []string{"BULK001", "BULK002"}
	subjects := []interfaces.CertificateSubject{subject("BulkData1"), subject("BulkData2")}

	require.NoError(t, reg.IssueCertificatesBulk(issuer, ids, subjects))

	for i, id := range ids {
		assert.True(t, reg.CertificateExists(id))
		assert.Equal(t, interfaces.FingerprintOf(subjects[i]), reg.GetCertificateHash(id))
		assert.Equal(t, mockClock.Now().UTC(), reg.VerifyCertificate(id).IssueDate)
	}

	// Per-item events in input order, then the aggregate event.
	events := reg.EventsSince(1, 0)
	require.Len(t, events, 3)
	for i := range ids {
		assert.Equal(t, interfaces.CertificateIssued, events[i].Kind)
		assert.Equal(t, ids[i], events[i].CertificateID)
		assert.Equal(t, interfaces.FingerprintOf(subjects[i]), events[i].Fingerprint)
		assert.Equal(t, issuer, events[i].Issuer)
	}
	aggregate := events[2]
	assert.Equal(t, interfaces.CertificatesIssuedBulk, aggregate.Kind)
	assert.Equal(t, ids, aggregate.CertificateIDs)
	assert.Equal(t, []interfaces.ContentHash{
		interfaces.FingerprintOf(subjects[0]),
		interfaces.FingerprintOf(subjects[1]),
	}, aggregate.Fingerprints)
	assert.Equal(t, issuer, aggregate.Issuer)
	assert.Equal(t, uint64(4), aggregate.Seq)
}

func TestIssueCertificatesBulk_LengthMismatch(t *testing.T) {
	reg, _ := newTestRegistry(t)

	err := reg.IssueCertificatesBulk(owner, []string{"BULK001"},
		[]interfaces.CertificateSubject{subject("BulkData1"), subject("BulkData2")})
	assert.ErrorIs(t, err, interfaces.ErrLengthMismatch)

	// The length check runs before the authorization check.
	err = reg.IssueCertificatesBulk(unauthorized, []string{"BULK001", "BULK002"},
		[]interfaces.CertificateSubject{subject("BulkData1")})
	assert.ErrorIs(t, err, interfaces.ErrLengthMismatch)

	assert.False(t, reg.CertificateExists("BULK001"))
	assert.Empty(t, reg.EventsSince(0, 0))
}

func TestIssueCertificatesBulk_NotAuthorized(t *testing.T) {
	reg, _ := newTestRegistry(t)

	err := reg.IssueCertificatesBulk(unauthorized, []string{"BULK001", "BULK002"},
		[]interfaces.CertificateSubject{subject("BulkData1"), subject("BulkData2")})
	assert.ErrorIs(t, err, interfaces.ErrNotAuthorized)
	assert.False(t, reg.CertificateExists("BULK001"))
	assert.False(t, reg.CertificateExists("BULK002"))
}

func TestIssueCertificatesBulk_Atomicity(t *testing.T) {
	existing := subject("InitialData")

	tests := []struct {
		name     string
		ids      []string
		subjects []interfaces.CertificateSubject
		wantErr  error
	}{
		{
			name:     "existing id",
			ids:      []string{"BULK001", "CERT001"},
			subjects: []interfaces.CertificateSubject{subject("BulkData1"), subject("BulkData2")},
			wantErr:  interfaces.ErrDuplicateID,
		},
		{
			name:     "existing id first",
			ids:      []string{"CERT001", "BULK002"},
			subjects: []interfaces.CertificateSubject{subject("BulkData1"), subject("BulkData2")},
			wantErr:  interfaces.ErrDuplicateID,
		},
		{
			name:     "existing content",
			ids:      []string{"BULK001", "BULK002"},
			subjects: []interfaces.CertificateSubject{subject("BulkData1"), existing},
			wantErr:  interfaces.ErrDuplicateContent,
		},
		{
			name:     "id repeated inside batch",
			ids:      []string{"BULK001", "BULK001"},
			subjects: []interfaces.CertificateSubject{subject("BulkData1"), subject("BulkData2")},
			wantErr:  interfaces.ErrDuplicateID,
		},
		{
			name:     "content repeated inside batch",
			ids:      []string{"BULK001", "BULK002"},
			subjects: []interfaces.CertificateSubject{subject("BulkData1"), subject("BulkData1")},
			wantErr:  interfaces.ErrDuplicateContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, _ := newTestRegistry(t)
			require.NoError(t, reg.IssueCertificate(owner, "CERT001", existing))
			eventsBefore := reg.Events().Len()

			err := reg.IssueCertificatesBulk(owner, tt.ids, tt.subjects)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			for _, id := range tt.ids {
				if id == "CERT001" {
					continue
				}
				assert.False(t, reg.CertificateExists(id), "no item of a rejected batch may be committed")
			}
			assert.Equal(t, 1, reg.CertificateCount())
			assert.Equal(t, eventsBefore, reg.Events().Len())
			assert.Equal(t, interfaces.FingerprintOf(existing), reg.GetCertificateHash("CERT001"))
		})
	}
}

func TestIssueCertificatesBulk_ErrorNamesIndex(t *testing.T) {
	reg, _ := newTestRegistry(t)
	require.NoError(t, reg.IssueCertificate(owner, "B1", subject("x")))

	err := reg.IssueCertificatesBulk(owner, []string{"B0", "B1", "B2"},
		[]interfaces.CertificateSubject{subject("a"), subject("b"), subject("c")})
	require.ErrorIs(t, err, interfaces.ErrDuplicateID)
	assert.Contains(t, err.Error(), "certificate 1")
	assert.False(t, reg.CertificateExists("B0"))
	assert.False(t, reg.CertificateExists("B2"))
}

func TestIssueCertificatesBulk_Empty(t *testing.T) {
	reg, _ := newTestRegistry(t)

	require.NoError(t, reg.IssueCertificatesBulk(owner, nil, nil))

	events := reg.EventsSince(0, 0)
	require.Len(t, events, 1)
	assert.Equal(t, interfaces.CertificatesIssuedBulk, events[0].Kind)
	assert.Empty(t, events[0].CertificateIDs)
	assert.Equal(t, 0, reg.CertificateCount())
}

func TestCertificateExists_Permanent(t *testing.T) {
	reg, _ := newTestRegistry(t)
	s := subject("SomeData")

	assert.False(t, reg.CertificateExists("CERT001"))
	require.NoError(t, reg.IssueCertificate(owner, "CERT001", s))
	assert.True(t, reg.CertificateExists("CERT001"))

	// Failed attempts on the same id never change the stored record.
	_ = reg.IssueCertificate(owner, "CERT001", subject("Other"))
	_ = reg.IssueCertificatesBulk(owner, []string{"CERT001"}, []interfaces.CertificateSubject{subject("Other2")})
	_ = reg.IssueCertificate(unauthorized, "CERT001", subject("Other3"))

	assert.True(t, reg.CertificateExists("CERT001"))
	assert.Equal(t, interfaces.FingerprintOf(s), reg.GetCertificateHash("CERT001"))
}

func TestIssueCertificate_ConcurrentSameContent(t *testing.T) {
	reg, _ := newTestRegistry(t)
	s := subject("Contended")

	const workers = 32
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- reg.IssueCertificate(owner, fmt.Sprintf("CERT%03d", i), s)
		}(i)
	}
	wg.Wait()
	close(errs)

	var succeeded, duplicates int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, interfaces.ErrDuplicateContent):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, duplicates)
	assert.Equal(t, 1, reg.CertificateCount())
	assert.Equal(t, 1, reg.Events().Len())
}

func TestIssueDate_SurvivesJSON(t *testing.T) {
	mockClock := clock.NewMock()
	mockClock.Set(time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.FixedZone("CET", 3600)))
	reg := New(owner, WithClock(mockClock))
	require.NoError(t, reg.IssueCertificate(owner, "CERT001", subject("Data")))

	record, ok := reg.GetCertificate("CERT001")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC), record.IssueDate)

	data, err := json.Marshal(record)
	require.NoError(t, err)
	var decoded interfaces.CertificateRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, record, decoded)

	events := reg.EventsSince(0, 0)
	require.NotEmpty(t, events)
	assert.Equal(t, record.IssueDate, events[len(events)-1].Timestamp)
}
