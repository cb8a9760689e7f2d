package storage

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/certificate-registry/interfaces"
	"github.com/ruteri/certificate-registry/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() interfaces.CertificateRecord {
	subject := interfaces.CertificateSubject{Name: "Alice", RollNumber: "R-17", Marks: 91}
	return interfaces.CertificateRecord{
		CertificateID: "CERT-1",
		Name:          subject.Name,
		RollNumber:    subject.RollNumber,
		Marks:         subject.Marks,
		Fingerprint:   interfaces.FingerprintOf(subject),
		Issuer:        common.HexToAddress("0x00000000000000000000000000000000000000b2"),
		IssueDate:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Exists:        true,
	}
}

func TestDocument_RoundTrip(t *testing.T) {
	record := testRecord()

	data, err := MarshalDocument(record)
	require.NoError(t, err)

	decoded, err := UnmarshalDocument(record.Fingerprint, data)
	require.NoError(t, err)
	assert.Equal(t, record, decoded)
}

func TestDocument_RoundTripOfIssuedRecord(t *testing.T) {
	// Wall clock, so issue dates carry whatever the runtime clock reports.
	reg := registry.New(common.HexToAddress("0x00000000000000000000000000000000000000a1"))
	owner := reg.Owner()
	subject := interfaces.CertificateSubject{Name: "Alice", RollNumber: "R-17", Marks: 91}
	require.NoError(t, reg.IssueCertificate(owner, "CERT001", subject))

	record, ok := reg.GetCertificate("CERT001")
	require.True(t, ok)

	data, err := MarshalDocument(record)
	require.NoError(t, err)
	archived, err := UnmarshalDocument(record.Fingerprint, data)
	require.NoError(t, err)
	assert.Equal(t, record, archived)
}

func TestDocument_RejectsMismatchedFingerprint(t *testing.T) {
	record := testRecord()
	data, err := MarshalDocument(record)
	require.NoError(t, err)

	_, err = UnmarshalDocument(interfaces.HashOf([]byte("other")), data)
	assert.Error(t, err)

	tampered := record
	tampered.Marks = 100
	data, err = MarshalDocument(tampered)
	require.NoError(t, err)

	_, err = UnmarshalDocument(record.Fingerprint, data)
	assert.Error(t, err, "edited subject no longer matches its fingerprint")
}

func TestDocument_RejectsGarbage(t *testing.T) {
	_, err := UnmarshalDocument(interfaces.ContentHash{}, []byte("not json"))
	assert.Error(t, err)
}
