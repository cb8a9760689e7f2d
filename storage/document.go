package storage

import (
	"encoding/json"
	"fmt"

	"github.com/ruteri/certificate-registry/interfaces"
)

// MarshalDocument renders the archived document of a certificate record.
func MarshalDocument(record interfaces.CertificateRecord) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode certificate document: %w", err)
	}
	return data, nil
}

// UnmarshalDocument parses an archived document and checks that it matches
// the fingerprint it was stored under.
func UnmarshalDocument(fingerprint interfaces.ContentHash, data []byte) (interfaces.CertificateRecord, error) {
	var record interfaces.CertificateRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return interfaces.CertificateRecord{}, fmt.Errorf("failed to decode certificate document: %w", err)
	}

	if computed := interfaces.FingerprintOf(record.Subject()); computed != fingerprint || record.Fingerprint != fingerprint {
		return interfaces.CertificateRecord{}, fmt.Errorf("certificate document does not match fingerprint %s", fingerprint)
	}

	return record, nil
}

func documentName(fingerprint interfaces.ContentHash) string {
	return fmt.Sprintf("%x.json", fingerprint[:])
}
