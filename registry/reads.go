package registry

import (
	"github.com/ruteri/certificate-registry/interfaces"
)

// CertificateExists reports whether certificateID has been issued.
func (r *Registry) CertificateExists(certificateID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.certificates[certificateID].Exists
}

// GetCertificateHash returns the fingerprint stored for certificateID, or
// the zero hash if it was never issued.
func (r *Registry) GetCertificateHash(certificateID string) interfaces.ContentHash {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.certificates[certificateID].Fingerprint
}

// GetCertificate returns the stored record for certificateID.
func (r *Registry) GetCertificate(certificateID string) (interfaces.CertificateRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.certificates[certificateID]
	return record, ok && record.Exists
}

// VerifyCertificate returns the verification tuple for certificateID.
// Unknown ids yield zero values with IsValid false.
func (r *Registry) VerifyCertificate(certificateID string) interfaces.Verification {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record := r.certificates[certificateID]
	return interfaces.Verification{
		Name:       record.Name,
		RollNumber: record.RollNumber,
		Marks:      record.Marks,
		IssueDate:  record.IssueDate,
		Issuer:     record.Issuer,
		IsValid:    record.Exists,
	}
}

// CertificateCount returns the number of issued certificates.
func (r *Registry) CertificateCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.certificates)
}
