package api

import (
	"net/url"

	"github.com/ruteri/certificate-registry/interfaces"
)

// Route paths shared by the server and the client.
const (
	OwnerPath            = "/api/owner"
	IssuersPath          = "/api/issuers"
	CertificatesPath     = "/api/certificates"
	CertificatesBulkPath = "/api/certificates/bulk"
	EventsPath           = "/api/events"
)

// IssuerPath returns the path of an issuer resource.
func IssuerPath(principal interfaces.Principal) string {
	return IssuersPath + "/" + principal.Hex()
}

// CertificatePath returns the path of a certificate sub-resource such as
// "exists", "hash", "verify" or "document". The id is path-escaped.
func CertificatePath(certificateID, resource string) string {
	return CertificatesPath + "/" + url.PathEscape(certificateID) + "/" + resource
}

// IssueCertificateRequest is the body of POST /api/certificates.
type IssueCertificateRequest struct {
	CertificateID string `json:"certificate_id"`
	Name          string `json:"name"`
	RollNumber    string `json:"roll_number"`
	Marks         uint64 `json:"marks"`
}

// Subject returns the certificate subject of the request.
func (r IssueCertificateRequest) Subject() interfaces.CertificateSubject {
	return interfaces.CertificateSubject{Name: r.Name, RollNumber: r.RollNumber, Marks: r.Marks}
}

// IssueCertificatesBulkRequest is the body of POST /api/certificates/bulk.
// CertificateIDs and Certificates are matched by position.
type IssueCertificatesBulkRequest struct {
	CertificateIDs []string                        `json:"certificate_ids"`
	Certificates   []interfaces.CertificateSubject `json:"certificates"`
}

// IssueResponse reports the certificates committed by an issuance call.
type IssueResponse struct {
	CertificateIDs []string                 `json:"certificate_ids"`
	Fingerprints   []interfaces.ContentHash `json:"fingerprints"`
}

// OwnerResponse is returned by GET /api/owner.
type OwnerResponse struct {
	Owner interfaces.Principal `json:"owner"`
}

// AuthorizationResponse is returned by the issuer endpoints.
type AuthorizationResponse struct {
	Principal  interfaces.Principal `json:"principal"`
	Authorized bool                 `json:"authorized"`
}

// ExistsResponse is returned by GET /api/certificates/{id}/exists.
type ExistsResponse struct {
	CertificateID string `json:"certificate_id"`
	Exists        bool   `json:"exists"`
}

// HashResponse is returned by GET /api/certificates/{id}/hash. Unknown
// certificates have an all-zero fingerprint.
type HashResponse struct {
	CertificateID string                 `json:"certificate_id"`
	Fingerprint   interfaces.ContentHash `json:"fingerprint"`
}

// VerifyResponse is returned by GET /api/certificates/{id}/verify.
type VerifyResponse struct {
	CertificateID string `json:"certificate_id"`
	interfaces.Verification
}

// EventsResponse is returned by GET /api/events.
type EventsResponse struct {
	Events []interfaces.Event `json:"events"`
	// LastSeq is the sequence number to pass as "after" on the next poll.
	LastSeq uint64 `json:"last_seq"`
}

// ErrorResponse is the body of every non-2xx API response. Code is set for
// registry and storage errors, see ErrorCode.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
