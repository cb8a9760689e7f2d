package interfaces

import "errors"

// Registry errors. Messages follow the revert reasons of the on-chain contract.
var (
	// ErrUnauthorized is returned when a non-owner calls an owner-only operation.
	ErrUnauthorized = errors.New("only the owner can perform this action")
	// ErrNotAuthorized is returned when the caller is not an authorized issuer.
	ErrNotAuthorized = errors.New("you are not authorized to issue certificates")
	// ErrDuplicateID is returned when the certificate id is already issued.
	ErrDuplicateID = errors.New("certificate with this ID already exists")
	// ErrDuplicateContent is returned when the fingerprint is already issued under another id.
	ErrDuplicateContent = errors.New("this hash is already associated with another certificate")
	// ErrLengthMismatch is returned when bulk input sequences differ in length.
	ErrLengthMismatch = errors.New("input arrays must have the same length")
)

// CertificateRegistry is the registry state machine: access control,
// issuance and verification.
type CertificateRegistry interface {
	// Owner returns the principal that created the registry.
	Owner() Principal

	// AuthorizeIssuer grants issuance rights to principal. Owner only.
	AuthorizeIssuer(caller, principal Principal) error

	// IsAuthorized reports whether principal may issue certificates.
	IsAuthorized(principal Principal) bool

	// IssueCertificate registers a single certificate issued by caller.
	IssueCertificate(caller Principal, certificateID string, subject CertificateSubject) error

	// IssueCertificatesBulk registers a batch atomically: either every
	// certificate is committed or none is.
	IssueCertificatesBulk(caller Principal, certificateIDs []string, subjects []CertificateSubject) error

	// CertificateExists reports whether certificateID has been issued.
	CertificateExists(certificateID string) bool

	// GetCertificateHash returns the fingerprint, or the zero hash if absent.
	GetCertificateHash(certificateID string) ContentHash

	// GetCertificate returns the stored record and whether it exists.
	GetCertificate(certificateID string) (CertificateRecord, bool)

	// VerifyCertificate returns the verification tuple, zeroed if absent.
	VerifyCertificate(certificateID string) Verification
}
