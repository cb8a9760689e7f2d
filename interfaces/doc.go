// Package interfaces defines the core types, errors and interfaces of the
// certificate registry, separating the contracts between components from
// their implementations.
//
// # Registry Interfaces
//
//   - CertificateRegistry: access control, single and bulk issuance, and
//     the read-side verification operations
//   - EventSource: the append-only notification log produced by the registry
//
// # Storage Interfaces
//
//   - StorageBackend: fingerprint-addressed archive of certificate documents
//   - StorageBackendFactory: creates storage backends from URI strings
//
// # Types
//
//   - Principal: a 20-byte Ethereum-style address identifying a caller or issuer
//   - ContentHash: a 32-byte keccak256 fingerprint of certificate content
//   - CertificateSubject, CertificateRecord, Verification: the data model
//   - Event: IssuerAuthorized, CertificateIssued and CertificatesIssuedBulk
//     notifications
//
// # Error Types
//
// Mutating registry calls fail with ErrUnauthorized, ErrNotAuthorized,
// ErrDuplicateID, ErrDuplicateContent or ErrLengthMismatch. Read calls never
// fail: absence is reported through zero values.
package interfaces
