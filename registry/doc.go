// Package registry implements the certificate registry state machine: an
// owner-administered set of authorized issuers, uniquely identified
// certificate records, and side-effect-free verification reads.
//
// The package implements the interfaces.CertificateRegistry and
// interfaces.EventSource interfaces with an in-memory store. Each Registry
// value is an isolated instance; there is no package-level state.
//
// # Access Control
//
// The principal passed to New becomes the owner and is authorized to issue
// certificates. Only the owner can authorize further issuers:
//
//	reg := registry.New(owner)
//	err := reg.AuthorizeIssuer(owner, issuer)
//
// # Issuance
//
// IssueCertificate and IssueCertificatesBulk check, in order, that the
// caller is authorized, that the certificate id was never issued and that
// the content fingerprint was never issued under another id. A bulk call
// first checks that both input slices have the same length, then validates
// every item (including duplicates inside the batch) before writing
// anything, so a rejected batch leaves no trace.
//
// # Notifications
//
// Every committed transition appends to an EventLog: IssuerAuthorized for
// each successful authorization, CertificateIssued for each certificate,
// and after the per-certificate events of a bulk call one
// CertificatesIssuedBulk event covering the whole batch. Consumers poll
// EventsSince or subscribe; slow subscribers lose events rather than block
// the registry.
//
// # Concurrency
//
// Mutating calls are serialized by a single write lock and validated
// against the locked state before any write. Reads take the read lock and
// observe the latest committed state.
package registry
