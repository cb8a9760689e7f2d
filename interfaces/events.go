package interfaces

import (
	"fmt"
	"time"
)

// EventKind names a registry notification.
type EventKind int

const (
	// IssuerAuthorized is emitted on every successful AuthorizeIssuer call.
	IssuerAuthorized EventKind = iota + 1
	// CertificateIssued is emitted once per committed certificate.
	CertificateIssued
	// CertificatesIssuedBulk is emitted once per bulk call, after the
	// per-certificate events of that call.
	CertificatesIssuedBulk
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case IssuerAuthorized:
		return "IssuerAuthorized"
	case CertificateIssued:
		return "CertificateIssued"
	case CertificatesIssuedBulk:
		return "CertificatesIssuedBulk"
	default:
		return "Unknown"
	}
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "IssuerAuthorized":
		*k = IssuerAuthorized
	case "CertificateIssued":
		*k = CertificateIssued
	case "CertificatesIssuedBulk":
		*k = CertificatesIssuedBulk
	default:
		return fmt.Errorf("unknown event kind %q", text)
	}
	return nil
}

// Event is a single entry of the registry notification log.
// Only the fields relevant to Kind are set.
type Event struct {
	Seq       uint64    `json:"seq"`
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	// IssuerAuthorized
	Principal Principal `json:"principal"`

	// CertificateIssued
	CertificateID string      `json:"certificate_id,omitempty"`
	Fingerprint   ContentHash `json:"fingerprint"`

	// CertificatesIssuedBulk
	CertificateIDs []string      `json:"certificate_ids,omitempty"`
	Fingerprints   []ContentHash `json:"fingerprints,omitempty"`

	// CertificateIssued, CertificatesIssuedBulk
	Issuer Principal `json:"issuer"`
}

// EventSource exposes the registry notification log to consumers.
// Consumers poll or subscribe; they never block the registry.
type EventSource interface {
	// EventsSince returns events with a sequence number greater than after,
	// at most limit of them. A limit of zero or less returns all of them.
	EventsSince(after uint64, limit int) []Event

	// SubscribeEvents returns a channel receiving newly appended events and
	// a function that cancels the subscription. Events that do not fit into
	// the channel buffer are dropped; consumers detect gaps by sequence
	// number and backfill with EventsSince.
	SubscribeEvents(buffer int) (<-chan Event, func())
}
