package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// Storage errors.
var (
	// ErrContentNotFound is returned when a document is not present in a backend.
	ErrContentNotFound = errors.New("content not found")
	// ErrBackendUnavailable is returned when a backend cannot be reached.
	ErrBackendUnavailable = errors.New("storage backend unavailable")
	// ErrInvalidLocationURI is returned for malformed backend URIs.
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// StorageBackend archives certificate documents addressed by their
// certificate fingerprint.
type StorageBackend interface {
	// Fetch retrieves the document stored for fingerprint.
	// Returns ErrContentNotFound if there is none.
	Fetch(ctx context.Context, fingerprint ContentHash) ([]byte, error)

	// Store saves a document under fingerprint. Storing the same document
	// twice is not an error.
	Store(ctx context.Context, fingerprint ContentHash, data []byte) error

	// Available reports whether the backend is reachable.
	Available(ctx context.Context) bool

	// Name returns a unique identifier for logging.
	Name() string

	// LocationURI returns the URI this backend was created from.
	LocationURI() string
}

// StorageBackendLocation is a backend URI such as file:///var/lib/certs or
// s3://bucket/prefix?region=eu-west-1.
type StorageBackendLocation string

// Validate checks that the location parses and uses a supported scheme.
func (loc StorageBackendLocation) Validate() error {
	parsed, err := url.Parse(string(loc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch parsed.Scheme {
	case "file", "s3", "ipfs", "vault":
		return nil
	default:
		return fmt.Errorf("%w: unsupported storage scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}
}

// StorageBackendFactory creates storage backends from location URIs.
type StorageBackendFactory interface {
	// StorageBackendFor creates a single backend.
	StorageBackendFor(location StorageBackendLocation) (StorageBackend, error)

	// CreateMultiBackend aggregates every backend that could be created.
	CreateMultiBackend(locations []StorageBackendLocation) (StorageBackend, error)
}
