package api

import (
	"errors"
	"log/slog"
	"time"
)

// Defaults applied by HTTPServerConfig.WithDefaults.
const (
	DefaultMaxBodyBytes     = 1 << 20
	DefaultMaxEventsPerPage = 1000
)

// HTTPServerConfig configures the registry HTTP server.
type HTTPServerConfig struct {
	ListenAddr string
	// MetricsAddr is where /metrics is served. Empty disables the metrics server.
	MetricsAddr string
	EnablePprof bool
	Log         *slog.Logger

	// DrainDuration is how long the server reports not-ready before
	// shutting down, so load balancers stop routing to it.
	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration

	// MaxBodyBytes caps request bodies, bulk issuance included.
	MaxBodyBytes int64
	// MaxEventsPerPage caps the events returned by one GET /api/events.
	MaxEventsPerPage int
	// ArchiveFetchTimeout bounds document lookups in the archive.
	ArchiveFetchTimeout time.Duration
}

// WithDefaults returns a copy with zero limits replaced by defaults.
func (c HTTPServerConfig) WithDefaults() HTTPServerConfig {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.MaxEventsPerPage <= 0 {
		c.MaxEventsPerPage = DefaultMaxEventsPerPage
	}
	if c.ArchiveFetchTimeout <= 0 {
		c.ArchiveFetchTimeout = 10 * time.Second
	}
	if c.Log == nil {
		c.Log = slog.Default()
	}
	return c
}

// Validate reports configuration errors that would prevent the server from starting.
func (c HTTPServerConfig) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen address is required")
	}
	if c.MetricsAddr != "" && c.MetricsAddr == c.ListenAddr {
		return errors.New("metrics address must differ from listen address")
	}
	return nil
}
