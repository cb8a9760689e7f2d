// Package common holds process-wide helpers shared by the binaries: logger
// construction and build metadata.
package common

var (
	// PackageName is used as the metrics namespace and default log service tag.
	PackageName = "certificate-registry"

	// Version is set at build time via -ldflags "-X .../common.Version=...".
	Version = "dev"
)
