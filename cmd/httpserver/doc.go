// Package main (cmd/httpserver) runs the certificate registry server.
//
// The server keeps the registry in memory, owned by the address given with
// --owner-address or derived from --owner-key. Optionally every issued
// certificate is mirrored as a JSON document to one or more archives given
// with --archive-uri (file, s3, ipfs or vault). The archive is never
// authoritative: the registry fingerprint is checked on every read.
//
// Prometheus metrics are served on --metrics-addr. On SIGINT or SIGTERM the
// server reports not-ready for --drain-seconds and then shuts down.
//
// Example:
//
//	registry-server --listen-addr 0.0.0.0:8080 \
//	    --owner-address 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266 \
//	    --archive-uri file:///var/lib/registry \
//	    --archive-uri s3://certificates/registry?region=us-east-1
package main
