// Package storage archives certificate documents in pluggable backends.
//
// Every issued certificate has a keccak256 fingerprint. The archive stores a
// JSON document describing the certificate record under that fingerprint, so
// anyone holding a certificate id can look up its fingerprint in the
// registry and fetch the matching document from any backend:
//
//   - File system storage for local development and single-node deployments
//   - S3-compatible object storage
//   - IPFS, through the node's mutable file system (MFS)
//   - HashiCorp Vault KV v2
//
// # Storage URI Format
//
// Storage backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/lib/certificate-registry/
//   - s3://bucket-name/prefix/?region=us-west-2&endpoint=minio.local:9000
//   - ipfs://127.0.0.1:5001/?timeout=30s
//   - vault://vault.example.com:8200/secret/certificates?insecure=true
//
// # Redundancy
//
// StorageBackendFactory.CreateMultiBackend combines several backends into a
// MultiStorageBackend which stores to every available backend and fetches
// from the first one holding the document.
//
// # Mirroring
//
// ArchiveMirror follows the registry notification log and stores the
// document of every newly issued certificate. Archive failures are logged
// and never affect issuance.
package storage
