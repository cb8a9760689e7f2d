// Package main (cmd/registry_client) is a command-line client for the
// certificate registry server.
//
// Read commands need only the server address:
//
//	registry-client --server-addr http://127.0.0.1:8080 verify 2025/CS/001
//	registry-client --server-srv _registry._tcp.example.com hash 2025/CS/001
//	registry-client events --after 42
//
// Commands that change registry state sign their request with the key given
// by --key, REGISTRY_KEY or --key-file:
//
//	registry-client --key-file owner.key authorize 0x70997970C51812dc3A010C7d01b50e0d17dc79C8
//	registry-client --key-file issuer.key issue --name Alice --roll-number R1 --marks 95 2025/CS/001
//	registry-client --key-file issuer.key issue-bulk batch.json
//
// All results are printed to standard output as JSON.
package main
