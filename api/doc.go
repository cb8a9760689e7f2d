/*
Package api defines the HTTP wire types of the certificate registry.

The server lives in package httpserver, the Go client in api/clients. Both
share the route constants and request/response types declared here so the
JSON contract is defined once.

# Authentication

State-changing requests (issuer authorization and certificate issuance) are
signed by the caller's secp256k1 key. The signature covers the request path
followed by the raw body, hashed as an EIP-191 personal message, and is sent
hex-encoded in the X-Registry-Signature header. The server recovers the
signer address and uses it as the calling principal. Read requests are
unauthenticated.

# Errors

Non-2xx responses carry an ErrorResponse body. Status codes:

  - 400 malformed input or mismatched bulk lengths
  - 401 missing or invalid request signature
  - 403 caller is not the owner or not an authorized issuer
  - 404 archived document not found
  - 409 duplicate certificate id or duplicate certificate content
*/
package api
