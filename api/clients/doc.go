/*
Package clients provides Go clients for the certificate registry API.

RegistryClient wraps every route of the server. Reads need no key; calls
that change state are signed with the client's secp256k1 key. Rejections
come back as *APIError values that unwrap to the registry's sentinel errors,
so callers can keep using errors.Is:

	_, err := client.IssueCertificate(ctx, "2025/CS/001", subject)
	if errors.Is(err, interfaces.ErrDuplicateID) {
		// already issued
	}

GetDocument fetches the archived JSON document of a certificate and rejects
it unless it matches the fingerprint held by the registry.

SRVResolver locates registry servers through DNS SRV records, ordered by
priority and then weight.
*/
package clients
