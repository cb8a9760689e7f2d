package registry

import (
	"fmt"
	"log/slog"

	"github.com/ruteri/certificate-registry/interfaces"
)

// Owner returns the principal that created the registry.
func (r *Registry) Owner() interfaces.Principal {
	return r.owner
}

// AuthorizeIssuer grants issuance rights to principal. Only the owner may
// call it. Authorizing an already authorized principal succeeds and emits
// IssuerAuthorized again.
func (r *Registry) AuthorizeIssuer(caller, principal interfaces.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.owner {
		return fmt.Errorf("%w: caller %s", interfaces.ErrUnauthorized, caller.Hex())
	}

	r.authorizedIssuers[principal] = true
	r.events.append(interfaces.Event{
		Kind:      interfaces.IssuerAuthorized,
		Timestamp: r.now(),
		Principal: principal,
	})

	r.log.Info("Issuer authorized", slog.String("issuer", principal.Hex()))
	return nil
}

// IsAuthorized reports whether principal may issue certificates.
func (r *Registry) IsAuthorized(principal interfaces.Principal) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.authorizedIssuers[principal]
}
