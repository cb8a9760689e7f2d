package httpserver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/certificate-registry/cryptoutils"
	"github.com/ruteri/certificate-registry/interfaces"
)

type callerKey struct{}

// CallerFrom returns the principal that signed the request, as established
// by the signature middleware.
func CallerFrom(ctx context.Context) (interfaces.Principal, bool) {
	caller, ok := ctx.Value(callerKey{}).(interfaces.Principal)
	return caller, ok
}

// requireSignature authenticates the caller of a state-changing request.
//
// The X-Registry-Signature header must hold a secp256k1 signature over the
// request path followed by the body. The recovered signer becomes the
// calling principal. Whether that principal may perform the operation is
// decided by the registry, not here.
func (h *Handler) requireSignature(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signatureHex := r.Header.Get(cryptoutils.SignatureHeader)
		if signatureHex == "" {
			h.writeError(w, &RequestError{StatusCode: http.StatusUnauthorized, Err: errors.New("missing request signature")})
			return
		}

		signature, err := hexutil.Decode(signatureHex)
		if err != nil {
			h.writeError(w, &RequestError{StatusCode: http.StatusUnauthorized, Err: cryptoutils.ErrInvalidSignature})
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.writeError(w, &RequestError{StatusCode: http.StatusRequestEntityTooLarge, Err: errors.New("request body too large")})
				return
			}
			h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: errors.New("failed to read request body")})
			return
		}

		caller, err := cryptoutils.RecoverRequestSigner(r.URL.Path, body, signature)
		if err != nil {
			h.log.Warn("Authentication failed: invalid signature",
				slog.String("path", r.URL.Path),
				"err", err)
			h.writeError(w, &RequestError{StatusCode: http.StatusUnauthorized, Err: err})
			return
		}

		h.log.Debug("Request signature verified",
			slog.String("path", r.URL.Path),
			slog.String("caller", caller.Hex()))

		// Restore the body for the handler.
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}
