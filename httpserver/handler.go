package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/certificate-registry/api"
	"github.com/ruteri/certificate-registry/interfaces"
	"github.com/ruteri/certificate-registry/metrics"
	"github.com/ruteri/certificate-registry/storage"
)

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Handler serves the certificate registry API.
type Handler struct {
	registry interfaces.CertificateRegistry
	events   interfaces.EventSource
	archive  interfaces.StorageBackend
	metrics  *metrics.Metrics
	log      *slog.Logger

	maxBodyBytes        int64
	maxEventsPerPage    int
	archiveFetchTimeout time.Duration
}

// NewHandler creates a new HTTP request handler with the specified dependencies.
//
// Parameters:
//   - registry: The certificate registry serving all operations
//   - events: Notification log exposed at /api/events
//   - archive: Document archive for /api/certificates/{id}/document, may be nil
//   - m: Metrics recorder
//   - cfg: Server configuration supplying limits and the logger
func NewHandler(registry interfaces.CertificateRegistry, events interfaces.EventSource, archive interfaces.StorageBackend, m *metrics.Metrics, cfg api.HTTPServerConfig) *Handler {
	cfg = cfg.WithDefaults()
	return &Handler{
		registry:            registry,
		events:              events,
		archive:             archive,
		metrics:             m,
		log:                 cfg.Log,
		maxBodyBytes:        cfg.MaxBodyBytes,
		maxEventsPerPage:    cfg.MaxEventsPerPage,
		archiveFetchTimeout: cfg.ArchiveFetchTimeout,
	}
}

// RegisterRoutes mounts the API routes on mux.
func (h *Handler) RegisterRoutes(mux chi.Router) {
	mux.Get(api.OwnerPath, h.HandleOwner)

	mux.Route(api.IssuersPath, func(r chi.Router) {
		r.With(h.requireSignature).Post("/{address}", h.HandleAuthorizeIssuer)
		r.Get("/{address}", h.HandleIsAuthorized)
	})

	mux.Route(api.CertificatesPath, func(r chi.Router) {
		r.With(h.requireSignature).Post("/", h.HandleIssueCertificate)
		r.With(h.requireSignature).Post("/bulk", h.HandleIssueCertificatesBulk)
		r.Get("/{id}/exists", h.HandleCertificateExists)
		r.Get("/{id}/hash", h.HandleCertificateHash)
		r.Get("/{id}/verify", h.HandleVerifyCertificate)
		r.Get("/{id}/document", h.HandleCertificateDocument)
	})

	mux.Get(api.EventsPath, h.HandleEvents)
}

// HandleOwner returns the registry owner.
//
// URL format: GET /api/owner
func (h *Handler) HandleOwner(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, api.OwnerResponse{Owner: h.registry.Owner()})
}

// HandleAuthorizeIssuer grants issuing rights to the principal in the URL.
// Only the owner may call it.
//
// URL format: POST /api/issuers/{address} (signed)
func (h *Handler) HandleAuthorizeIssuer(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		h.writeError(w, &RequestError{StatusCode: http.StatusUnauthorized, Err: errors.New("unauthenticated request")})
		return
	}

	principal, err := interfaces.ParsePrincipal(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: err})
		return
	}

	err = h.registry.AuthorizeIssuer(caller, principal)
	h.metrics.RecordAuthorization(err)
	if err != nil {
		h.log.Warn("Issuer authorization rejected",
			slog.String("caller", caller.Hex()),
			slog.String("principal", principal.Hex()),
			"err", err)
		h.writeError(w, err)
		return
	}

	h.log.Info("Issuer authorized",
		slog.String("caller", caller.Hex()),
		slog.String("principal", principal.Hex()))
	h.writeJSON(w, http.StatusOK, api.AuthorizationResponse{Principal: principal, Authorized: true})
}

// HandleIsAuthorized reports whether the principal in the URL may issue.
//
// URL format: GET /api/issuers/{address}
func (h *Handler) HandleIsAuthorized(w http.ResponseWriter, r *http.Request) {
	principal, err := interfaces.ParsePrincipal(chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: err})
		return
	}

	h.writeJSON(w, http.StatusOK, api.AuthorizationResponse{
		Principal:  principal,
		Authorized: h.registry.IsAuthorized(principal),
	})
}

// HandleIssueCertificate issues a single certificate.
//
// URL format: POST /api/certificates (signed)
// Request body: api.IssueCertificateRequest
func (h *Handler) HandleIssueCertificate(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		h.writeError(w, &RequestError{StatusCode: http.StatusUnauthorized, Err: errors.New("unauthenticated request")})
		return
	}

	var req api.IssueCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("invalid request body: %w", err)})
		return
	}
	if req.CertificateID == "" {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: errors.New("certificate_id is required")})
		return
	}

	subject := req.Subject()
	if err := h.registry.IssueCertificate(caller, req.CertificateID, subject); err != nil {
		h.metrics.RecordIssuanceRejection(err)
		h.log.Warn("Certificate issuance rejected",
			slog.String("caller", caller.Hex()),
			slog.String("certificate_id", req.CertificateID),
			"err", err)
		h.writeError(w, err)
		return
	}
	h.metrics.RecordIssued("single", 1)

	h.log.Info("Certificate issued",
		slog.String("caller", caller.Hex()),
		slog.String("certificate_id", req.CertificateID))
	h.writeJSON(w, http.StatusCreated, api.IssueResponse{
		CertificateIDs: []string{req.CertificateID},
		Fingerprints:   []interfaces.ContentHash{interfaces.FingerprintOf(subject)},
	})
}

// HandleIssueCertificatesBulk issues a batch of certificates atomically.
//
// URL format: POST /api/certificates/bulk (signed)
// Request body: api.IssueCertificatesBulkRequest
func (h *Handler) HandleIssueCertificatesBulk(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		h.writeError(w, &RequestError{StatusCode: http.StatusUnauthorized, Err: errors.New("unauthenticated request")})
		return
	}

	var req api.IssueCertificatesBulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("invalid request body: %w", err)})
		return
	}
	for i, id := range req.CertificateIDs {
		if id == "" {
			h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("certificate %d: certificate_id is required", i)})
			return
		}
	}

	if err := h.registry.IssueCertificatesBulk(caller, req.CertificateIDs, req.Certificates); err != nil {
		h.metrics.RecordIssuanceRejection(err)
		h.log.Warn("Bulk issuance rejected",
			slog.String("caller", caller.Hex()),
			slog.Int("count", len(req.CertificateIDs)),
			"err", err)
		h.writeError(w, err)
		return
	}
	h.metrics.RecordIssued("bulk", len(req.CertificateIDs))

	fingerprints := make([]interfaces.ContentHash, len(req.Certificates))
	for i, subject := range req.Certificates {
		fingerprints[i] = interfaces.FingerprintOf(subject)
	}

	h.log.Info("Certificates issued in bulk",
		slog.String("caller", caller.Hex()),
		slog.Int("count", len(req.CertificateIDs)))
	h.writeJSON(w, http.StatusCreated, api.IssueResponse{
		CertificateIDs: nonNil(req.CertificateIDs),
		Fingerprints:   fingerprints,
	})
}

// HandleCertificateExists reports whether a certificate id is taken.
//
// URL format: GET /api/certificates/{id}/exists
func (h *Handler) HandleCertificateExists(w http.ResponseWriter, r *http.Request) {
	id, ok := h.certificateID(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, api.ExistsResponse{CertificateID: id, Exists: h.registry.CertificateExists(id)})
}

// HandleCertificateHash returns the fingerprint of a certificate, all-zero if unknown.
//
// URL format: GET /api/certificates/{id}/hash
func (h *Handler) HandleCertificateHash(w http.ResponseWriter, r *http.Request) {
	id, ok := h.certificateID(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, api.HashResponse{CertificateID: id, Fingerprint: h.registry.GetCertificateHash(id)})
}

// HandleVerifyCertificate returns the verification view of a certificate.
// Unknown certificates are reported with IsValid false, not as an error.
//
// URL format: GET /api/certificates/{id}/verify
func (h *Handler) HandleVerifyCertificate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.certificateID(w, r)
	if !ok {
		return
	}

	verification := h.registry.VerifyCertificate(id)
	h.metrics.RecordVerification(verification.IsValid)
	h.writeJSON(w, http.StatusOK, api.VerifyResponse{CertificateID: id, Verification: verification})
}

// HandleCertificateDocument returns the archived JSON document of a certificate.
// The document is checked against the fingerprint held by the registry
// before it is served.
//
// URL format: GET /api/certificates/{id}/document
func (h *Handler) HandleCertificateDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := h.certificateID(w, r)
	if !ok {
		return
	}

	if h.archive == nil {
		h.writeError(w, &RequestError{StatusCode: http.StatusNotFound, Err: errors.New("document archive not configured")})
		return
	}

	record, found := h.registry.GetCertificate(id)
	if !found {
		h.writeError(w, &RequestError{StatusCode: http.StatusNotFound, Err: fmt.Errorf("certificate %q not found", id)})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.archiveFetchTimeout)
	defer cancel()

	data, err := h.archive.Fetch(ctx, record.Fingerprint)
	if err != nil {
		h.log.Debug("Archive lookup failed",
			slog.String("certificate_id", id),
			slog.String("fingerprint", record.Fingerprint.String()),
			"err", err)
		h.writeError(w, err)
		return
	}

	if _, err := storage.UnmarshalDocument(record.Fingerprint, data); err != nil {
		h.log.Error("Archived document does not match registry",
			slog.String("certificate_id", id),
			slog.String("backend", h.archive.Name()),
			"err", err)
		h.writeError(w, &RequestError{StatusCode: http.StatusBadGateway, Err: errors.New("archived document is corrupt")})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// HandleEvents returns notifications with a sequence number above "after".
//
// URL format: GET /api/events?after=N
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	var after uint64
	if raw := r.URL.Query().Get("after"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("invalid after parameter %q", raw)})
			return
		}
		after = parsed
	}

	events := h.events.EventsSince(after, h.maxEventsPerPage)

	resp := api.EventsResponse{Events: nonNil(events), LastSeq: after}
	if len(events) > 0 {
		resp.LastSeq = events[len(events)-1].Seq
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) certificateID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	// chi routes on the escaped path whenever the request carried one.
	var err error
	if r.URL.RawPath != "" {
		id, err = url.PathUnescape(id)
	}
	if err != nil || id == "" {
		h.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: errors.New("invalid certificate id")})
		return "", false
	}
	return id, true
}

// statusFor maps registry and storage errors to HTTP status codes.
func statusFor(err error) int {
	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.StatusCode
	case errors.Is(err, interfaces.ErrUnauthorized), errors.Is(err, interfaces.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, interfaces.ErrDuplicateID), errors.Is(err, interfaces.ErrDuplicateContent):
		return http.StatusConflict
	case errors.Is(err, interfaces.ErrLengthMismatch):
		return http.StatusBadRequest
	case errors.Is(err, interfaces.ErrContentNotFound):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := api.ErrorResponse{Error: err.Error(), Code: api.ErrorCode(err)}
	if status == http.StatusInternalServerError {
		h.log.Error("Internal server error", "err", err)
		resp = api.ErrorResponse{Error: "internal server error"}
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
