package clients

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/certificate-registry/api"
	"github.com/ruteri/certificate-registry/cryptoutils"
	"github.com/ruteri/certificate-registry/interfaces"
	"github.com/ruteri/certificate-registry/storage"
)

// ErrNoSigningKey is returned by state-changing calls on a client without a key.
var ErrNoSigningKey = errors.New("client has no signing key")

// APIError is a non-2xx response of the registry server. Registry errors
// are restored from the response code so callers can match them with
// errors.Is.
type APIError struct {
	StatusCode int
	Message    string
	sentinel   error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("registry returned %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.sentinel
}

// RegistryClient talks to a registry server over HTTP. State-changing
// calls are signed with Key, whose address is the calling principal.
type RegistryClient struct {
	// ServerAddr is the base URL of the registry server.
	ServerAddr string
	// Key signs state-changing requests. Read-only clients may leave it nil.
	Key *ecdsa.PrivateKey

	HTTPClient *http.Client
}

// NewRegistryClient creates a client for serverAddr.
func NewRegistryClient(serverAddr string, key *ecdsa.PrivateKey) *RegistryClient {
	return &RegistryClient{
		ServerAddr: strings.TrimSuffix(serverAddr, "/"),
		Key:        key,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Owner returns the registry owner.
func (c *RegistryClient) Owner(ctx context.Context) (interfaces.Principal, error) {
	var resp api.OwnerResponse
	if err := c.get(ctx, api.OwnerPath, &resp); err != nil {
		return interfaces.Principal{}, err
	}
	return resp.Owner, nil
}

// AuthorizeIssuer grants issuing rights to principal. The client key must
// belong to the owner.
func (c *RegistryClient) AuthorizeIssuer(ctx context.Context, principal interfaces.Principal) error {
	var resp api.AuthorizationResponse
	return c.signedPost(ctx, api.IssuerPath(principal), nil, &resp)
}

// IsAuthorized reports whether principal may issue certificates.
func (c *RegistryClient) IsAuthorized(ctx context.Context, principal interfaces.Principal) (bool, error) {
	var resp api.AuthorizationResponse
	if err := c.get(ctx, api.IssuerPath(principal), &resp); err != nil {
		return false, err
	}
	return resp.Authorized, nil
}

// IssueCertificate issues a single certificate and returns its fingerprint.
func (c *RegistryClient) IssueCertificate(ctx context.Context, certificateID string, subject interfaces.CertificateSubject) (interfaces.ContentHash, error) {
	body, err := json.Marshal(api.IssueCertificateRequest{
		CertificateID: certificateID,
		Name:          subject.Name,
		RollNumber:    subject.RollNumber,
		Marks:         subject.Marks,
	})
	if err != nil {
		return interfaces.ContentHash{}, err
	}

	var resp api.IssueResponse
	if err := c.signedPost(ctx, api.CertificatesPath, body, &resp); err != nil {
		return interfaces.ContentHash{}, err
	}
	if len(resp.Fingerprints) != 1 {
		return interfaces.ContentHash{}, fmt.Errorf("unexpected issuance response with %d fingerprints", len(resp.Fingerprints))
	}
	return resp.Fingerprints[0], nil
}

// IssueCertificatesBulk issues a batch atomically and returns the fingerprints
// in batch order.
func (c *RegistryClient) IssueCertificatesBulk(ctx context.Context, certificateIDs []string, subjects []interfaces.CertificateSubject) ([]interfaces.ContentHash, error) {
	body, err := json.Marshal(api.IssueCertificatesBulkRequest{
		CertificateIDs: certificateIDs,
		Certificates:   subjects,
	})
	if err != nil {
		return nil, err
	}

	var resp api.IssueResponse
	if err := c.signedPost(ctx, api.CertificatesBulkPath, body, &resp); err != nil {
		return nil, err
	}
	return resp.Fingerprints, nil
}

// CertificateExists reports whether certificateID is taken.
func (c *RegistryClient) CertificateExists(ctx context.Context, certificateID string) (bool, error) {
	var resp api.ExistsResponse
	if err := c.get(ctx, api.CertificatePath(certificateID, "exists"), &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

// GetCertificateHash returns the fingerprint of certificateID, all-zero if unknown.
func (c *RegistryClient) GetCertificateHash(ctx context.Context, certificateID string) (interfaces.ContentHash, error) {
	var resp api.HashResponse
	if err := c.get(ctx, api.CertificatePath(certificateID, "hash"), &resp); err != nil {
		return interfaces.ContentHash{}, err
	}
	return resp.Fingerprint, nil
}

// VerifyCertificate returns the verification view of certificateID.
func (c *RegistryClient) VerifyCertificate(ctx context.Context, certificateID string) (interfaces.Verification, error) {
	var resp api.VerifyResponse
	if err := c.get(ctx, api.CertificatePath(certificateID, "verify"), &resp); err != nil {
		return interfaces.Verification{}, err
	}
	return resp.Verification, nil
}

// GetDocument fetches the archived document of certificateID and checks it
// against the fingerprint the registry reports for it.
func (c *RegistryClient) GetDocument(ctx context.Context, certificateID string) (interfaces.CertificateRecord, error) {
	fingerprint, err := c.GetCertificateHash(ctx, certificateID)
	if err != nil {
		return interfaces.CertificateRecord{}, err
	}
	if fingerprint.IsZero() {
		return interfaces.CertificateRecord{}, fmt.Errorf("%w: certificate %q", interfaces.ErrContentNotFound, certificateID)
	}

	data, err := c.do(ctx, http.MethodGet, api.CertificatePath(certificateID, "document"), nil, false)
	if err != nil {
		return interfaces.CertificateRecord{}, err
	}
	return storage.UnmarshalDocument(fingerprint, data)
}

// EventsSince returns one page of events with a sequence number above after.
func (c *RegistryClient) EventsSince(ctx context.Context, after uint64) (*api.EventsResponse, error) {
	var resp api.EventsResponse
	if err := c.get(ctx, api.EventsPath+"?after="+strconv.FormatUint(after, 10), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RegistryClient) get(ctx context.Context, path string, out any) error {
	data, err := c.do(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("could not parse response of %s: %w", path, err)
	}
	return nil
}

func (c *RegistryClient) signedPost(ctx context.Context, path string, body []byte, out any) error {
	data, err := c.do(ctx, http.MethodPost, path, body, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("could not parse response of %s: %w", path, err)
	}
	return nil
}

func (c *RegistryClient) do(ctx context.Context, method, path string, body []byte, sign bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.ServerAddr+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if sign {
		if c.Key == nil {
			return nil, ErrNoSigningKey
		}
		// Sign exactly what the server sees as the request path.
		signature, err := cryptoutils.SignRequest(c.Key, req.URL.Path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set(cryptoutils.SignatureHeader, hexutil.Encode(signature))
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response of %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, data)
	}
	return data, nil
}

func parseAPIError(status int, data []byte) error {
	apiErr := &APIError{StatusCode: status, Message: strings.TrimSpace(string(data))}

	var body api.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.sentinel = api.ErrorForCode(body.Code)
	}
	if apiErr.sentinel == nil && status == http.StatusNotFound {
		apiErr.sentinel = interfaces.ErrContentNotFound
	}

	return apiErr
}

// ServerAddrFromURL validates a server base URL.
func ServerAddrFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid server address %q", raw)
	}
	return strings.TrimSuffix(u.String(), "/"), nil
}
