package api

import (
	"errors"

	"github.com/ruteri/certificate-registry/cryptoutils"
	"github.com/ruteri/certificate-registry/interfaces"
)

// Error codes carried in ErrorResponse.Code. Clients map on the code, never
// on the message, which may echo caller-chosen certificate ids.
const (
	CodeUnauthorized       = "unauthorized"
	CodeNotAuthorized      = "not_authorized"
	CodeDuplicateID        = "duplicate_id"
	CodeDuplicateContent   = "duplicate_content"
	CodeLengthMismatch     = "length_mismatch"
	CodeContentNotFound    = "content_not_found"
	CodeBackendUnavailable = "backend_unavailable"
	CodeInvalidSignature   = "invalid_signature"
)

var errorCodes = []struct {
	code string
	err  error
}{
	{CodeUnauthorized, interfaces.ErrUnauthorized},
	{CodeNotAuthorized, interfaces.ErrNotAuthorized},
	{CodeDuplicateID, interfaces.ErrDuplicateID},
	{CodeDuplicateContent, interfaces.ErrDuplicateContent},
	{CodeLengthMismatch, interfaces.ErrLengthMismatch},
	{CodeContentNotFound, interfaces.ErrContentNotFound},
	{CodeBackendUnavailable, interfaces.ErrBackendUnavailable},
	{CodeInvalidSignature, cryptoutils.ErrInvalidSignature},
}

// ErrorCode returns the code of the first known error in err's chain, or ""
// for errors without one.
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// ErrorForCode returns the error a code stands for, or nil for unknown codes.
func ErrorForCode(code string) error {
	for _, c := range errorCodes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
