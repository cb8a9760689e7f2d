package cryptoutils

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureHeader carries the hex-encoded request signature.
const SignatureHeader = "X-Registry-Signature"

// ErrInvalidSignature is returned when a signature cannot be decoded or recovered.
var ErrInvalidSignature = errors.New("invalid request signature")

// RequestDigest returns the EIP-191 personal-message hash of path || body,
// so requests can also be signed by regular Ethereum wallets.
func RequestDigest(path string, body []byte) []byte {
	message := make([]byte, 0, len(path)+len(body))
	message = append(message, path...)
	message = append(message, body...)
	return accounts.TextHash(message)
}

// SignRequest signs path || body with key. The recovery id is encoded as
// 27/28, matching wallet signatures.
func SignRequest(key *ecdsa.PrivateKey, path string, body []byte) ([]byte, error) {
	signature, err := crypto.Sign(RequestDigest(path, body), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}
	signature[crypto.RecoveryIDOffset] += 27
	return signature, nil
}

// RecoverRequestSigner returns the address that signed path || body.
// Both 0/1 and 27/28 recovery ids are accepted.
func RecoverRequestSigner(path string, body []byte, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, crypto.SignatureLength, len(signature))
	}

	normalized := make([]byte, len(signature))
	copy(normalized, signature)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}

	pubkey, err := crypto.SigToPub(RequestDigest(path, body), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return crypto.PubkeyToAddress(*pubkey), nil
}

// ParsePrivateKeyHex parses a hex-encoded secp256k1 private key, with or
// without 0x prefix.
func ParsePrivateKeyHex(source string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(source), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// LoadPrivateKeyFile reads a hex-encoded secp256k1 private key from a file.
func LoadPrivateKeyFile(path string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, fmt.Errorf("could not load private key from %s: %w", path, err)
	}
	return key, nil
}

// AddressOf returns the address controlled by key.
func AddressOf(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}
