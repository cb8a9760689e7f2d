package interfaces

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Principal identifies a caller or an issuer. Equality is exact.
type Principal = common.Address

// ParsePrincipal parses a 40-char hex address, with or without 0x prefix.
func ParsePrincipal(source string) (Principal, error) {
	if !common.IsHexAddress(source) {
		return Principal{}, fmt.Errorf("invalid principal address: %q", source)
	}
	return common.HexToAddress(source), nil
}

// ContentHash is a 32-byte keccak256 fingerprint of certificate content.
// The zero value means "no certificate".
type ContentHash [32]byte

// NewContentHashFromBytes copies a 32-byte slice into a ContentHash.
func NewContentHashFromBytes(source []byte) (ContentHash, error) {
	if len(source) != 32 {
		return ContentHash{}, errors.New("invalid ContentHash conversion from bytes: incorrect length")
	}

	var hash ContentHash
	copy(hash[:], source)
	return hash, nil
}

// NewContentHashFromHex parses a 64-char hex string, with or without 0x prefix.
func NewContentHashFromHex(source string) (ContentHash, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return ContentHash{}, errors.New("invalid content hash length: hex string must be 64 characters")
	}

	hashBytes, err := hexutil.Decode("0x" + clean)
	if err != nil {
		return ContentHash{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewContentHashFromBytes(hashBytes)
}

// HashOf returns keccak256(data).
func HashOf(data []byte) ContentHash {
	return ContentHash(crypto.Keccak256Hash(data))
}

// String returns 0x-prefixed hex.
func (h ContentHash) String() string {
	return common.Hash(h).Hex()
}

// Bytes returns raw 32-byte hash.
func (h ContentHash) Bytes() []byte {
	return h[:]
}

// IsZero reports whether h is the absent sentinel.
func (h ContentHash) IsZero() bool {
	return h == ContentHash{}
}

func (h ContentHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *ContentHash) UnmarshalText(text []byte) error {
	parsed, err := NewContentHashFromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// CertificateSubject holds the attributes a certificate is issued for.
type CertificateSubject struct {
	Name       string `json:"name"`
	RollNumber string `json:"roll_number"`
	Marks      uint64 `json:"marks"`
}

var subjectArguments = func() abi.Arguments {
	stringType, _ := abi.NewType("string", "", nil)
	uintType, _ := abi.NewType("uint256", "", nil)
	return abi.Arguments{{Type: stringType}, {Type: stringType}, {Type: uintType}}
}()

// FingerprintOf computes keccak256(abi.encode(name, rollNumber, marks)).
func FingerprintOf(subject CertificateSubject) ContentHash {
	packed, err := subjectArguments.Pack(subject.Name, subject.RollNumber, new(big.Int).SetUint64(subject.Marks))
	if err != nil {
		// Only reachable if subjectArguments and the Go types drift apart.
		panic(fmt.Sprintf("could not abi-encode certificate subject: %v", err))
	}
	return HashOf(packed)
}

// CertificateRecord is the stored form of an issued certificate.
// A record with Exists set is never modified.
type CertificateRecord struct {
	CertificateID string      `json:"certificate_id"`
	Name          string      `json:"name"`
	RollNumber    string      `json:"roll_number"`
	Marks         uint64      `json:"marks"`
	Fingerprint   ContentHash `json:"fingerprint"`
	Issuer        Principal   `json:"issuer"`
	IssueDate     time.Time   `json:"issue_date"`
	Exists        bool        `json:"exists"`
}

// Subject returns the attributes the record was issued for.
func (r CertificateRecord) Subject() CertificateSubject {
	return CertificateSubject{Name: r.Name, RollNumber: r.RollNumber, Marks: r.Marks}
}

// Verification is the result tuple of a verification call. For an unknown
// certificate every field is zero and IsValid is false.
type Verification struct {
	Name       string    `json:"name"`
	RollNumber string    `json:"roll_number"`
	Marks      uint64    `json:"marks"`
	IssueDate  time.Time `json:"issue_date"`
	Issuer     Principal `json:"issuer"`
	IsValid    bool      `json:"is_valid"`
}
