package registry

import (
	"github.com/ruteri/certificate-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRegistry mocks the CertificateRegistry interface
type MockRegistry struct {
	mock.Mock
}

var _ interfaces.CertificateRegistry = (*MockRegistry)(nil)

// Owner mocks the Owner method
func (m *MockRegistry) Owner() interfaces.Principal {
	args := m.Called()
	return args.Get(0).(interfaces.Principal)
}

// AuthorizeIssuer mocks the AuthorizeIssuer method
func (m *MockRegistry) AuthorizeIssuer(caller, principal interfaces.Principal) error {
	args := m.Called(caller, principal)
	return args.Error(0)
}

// IsAuthorized mocks the IsAuthorized method
func (m *MockRegistry) IsAuthorized(principal interfaces.Principal) bool {
	args := m.Called(principal)
	return args.Bool(0)
}

// IssueCertificate mocks the IssueCertificate method
func (m *MockRegistry) IssueCertificate(caller interfaces.Principal, certificateID string, subject interfaces.CertificateSubject) error {
	args := m.Called(caller, certificateID, subject)
	return args.Error(0)
}

// IssueCertificatesBulk mocks the IssueCertificatesBulk method
func (m *MockRegistry) IssueCertificatesBulk(caller interfaces.Principal, certificateIDs []string, subjects []interfaces.CertificateSubject) error {
	args := m.Called(caller, certificateIDs, subjects)
	return args.Error(0)
}

// CertificateExists mocks the CertificateExists method
func (m *MockRegistry) CertificateExists(certificateID string) bool {
	args := m.Called(certificateID)
	return args.Bool(0)
}

// GetCertificateHash mocks the GetCertificateHash method
func (m *MockRegistry) GetCertificateHash(certificateID string) interfaces.ContentHash {
	args := m.Called(certificateID)
	return args.Get(0).(interfaces.ContentHash)
}

// GetCertificate mocks the GetCertificate method
func (m *MockRegistry) GetCertificate(certificateID string) (interfaces.CertificateRecord, bool) {
	args := m.Called(certificateID)
	return args.Get(0).(interfaces.CertificateRecord), args.Bool(1)
}

// VerifyCertificate mocks the VerifyCertificate method
func (m *MockRegistry) VerifyCertificate(certificateID string) interfaces.Verification {
	args := m.Called(certificateID)
	return args.Get(0).(interfaces.Verification)
}

// MockEventSource mocks the EventSource interface
type MockEventSource struct {
	mock.Mock
}

var _ interfaces.EventSource = (*MockEventSource)(nil)

// EventsSince mocks the EventsSince method
func (m *MockEventSource) EventsSince(after uint64, limit int) []interfaces.Event {
	args := m.Called(after, limit)
	events, _ := args.Get(0).([]interfaces.Event)
	return events
}

// SubscribeEvents mocks the SubscribeEvents method
func (m *MockEventSource) SubscribeEvents(buffer int) (<-chan interfaces.Event, func()) {
	args := m.Called(buffer)
	return args.Get(0).(<-chan interfaces.Event), args.Get(1).(func())
}
