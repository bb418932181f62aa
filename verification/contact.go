package verification

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// DefaultCountryCode is prepended to national phone numbers.
const DefaultCountryCode = "+57"

// Sender delivers a fresh code to contact.
type Sender interface {
	Send(ctx context.Context, contact string) error
}

// Checker reports whether code is the one delivered to contact.
type Checker interface {
	Check(ctx context.Context, contact, code string) (bool, error)
}

// Verifier is a code delivery service that can check its own codes.
type Verifier interface {
	Sender
	Checker
}

// Directory resolves the registered contact of an associate.
type Directory interface {
	Contact(ctx context.Context, cedula string) (string, error)
}

// StaticDirectory maps national IDs to phone numbers. Fallback, when set, is
// used for every unlisted cedula.
type StaticDirectory struct {
	Contacts map[string]string
	Fallback string
}

// Contact implements Directory.
func (d StaticDirectory) Contact(_ context.Context, cedula string) (string, error) {
	if c, ok := d.Contacts[cedula]; ok {
		return c, nil
	}

	if d.Fallback != "" {
		return d.Fallback, nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnknownContact, cedula)
}

// FormatPhone normalizes phone to E.164. Separators are dropped; a number
// without a leading '+' loses a trunk '0' and gets countryCode prepended.
func FormatPhone(phone, countryCode string) string {
	var sb strings.Builder

	for _, r := range phone {
		if (r >= '0' && r <= '9') || r == '+' {
			sb.WriteRune(r)
		}
	}

	cleaned := sb.String()
	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}

	return countryCode + strings.TrimPrefix(cleaned, "0")
}

// MaskContact hides all but the last four characters of contact.
func MaskContact(contact string) string {
	r := []rune(contact)
	if len(r) <= 4 {
		return contact
	}

	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}

// MockVerifier is an in-process Verifier that accepts one fixed code for any
// contact a code was sent to. It never delivers anything.
type MockVerifier struct {
	code string

	mu   sync.Mutex
	sent map[string]int
}

// DefaultMockCode is the code accepted by NewMockVerifier("").
const DefaultMockCode = "123456"

// NewMockVerifier creates a verifier accepting code.
func NewMockVerifier(code string) *MockVerifier {
	if code == "" {
		code = DefaultMockCode
	}

	return &MockVerifier{code: code, sent: make(map[string]int)}
}

// Send implements Sender.
func (m *MockVerifier) Send(ctx context.Context, contact string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent[contact]++

	return nil
}

// Check implements Checker.
func (m *MockVerifier) Check(ctx context.Context, contact, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sent[contact] > 0 && strings.TrimSpace(code) == m.code, nil
}

// Sent returns how many codes were sent to contact.
func (m *MockVerifier) Sent(contact string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sent[contact]
}
