// Package portal gives patients OTP-based access to their own reports.
package portal

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"
)

var (
	ErrOTPNotFound = errors.New("no code requested for this phone")
	ErrOTPExpired  = errors.New("code has expired")
	ErrOTPMismatch = errors.New("code does not match")
)

type otpEntry struct {
	code      string
	expiresAt time.Time
}

// OTPStore holds single-use login codes in memory. Codes survive only for
// their TTL and are consumed on successful verification, so a restart
// simply forces the patient to request a fresh code.
type OTPStore struct {
	mu      sync.Mutex
	entries map[string]otpEntry
	ttl     time.Duration
}

func NewOTPStore(ttl time.Duration) *OTPStore {
	return &OTPStore{
		entries: make(map[string]otpEntry),
		ttl:     ttl,
	}
}

// Issue generates a 6-digit code for the phone, replacing any outstanding
// code.
func (s *OTPStore) Issue(phone string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[phone] = otpEntry{code: code, expiresAt: time.Now().Add(s.ttl)}
	return code, nil
}

// Verify checks the code for the phone and consumes it on success. A wrong
// code leaves the entry in place so the patient can retry.
func (s *OTPStore) Verify(phone, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[phone]
	if !ok {
		return ErrOTPNotFound
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, phone)
		return ErrOTPExpired
	}
	if entry.code != code {
		return ErrOTPMismatch
	}
	delete(s.entries, phone)
	return nil
}
