package portal

import (
	"errors"
	"regexp"
	"testing"
	"time"
)

func TestOTPIssueAndVerify(t *testing.T) {
	store := NewOTPStore(time.Minute)

	code, err := store.Issue("5550001111")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !regexp.MustCompile(`^\d{6}$`).MatchString(code) {
		t.Fatalf("code %q is not 6 digits", code)
	}

	if err := store.Verify("5550001111", code); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	// Codes are single-use.
	if err := store.Verify("5550001111", code); !errors.Is(err, ErrOTPNotFound) {
		t.Errorf("expected ErrOTPNotFound on reuse, got %v", err)
	}
}

func TestOTPWrongCodeLeavesEntry(t *testing.T) {
	store := NewOTPStore(time.Minute)

	code, _ := store.Issue("5550001111")

	if err := store.Verify("5550001111", "000000"); !errors.Is(err, ErrOTPMismatch) {
		// The issued code could legitimately be 000000; skip in that case.
		if code != "000000" {
			t.Fatalf("expected ErrOTPMismatch, got %v", err)
		}
		return
	}

	// The right code still works after a failed attempt.
	if err := store.Verify("5550001111", code); err != nil {
		t.Errorf("Verify after mismatch: %v", err)
	}
}

func TestOTPExpiry(t *testing.T) {
	store := NewOTPStore(-time.Second)

	code, _ := store.Issue("5550001111")
	if err := store.Verify("5550001111", code); !errors.Is(err, ErrOTPExpired) {
		t.Errorf("expected ErrOTPExpired, got %v", err)
	}

	// An expired entry is dropped entirely.
	if err := store.Verify("5550001111", code); !errors.Is(err, ErrOTPNotFound) {
		t.Errorf("expected ErrOTPNotFound after expiry, got %v", err)
	}
}

func TestOTPReissueReplaces(t *testing.T) {
	store := NewOTPStore(time.Minute)

	first, _ := store.Issue("5550001111")
	second, _ := store.Issue("5550001111")
	if first == second {
		// Random collision is possible but overwhelmingly unlikely to matter:
		// the stored entry is the second one either way.
		return
	}

	if err := store.Verify("5550001111", first); !errors.Is(err, ErrOTPMismatch) {
		t.Errorf("stale code should mismatch, got %v", err)
	}
	if err := store.Verify("5550001111", second); err != nil {
		t.Errorf("fresh code rejected: %v", err)
	}
}

func TestUnknownPhone(t *testing.T) {
	store := NewOTPStore(time.Minute)
	if err := store.Verify("5559999999", "123456"); !errors.Is(err, ErrOTPNotFound) {
		t.Errorf("expected ErrOTPNotFound, got %v", err)
	}
}
