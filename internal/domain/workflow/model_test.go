package workflow

import (
	"regexp"
	"testing"
)

func TestNewCaseNumberFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^CASE-\d{13}$`)
	got := NewCaseNumber()
	if !pattern.MatchString(got) {
		t.Errorf("case number %q does not match CASE-<unix ms>", got)
	}
}

func TestNewReportNumberFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^CASE-\d{13}-\d{1,3}$`)
	for i := 0; i < 50; i++ {
		got := NewReportNumber()
		if !pattern.MatchString(got) {
			t.Fatalf("report number %q does not match CASE-<unix ms>-<0-999>", got)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to ReportStatus
		want     bool
	}{
		{ReportPending, ReportInProgress, true},
		{ReportPending, ReportApproved, true},
		{ReportInProgress, ReportUploaded, true},
		{ReportUploaded, ReportReviewed, true},
		{ReportReviewed, ReportApproved, true},

		// Backward moves are rejected.
		{ReportInProgress, ReportPending, false},
		{ReportApproved, ReportReviewed, false},
		{ReportUploaded, ReportInProgress, false},

		// Self-transitions are rejected.
		{ReportPending, ReportPending, false},
		{ReportReviewed, ReportReviewed, false},

		// Side branches from any non-terminal state.
		{ReportPending, ReportCancelled, true},
		{ReportReviewed, ReportCancelled, true},
		{ReportInProgress, ReportPaid, true},

		// Terminal states admit nothing.
		{ReportApproved, ReportCancelled, false},
		{ReportCancelled, ReportPending, false},
		{ReportCancelled, ReportPaid, false},
		{ReportPaid, ReportApproved, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
