package portal

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ris/ris/internal/domain/workflow"
	"github.com/ris/ris/internal/platform/auth"
)

type mockDirectory struct {
	phone     string
	id        uuid.UUID
	patientID string
}

func (m *mockDirectory) LookupByPhone(_ context.Context, phone string) (uuid.UUID, string, error) {
	if phone != m.phone {
		return uuid.Nil, "", errors.New("not found")
	}
	return m.id, m.patientID, nil
}

type mockReports struct {
	reports []*workflow.Report
}

func (m *mockReports) ListReportsByPatient(_ context.Context, patientID uuid.UUID, _, _ int) ([]*workflow.Report, int, error) {
	items := []*workflow.Report{}
	for _, r := range m.reports {
		if r.PatientID == patientID {
			items = append(items, r)
		}
	}
	return items, len(items), nil
}

func (m *mockReports) GetReport(_ context.Context, id uuid.UUID) (*workflow.Report, error) {
	for _, r := range m.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, workflow.ErrReportNotFound
}

type capturingSMS struct {
	messages []string
}

func (c *capturingSMS) Send(_ context.Context, _, message string) error {
	c.messages = append(c.messages, message)
	return nil
}

func newTestService(dir *mockDirectory, reports *mockReports) (*Service, *capturingSMS, *auth.Signer) {
	sms := &capturingSMS{}
	signer := auth.NewSigner("0123456789abcdef0123456789abcdef", "test")
	svc := NewService(dir, reports, NewOTPStore(time.Minute), sms, signer, 30*time.Minute)
	return svc, sms, signer
}

func TestOTPLoginFlow(t *testing.T) {
	dir := &mockDirectory{phone: "5550001111", id: uuid.New(), patientID: "PT-1700000000000"}
	svc, sms, signer := newTestService(dir, &mockReports{})

	if err := svc.RequestOTP(context.Background(), "5550001111"); err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	if len(sms.messages) != 1 {
		t.Fatalf("expected one SMS, got %d", len(sms.messages))
	}

	code := regexp.MustCompile(`\d{6}`).FindString(sms.messages[0])
	if code == "" {
		t.Fatalf("no code in SMS %q", sms.messages[0])
	}

	token, err := svc.VerifyOTP(context.Background(), "5550001111", code)
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}

	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.Subject != "PT-1700000000000" {
		t.Errorf("token subject = %q", claims.Subject)
	}
	if claims.PatientID != dir.id.String() {
		t.Errorf("token patient id = %q, want %q", claims.PatientID, dir.id)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "patient" {
		t.Errorf("token roles = %v, want [patient]", claims.Roles)
	}

	// The code is consumed.
	if _, err := svc.VerifyOTP(context.Background(), "5550001111", code); err == nil {
		t.Error("expected reuse to fail")
	}
}

func TestRequestOTPUnknownPhone(t *testing.T) {
	dir := &mockDirectory{phone: "5550001111"}
	svc, _, _ := newTestService(dir, &mockReports{})

	if err := svc.RequestOTP(context.Background(), "5559999999"); !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestPortalReportView(t *testing.T) {
	patientID := uuid.New()
	conclusion := "No acute findings."

	reports := &mockReports{reports: []*workflow.Report{
		{
			ID:         uuid.New(),
			CaseNumber: "CASE-1700000000000",
			PatientID:  patientID,
			Status:     workflow.ReportInProgress,
			Conclusion: &conclusion,
			ReportFile: &workflow.ReportFile{URL: "/files/x.pdf"},
		},
		{
			ID:         uuid.New(),
			CaseNumber: "CASE-1700000000001",
			PatientID:  patientID,
			Status:     workflow.ReportApproved,
			Conclusion: &conclusion,
			ReportFile: &workflow.ReportFile{URL: "/files/y.pdf"},
		},
		{
			ID:         uuid.New(),
			CaseNumber: "CASE-1700000000002",
			PatientID:  patientID,
			Status:     workflow.ReportCancelled,
		},
	}}
	dir := &mockDirectory{phone: "5550001111", id: patientID}
	svc, _, _ := newTestService(dir, reports)

	items, total, err := svc.ListReports(context.Background(), patientID, 20, 0)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}

	byCase := map[string]*PortalReport{}
	for _, item := range items {
		byCase[item.CaseNumber] = item
	}

	inProgress := byCase["CASE-1700000000000"]
	if inProgress.Status != "processing" {
		t.Errorf("in_progress maps to %q, want processing", inProgress.Status)
	}
	if inProgress.Conclusion != nil || inProgress.ReportFile != nil {
		t.Error("unapproved report leaked its document or conclusion")
	}

	approved := byCase["CASE-1700000000001"]
	if approved.Status != "ready" {
		t.Errorf("approved maps to %q, want ready", approved.Status)
	}
	if approved.Conclusion == nil || approved.ReportFile == nil {
		t.Error("ready report should expose document and conclusion")
	}

	if byCase["CASE-1700000000002"].Status != "cancelled" {
		t.Errorf("cancelled maps to %q", byCase["CASE-1700000000002"].Status)
	}
}

func TestGetReportEnforcesOwnership(t *testing.T) {
	mine := uuid.New()
	other := uuid.New()
	rep := &workflow.Report{ID: uuid.New(), PatientID: other, Status: workflow.ReportApproved}

	svc, _, _ := newTestService(&mockDirectory{}, &mockReports{reports: []*workflow.Report{rep}})

	if _, err := svc.GetReport(context.Background(), mine, rep.ID); !errors.Is(err, workflow.ErrReportNotFound) {
		t.Fatalf("expected not-found for foreign report, got %v", err)
	}
}

func TestSMSMessageContainsCodeOnly(t *testing.T) {
	dir := &mockDirectory{phone: "5550001111", id: uuid.New(), patientID: "PT-1"}
	svc, sms, _ := newTestService(dir, &mockReports{})

	if err := svc.RequestOTP(context.Background(), "5550001111"); err != nil {
		t.Fatalf("RequestOTP: %v", err)
	}
	if !strings.Contains(sms.messages[0], "login code") {
		t.Errorf("unexpected SMS text: %q", sms.messages[0])
	}
}
