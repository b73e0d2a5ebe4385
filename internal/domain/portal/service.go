package portal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ris/ris/internal/domain/workflow"
	"github.com/ris/ris/internal/platform/auth"
)

var ErrPatientNotFound = errors.New("no patient registered with this phone")

// PatientDirectory looks patients up by phone for OTP login. The concrete
// implementation wraps the patient service at wiring time.
type PatientDirectory interface {
	LookupByPhone(ctx context.Context, phone string) (id uuid.UUID, patientID string, err error)
}

// ReportLister is the slice of the workflow layer the portal reads from.
type ReportLister interface {
	ListReportsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*workflow.Report, int, error)
	GetReport(ctx context.Context, id uuid.UUID) (*workflow.Report, error)
}

// PortalReport is the reduced view of a report shown to patients. Internal
// workflow statuses collapse to processing / ready / cancelled.
type PortalReport struct {
	ID         uuid.UUID            `json:"id"`
	CaseNumber string               `json:"case_number"`
	Status     string               `json:"status"`
	Procedure  *string              `json:"procedure,omitempty"`
	Conclusion *string              `json:"conclusion,omitempty"`
	ReportFile *workflow.ReportFile `json:"report_file,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

func portalStatus(s workflow.ReportStatus) string {
	switch s {
	case workflow.ReportApproved, workflow.ReportPaid:
		return "ready"
	case workflow.ReportCancelled:
		return "cancelled"
	default:
		return "processing"
	}
}

func toPortalReport(r *workflow.Report) *PortalReport {
	p := &PortalReport{
		ID:         r.ID,
		CaseNumber: r.CaseNumber,
		Status:     portalStatus(r.Status),
		Procedure:  r.Procedure,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	// The clinical document and conclusion are withheld until approval.
	if p.Status == "ready" {
		p.Conclusion = r.Conclusion
		p.ReportFile = r.ReportFile
	}
	return p
}

// Service runs the OTP login flow and serves the patient's own reports.
type Service struct {
	patients PatientDirectory
	reports  ReportLister
	otp      *OTPStore
	sms      SMSSender
	signer   *auth.Signer
	tokenTTL time.Duration
}

func NewService(patients PatientDirectory, reports ReportLister, otp *OTPStore,
	sms SMSSender, signer *auth.Signer, tokenTTL time.Duration) *Service {
	return &Service{
		patients: patients,
		reports:  reports,
		otp:      otp,
		sms:      sms,
		signer:   signer,
		tokenTTL: tokenTTL,
	}
}

// RequestOTP issues a login code and texts it to the patient's phone.
func (s *Service) RequestOTP(ctx context.Context, phone string) error {
	if _, _, err := s.patients.LookupByPhone(ctx, phone); err != nil {
		return ErrPatientNotFound
	}

	code, err := s.otp.Issue(phone)
	if err != nil {
		return err
	}
	return s.sms.Send(ctx, phone, fmt.Sprintf("Your login code is %s", code))
}

// VerifyOTP consumes a valid code and issues a portal token bound to the
// patient record.
func (s *Service) VerifyOTP(ctx context.Context, phone, code string) (string, error) {
	if err := s.otp.Verify(phone, code); err != nil {
		return "", err
	}

	id, patientID, err := s.patients.LookupByPhone(ctx, phone)
	if err != nil {
		return "", ErrPatientNotFound
	}

	token, err := s.signer.Sign(patientID, []string{"patient"}, id.String(), s.tokenTTL)
	if err != nil {
		return "", err
	}
	return token, nil
}

// ListReports returns the reduced report view for the authenticated patient.
func (s *Service) ListReports(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*PortalReport, int, error) {
	reports, total, err := s.reports.ListReportsByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]*PortalReport, 0, len(reports))
	for _, r := range reports {
		items = append(items, toPortalReport(r))
	}
	return items, total, nil
}

// GetReport returns a single report in the reduced view, refusing reports
// that belong to a different patient.
func (s *Service) GetReport(ctx context.Context, patientID, reportID uuid.UUID) (*PortalReport, error) {
	r, err := s.reports.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if r.PatientID != patientID {
		return nil, workflow.ErrReportNotFound
	}
	return toPortalReport(r), nil
}
