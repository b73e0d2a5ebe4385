package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ris/ris/internal/platform/blobstore"
	"github.com/ris/ris/internal/platform/db"
	"github.com/ris/ris/internal/platform/realtime"
)

// Real-time event names. Part of the wire contract with connected clients.
const (
	EventNewReport      = "new_report"
	EventReportUploaded = "report_uploaded"
	EventStatusChanged  = "status_changed"
)

// reportFileExtensions is the allow-list for uploaded report documents.
var reportFileExtensions = []string{"pdf", "png", "jpg", "jpeg", "dcm"}

// Service is the single authority for Case/Report state changes. Every
// multi-document rule runs inside one transaction; notifications and
// real-time publishes happen after the transaction commits and are
// best-effort.
type Service struct {
	cases    CaseRepository
	reports  ReportRepository
	patients PatientGateway
	files    blobstore.FileStore
	notifier Notifier
	router   realtime.Router
	pool     *pgxpool.Pool
}

// NewService constructs the workflow service. notifier and router may be
// nil; pool may be nil in tests, in which case multi-write rules run without
// a surrounding transaction.
func NewService(cases CaseRepository, reports ReportRepository, patients PatientGateway,
	files blobstore.FileStore, notifier Notifier, router realtime.Router, pool *pgxpool.Pool) *Service {
	return &Service{
		cases:    cases,
		reports:  reports,
		patients: patients,
		files:    files,
		notifier: notifier,
		router:   router,
		pool:     pool,
	}
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.RunInTx(ctx, s.pool, fn)
}

func (s *Service) notify(ctx context.Context, title, message, room string, to uuid.UUID, data map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Notify(ctx, title, message, room, to, data)
}

// -- Cases --

// CreateCaseInput carries the caller-supplied fields for a new case.
type CreateCaseInput struct {
	PatientID    uuid.UUID
	DepartmentID uuid.UUID
	AssignedTo   *uuid.UUID
	Procedure    *string
	ScheduledAt  *time.Time
}

// CreateCase opens a diagnostic episode for a paid patient. The selected
// tests are copied from the patient record at creation time.
func (s *Service) CreateCase(ctx context.Context, in CreateCaseInput) (*Case, error) {
	info, err := s.patients.Info(ctx, in.PatientID)
	if err != nil {
		return nil, err
	}
	if info.PaymentStatus != "paid" {
		return nil, ErrPatientNotPaid
	}

	cs := &Case{
		CaseNumber:    NewCaseNumber(),
		PatientID:     in.PatientID,
		DepartmentID:  in.DepartmentID,
		AssignedTo:    in.AssignedTo,
		SelectedTests: info.SelectedTests,
		Procedure:     in.Procedure,
		ScheduledAt:   in.ScheduledAt,
		Status:        CasePending,
	}
	if cs.SelectedTests == nil {
		cs.SelectedTests = []CaseTest{}
	}
	if err := s.cases.Create(ctx, cs); err != nil {
		return nil, err
	}

	s.notify(ctx, "New case",
		fmt.Sprintf("Case %s opened for patient %s", cs.CaseNumber, info.PatientID),
		realtime.DepartmentRoom(in.DepartmentID), uuid.Nil,
		map[string]interface{}{"case_id": cs.ID.String(), "case_number": cs.CaseNumber})

	return cs, nil
}

func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	return s.cases.GetByID(ctx, id)
}

func (s *Service) ListCases(ctx context.Context, f CaseFilter, limit, offset int) ([]*Case, int, error) {
	return s.cases.List(ctx, f, limit, offset)
}

// ChangeCaseStatus moves a case between pending and approved.
func (s *Service) ChangeCaseStatus(ctx context.Context, caseID uuid.UUID, status CaseStatus) (*Case, error) {
	if !validCaseStatuses[status] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	cs, err := s.cases.GetByID(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if err := s.cases.SetStatus(ctx, caseID, status); err != nil {
		return nil, err
	}
	cs.Status = status

	realtime.Publish(s.router, realtime.DepartmentRoom(cs.DepartmentID), EventStatusChanged, cs)
	return cs, nil
}

// DeleteCase removes a case and cascades deletion of its linked report in
// the same transaction.
func (s *Service) DeleteCase(ctx context.Context, id uuid.UUID) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		cs, err := s.cases.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if cs.ReportID != nil {
			if err := s.reports.Delete(ctx, *cs.ReportID); err != nil && err != ErrReportNotFound {
				return err
			}
		}
		return s.cases.Delete(ctx, id)
	})
}

// -- Reports --

// CreateReportInput carries the caller-supplied fields for a new report.
type CreateReportInput struct {
	CaseID       *uuid.UUID
	PatientID    uuid.UUID
	DepartmentID *uuid.UUID
	CreatedBy    *uuid.UUID
	AssignedTo   *uuid.UUID
	Status       ReportStatus // defaults to pending
	PatientPhone *string
	Procedure    *string
	Indication   *string
	Technique    *string
	Findings     *string
	Impression   *string
	Conclusion   *string
	Notes        *string
}

// QuickCreateReport creates an empty report from an existing case, reusing
// the case number verbatim and back-linking the case in the same
// transaction.
func (s *Service) QuickCreateReport(ctx context.Context, caseID uuid.UUID, createdBy *uuid.UUID) (*Report, error) {
	var rep *Report
	err := s.inTx(ctx, func(ctx context.Context) error {
		cs, err := s.cases.GetByID(ctx, caseID)
		if err != nil {
			return err
		}
		if cs.ReportID != nil {
			return ErrReportExists
		}

		rep = &Report{
			CaseNumber:    cs.CaseNumber,
			CaseID:        &cs.ID,
			PatientID:     cs.PatientID,
			DepartmentID:  &cs.DepartmentID,
			CreatedBy:     createdBy,
			AssignedTo:    cs.AssignedTo,
			Procedure:     cs.Procedure,
			Status:        ReportPending,
			PaymentStatus: "pending",
		}
		if err := s.reports.Create(ctx, rep); err != nil {
			return err
		}
		return s.cases.SetReportID(ctx, cs.ID, &rep.ID)
	})
	if err != nil {
		return nil, err
	}

	room := ""
	if rep.DepartmentID != nil {
		room = realtime.DepartmentRoom(*rep.DepartmentID)
	}
	s.notify(ctx, "New report",
		fmt.Sprintf("Report created for case %s", rep.CaseNumber),
		room, uuid.Nil,
		map[string]interface{}{"report_id": rep.ID.String(), "case_number": rep.CaseNumber})
	realtime.Publish(s.router, room, EventNewReport, rep)

	return rep, nil
}

// CreateReport creates a report directly, optionally back-linking a case.
func (s *Service) CreateReport(ctx context.Context, in CreateReportInput) (*Report, error) {
	status := in.Status
	if status == "" {
		status = ReportPending
	}
	if !validReportStatuses[status] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	if _, err := s.patients.Info(ctx, in.PatientID); err != nil {
		return nil, err
	}

	var rep *Report
	err := s.inTx(ctx, func(ctx context.Context) error {
		caseNumber := NewReportNumber()
		if in.CaseID != nil {
			cs, err := s.cases.GetByID(ctx, *in.CaseID)
			if err != nil {
				return err
			}
			if cs.ReportID != nil {
				return ErrReportExists
			}
			caseNumber = cs.CaseNumber
		}

		rep = &Report{
			CaseNumber:    caseNumber,
			CaseID:        in.CaseID,
			PatientID:     in.PatientID,
			DepartmentID:  in.DepartmentID,
			CreatedBy:     in.CreatedBy,
			AssignedTo:    in.AssignedTo,
			PatientPhone:  in.PatientPhone,
			Procedure:     in.Procedure,
			Indication:    in.Indication,
			Technique:     in.Technique,
			Findings:      in.Findings,
			Impression:    in.Impression,
			Conclusion:    in.Conclusion,
			Notes:         in.Notes,
			Status:        status,
			PaymentStatus: "pending",
		}
		if err := s.reports.Create(ctx, rep); err != nil {
			return err
		}
		if in.CaseID != nil {
			return s.cases.SetReportID(ctx, *in.CaseID, &rep.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	room := ""
	if rep.DepartmentID != nil {
		room = realtime.DepartmentRoom(*rep.DepartmentID)
	}
	s.notify(ctx, "New report",
		fmt.Sprintf("Report %s created", rep.CaseNumber),
		room, uuid.Nil,
		map[string]interface{}{"report_id": rep.ID.String()})
	realtime.Publish(s.router, room, EventNewReport, rep)

	return rep, nil
}

func (s *Service) GetReport(ctx context.Context, id uuid.UUID) (*Report, error) {
	return s.reports.GetByID(ctx, id)
}

func (s *Service) ListReports(ctx context.Context, f ReportFilter, limit, offset int) ([]*Report, int, error) {
	return s.reports.List(ctx, f, limit, offset)
}

func (s *Service) ListReportsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	return s.reports.ListByPatient(ctx, patientID, limit, offset)
}

// UpdateReport applies edits to the clinical text fields.
func (s *Service) UpdateReport(ctx context.Context, rep *Report) error {
	return s.reports.Update(ctx, rep)
}

// UploadReportFile stores the document, attaches its descriptor to the
// report, drives the report to report_uploaded and the patient to reported,
// and notifies the department, patient and admin rooms.
func (s *Service) UploadReportFile(ctx context.Context, reportID uuid.UUID, content []byte, filename string, uploadedBy uuid.UUID) (*Report, error) {
	rep, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	desc, err := s.files.Store(ctx, content, filename, "reports", reportFileExtensions)
	if err != nil {
		return nil, fmt.Errorf("store report file: %w", err)
	}
	file := FileFromDescriptor(desc, uploadedBy)

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.reports.SetFile(ctx, reportID, file, ReportUploaded); err != nil {
			return err
		}
		return s.patients.SetStatus(ctx, rep.PatientID, "reported")
	})
	if err != nil {
		return nil, err
	}
	rep.ReportFile = file
	rep.Status = ReportUploaded

	title := "Report uploaded"
	message := fmt.Sprintf("A report file was uploaded for case %s", rep.CaseNumber)
	data := map[string]interface{}{"report_id": rep.ID.String(), "case_number": rep.CaseNumber}

	if rep.DepartmentID != nil {
		deptRoom := realtime.DepartmentRoom(*rep.DepartmentID)
		s.notify(ctx, title, message, deptRoom, uuid.Nil, data)
		realtime.Publish(s.router, deptRoom, EventReportUploaded, rep)
	}
	patientRoom := realtime.PatientRoom(rep.PatientID)
	s.notify(ctx, title, message, patientRoom, uuid.Nil, data)
	realtime.Publish(s.router, patientRoom, EventReportUploaded, rep)

	s.notify(ctx, title, message, realtime.AdminRoom, uuid.Nil, data)
	realtime.Publish(s.router, realtime.AdminRoom, EventReportUploaded, rep)

	return rep, nil
}

// ChangeReportStatus validates and applies a report status change. The
// normal path is forward-only per the transition table; override accepts any
// member of the enum (administrative correction). Approval drives the
// linked patient to completed in the same transaction.
func (s *Service) ChangeReportStatus(ctx context.Context, reportID uuid.UUID, newStatus ReportStatus, override bool) (*Report, error) {
	if !validReportStatuses[newStatus] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, newStatus)
	}

	rep, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !override && !CanTransition(rep.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s to %s", ErrIllegalTransition, rep.Status, newStatus)
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.reports.SetStatus(ctx, reportID, newStatus); err != nil {
			return err
		}
		if newStatus == ReportApproved {
			return s.patients.SetStatus(ctx, rep.PatientID, "completed")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	rep.Status = newStatus

	data := map[string]interface{}{
		"report_id":   rep.ID.String(),
		"case_number": rep.CaseNumber,
		"status":      string(newStatus),
	}
	message := fmt.Sprintf("Report %s is now %s", rep.CaseNumber, newStatus)

	room := ""
	if rep.DepartmentID != nil {
		room = realtime.DepartmentRoom(*rep.DepartmentID)
		realtime.Publish(s.router, room, EventStatusChanged, rep)
	}
	s.notify(ctx, "Report status changed", message, room, uuid.Nil, data)
	realtime.Publish(s.router, realtime.PatientRoom(rep.PatientID), EventStatusChanged, rep)

	return rep, nil
}

// DeleteReport removes a report and clears the owning case's back-link in
// the same transaction.
func (s *Service) DeleteReport(ctx context.Context, id uuid.UUID) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		rep, err := s.reports.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.reports.Delete(ctx, id); err != nil {
			return err
		}
		if rep.CaseID != nil {
			if err := s.cases.SetReportID(ctx, *rep.CaseID, nil); err != nil && err != ErrCaseNotFound {
				return err
			}
		}
		return nil
	})
}
