package workflow

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrCaseNotFound   = errors.New("case not found")
	ErrReportNotFound = errors.New("report not found")

	// ErrPatientNotFound is returned when a referenced patient does not
	// exist. The wiring layer translates the patient domain's sentinel
	// into this one so handlers can map it.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrInvalidStatus marks a status value outside the allowed enum.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrIllegalTransition marks a status change the transition table
	// forbids on the normal path.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrPatientNotPaid gates case creation on recorded payment.
	ErrPatientNotPaid = errors.New("patient payment has not been recorded")

	// ErrReportExists is returned when a case already has a live report.
	ErrReportExists = errors.New("case already has a report")
)

// CaseFilter narrows case listings.
type CaseFilter struct {
	PatientID    *uuid.UUID
	DepartmentID *uuid.UUID
	Status       CaseStatus
}

// ReportFilter narrows report listings.
type ReportFilter struct {
	PatientID    *uuid.UUID
	DepartmentID *uuid.UUID
	Status       ReportStatus
}

type CaseRepository interface {
	Create(ctx context.Context, cs *Case) error
	GetByID(ctx context.Context, id uuid.UUID) (*Case, error)
	GetByNumber(ctx context.Context, caseNumber string) (*Case, error)
	Update(ctx context.Context, cs *Case) error
	SetReportID(ctx context.Context, caseID uuid.UUID, reportID *uuid.UUID) error
	SetStatus(ctx context.Context, caseID uuid.UUID, status CaseStatus) error
	List(ctx context.Context, f CaseFilter, limit, offset int) ([]*Case, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ReportRepository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	GetByCaseNumber(ctx context.Context, caseNumber string) (*Report, error)
	Update(ctx context.Context, r *Report) error
	SetStatus(ctx context.Context, id uuid.UUID, status ReportStatus) error
	SetFile(ctx context.Context, id uuid.UUID, file *ReportFile, status ReportStatus) error
	SetPaymentStatus(ctx context.Context, reportID uuid.UUID, status string) error
	List(ctx context.Context, f ReportFilter, limit, offset int) ([]*Report, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PatientInfo is the view of a patient the workflow engine needs to make
// transition decisions.
type PatientInfo struct {
	ID            uuid.UUID
	PatientID     string
	Status        string
	PaymentStatus string
	DepartmentID  *uuid.UUID
	Phone         string
	SelectedTests []CaseTest
}

// PatientGateway exposes patient state to the workflow engine. The concrete
// implementation lives with the patient domain and is adapted at wiring
// time.
type PatientGateway interface {
	Info(ctx context.Context, id uuid.UUID) (*PatientInfo, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
}

// Notifier persists a notification row and pushes it to the named room.
// uuid.Nil as recipient means no direct recipient.
type Notifier interface {
	Notify(ctx context.Context, title, message, room string, to uuid.UUID, data map[string]interface{}) error
}
