package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ris/ris/internal/platform/realtime"
)

// ErrPaymentRequired is returned when a workflow step needs a recorded
// payment first. Enforced server-side; the dashboard gate alone is not a
// consistency boundary.
var ErrPaymentRequired = errors.New("payment must be recorded first")

// Notifier persists a notification row and pushes it to the named room.
// A nil recipient id (uuid.Nil) means no direct recipient.
type Notifier interface {
	Notify(ctx context.Context, title, message, room string, to uuid.UUID, data map[string]interface{}) error
}

type Service struct {
	repo     Repository
	notifier Notifier
}

// NewService constructs the patient service. notifier may be nil; all
// notifications are best-effort.
func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// Create registers a new patient at intake with a generated PT identifier,
// pending payment, and no department assignment.
func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Phone == "" {
		return fmt.Errorf("phone is required")
	}
	if p.CaseType == "" {
		p.CaseType = CaseRoutine
	}
	if !validCaseTypes[p.CaseType] {
		return fmt.Errorf("invalid case type: %s", p.CaseType)
	}

	p.PatientID = NewPatientID()
	p.Status = StatusPendingPayment
	p.PaymentStatus = PaymentPending
	if p.SelectedTests == nil {
		p.SelectedTests = []SelectedTest{}
	}
	if p.Attachments == nil {
		p.Attachments = []Attachment{}
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByPatientID(ctx context.Context, patientID string) (*Patient, error) {
	return s.repo.GetByPatientID(ctx, patientID)
}

func (s *Service) FindByPhone(ctx context.Context, phone string) (*Patient, error) {
	return s.repo.FindByPhone(ctx, phone)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// Update applies history/demographics edits. Workflow fields (status,
// payment, assignment) are only reachable through their dedicated operations.
func (s *Service) Update(ctx context.Context, p *Patient) error {
	if p.CaseType != "" && !validCaseTypes[p.CaseType] {
		return fmt.Errorf("invalid case type: %s", p.CaseType)
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// RecordPayment marks the patient paid and moves them to in_progress.
// Recording payment on an already-paid patient is a no-op success.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.PaymentStatus == PaymentPaid {
		return p, nil
	}

	if err := s.repo.SetPayment(ctx, id, PaymentPaid, StatusInProgress); err != nil {
		return nil, err
	}
	p.PaymentStatus = PaymentPaid
	p.Status = StatusInProgress

	s.notify(ctx, "Payment recorded",
		fmt.Sprintf("Payment recorded for patient %s", p.PatientID),
		realtime.AdminRoom, uuid.Nil,
		map[string]interface{}{"patient_id": p.ID.String()})
	return p, nil
}

// AssignDepartment sets the assignment triple atomically and moves the
// patient to sent_to_department. Requires a recorded payment.
func (s *Service) AssignDepartment(ctx context.Context, id, departmentID uuid.UUID, departmentName string, assignedBy uuid.UUID) (*Patient, error) {
	if departmentName == "" {
		return nil, fmt.Errorf("department name is required")
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.PaymentStatus != PaymentPaid {
		return nil, ErrPaymentRequired
	}

	a := Assignment{
		DepartmentID:   departmentID,
		DepartmentName: departmentName,
		AssignedBy:     assignedBy,
		AssignedAt:     time.Now().UTC(),
	}
	if err := s.repo.SetAssignment(ctx, id, a); err != nil {
		return nil, err
	}

	s.notify(ctx, "Patient assigned",
		fmt.Sprintf("Patient %s assigned to %s", p.PatientID, departmentName),
		realtime.DepartmentRoom(departmentID), uuid.Nil,
		map[string]interface{}{"patient_id": p.ID.String()})

	return s.repo.GetByID(ctx, id)
}

// SetStatus applies a workflow-driven status change. Everything outside the
// workflow engine goes through the dedicated operations instead.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	if !validStatuses[status] {
		return fmt.Errorf("invalid status: %s", status)
	}
	return s.repo.SetStatus(ctx, id, status)
}

func (s *Service) notify(ctx context.Context, title, message, room string, to uuid.UUID, data map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Notify(ctx, title, message, room, to, data)
}
