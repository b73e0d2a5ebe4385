package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("patient not found")

// Filter narrows List results.
type Filter struct {
	Status        Status
	PaymentStatus PaymentStatus
	DepartmentID  *uuid.UUID
	Name          string // substring match
	CreatedAfter  string // RFC3339 date, inclusive
	CreatedBefore string // RFC3339 date, exclusive
}

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByPatientID(ctx context.Context, patientID string) (*Patient, error)
	FindByPhone(ctx context.Context, phone string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	SetPayment(ctx context.Context, id uuid.UUID, payment PaymentStatus, status Status) error
	SetAssignment(ctx context.Context, id uuid.UUID, a Assignment) error
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
	RefreshAssignedDepartmentName(ctx context.Context, departmentID uuid.UUID, name string) (int64, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
