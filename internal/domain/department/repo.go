package department

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("department not found")
	ErrDuplicateCode = errors.New("department code already exists")
)

type Repository interface {
	Create(ctx context.Context, d *Department) error
	GetByID(ctx context.Context, id uuid.UUID) (*Department, error)
	GetByCode(ctx context.Context, code string) (*Department, error)
	Update(ctx context.Context, d *Department) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Department, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PatientSync refreshes the denormalized department name carried on patient
// records. The patient repository satisfies this directly.
type PatientSync interface {
	RefreshAssignedDepartmentName(ctx context.Context, departmentID uuid.UUID, name string) (int64, error)
}
