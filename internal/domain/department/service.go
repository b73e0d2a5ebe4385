package department

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ris/ris/internal/platform/db"
)

// Service manages departments. Renames propagate to the denormalized
// department name on patient records in the same transaction.
type Service struct {
	repo     Repository
	patients PatientSync
	pool     *pgxpool.Pool
}

// NewService constructs the department service. patients and pool may be nil
// in tests.
func NewService(repo Repository, patients PatientSync, pool *pgxpool.Pool) *Service {
	return &Service{repo: repo, patients: patients, pool: pool}
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.RunInTx(ctx, s.pool, fn)
}

func (s *Service) Create(ctx context.Context, d *Department) error {
	d.Active = true
	return s.repo.Create(ctx, d)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Department, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*Department, error) {
	return s.repo.GetByCode(ctx, code)
}

func (s *Service) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Department, int, error) {
	return s.repo.List(ctx, activeOnly, limit, offset)
}

// Update persists department edits. A name change rewrites the lowercase
// copy every assigned patient carries.
func (s *Service) Update(ctx context.Context, d *Department) error {
	existing, err := s.repo.GetByID(ctx, d.ID)
	if err != nil {
		return err
	}

	if existing.Name == d.Name || s.patients == nil {
		return s.repo.Update(ctx, d)
	}

	return s.inTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, d); err != nil {
			return err
		}
		_, err := s.patients.RefreshAssignedDepartmentName(ctx, d.ID, d.Name)
		return err
	})
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
