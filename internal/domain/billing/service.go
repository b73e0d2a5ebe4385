package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ris/ris/internal/platform/db"
)

// Service owns payment records. A payment moving to success marks the
// linked report paid inside the same transaction.
type Service struct {
	repo    Repository
	reports ReportGateway
	pool    *pgxpool.Pool
}

// NewService constructs the billing service. pool may be nil in tests.
func NewService(repo Repository, reports ReportGateway, pool *pgxpool.Pool) *Service {
	return &Service{repo: repo, reports: reports, pool: pool}
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.RunInTx(ctx, s.pool, fn)
}

// Create records a new payment attempt against a report.
func (s *Service) Create(ctx context.Context, p *Payment) error {
	if p.Status == "" {
		p.Status = PaymentPending
	}
	if !validPaymentStatuses[p.Status] {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, p.Status)
	}
	if p.Currency == "" {
		p.Currency = "INR"
	}
	if p.Status == PaymentSuccess {
		return s.inTx(ctx, func(ctx context.Context) error {
			if err := s.repo.Create(ctx, p); err != nil {
				return err
			}
			return s.reports.SetPaymentStatus(ctx, p.ReportID, "paid")
		})
	}
	return s.repo.Create(ctx, p)
}

// UpdateStatus moves a payment to a new state. Success propagates to the
// report's payment flag atomically.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) (*Payment, error) {
	if !validPaymentStatuses[status] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.repo.SetStatus(ctx, id, status); err != nil {
			return err
		}
		if status == PaymentSuccess {
			return s.reports.SetPaymentStatus(ctx, p.ReportID, "paid")
		}
		if status == PaymentRefunded {
			return s.reports.SetPaymentStatus(ctx, p.ReportID, "refunded")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.Status = status
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Payment, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
