package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("payment not found")
	ErrInvalidStatus = errors.New("invalid payment status")
)

// Filter narrows payment listings.
type Filter struct {
	ReportID  *uuid.UUID
	PatientID *uuid.UUID
	Status    PaymentStatus
}

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Payment, int, error)
	SetStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ReportGateway marks a report paid when its payment succeeds. The workflow
// package's report repository satisfies this directly.
type ReportGateway interface {
	SetPaymentStatus(ctx context.Context, reportID uuid.UUID, status string) error
}
