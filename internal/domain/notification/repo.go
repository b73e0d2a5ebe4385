package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("notification not found")

// Filter narrows notification listings.
type Filter struct {
	Recipient  *uuid.UUID
	Room       string
	UnreadOnly bool
}

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Notification, int, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, recipient uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}
