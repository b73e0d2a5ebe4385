package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ris/ris/internal/platform/realtime"
)

// EventNotification is the realtime event name notifications arrive under.
const EventNotification = "notification"

// Service persists notifications and fans them out over the realtime hub.
// Persistence is authoritative; a failed push never fails the caller.
type Service struct {
	repo   Repository
	router realtime.Router
}

func NewService(repo Repository, router realtime.Router) *Service {
	return &Service{repo: repo, router: router}
}

// Notify stores a notification and pushes it to the named room and, when a
// direct recipient is set, to that user's personal room. This signature is
// what the other domains depend on.
func (s *Service) Notify(ctx context.Context, title, message, room string, to uuid.UUID, data map[string]interface{}) error {
	n := &Notification{
		Title:   title,
		Message: message,
		Data:    data,
	}
	if room != "" {
		n.Room = &room
	}
	if to != uuid.Nil {
		n.To = &to
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}

	if room != "" {
		realtime.Publish(s.router, room, EventNotification, n)
	}
	if to != uuid.Nil {
		realtime.Publish(s.router, realtime.UserRoom(to), EventNotification, n)
	}
	log.Debug().Str("title", title).Str("room", room).Msg("notification dispatched")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Notification, int, error) {
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, recipient uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, recipient)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
