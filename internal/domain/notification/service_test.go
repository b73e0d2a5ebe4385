package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	created []*Notification
}

func (m *mockRepo) Create(_ context.Context, n *Notification) error {
	n.ID = uuid.New()
	n.CreatedAt = time.Now().UTC()
	n.UpdatedAt = n.CreatedAt
	m.created = append(m.created, n)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Notification, error) {
	for _, n := range m.created {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) List(_ context.Context, _ Filter, _, _ int) ([]*Notification, int, error) {
	return m.created, len(m.created), nil
}

func (m *mockRepo) MarkRead(_ context.Context, id uuid.UUID) error {
	for _, n := range m.created {
		if n.ID == id {
			n.IsRead = true
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockRepo) MarkAllRead(_ context.Context, _ uuid.UUID) error { return nil }
func (m *mockRepo) Delete(_ context.Context, _ uuid.UUID) error      { return nil }

type publishCall struct {
	room  string
	event string
}

type mockRouter struct {
	calls []publishCall
}

func (m *mockRouter) Publish(room, event string, _ interface{}) {
	m.calls = append(m.calls, publishCall{room: room, event: event})
}

func (m *mockRouter) PublishGlobal(event string, _ interface{}) {
	m.calls = append(m.calls, publishCall{event: event})
}

func TestNotifyPersistsThenPublishes(t *testing.T) {
	repo := &mockRepo{}
	router := &mockRouter{}
	svc := NewService(repo, router)

	userID := uuid.New()
	err := svc.Notify(context.Background(), "Report uploaded", "A report is ready",
		"admin_room", userID, map[string]interface{}{"report_id": "r1"})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected 1 persisted notification, got %d", len(repo.created))
	}
	n := repo.created[0]
	if n.Room == nil || *n.Room != "admin_room" {
		t.Errorf("room = %v, want admin_room", n.Room)
	}
	if n.To == nil || *n.To != userID {
		t.Errorf("recipient = %v, want %s", n.To, userID)
	}

	if len(router.calls) != 2 {
		t.Fatalf("expected pushes to room and user room, got %v", router.calls)
	}
	if router.calls[0].room != "admin_room" || router.calls[0].event != EventNotification {
		t.Errorf("first push = %+v", router.calls[0])
	}
	if router.calls[1].room != "user_"+userID.String() {
		t.Errorf("second push room = %q", router.calls[1].room)
	}
}

func TestNotifyWithoutRecipientSkipsUserRoom(t *testing.T) {
	repo := &mockRepo{}
	router := &mockRouter{}
	svc := NewService(repo, router)

	if err := svc.Notify(context.Background(), "t", "m", "department_x", uuid.Nil, nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(router.calls) != 1 {
		t.Fatalf("expected a single room push, got %v", router.calls)
	}
	if repo.created[0].To != nil {
		t.Errorf("recipient should be unset, got %v", repo.created[0].To)
	}
}

func TestNotificationWireShape(t *testing.T) {
	to := uuid.New()
	room := "admin_room"
	n := Notification{
		ID:      uuid.New(),
		Title:   "Report uploaded",
		Message: "ready",
		To:      &to,
		Room:    &room,
		IsRead:  false,
		Data:    map[string]interface{}{"report_id": "r1"},
	}

	raw, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"title", "message", "to", "room", "isRead", "data", "createdAt", "updatedAt"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("wire payload missing %q: %s", key, raw)
		}
	}

	var back Notification
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if back.Title != n.Title || back.To == nil || *back.To != to {
		t.Errorf("round trip lost fields: %+v", back)
	}
}
