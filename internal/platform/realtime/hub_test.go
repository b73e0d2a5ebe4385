package realtime

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestRoomNames(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	if got, want := DepartmentRoom(id), "department_"+id.String(); got != want {
		t.Errorf("DepartmentRoom = %q, want %q", got, want)
	}
	if got, want := PatientRoom(id), "patient_"+id.String(); got != want {
		t.Errorf("PatientRoom = %q, want %q", got, want)
	}
	if got, want := UserRoom(id), "user_"+id.String(); got != want {
		t.Errorf("UserRoom = %q, want %q", got, want)
	}
	if AdminRoom != "admin_room" {
		t.Errorf("AdminRoom = %q, want admin_room", AdminRoom)
	}
}

func TestPublishReachesOnlyRoomMembers(t *testing.T) {
	hub := NewHub()

	member := NewClient()
	member.Rooms = []string{"department_x"}
	outsider := NewClient()
	hub.Register(member)
	hub.Register(outsider)

	hub.Publish("department_x", "new_report", map[string]string{"id": "r1"})

	select {
	case raw := <-member.Send:
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if ev.Event != "new_report" || ev.Room != "department_x" {
			t.Errorf("event = %+v", ev)
		}
	default:
		t.Fatal("room member received nothing")
	}

	select {
	case <-outsider.Send:
		t.Fatal("outsider received a room-scoped event")
	default:
	}
}

func TestPublishGlobalReachesEveryone(t *testing.T) {
	hub := NewHub()

	a := NewClient()
	b := NewClient()
	b.Rooms = []string{"admin_room"}
	hub.Register(a)
	hub.Register(b)

	hub.PublishGlobal("status_changed", map[string]string{"id": "r1"})

	for _, c := range []*Client{a, b} {
		select {
		case <-c.Send:
		default:
			t.Fatal("client missed a global event")
		}
	}
}

func TestJoinAndLeave(t *testing.T) {
	hub := NewHub()

	c := NewClient()
	hub.Register(c)

	hub.Join(c, []string{"patient_1", "patient_2"})
	if hub.RoomCount("patient_1") != 1 || hub.RoomCount("patient_2") != 1 {
		t.Fatal("join did not subscribe the client")
	}

	hub.Leave(c, []string{"patient_1"})
	if hub.RoomCount("patient_1") != 0 {
		t.Error("leave did not unsubscribe the client")
	}
	if hub.RoomCount("patient_2") != 1 {
		t.Error("leave removed an unrelated room")
	}

	hub.ProcessMessage(c, ClientMessage{Action: "leave", Rooms: []string{"patient_2"}})
	if hub.RoomCount("patient_2") != 0 {
		t.Error("leave via control message did not unsubscribe")
	}
}

func TestUnregisterClosesAndCleansUp(t *testing.T) {
	hub := NewHub()

	c := NewClient()
	c.Rooms = []string{"admin_room"}
	hub.Register(c)
	hub.Unregister(c)

	if hub.ClientCount() != 0 || hub.RoomCount("admin_room") != 0 {
		t.Error("unregister left state behind")
	}
	if _, open := <-c.Send; open {
		t.Error("send channel still open after unregister")
	}

	// A second unregister is a safe no-op.
	hub.Unregister(c)
}

func TestNilRouterIsNoOp(t *testing.T) {
	// Must not panic.
	Publish(nil, "admin_room", "notification", map[string]string{})
	PublishGlobal(nil, "notification", map[string]string{})
}

func TestSlowConsumerIsSkipped(t *testing.T) {
	hub := NewHub()

	c := NewClient()
	c.Send = make(chan []byte) // unbuffered, nobody reading
	c.Rooms = []string{"admin_room"}
	hub.Register(c)

	// Must not block.
	hub.Publish("admin_room", "notification", map[string]string{"x": "y"})
}
