package department

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	departments map[uuid.UUID]*Department
}

func newMockRepo() *mockRepo {
	return &mockRepo{departments: make(map[uuid.UUID]*Department)}
}

func (m *mockRepo) Create(_ context.Context, d *Department) error {
	for _, existing := range m.departments {
		if existing.Code == d.Code {
			return ErrDuplicateCode
		}
	}
	d.ID = uuid.New()
	copied := *d
	m.departments[d.ID] = &copied
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Department, error) {
	d, ok := m.departments[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (m *mockRepo) GetByCode(_ context.Context, code string) (*Department, error) {
	for _, d := range m.departments {
		if d.Code == code {
			copied := *d
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, d *Department) error {
	if _, ok := m.departments[d.ID]; !ok {
		return ErrNotFound
	}
	copied := *d
	m.departments[d.ID] = &copied
	return nil
}

func (m *mockRepo) List(_ context.Context, _ bool, _, _ int) ([]*Department, int, error) {
	items := []*Department{}
	for _, d := range m.departments {
		items = append(items, d)
	}
	return items, len(items), nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.departments, id)
	return nil
}

type mockPatientSync struct {
	refreshed map[uuid.UUID]string
}

func (m *mockPatientSync) RefreshAssignedDepartmentName(_ context.Context, departmentID uuid.UUID, name string) (int64, error) {
	m.refreshed[departmentID] = name
	return 1, nil
}

func TestCreateActivates(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil)

	d := &Department{Name: "Radiology", Code: "RAD"}
	if err := svc.Create(context.Background(), d); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !d.Active {
		t.Error("new department should be active")
	}
}

func TestRenameRefreshesPatients(t *testing.T) {
	repo := newMockRepo()
	sync := &mockPatientSync{refreshed: make(map[uuid.UUID]string)}
	svc := NewService(repo, sync, nil)

	d := &Department{Name: "Radiology", Code: "RAD"}
	if err := svc.Create(context.Background(), d); err != nil {
		t.Fatalf("Create: %v", err)
	}

	d.Name = "Imaging"
	if err := svc.Update(context.Background(), d); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if sync.refreshed[d.ID] != "Imaging" {
		t.Errorf("patient refresh got %q, want Imaging", sync.refreshed[d.ID])
	}
}

func TestUpdateWithoutRenameSkipsRefresh(t *testing.T) {
	repo := newMockRepo()
	sync := &mockPatientSync{refreshed: make(map[uuid.UUID]string)}
	svc := NewService(repo, sync, nil)

	d := &Department{Name: "Radiology", Code: "RAD"}
	if err := svc.Create(context.Background(), d); err != nil {
		t.Fatalf("Create: %v", err)
	}

	desc := "updated description"
	d.Description = &desc
	if err := svc.Update(context.Background(), d); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(sync.refreshed) != 0 {
		t.Errorf("refresh ran without a rename: %v", sync.refreshed)
	}
}

func TestDuplicateCode(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil)

	if err := svc.Create(context.Background(), &Department{Name: "Radiology", Code: "RAD"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Create(context.Background(), &Department{Name: "Radiography", Code: "RAD"}); err != ErrDuplicateCode {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}
}
