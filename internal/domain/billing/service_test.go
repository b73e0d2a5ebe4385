package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	payments map[uuid.UUID]*Payment
}

func newMockRepo() *mockRepo {
	return &mockRepo{payments: make(map[uuid.UUID]*Payment)}
}

func (m *mockRepo) Create(_ context.Context, p *Payment) error {
	p.ID = uuid.New()
	copied := *p
	m.payments[p.ID] = &copied
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockRepo) List(_ context.Context, _ Filter, _, _ int) ([]*Payment, int, error) {
	items := []*Payment{}
	for _, p := range m.payments {
		items = append(items, p)
	}
	return items, len(items), nil
}

func (m *mockRepo) SetStatus(_ context.Context, id uuid.UUID, status PaymentStatus) error {
	p, ok := m.payments[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.payments, id)
	return nil
}

type mockReports struct {
	statuses map[uuid.UUID]string
}

func (m *mockReports) SetPaymentStatus(_ context.Context, reportID uuid.UUID, status string) error {
	m.statuses[reportID] = status
	return nil
}

func newTestService() (*Service, *mockRepo, *mockReports) {
	repo := newMockRepo()
	reports := &mockReports{statuses: make(map[uuid.UUID]string)}
	return NewService(repo, reports, nil), repo, reports
}

func TestCreateDefaultsToPending(t *testing.T) {
	svc, _, reports := newTestService()

	p := &Payment{ReportID: uuid.New(), PatientID: uuid.New(), Amount: 500}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Status != PaymentPending {
		t.Errorf("status = %s, want pending", p.Status)
	}
	if p.Currency != "INR" {
		t.Errorf("currency = %s, want INR default", p.Currency)
	}
	if len(reports.statuses) != 0 {
		t.Errorf("pending payment touched the report: %v", reports.statuses)
	}
}

func TestCreateSuccessMarksReportPaid(t *testing.T) {
	svc, _, reports := newTestService()

	reportID := uuid.New()
	p := &Payment{ReportID: reportID, PatientID: uuid.New(), Amount: 500, Status: PaymentSuccess}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if reports.statuses[reportID] != "paid" {
		t.Errorf("report payment status = %q, want paid", reports.statuses[reportID])
	}
}

func TestUpdateStatusPropagates(t *testing.T) {
	svc, _, reports := newTestService()

	reportID := uuid.New()
	p := &Payment{ReportID: reportID, PatientID: uuid.New(), Amount: 500}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.UpdateStatus(context.Background(), p.ID, PaymentSuccess)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != PaymentSuccess {
		t.Errorf("status = %s, want success", updated.Status)
	}
	if reports.statuses[reportID] != "paid" {
		t.Errorf("report payment status = %q, want paid", reports.statuses[reportID])
	}

	if _, err := svc.UpdateStatus(context.Background(), p.ID, PaymentRefunded); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if reports.statuses[reportID] != "refunded" {
		t.Errorf("report payment status = %q, want refunded", reports.statuses[reportID])
	}
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.UpdateStatus(context.Background(), uuid.New(), PaymentStatus("gone")); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestUpdateStatusUnknownPayment(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.UpdateStatus(context.Background(), uuid.New(), PaymentSuccess); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
