package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ris/ris/internal/platform/auth"
)

func newTestContext(method, path, body, userID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx := context.WithValue(req.Context(), auth.UserRolesKey, []string{"reception"})
	ctx = context.WithValue(ctx, auth.UserIDKey, userID)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestCreateRecordsActingUser(t *testing.T) {
	svc, repo, _ := newTestService()
	h := NewHandler(svc)

	userID := uuid.New()
	body := `{"report_id":"` + uuid.NewString() + `","patient_id":"` + uuid.NewString() + `","amount":500,"method":"cash"}`
	c, rec := newTestContext(http.MethodPost, "/payments", body, userID.String())

	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	if len(repo.payments) != 1 {
		t.Fatalf("payments stored = %d, want 1", len(repo.payments))
	}
	for _, p := range repo.payments {
		if p.MadeBy == nil || *p.MadeBy != userID {
			t.Errorf("made_by = %v, want %s", p.MadeBy, userID)
		}
	}
}

func TestCreateWithoutUserLeavesMadeByEmpty(t *testing.T) {
	svc, repo, _ := newTestService()
	h := NewHandler(svc)

	body := `{"report_id":"` + uuid.NewString() + `","patient_id":"` + uuid.NewString() + `","amount":500,"method":"cash"}`
	c, _ := newTestContext(http.MethodPost, "/payments", body, "")

	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, p := range repo.payments {
		if p.MadeBy != nil {
			t.Errorf("made_by = %v, want nil", p.MadeBy)
		}
	}
}
