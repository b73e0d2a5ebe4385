package workflow

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

func newTestContext(method, path, body string, roles []string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	ctx := context.WithValue(req.Context(), auth.UserRolesKey, roles)
	ctx = context.WithValue(ctx, auth.UserIDKey, uuid.New().String())
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return http.StatusOK
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("not an HTTPError: %v", err)
	}
	return httpErr.Code
}

func TestCreateCaseUnpaidPatientReturns412(t *testing.T) {
	svc, _, _, patients, _ := newTestService()
	h := NewHandler(svc)

	patientID := uuid.New()
	patients.info[patientID] = &PatientInfo{ID: patientID, PaymentStatus: "pending"}

	body := `{"patient_id":"` + patientID.String() + `","department_id":"` + uuid.NewString() + `"}`
	c, _ := newTestContext(http.MethodPost, "/cases", body, []string{"department"})

	if got := httpStatus(t, h.CreateCase(c)); got != http.StatusPreconditionFailed {
		t.Errorf("status = %d, want 412", got)
	}
}

func TestCreateCaseMissingPatientReturns404(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	h := NewHandler(svc)

	body := `{"patient_id":"` + uuid.NewString() + `","department_id":"` + uuid.NewString() + `"}`
	c, _ := newTestContext(http.MethodPost, "/cases", body, []string{"department"})

	if got := httpStatus(t, h.CreateCase(c)); got != http.StatusNotFound {
		t.Errorf("status = %d, want 404", got)
	}
}

func TestCreateReportMissingPatientReturns404(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	h := NewHandler(svc)

	body := `{"patient_id":"` + uuid.NewString() + `"}`
	c, _ := newTestContext(http.MethodPost, "/reports", body, []string{"doctor"})

	if got := httpStatus(t, h.CreateReport(c)); got != http.StatusNotFound {
		t.Errorf("status = %d, want 404", got)
	}
}

func TestQuickCreateReportConflictReturns409(t *testing.T) {
	svc, _, _, patients, _ := newTestService()
	h := NewHandler(svc)
	patientID := paidPatient(patients)

	cs, err := svc.CreateCase(context.Background(), CreateCaseInput{
		PatientID:    patientID,
		DepartmentID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("CreateCase: %v", err)
	}
	if _, err := svc.QuickCreateReport(context.Background(), cs.ID, nil); err != nil {
		t.Fatalf("QuickCreateReport: %v", err)
	}

	c, _ := newTestContext(http.MethodPost, "/", "", []string{"department"})
	c.SetParamNames("id")
	c.SetParamValues(cs.ID.String())

	if got := httpStatus(t, h.QuickCreateReport(c)); got != http.StatusConflict {
		t.Errorf("status = %d, want 409", got)
	}
}

func TestChangeStatusUnknownReportReturns404(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	h := NewHandler(svc)

	c, _ := newTestContext(http.MethodPatch, "/", `{"status":"approved"}`, []string{"admin"})
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	if got := httpStatus(t, h.ChangeReportStatus(c)); got != http.StatusNotFound {
		t.Errorf("status = %d, want 404", got)
	}
}

func TestChangeStatusOverrideNeedsAdmin(t *testing.T) {
	svc, _, _, patients, _ := newTestService()
	h := NewHandler(svc)
	patientID := paidPatient(patients)

	rep, err := svc.CreateReport(context.Background(), CreateReportInput{
		PatientID: patientID,
		Status:    ReportReviewed,
	})
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}

	body := `{"status":"pending","override":true}`
	c, _ := newTestContext(http.MethodPatch, "/", body, []string{"department"})
	c.SetParamNames("id")
	c.SetParamValues(rep.ID.String())

	if got := httpStatus(t, h.ChangeReportStatus(c)); got != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for non-admin override", got)
	}

	// Same request from an admin succeeds.
	c, rec := newTestContext(http.MethodPatch, "/", body, []string{"admin"})
	c.SetParamNames("id")
	c.SetParamValues(rep.ID.String())

	if err := h.ChangeReportStatus(c); err != nil {
		t.Fatalf("admin override failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("admin override status = %d", rec.Code)
	}
}

func TestChangeStatusBackwardReturns400(t *testing.T) {
	svc, _, _, patients, _ := newTestService()
	h := NewHandler(svc)
	patientID := paidPatient(patients)

	rep, err := svc.CreateReport(context.Background(), CreateReportInput{
		PatientID: patientID,
		Status:    ReportReviewed,
	})
	if err != nil {
		t.Fatalf("CreateReport: %v", err)
	}

	c, _ := newTestContext(http.MethodPatch, "/", `{"status":"pending"}`, []string{"department"})
	c.SetParamNames("id")
	c.SetParamValues(rep.ID.String())

	if got := httpStatus(t, h.ChangeReportStatus(c)); got != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", got)
	}
}
