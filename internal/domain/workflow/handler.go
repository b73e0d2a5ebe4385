package workflow

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ris/ris/internal/platform/auth"
	"github.com/ris/ris/internal/platform/blobstore"
	"github.com/ris/ris/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "reception", "department", "doctor"))
	read.GET("/cases", h.ListCases)
	read.GET("/cases/:id", h.GetCase)
	read.GET("/reports", h.ListReports)
	read.GET("/reports/:id", h.GetReport)

	write := api.Group("", auth.RequireRole("admin", "department", "doctor"))
	write.POST("/cases", h.CreateCase)
	write.POST("/cases/:id/report", h.QuickCreateReport)
	write.PATCH("/cases/:id/status", h.ChangeCaseStatus)
	write.POST("/reports", h.CreateReport)
	write.PUT("/reports/:id", h.UpdateReport)
	write.POST("/reports/:id/file", h.UploadReportFile)
	write.PATCH("/reports/:id/status", h.ChangeReportStatus)

	admin := api.Group("", auth.RequireRole("admin"))
	admin.DELETE("/cases/:id", h.DeleteCase)
	admin.DELETE("/reports/:id", h.DeleteReport)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrCaseNotFound), errors.Is(err, ErrReportNotFound),
		errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrPatientNotPaid):
		return echo.NewHTTPError(http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, ErrReportExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrIllegalTransition):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func actingUserID(c echo.Context) *uuid.UUID {
	if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
		if parsed, err := uuid.Parse(uid); err == nil {
			return &parsed
		}
	}
	return nil
}

// -- Cases --

type createCaseRequest struct {
	PatientID    uuid.UUID  `json:"patient_id"`
	DepartmentID uuid.UUID  `json:"department_id"`
	AssignedTo   *uuid.UUID `json:"assigned_to,omitempty"`
	Procedure    *string    `json:"procedure,omitempty"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
}

func (h *Handler) CreateCase(c echo.Context) error {
	var req createCaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientID == uuid.Nil || req.DepartmentID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id and department_id are required")
	}

	cs, err := h.svc.CreateCase(c.Request().Context(), CreateCaseInput{
		PatientID:    req.PatientID,
		DepartmentID: req.DepartmentID,
		AssignedTo:   req.AssignedTo,
		Procedure:    req.Procedure,
		ScheduledAt:  req.ScheduledAt,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, cs)
}

func (h *Handler) GetCase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cs, err := h.svc.GetCase(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) ListCases(c echo.Context) error {
	pg := pagination.FromContext(c)

	f := CaseFilter{Status: CaseStatus(c.QueryParam("status"))}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	if v := c.QueryParam("department_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid department_id")
		}
		f.DepartmentID = &id
	}

	items, total, err := h.svc.ListCases(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type changeCaseStatusRequest struct {
	Status CaseStatus `json:"status"`
}

func (h *Handler) ChangeCaseStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req changeCaseStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cs, err := h.svc.ChangeCaseStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) DeleteCase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteCase(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Reports --

func (h *Handler) QuickCreateReport(c echo.Context) error {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rep, err := h.svc.QuickCreateReport(c.Request().Context(), caseID, actingUserID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, rep)
}

type createReportRequest struct {
	CaseID       *uuid.UUID   `json:"case_id,omitempty"`
	PatientID    uuid.UUID    `json:"patient_id"`
	DepartmentID *uuid.UUID   `json:"department_id,omitempty"`
	AssignedTo   *uuid.UUID   `json:"assigned_to,omitempty"`
	Status       ReportStatus `json:"status,omitempty"`
	PatientPhone *string      `json:"patient_phone,omitempty"`
	Procedure    *string      `json:"procedure,omitempty"`
	Indication   *string      `json:"indication,omitempty"`
	Technique    *string      `json:"technique,omitempty"`
	Findings     *string      `json:"findings,omitempty"`
	Impression   *string      `json:"impression,omitempty"`
	Conclusion   *string      `json:"conclusion,omitempty"`
	Notes        *string      `json:"notes,omitempty"`
}

func (h *Handler) CreateReport(c echo.Context) error {
	var req createReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}

	rep, err := h.svc.CreateReport(c.Request().Context(), CreateReportInput{
		CaseID:       req.CaseID,
		PatientID:    req.PatientID,
		DepartmentID: req.DepartmentID,
		CreatedBy:    actingUserID(c),
		AssignedTo:   req.AssignedTo,
		Status:       req.Status,
		PatientPhone: req.PatientPhone,
		Procedure:    req.Procedure,
		Indication:   req.Indication,
		Technique:    req.Technique,
		Findings:     req.Findings,
		Impression:   req.Impression,
		Conclusion:   req.Conclusion,
		Notes:        req.Notes,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, rep)
}

func (h *Handler) GetReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rep, err := h.svc.GetReport(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) ListReports(c echo.Context) error {
	pg := pagination.FromContext(c)

	f := ReportFilter{Status: ReportStatus(c.QueryParam("status"))}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	if v := c.QueryParam("department_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid department_id")
		}
		f.DepartmentID = &id
	}

	items, total, err := h.svc.ListReports(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	rep, err := h.svc.GetReport(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}

	var req createReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// Only the clinical text fields are editable through this endpoint.
	// Status changes go through the status endpoint so the transition
	// table cannot be bypassed.
	rep.Procedure = req.Procedure
	rep.Indication = req.Indication
	rep.Technique = req.Technique
	rep.Findings = req.Findings
	rep.Impression = req.Impression
	rep.Conclusion = req.Conclusion
	rep.Notes = req.Notes
	rep.AssignedTo = req.AssignedTo

	if err := h.svc.UpdateReport(c.Request().Context(), rep); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) UploadReportFile(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	uploadedBy := uuid.Nil
	if uid := actingUserID(c); uid != nil {
		uploadedBy = *uid
	}

	rep, err := h.svc.UploadReportFile(c.Request().Context(), id, content, fh.Filename, uploadedBy)
	if err != nil {
		switch {
		case errors.Is(err, blobstore.ErrFileTooLarge):
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, blobstore.ErrExtensionNotAllowed), errors.Is(err, blobstore.ErrMissingFileName):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rep)
}

type changeStatusRequest struct {
	Status   ReportStatus `json:"status"`
	Override bool         `json:"override,omitempty"`
}

func (h *Handler) ChangeReportStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req changeStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// Only admins may bypass the transition table.
	if req.Override {
		isAdmin := false
		for _, r := range auth.RolesFromContext(c.Request().Context()) {
			if r == "admin" {
				isAdmin = true
				break
			}
		}
		if !isAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "override requires the admin role")
		}
	}

	rep, err := h.svc.ChangeReportStatus(c.Request().Context(), id, req.Status, req.Override)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) DeleteReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteReport(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
