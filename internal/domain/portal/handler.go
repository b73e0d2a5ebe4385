package portal

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ris/ris/internal/domain/workflow"
	"github.com/ris/ris/internal/platform/auth"
	"github.com/ris/ris/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the OTP endpoints on the public group and the
// report endpoints behind the patient role.
func (h *Handler) RegisterRoutes(public, authed *echo.Group) {
	public.POST("/portal/otp/request", h.RequestOTP)
	public.POST("/portal/otp/verify", h.VerifyOTP)

	g := authed.Group("", auth.RequireRole("patient"))
	g.GET("/portal/reports", h.ListReports)
	g.GET("/portal/reports/:id", h.GetReport)
}

// patientFromContext reads the patient record id the portal token carries.
func patientFromContext(c echo.Context) (uuid.UUID, error) {
	raw := auth.PatientIDFromContext(c.Request().Context())
	if raw == "" {
		return uuid.Nil, errors.New("token carries no patient identity")
	}
	return uuid.Parse(raw)
}

type otpRequest struct {
	Phone string `json:"phone"`
}

func (h *Handler) RequestOTP(c echo.Context) error {
	var req otpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Phone == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "phone is required")
	}

	if err := h.svc.RequestOTP(c.Request().Context(), req.Phone); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "code sent"})
}

type otpVerifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

func (h *Handler) VerifyOTP(c echo.Context) error {
	var req otpVerifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Phone == "" || req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "phone and code are required")
	}

	token, err := h.svc.VerifyOTP(c.Request().Context(), req.Phone, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, ErrOTPNotFound), errors.Is(err, ErrOTPExpired),
			errors.Is(err, ErrOTPMismatch):
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		case errors.Is(err, ErrPatientNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) ListReports(c echo.Context) error {
	patientID, err := patientFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListReports(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetReport(c echo.Context) error {
	patientID, err := patientFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}

	reportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	rep, err := h.svc.GetReport(c.Request().Context(), patientID, reportID)
	if err != nil {
		if errors.Is(err, workflow.ErrReportNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "report not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rep)
}
