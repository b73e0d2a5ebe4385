package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func requestWithRoles(roles []string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), UserRolesKey, roles)
	req = req.WithContext(ctx)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole("department")(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	if err := handler(requestWithRoles([]string{"department"})); err != nil {
		t.Errorf("matching role rejected: %v", err)
	}
	if err := handler(requestWithRoles([]string{"admin"})); err != nil {
		t.Errorf("admin rejected: %v", err)
	}

	err := handler(requestWithRoles([]string{"reception"}))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("wrong role: expected 403, got %v", err)
	}

	if err := handler(requestWithRoles(nil)); err == nil {
		t.Error("anonymous request passed a role gate")
	}
}

func TestJWTMiddlewareRoundTrip(t *testing.T) {
	signer := NewSigner("0123456789abcdef0123456789abcdef", "test")
	token, err := signer.Sign("user-7", []string{"doctor"}, "", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c := e.NewContext(req, httptest.NewRecorder())

	var gotID string
	var gotRoles []string
	handler := JWTMiddleware(signer)(func(c echo.Context) error {
		gotID = UserIDFromContext(c.Request().Context())
		gotRoles = RolesFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if gotID != "user-7" {
		t.Errorf("user id = %q", gotID)
	}
	if len(gotRoles) != 1 || gotRoles[0] != "doctor" {
		t.Errorf("roles = %v", gotRoles)
	}
}

func TestJWTMiddlewareRejectsGarbage(t *testing.T) {
	signer := NewSigner("0123456789abcdef0123456789abcdef", "test")
	handler := JWTMiddleware(signer)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	e := echo.New()

	for _, header := range []string{"", "Basic abc", "Bearer not-a-token"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		err := handler(e.NewContext(req, httptest.NewRecorder()))
		httpErr, ok := err.(*echo.HTTPError)
		if !ok || httpErr.Code != http.StatusUnauthorized {
			t.Errorf("header %q: expected 401, got %v", header, err)
		}
	}
}
