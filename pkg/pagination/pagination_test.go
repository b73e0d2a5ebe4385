package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", DefaultLimit, 0},
		{"limit=50&offset=10", 50, 10},
		{"limit=0", DefaultLimit, 0},
		{"limit=-5&offset=-3", DefaultLimit, 0},
		{"limit=500", MaxLimit, 0},
		{"limit=abc&offset=xyz", DefaultLimit, 0},
	}

	for _, tt := range tests {
		got := paramsFor(t, tt.query)
		if got.Limit != tt.wantLimit || got.Offset != tt.wantOffset {
			t.Errorf("query %q: got %+v, want limit=%d offset=%d",
				tt.query, got, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestHasMore(t *testing.T) {
	if r := NewResponse(nil, 100, 20, 0); !r.HasMore {
		t.Error("page 1 of 5 should have more")
	}
	if r := NewResponse(nil, 100, 20, 80); r.HasMore {
		t.Error("last page should not have more")
	}
	if r := NewResponse(nil, 10, 20, 0); r.HasMore {
		t.Error("single short page should not have more")
	}
}
