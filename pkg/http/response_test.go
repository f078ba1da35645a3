package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAppErrorResponseStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unavailable", UnavailableError("monitor not available"), http.StatusServiceUnavailable},
		{"wrapped", UnprocessableError("alert_threshold", "out of range").WithError(errors.New("bounds")), http.StatusUnprocessableEntity},
		{"bad request", BadRequestError("nothing to update"), http.StatusBadRequest},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	e := echo.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			if err := AppErrorResponse(c, tc.err); err != nil {
				t.Fatalf("write: %v", err)
			}
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
