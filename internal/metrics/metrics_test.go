package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mbi-berlin/bipolarpulse/internal/logic/pulse"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/config", "/config"},
		{"/position", "/position"},
		{"/move", "/move"},
		{"/fire", "/fire"},
		{"/status/stream", "/status/stream"},
		{"/metrics", "/metrics"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/.env", "other"},
		{"/move/extra", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizeRoute(tt.path); got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestInstrumentTransform_CountsAndPassesThrough(t *testing.T) {
	tr := InstrumentTransform(pulse.BipolarPulse{})
	okBefore := testutil.ToFloat64(transformCalls.WithLabelValues("physical", "ok"))
	errBefore := testutil.ToFloat64(transformCalls.WithLabelValues("pseudo", "error"))

	v, err := tr.ComputePhysical(int(pulse.Ch2Delay), pulse.NewPseudoPosition(10, 5, 20))
	if err != nil || v != 15 {
		t.Fatalf("ComputePhysical = %g, %v; want 15, nil", v, err)
	}
	if _, err := tr.ComputePseudo(3, pulse.PhysicalPosition{}); !errors.Is(err, pulse.ErrInvalidAxisIndex) {
		t.Fatalf("ComputePseudo(3) err = %v, want ErrInvalidAxisIndex", err)
	}

	if got := testutil.ToFloat64(transformCalls.WithLabelValues("physical", "ok")); got != okBefore+1 {
		t.Errorf("physical ok = %g, want %g", got, okBefore+1)
	}
	if got := testutil.ToFloat64(transformCalls.WithLabelValues("pseudo", "error")); got != errBefore+1 {
		t.Errorf("pseudo error = %g, want %g", got, errBefore+1)
	}
	if roles := tr.PhysicalRoles(); len(roles) != pulse.NumPhysical {
		t.Errorf("PhysicalRoles = %v", roles)
	}
}

func TestMiddleware_RecordsStatus(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("other", "GET", "418"))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", w.Code)
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("other", "GET", "418")); got != before+1 {
		t.Errorf("counter = %g, want %g", got, before+1)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	ObserveMove("pseudo", nil)
	SetAxisPosition("ch1_high", 1.5)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	for _, want := range []string{
		`bipolarpulse_moves_total{kind="pseudo",result="ok"}`,
		`bipolarpulse_axis_position{role="ch1_high"} 1.5`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
