package overlay

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stubController struct {
	status       Status
	reloadRegion string
	reloadSecret string
}

func (s *stubController) OverlayStatus() Status { return s.status }
func (s *stubController) ReloadCredential(region, secret string) {
	s.reloadRegion = region
	s.reloadSecret = secret
}

func TestRoutes_Healthz(t *testing.T) {
	r := Routes(NewHub(nil), &stubController{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRoutes_StatusReflectsController(t *testing.T) {
	ctrl := &stubController{status: Status{Phase: "ChampSelect", ActiveAdvisor: "draft", SchedulerState: "Running"}}
	r := Routes(NewHub(nil), ctrl)

	req := httptest.NewRequest(http.MethodGet, "/control/status", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "ChampSelect") || !strings.Contains(body, "draft") {
		t.Fatalf("expected body to reflect controller status, got %q", body)
	}
}

func TestRoutes_ReloadKeyRejectsMissingSecret(t *testing.T) {
	ctrl := &stubController{}
	r := Routes(NewHub(nil), ctrl)

	req := httptest.NewRequest(http.MethodPost, "/control/reload-key", strings.NewReader(`{"region":"na1"}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if ctrl.reloadSecret != "" {
		t.Fatalf("expected ReloadCredential not to be called")
	}
}

func TestRoutes_ReloadKeyForwardsToController(t *testing.T) {
	ctrl := &stubController{}
	r := Routes(NewHub(nil), ctrl)

	req := httptest.NewRequest(http.MethodPost, "/control/reload-key", strings.NewReader(`{"region":"na1","secret":"fresh-key"}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if ctrl.reloadRegion != "na1" || ctrl.reloadSecret != "fresh-key" {
		t.Fatalf("expected controller to receive region/secret, got %q/%q", ctrl.reloadRegion, ctrl.reloadSecret)
	}
}
