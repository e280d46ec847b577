package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"stemforge/internal/config"

	"github.com/gin-gonic/gin"
)

func TestHealth(t *testing.T) {
	r, _, _ := setupServer(t, newFakeProvider())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status = %q", body["status"])
	}
}

type planLimitsBody struct {
	Plans []struct {
		Key                 string `json:"key"`
		Name                string `json:"name"`
		MaxUploadBytes      int64  `json:"maxUploadBytes"`
		MaxMonthlyRenders   *int64 `json:"maxMonthlyRenders"`
		SignedURLTTLSeconds int64  `json:"signedUrlTtlSeconds"`
	} `json:"plans"`
	HasIdentityProviderConfigured bool `json:"hasIdentityProviderConfigured"`
}

func TestPlanLimits(t *testing.T) {
	r, _, _ := setupServer(t, newFakeProvider())

	req := httptest.NewRequest(http.MethodGet, "/api/plan-limits", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}

	var body planLimitsBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Plans) != 3 {
		t.Fatalf("expected 3 plans, got %d", len(body.Plans))
	}
	if body.HasIdentityProviderConfigured {
		t.Fatalf("expected provider unconfigured in tests")
	}

	byKey := map[string]*int64{}
	for _, p := range body.Plans {
		byKey[p.Key] = p.MaxMonthlyRenders
	}
	if v, ok := byKey["free"]; !ok || v == nil || *v != 25 {
		t.Fatalf("free renders = %v", v)
	}
	if v, ok := byKey["enterprise"]; !ok || v != nil {
		t.Fatalf("enterprise renders must be null, got %v", v)
	}
}

func TestPlanLimitsReportsConfiguredProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		SupabaseURL:     "https://example.supabase.co",
		SupabaseAnonKey: "anon",
	}
	h := NewMetaHandler(cfg)

	r := gin.New()
	r.GET("/api/plan-limits", h.PlanLimits)
	req := httptest.NewRequest(http.MethodGet, "/api/plan-limits", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body planLimitsBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.HasIdentityProviderConfigured {
		t.Fatalf("expected provider to be reported as configured")
	}
}
