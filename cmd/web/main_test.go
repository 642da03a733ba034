package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	"market-dashboard/internal/config"
	"market-dashboard/internal/ingest"
	"market-dashboard/internal/models"
	"market-dashboard/internal/observability"
	"market-dashboard/internal/refdata"
	"market-dashboard/internal/services"
)

// Test helper to create analytics with in-memory data
func newTestAnalytics(t *testing.T) *services.Analytics {
	t.Helper()

	ref, err := refdata.Default()
	if err != nil {
		t.Fatalf("reference data: %v", err)
	}

	logger := observability.Discard()
	loader := ingest.NewLoader(ingest.NewFSSource(fstest.MapFS{}), ref, ingest.LoaderOptions{Logger: logger})
	a := services.NewAnalytics(loader, ref, services.Options{Logger: logger})

	a.SetCommerce([]models.CommerceRecord{
		{District: "강남구", IndustryMajor: "음식", IndustryMid: "커피", IndustryMinor: "커피전문점", ActiveMerchants: 10, SalesAmount: 1_000_000, SalesCount: 100, SalesPerStore: 100_000},
		{District: "중구", IndustryMajor: "음식", IndustryMid: "커피", IndustryMinor: "커피전문점", ActiveMerchants: 5, SalesAmount: 500_000, SalesCount: 50, SalesPerStore: 100_000},
	})
	a.SetFlow("강남구", []models.FlowRecord{
		{District: "강남구", Hour: 14, Gender: models.GenderMale, AgeGroup: 2, ResidentFlow: 300, NonResidentFlow: 200, TotalFlow: 500, DayName: "월"},
		{District: "강남구", Hour: 14, Gender: models.GenderFemale, AgeGroup: 3, ResidentFlow: 100, NonResidentFlow: 300, TotalFlow: 400, DayName: "월"},
	})
	return a
}

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			EnableRateLimit: false,
			RateLimitRPS:    100,
			RateLimitBurst:  10,
			AllowedOrigins:  []string{"http://localhost:8084"},
			TrustedProxies:  []string{"127.0.0.1"},
		},
	}
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	return newHandler(testConfig(), newTestAnalytics(t), observability.NewMetrics(), observability.Discard())
}

// Integration tests for HTTP routes
func TestServer_Routes(t *testing.T) {
	handler := newTestHandler(t)
	district := url.PathEscape("강남구")

	tests := []struct {
		path           string
		expectedStatus int
		contentType    string
	}{
		{"/", http.StatusOK, "text/html"},
		{"/health", http.StatusOK, "application/json"},
		{"/admin/stats", http.StatusOK, "application/json"},
		{"/metrics", http.StatusOK, "text/plain"},
		{"/api/industries", http.StatusOK, "application/json"},
		{"/api/rankings?major=" + url.QueryEscape("음식"), http.StatusOK, "application/json"},
		{"/api/rankings/export?major=" + url.QueryEscape("음식"), http.StatusOK, "spreadsheetml"},
		{"/api/districts/" + district + "/targeting?major=" + url.QueryEscape("음식"), http.StatusOK, "application/json"},
		{"/api/districts/" + district + "/flow/hourly", http.StatusOK, "application/json"},
		{"/api/districts/" + district + "/flow/weekly", http.StatusOK, "application/json"},
		{"/api/districts/" + district + "/residency", http.StatusOK, "application/json"},
		{"/api/districts/nowhere/residency", http.StatusNotFound, "application/json"},
		{"/api/rankings?criterion=bogus", http.StatusBadRequest, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", tt.path, nil)

			handler.ServeHTTP(w, r)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}

			ct := w.Header().Get("Content-Type")
			if !strings.Contains(ct, tt.contentType) {
				t.Errorf("content-type = %q, want %q", ct, tt.contentType)
			}

			if tt.contentType == "application/json" {
				var result any
				if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
					t.Errorf("invalid json: %v", err)
				}
			}

			if w.Header().Get("X-Request-ID") == "" {
				t.Error("expected X-Request-ID header")
			}
		})
	}
}

// Test ranking JSON structure end to end
func TestServer_RankingResponse(t *testing.T) {
	handler := newTestHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/rankings?criterion=totalSales&major="+url.QueryEscape("음식"), nil)
	handler.ServeHTTP(w, r)

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			Status string `json:"status"`
			Ranked []struct {
				District   string  `json:"district"`
				TotalSales float64 `json:"totalSales"`
			} `json:"ranked"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}

	if !response.Success {
		t.Error("expected success=true in response")
	}
	if response.Data.Status != "ok" {
		t.Errorf("status = %q, want ok", response.Data.Status)
	}
	if len(response.Data.Ranked) != 2 {
		t.Fatalf("ranked = %d districts, want 2", len(response.Data.Ranked))
	}
	if response.Data.Ranked[0].District != "강남구" {
		t.Errorf("first district = %q, want 강남구", response.Data.Ranked[0].District)
	}
}

// Test Server-Sent Events routes
func TestServer_SSERoutes(t *testing.T) {
	handler := newTestHandler(t)
	query := "?major=" + url.QueryEscape("음식") + "&district=" + url.QueryEscape("강남구")

	sseRoutes := []string{
		"/sse/rankings",
		"/sse/targeting",
		"/sse/flow",
	}

	for _, route := range sseRoutes {
		t.Run(route, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", route+query, nil)

			handler.ServeHTTP(w, r)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}

			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
				t.Errorf("content-type = %q, should contain 'text/event-stream'", ct)
			}

			if !strings.Contains(w.Body.String(), "event:") {
				t.Error("expected at least one SSE event")
			}
		})
	}
}

func TestServer_UnknownRoute(t *testing.T) {
	handler := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/nothing-here", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestDashboardData(t *testing.T) {
	data := dashboardData(newTestAnalytics(t))

	if len(data.Districts) != 25 {
		t.Errorf("districts = %d, want 25", len(data.Districts))
	}
	if len(data.Majors) != 1 || data.Majors[0] != "음식" {
		t.Errorf("majors = %v, want [음식]", data.Majors)
	}
	if len(data.Mids) != 1 || len(data.Minors) != 1 {
		t.Errorf("mids = %v, minors = %v, want one each", data.Mids, data.Minors)
	}
}

func TestNewSource(t *testing.T) {
	if _, ok := newSource(config.DataConfig{Dir: "data"}, 0).(*ingest.FSSource); !ok {
		t.Error("expected a directory source")
	}
	if _, ok := newSource(config.DataConfig{Dir: "data", BaseURL: "http://example.com/data"}, 0).(*ingest.HTTPSource); !ok {
		t.Error("expected an HTTP source when a base URL is set")
	}
}
