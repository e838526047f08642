package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"salary-dashboard/internal/services"
)

func sseRequest(signals string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/sse/report?datastar="+url.QueryEscape(signals), nil)
}

func TestNewSSEHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	logger := testLogger()

	handlers := NewSSEHandlers(analytics, logger)

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewSSEHandlers() should set analytics field")
	}
	if handlers.logger != logger {
		t.Error("NewSSEHandlers() should set logger field")
	}
}

func TestSSEHandlers_HandleReport(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())
	w := httptest.NewRecorder()

	handlers.HandleReport(w, sseRequest(`{"years":[2021,2022],"title":"Data Scientist"}`))

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("expected content-type to contain 'text/event-stream', got %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("expected cache-control 'no-cache', got %q", cc)
	}

	body := w.Body.String()
	expected := []string{
		`id="metrics"`,
		"$100,000",
		"topTitles",
		"histogram",
		"byExperience",
		"countries",
		`id="country-notice"`,
	}
	for _, want := range expected {
		if !strings.Contains(body, want) {
			t.Errorf("response should contain %q", want)
		}
	}
	if strings.Contains(body, "No data found") {
		t.Error("non-empty selection should not patch the warning")
	}
}

func TestSSEHandlers_HandleReport_Empty(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())
	w := httptest.NewRecorder()

	handlers.HandleReport(w, sseRequest(`{"experience":[]}`))

	body := w.Body.String()
	if !strings.Contains(body, "No data found for the selected filters.") {
		t.Error("empty selection should patch the no data warning")
	}
	if !strings.Contains(body, `"empty":true`) {
		t.Error("empty selection should patch empty chart signals")
	}
	if strings.Contains(body, "null") {
		t.Error("chart signals should never be null")
	}
}

func TestSSEHandlers_HandleReport_CountryNotice(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())
	w := httptest.NewRecorder()

	handlers.HandleReport(w, sseRequest(`{"years":[2023]}`))

	body := w.Body.String()
	if !strings.Contains(body, "Not enough data for Data Scientist") {
		t.Error("missing focus title rows should patch the country notice")
	}
}

func TestSSEHandlers_HandleReport_InvalidSignals(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())
	w := httptest.NewRecorder()

	handlers.HandleReport(w, sseRequest(`{"years":"all"}`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestReportSignals_Selection(t *testing.T) {
	defaults := services.Selection{
		Years:            []int{2021},
		ExperienceLevels: []string{"senior"},
		EmploymentTypes:  []string{"full-time"},
		CompanySizes:     []string{"large"},
	}

	sel := reportSignals{Employment: []string{}}.selection(defaults)

	if len(sel.Years) != 1 || len(sel.ExperienceLevels) != 1 || len(sel.CompanySizes) != 1 {
		t.Errorf("unsent signals should keep defaults, got %+v", sel)
	}
	if sel.EmploymentTypes == nil || len(sel.EmploymentTypes) != 0 {
		t.Errorf("sent empty list should select nothing, got %v", sel.EmploymentTypes)
	}
}
