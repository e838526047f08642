package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"salary-dashboard/internal/models"
	"salary-dashboard/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func createTestAnalytics() *services.Analytics {
	a := services.NewAnalytics(services.ReportConfig{
		TopTitles:     10,
		HistogramBins: 5,
		FocusTitle:    "Data Scientist",
	})
	a.SetDataset(&models.Dataset{Records: []models.Record{
		{Year: 2021, ExperienceLevel: "senior", EmploymentType: "full-time", CompanySize: "large", JobTitle: "Data Scientist", Residence: "US", SalaryUSD: 150000},
		{Year: 2022, ExperienceLevel: "mid", EmploymentType: "full-time", CompanySize: "medium", JobTitle: "Data Analyst", Residence: "BR", SalaryUSD: 60000},
		{Year: 2022, ExperienceLevel: "senior", EmploymentType: "contract", CompanySize: "large", JobTitle: "Data Scientist", Residence: "DE", SalaryUSD: 90000},
		{Year: 2023, ExperienceLevel: "entry", EmploymentType: "part-time", CompanySize: "small", JobTitle: "ML Engineer", Residence: "US", SalaryUSD: 40000},
	}})
	return a
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func serve(t *testing.T, handler http.HandlerFunc, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()

	handler(w, req)

	var body envelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	return w, body
}

func TestNewAPIHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	handlers := NewAPIHandlers(analytics, testLogger())

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewAPIHandlers() should set analytics field")
	}
}

func TestAPIHandlers_HandleSummary(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	w, body := serve(t, handlers.HandleSummary, "/api/summary?year=2022&experience=senior")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected content-type 'application/json', got %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); cc != cacheControl {
		t.Errorf("expected cache-control %q, got %q", cacheControl, cc)
	}

	var summary models.SummaryMetrics
	if err := json.Unmarshal(body.Data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	want := models.SummaryMetrics{MeanSalary: 90000, MaxSalary: 90000, RecordCount: 1, MostFrequentTitle: "Data Scientist"}
	if summary != want {
		t.Errorf("summary = %+v, want %+v", summary, want)
	}
}

func TestAPIHandlers_HandleSummary_Empty(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	w, body := serve(t, handlers.HandleSummary, "/api/summary?year=1999")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var data map[string]bool
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !data["empty"] {
		t.Errorf("expected empty=true, got %s", body.Data)
	}
}

func TestAPIHandlers_BadRequests(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	tests := []struct {
		name    string
		handler http.HandlerFunc
		target  string
	}{
		{"invalid year", handlers.HandleSummary, "/api/summary?year=twenty"},
		{"zero n", handlers.HandleTopTitles, "/api/top-titles?n=0"},
		{"text n", handlers.HandleTopTitles, "/api/top-titles?n=ten"},
		{"negative bins", handlers.HandleHistogram, "/api/histogram?bins=-3"},
		{"report with invalid year", handlers.HandleReport, "/api/report?year=x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := serve(t, tt.handler, tt.target)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
			if body.Success || body.Error == nil || body.Error.Code != "BAD_REQUEST" {
				t.Errorf("unexpected body: %+v", body)
			}
		})
	}
}

func TestAPIHandlers_HandleTopTitles(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	_, body := serve(t, handlers.HandleTopTitles, "/api/top-titles?n=2")

	var titles []models.TitleSalary
	if err := json.Unmarshal(body.Data, &titles); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(titles) != 2 {
		t.Fatalf("len(titles) = %d, want 2", len(titles))
	}
	// Ascending by mean: Data Analyst 60000, Data Scientist 120000.
	if titles[0].Title != "Data Analyst" || titles[1].Title != "Data Scientist" {
		t.Errorf("titles = %+v", titles)
	}
}

func TestAPIHandlers_HandleHistogram(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	_, body := serve(t, handlers.HandleHistogram, "/api/histogram?bins=4")

	var bins []models.HistogramBin
	if err := json.Unmarshal(body.Data, &bins); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(bins) != 4 {
		t.Fatalf("len(bins) = %d, want 4", len(bins))
	}
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	if total != 4 {
		t.Errorf("histogram counts sum = %d, want 4", total)
	}
}

func TestAPIHandlers_HandleCountries(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	tests := []struct {
		target string
		want   int
	}{
		{"/api/countries", 2},
		{"/api/countries?title=ML+Engineer", 1},
		{"/api/countries?title=Data+Scientist&year=2021", 1},
		{"/api/countries?title=Nobody", 0},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			_, body := serve(t, handlers.HandleCountries, tt.target)

			var countries []models.CountrySalary
			if err := json.Unmarshal(body.Data, &countries); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if countries == nil {
				t.Fatal("countries should be an empty array, not null")
			}
			if len(countries) != tt.want {
				t.Errorf("len(countries) = %d, want %d", len(countries), tt.want)
			}
		})
	}
}

func TestAPIHandlers_HandleReport(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	_, body := serve(t, handlers.HandleReport, "/api/report?size=large")

	var report services.Report
	if err := json.Unmarshal(body.Data, &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Empty || report.Summary == nil {
		t.Fatalf("report should not be empty: %s", body.Data)
	}
	if report.Summary.RecordCount != 2 {
		t.Errorf("RecordCount = %d, want 2", report.Summary.RecordCount)
	}
	if len(report.Yearly) != 2 {
		t.Errorf("len(Yearly) = %d, want 2", len(report.Yearly))
	}
}

func TestAPIHandlers_HandleReport_EmptySelection(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	_, body := serve(t, handlers.HandleReport, "/api/report?experience=")

	var report services.Report
	if err := json.Unmarshal(body.Data, &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !report.Empty {
		t.Errorf("blank experience should select nothing, got %s", body.Data)
	}
}

func TestAPIHandlers_HandleFilters(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	_, body := serve(t, handlers.HandleFilters, "/api/filters")

	var options services.FilterOptions
	if err := json.Unmarshal(body.Data, &options); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(options.Years) != 3 || len(options.CompanySizes) != 3 {
		t.Errorf("options = %+v", options)
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	w, body := serve(t, handlers.HandleHealth, "/health")

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var health map[string]any
	if err := json.Unmarshal(body.Data, &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", health["status"])
	}
	if health["records"] != float64(4) {
		t.Errorf("records = %v, want 4", health["records"])
	}
}

func TestAPIHandlers_HandleHealth_NoData(t *testing.T) {
	analytics := services.NewAnalytics(services.ReportConfig{})
	handlers := NewAPIHandlers(analytics, testLogger())

	w, body := serve(t, handlers.HandleHealth, "/health")

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
	if body.Success || body.Error == nil || body.Error.Code != "SERVICE_UNAVAILABLE" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())

	_, body := serve(t, handlers.HandleStats, "/admin/stats")

	var stats map[string]any
	if err := json.Unmarshal(body.Data, &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats["record_count"] != float64(4) {
		t.Errorf("record_count = %v, want 4", stats["record_count"])
	}
}

func BenchmarkAPIHandlers_HandleReport(b *testing.B) {
	handlers := NewAPIHandlers(createTestAnalytics(), testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/report?year=2022", nil)

	for b.Loop() {
		handlers.HandleReport(httptest.NewRecorder(), req)
	}
}
