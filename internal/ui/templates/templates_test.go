package templates

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"salary-dashboard/internal/models"
	"salary-dashboard/internal/services"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	if err := c.Render(context.Background(), &sb); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	return sb.String()
}

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{105000, "$105,000"},
		{1234567.6, "$1,234,568"},
		{0, "$0"},
		{math.NaN(), "n/a"},
	}
	for _, tt := range tests {
		if got := FormatUSD(tt.in); got != tt.want {
			t.Errorf("FormatUSD(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := FormatCount(12345); got != "12,345" {
		t.Errorf("FormatCount() = %q", got)
	}
}

func TestDashboard(t *testing.T) {
	html := render(t, Dashboard(PageData{
		Title:    "Data Salary Dashboard",
		Subtitle: "Explore global salaries",
		Options: services.FilterOptions{
			Years:            []int{2021, 2022},
			ExperienceLevels: []string{"mid", "senior"},
			EmploymentTypes:  []string{"full-time"},
			CompanySizes:     []string{"large", "medium"},
		},
		FocusTitle: "Data Scientist",
	}))

	expected := []string{
		"<title>Data Salary Dashboard</title>",
		"Explore global salaries",
		`data-bind:years value="2021"`,
		`data-bind:experience value="senior"`,
		`data-bind:company-size value="medium"`,
		`id="metrics"`,
		`id="country-notice"`,
		"Mean salary of Data Scientist by country",
		"&#34;years&#34;:[2021,2022]",
		"/sse/report",
	}
	for _, want := range expected {
		if !strings.Contains(html, want) {
			t.Errorf("dashboard should contain %q", want)
		}
	}
}

func TestDashboard_EscapesValues(t *testing.T) {
	html := render(t, Dashboard(PageData{
		Title:   "<script>alert(1)</script>",
		Options: services.FilterOptions{ExperienceLevels: []string{`"><b>x`}},
	}))

	if strings.Contains(html, "<script>alert(1)</script>") || strings.Contains(html, `"><b>x`) {
		t.Error("user visible values must be escaped")
	}
}

func TestMetrics(t *testing.T) {
	html := render(t, Metrics(models.SummaryMetrics{
		MeanSalary:        105000,
		MaxSalary:         150000,
		RecordCount:       2,
		MostFrequentTitle: "Data Scientist",
	}))

	for _, want := range []string{`id="metrics"`, "$105,000", "$150,000", ">2<", "Data Scientist"} {
		if !strings.Contains(html, want) {
			t.Errorf("metrics should contain %q, got %s", want, html)
		}
	}
}

func TestNoDataAndCountryNotice(t *testing.T) {
	if html := render(t, NoData()); !strings.Contains(html, "No data found") {
		t.Errorf("NoData() = %s", html)
	}
	if html := render(t, CountryNotice("Data Scientist", false)); !strings.Contains(html, "Not enough data for Data Scientist") {
		t.Errorf("CountryNotice(false) = %s", html)
	}
	if html := render(t, CountryNotice("Data Scientist", true)); strings.Contains(html, "Not enough data") {
		t.Errorf("CountryNotice(true) should be empty, got %s", html)
	}
}

func TestDashboard_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sb strings.Builder
	err := Dashboard(PageData{Title: "Data Salary Dashboard"}).Render(ctx, &sb)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
	if sb.Len() != 0 {
		t.Errorf("nothing should be written after cancel, got %q", sb.String())
	}
}

func TestDashboard_InlinesChartScript(t *testing.T) {
	html := render(t, Dashboard(PageData{Title: "Data Salary Dashboard"}))

	if !strings.HasPrefix(html, "<!DOCTYPE html>") {
		t.Errorf("page should start with a doctype, got %.40q", html)
	}
	if !strings.Contains(html, "<script>"+chartScript+"</script>") {
		t.Error("chart script should be inlined unescaped")
	}
}
