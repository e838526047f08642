package services

import (
	"log/slog"
	"sync"

	"salary-dashboard/internal/models"
)

// ReportConfig shapes the aggregate views of a Report.
type ReportConfig struct {
	TopTitles     int
	HistogramBins int
	FocusTitle    string
}

// Report bundles every aggregate view for one Selection. When the
// filtered view is empty only Empty, FocusTitle and an empty Countries
// list are set.
type Report struct {
	Empty        bool                        `json:"empty"`
	Summary      *models.SummaryMetrics      `json:"summary,omitempty"`
	TopTitles    []models.TitleSalary        `json:"top_titles,omitempty"`
	Histogram    []models.HistogramBin       `json:"histogram,omitempty"`
	Yearly       []models.YearlySalary       `json:"yearly,omitempty"`
	ByExperience []models.ExperienceSalaries `json:"by_experience,omitempty"`
	FocusTitle   string                      `json:"focus_title,omitempty"`
	Countries    []models.CountrySalary      `json:"countries"`
}

// BuildReport computes all aggregate views of view.
func BuildReport(view View, cfg ReportConfig) Report {
	if len(view) == 0 {
		return Report{Empty: true, FocusTitle: cfg.FocusTitle, Countries: []models.CountrySalary{}}
	}

	summary := SummaryMetrics(view)
	return Report{
		Summary:      &summary,
		TopTitles:    TopTitlesBySalary(view, cfg.TopTitles),
		Histogram:    SalaryHistogram(view, cfg.HistogramBins),
		Yearly:       YearlyMeanSalary(view),
		ByExperience: SalaryByExperience(view),
		FocusTitle:   cfg.FocusTitle,
		Countries:    CountryMeanSalaryForTitle(view, cfg.FocusTitle),
	}
}

type snapshot struct {
	dataset *models.Dataset
	options FilterOptions
}

// Analytics holds the current Dataset and its filter options. A new
// Dataset replaces the whole snapshot at once; readers never see a
// partially installed table.
type Analytics struct {
	mu        sync.RWMutex
	current   snapshot
	reportCfg ReportConfig
	logger    *slog.Logger
}

func NewAnalytics(cfg ReportConfig) *Analytics {
	if cfg.TopTitles <= 0 {
		cfg.TopTitles = DefaultTopTitles
	}
	if cfg.HistogramBins <= 0 {
		cfg.HistogramBins = DefaultHistogramBins
	}
	return &Analytics{
		current:   snapshot{dataset: &models.Dataset{}, options: NewFilterOptions(nil)},
		reportCfg: cfg,
		logger:    slog.Default().With("component", "analytics"),
	}
}

// SetDataset installs ds and recomputes the filter options from it.
func (a *Analytics) SetDataset(ds *models.Dataset) {
	if ds == nil {
		ds = &models.Dataset{}
	}
	next := snapshot{dataset: ds, options: NewFilterOptions(ds.Records)}

	a.mu.Lock()
	a.current = next
	a.mu.Unlock()

	a.logger.Info("dataset installed",
		"records", ds.Len(),
		"source", ds.Source,
		"years", len(next.options.Years),
	)
}

func (a *Analytics) snapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

func (a *Analytics) Dataset() *models.Dataset {
	return a.snapshot().dataset
}

func (a *Analytics) Options() FilterOptions {
	return a.snapshot().options
}

func (a *Analytics) DefaultSelection() Selection {
	return a.snapshot().options.Defaults()
}

func (a *Analytics) ReportConfig() ReportConfig {
	return a.reportCfg
}

// View filters the current Dataset.
func (a *Analytics) View(sel Selection) View {
	return Filter(a.snapshot().dataset.Records, sel)
}

// Report filters the current Dataset and builds every aggregate view. An
// empty focusTitle uses the configured one.
func (a *Analytics) Report(sel Selection, focusTitle string) Report {
	cfg := a.reportCfg
	if focusTitle != "" {
		cfg.FocusTitle = focusTitle
	}
	return BuildReport(a.View(sel), cfg)
}

// Stats reports the shape of the loaded Dataset for monitoring.
func (a *Analytics) Stats() map[string]any {
	s := a.snapshot()
	return map[string]any{
		"record_count":      s.dataset.Len(),
		"skipped_rows":      s.dataset.SkippedRows,
		"source":            s.dataset.Source,
		"loaded_at":         s.dataset.LoadedAt,
		"years":             len(s.options.Years),
		"experience_levels": len(s.options.ExperienceLevels),
		"employment_types":  len(s.options.EmploymentTypes),
		"company_sizes":     len(s.options.CompanySizes),
	}
}
