package models

import "time"

// Record is one row of the salary table.
type Record struct {
	Year            int     `json:"year"`
	ExperienceLevel string  `json:"experience_level"`
	EmploymentType  string  `json:"employment_type"`
	CompanySize     string  `json:"company_size"`
	JobTitle        string  `json:"job_title"`
	Residence       string  `json:"residence"`
	SalaryUSD       float64 `json:"salary_usd"`
}

type DataSource string

const (
	SourceRemote DataSource = "remote"
	SourceLocal  DataSource = "local"
)

// Dataset is the full table loaded for a session. It is never mutated
// after construction; refreshes build a new Dataset.
type Dataset struct {
	Records     []Record   `json:"-"`
	Source      DataSource `json:"source"`
	LoadedAt    time.Time  `json:"loaded_at"`
	SkippedRows int        `json:"skipped_rows"`
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

type SummaryMetrics struct {
	MeanSalary        float64 `json:"mean_salary"`
	MaxSalary         float64 `json:"max_salary"`
	RecordCount       int     `json:"record_count"`
	MostFrequentTitle string  `json:"most_frequent_title"`
}

type TitleSalary struct {
	Title      string  `json:"title"`
	MeanSalary float64 `json:"mean_salary"`
}

// HistogramBin counts salaries in [Lower, Upper); the last bin of a
// histogram also includes Upper.
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

type YearlySalary struct {
	Year       int     `json:"year"`
	MeanSalary float64 `json:"mean_salary"`
}

type ExperienceSalaries struct {
	ExperienceLevel string    `json:"experience_level"`
	Salaries        []float64 `json:"salaries"`
}

type CountrySalary struct {
	Country    string  `json:"country"`
	MeanSalary float64 `json:"mean_salary"`
}
