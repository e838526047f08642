package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"salary-dashboard/internal/config"
	apperrors "salary-dashboard/internal/errors"
	"salary-dashboard/internal/models"
)

var errNoValidRecords = errors.New("no valid records found")

// columnIndex holds the position of every required column in a CSV row.
type columnIndex struct {
	year, experience, employment, size, title, residence, salary int
}

func (c columnIndex) maxIndex() int {
	return max(c.year, c.experience, c.employment, c.size, c.title, c.residence, c.salary)
}

// ParseCSV reads a salary table with a header row. Columns are located by
// name using cols; rows with an unparseable year or salary are skipped and
// counted. The returned Dataset has no Source set.
func ParseCSV(r io.Reader, cols config.ColumnsConfig) (*models.Dataset, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty csv: %w", errNoValidRecords)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	idx, err := resolveColumns(header, cols)
	if err != nil {
		return nil, err
	}

	ds := &models.Dataset{}
	width := idx.maxIndex()

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			ds.SkippedRows++
			continue
		}
		if len(row) <= width {
			ds.SkippedRows++
			continue
		}

		rec, ok := parseRecord(row, idx)
		if !ok {
			ds.SkippedRows++
			continue
		}
		ds.Records = append(ds.Records, rec)
	}

	if len(ds.Records) == 0 {
		return nil, errNoValidRecords
	}

	return ds, nil
}

func resolveColumns(header []string, cols config.ColumnsConfig) (columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, seen := positions[name]; !seen {
			positions[name] = i
		}
	}

	var missing []string
	lookup := func(column string) int {
		i, ok := positions[strings.ToLower(strings.TrimSpace(column))]
		if !ok {
			missing = append(missing, column)
			return -1
		}
		return i
	}

	idx := columnIndex{
		year:       lookup(cols.Year),
		experience: lookup(cols.ExperienceLevel),
		employment: lookup(cols.EmploymentType),
		size:       lookup(cols.CompanySize),
		title:      lookup(cols.JobTitle),
		residence:  lookup(cols.Residence),
		salary:     lookup(cols.SalaryUSD),
	}

	if len(missing) > 0 {
		return columnIndex{}, apperrors.SchemaMismatch("missing columns: "+strings.Join(missing, ", "), nil)
	}
	return idx, nil
}

func parseRecord(row []string, idx columnIndex) (models.Record, bool) {
	year, ok := parseYear(row[idx.year])
	if !ok {
		return models.Record{}, false
	}

	salary, err := strconv.ParseFloat(strings.TrimSpace(row[idx.salary]), 64)
	if err != nil || salary < 0 || math.IsNaN(salary) || math.IsInf(salary, 0) {
		return models.Record{}, false
	}

	return models.Record{
		Year:            year,
		ExperienceLevel: recode(experienceLabels, strings.TrimSpace(row[idx.experience])),
		EmploymentType:  recode(employmentLabels, strings.TrimSpace(row[idx.employment])),
		CompanySize:     recode(companySizeLabels, strings.TrimSpace(row[idx.size])),
		JobTitle:        strings.TrimSpace(row[idx.title]),
		Residence:       countryCode(strings.TrimSpace(row[idx.residence])),
		SalaryUSD:       salary,
	}, true
}

// parseYear accepts "2021" and integral floats such as "2021.0".
func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if y, err := strconv.Atoi(s); err == nil {
		return y, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
