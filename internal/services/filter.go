package services

import (
	"slices"

	"github.com/samber/lo"

	"salary-dashboard/internal/models"
)

// Selection holds the four inclusion lists of the sidebar filters. Lists
// are literal: an empty list matches no rows.
type Selection struct {
	Years            []int    `json:"years"`
	ExperienceLevels []string `json:"experience_levels"`
	EmploymentTypes  []string `json:"employment_types"`
	CompanySizes     []string `json:"company_sizes"`
}

// View is a filtered subset of a Dataset, in Dataset order.
type View []models.Record

// Filter keeps the records whose year, experience level, employment type
// and company size all appear in sel. It never modifies records.
func Filter(records []models.Record, sel Selection) View {
	years := toSet(sel.Years)
	experience := toSet(sel.ExperienceLevels)
	employment := toSet(sel.EmploymentTypes)
	sizes := toSet(sel.CompanySizes)

	view := make(View, 0, len(records))
	for _, r := range records {
		if !years[r.Year] || !experience[r.ExperienceLevel] {
			continue
		}
		if !employment[r.EmploymentType] || !sizes[r.CompanySize] {
			continue
		}
		view = append(view, r)
	}
	return view
}

func toSet[T comparable](items []T) map[T]bool {
	set := make(map[T]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// FilterOptions lists the sorted distinct values of each filter dimension.
// It is computed once per Dataset and supplies the default Selection.
type FilterOptions struct {
	Years            []int    `json:"years"`
	ExperienceLevels []string `json:"experience_levels"`
	EmploymentTypes  []string `json:"employment_types"`
	CompanySizes     []string `json:"company_sizes"`
}

func NewFilterOptions(records []models.Record) FilterOptions {
	return FilterOptions{
		Years: distinctSorted(records, func(r models.Record) int { return r.Year }),
		ExperienceLevels: distinctSorted(records, func(r models.Record) string {
			return r.ExperienceLevel
		}),
		EmploymentTypes: distinctSorted(records, func(r models.Record) string {
			return r.EmploymentType
		}),
		CompanySizes: distinctSorted(records, func(r models.Record) string {
			return r.CompanySize
		}),
	}
}

func distinctSorted[T int | string](records []models.Record, field func(models.Record) T) []T {
	values := lo.Uniq(lo.Map(records, func(r models.Record, _ int) T { return field(r) }))
	slices.Sort(values)
	return values
}

// Defaults selects every observed value. The returned lists are copies.
func (o FilterOptions) Defaults() Selection {
	return Selection{
		Years:            slices.Clone(o.Years),
		ExperienceLevels: slices.Clone(o.ExperienceLevels),
		EmploymentTypes:  slices.Clone(o.EmploymentTypes),
		CompanySizes:     slices.Clone(o.CompanySizes),
	}
}
