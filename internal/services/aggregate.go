package services

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"salary-dashboard/internal/models"
)

const (
	DefaultTopTitles     = 10
	DefaultHistogramBins = 30
)

// SummaryMetrics returns mean and max salary, row count and the most
// frequent job title. Mean and max are NaN for an empty view, so callers
// should treat an empty view as "no data" before calling.
func SummaryMetrics(view View) models.SummaryMetrics {
	if len(view) == 0 {
		return models.SummaryMetrics{MeanSalary: math.NaN(), MaxSalary: math.NaN()}
	}

	var sum float64
	maxSalary := math.Inf(-1)
	counts := make(map[string]int)
	for _, r := range view {
		sum += r.SalaryUSD
		maxSalary = max(maxSalary, r.SalaryUSD)
		counts[r.JobTitle]++
	}

	return models.SummaryMetrics{
		MeanSalary:        sum / float64(len(view)),
		MaxSalary:         maxSalary,
		RecordCount:       len(view),
		MostFrequentTitle: firstMode(view, counts),
	}
}

// firstMode picks the most frequent title; among equally frequent titles the
// one that appears first in the view wins.
func firstMode(view View, counts map[string]int) string {
	best, bestCount := "", 0
	for _, r := range view {
		if c := counts[r.JobTitle]; c > bestCount {
			best, bestCount = r.JobTitle, c
		}
	}
	return best
}

type meanGroup[K comparable] struct {
	key   K
	sum   float64
	count int
}

func (g meanGroup[K]) mean() float64 {
	return g.sum / float64(g.count)
}

// groupMeans groups view by key in first-seen order.
func groupMeans[K comparable](view View, key func(models.Record) K) []meanGroup[K] {
	index := make(map[K]int)
	var groups []meanGroup[K]
	for _, r := range view {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, meanGroup[K]{key: k})
		}
		groups[i].sum += r.SalaryUSD
		groups[i].count++
	}
	return groups
}

// TopTitlesBySalary ranks titles by mean salary, keeps the n best and
// returns them in ascending order of mean salary so a horizontal bar chart
// puts the best paid title on top. n <= 0 means DefaultTopTitles.
func TopTitlesBySalary(view View, n int) []models.TitleSalary {
	if n <= 0 {
		n = DefaultTopTitles
	}

	groups := groupMeans(view, func(r models.Record) string { return r.JobTitle })
	slices.SortFunc(groups, func(a, b meanGroup[string]) int {
		return strings.Compare(a.key, b.key)
	})
	slices.SortStableFunc(groups, func(a, b meanGroup[string]) int {
		return cmp.Compare(b.mean(), a.mean())
	})
	if len(groups) > n {
		groups = groups[:n]
	}

	result := make([]models.TitleSalary, 0, len(groups))
	for _, g := range groups {
		result = append(result, models.TitleSalary{Title: g.key, MeanSalary: g.mean()})
	}
	slices.SortStableFunc(result, func(a, b models.TitleSalary) int {
		return cmp.Compare(a.MeanSalary, b.MeanSalary)
	})
	return result
}

// SalaryHistogram splits the salary range of view into bins equal-width
// bins. The last bin is closed on the right. A view where every salary is
// equal gets a unit-wide range centred on that salary. bins <= 0 means
// DefaultHistogramBins.
func SalaryHistogram(view View, bins int) []models.HistogramBin {
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	if len(view) == 0 {
		return []models.HistogramBin{}
	}

	low, high := view[0].SalaryUSD, view[0].SalaryUSD
	for _, r := range view[1:] {
		low = min(low, r.SalaryUSD)
		high = max(high, r.SalaryUSD)
	}
	if low == high {
		low, high = low-0.5, high+0.5
	}
	width := (high - low) / float64(bins)

	result := make([]models.HistogramBin, bins)
	for i := range result {
		result[i].Lower = low + float64(i)*width
		result[i].Upper = low + float64(i+1)*width
	}
	result[bins-1].Upper = high

	for _, r := range view {
		i := int((r.SalaryUSD - low) / width)
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		result[i].Count++
	}
	return result
}

// YearlyMeanSalary returns one mean per distinct year, ascending by year.
func YearlyMeanSalary(view View) []models.YearlySalary {
	groups := groupMeans(view, func(r models.Record) int { return r.Year })
	slices.SortFunc(groups, func(a, b meanGroup[int]) int { return cmp.Compare(a.key, b.key) })

	result := make([]models.YearlySalary, 0, len(groups))
	for _, g := range groups {
		result = append(result, models.YearlySalary{Year: g.key, MeanSalary: g.mean()})
	}
	return result
}

// SalaryByExperience groups raw salaries by experience level for a box
// plot. Groups keep first-seen order and values keep view order.
func SalaryByExperience(view View) []models.ExperienceSalaries {
	index := make(map[string]int)
	result := make([]models.ExperienceSalaries, 0)
	for _, r := range view {
		i, ok := index[r.ExperienceLevel]
		if !ok {
			i = len(result)
			index[r.ExperienceLevel] = i
			result = append(result, models.ExperienceSalaries{ExperienceLevel: r.ExperienceLevel})
		}
		result[i].Salaries = append(result[i].Salaries, r.SalaryUSD)
	}
	return result
}

// CountryMeanSalaryForTitle averages the salaries of title per country of
// residence, ascending by country code. No matching rows gives an empty
// slice.
func CountryMeanSalaryForTitle(view View, title string) []models.CountrySalary {
	matching := make(View, 0)
	for _, r := range view {
		if r.JobTitle == title {
			matching = append(matching, r)
		}
	}

	groups := groupMeans(matching, func(r models.Record) string { return r.Residence })
	slices.SortFunc(groups, func(a, b meanGroup[string]) int { return strings.Compare(a.key, b.key) })

	result := make([]models.CountrySalary, 0, len(groups))
	for _, g := range groups {
		result = append(result, models.CountrySalary{Country: g.key, MeanSalary: g.mean()})
	}
	return result
}
