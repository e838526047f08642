package handlers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"salary-dashboard/internal/errors"
	"salary-dashboard/internal/services"
)

// Query parameters carrying the filter selection. Each may repeat.
const (
	paramYear       = "year"
	paramExperience = "experience"
	paramEmployment = "employment"
	paramSize       = "size"
)

// parseSelection reads the filter selection from query parameters. A
// parameter that is absent keeps the default (every value); a parameter
// that is present but blank selects nothing.
func parseSelection(query url.Values, defaults services.Selection) (services.Selection, error) {
	sel := defaults

	if values, ok := query[paramYear]; ok {
		years := make([]int, 0, len(values))
		for _, v := range nonBlank(values) {
			year, err := strconv.Atoi(v)
			if err != nil {
				return services.Selection{}, errors.BadRequestWrap(err, fmt.Sprintf("invalid year %q", v))
			}
			years = append(years, year)
		}
		sel.Years = years
	}
	if values, ok := query[paramExperience]; ok {
		sel.ExperienceLevels = nonBlank(values)
	}
	if values, ok := query[paramEmployment]; ok {
		sel.EmploymentTypes = nonBlank(values)
	}
	if values, ok := query[paramSize]; ok {
		sel.CompanySizes = nonBlank(values)
	}

	return sel, nil
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// positiveParam reads an optional positive integer parameter.
func positiveParam(query url.Values, name string, fallback int) (int, error) {
	raw := query.Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.BadRequest(fmt.Sprintf("%s must be a positive integer, got %q", name, raw))
	}
	return n, nil
}
