package shared

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Academic years are labelled "2026-2027". The short form "26-27" prefixes
// receipt numbers.

// ValidateAcademicYear checks the "YYYY-YYYY" label with consecutive years.
func ValidateAcademicYear(year string) error {
	parts := strings.SplitN(year, "-", 2)
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 4 {
		return Validationf("academic year must look like 2026-2027, got %q", year)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return Validationf("academic year must look like 2026-2027, got %q", year)
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return Validationf("academic year must look like 2026-2027, got %q", year)
	}
	if end != start+1 {
		return Validationf("academic year %q must span consecutive years", year)
	}
	return nil
}

// CurrentAcademicYear returns the label covering t. The school year runs
// April through March, so January 2027 still belongs to "2026-2027".
func CurrentAcademicYear(t time.Time) string {
	year := t.Year()
	if t.Month() < time.April {
		year--
	}
	return fmt.Sprintf("%d-%d", year, year+1)
}

// ShortAcademicYear returns the receipt prefix form, e.g. "26-27".
func ShortAcademicYear(year string) string {
	parts := strings.SplitN(year, "-", 2)
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 4 {
		return year
	}
	return fmt.Sprintf("%s-%s", parts[0][2:], parts[1][2:])
}
