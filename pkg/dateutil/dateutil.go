// Package dateutil normalizes the two date formats the front-end is allowed
// to send (ISO "YYYY-MM-DD" and US "M/D/YYYY") into the canonical ISO form
// used in SOQL date literals.
package dateutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoLayout = "2006-01-02"

var (
	isoRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	mdyRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// Normalize converts a date string in either accepted format to YYYY-MM-DD.
// The result is validated as a real calendar date, so "2025-13-40" fails even
// though it matches the ISO shape.
func Normalize(value string) (string, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return "", fmt.Errorf("empty date")
	}

	var candidate string
	switch {
	case isoRe.MatchString(raw):
		candidate = raw
	case mdyRe.MatchString(raw):
		m := mdyRe.FindStringSubmatch(raw)
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		candidate = fmt.Sprintf("%s-%02d-%02d", m[3], month, day)
	default:
		return "", fmt.Errorf("invalid date %q: use YYYY-MM-DD or MM/DD/YYYY", value)
	}

	if _, err := time.Parse(isoLayout, candidate); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", value, err)
	}

	return candidate, nil
}

// NormalizeOrDefault normalizes value, falling back to the given default when
// value is blank. The default itself must be a valid ISO date.
func NormalizeOrDefault(value, fallback string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return Normalize(fallback)
	}
	return Normalize(value)
}
