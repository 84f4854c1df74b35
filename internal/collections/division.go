package collections

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Division identifies an organisational unit reporting its own receivables.
type Division string

// Known divisions in display order.
const (
	DivisionPPA Division = "PPA"
	DivisionMCS Division = "MCS"
	DivisionEPM Division = "EPM"
)

var (
	// ErrInvalidDivision is returned for unknown division codes.
	ErrInvalidDivision = errors.New("collections: invalid division")
	// ErrInvalidMonth is returned for month values outside the YYYY-MM format.
	ErrInvalidMonth = errors.New("collections: invalid month")
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Divisions returns every division in display order.
func Divisions() []Division {
	return []Division{DivisionPPA, DivisionMCS, DivisionEPM}
}

// ParseDivision normalises and validates a division code.
func ParseDivision(raw string) (Division, error) {
	d := Division(strings.ToUpper(strings.TrimSpace(raw)))
	switch d {
	case DivisionPPA, DivisionMCS, DivisionEPM:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDivision, raw)
}

func (d Division) String() string { return string(d) }

// Slug is the lower-case form used in URLs.
func (d Division) Slug() string { return strings.ToLower(string(d)) }

// ParseMonth validates a "YYYY-MM" report month and returns its first day in UTC.
func ParseMonth(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if !monthPattern.MatchString(value) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, raw)
	}
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, raw)
	}
	return t, nil
}

// MonthRange returns the half-open interval [from, to) covering month.
func MonthRange(month string) (time.Time, time.Time, error) {
	from, err := ParseMonth(month)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, from.AddDate(0, 1, 0), nil
}
