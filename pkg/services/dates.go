package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/greensdlc/sustainability-dashboard/pkg/apperrors"
	"github.com/greensdlc/sustainability-dashboard/pkg/repositories"
	"github.com/greensdlc/sustainability-dashboard/pkg/rollup"
)

// Accepted date layouts, tried in order. Values without a zone are read as UTC.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// ParseDate parses an ISO-8601 date or timestamp.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", apperrors.ErrInvalidDateFormat)
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not an ISO-8601 date", apperrors.ErrInvalidDateFormat, value)
}

// ParseDateRange parses the startDate/endDate pair of a historical query into
// calendar days. A reversed range is valid and yields no rows. A range covering
// more than maxDays days is rejected with ErrValidation; maxDays <= 0 disables the cap.
func ParseDateRange(startDate, endDate string, maxDays int) (rollup.Day, rollup.Day, error) {
	if strings.TrimSpace(startDate) == "" || strings.TrimSpace(endDate) == "" {
		return 0, 0, fmt.Errorf("%w: startDate and endDate are required", apperrors.ErrInvalidDateFormat)
	}
	start, err := ParseDate(startDate)
	if err != nil {
		return 0, 0, fmt.Errorf("startDate: %w", err)
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return 0, 0, fmt.Errorf("endDate: %w", err)
	}
	first, last := rollup.ToCalendarDay(start), rollup.ToCalendarDay(end)
	if days := rollup.DayCount(first, last); maxDays > 0 && days > maxDays {
		return 0, 0, fmt.Errorf("%w: date range spans %d days, at most %d allowed", apperrors.ErrValidation, days, maxDays)
	}
	return first, last, nil
}

// windowFor converts an inclusive day range to the half-open window used by repositories.
func windowFor(start, end rollup.Day) *repositories.TimeWindow {
	return &repositories.TimeWindow{From: start.Time(), To: (end + 1).Time()}
}
