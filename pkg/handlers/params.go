package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/greensdlc/sustainability-dashboard/pkg/apperrors"
	"github.com/greensdlc/sustainability-dashboard/pkg/rollup"
	"github.com/greensdlc/sustainability-dashboard/pkg/services"
)

// parseID reads a positive integer path parameter. On failure it writes a 400
// response and returns false.
func parseID(w http.ResponseWriter, r *http.Request, param string, logger *zap.Logger) (int64, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, logger, "parse "+param,
			fmt.Errorf("%w: %s must be a positive integer, got %q", apperrors.ErrInvalidID, param, raw))
		return 0, false
	}
	return id, true
}

// ParseTags collects the tags query parameter. Both tags=a,b and tags=a&tags=b
// are accepted; blanks are dropped.
func ParseTags(r *http.Request) []string {
	var tags []string
	for _, value := range r.URL.Query()["tags"] {
		for _, tag := range strings.Split(value, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// ParseMatchAll reads the matchAll query parameter, defaulting to false.
func ParseMatchAll(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("matchAll")
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: matchAll must be true or false, got %q", apperrors.ErrValidation, raw)
	}
	return v, nil
}

// parseTagFilter reads tags and matchAll, writing a 400 response on failure.
func parseTagFilter(w http.ResponseWriter, r *http.Request, logger *zap.Logger) ([]string, bool, bool) {
	matchAll, err := ParseMatchAll(r)
	if err != nil {
		writeError(w, logger, "parse matchAll", err)
		return nil, false, false
	}
	return ParseTags(r), matchAll, true
}

// parseDateRange reads startDate and endDate, writing a 400 response on failure
// or when the range covers more than maxDays days.
func parseDateRange(w http.ResponseWriter, r *http.Request, maxDays int, logger *zap.Logger) (rollup.Day, rollup.Day, bool) {
	q := r.URL.Query()
	start, end, err := services.ParseDateRange(q.Get("startDate"), q.Get("endDate"), maxDays)
	if err != nil {
		writeError(w, logger, "parse date range", err)
		return 0, 0, false
	}
	return start, end, true
}
