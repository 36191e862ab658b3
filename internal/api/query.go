package api

import (
	"net/http"
	"strconv"

	"github.com/opspulse/opspulse/internal/database"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// ParseLimit extracts a row cap from the limit query parameter.
// Invalid or missing values fall back to the default; the cap is 500.
func ParseLimit(r *http.Request) int {
	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
			if limit > maxLimit {
				limit = maxLimit
			}
		}
	}
	return limit
}

// ParseAlertFilters extracts list narrowing from the query string. Unknown
// enum values are passed through and simply match nothing.
func ParseAlertFilters(r *http.Request) database.AlertFilters {
	q := r.URL.Query()
	return database.AlertFilters{
		Status:   database.AlertStatus(q.Get("status")),
		Severity: database.AlertSeverity(q.Get("severity")),
		Source:   q.Get("source"),
		Limit:    ParseLimit(r),
	}
}

// ParseRecommendationFilters extracts list narrowing from the query string.
func ParseRecommendationFilters(r *http.Request) database.RecommendationFilters {
	return database.RecommendationFilters{
		Status: database.RecommendationStatus(r.URL.Query().Get("status")),
		Limit:  ParseLimit(r),
	}
}
