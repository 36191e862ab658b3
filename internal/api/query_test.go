package api

import (
	"net/http/httptest"
	"testing"

	"github.com/opspulse/opspulse/internal/database"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected int
	}{
		{"default", "/api/alerts", defaultLimit},
		{"explicit", "/api/alerts?limit=25", 25},
		{"zero falls back", "/api/alerts?limit=0", defaultLimit},
		{"negative falls back", "/api/alerts?limit=-5", defaultLimit},
		{"not a number falls back", "/api/alerts?limit=abc", defaultLimit},
		{"capped", "/api/alerts?limit=9999", maxLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			got := ParseLimit(r)
			if got != tt.expected {
				t.Errorf("ParseLimit(%q) = %d, want %d", tt.url, got, tt.expected)
			}
		})
	}
}

func TestParseAlertFilters(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/alerts?status=new&severity=critical&source=deployment_monitor&limit=10", nil)

	f := ParseAlertFilters(r)

	if f.Status != database.AlertStatusNew {
		t.Errorf("status = %q, want new", f.Status)
	}
	if f.Severity != database.AlertSeverityCritical {
		t.Errorf("severity = %q, want critical", f.Severity)
	}
	if f.Source != "deployment_monitor" {
		t.Errorf("source = %q, want deployment_monitor", f.Source)
	}
	if f.Limit != 10 {
		t.Errorf("limit = %d, want 10", f.Limit)
	}
}

func TestParseAlertFiltersEmpty(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/alerts", nil)

	f := ParseAlertFilters(r)

	if f.Status != "" || f.Severity != "" || f.Source != "" {
		t.Errorf("expected empty filters, got %+v", f)
	}
	if f.Limit != defaultLimit {
		t.Errorf("limit = %d, want %d", f.Limit, defaultLimit)
	}
}

func TestParseRecommendationFilters(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/recommendations?status=pending&limit=3", nil)

	f := ParseRecommendationFilters(r)

	if f.Status != database.RecommendationStatusPending {
		t.Errorf("status = %q, want pending", f.Status)
	}
	if f.Limit != 3 {
		t.Errorf("limit = %d, want 3", f.Limit)
	}
}
