package database

import (
	"testing"
	"time"
)

func TestJSONB_Scan(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		wantErr bool
	}{
		{
			name:    "nil value",
			input:   nil,
			wantErr: false,
		},
		{
			name:    "valid JSON bytes",
			input:   []byte(`{"key": "value"}`),
			wantErr: false,
		},
		{
			name:    "valid JSON string",
			input:   `{"key": "value"}`,
			wantErr: false,
		},
		{
			name:    "invalid JSON",
			input:   []byte(`not json`),
			wantErr: true,
		},
		{
			name:    "wrong type",
			input:   42,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var j JSONB
			err := j.Scan(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Scan() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJSONB_Value(t *testing.T) {
	tests := []struct {
		name    string
		jsonb   JSONB
		wantNil bool
	}{
		{
			name:    "nil JSONB",
			jsonb:   nil,
			wantNil: true,
		},
		{
			name:    "empty JSONB",
			jsonb:   JSONB{},
			wantNil: false,
		},
		{
			name:    "populated JSONB",
			jsonb:   JSONB{"key": "value"},
			wantNil: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := tt.jsonb.Value()
			if err != nil {
				t.Errorf("Value() error = %v", err)
			}
			if tt.wantNil && value != nil {
				t.Errorf("Value() = %v, want nil", value)
			}
			if !tt.wantNil && value == nil {
				t.Error("Value() = nil, want non-nil")
			}
		})
	}
}

func TestStringList_ScanAndValue(t *testing.T) {
	var l StringList
	if err := l.Scan([]byte(`["a","b"]`)); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(l) != 2 || l[0] != "a" || l[1] != "b" {
		t.Errorf("Scan() = %v, want [a b]", l)
	}

	if err := l.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error = %v", err)
	}
	if len(l) != 0 {
		t.Errorf("Scan(nil) = %v, want empty", l)
	}

	var nilList StringList
	value, err := nilList.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if string(value.([]byte)) != "[]" {
		t.Errorf("nil list Value() = %s, want []", value)
	}
}

func TestStringList_Contains(t *testing.T) {
	l := StringList{"infra", "night_shift"}
	if !l.Contains("infra") {
		t.Error("expected Contains(infra) to be true")
	}
	if l.Contains("k8s") {
		t.Error("expected Contains(k8s) to be false")
	}
}

func TestJob_Interval(t *testing.T) {
	job := Job{IntervalSeconds: 90}
	if job.Interval() != 90*time.Second {
		t.Errorf("expected interval 90s, got %v", job.Interval())
	}
}

func TestTableNames(t *testing.T) {
	tests := []struct {
		model    interface{ TableName() string }
		expected string
	}{
		{Job{}, "jobs"},
		{Alert{}, "alerts"},
		{CostRecommendation{}, "cost_recommendations"},
		{MetricSample{}, "metric_samples"},
		{NotificationSettings{}, "notification_settings"},
	}

	for _, tt := range tests {
		if got := tt.model.TableName(); got != tt.expected {
			t.Errorf("expected table name '%s', got '%s'", tt.expected, got)
		}
	}
}

func TestSeverityRank_Ordering(t *testing.T) {
	if SeverityRank(AlertSeverityCritical) <= SeverityRank(AlertSeverityWarning) {
		t.Error("expected critical to rank above warning")
	}
	if SeverityRank(AlertSeverityWarning) <= SeverityRank(AlertSeverityInfo) {
		t.Error("expected warning to rank above info")
	}
	if SeverityRank("bogus") != 0 {
		t.Errorf("expected unknown severity to rank 0, got %d", SeverityRank("bogus"))
	}
}

func TestNotificationSettings_ShouldNotify(t *testing.T) {
	tests := []struct {
		name     string
		settings NotificationSettings
		severity AlertSeverity
		expected bool
	}{
		{
			name:     "disabled",
			settings: NotificationSettings{BotToken: "xoxb-test", Channel: "#ops", MinSeverity: AlertSeverityCritical},
			severity: AlertSeverityCritical,
			expected: false,
		},
		{
			name:     "enabled but unconfigured",
			settings: NotificationSettings{Enabled: true, MinSeverity: AlertSeverityCritical},
			severity: AlertSeverityCritical,
			expected: false,
		},
		{
			name:     "below floor",
			settings: NotificationSettings{Enabled: true, BotToken: "xoxb-test", Channel: "#ops", MinSeverity: AlertSeverityCritical},
			severity: AlertSeverityWarning,
			expected: false,
		},
		{
			name:     "at floor",
			settings: NotificationSettings{Enabled: true, BotToken: "xoxb-test", Channel: "#ops", MinSeverity: AlertSeverityCritical},
			severity: AlertSeverityCritical,
			expected: true,
		},
		{
			name:     "above floor",
			settings: NotificationSettings{Enabled: true, BotToken: "xoxb-test", Channel: "#ops", MinSeverity: AlertSeverityWarning},
			severity: AlertSeverityCritical,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.settings.ShouldNotify(tt.severity); got != tt.expected {
				t.Errorf("ShouldNotify(%s) = %v, want %v", tt.severity, got, tt.expected)
			}
		})
	}
}

func TestCostRecommendation_Validate(t *testing.T) {
	rec := CostRecommendation{CurrentCost: 100, PotentialSavings: 50}
	if err := rec.Validate(); err != nil {
		t.Errorf("expected valid recommendation, got %v", err)
	}

	rec.PotentialSavings = 150
	if err := rec.Validate(); err == nil {
		t.Error("expected error when savings exceed cost")
	}

	rec.PotentialSavings = -1
	if err := rec.Validate(); err == nil {
		t.Error("expected error for negative savings")
	}

	rec.PotentialSavings = 100
	if err := rec.Validate(); err != nil {
		t.Errorf("expected savings == cost to be valid, got %v", err)
	}
}
