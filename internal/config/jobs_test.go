package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadJobsConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadJobsConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadJobsConfig() error = %v", err)
	}

	if time.Duration(cfg.InfrastructureMonitor.Interval) != 60*time.Second {
		t.Errorf("expected default infra interval 60s, got %v",
			time.Duration(cfg.InfrastructureMonitor.Interval))
	}
	if cfg.InfrastructureMonitor.CPUWarning != 80 {
		t.Errorf("expected default cpu warning 80, got %.0f", cfg.InfrastructureMonitor.CPUWarning)
	}
	if cfg.Routing.OnCall != "oncall-primary" {
		t.Errorf("expected default on-call target, got '%s'", cfg.Routing.OnCall)
	}
	if time.Duration(cfg.AlertProcessor.RecommendationTTL) != 7*24*time.Hour {
		t.Errorf("expected default recommendation ttl 168h, got %v",
			time.Duration(cfg.AlertProcessor.RecommendationTTL))
	}
}

func TestLoadJobsConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	content := `
deployment_monitor:
  interval: 15s
  grace_period: 45s
infrastructure_monitor:
  interval: 20s
  hysteresis_samples: 2
  cpu_warning: 70
routing:
  on_call: platform-oncall
  reopen_cooldown: 30m
inventory:
  deployments:
    - name: api
      namespace: default
      desired: 3
      ready: 1
      available: 1
  resources:
    - id: i-0abc123
      type: ec2_instance
      hourly_cost: 0.5
      usage_pattern: variable
      cpu_percent: 12
      memory_percent: 22
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write jobs file: %v", err)
	}

	cfg, err := LoadJobsConfig(path)
	if err != nil {
		t.Fatalf("LoadJobsConfig() error = %v", err)
	}

	if time.Duration(cfg.DeploymentMonitor.Interval) != 15*time.Second {
		t.Errorf("expected overridden interval 15s, got %v",
			time.Duration(cfg.DeploymentMonitor.Interval))
	}
	if cfg.InfrastructureMonitor.HysteresisSamples != 2 {
		t.Errorf("expected hysteresis 2, got %d", cfg.InfrastructureMonitor.HysteresisSamples)
	}
	if cfg.InfrastructureMonitor.CPUWarning != 70 {
		t.Errorf("expected cpu warning 70, got %.0f", cfg.InfrastructureMonitor.CPUWarning)
	}
	// Fields absent from the file keep their defaults
	if cfg.InfrastructureMonitor.MemoryWarning != 85 {
		t.Errorf("expected default memory warning 85, got %.0f", cfg.InfrastructureMonitor.MemoryWarning)
	}
	if cfg.Routing.OnCall != "platform-oncall" {
		t.Errorf("expected on-call override, got '%s'", cfg.Routing.OnCall)
	}
	if len(cfg.Inventory.Deployments) != 1 || cfg.Inventory.Deployments[0].Ready != 1 {
		t.Errorf("expected inventory deployment parsed, got %+v", cfg.Inventory.Deployments)
	}
	if len(cfg.Inventory.Resources) != 1 || cfg.Inventory.Resources[0].CPUPercent != 12 {
		t.Errorf("expected inventory resource parsed, got %+v", cfg.Inventory.Resources)
	}
}

func TestLoadJobsConfig_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "zero interval",
			content: `
cost_optimizer:
  interval: 0s
`,
		},
		{
			name: "bad duration",
			content: `
alert_processor:
  interval: five minutes
`,
		},
		{
			name: "hysteresis below one",
			content: `
infrastructure_monitor:
  hysteresis_samples: 0
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "jobs.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write jobs file: %v", err)
			}
			if _, err := LoadJobsConfig(path); err == nil {
				t.Error("expected an error, got nil")
			}
		})
	}
}

func TestLoad_EnvDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPPort != 3000 {
		t.Errorf("expected default port 3000, got %d", cfg.HTTPPort)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("expected default poll interval 5s, got %v", cfg.PollInterval)
	}
	if cfg.WorkerConcurrency != 4 {
		t.Errorf("expected default concurrency 4, got %d", cfg.WorkerConcurrency)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "8088")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("HANDLER_TIMEOUT", "10s")
	t.Setenv("METRIC_RETENTION", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPPort != 8088 {
		t.Errorf("expected port 8088, got %d", cfg.HTTPPort)
	}
	if cfg.PollInterval != 250*time.Millisecond {
		t.Errorf("expected poll interval 250ms, got %v", cfg.PollInterval)
	}
	if cfg.HandlerTimeout != 10*time.Second {
		t.Errorf("expected handler timeout 10s, got %v", cfg.HandlerTimeout)
	}
	if cfg.MetricRetention != 50 {
		t.Errorf("expected retention 50, got %d", cfg.MetricRetention)
	}
}
