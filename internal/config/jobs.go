package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written as "30s" or "2m"
type Duration time.Duration

// UnmarshalYAML implements the yaml.Unmarshaler interface
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// DeploymentMonitorConfig drives the deployment health job
type DeploymentMonitorConfig struct {
	Interval    Duration `yaml:"interval"`
	GracePeriod Duration `yaml:"grace_period"`
}

// InfrastructureMonitorConfig drives the host telemetry job. A dimension
// alerts only after HysteresisSamples consecutive samples clear a threshold.
type InfrastructureMonitorConfig struct {
	Interval          Duration `yaml:"interval"`
	HysteresisSamples int      `yaml:"hysteresis_samples"`
	CPUWarning        float64  `yaml:"cpu_warning"`
	MemoryWarning     float64  `yaml:"memory_warning"`
	DiskWarning       float64  `yaml:"disk_warning"`
	CriticalTier      float64  `yaml:"critical_tier"`
}

// CostOptimizerConfig drives the cost analysis job. Findings below either
// suppression floor are dropped.
type CostOptimizerConfig struct {
	Interval           Duration          `yaml:"interval"`
	MinSavingsAmount   float64           `yaml:"min_savings_amount"`
	MinSavingsPercent  float64           `yaml:"min_savings_percent"`
	LowCPUThreshold    float64           `yaml:"low_cpu_threshold"`
	LowMemoryThreshold float64           `yaml:"low_memory_threshold"`
	HighCPUThreshold   float64           `yaml:"high_cpu_threshold"`
	SpotCPUThreshold   float64           `yaml:"spot_cpu_threshold"`
	EffortByType       map[string]string `yaml:"effort_by_type"`
}

// AlertProcessorConfig drives the alert lifecycle sweep job
type AlertProcessorConfig struct {
	Interval          Duration `yaml:"interval"`
	StaleAfter        Duration `yaml:"stale_after"`
	EscalateAfter     Duration `yaml:"escalate_after"`
	RecommendationTTL Duration `yaml:"recommendation_ttl"`
}

// RoutingConfig drives alert assignment and reopen behavior
type RoutingConfig struct {
	OnCall           string   `yaml:"on_call"`
	EscalationTarget string   `yaml:"escalation_target"`
	ReopenCooldown   Duration `yaml:"reopen_cooldown"`
}

// DeploymentEntry is one workload in the static inventory
type DeploymentEntry struct {
	Name      string `yaml:"name"`
	Namespace string `yaml:"namespace"`
	Desired   int    `yaml:"desired"`
	Ready     int    `yaml:"ready"`
	Available int    `yaml:"available"`
}

// ResourceEntry is one billable resource in the static inventory
type ResourceEntry struct {
	ID            string  `yaml:"id"`
	Type          string  `yaml:"type"`
	HourlyCost    float64 `yaml:"hourly_cost"`
	UsagePattern  string  `yaml:"usage_pattern"`
	CPUPercent    float64 `yaml:"cpu_percent"`
	MemoryPercent float64 `yaml:"memory_percent"`
}

// Inventory is the static workload/resource catalog served by the local
// source in self-hosted mode
type Inventory struct {
	Deployments []DeploymentEntry `yaml:"deployments"`
	Resources   []ResourceEntry   `yaml:"resources"`
}

// JobsConfig is the full jobs file: per-job tuning, routing policy, and the
// demo inventory. Decoded once at startup; the registry treats it as
// immutable thereafter.
type JobsConfig struct {
	DeploymentMonitor     DeploymentMonitorConfig     `yaml:"deployment_monitor"`
	InfrastructureMonitor InfrastructureMonitorConfig `yaml:"infrastructure_monitor"`
	CostOptimizer         CostOptimizerConfig         `yaml:"cost_optimizer"`
	AlertProcessor        AlertProcessorConfig        `yaml:"alert_processor"`
	Routing               RoutingConfig               `yaml:"routing"`
	Inventory             Inventory                   `yaml:"inventory"`
}

// DefaultJobsConfig returns the built-in tuning used when no jobs file exists
func DefaultJobsConfig() *JobsConfig {
	return &JobsConfig{
		DeploymentMonitor: DeploymentMonitorConfig{
			Interval:    Duration(30 * time.Second),
			GracePeriod: Duration(2 * time.Minute),
		},
		InfrastructureMonitor: InfrastructureMonitorConfig{
			Interval:          Duration(60 * time.Second),
			HysteresisSamples: 3,
			CPUWarning:        80,
			MemoryWarning:     85,
			DiskWarning:       90,
			CriticalTier:      95,
		},
		CostOptimizer: CostOptimizerConfig{
			Interval:           Duration(5 * time.Minute),
			MinSavingsAmount:   10,
			MinSavingsPercent:  5,
			LowCPUThreshold:    20,
			LowMemoryThreshold: 30,
			HighCPUThreshold:   70,
			SpotCPUThreshold:   30,
			EffortByType: map[string]string{
				"ec2_instance": "medium",
				"rds_instance": "high",
				"ebs_volume":   "low",
			},
		},
		AlertProcessor: AlertProcessorConfig{
			Interval:          Duration(2 * time.Minute),
			StaleAfter:        Duration(24 * time.Hour),
			EscalateAfter:     Duration(15 * time.Minute),
			RecommendationTTL: Duration(7 * 24 * time.Hour),
		},
		Routing: RoutingConfig{
			OnCall:           "oncall-primary",
			EscalationTarget: "oncall-secondary",
			ReopenCooldown:   Duration(time.Hour),
		},
	}
}

// LoadJobsConfig reads the jobs file, filling any omitted field from the
// defaults. A missing file is not an error: the defaults run as-is.
func LoadJobsConfig(path string) (*JobsConfig, error) {
	cfg := DefaultJobsConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse jobs file %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid jobs file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *JobsConfig) validate() error {
	intervals := map[string]Duration{
		"deployment_monitor":     c.DeploymentMonitor.Interval,
		"infrastructure_monitor": c.InfrastructureMonitor.Interval,
		"cost_optimizer":         c.CostOptimizer.Interval,
		"alert_processor":        c.AlertProcessor.Interval,
	}
	for name, interval := range intervals {
		if interval <= 0 {
			return fmt.Errorf("job %s: interval must be positive", name)
		}
	}
	if c.InfrastructureMonitor.HysteresisSamples < 1 {
		return fmt.Errorf("infrastructure_monitor: hysteresis_samples must be at least 1")
	}
	if c.CostOptimizer.MinSavingsPercent < 0 || c.CostOptimizer.MinSavingsPercent > 100 {
		return fmt.Errorf("cost_optimizer: min_savings_percent must be within 0..100")
	}
	return nil
}
