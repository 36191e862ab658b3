package registry

import (
	"time"

	"github.com/opspulse/opspulse/internal/automation"
	"github.com/opspulse/opspulse/internal/config"
	"github.com/opspulse/opspulse/internal/database"
)

// Built-in job names
const (
	JobDeploymentMonitor     = "deployment_monitor"
	JobInfrastructureMonitor = "infrastructure_monitor"
	JobCostOptimizer         = "cost_optimizer"
	JobAlertProcessor        = "alert_processor"
)

// BuiltIn returns a registry loaded with the stock jobs, each wired to its
// section of the jobs config
func BuiltIn(cfg *config.JobsConfig) (*Registry, error) {
	r := New()

	defs := []Definition{
		{
			Name:     JobDeploymentMonitor,
			Kind:     database.JobKindMonitoring,
			Interval: time.Duration(cfg.DeploymentMonitor.Interval),
			Handler:  automation.NewDeploymentMonitor(cfg.DeploymentMonitor),
		},
		{
			Name:     JobInfrastructureMonitor,
			Kind:     database.JobKindMonitoring,
			Interval: time.Duration(cfg.InfrastructureMonitor.Interval),
			Handler:  automation.NewInfrastructureMonitor(cfg.InfrastructureMonitor),
		},
		{
			Name:     JobCostOptimizer,
			Kind:     database.JobKindOptimization,
			Interval: time.Duration(cfg.CostOptimizer.Interval),
			Handler:  automation.NewCostOptimizer(cfg.CostOptimizer),
		},
		{
			Name:     JobAlertProcessor,
			Kind:     database.JobKindAlerting,
			Interval: time.Duration(cfg.AlertProcessor.Interval),
			Handler:  automation.NewAlertProcessor(cfg.AlertProcessor, cfg.Routing),
		},
	}

	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}
