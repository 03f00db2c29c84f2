package rollup

import (
	"time"

	"github.com/greensdlc/sustainability-dashboard/pkg/models"
)

// WeeklyWindow is how far back WeeklyCO2 looks.
const WeeklyWindow = 7 * 24 * time.Hour

// RunCO2 sums the CO2 of every step measurement of a run.
func RunCO2(run models.CicdPipelineRun) float64 {
	var total float64
	for _, m := range run.Measurements {
		total += m.CO2Consumption
	}
	return total
}

// PipelineCO2 sums RunCO2 across the pipeline's runs.
func PipelineCO2(p models.CicdPipeline) float64 {
	var total float64
	for _, run := range p.Runs {
		total += RunCO2(run)
	}
	return total
}

// StepCO2 sums the measurements of one step kind within a run.
func StepCO2(run models.CicdPipelineRun, step models.StepName) float64 {
	var total float64
	for _, m := range run.Measurements {
		if m.StepName == step {
			total += m.CO2Consumption
		}
	}
	return total
}

// LastRun returns the run with the latest start time.
func LastRun(p models.CicdPipeline) (models.CicdPipelineRun, bool) {
	var last models.CicdPipelineRun
	found := false
	for _, run := range p.Runs {
		if !found || run.StartTime.After(last.StartTime) {
			last, found = run, true
		}
	}
	return last, found
}

// WeeklyCO2 sums the runs that started within WeeklyWindow before now.
func WeeklyCO2(p models.CicdPipeline, now time.Time) float64 {
	since := now.Add(-WeeklyWindow)
	var total float64
	for _, run := range p.Runs {
		if !run.StartTime.Before(since) {
			total += RunCO2(run)
		}
	}
	return total
}

// PipelineKeyMetrics are the headline figures of a pipeline summary.
type PipelineKeyMetrics struct {
	WeeklyCO2Consumption          float64 `json:"weekly_co2_consumption"`
	IntegrationConsumptionLastRun float64 `json:"integration_consumption_last_run"`
	DeploymentConsumptionLastRun  float64 `json:"deployment_consumption_last_run"`
}

// KeyMetricsForPipeline computes PipelineKeyMetrics as of now.
func KeyMetricsForPipeline(p models.CicdPipeline, now time.Time) PipelineKeyMetrics {
	km := PipelineKeyMetrics{WeeklyCO2Consumption: WeeklyCO2(p, now)}
	if last, ok := LastRun(p); ok {
		km.IntegrationConsumptionLastRun = StepCO2(last, models.StepIntegration)
		km.DeploymentConsumptionLastRun = StepCO2(last, models.StepDeployment)
	}
	return km
}
