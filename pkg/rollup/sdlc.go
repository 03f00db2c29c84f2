package rollup

import (
	"sort"

	"github.com/greensdlc/sustainability-dashboard/pkg/models"
)

// CO2Unit is the unit every CO2 figure is reported in.
const CO2Unit = "g CO2"

// StepTotal is one SDLC step's share of a project's CO2.
type StepTotal struct {
	Name       models.SdlcStep `json:"name"`
	TotalCO2   float64         `json:"totalCo2"`
	Percentage float64         `json:"percentage"`
}

// SdlcOverview is a project's all-time CO2 split across SDLC steps.
type SdlcOverview struct {
	TotalCO2 float64     `json:"totalCo2"`
	Steps    []StepTotal `json:"steps"`
	Unit     string      `json:"unit"`
}

// StepTotals returns the all-time CO2 of every SDLC step, keyed by step.
// Only integration_deployment and operations have data behind them; the rest are zero.
// Operations uses the same first-found-per-day rule as Daily.
func StepTotals(in Inputs) map[models.SdlcStep]float64 {
	totals := make(map[models.SdlcStep]float64, len(models.AllSdlcSteps))
	for _, step := range models.AllSdlcSteps {
		totals[step] = 0
	}

	for _, p := range in.Pipelines {
		totals[models.SdlcIntegrationDeployment] += PipelineCO2(p)
	}
	for _, e := range in.Elements {
		for _, co2 := range consumptionByDay(e.Consumptions) {
			totals[models.SdlcOperations] += co2
		}
	}
	return totals
}

// Overview computes every step's total and percentage of the grand total.
// Steps are ordered by total descending, ties keeping enumeration order.
// A zero grand total gives 0% for every step.
func Overview(in Inputs) SdlcOverview {
	totals := StepTotals(in)

	var grand float64
	steps := make([]StepTotal, 0, len(models.AllSdlcSteps))
	for _, step := range models.AllSdlcSteps {
		grand += totals[step]
		steps = append(steps, StepTotal{Name: step, TotalCO2: totals[step]})
	}

	if grand > 0 {
		for i := range steps {
			steps[i].Percentage = steps[i].TotalCO2 / grand * 100
		}
	}

	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].TotalCO2 > steps[j].TotalCO2
	})

	return SdlcOverview{
		TotalCO2: grand,
		Steps:    steps,
		Unit:     CO2Unit,
	}
}
