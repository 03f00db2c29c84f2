package rollup

import "github.com/greensdlc/sustainability-dashboard/pkg/models"

// Inputs are the entities resolved for one project (or any tag grouping).
// Runs must carry their measurements and elements their consumptions.
type Inputs struct {
	Pipelines []models.CicdPipeline
	Elements  []models.InfrastructureElement
}

// DayBreakdown holds the CO2 attributed to one day, split by source.
type DayBreakdown struct {
	Date       Day
	CICD       float64
	Operations float64
}

// Total is the CI/CD and operations contribution combined.
func (b DayBreakdown) Total() float64 {
	return b.CICD + b.Operations
}

// Daily produces one DayBreakdown per calendar day in [start, end], in day order.
// Days without data are present with zero totals; a reversed range yields nothing.
//
// CI/CD: every measurement of every run whose start time falls on the day.
// Operations: per element, the first consumption row found for the day; duplicates
// for the same (element, day) after the first are ignored.
func Daily(in Inputs, start, end Day) []DayBreakdown {
	n := DayCount(start, end)
	if n == 0 {
		return []DayBreakdown{}
	}

	cicd := cicdByDay(in.Pipelines)
	ops := make(map[Day]float64)
	for _, e := range in.Elements {
		for day, co2 := range consumptionByDay(e.Consumptions) {
			ops[day] += co2
		}
	}

	out := make([]DayBreakdown, 0, n)
	for day := start; day <= end; day++ {
		out = append(out, DayBreakdown{
			Date:       day,
			CICD:       cicd[day],
			Operations: ops[day],
		})
	}
	return out
}

func cicdByDay(pipelines []models.CicdPipeline) map[Day]float64 {
	byDay := make(map[Day]float64)
	for _, p := range pipelines {
		for _, run := range p.Runs {
			byDay[ToCalendarDay(run.StartTime)] += RunCO2(run)
		}
	}
	return byDay
}

// consumptionByDay keeps the first row seen for each day.
func consumptionByDay(rows []models.ElementConsumption) map[Day]float64 {
	byDay := make(map[Day]float64, len(rows))
	for _, c := range rows {
		day := ToCalendarDay(c.Date)
		if _, seen := byDay[day]; seen {
			continue
		}
		byDay[day] = c.CO2Consumption
	}
	return byDay
}
