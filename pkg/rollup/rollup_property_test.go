package rollup

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/greensdlc/sustainability-dashboard/pkg/models"
)

var baseDay = ToCalendarDay(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

var tagPool = []string{"frontend", "backend", "prod", "staging", "eu", "us"}

// randomInputs builds pipelines and elements spread over 60 days from baseDay.
// Every element has at most one consumption row per day.
func randomInputs(seed int64) Inputs {
	rng := rand.New(rand.NewSource(seed))
	var in Inputs

	pipelineCount := rng.Intn(4)
	for p := 0; p < pipelineCount; p++ {
		pipeline := models.CicdPipeline{ID: int64(p + 1), Tags: randomTags(rng)}
		runCount := rng.Intn(6)
		for r := 0; r < runCount; r++ {
			start := (baseDay + Day(rng.Intn(60))).Time().Add(time.Duration(rng.Intn(86400)) * time.Second)
			run := models.CicdPipelineRun{StartTime: start, EndTime: start.Add(time.Minute)}
			measurementCount := rng.Intn(4)
			for m := 0; m < measurementCount; m++ {
				run.Measurements = append(run.Measurements, models.CicdStepMeasurement{
					StepName:       models.StepOther,
					CO2Consumption: float64(rng.Intn(10000)) / 100,
				})
			}
			pipeline.Runs = append(pipeline.Runs, run)
		}
		in.Pipelines = append(in.Pipelines, pipeline)
	}

	elementCount := rng.Intn(4)
	for e := 0; e < elementCount; e++ {
		element := models.InfrastructureElement{ID: int64(e + 1), InfrastructureServiceID: int64(rng.Intn(2) + 1), Tags: randomTags(rng)}
		for _, offset := range rng.Perm(60)[:rng.Intn(20)] {
			element.Consumptions = append(element.Consumptions, models.ElementConsumption{
				Date:           (baseDay + Day(offset)).Time(),
				CO2Consumption: float64(rng.Intn(10000)) / 100,
			})
		}
		in.Elements = append(in.Elements, element)
	}
	return in
}

func randomTags(rng *rand.Rand) []models.Tag {
	var out []models.Tag
	for i, name := range tagPool {
		if rng.Intn(3) == 0 {
			out = append(out, models.Tag{ID: int64(i + 1), Name: name})
		}
	}
	return out
}

// directTotal sums every record that falls inside [start, end] without day bucketing.
func directTotal(in Inputs, start, end Day) float64 {
	var total float64
	for _, p := range in.Pipelines {
		for _, run := range p.Runs {
			if d := ToCalendarDay(run.StartTime); d >= start && d <= end {
				total += RunCO2(run)
			}
		}
	}
	for _, e := range in.Elements {
		for _, c := range e.Consumptions {
			if d := ToCalendarDay(c.Date); d >= start && d <= end {
				total += c.CO2Consumption
			}
		}
	}
	return total
}

func TestProperty_DailyRowCount(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("one row per day in range, none when reversed", prop.ForAll(
		func(seed int64, startOffset, span int) bool {
			start := baseDay + Day(startOffset)
			end := start + Day(span)
			rows := Daily(randomInputs(seed), start, end)

			if span < 0 {
				return len(rows) == 0
			}
			if len(rows) != span+1 {
				return false
			}
			for i, r := range rows {
				if r.Date != start+Day(i) {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(-10, 70),
		gen.IntRange(-5, 40),
	))

	properties.TestingRun(t)
}

func TestProperty_DailySumMatchesDirectSum(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("sum of daily totals equals direct summation", prop.ForAll(
		func(seed int64, startOffset, span int) bool {
			in := randomInputs(seed)
			start := baseDay + Day(startOffset)
			end := start + Day(span)

			var rolled float64
			for _, r := range Daily(in, start, end) {
				rolled += r.Total()
			}
			return math.Abs(rolled-directTotal(in, start, end)) < 1e-6
		},
		gen.Int64(),
		gen.IntRange(-10, 70),
		gen.IntRange(0, 70),
	))

	properties.TestingRun(t)
}

func TestProperty_MatchAllIsSubsetOfMatchAny(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("matchAll selects no more entities than matchAny", prop.ForAll(
		func(seed int64, wantMask int) bool {
			in := randomInputs(seed)
			var want []string
			for i, name := range tagPool {
				if wantMask&(1<<i) != 0 {
					want = append(want, name)
				}
			}

			allP := FilterPipelines(in.Pipelines, want, true)
			anyP := FilterPipelines(in.Pipelines, want, false)
			allE := FilterElements(in.Elements, want, true)
			anyE := FilterElements(in.Elements, want, false)
			if len(allP) > len(anyP) || len(allE) > len(anyE) {
				return false
			}

			anyIDs := make(map[int64]bool, len(anyP))
			for _, p := range anyP {
				anyIDs[p.ID] = true
			}
			for _, p := range allP {
				if !anyIDs[p.ID] {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(0, 1<<len(tagPool)-1),
	))

	properties.TestingRun(t)
}

func TestProperty_OverviewPercentages(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("percentages sum to 100 or are all zero", prop.ForAll(
		func(seed int64) bool {
			ov := Overview(randomInputs(seed))

			var sum float64
			for _, s := range ov.Steps {
				sum += s.Percentage
			}
			if ov.TotalCO2 > 0 {
				return math.Abs(sum-100) < 1e-6
			}
			for _, s := range ov.Steps {
				if s.Percentage != 0 {
					return false
				}
			}
			return true
		},
		gen.Int64(),
	))

	properties.Property("steps are sorted by total descending", prop.ForAll(
		func(seed int64) bool {
			ov := Overview(randomInputs(seed))
			for i := 1; i < len(ov.Steps); i++ {
				if ov.Steps[i].TotalCO2 > ov.Steps[i-1].TotalCO2 {
					return false
				}
			}
			return len(ov.Steps) == len(models.AllSdlcSteps)
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestProperty_KeyMetricsBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	names := []string{"cpu", "memory", "disk", "network", "region"}

	properties.Property("at most two key metrics, all flagged as key", prop.ForAll(
		func(seed int64, count int) bool {
			rng := rand.New(rand.NewSource(seed))
			keyFlags := make(map[string]bool, len(names))
			for _, n := range names {
				keyFlags[n] = rng.Intn(2) == 0
			}

			values := make([]models.MetricValue, 0, count)
			for i := 0; i < count; i++ {
				name := names[rng.Intn(len(names))]
				v := int64(rng.Intn(100))
				values = append(values, models.MetricValue{
					MetricName:  name,
					IsKeyMetric: keyFlags[name],
					ValueInt:    &v,
					Timestamp:   baseDay.Time().Add(time.Duration(rng.Intn(10000)) * time.Minute),
				})
			}

			got := KeyMetrics(values)
			if len(got) > MaxKeyMetrics {
				return false
			}
			seen := make(map[string]bool)
			for _, v := range got {
				if !v.IsKeyMetric || seen[v.MetricName] {
					return false
				}
				seen[v.MetricName] = true
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}
