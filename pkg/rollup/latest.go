package rollup

import (
	"sort"
	"time"

	"github.com/greensdlc/sustainability-dashboard/pkg/models"
)

// MaxKeyMetrics is how many key metrics an element summary shows.
const MaxKeyMetrics = 2

// LatestBy folds items into the most recent item per key.
// On equal timestamps the item seen first wins.
func LatestBy[T any, K comparable](items []T, key func(T) K, at func(T) time.Time) map[K]T {
	latest := make(map[K]T)
	for _, item := range items {
		k := key(item)
		if cur, ok := latest[k]; ok && !at(item).After(at(cur)) {
			continue
		}
		latest[k] = item
	}
	return latest
}

// LatestMetricValues keeps the newest value of every metric, newest first.
// Equal timestamps are ordered by metric name.
func LatestMetricValues(values []models.MetricValue) []models.MetricValue {
	latest := LatestBy(values,
		func(v models.MetricValue) string { return v.MetricName },
		func(v models.MetricValue) time.Time { return v.Timestamp })

	out := make([]models.MetricValue, 0, len(latest))
	for _, v := range latest {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].MetricName < out[j].MetricName
	})
	return out
}

// KeyMetrics reduces values to the latest per metric, keeps key metrics only,
// and returns at most MaxKeyMetrics of them, newest first.
func KeyMetrics(values []models.MetricValue) []models.MetricValue {
	out := make([]models.MetricValue, 0, MaxKeyMetrics)
	for _, v := range LatestMetricValues(values) {
		if !v.IsKeyMetric {
			continue
		}
		out = append(out, v)
		if len(out) == MaxKeyMetrics {
			break
		}
	}
	return out
}

// LatestConsumption returns the consumption row with the latest date.
func LatestConsumption(rows []models.ElementConsumption) (models.ElementConsumption, bool) {
	var latest models.ElementConsumption
	found := false
	for _, c := range rows {
		if !found || c.Date.After(latest.Date) {
			latest, found = c, true
		}
	}
	return latest, found
}

// CurrentUserFlows keeps the latest observation of every user flow name, sorted by name.
func CurrentUserFlows(flows []models.UserFlow) []models.UserFlow {
	latest := LatestBy(flows,
		func(f models.UserFlow) string { return f.Name },
		func(f models.UserFlow) time.Time { return f.CreatedAt })

	out := make([]models.UserFlow, 0, len(latest))
	for _, f := range latest {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
