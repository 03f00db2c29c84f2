package rollup

import "github.com/greensdlc/sustainability-dashboard/pkg/models"

// MatchTags reports whether an entity carrying have belongs to the grouping named by want.
// With matchAll every wanted tag must be present; otherwise one shared tag suffices.
// An empty want never matches anything.
func MatchTags(have []models.Tag, want []string, matchAll bool) bool {
	if len(want) == 0 {
		return false
	}

	names := make(map[string]struct{}, len(have))
	for _, t := range have {
		names[t.Name] = struct{}{}
	}

	for _, w := range want {
		_, ok := names[w]
		if matchAll && !ok {
			return false
		}
		if !matchAll && ok {
			return true
		}
	}
	return matchAll
}

// FilterPipelines keeps the pipelines whose tags match want.
func FilterPipelines(pipelines []models.CicdPipeline, want []string, matchAll bool) []models.CicdPipeline {
	out := make([]models.CicdPipeline, 0, len(pipelines))
	for _, p := range pipelines {
		if MatchTags(p.Tags, want, matchAll) {
			out = append(out, p)
		}
	}
	return out
}

// FilterElements keeps the infrastructure elements whose tags match want.
func FilterElements(elements []models.InfrastructureElement, want []string, matchAll bool) []models.InfrastructureElement {
	out := make([]models.InfrastructureElement, 0, len(elements))
	for _, e := range elements {
		if MatchTags(e.Tags, want, matchAll) {
			out = append(out, e)
		}
	}
	return out
}
