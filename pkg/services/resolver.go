package services

import (
	"context"
	"fmt"

	"github.com/greensdlc/sustainability-dashboard/pkg/models"
	"github.com/greensdlc/sustainability-dashboard/pkg/repositories"
	"github.com/greensdlc/sustainability-dashboard/pkg/rollup"
)

// entityResolver loads the elements and pipelines that belong to a tag set.
type entityResolver struct {
	elements  repositories.InfrastructureElementRepository
	pipelines repositories.CicdPipelineRepository
}

// resolve fetches every element and pipeline sharing at least one tag with tags
// (or all of them when matchAll is set), children restricted to window.
func (r entityResolver) resolve(ctx context.Context, tags []string, matchAll bool, window *repositories.TimeWindow) (rollup.Inputs, error) {
	filter := repositories.TagFilter{Tags: tags, MatchAll: matchAll}

	elements, err := r.elements.ListByTags(ctx, filter, window)
	if err != nil {
		return rollup.Inputs{}, fmt.Errorf("list elements: %w", err)
	}
	pipelines, err := r.pipelines.ListByTags(ctx, filter, window)
	if err != nil {
		return rollup.Inputs{}, fmt.Errorf("list pipelines: %w", err)
	}

	in := rollup.Inputs{
		Elements:  make([]models.InfrastructureElement, 0, len(elements)),
		Pipelines: make([]models.CicdPipeline, 0, len(pipelines)),
	}
	for _, e := range elements {
		in.Elements = append(in.Elements, *e)
	}
	for _, p := range pipelines {
		in.Pipelines = append(in.Pipelines, *p)
	}
	return in, nil
}

// forProject resolves a project's entities by its own tag set with any-tag semantics.
func (r entityResolver) forProject(ctx context.Context, project *models.Project, window *repositories.TimeWindow) (rollup.Inputs, error) {
	return r.resolve(ctx, models.TagNames(project.Tags), false, window)
}
