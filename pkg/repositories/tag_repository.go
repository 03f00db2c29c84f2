package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/greensdlc/sustainability-dashboard/pkg/database"
	"github.com/greensdlc/sustainability-dashboard/pkg/models"
)

// TagRepository provides data access for tags.
type TagRepository interface {
	// Upsert returns the tags named by names, creating the missing ones.
	// Names are trimmed and deduplicated; blank names are ignored. Result is sorted by name.
	Upsert(ctx context.Context, names []string) ([]models.Tag, error)
	List(ctx context.Context) ([]models.Tag, error)
}

type tagRepository struct{}

// NewTagRepository creates a new TagRepository.
func NewTagRepository() TagRepository {
	return &tagRepository{}
}

var _ TagRepository = (*tagRepository)(nil)

// NormalizeTagNames trims, drops blanks and duplicates, and sorts names.
func NormalizeTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (r *tagRepository) Upsert(ctx context.Context, names []string) ([]models.Tag, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	names = NormalizeTagNames(names)
	if len(names) == 0 {
		return []models.Tag{}, nil
	}

	// DO UPDATE instead of DO NOTHING so existing rows are returned too.
	query := `
		INSERT INTO tags (name)
		SELECT unnest($1::text[])
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name`

	rows, err := scope.Q().Query(ctx, query, names)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert tags: %w", err)
	}
	defer rows.Close()

	tags := make([]models.Tag, 0, len(names))
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}

	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

func (r *tagRepository) List(ctx context.Context) ([]models.Tag, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, database.ErrNoScope
	}

	rows, err := scope.Q().Query(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	tags := make([]models.Tag, 0)
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// ============================================================================
// Tag associations
// ============================================================================

// tagLink names a many-to-many table between an entity and tags.
type tagLink struct {
	table    string
	fkColumn string
}

var (
	projectTags  = tagLink{table: "project_tags", fkColumn: "project_id"}
	elementTags  = tagLink{table: "infrastructure_element_tags", fkColumn: "infrastructure_element_id"}
	pipelineTags = tagLink{table: "cicd_pipeline_tags", fkColumn: "cicd_pipeline_id"}
)

// replaceTags makes tagIDs the complete tag set of entity id.
func replaceTags(ctx context.Context, q database.Querier, link tagLink, id int64, tagIDs []int64) error {
	if _, err := q.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, link.table, link.fkColumn), id); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}
	if len(tagIDs) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, tag_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING`, link.table, link.fkColumn)
	if _, err := q.Exec(ctx, query, id, uniqueIDs(tagIDs)); err != nil {
		return translateError(err, "attach tags")
	}
	return nil
}

// loadTags returns the tags of every entity in ids, sorted by name.
func loadTags(ctx context.Context, q database.Querier, link tagLink, ids []int64) (map[int64][]models.Tag, error) {
	out := make(map[int64][]models.Tag, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := fmt.Sprintf(`
		SELECT jt.%s, t.id, t.name
		FROM %s jt JOIN tags t ON t.id = jt.tag_id
		WHERE jt.%s = ANY($1)
		ORDER BY t.name`, link.fkColumn, link.table, link.fkColumn)

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var owner int64
		var t models.Tag
		if err := rows.Scan(&owner, &t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		out[owner] = append(out[owner], t)
	}
	return out, rows.Err()
}

// tagsOrEmpty keeps JSON output as [] rather than null.
func tagsOrEmpty(tags []models.Tag) []models.Tag {
	if tags == nil {
		return []models.Tag{}
	}
	return tags
}
