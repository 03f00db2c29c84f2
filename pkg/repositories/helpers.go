package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/greensdlc/sustainability-dashboard/pkg/apperrors"
)

// TagFilter selects entities by tag. With MatchAll an entity must carry every tag,
// otherwise one shared tag is enough. An empty Tags list selects nothing.
type TagFilter struct {
	Tags     []string
	MatchAll bool
}

// TimeWindow restricts eagerly loaded time series to [From, To).
// A nil *TimeWindow loads everything.
type TimeWindow struct {
	From time.Time
	To   time.Time
}

// tagFilterClause renders the WHERE condition for filter against entity alias.id,
// using joinTable(fkColumn, tag_id). Placeholders start at $argStart.
func tagFilterClause(alias, joinTable, fkColumn string, filter TagFilter, argStart int) (string, []any) {
	exists := func(placeholder string) string {
		return fmt.Sprintf(`EXISTS (
			SELECT 1 FROM %s jt JOIN tags t ON t.id = jt.tag_id
			WHERE jt.%s = %s.id AND t.name %s)`, joinTable, fkColumn, alias, placeholder)
	}

	if !filter.MatchAll {
		return exists(fmt.Sprintf("= ANY($%d)", argStart)), []any{filter.Tags}
	}

	clause := ""
	args := make([]any, 0, len(filter.Tags))
	for i, tag := range filter.Tags {
		if i > 0 {
			clause += " AND "
		}
		clause += exists(fmt.Sprintf("= $%d", argStart+i))
		args = append(args, tag)
	}
	return clause, args
}

// translateError maps driver errors onto the apperrors taxonomy.
func translateError(err error, action string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", apperrors.ErrConflict, pgErr.Detail)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", apperrors.ErrNotFound, pgErr.Detail)
		case "23514": // check_violation
			return fmt.Errorf("%w: %s", apperrors.ErrValidation, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// uniqueIDs drops duplicates, keeping first occurrence order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
