package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/udemo/academy/core/course"
)

type searchDocRow struct {
	ID           int64  `db:"id"`
	Title        string `db:"title"`
	Description  string `db:"description"`
	CategoryName string `db:"category_name"`
	TeacherName  string `db:"teacher_name"`
}

// refreshSearchVectors recomputes the search_vector of the courses matching where.
// The document is folded in Go so that accent-free queries match accented text.
func refreshSearchVectors(ctx context.Context, db sqlx.ExtContext, where sq.Sqlizer) error {
	b := psql.
		Select("c.id", "c.title", "c.description", "cat.name AS category_name", "u.name AS teacher_name").
		From("courses c").
		Join("categories cat ON cat.id = c.category_id").
		Join("users u ON u.id = c.teacher_id").
		Where(where)

	var rows []searchDocRow
	if err := selectAll(ctx, db, &rows, b); err != nil {
		return errors.Wrap(err, "selecting search documents")
	}
	for _, row := range rows {
		doc := course.SearchDocument(row.Title, row.Description, row.CategoryName, row.TeacherName)
		upd := psql.Update("courses").
			Set("search_vector", sq.Expr("to_tsvector('simple', ?)", doc)).
			Where(sq.Eq{"id": row.ID})
		if _, err := exec(ctx, db, upd); err != nil {
			return errors.Wrap(err, "updating search vector")
		}
	}
	return nil
}
