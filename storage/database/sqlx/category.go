package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/udemo/academy/core/category"
)

type categoryRow struct {
	ID              int64      `db:"id"`
	Name            string     `db:"name"`
	Slug            string     `db:"slug"`
	ParentID        null.Int64 `db:"parent_id"`
	CourseCount     int        `db:"course_count"`
	EnrollmentCount int        `db:"enrollment_count"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func (r categoryRow) category() category.Category {
	return category.Category{
		ID:              r.ID,
		Name:            r.Name,
		Slug:            r.Slug,
		ParentID:        r.ParentID.Ptr(),
		CourseCount:     r.CourseCount,
		EnrollmentCount: r.EnrollmentCount,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

type categoryRepository struct {
	db *sqlx.DB
}

var _ category.Repository = (*categoryRepository)(nil) // interface compliance check

func NewCategoryRepository(db *sqlx.DB) *categoryRepository {
	return &categoryRepository{db: db}
}

// course counters only include enabled courses
func selectCategories() sq.SelectBuilder {
	return psql.
		Select(
			"cat.id", "cat.name", "cat.slug", "cat.parent_id", "cat.created_at", "cat.updated_at",
			"COUNT(c.id) AS course_count",
			"COALESCE(SUM(c.enrollment_count), 0) AS enrollment_count",
		).
		From("categories cat").
		LeftJoin("courses c ON c.category_id = cat.id AND NOT c.is_disabled").
		GroupBy("cat.id")
}

func (repo *categoryRepository) CheckNameUniqueness(ctx context.Context, name, slug string, excludedID int64) error {
	b := psql.Select("1").From("categories").
		Where(sq.Or{sq.Expr("LOWER(name) = LOWER(?)", name), sq.Eq{"slug": slug}}).
		Limit(1)
	if excludedID != 0 {
		b = b.Where(sq.NotEq{"id": excludedID})
	}

	var found []int
	if err := selectAll(ctx, repo.db, &found, b); err != nil {
		return errors.Wrap(err, "checking category uniqueness")
	}
	if len(found) > 0 {
		return category.ErrNameExists
	}
	return nil
}

func (repo *categoryRepository) CreateCategory(ctx context.Context, cat category.Category) (category.Category, error) {
	b := psql.Insert("categories").
		Columns("name", "slug", "parent_id", "created_at", "updated_at").
		Values(cat.Name, cat.Slug, null.Int64FromPtr(cat.ParentID), cat.CreatedAt.UTC(), cat.UpdatedAt.UTC()).
		Suffix("RETURNING id")

	if err := get(ctx, repo.db, &cat.ID, b); err != nil {
		if isUniqueViolation(err) {
			return category.Category{}, category.ErrNameExists
		}
		return category.Category{}, errors.Wrap(err, "inserting category")
	}
	return cat, nil
}

func (repo *categoryRepository) QueryCategories(ctx context.Context) ([]category.Category, error) {
	var rows []categoryRow
	if err := selectAll(ctx, repo.db, &rows, selectCategories().OrderBy("cat.name ASC")); err != nil {
		return nil, errors.Wrap(err, "querying categories")
	}
	cats := make([]category.Category, 0, len(rows))
	for _, row := range rows {
		cats = append(cats, row.category())
	}
	return cats, nil
}

func (repo *categoryRepository) GetCategory(ctx context.Context, id int64) (category.Category, error) {
	var row categoryRow
	if err := get(ctx, repo.db, &row, selectCategories().Where(sq.Eq{"cat.id": id})); err != nil {
		return category.Category{}, trapNoRowsErr(err, category.ErrNotFound, "finding category")
	}
	return row.category(), nil
}

func (repo *categoryRepository) UpdateCategory(ctx context.Context, cat category.Category) (category.Category, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var oldName string
		if err := tx.GetContext(ctx, &oldName, "SELECT name FROM categories WHERE id = $1 FOR UPDATE", cat.ID); err != nil {
			return trapNoRowsErr(err, category.ErrNotFound, "locking category")
		}

		b := psql.Update("categories").
			Set("name", cat.Name).
			Set("slug", cat.Slug).
			Set("parent_id", null.Int64FromPtr(cat.ParentID)).
			Set("updated_at", cat.UpdatedAt.UTC()).
			Where(sq.Eq{"id": cat.ID})
		if _, err := exec(ctx, tx, b); err != nil {
			if isUniqueViolation(err) {
				return category.ErrNameExists
			}
			return errors.Wrap(err, "updating category")
		}

		if oldName != cat.Name {
			return refreshSearchVectors(ctx, tx, sq.Eq{"c.category_id": cat.ID})
		}
		return nil
	})
	if err != nil {
		return category.Category{}, err
	}
	return cat, nil
}

func (repo *categoryRepository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := exec(ctx, repo.db, psql.Delete("categories").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting category")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return category.ErrNotFound
	}
	return nil
}
