package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/udemo/academy/core/course"
)

const effectivePriceExpr = "COALESCE(c.discount_price, c.price)"

var (
	courseColumns = []string{
		"c.id", "c.title", "c.short_description", "c.description", "c.thumbnail", "c.price", "c.discount_price",
		"c.rating", "c.rating_count", "c.enrollment_count", "c.view_count",
		"c.is_featured", "c.is_completed", "c.is_disabled", "c.created_at", "c.updated_at",
		"c.category_id", "cat.name AS category_name",
		"cat.parent_id AS parent_category_id", "COALESCE(pcat.name, '') AS parent_category_name",
		"c.teacher_id", "u.name AS teacher_name", "u.bio AS teacher_bio", "u.avatar_url AS teacher_avatar_url",
	}
	courseOrderings = map[string]string{
		course.FieldCreatedAt:       "c.created_at",
		course.FieldEffectivePrice:  effectivePriceExpr,
		course.FieldRating:          "c.rating",
		course.FieldRatingCount:     "c.rating_count",
		course.FieldEnrollmentCount: "c.enrollment_count",
		course.FieldID:              "c.id",
	}
)

type courseRow struct {
	ID                 int64      `db:"id"`
	Title              string     `db:"title"`
	ShortDescription   string     `db:"short_description"`
	Description        string     `db:"description"`
	Thumbnail          string     `db:"thumbnail"`
	Price              int64      `db:"price"`
	DiscountPrice      null.Int64 `db:"discount_price"`
	Rating             float64    `db:"rating"`
	RatingCount        int        `db:"rating_count"`
	EnrollmentCount    int        `db:"enrollment_count"`
	ViewCount          int        `db:"view_count"`
	IsFeatured         bool       `db:"is_featured"`
	IsCompleted        bool       `db:"is_completed"`
	IsDisabled         bool       `db:"is_disabled"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
	CategoryID         int64      `db:"category_id"`
	CategoryName       string     `db:"category_name"`
	ParentCategoryID   null.Int64 `db:"parent_category_id"`
	ParentCategoryName string     `db:"parent_category_name"`
	TeacherID          int64      `db:"teacher_id"`
	TeacherName        string     `db:"teacher_name"`
	TeacherBio         string     `db:"teacher_bio"`
	TeacherAvatarURL   string     `db:"teacher_avatar_url"`
}

func (r courseRow) course() course.Course {
	return course.Course{
		ID:                 r.ID,
		Title:              r.Title,
		ShortDescription:   r.ShortDescription,
		Description:        r.Description,
		Thumbnail:          r.Thumbnail,
		Price:              r.Price,
		DiscountPrice:      r.DiscountPrice.Ptr(),
		Rating:             r.Rating,
		RatingCount:        r.RatingCount,
		EnrollmentCount:    r.EnrollmentCount,
		ViewCount:          r.ViewCount,
		IsFeatured:         r.IsFeatured,
		IsCompleted:        r.IsCompleted,
		IsDisabled:         r.IsDisabled,
		CategoryID:         r.CategoryID,
		CategoryName:       r.CategoryName,
		ParentCategoryID:   r.ParentCategoryID.Ptr(),
		ParentCategoryName: r.ParentCategoryName,
		TeacherID:          r.TeacherID,
		TeacherName:        r.TeacherName,
		TeacherBio:         r.TeacherBio,
		TeacherAvatarURL:   r.TeacherAvatarURL,
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
}

func toCourses(rows []courseRow) []course.Course {
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.course())
	}
	return courses
}

// selectCourses selects cols from courses joined with their category, parent category and teacher.
func selectCourses(cols ...string) sq.SelectBuilder {
	return psql.
		Select(cols...).
		From("courses c").
		Join("categories cat ON cat.id = c.category_id").
		LeftJoin("categories pcat ON pcat.id = cat.parent_id").
		Join("users u ON u.id = c.teacher_id")
}

// buildSearchQuery composes the listing query and its COUNT(*) over the same joins and predicates.
// categoryIDs is the already expanded category filter.
func buildSearchQuery(filter course.SearchFilter, text course.TextSearch, categoryIDs []int64) (list, count sq.SelectBuilder) {
	var preds []sq.Sqlizer

	if !filter.IncludeDisabled {
		preds = append(preds, sq.Eq{"c.is_disabled": false})
	}
	if filter.TeacherID != 0 {
		preds = append(preds, sq.Eq{"c.teacher_id": filter.TeacherID})
	}
	if len(categoryIDs) > 0 {
		preds = append(preds, sq.Eq{"c.category_id": categoryIDs})
	}

	switch text.Mode {
	case course.TextSubstring:
		val := "%" + escapeLike(text.Term) + "%"
		preds = append(preds, sq.Or{
			sq.Expr("c.title ILIKE ?", val),
			sq.Expr("c.description ILIKE ?", val),
			sq.Expr("cat.name ILIKE ?", val),
			sq.Expr("u.name ILIKE ?", val),
		})
	case course.TextFullText:
		preds = append(preds, sq.Expr("c.search_vector @@ to_tsquery('simple', ?)", text.TSQuery()))
	}

	if filter.MinPrice != nil {
		preds = append(preds, sq.Expr(effectivePriceExpr+" >= ?", *filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		preds = append(preds, sq.Expr(effectivePriceExpr+" <= ?", *filter.MaxPrice))
	}
	if filter.MinRating != nil {
		preds = append(preds, sq.GtOrEq{"c.rating": *filter.MinRating})
	}
	if filter.Featured {
		preds = append(preds, sq.Eq{"c.is_featured": true})
	}
	if filter.Discount {
		preds = append(preds, sq.Expr("c.discount_price IS NOT NULL AND c.discount_price < c.price"))
	}

	list = selectCourses(courseColumns...)
	count = selectCourses("COUNT(*)")
	for _, p := range preds {
		list = list.Where(p)
		count = count.Where(p)
	}

	p := filter.Pagination()
	list = list.
		OrderBy(orderBy(course.Ordering(filter.Sort), courseOrderings)...).
		Limit(uint64(p.Limit)).
		Offset(uint64(p.Offset()))
	return list, count
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) SearchCourses(ctx context.Context, filter course.SearchFilter, text course.TextSearch, categoryIDs []int64) ([]course.Course, int, error) {
	list, count := buildSearchQuery(filter, text, categoryIDs)

	var total int
	if err := get(ctx, repo.db, &total, count); err != nil {
		return nil, 0, errors.Wrap(err, "counting courses")
	}
	if total == 0 {
		return []course.Course{}, 0, nil
	}

	var rows []courseRow
	if err := selectAll(ctx, repo.db, &rows, list); err != nil {
		return nil, 0, errors.Wrap(err, "listing courses")
	}
	return toCourses(rows), total, nil
}

func (repo *courseRepository) getCourse(ctx context.Context, db sqlx.QueryerContext, id int64) (course.Course, error) {
	var row courseRow
	if err := get(ctx, db, &row, selectCourses(courseColumns...).Where(sq.Eq{"c.id": id})); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return row.course(), nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id int64) (course.Course, error) {
	return repo.getCourse(ctx, repo.db, id)
}

// TeacherStats aggregates the teacher's enabled courses; the average only counts rated courses.
func (repo *courseRepository) TeacherStats(ctx context.Context, teacherID int64) (course.TeacherStats, error) {
	b := psql.
		Select(
			"COUNT(*) AS course_count",
			"COALESCE(SUM(enrollment_count), 0) AS student_count",
			"COALESCE(AVG(rating) FILTER (WHERE rating_count > 0), 0) AS avg_rating",
		).
		From("courses").
		Where(sq.Eq{"teacher_id": teacherID, "is_disabled": false})

	var row struct {
		CourseCount  int     `db:"course_count"`
		StudentCount int     `db:"student_count"`
		AvgRating    float64 `db:"avg_rating"`
	}
	if err := get(ctx, repo.db, &row, b); err != nil {
		return course.TeacherStats{}, errors.Wrap(err, "querying teacher stats")
	}
	return course.TeacherStats{
		CourseCount:  row.CourseCount,
		StudentCount: row.StudentCount,
		AvgRating:    row.AvgRating,
	}, nil
}

func (repo *courseRepository) RelatedCourses(ctx context.Context, c course.Course, limit int) ([]course.Course, error) {
	b := selectCourses(courseColumns...).
		Where(sq.Eq{"c.category_id": c.CategoryID, "c.is_disabled": false}).
		Where(sq.NotEq{"c.id": c.ID}).
		OrderBy("c.enrollment_count DESC", "c.id DESC").
		Limit(uint64(limit))

	var rows []courseRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying related courses")
	}
	return toCourses(rows), nil
}

func (repo *courseRepository) IncrementViews(ctx context.Context, id int64) error {
	b := psql.Update("courses").Set("view_count", sq.Expr("view_count + 1")).Where(sq.Eq{"id": id})
	_, err := exec(ctx, repo.db, b)
	return errors.Wrap(err, "incrementing views")
}

func courseValues(c course.Course) map[string]interface{} {
	return map[string]interface{}{
		"title":             c.Title,
		"short_description": c.ShortDescription,
		"description":       c.Description,
		"thumbnail":         c.Thumbnail,
		"price":             c.Price,
		"discount_price":    null.Int64FromPtr(c.DiscountPrice),
		"category_id":       c.CategoryID,
		"teacher_id":        c.TeacherID,
		"is_featured":       c.IsFeatured,
		"is_completed":      c.IsCompleted,
		"is_disabled":       c.IsDisabled,
		"updated_at":        c.UpdatedAt.UTC(),
	}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	var id int64
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		values := courseValues(c)
		values["created_at"] = c.CreatedAt.UTC()
		if err := get(ctx, tx, &id, psql.Insert("courses").SetMap(values).Suffix("RETURNING id")); err != nil {
			return errors.Wrap(err, "inserting course")
		}
		return refreshSearchVectors(ctx, tx, sq.Eq{"c.id": id})
	})
	if err != nil {
		return course.Course{}, err
	}
	return repo.GetCourse(ctx, id)
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		res, err := exec(ctx, tx, psql.Update("courses").SetMap(courseValues(c)).Where(sq.Eq{"id": c.ID}))
		if err != nil {
			return errors.Wrap(err, "updating course")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return course.ErrNotFound
		}
		return refreshSearchVectors(ctx, tx, sq.Eq{"c.id": c.ID})
	})
	if err != nil {
		return course.Course{}, err
	}
	return repo.GetCourse(ctx, c.ID)
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id int64) error {
	res, err := exec(ctx, repo.db, psql.Delete("courses").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrNotFound
	}
	return nil
}
