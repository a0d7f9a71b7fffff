package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/udemo/academy/core/course"
)

func (repo *courseRepository) Enroll(ctx context.Context, userID, courseID int64) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		ins := psql.Insert("enrollments").
			Columns("user_id", "course_id", "enrolled_at").
			Values(userID, courseID, time.Now().UTC()).
			Suffix("ON CONFLICT DO NOTHING")
		res, err := exec(ctx, tx, ins)
		if err != nil {
			return errors.Wrap(err, "inserting enrollment")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return course.ErrAlreadyEnrolled
		}

		upd := psql.Update("courses").
			Set("enrollment_count", sq.Expr("enrollment_count + 1")).
			Where(sq.Eq{"id": courseID})
		_, err = exec(ctx, tx, upd)
		return errors.Wrap(err, "incrementing enrollment count")
	})
}

// exists checks a (user_id, course_id) pair in one of the user/course link tables.
func (repo *courseRepository) exists(ctx context.Context, table string, userID, courseID int64) (bool, error) {
	q := "SELECT EXISTS (SELECT 1 FROM " + table + " WHERE user_id = $1 AND course_id = $2)"
	var found bool
	if err := repo.db.GetContext(ctx, &found, q, userID, courseID); err != nil {
		return false, errors.Wrapf(err, "checking %s", table)
	}
	return found, nil
}

func (repo *courseRepository) IsEnrolled(ctx context.Context, userID, courseID int64) (bool, error) {
	return repo.exists(ctx, "enrollments", userID, courseID)
}

func (repo *courseRepository) EnrolledCourses(ctx context.Context, userID int64) ([]course.Course, error) {
	b := selectCourses(courseColumns...).
		Join("enrollments e ON e.course_id = c.id").
		Where(sq.Eq{"e.user_id": userID}).
		OrderBy("e.enrolled_at DESC", "c.id DESC")

	var rows []courseRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying enrolled courses")
	}
	return toCourses(rows), nil
}

func (repo *courseRepository) AddToWatchlist(ctx context.Context, userID, courseID int64) error {
	b := psql.Insert("watchlist").
		Columns("user_id", "course_id", "created_at").
		Values(userID, courseID, time.Now().UTC()).
		Suffix("ON CONFLICT DO NOTHING")
	_, err := exec(ctx, repo.db, b)
	return errors.Wrap(err, "adding to watchlist")
}

func (repo *courseRepository) RemoveFromWatchlist(ctx context.Context, userID, courseID int64) error {
	b := psql.Delete("watchlist").Where(sq.Eq{"user_id": userID, "course_id": courseID})
	_, err := exec(ctx, repo.db, b)
	return errors.Wrap(err, "removing from watchlist")
}

func (repo *courseRepository) InWatchlist(ctx context.Context, userID, courseID int64) (bool, error) {
	return repo.exists(ctx, "watchlist", userID, courseID)
}

func (repo *courseRepository) Watchlist(ctx context.Context, userID int64) ([]course.Course, error) {
	b := selectCourses(courseColumns...).
		Join("watchlist w ON w.course_id = c.id").
		Where(sq.Eq{"w.user_id": userID, "c.is_disabled": false}).
		OrderBy("w.created_at DESC", "c.id DESC")

	var rows []courseRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying watchlist")
	}
	return toCourses(rows), nil
}

type reviewRow struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	UserName  string    `db:"user_name"`
	CourseID  int64     `db:"course_id"`
	Rating    int       `db:"rating"`
	Comment   string    `db:"comment"`
	CreatedAt time.Time `db:"created_at"`
}

func (repo *courseRepository) CreateReview(ctx context.Context, r course.Review) (course.Review, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		ins := psql.Insert("reviews").
			Columns("user_id", "course_id", "rating", "comment", "created_at").
			Values(r.UserID, r.CourseID, r.Rating, r.Comment, r.CreatedAt.UTC()).
			Suffix("RETURNING id")
		if err := get(ctx, tx, &r.ID, ins); err != nil {
			if isUniqueViolation(err) {
				return course.ErrAlreadyReviewed
			}
			return errors.Wrap(err, "inserting review")
		}

		upd := psql.Update("courses").
			Set("rating", sq.Expr("(SELECT ROUND(AVG(rating)::numeric, 2) FROM reviews WHERE course_id = ?)", r.CourseID)).
			Set("rating_count", sq.Expr("(SELECT COUNT(*) FROM reviews WHERE course_id = ?)", r.CourseID)).
			Where(sq.Eq{"id": r.CourseID})
		_, err := exec(ctx, tx, upd)
		return errors.Wrap(err, "updating course rating")
	})
	if err != nil {
		return course.Review{}, err
	}
	return r, nil
}

func (repo *courseRepository) QueryReviews(ctx context.Context, courseID int64, limit int) ([]course.Review, error) {
	b := psql.
		Select(
			"r.id", "r.user_id", "r.course_id", "r.rating", "r.comment", "r.created_at",
			"COALESCE(NULLIF(u.name, ''), u.username, u.email, '') AS user_name",
		).
		From("reviews r").
		Join("users u ON u.id = r.user_id").
		Where(sq.Eq{"r.course_id": courseID}).
		OrderBy("r.created_at DESC", "r.id DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}

	var rows []reviewRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying reviews")
	}
	reviews := make([]course.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, course.Review{
			ID:        row.ID,
			UserID:    row.UserID,
			UserName:  row.UserName,
			CourseID:  row.CourseID,
			Rating:    row.Rating,
			Comment:   row.Comment,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return reviews, nil
}
