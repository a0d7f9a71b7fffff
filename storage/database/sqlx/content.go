package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/udemo/academy/core/course"
)

var (
	sectionColumns = []string{"id", "course_id", "title", "order_index"}
	lectureColumns = []string{"id", "section_id", "course_id", "title", "video_url", "minutes", "is_preview", "order_index"}
)

type sectionRow struct {
	ID         int64  `db:"id"`
	CourseID   int64  `db:"course_id"`
	Title      string `db:"title"`
	OrderIndex int    `db:"order_index"`
}

func (r sectionRow) section() course.Section {
	return course.Section{ID: r.ID, CourseID: r.CourseID, Title: r.Title, OrderIndex: r.OrderIndex}
}

type lectureRow struct {
	ID         int64  `db:"id"`
	SectionID  int64  `db:"section_id"`
	CourseID   int64  `db:"course_id"`
	Title      string `db:"title"`
	VideoURL   string `db:"video_url"`
	Minutes    int    `db:"minutes"`
	IsPreview  bool   `db:"is_preview"`
	OrderIndex int    `db:"order_index"`
}

func (r lectureRow) lecture() course.Lecture {
	return course.Lecture{
		ID:         r.ID,
		SectionID:  r.SectionID,
		CourseID:   r.CourseID,
		Title:      r.Title,
		VideoURL:   r.VideoURL,
		Minutes:    r.Minutes,
		IsPreview:  r.IsPreview,
		OrderIndex: r.OrderIndex,
	}
}

func (repo *courseRepository) QuerySections(ctx context.Context, courseID int64) ([]course.Section, error) {
	b := psql.Select(sectionColumns...).From("sections").
		Where(sq.Eq{"course_id": courseID}).
		OrderBy("order_index ASC", "id ASC")

	var rows []sectionRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	sections := make([]course.Section, 0, len(rows))
	for _, row := range rows {
		sections = append(sections, row.section())
	}
	return sections, nil
}

func (repo *courseRepository) QueryLectures(ctx context.Context, courseID int64) ([]course.Lecture, error) {
	b := psql.Select(lectureColumns...).From("lectures").
		Where(sq.Eq{"course_id": courseID}).
		OrderBy("section_id ASC", "order_index ASC", "id ASC")

	var rows []lectureRow
	if err := selectAll(ctx, repo.db, &rows, b); err != nil {
		return nil, errors.Wrap(err, "querying lectures")
	}
	lectures := make([]course.Lecture, 0, len(rows))
	for _, row := range rows {
		lectures = append(lectures, row.lecture())
	}
	return lectures, nil
}

func (repo *courseRepository) GetSection(ctx context.Context, id int64) (course.Section, error) {
	var row sectionRow
	if err := get(ctx, repo.db, &row, psql.Select(sectionColumns...).From("sections").Where(sq.Eq{"id": id})); err != nil {
		return course.Section{}, trapNoRowsErr(err, course.ErrSectionNotFound, "finding section")
	}
	return row.section(), nil
}

func (repo *courseRepository) CreateSection(ctx context.Context, s course.Section) (course.Section, error) {
	b := psql.Insert("sections").
		Columns("course_id", "title", "order_index").
		Values(s.CourseID, s.Title, s.OrderIndex).
		Suffix("RETURNING id")
	if err := get(ctx, repo.db, &s.ID, b); err != nil {
		return course.Section{}, errors.Wrap(err, "inserting section")
	}
	s.Lectures = []course.Lecture{}
	return s, nil
}

func (repo *courseRepository) UpdateSection(ctx context.Context, s course.Section) (course.Section, error) {
	b := psql.Update("sections").
		Set("title", s.Title).
		Set("order_index", s.OrderIndex).
		Where(sq.Eq{"id": s.ID})
	if _, err := exec(ctx, repo.db, b); err != nil {
		return course.Section{}, errors.Wrap(err, "updating section")
	}
	return s, nil
}

func (repo *courseRepository) DeleteSection(ctx context.Context, id int64) error {
	_, err := exec(ctx, repo.db, psql.Delete("sections").Where(sq.Eq{"id": id}))
	return errors.Wrap(err, "deleting section")
}

func (repo *courseRepository) GetLecture(ctx context.Context, id int64) (course.Lecture, error) {
	var row lectureRow
	if err := get(ctx, repo.db, &row, psql.Select(lectureColumns...).From("lectures").Where(sq.Eq{"id": id})); err != nil {
		return course.Lecture{}, trapNoRowsErr(err, course.ErrLectureNotFound, "finding lecture")
	}
	return row.lecture(), nil
}

func (repo *courseRepository) CreateLecture(ctx context.Context, l course.Lecture) (course.Lecture, error) {
	b := psql.Insert("lectures").
		Columns("section_id", "course_id", "title", "video_url", "minutes", "is_preview", "order_index").
		Values(l.SectionID, l.CourseID, l.Title, l.VideoURL, l.Minutes, l.IsPreview, l.OrderIndex).
		Suffix("RETURNING id")
	if err := get(ctx, repo.db, &l.ID, b); err != nil {
		return course.Lecture{}, errors.Wrap(err, "inserting lecture")
	}
	return l, nil
}

func (repo *courseRepository) UpdateLecture(ctx context.Context, l course.Lecture) (course.Lecture, error) {
	b := psql.Update("lectures").SetMap(map[string]interface{}{
		"title":       l.Title,
		"video_url":   l.VideoURL,
		"minutes":     l.Minutes,
		"is_preview":  l.IsPreview,
		"order_index": l.OrderIndex,
	}).Where(sq.Eq{"id": l.ID})
	if _, err := exec(ctx, repo.db, b); err != nil {
		return course.Lecture{}, errors.Wrap(err, "updating lecture")
	}
	return l, nil
}

func (repo *courseRepository) DeleteLecture(ctx context.Context, id int64) error {
	_, err := exec(ctx, repo.db, psql.Delete("lectures").Where(sq.Eq{"id": id}))
	return errors.Wrap(err, "deleting lecture")
}
