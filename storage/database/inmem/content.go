package inmemdb

import (
	"context"

	"github.com/udemo/academy/core/course"
)

func (repo *courseRepository) QuerySections(_ context.Context, courseID int64) ([]course.Section, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sections := make([]course.Section, 0)
	for _, s := range repo.db.sections {
		if s.CourseID == courseID {
			sections = append(sections, *s)
		}
	}
	return course.GroupLectures(sections, nil), nil
}

func (repo *courseRepository) QueryLectures(_ context.Context, courseID int64) ([]course.Lecture, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	lectures := make([]course.Lecture, 0)
	for _, l := range repo.db.lectures {
		if l.CourseID == courseID {
			lectures = append(lectures, *l)
		}
	}
	return lectures, nil
}

func (repo *courseRepository) GetSection(_ context.Context, id int64) (course.Section, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	s, ok := repo.db.sections[id]
	if !ok {
		return course.Section{}, course.ErrSectionNotFound
	}
	return *s, nil
}

func (repo *courseRepository) CreateSection(_ context.Context, s course.Section) (course.Section, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[s.CourseID]; !ok {
		return course.Section{}, course.ErrNotFound
	}
	s.ID = repo.db.nextID("sections")
	s.Lectures = []course.Lecture{}
	repo.db.sections[s.ID] = &s
	return s, nil
}

func (repo *courseRepository) UpdateSection(_ context.Context, s course.Section) (course.Section, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.sections[s.ID]
	if !ok {
		return course.Section{}, course.ErrSectionNotFound
	}
	orig.Title = s.Title
	orig.OrderIndex = s.OrderIndex
	return *orig, nil
}

func (repo *courseRepository) DeleteSection(_ context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.sections, id)
	for lid, l := range repo.db.lectures {
		if l.SectionID == id {
			delete(repo.db.lectures, lid)
		}
	}
	return nil
}

func (repo *courseRepository) GetLecture(_ context.Context, id int64) (course.Lecture, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	l, ok := repo.db.lectures[id]
	if !ok {
		return course.Lecture{}, course.ErrLectureNotFound
	}
	return *l, nil
}

func (repo *courseRepository) CreateLecture(_ context.Context, l course.Lecture) (course.Lecture, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.sections[l.SectionID]; !ok {
		return course.Lecture{}, course.ErrSectionNotFound
	}
	l.ID = repo.db.nextID("lectures")
	repo.db.lectures[l.ID] = &l
	return l, nil
}

func (repo *courseRepository) UpdateLecture(_ context.Context, l course.Lecture) (course.Lecture, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.lectures[l.ID]; !ok {
		return course.Lecture{}, course.ErrLectureNotFound
	}
	repo.db.lectures[l.ID] = &l
	return l, nil
}

func (repo *courseRepository) DeleteLecture(_ context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.lectures, id)
	return nil
}
