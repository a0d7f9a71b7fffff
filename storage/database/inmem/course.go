package inmemdb

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/udemo/academy/core"
	"github.com/udemo/academy/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

// hydrate fills the joined category and teacher fields; must be called with the lock held.
func (db *DB) hydrate(c course.Course) course.Course {
	c.CategoryName, c.ParentCategoryID, c.ParentCategoryName = "", nil, ""
	if cat, ok := db.categories[c.CategoryID]; ok {
		c.CategoryName = cat.Name
		c.ParentCategoryID = cat.ParentID
		if cat.ParentID != nil {
			if parent, ok := db.categories[*cat.ParentID]; ok {
				c.ParentCategoryName = parent.Name
			}
		}
	}
	c.TeacherName, c.TeacherBio, c.TeacherAvatarURL = "", "", ""
	if usr, ok := db.users[c.TeacherID]; ok {
		c.TeacherName = usr.Name
		c.TeacherBio = usr.Bio
		c.TeacherAvatarURL = usr.AvatarURL
	}
	return c
}

// allCourses returns hydrated courses ordered by id; must be called with the lock held.
func (db *DB) allCourses() []course.Course {
	courses := make([]course.Course, 0, len(db.courses))
	for _, c := range db.courses {
		courses = append(courses, db.hydrate(*c))
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses
}

// deleteCourse removes a course and everything attached to it; must be called with the write lock held.
func (db *DB) deleteCourse(id int64) {
	delete(db.courses, id)
	for sid, s := range db.sections {
		if s.CourseID == id {
			delete(db.sections, sid)
		}
	}
	for lid, l := range db.lectures {
		if l.CourseID == id {
			delete(db.lectures, lid)
		}
	}
	for l := range db.enrollments {
		if l.courseID == id {
			delete(db.enrollments, l)
		}
	}
	for l := range db.watchlist {
		if l.courseID == id {
			delete(db.watchlist, l)
		}
	}
	for rid, r := range db.reviews {
		if r.CourseID == id {
			delete(db.reviews, rid)
		}
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// matchText mirrors the postgres predicates: ILIKE on the raw fields or prefix terms on the search document.
func matchText(c course.Course, text course.TextSearch) bool {
	switch text.Mode {
	case course.TextSubstring:
		return containsFold(c.Title, text.Term) ||
			containsFold(c.Description, text.Term) ||
			containsFold(c.CategoryName, text.Term) ||
			containsFold(c.TeacherName, text.Term)
	case course.TextFullText:
		words := strings.FieldsFunc(c.SearchDocument(), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, term := range text.Terms {
			found := false
			for _, w := range words {
				if strings.HasPrefix(w, term) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func matchFilter(c course.Course, filter course.SearchFilter, categoryIDs map[int64]bool) bool {
	if !filter.IncludeDisabled && c.IsDisabled {
		return false
	}
	if filter.TeacherID != 0 && c.TeacherID != filter.TeacherID {
		return false
	}
	if len(categoryIDs) > 0 && !categoryIDs[c.CategoryID] {
		return false
	}
	price := c.EffectivePrice()
	if filter.MinPrice != nil && price < *filter.MinPrice {
		return false
	}
	if filter.MaxPrice != nil && price > *filter.MaxPrice {
		return false
	}
	if filter.MinRating != nil && c.Rating < *filter.MinRating {
		return false
	}
	if filter.Featured && !c.IsFeatured {
		return false
	}
	if filter.Discount && !c.HasDiscount() {
		return false
	}
	return true
}

func compareCourses(a, b course.Course, ordering []core.DBOrdering) bool {
	for _, ord := range ordering {
		var cmp int
		switch ord.Field {
		case course.FieldCreatedAt:
			cmp = compareInt(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
		case course.FieldEffectivePrice:
			cmp = compareInt(a.EffectivePrice(), b.EffectivePrice())
		case course.FieldRating:
			cmp = compareInt(int64(math.Round(a.Rating*100)), int64(math.Round(b.Rating*100)))
		case course.FieldRatingCount:
			cmp = compareInt(int64(a.RatingCount), int64(b.RatingCount))
		case course.FieldEnrollmentCount:
			cmp = compareInt(int64(a.EnrollmentCount), int64(b.EnrollmentCount))
		case course.FieldID:
			cmp = compareInt(a.ID, b.ID)
		}
		if cmp != 0 {
			return (cmp < 0) == ord.Ascending
		}
	}
	return false
}

func (repo *courseRepository) SearchCourses(_ context.Context, filter course.SearchFilter, text course.TextSearch, categoryIDs []int64) ([]course.Course, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	catIDs := make(map[int64]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		catIDs[id] = true
	}

	matches := make([]course.Course, 0)
	for _, c := range repo.db.allCourses() {
		if matchFilter(c, filter, catIDs) && matchText(c, text) {
			matches = append(matches, c)
		}
	}
	ordering := course.Ordering(filter.Sort)
	sort.SliceStable(matches, func(i, j int) bool { return compareCourses(matches[i], matches[j], ordering) })

	total := len(matches)
	p := filter.Pagination()
	start, end := p.Offset(), p.Offset()+p.Limit
	if start < 0 || start > total {
		start = total
	}
	if end < start || end > total {
		end = total
	}
	return matches[start:end], total, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id int64) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	c, ok := repo.db.courses[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return repo.db.hydrate(*c), nil
}

func (repo *courseRepository) TeacherStats(_ context.Context, teacherID int64) (course.TeacherStats, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var (
		stats      course.TeacherStats
		ratingSum  float64
		ratedCount int
	)
	for _, c := range repo.db.courses {
		if c.TeacherID != teacherID || c.IsDisabled {
			continue
		}
		stats.CourseCount++
		stats.StudentCount += c.EnrollmentCount
		if c.RatingCount > 0 {
			ratingSum += c.Rating
			ratedCount++
		}
	}
	if ratedCount > 0 {
		stats.AvgRating = ratingSum / float64(ratedCount)
	}
	return stats, nil
}

func (repo *courseRepository) RelatedCourses(_ context.Context, c course.Course, limit int) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	related := make([]course.Course, 0)
	for _, other := range repo.db.allCourses() {
		if other.CategoryID == c.CategoryID && other.ID != c.ID && !other.IsDisabled {
			related = append(related, other)
		}
	}
	ordering := course.Ordering(course.SortPopular)
	sort.SliceStable(related, func(i, j int) bool { return compareCourses(related[i], related[j], ordering) })
	if limit > 0 && len(related) > limit {
		related = related[:limit]
	}
	return related, nil
}

func (repo *courseRepository) IncrementViews(_ context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if c, ok := repo.db.courses[id]; ok {
		c.ViewCount++
	}
	return nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	c.ID = repo.db.nextID("courses")
	repo.db.courses[c.ID] = &c
	return repo.db.hydrate(c), nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c course.Course) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.courses[c.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	// counters are owned by enrollments, reviews and views
	c.Rating, c.RatingCount = orig.Rating, orig.RatingCount
	c.EnrollmentCount, c.ViewCount = orig.EnrollmentCount, orig.ViewCount
	c.CreatedAt = orig.CreatedAt
	repo.db.courses[c.ID] = &c
	return repo.db.hydrate(c), nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[id]; !ok {
		return course.ErrNotFound
	}
	repo.db.deleteCourse(id)
	return nil
}
