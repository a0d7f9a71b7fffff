package inmemdb

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/udemo/academy/core/course"
)

func (repo *courseRepository) Enroll(_ context.Context, userID, courseID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	c, ok := repo.db.courses[courseID]
	if !ok {
		return course.ErrNotFound
	}
	l := link{userID: userID, courseID: courseID}
	if _, ok := repo.db.enrollments[l]; ok {
		return course.ErrAlreadyEnrolled
	}
	repo.db.enrollments[l] = time.Now().UTC()
	c.EnrollmentCount++
	return nil
}

func (repo *courseRepository) IsEnrolled(_ context.Context, userID, courseID int64) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, ok := repo.db.enrollments[link{userID: userID, courseID: courseID}]
	return ok, nil
}

// linkedCourses returns the user's courses from a link table, most recent link first.
func (repo *courseRepository) linkedCourses(table map[link]time.Time, userID int64, includeDisabled bool) []course.Course {
	type linked struct {
		c  course.Course
		at time.Time
	}
	items := make([]linked, 0)
	for l, at := range table {
		if l.userID != userID {
			continue
		}
		if c, ok := repo.db.courses[l.courseID]; ok && (includeDisabled || !c.IsDisabled) {
			items = append(items, linked{c: repo.db.hydrate(*c), at: at})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].at.Equal(items[j].at) {
			return items[i].at.After(items[j].at)
		}
		return items[i].c.ID > items[j].c.ID
	})

	courses := make([]course.Course, len(items))
	for i, item := range items {
		courses[i] = item.c
	}
	return courses
}

func (repo *courseRepository) EnrolledCourses(_ context.Context, userID int64) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.linkedCourses(repo.db.enrollments, userID, true), nil
}

func (repo *courseRepository) AddToWatchlist(_ context.Context, userID, courseID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	l := link{userID: userID, courseID: courseID}
	if _, ok := repo.db.watchlist[l]; !ok {
		repo.db.watchlist[l] = time.Now().UTC()
	}
	return nil
}

func (repo *courseRepository) RemoveFromWatchlist(_ context.Context, userID, courseID int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.watchlist, link{userID: userID, courseID: courseID})
	return nil
}

func (repo *courseRepository) InWatchlist(_ context.Context, userID, courseID int64) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, ok := repo.db.watchlist[link{userID: userID, courseID: courseID}]
	return ok, nil
}

func (repo *courseRepository) Watchlist(_ context.Context, userID int64) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.linkedCourses(repo.db.watchlist, userID, false), nil
}

func (repo *courseRepository) CreateReview(_ context.Context, r course.Review) (course.Review, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	c, ok := repo.db.courses[r.CourseID]
	if !ok {
		return course.Review{}, course.ErrNotFound
	}
	var sum, count int
	for _, other := range repo.db.reviews {
		if other.CourseID != r.CourseID {
			continue
		}
		if other.UserID == r.UserID {
			return course.Review{}, course.ErrAlreadyReviewed
		}
		sum += other.Rating
		count++
	}

	r.ID = repo.db.nextID("reviews")
	repo.db.reviews[r.ID] = &r

	sum += r.Rating
	count++
	c.RatingCount = count
	c.Rating = math.Round(float64(sum)/float64(count)*100) / 100
	return r, nil
}

func (repo *courseRepository) QueryReviews(_ context.Context, courseID int64, limit int) ([]course.Review, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	reviews := make([]course.Review, 0)
	for _, r := range repo.db.reviews {
		if r.CourseID != courseID {
			continue
		}
		rev := *r
		if usr, ok := repo.db.users[rev.UserID]; ok {
			rev.UserName = usr.DisplayName()
		}
		reviews = append(reviews, rev)
	}
	sort.Slice(reviews, func(i, j int) bool {
		if !reviews[i].CreatedAt.Equal(reviews[j].CreatedAt) {
			return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
		}
		return reviews[i].ID > reviews[j].ID
	})
	if limit > 0 && len(reviews) > limit {
		reviews = reviews[:limit]
	}
	return reviews, nil
}
