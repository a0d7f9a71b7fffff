package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/udemo/academy/core"
	"github.com/udemo/academy/core/category"
	"github.com/udemo/academy/core/user"
)

const (
	homeListSize       = 8
	homeTopCategories  = 6
	detailReviewsLimit = 10
	relatedLimit       = 5
)

var (
	ErrNotFound        = core.NewNotFoundError("course not found")
	ErrSectionNotFound = core.NewNotFoundError("section not found")
	ErrLectureNotFound = core.NewNotFoundError("lecture not found")
	ErrForbidden       = core.NewForbiddenError("you do not own this course")
	ErrAlreadyEnrolled = errors.New("already enrolled in this course")
	ErrNotEnrolled     = errors.New("only enrolled students can review this course")
	ErrAlreadyReviewed = errors.New("you have already reviewed this course")
	ErrCourseDisabled  = errors.New("this course is not available")
	errUnknownCategory = "unknown category"
)

type (
	Repository interface {
		// SearchCourses returns one page of courses matching filter and the total match count.
		// categoryIDs holds the already expanded category filter.
		SearchCourses(ctx context.Context, filter SearchFilter, text TextSearch, categoryIDs []int64) ([]Course, int, error)
		GetCourse(ctx context.Context, id int64) (Course, error)
		TeacherStats(ctx context.Context, teacherID int64) (TeacherStats, error)
		RelatedCourses(ctx context.Context, c Course, limit int) ([]Course, error)
		IncrementViews(ctx context.Context, id int64) error

		// course writes refresh the course's search document
		CreateCourse(ctx context.Context, c Course) (Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id int64) error

		QuerySections(ctx context.Context, courseID int64) ([]Section, error)
		QueryLectures(ctx context.Context, courseID int64) ([]Lecture, error)
		GetSection(ctx context.Context, id int64) (Section, error)
		CreateSection(ctx context.Context, s Section) (Section, error)
		UpdateSection(ctx context.Context, s Section) (Section, error)
		DeleteSection(ctx context.Context, id int64) error
		GetLecture(ctx context.Context, id int64) (Lecture, error)
		CreateLecture(ctx context.Context, l Lecture) (Lecture, error)
		UpdateLecture(ctx context.Context, l Lecture) (Lecture, error)
		DeleteLecture(ctx context.Context, id int64) error

		// Enroll fails with ErrAlreadyEnrolled and bumps the course's enrollment count.
		Enroll(ctx context.Context, userID, courseID int64) error
		IsEnrolled(ctx context.Context, userID, courseID int64) (bool, error)
		EnrolledCourses(ctx context.Context, userID int64) ([]Course, error)

		AddToWatchlist(ctx context.Context, userID, courseID int64) error
		RemoveFromWatchlist(ctx context.Context, userID, courseID int64) error
		InWatchlist(ctx context.Context, userID, courseID int64) (bool, error)
		Watchlist(ctx context.Context, userID int64) ([]Course, error)

		// CreateReview fails with ErrAlreadyReviewed and recomputes the course rating.
		CreateReview(ctx context.Context, r Review) (Review, error)
		QueryReviews(ctx context.Context, courseID int64, limit int) ([]Review, error)
	}

	Categories interface {
		GetByID(ctx context.Context, id int64) (category.Category, error)
		Expand(ctx context.Context, ids []int64) ([]int64, error)
		TopByEnrollments(ctx context.Context, limit int) ([]category.Category, error)
	}

	// SearchObserver is notified of every listing query.
	SearchObserver interface {
		ObserveSearch(mode TextMode, took time.Duration, total int)
	}

	Service struct {
		repo     Repository
		cats     Categories
		observer SearchObserver
	}
)

func NewService(repo Repository, cats Categories, observer SearchObserver) *Service {
	return &Service{repo: repo, cats: cats, observer: observer}
}

// Listing

// Search runs a public listing query; disabled courses are never returned.
func (svc *Service) Search(ctx context.Context, filter SearchFilter) (SearchResult, error) {
	filter.TeacherID = 0
	filter.IncludeDisabled = false
	return svc.search(ctx, filter)
}

// AdminSearch lists courses including disabled ones.
func (svc *Service) AdminSearch(ctx context.Context, filter SearchFilter) (SearchResult, error) {
	filter.IncludeDisabled = true
	return svc.search(ctx, filter)
}

// TeacherCourses lists the teacher's own courses, including disabled ones.
func (svc *Service) TeacherCourses(ctx context.Context, teacher user.User, filter SearchFilter) (SearchResult, error) {
	filter.TeacherID = teacher.ID
	filter.IncludeDisabled = true
	return svc.search(ctx, filter)
}

func (svc *Service) search(ctx context.Context, filter SearchFilter) (SearchResult, error) {
	start := time.Now()
	filter.Normalize(core.Conf.SearchPageSize, core.Conf.SearchMaxPerPage)

	catIDs, err := svc.cats.Expand(ctx, filter.CategoryIDs)
	if err != nil {
		return SearchResult{}, errors.Wrap(err, "expanding categories")
	}
	text := TextQuery(filter.Query)

	courses, total, err := svc.repo.SearchCourses(ctx, filter, text, catIDs)
	if err != nil {
		return SearchResult{}, errors.Wrap(err, "searching courses")
	}
	if svc.observer != nil {
		svc.observer.ObserveSearch(text.Mode, time.Since(start), total)
	}
	return NewSearchResult(courses, total, filter), nil
}

func (svc *Service) Home(ctx context.Context) (Home, error) {
	var home Home
	lists := []struct {
		dst    *[]Course
		filter SearchFilter
	}{
		{dst: &home.Featured, filter: SearchFilter{Featured: true, Limit: homeListSize}},
		{dst: &home.Newest, filter: SearchFilter{Sort: SortNewest, Limit: homeListSize}},
		{dst: &home.Popular, filter: SearchFilter{Sort: SortPopular, Limit: homeListSize}},
	}
	for _, l := range lists {
		res, err := svc.Search(ctx, l.filter)
		if err != nil {
			return Home{}, err
		}
		*l.dst = res.Courses
	}

	cats, err := svc.cats.TopByEnrollments(ctx, homeTopCategories)
	if err != nil {
		return Home{}, errors.Wrap(err, "querying top categories")
	}
	home.TopCategories = make([]TopCategory, len(cats))
	for i, c := range cats {
		home.TopCategories[i] = TopCategory{
			ID:              c.ID,
			Name:            c.Name,
			CourseCount:     c.CourseCount,
			EnrollmentCount: c.EnrollmentCount,
		}
	}
	return home, nil
}

// Detail

// Detail aggregates a course page. viewer is nil for anonymous visitors.
func (svc *Service) Detail(ctx context.Context, id int64, viewer *user.User) (Detail, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	if c.IsDisabled && !(viewer != nil && canModify(*viewer, c)) {
		return Detail{}, ErrNotFound
	}

	stats, err := svc.repo.TeacherStats(ctx, c.TeacherID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying teacher stats")
	}
	sections, err := svc.repo.QuerySections(ctx, c.ID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying sections")
	}
	lectures, err := svc.repo.QueryLectures(ctx, c.ID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "querying lectures")
	}
	d := BuildDetail(c, stats, sections, lectures)

	if d.Reviews, err = svc.repo.QueryReviews(ctx, c.ID, detailReviewsLimit); err != nil {
		return Detail{}, errors.Wrap(err, "querying reviews")
	}
	if d.Related, err = svc.repo.RelatedCourses(ctx, c, relatedLimit); err != nil {
		return Detail{}, errors.Wrap(err, "querying related courses")
	}
	if viewer != nil {
		if d.IsEnrolled, err = svc.repo.IsEnrolled(ctx, viewer.ID, c.ID); err != nil {
			return Detail{}, errors.Wrap(err, "checking enrollment")
		}
		if d.InWatchlist, err = svc.repo.InWatchlist(ctx, viewer.ID, c.ID); err != nil {
			return Detail{}, errors.Wrap(err, "checking watchlist")
		}
	}

	if err := svc.repo.IncrementViews(ctx, c.ID); err != nil {
		return Detail{}, errors.Wrap(err, "incrementing views")
	}
	d.Course.ViewCount++
	return d, nil
}

func (svc *Service) GetByID(ctx context.Context, id int64) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

// Teacher content

func canModify(actor user.User, c Course) bool {
	return actor.IsAdmin() || (actor.IsTeacher() && c.TeacherID == actor.ID)
}

// GetEditable returns the course when actor owns it or is an admin.
func (svc *Service) GetEditable(ctx context.Context, actor user.User, id int64) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if !canModify(actor, c) {
		return Course{}, ErrForbidden
	}
	return c, nil
}

func (svc *Service) checkCategory(ctx context.Context, id int64) error {
	if _, err := svc.cats.GetByID(ctx, id); err != nil {
		if errors.Cause(err) == category.ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "category_id", Error: errUnknownCategory})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, teacher user.User, nc NewCourse) (Course, error) {
	if err := nc.Validate(); err != nil {
		return Course{}, err
	}
	if err := svc.checkCategory(ctx, nc.CategoryID); err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateCourse(ctx, Course{
		Title:            nc.Title,
		ShortDescription: nc.ShortDescription,
		Description:      nc.Description,
		Price:            nc.Price,
		DiscountPrice:    nc.DiscountPrice,
		IsCompleted:      nc.IsCompleted,
		CategoryID:       nc.CategoryID,
		TeacherID:        teacher.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

func (svc *Service) Update(ctx context.Context, actor user.User, id int64, uc UpdateCourse) (Course, error) {
	c, err := svc.GetEditable(ctx, actor, id)
	if err != nil {
		return Course{}, err
	}
	if err := uc.Validate(); err != nil {
		return Course{}, err
	}
	if uc.CategoryID != c.CategoryID {
		if err := svc.checkCategory(ctx, uc.CategoryID); err != nil {
			return Course{}, err
		}
	}

	c.Title = uc.Title
	c.ShortDescription = uc.ShortDescription
	c.Description = uc.Description
	c.Price = uc.Price
	c.DiscountPrice = uc.DiscountPrice
	c.IsCompleted = uc.IsCompleted
	c.CategoryID = uc.CategoryID
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, c)
}

// SetThumbnail stores the media path of an already saved thumbnail.
func (svc *Service) SetThumbnail(ctx context.Context, actor user.User, id int64, thumbnail string) (Course, error) {
	c, err := svc.GetEditable(ctx, actor, id)
	if err != nil {
		return Course{}, err
	}
	c.Thumbnail = thumbnail
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, c)
}

// Curriculum returns the course's sections with their lectures.
func (svc *Service) Curriculum(ctx context.Context, actor user.User, courseID int64) ([]Section, error) {
	if _, err := svc.GetEditable(ctx, actor, courseID); err != nil {
		return nil, err
	}
	return svc.curriculum(ctx, courseID)
}

func (svc *Service) curriculum(ctx context.Context, courseID int64) ([]Section, error) {
	sections, err := svc.repo.QuerySections(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying sections")
	}
	lectures, err := svc.repo.QueryLectures(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying lectures")
	}
	return GroupLectures(sections, lectures), nil
}

// nextOrderIndex appends after the current last index.
func nextOrderIndex(indexes []int) int {
	next := 0
	for _, idx := range indexes {
		if idx >= next {
			next = idx + 1
		}
	}
	return next
}

func (svc *Service) AddSection(ctx context.Context, actor user.User, courseID int64, ns NewSection) (Section, error) {
	if _, err := svc.GetEditable(ctx, actor, courseID); err != nil {
		return Section{}, err
	}
	if err := ns.Validate(); err != nil {
		return Section{}, err
	}

	sec := Section{CourseID: courseID, Title: ns.Title}
	if ns.OrderIndex != nil {
		sec.OrderIndex = *ns.OrderIndex
	} else {
		sections, err := svc.repo.QuerySections(ctx, courseID)
		if err != nil {
			return Section{}, errors.Wrap(err, "querying sections")
		}
		indexes := make([]int, len(sections))
		for i, s := range sections {
			indexes[i] = s.OrderIndex
		}
		sec.OrderIndex = nextOrderIndex(indexes)
	}
	return svc.repo.CreateSection(ctx, sec)
}

func (svc *Service) editableSection(ctx context.Context, actor user.User, id int64) (Section, error) {
	sec, err := svc.repo.GetSection(ctx, id)
	if err != nil {
		return Section{}, err
	}
	if _, err := svc.GetEditable(ctx, actor, sec.CourseID); err != nil {
		return Section{}, err
	}
	return sec, nil
}

func (svc *Service) UpdateSection(ctx context.Context, actor user.User, id int64, us UpdateSection) (Section, error) {
	sec, err := svc.editableSection(ctx, actor, id)
	if err != nil {
		return Section{}, err
	}
	if err := us.Validate(); err != nil {
		return Section{}, err
	}
	sec.Title = us.Title
	if us.OrderIndex != nil {
		sec.OrderIndex = *us.OrderIndex
	}
	return svc.repo.UpdateSection(ctx, sec)
}

// DeleteSection removes the section and its lectures.
func (svc *Service) DeleteSection(ctx context.Context, actor user.User, id int64) error {
	if _, err := svc.editableSection(ctx, actor, id); err != nil {
		return err
	}
	return svc.repo.DeleteSection(ctx, id)
}

func (svc *Service) AddLecture(ctx context.Context, actor user.User, sectionID int64, nl NewLecture) (Lecture, error) {
	sec, err := svc.editableSection(ctx, actor, sectionID)
	if err != nil {
		return Lecture{}, err
	}
	if err := nl.Validate(); err != nil {
		return Lecture{}, err
	}

	lec := Lecture{
		SectionID: sec.ID,
		CourseID:  sec.CourseID,
		Title:     nl.Title,
		VideoURL:  nl.VideoURL,
		Minutes:   nl.Minutes,
		IsPreview: nl.IsPreview,
	}
	if nl.OrderIndex != nil {
		lec.OrderIndex = *nl.OrderIndex
	} else {
		lectures, err := svc.repo.QueryLectures(ctx, sec.CourseID)
		if err != nil {
			return Lecture{}, errors.Wrap(err, "querying lectures")
		}
		indexes := make([]int, 0, len(lectures))
		for _, l := range lectures {
			if l.SectionID == sec.ID {
				indexes = append(indexes, l.OrderIndex)
			}
		}
		lec.OrderIndex = nextOrderIndex(indexes)
	}
	return svc.repo.CreateLecture(ctx, lec)
}

func (svc *Service) editableLecture(ctx context.Context, actor user.User, id int64) (Lecture, error) {
	lec, err := svc.repo.GetLecture(ctx, id)
	if err != nil {
		return Lecture{}, err
	}
	if _, err := svc.GetEditable(ctx, actor, lec.CourseID); err != nil {
		return Lecture{}, err
	}
	return lec, nil
}

func (svc *Service) UpdateLecture(ctx context.Context, actor user.User, id int64, ul UpdateLecture) (Lecture, error) {
	lec, err := svc.editableLecture(ctx, actor, id)
	if err != nil {
		return Lecture{}, err
	}
	if err := ul.Validate(); err != nil {
		return Lecture{}, err
	}
	lec.Title = ul.Title
	lec.VideoURL = ul.VideoURL
	lec.Minutes = ul.Minutes
	lec.IsPreview = ul.IsPreview
	if ul.OrderIndex != nil {
		lec.OrderIndex = *ul.OrderIndex
	}
	return svc.repo.UpdateLecture(ctx, lec)
}

func (svc *Service) DeleteLecture(ctx context.Context, actor user.User, id int64) error {
	if _, err := svc.editableLecture(ctx, actor, id); err != nil {
		return err
	}
	return svc.repo.DeleteLecture(ctx, id)
}

// Enrollment & watchlist

func (svc *Service) getAvailable(ctx context.Context, id int64) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if c.IsDisabled {
		return Course{}, ErrNotFound
	}
	return c, nil
}

func (svc *Service) Enroll(ctx context.Context, usr user.User, courseID int64) error {
	if _, err := svc.getAvailable(ctx, courseID); err != nil {
		return err
	}
	if err := svc.repo.Enroll(ctx, usr.ID, courseID); err != nil {
		if errors.Cause(err) == ErrAlreadyEnrolled {
			return core.NewValidationError(err)
		}
		return errors.Wrap(err, "enrolling")
	}
	return nil
}

func (svc *Service) IsEnrolled(ctx context.Context, usr user.User, courseID int64) (bool, error) {
	return svc.repo.IsEnrolled(ctx, usr.ID, courseID)
}

func (svc *Service) EnrolledCourses(ctx context.Context, usr user.User) ([]Course, error) {
	return svc.repo.EnrolledCourses(ctx, usr.ID)
}

func (svc *Service) AddToWatchlist(ctx context.Context, usr user.User, courseID int64) error {
	if _, err := svc.getAvailable(ctx, courseID); err != nil {
		return err
	}
	return svc.repo.AddToWatchlist(ctx, usr.ID, courseID)
}

func (svc *Service) RemoveFromWatchlist(ctx context.Context, usr user.User, courseID int64) error {
	return svc.repo.RemoveFromWatchlist(ctx, usr.ID, courseID)
}

func (svc *Service) Watchlist(ctx context.Context, usr user.User) ([]Course, error) {
	return svc.repo.Watchlist(ctx, usr.ID)
}

// Reviews

func (svc *Service) Review(ctx context.Context, usr user.User, courseID int64, nr NewReview) (Review, error) {
	if _, err := svc.getAvailable(ctx, courseID); err != nil {
		return Review{}, err
	}
	if err := nr.Validate(); err != nil {
		return Review{}, err
	}
	enrolled, err := svc.repo.IsEnrolled(ctx, usr.ID, courseID)
	if err != nil {
		return Review{}, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return Review{}, core.NewValidationError(ErrNotEnrolled)
	}

	rev, err := svc.repo.CreateReview(ctx, Review{
		UserID:    usr.ID,
		UserName:  usr.DisplayName(),
		CourseID:  courseID,
		Rating:    nr.Rating,
		Comment:   nr.Comment,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrAlreadyReviewed {
			return Review{}, core.NewValidationError(err)
		}
		return Review{}, errors.Wrap(err, "creating review")
	}
	return rev, nil
}

func (svc *Service) Reviews(ctx context.Context, courseID int64, limit int) ([]Review, error) {
	if _, err := svc.getAvailable(ctx, courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryReviews(ctx, courseID, limit)
}

// Admin

func (svc *Service) SetDisabled(ctx context.Context, id int64, disabled bool) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	c.IsDisabled = disabled
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, c)
}

func (svc *Service) SetFeatured(ctx context.Context, id int64, featured bool) (Course, error) {
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	c.IsFeatured = featured
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, c)
}

// Delete removes a course; only its owner or an admin may do so.
func (svc *Service) Delete(ctx context.Context, actor user.User, id int64) error {
	if _, err := svc.GetEditable(ctx, actor, id); err != nil {
		return err
	}
	return svc.repo.DeleteCourse(ctx, id)
}
