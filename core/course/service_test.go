package course_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udemo/academy/core"
	"github.com/udemo/academy/core/category"
	"github.com/udemo/academy/core/course"
	"github.com/udemo/academy/core/user"
	inmemdb "github.com/udemo/academy/storage/database/inmem"
)

type observerMock struct {
	modes []course.TextMode
}

func (o *observerMock) ObserveSearch(mode course.TextMode, _ time.Duration, _ int) {
	o.modes = append(o.modes, mode)
}

type fixture struct {
	ctx      context.Context
	svc      *course.Service
	cats     *category.Service
	users    user.Repository
	observer *observerMock

	admin     user.User
	teacher   user.User
	other     user.User
	student   user.User
	root      category.Category
	child     category.Category
	unrelated category.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := inmemdb.Open()
	f := &fixture{
		ctx:      context.Background(),
		cats:     category.NewService(inmemdb.NewCategoryRepository(db)),
		users:    inmemdb.NewUserRepository(db),
		observer: &observerMock{},
	}
	f.svc = course.NewService(inmemdb.NewCourseRepository(db), f.cats, f.observer)

	mkUser := func(name, email string, roles ...string) user.User {
		usr, err := f.users.CreateUser(f.ctx, user.User{Name: name, Email: email, Roles: roles, IsActive: true, IsVerified: true})
		require.NoError(t, err)
		return usr
	}
	f.admin = mkUser("Quản Trị", "admin@test.test", user.RoleAdmin)
	f.teacher = mkUser("Trần Minh", "minh@test.test", user.RoleTeacher)
	f.other = mkUser("Lê Hoa", "hoa@test.test", user.RoleTeacher)
	f.student = mkUser("Phạm Lan", "lan@test.test", user.RoleStudent)

	var err error
	f.root, err = f.cats.Create(f.ctx, category.NewCategory{Name: "Lập trình"})
	require.NoError(t, err)
	f.child, err = f.cats.Create(f.ctx, category.NewCategory{Name: "Web", ParentID: &f.root.ID})
	require.NoError(t, err)
	f.unrelated, err = f.cats.Create(f.ctx, category.NewCategory{Name: "Thiết kế"})
	require.NoError(t, err)
	return f
}

func (f *fixture) course(t *testing.T, teacher user.User, title string, cat category.Category, price int64, discount *int64) course.Course {
	t.Helper()
	c, err := f.svc.Create(f.ctx, teacher, course.NewCourse{
		Title:         title,
		Description:   title + " cho người mới bắt đầu",
		CategoryID:    cat.ID,
		Price:         price,
		DiscountPrice: discount,
	})
	require.NoError(t, err)
	return c
}

func i64(v int64) *int64 { return &v }

func titles(courses []course.Course) []string {
	out := make([]string, len(courses))
	for i, c := range courses {
		out[i] = c.Title
	}
	return out
}

func TestService_Search(t *testing.T) {
	f := newFixture(t)
	golang := f.course(t, f.teacher, "Lập trình Go", f.root, 500000, i64(300000))
	react := f.course(t, f.teacher, "React cơ bản", f.child, 400000, nil)
	f.course(t, f.other, "Photoshop", f.unrelated, 200000, nil)
	hidden := f.course(t, f.teacher, "Go nâng cao", f.root, 900000, nil)
	_, err := f.svc.SetDisabled(f.ctx, hidden.ID, true)
	require.NoError(t, err)

	t.Run("category expands to children", func(t *testing.T) {
		res, err := f.svc.Search(f.ctx, course.SearchFilter{CategoryIDs: []int64{f.root.ID}, Sort: course.SortPriceAsc})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Total)
		assert.Equal(t, []string{golang.Title, react.Title}, titles(res.Courses))
	})

	t.Run("full text ignores diacritics", func(t *testing.T) {
		res, err := f.svc.Search(f.ctx, course.SearchFilter{Query: "lap trinh"})
		require.NoError(t, err)
		assert.Equal(t, []string{golang.Title}, titles(res.Courses))
	})

	t.Run("search matches teacher name", func(t *testing.T) {
		res, err := f.svc.Search(f.ctx, course.SearchFilter{Query: "tran minh"})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Total)
	})

	t.Run("short query uses substring", func(t *testing.T) {
		res, err := f.svc.Search(f.ctx, course.SearchFilter{Query: "Go"})
		require.NoError(t, err)
		assert.Equal(t, []string{golang.Title}, titles(res.Courses))
	})

	t.Run("price range uses the effective price", func(t *testing.T) {
		res, err := f.svc.Search(f.ctx, course.SearchFilter{MinPrice: i64(250000), MaxPrice: i64(350000)})
		require.NoError(t, err)
		assert.Equal(t, []string{golang.Title}, titles(res.Courses))
	})

	t.Run("discount", func(t *testing.T) {
		res, err := f.svc.Search(f.ctx, course.SearchFilter{Discount: true})
		require.NoError(t, err)
		assert.Equal(t, []string{golang.Title}, titles(res.Courses))
	})

	t.Run("pagination", func(t *testing.T) {
		res, err := f.svc.Search(f.ctx, course.SearchFilter{Sort: course.SortPriceDesc, Page: 2, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Total)
		assert.Equal(t, 2, res.TotalPages)
		assert.Equal(t, []string{"Photoshop"}, titles(res.Courses))
		assert.True(t, res.HasPrev())
		assert.False(t, res.HasNext())
	})

	t.Run("admin and teacher listings include disabled", func(t *testing.T) {
		res, err := f.svc.AdminSearch(f.ctx, course.SearchFilter{})
		require.NoError(t, err)
		assert.Equal(t, 4, res.Total)

		res, err = f.svc.TeacherCourses(f.ctx, f.teacher, course.SearchFilter{})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Total)
	})

	assert.Contains(t, f.observer.modes, course.TextFullText)
	assert.Contains(t, f.observer.modes, course.TextSubstring)
}

func TestService_Detail(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, f.teacher, "Lập trình Go", f.root, 500000, nil)
	related := f.course(t, f.other, "Go web", f.root, 100000, nil)

	sec, err := f.svc.AddSection(f.ctx, f.teacher, c.ID, course.NewSection{Title: "Giới thiệu"})
	require.NoError(t, err)
	assert.Equal(t, 0, sec.OrderIndex)
	sec2, err := f.svc.AddSection(f.ctx, f.teacher, c.ID, course.NewSection{Title: "Cơ bản"})
	require.NoError(t, err)
	assert.Equal(t, 1, sec2.OrderIndex)

	_, err = f.svc.AddLecture(f.ctx, f.teacher, sec.ID, course.NewLecture{Title: "Cài đặt", Minutes: 45})
	require.NoError(t, err)
	_, err = f.svc.AddLecture(f.ctx, f.teacher, sec2.ID, course.NewLecture{Title: "Biến", Minutes: 30, IsPreview: true})
	require.NoError(t, err)

	d, err := f.svc.Detail(f.ctx, c.ID, &f.student)
	require.NoError(t, err)
	assert.Equal(t, 2, d.LectureCount)
	assert.Equal(t, 75, d.TotalMinutes)
	assert.Equal(t, "1 giờ 15 phút", d.Duration)
	require.NotNil(t, d.Preview)
	assert.Equal(t, "Biến", d.Preview.Title)
	assert.Equal(t, []string{related.Title}, titles(d.Related))
	assert.Equal(t, "Trần Minh", d.Course.TeacherName)
	assert.Equal(t, "Lập trình", d.Course.CategoryName)
	assert.Equal(t, 1, d.Teacher.CourseCount)
	assert.False(t, d.IsEnrolled)
	assert.Equal(t, 1, d.Course.ViewCount)

	_, err = f.svc.SetDisabled(f.ctx, c.ID, true)
	require.NoError(t, err)
	_, err = f.svc.Detail(f.ctx, c.ID, nil)
	assert.True(t, core.IsNotFound(err))
	_, err = f.svc.Detail(f.ctx, c.ID, &f.teacher)
	assert.NoError(t, err)
	_, err = f.svc.Detail(f.ctx, c.ID, &f.admin)
	assert.NoError(t, err)
}

func TestService_Ownership(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, f.teacher, "Lập trình Go", f.root, 500000, nil)

	_, err := f.svc.Update(f.ctx, f.other, c.ID, course.UpdateCourse{Title: "Hijack", CategoryID: f.root.ID})
	assert.True(t, core.IsForbidden(err))
	assert.True(t, core.IsForbidden(f.svc.Delete(f.ctx, f.student, c.ID)))

	updated, err := f.svc.Update(f.ctx, f.admin, c.ID, course.UpdateCourse{Title: "Go từ A đến Z", CategoryID: f.child.ID, Price: 1000})
	require.NoError(t, err)
	assert.Equal(t, "Web", updated.CategoryName)
	assert.Equal(t, "Lập trình", updated.ParentCategoryName)

	_, err = f.svc.Update(f.ctx, f.teacher, c.ID, course.UpdateCourse{Title: "X", CategoryID: 999})
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, "category_id", vErr.Fields[0].Field)

	_, err = f.svc.Update(f.ctx, f.teacher, c.ID, course.UpdateCourse{Title: "X", CategoryID: f.root.ID, Price: 100, DiscountPrice: i64(200)})
	assert.Error(t, err)

	require.NoError(t, f.svc.Delete(f.ctx, f.teacher, c.ID))
	_, err = f.svc.GetByID(f.ctx, c.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestService_EnrollReview(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, f.teacher, "Lập trình Go", f.root, 500000, nil)

	_, err := f.svc.Review(f.ctx, f.student, c.ID, course.NewReview{Rating: 5})
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, course.ErrNotEnrolled, vErr.Err)

	require.NoError(t, f.svc.Enroll(f.ctx, f.student, c.ID))
	err = f.svc.Enroll(f.ctx, f.student, c.ID)
	_, ok = err.(*core.ValidationError)
	assert.True(t, ok)

	rev, err := f.svc.Review(f.ctx, f.student, c.ID, course.NewReview{Rating: 4, Comment: "  Hay  "})
	require.NoError(t, err)
	assert.Equal(t, "Hay", rev.Comment)
	_, err = f.svc.Review(f.ctx, f.student, c.ID, course.NewReview{Rating: 3})
	assert.Error(t, err)

	require.NoError(t, f.svc.Enroll(f.ctx, f.admin, c.ID))
	_, err = f.svc.Review(f.ctx, f.admin, c.ID, course.NewReview{Rating: 5})
	require.NoError(t, err)

	got, err := f.svc.GetByID(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.EnrollmentCount)
	assert.Equal(t, 2, got.RatingCount)
	assert.Equal(t, 4.5, got.Rating)

	reviews, err := f.svc.Reviews(f.ctx, c.ID, 10)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.ElementsMatch(t, []string{"Phạm Lan", "Quản Trị"}, []string{reviews[0].UserName, reviews[1].UserName})

	enrolled, err := f.svc.EnrolledCourses(f.ctx, f.student)
	require.NoError(t, err)
	assert.Equal(t, []string{c.Title}, titles(enrolled))

	_, err = f.svc.Review(f.ctx, f.student, c.ID, course.NewReview{Rating: 6})
	assert.Error(t, err)
}

func TestService_Watchlist(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, f.teacher, "Lập trình Go", f.root, 500000, nil)

	require.NoError(t, f.svc.AddToWatchlist(f.ctx, f.student, c.ID))
	require.NoError(t, f.svc.AddToWatchlist(f.ctx, f.student, c.ID))
	list, err := f.svc.Watchlist(f.ctx, f.student)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	d, err := f.svc.Detail(f.ctx, c.ID, &f.student)
	require.NoError(t, err)
	assert.True(t, d.InWatchlist)

	require.NoError(t, f.svc.RemoveFromWatchlist(f.ctx, f.student, c.ID))
	list, err = f.svc.Watchlist(f.ctx, f.student)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.True(t, core.IsNotFound(f.svc.AddToWatchlist(f.ctx, f.student, 999)))
}

func TestService_Home(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, f.teacher, "Lập trình Go", f.root, 500000, nil)
	f.course(t, f.other, "Photoshop", f.unrelated, 200000, nil)
	_, err := f.svc.SetFeatured(f.ctx, c.ID, true)
	require.NoError(t, err)
	require.NoError(t, f.svc.Enroll(f.ctx, f.student, c.ID))

	home, err := f.svc.Home(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{c.Title}, titles(home.Featured))
	assert.Len(t, home.Newest, 2)
	assert.Equal(t, c.Title, home.Popular[0].Title)
	require.NotEmpty(t, home.TopCategories)
	assert.Equal(t, f.root.ID, home.TopCategories[0].ID)
}

func TestService_Curriculum(t *testing.T) {
	f := newFixture(t)
	c := f.course(t, f.teacher, "Lập trình Go", f.root, 500000, nil)

	sec, err := f.svc.AddSection(f.ctx, f.teacher, c.ID, course.NewSection{Title: "Một"})
	require.NoError(t, err)
	lec, err := f.svc.AddLecture(f.ctx, f.teacher, sec.ID, course.NewLecture{Title: "Bài 1", Minutes: 10})
	require.NoError(t, err)
	_, err = f.svc.AddLecture(f.ctx, f.other, sec.ID, course.NewLecture{Title: "Bài 2"})
	assert.True(t, core.IsForbidden(err))

	_, err = f.svc.UpdateLecture(f.ctx, f.teacher, lec.ID, course.UpdateLecture{Title: "Bài mở đầu", Minutes: 12})
	require.NoError(t, err)

	sections, err := f.svc.Curriculum(f.ctx, f.teacher, c.ID)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	require.Len(t, sections[0].Lectures, 1)
	assert.Equal(t, "Bài mở đầu", sections[0].Lectures[0].Title)
	assert.Equal(t, 12, sections[0].Minutes)

	require.NoError(t, f.svc.DeleteSection(f.ctx, f.teacher, sec.ID))
	_, err = f.svc.UpdateLecture(f.ctx, f.teacher, lec.ID, course.UpdateLecture{Title: "x"})
	assert.True(t, core.IsNotFound(err))
}
