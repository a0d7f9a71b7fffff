package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/udemo/academy/core/category"
	"github.com/udemo/academy/core/course"
	"github.com/udemo/academy/core/user"
)

const seedTeacherUsername = "giangvien"

type (
	seedLecture struct {
		title   string
		minutes int
		preview bool
	}

	seedSection struct {
		title    string
		lectures []seedLecture
	}

	seedCourse struct {
		title, short string
		price        int64
		discount     int64 // 0: none
		sections     []seedSection
	}

	seedCategory struct {
		name     string
		courses  []seedCourse
		children []seedCategory
	}
)

var basicSections = []seedSection{
	{title: "Giới thiệu", lectures: []seedLecture{
		{title: "Chào mừng", minutes: 5, preview: true},
		{title: "Cài đặt môi trường", minutes: 15},
	}},
	{title: "Thực hành", lectures: []seedLecture{
		{title: "Bài tập 1", minutes: 30},
		{title: "Bài tập 2", minutes: 45},
	}},
}

var seedCatalog = []seedCategory{
	{
		name: "Lập trình",
		courses: []seedCourse{
			{title: "Lập trình Go căn bản", short: "Học Go từ con số không", price: 499000, discount: 299000, sections: basicSections},
		},
		children: []seedCategory{
			{name: "Phát triển Web", courses: []seedCourse{
				{title: "React thực chiến", short: "Xây dựng ứng dụng web với React", price: 799000, sections: basicSections},
				{title: "HTML & CSS cho người mới", short: "Nền tảng của mọi trang web", sections: basicSections},
			}},
			{name: "Khoa học dữ liệu", courses: []seedCourse{
				{title: "Python phân tích dữ liệu", short: "Pandas, NumPy và trực quan hóa", price: 1250000, discount: 990000, sections: basicSections},
			}},
		},
	},
	{
		name: "Thiết kế",
		courses: []seedCourse{
			{title: "Thiết kế giao diện với Figma", short: "Từ wireframe đến prototype", price: 599000, sections: basicSections},
		},
	},
	{
		name: "Ngoại ngữ",
		courses: []seedCourse{
			{title: "Tiếng Anh giao tiếp", short: "Tự tin nói tiếng Anh sau 30 ngày", price: 399000, discount: 199000, sections: basicSections},
		},
	},
}

// seed adds a demo teacher and the demo catalog. It does nothing when categories already exist.
func (cli *commandLine) seed() error {
	ctx := context.Background()

	cats, err := cli.cats.List(ctx)
	if err != nil {
		return err
	}
	if len(cats) > 0 {
		fmt.Println("catalog is not empty, nothing to seed")
		return nil
	}

	teacher, err := cli.seedTeacher(ctx)
	if err != nil {
		return err
	}
	count := 0
	for _, sc := range seedCatalog {
		n, err := cli.seedCategory(ctx, teacher, sc, nil)
		if err != nil {
			return err
		}
		count += n
	}
	fmt.Printf("seeded %d courses\n", count)
	return nil
}

func (cli *commandLine) seedTeacher(ctx context.Context) (user.User, error) {
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: seedTeacherUsername})
	if err == nil {
		return usr, nil
	}
	if errors.Cause(err) != user.ErrNotFound {
		return user.User{}, err
	}
	now := time.Now().UTC()
	return cli.usrRepo.CreateUser(ctx, user.User{
		Name:       "Nguyễn Văn An",
		Username:   seedTeacherUsername,
		Email:      seedTeacherUsername + "@academy.local",
		Bio:        "Kỹ sư phần mềm với hơn 10 năm kinh nghiệm giảng dạy.",
		IsActive:   true,
		IsVerified: true,
		Roles:      []string{user.RoleTeacher},
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (cli *commandLine) seedCategory(ctx context.Context, teacher user.User, sc seedCategory, parent *int64) (int, error) {
	cat, err := cli.cats.Create(ctx, category.NewCategory{Name: sc.name, ParentID: parent})
	if err != nil {
		return 0, errors.Wrapf(err, "creating category %q", sc.name)
	}

	count := 0
	for _, c := range sc.courses {
		if err := cli.seedCourse(ctx, teacher, cat.ID, c); err != nil {
			return count, errors.Wrapf(err, "creating course %q", c.title)
		}
		count++
	}
	for _, child := range sc.children {
		n, err := cli.seedCategory(ctx, teacher, child, &cat.ID)
		if err != nil {
			return count, err
		}
		count += n
	}
	return count, nil
}

func (cli *commandLine) seedCourse(ctx context.Context, teacher user.User, categoryID int64, sc seedCourse) error {
	data := course.NewCourse{
		Title:            sc.title,
		ShortDescription: sc.short,
		Description:      sc.short,
		CategoryID:       categoryID,
		Price:            sc.price,
		IsCompleted:      true,
	}
	if sc.discount > 0 {
		discount := sc.discount
		data.DiscountPrice = &discount
	}
	c, err := cli.courses.Create(ctx, teacher, data)
	if err != nil {
		return err
	}

	for _, ss := range sc.sections {
		sec, err := cli.courses.AddSection(ctx, teacher, c.ID, course.NewSection{Title: ss.title})
		if err != nil {
			return err
		}
		for _, sl := range ss.lectures {
			nl := course.NewLecture{Title: sl.title, Minutes: sl.minutes, IsPreview: sl.preview}
			if _, err := cli.courses.AddLecture(ctx, teacher, sec.ID, nl); err != nil {
				return err
			}
		}
	}
	return nil
}
