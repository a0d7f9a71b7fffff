package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/udemo/academy/core/category"
	"github.com/udemo/academy/core/course"
	"github.com/udemo/academy/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:       name,
		Username:   uname,
		Email:      email,
		Roles:      roles,
		IsActive:   isActive,
		IsVerified: true,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCategory(t *testing.T, svc *category.Service, name string, parent *category.Category) category.Category {
	data := category.NewCategory{Name: name}
	if parent != nil {
		data.ParentID = &parent.ID
	}
	cat, err := svc.Create(context.Background(), data)
	if err != nil {
		t.Fatalf("CreateCategory() failed: %v", err)
	}
	return cat
}

// CreateCourse stores a course for teacher; a non-negative discount is applied as the discount price.
func CreateCourse(
	t *testing.T,
	svc *course.Service,
	teacher user.User,
	cat category.Category,
	title string,
	price, discount int64,
) course.Course {
	data := course.NewCourse{
		Title:            title,
		ShortDescription: title,
		Description:      "Khóa học " + title,
		CategoryID:       cat.ID,
		Price:            price,
	}
	if discount >= 0 {
		data.DiscountPrice = &discount
	}
	c, err := svc.Create(context.Background(), teacher, data)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}
