package course

import (
	"time"

	"github.com/udemo/academy/core"
)

type Course struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	ShortDescription string  `json:"short_description"`
	Description      string  `json:"description"`
	Thumbnail        string  `json:"thumbnail"`
	Price            int64   `json:"price"`
	DiscountPrice    *int64  `json:"discount_price"`
	Rating           float64 `json:"rating"`
	RatingCount      int     `json:"rating_count"`
	EnrollmentCount  int     `json:"enrollment_count"`
	ViewCount        int     `json:"view_count"`
	IsFeatured       bool    `json:"is_featured"`
	IsCompleted      bool    `json:"is_completed"`
	IsDisabled       bool    `json:"is_disabled"`

	CategoryID         int64  `json:"category_id"`
	CategoryName       string `json:"category_name"`
	ParentCategoryID   *int64 `json:"parent_category_id"`
	ParentCategoryName string `json:"parent_category_name,omitempty"`

	TeacherID        int64  `json:"teacher_id"`
	TeacherName      string `json:"teacher_name"`
	TeacherBio       string `json:"teacher_bio,omitempty"`
	TeacherAvatarURL string `json:"teacher_avatar_url,omitempty"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// EffectivePrice is the discount price when set, otherwise the price.
func (c Course) EffectivePrice() int64 {
	if c.DiscountPrice != nil {
		return *c.DiscountPrice
	}
	return c.Price
}

func (c Course) HasDiscount() bool {
	return c.DiscountPrice != nil && *c.DiscountPrice < c.Price
}

// DiscountPercent is the rounded percentage saved, 0 without a discount.
func (c Course) DiscountPercent() int {
	if !c.HasDiscount() || c.Price == 0 {
		return 0
	}
	return int(((c.Price-*c.DiscountPrice)*200/c.Price + 1) / 2)
}

type Section struct {
	ID         int64     `json:"id"`
	CourseID   int64     `json:"course_id"`
	Title      string    `json:"title"`
	OrderIndex int       `json:"order_index"`
	Lectures   []Lecture `json:"lectures"`

	// derived
	LectureCount int    `json:"lecture_count"`
	Minutes      int    `json:"minutes"`
	Duration     string `json:"duration"`
}

type Lecture struct {
	ID         int64  `json:"id"`
	SectionID  int64  `json:"section_id"`
	CourseID   int64  `json:"course_id"`
	Title      string `json:"title"`
	VideoURL   string `json:"video_url,omitempty"`
	Minutes    int    `json:"minutes"`
	IsPreview  bool   `json:"is_preview"`
	OrderIndex int    `json:"order_index"`
}

type Review struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name"`
	CourseID  int64     `json:"course_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type TeacherStats struct {
	CourseCount  int     `json:"course_count"`
	StudentCount int     `json:"student_count"`
	AvgRating    float64 `json:"avg_rating"`
}

type Enrollment struct {
	UserID     int64     `json:"user_id"`
	CourseID   int64     `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"` // UTC
}

// Inputs

type NewCourse struct {
	Title            string `json:"title" form:"title" validate:"required,notblank,max=200"`
	ShortDescription string `json:"short_description" form:"short_description" validate:"max=300"`
	Description      string `json:"description" form:"description"`
	CategoryID       int64  `json:"category_id" form:"category_id" validate:"required,min=1"`
	Price            int64  `json:"price" form:"price" validate:"min=0"`
	DiscountPrice    *int64 `json:"discount_price" form:"discount_price" validate:"omitempty,min=0,ltfield=Price"`
	IsCompleted      bool   `json:"is_completed" form:"is_completed"`
}

func (nc *NewCourse) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	nc.ShortDescription = core.CleanString(nc.ShortDescription)
	nc.Description = core.CleanString(nc.Description)
	return core.Validate.Struct(nc)
}

type UpdateCourse = NewCourse

type NewSection struct {
	Title      string `json:"title" validate:"required,notblank,max=200"`
	OrderIndex *int   `json:"order_index" validate:"omitempty,min=0"`
}

func (ns *NewSection) Validate() error {
	ns.Title = core.CleanString(ns.Title)
	return core.Validate.Struct(ns)
}

type UpdateSection = NewSection

type NewLecture struct {
	Title      string `json:"title" validate:"required,notblank,max=200"`
	VideoURL   string `json:"video_url" validate:"omitempty,url"`
	Minutes    int    `json:"minutes" validate:"min=0,max=1440"`
	IsPreview  bool   `json:"is_preview"`
	OrderIndex *int   `json:"order_index" validate:"omitempty,min=0"`
}

func (nl *NewLecture) Validate() error {
	nl.Title = core.CleanString(nl.Title)
	nl.VideoURL = core.CleanString(nl.VideoURL)
	return core.Validate.Struct(nl)
}

type UpdateLecture = NewLecture

type NewReview struct {
	Rating  int    `json:"rating" form:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" form:"comment" validate:"max=2000"`
}

func (nr *NewReview) Validate() error {
	nr.Comment = core.CleanString(nr.Comment)
	return core.Validate.Struct(nr)
}
