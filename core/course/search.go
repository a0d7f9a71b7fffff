package course

import (
	"strings"

	"github.com/udemo/academy/core"
)

// SearchDocument is the folded, lowered text indexed for full-text search.
func SearchDocument(title, description, categoryName, teacherName string) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{title, description, categoryName, teacherName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.ToLower(core.Fold(strings.Join(parts, " ")))
}

func (c Course) SearchDocument() string {
	return SearchDocument(c.Title, c.Description, c.CategoryName, c.TeacherName)
}

type SearchResult struct {
	Courses    []Course     `json:"courses"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	TotalPages int          `json:"total_pages"`
	Filter     SearchFilter `json:"-"`
}

func NewSearchResult(courses []Course, total int, filter SearchFilter) SearchResult {
	if courses == nil {
		courses = []Course{}
	}
	return SearchResult{
		Courses:    courses,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: filter.Pagination().TotalPages(total),
		Filter:     filter,
	}
}

func (r SearchResult) HasPrev() bool { return r.Page > 1 }
func (r SearchResult) HasNext() bool { return r.Page < r.TotalPages }

type Home struct {
	Featured      []Course      `json:"featured"`
	Newest        []Course      `json:"newest"`
	Popular       []Course      `json:"popular"`
	TopCategories []TopCategory `json:"top_categories"`
}

type TopCategory struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	CourseCount     int    `json:"course_count"`
	EnrollmentCount int    `json:"enrollment_count"`
}
