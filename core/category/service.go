package category

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/udemo/academy/core"
)

var (
	ErrNotFound      = core.NewNotFoundError("category not found")
	ErrNameExists    = errors.New("a category with this name already exists")
	ErrInvalidParent = errors.New("parent must be an existing top-level category")
	ErrHasCourses    = errors.New("category still has courses")
	ErrHasChildren   = errors.New("category still has sub-categories")
)

type (
	Repository interface {
		CheckNameUniqueness(ctx context.Context, name, slug string, excludedID int64) error
		CreateCategory(ctx context.Context, cat Category) (Category, error)
		// QueryCategories returns every category with its CourseCount and EnrollmentCount.
		QueryCategories(ctx context.Context) ([]Category, error)
		GetCategory(ctx context.Context, id int64) (Category, error)
		// UpdateCategory also refreshes the search document of the category's courses.
		UpdateCategory(ctx context.Context, cat Category) (Category, error)
		DeleteCategory(ctx context.Context, id int64) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) List(ctx context.Context) ([]Category, error) {
	return svc.repo.QueryCategories(ctx)
}

func (svc *Service) Tree(ctx context.Context) ([]Node, error) {
	all, err := svc.repo.QueryCategories(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(all), nil
}

func (svc *Service) GetByID(ctx context.Context, id int64) (Category, error) {
	return svc.repo.GetCategory(ctx, id)
}

// Expand resolves requested ids to themselves plus their direct children.
func (svc *Service) Expand(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	all, err := svc.repo.QueryCategories(ctx)
	if err != nil {
		return nil, err
	}
	return ExpandIDs(ids, all), nil
}

// TopByEnrollments returns at most limit categories ordered by the enrollments of their courses.
func (svc *Service) TopByEnrollments(ctx context.Context, limit int) ([]Category, error) {
	all, err := svc.repo.QueryCategories(ctx)
	if err != nil {
		return nil, err
	}
	top := make([]Category, 0, len(all))
	for _, c := range all {
		if c.CourseCount > 0 {
			top = append(top, c)
		}
	}
	sortByEnrollments(top)
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

func (svc *Service) validate(ctx context.Context, data *NewCategory, excludedID int64) (string, error) {
	if err := data.Validate(); err != nil {
		return "", err
	}
	if data.ParentID != nil {
		parent, err := svc.repo.GetCategory(ctx, *data.ParentID)
		if err != nil && errors.Cause(err) != ErrNotFound {
			return "", err
		}
		if err != nil || !parent.IsRoot() || parent.ID == excludedID {
			return "", core.NewValidationError(ErrInvalidParent, core.FieldError{Field: "parent_id", Error: ErrInvalidParent.Error()})
		}
	}

	slug := core.Slugify(data.Name)
	if err := svc.repo.CheckNameUniqueness(ctx, data.Name, slug, excludedID); err != nil {
		if errors.Cause(err) == ErrNameExists {
			return "", core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return "", err
	}
	return slug, nil
}

func (svc *Service) Create(ctx context.Context, data NewCategory) (Category, error) {
	slug, err := svc.validate(ctx, &data, 0)
	if err != nil {
		return Category{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateCategory(ctx, Category{
		Name:      data.Name,
		Slug:      slug,
		ParentID:  data.ParentID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Update(ctx context.Context, id int64, data UpdateCategory) (Category, error) {
	cat, err := svc.repo.GetCategory(ctx, id)
	if err != nil {
		return Category{}, err
	}
	slug, err := svc.validate(ctx, &data, id)
	if err != nil {
		return Category{}, err
	}

	// a category with children cannot become one
	if data.ParentID != nil && cat.IsRoot() {
		all, err := svc.repo.QueryCategories(ctx)
		if err != nil {
			return Category{}, err
		}
		if hasChildren(id, all) {
			return Category{}, core.NewValidationError(ErrHasChildren, core.FieldError{Field: "parent_id", Error: ErrHasChildren.Error()})
		}
	}

	cat.Name = data.Name
	cat.Slug = slug
	cat.ParentID = data.ParentID
	cat.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCategory(ctx, cat)
}

func (svc *Service) Delete(ctx context.Context, id int64) error {
	cat, err := svc.repo.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if cat.CourseCount > 0 {
		return core.NewValidationError(ErrHasCourses)
	}
	all, err := svc.repo.QueryCategories(ctx)
	if err != nil {
		return err
	}
	if hasChildren(id, all) {
		return core.NewValidationError(ErrHasChildren)
	}
	return svc.repo.DeleteCategory(ctx, id)
}

func hasChildren(id int64, all []Category) bool {
	for _, c := range all {
		if c.ParentID != nil && *c.ParentID == id {
			return true
		}
	}
	return false
}
