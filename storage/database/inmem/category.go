package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/udemo/academy/core/category"
)

type categoryRepository struct {
	db *DB
}

var _ category.Repository = (*categoryRepository)(nil) // interface compliance check

func NewCategoryRepository(db *DB) *categoryRepository {
	return &categoryRepository{db: db}
}

// withCounts must be called with the lock held.
func (repo *categoryRepository) withCounts(cat category.Category) category.Category {
	cat.CourseCount, cat.EnrollmentCount = 0, 0
	for _, c := range repo.db.courses {
		if c.CategoryID == cat.ID && !c.IsDisabled {
			cat.CourseCount++
			cat.EnrollmentCount += c.EnrollmentCount
		}
	}
	return cat
}

func (repo *categoryRepository) CheckNameUniqueness(_ context.Context, name, slug string, excludedID int64) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, cat := range repo.db.categories {
		if cat.ID == excludedID {
			continue
		}
		if strings.EqualFold(cat.Name, name) || cat.Slug == slug {
			return category.ErrNameExists
		}
	}
	return nil
}

func (repo *categoryRepository) CreateCategory(ctx context.Context, cat category.Category) (category.Category, error) {
	if err := repo.CheckNameUniqueness(ctx, cat.Name, cat.Slug, 0); err != nil {
		return category.Category{}, err
	}

	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	cat.ID = repo.db.nextID("categories")
	repo.db.categories[cat.ID] = &cat
	return cat, nil
}

func (repo *categoryRepository) QueryCategories(context.Context) ([]category.Category, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	cats := make([]category.Category, 0, len(repo.db.categories))
	for _, cat := range repo.db.categories {
		cats = append(cats, repo.withCounts(*cat))
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	return cats, nil
}

func (repo *categoryRepository) GetCategory(_ context.Context, id int64) (category.Category, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	cat, ok := repo.db.categories[id]
	if !ok {
		return category.Category{}, category.ErrNotFound
	}
	return repo.withCounts(*cat), nil
}

func (repo *categoryRepository) UpdateCategory(ctx context.Context, cat category.Category) (category.Category, error) {
	if err := repo.CheckNameUniqueness(ctx, cat.Name, cat.Slug, cat.ID); err != nil {
		return category.Category{}, err
	}

	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.categories[cat.ID]; !ok {
		return category.Category{}, category.ErrNotFound
	}
	repo.db.categories[cat.ID] = &cat
	return repo.withCounts(cat), nil
}

func (repo *categoryRepository) DeleteCategory(_ context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.categories[id]; !ok {
		return category.ErrNotFound
	}
	delete(repo.db.categories, id)
	return nil
}
