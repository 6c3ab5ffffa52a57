package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/coursestore/internal/client/models"
)

// CatalogService browses the public course catalog.
type CatalogService interface {
	Courses(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	Course(ctx context.Context, id int64) (*models.Course, error)
	Categories(ctx context.Context) ([]models.Category, error)
}

// CatalogClient is the part of the API client CatalogService uses.
type CatalogClient interface {
	ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	Categories(ctx context.Context) ([]models.Category, error)
}

type catalogService struct {
	client CatalogClient
}

func NewCatalogService(client CatalogClient) CatalogService {
	return &catalogService{client: client}
}

// Courses lists courses matching filter. A price range with min above max
// is rejected before any request.
func (s *catalogService) Courses(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, fmt.Errorf("%w: min price %s is above max price %s",
			models.ErrValidation, filter.MinPrice, filter.MaxPrice)
	}
	if (filter.MinPrice != nil && filter.MinPrice.IsNegative()) || (filter.MaxPrice != nil && filter.MaxPrice.IsNegative()) {
		return nil, fmt.Errorf("%w: prices must not be negative", models.ErrValidation)
	}

	courses, err := s.client.ListCourses(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

func (s *catalogService) Course(ctx context.Context, id int64) (*models.Course, error) {
	c, err := s.client.GetCourse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get course %d: %w", id, err)
	}
	return c, nil
}

func (s *catalogService) Categories(ctx context.Context) ([]models.Category, error) {
	cats, err := s.client.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}
