package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/coursestore/internal/client/models"
	"github.com/dmitrijs2005/coursestore/internal/filex"
)

// CoursesService manages the courses the current user owns.
//
// Contract:
//   - List: courses owned by the current user.
//   - Create: validate the form, read the image from disk, upload both.
//   - Update: validate the form and replace the course fields; the image is kept.
//   - Delete: remove the course.
//
// Invalid input fails with models.ErrValidation before any request is sent.
type CoursesService interface {
	List(ctx context.Context) ([]models.Course, error)
	Create(ctx context.Context, form models.CourseForm, imagePath string) (*models.Course, error)
	Update(ctx context.Context, id int64, form models.CourseForm) (*models.Course, error)
	Delete(ctx context.Context, id int64) error
}

// OwnedCoursesClient is the part of the API client CoursesService uses.
type OwnedCoursesClient interface {
	MyCourses(ctx context.Context) ([]models.Course, error)
	CreateCourse(ctx context.Context, form models.CourseForm, image *filex.Upload) (*models.Course, error)
	UpdateCourse(ctx context.Context, id int64, form models.CourseForm) (*models.Course, error)
	DeleteCourse(ctx context.Context, id int64) error
}

type coursesService struct {
	client    OwnedCoursesClient
	readImage func(path string) (*filex.Upload, error)
}

func NewCoursesService(client OwnedCoursesClient) CoursesService {
	return &coursesService{client: client, readImage: filex.ReadImage}
}

func (s *coursesService) List(ctx context.Context) ([]models.Course, error) {
	courses, err := s.client.MyCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list my courses: %w", err)
	}
	return courses, nil
}

func (s *coursesService) Create(ctx context.Context, form models.CourseForm, imagePath string) (*models.Course, error) {
	if err := models.Validate(form); err != nil {
		return nil, err
	}
	if imagePath == "" {
		return nil, fmt.Errorf("%w: image is required", models.ErrValidation)
	}

	img, err := s.readImage(imagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: image: %w", models.ErrValidation, err)
	}

	c, err := s.client.CreateCourse(ctx, form, img)
	if err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return c, nil
}

func (s *coursesService) Update(ctx context.Context, id int64, form models.CourseForm) (*models.Course, error) {
	if err := models.Validate(form); err != nil {
		return nil, err
	}
	c, err := s.client.UpdateCourse(ctx, id, form)
	if err != nil {
		return nil, fmt.Errorf("update course %d: %w", id, err)
	}
	return c, nil
}

func (s *coursesService) Delete(ctx context.Context, id int64) error {
	if err := s.client.DeleteCourse(ctx, id); err != nil {
		return fmt.Errorf("delete course %d: %w", id, err)
	}
	return nil
}
