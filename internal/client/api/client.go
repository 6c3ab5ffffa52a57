package api

import (
	"context"

	"github.com/dmitrijs2005/coursestore/internal/client/models"
	"github.com/dmitrijs2005/coursestore/internal/filex"
)

type Client interface {
	Login(ctx context.Context, creds models.Credentials) error
	Register(ctx context.Context, reg models.Registration) (*models.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, patch models.ProfileUpdate) (*models.User, error)

	ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	MyCourses(ctx context.Context) ([]models.Course, error)
	CreateCourse(ctx context.Context, form models.CourseForm, image *filex.Upload) (*models.Course, error)
	UpdateCourse(ctx context.Context, id int64, form models.CourseForm) (*models.Course, error)
	DeleteCourse(ctx context.Context, id int64) error
	Categories(ctx context.Context) ([]models.Category, error)

	Cart(ctx context.Context) ([]models.CartItem, error)
	AddToCart(ctx context.Context, courseID int64) (*models.CartItem, error)
	RemoveFromCart(ctx context.Context, itemID int64) error
	ClearCart(ctx context.Context) error
	Checkout(ctx context.Context) (*models.CheckoutResult, error)
	Purchases(ctx context.Context) ([]models.Purchase, error)
}
