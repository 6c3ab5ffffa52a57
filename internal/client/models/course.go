package models

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Course is a catalog entry as returned by the /courses endpoints.
type Course struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	Format        string          `json:"format"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	DurationHours int             `json:"duration_hours"`
	Rating        decimal.Decimal `json:"rating"`
	CategoryID    int64           `json:"category_id"`
	ImageURL      string          `json:"image_url"`
	OwnerID       *int64          `json:"owner_id,omitempty"`
}

// Summary returns the short form embedded in cart and purchase records.
func (c Course) Summary() CourseSummary {
	return CourseSummary{ID: c.ID, Title: c.Title, Price: c.Price}
}

// CourseSummary is the short course form nested in cart line items and
// purchase records.
type CourseSummary struct {
	ID    int64           `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
}

// Category groups courses in the catalog.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CourseFilter narrows GET /courses/. Zero values are omitted from the query.
type CourseFilter struct {
	Search     string
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
}

// Query renders the filter as query parameters.
func (f CourseFilter) Query() map[string]string {
	q := make(map[string]string)
	if s := strings.TrimSpace(f.Search); s != "" {
		q["search"] = s
	}
	if f.CategoryID != nil {
		q["category_id"] = strconv.FormatInt(*f.CategoryID, 10)
	}
	if f.MinPrice != nil {
		q["min_price"] = f.MinPrice.String()
	}
	if f.MaxPrice != nil {
		q["max_price"] = f.MaxPrice.String()
	}
	return q
}

// CourseForm is what an owner fills in to create or update a course.
type CourseForm struct {
	Title         string          `json:"title" validate:"required,max=200"`
	Format        string          `json:"format" validate:"required"`
	Description   string          `json:"description" validate:"required"`
	Price         decimal.Decimal `json:"price" validate:"gte=0"`
	DurationHours int             `json:"duration_hours" validate:"gt=0"`
	CategoryID    int64           `json:"category_id" validate:"gt=0"`
}

// FormFromCourse pre-fills a form for editing c.
func FormFromCourse(c Course) CourseForm {
	return CourseForm{
		Title:         c.Title,
		Format:        c.Format,
		Description:   c.Description,
		Price:         c.Price,
		DurationHours: c.DurationHours,
		CategoryID:    c.CategoryID,
	}
}
