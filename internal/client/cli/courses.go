package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/dmitrijs2005/coursestore/internal/client/models"
)

// MyCourses lists courses the user has published.
func (a *App) MyCourses(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	courses, err := a.courses.List(ctx)
	if err != nil {
		return a.fail(ctx, "Loading your courses failed", err)
	}
	a.printCourses(courses)
	return nil
}

// NewCourse prompts for every course field plus an image path and
// publishes the course.
func (a *App) NewCourse(ctx context.Context) error {
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	form, err := a.inputCourseForm(models.CourseForm{})
	if err != nil {
		return a.fail(ctx, "Creating course failed", err)
	}
	image, err := getSimpleText(a.reader, "Image file path", a.out)
	if err != nil {
		return err
	}

	c, err := a.courses.Create(ctx, form, image)
	if err != nil {
		return a.fail(ctx, "Creating course failed", err)
	}
	a.say("Course #%d %q created.", c.ID, c.Title)
	return nil
}

// EditCourse loads an owned course, prompts with the current values and
// saves the changes. The image is not changed.
func (a *App) EditCourse(ctx context.Context, args []string) error {
	id, err := parseID(args, "editcourse <id>")
	if err != nil {
		return err
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}

	current, err := a.catalog.Course(ctx, id)
	if err != nil {
		return a.fail(ctx, "Loading course failed", err)
	}
	form, err := a.inputCourseForm(models.FormFromCourse(*current))
	if err != nil {
		return a.fail(ctx, "Saving course failed", err)
	}

	c, err := a.courses.Update(ctx, id, form)
	if err != nil {
		return a.fail(ctx, "Saving course failed", err)
	}
	a.say("Course #%d saved.", c.ID)
	return nil
}

// DeleteCourse removes an owned course after confirmation.
func (a *App) DeleteCourse(ctx context.Context, args []string) error {
	id, err := parseID(args, "delcourse <id>")
	if err != nil {
		return err
	}
	if err := a.requireLogin(ctx); err != nil {
		return err
	}
	ok, err := Confirm(a.reader, fmt.Sprintf("Delete course #%d?", id), a.out)
	if err != nil || !ok {
		return err
	}
	if err := a.courses.Delete(ctx, id); err != nil {
		return a.fail(ctx, "Deleting course failed", err)
	}
	a.say("Course #%d deleted.", id)
	return nil
}

// inputCourseForm prompts for each field, offering values from current as
// defaults. Numbers that do not parse fail with models.ErrValidation.
func (a *App) inputCourseForm(current models.CourseForm) (models.CourseForm, error) {
	form := current
	var err error

	if form.Title, err = GetTextOr(a.reader, "Title", current.Title, a.out); err != nil {
		return form, err
	}
	if form.Format, err = GetTextOr(a.reader, "Format", current.Format, a.out); err != nil {
		return form, err
	}
	if form.Description, err = GetTextOr(a.reader, "Description", current.Description, a.out); err != nil {
		return form, err
	}

	price, err := GetTextOr(a.reader, "Price", current.Price.String(), a.out)
	if err != nil {
		return form, err
	}
	if form.Price, err = decimal.NewFromString(price); err != nil {
		return form, fmt.Errorf("%w: price %q is not a number", models.ErrValidation, price)
	}

	hours, err := GetTextOr(a.reader, "Duration (hours)", strconv.Itoa(current.DurationHours), a.out)
	if err != nil {
		return form, err
	}
	if form.DurationHours, err = strconv.Atoi(hours); err != nil {
		return form, fmt.Errorf("%w: duration %q is not a whole number", models.ErrValidation, hours)
	}

	category, err := GetTextOr(a.reader, "Category id", strconv.FormatInt(current.CategoryID, 10), a.out)
	if err != nil {
		return form, err
	}
	if form.CategoryID, err = strconv.ParseInt(category, 10, 64); err != nil {
		return form, fmt.Errorf("%w: category %q is not an id", models.ErrValidation, category)
	}
	return form, nil
}
