package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/dmitrijs2005/coursestore/internal/client/models"
)

// parseCourseFilter reads "[search words] [-category id] [-min price]
// [-max price]". Flags and words may be mixed.
func parseCourseFilter(args []string) (models.CourseFilter, error) {
	var (
		filter   models.CourseFilter
		words    []string
		category int64
		lo, hi   string
	)

	fs := flag.NewFlagSet("courses", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Int64Var(&category, "category", 0, "category id")
	fs.StringVar(&lo, "min", "", "minimum price")
	fs.StringVar(&hi, "max", "", "maximum price")

	for len(args) > 0 {
		if err := fs.Parse(args); err != nil {
			return filter, fmt.Errorf("%w: courses [search] [-category id] [-min price] [-max price]", errUsage)
		}
		args = fs.Args()
		if len(args) > 0 {
			words = append(words, args[0])
			args = args[1:]
		}
	}

	filter.Search = strings.Join(words, " ")
	if category != 0 {
		filter.CategoryID = &category
	}
	for _, p := range []struct {
		raw string
		dst **decimal.Decimal
	}{{lo, &filter.MinPrice}, {hi, &filter.MaxPrice}} {
		if p.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(p.raw)
		if err != nil {
			return filter, fmt.Errorf("%w: price %q is not a number", errUsage, p.raw)
		}
		*p.dst = &d
	}
	return filter, nil
}

func parseID(args []string, usage string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: %s", errUsage, usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", errUsage, usage)
	}
	return id, nil
}

// courseMark tells a logged in user whether a course is owned or in the cart.
func (a *App) courseMark(id int64) string {
	switch {
	case a.cart.IsCourseBought(id):
		return "owned"
	case a.cart.InCart(id):
		return "in cart"
	default:
		return ""
	}
}

func (a *App) printCourses(courses []models.Course) {
	if len(courses) == 0 {
		a.say("No courses found.")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tFORMAT\tHOURS\tPRICE\t")
	for _, c := range courses {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			c.ID, c.Title, c.Format, c.DurationHours, c.Price.StringFixed(2), a.courseMark(c.ID))
	}
	_ = tw.Flush()
}

// Courses lists the catalog, optionally filtered.
func (a *App) Courses(ctx context.Context, args []string) error {
	filter, err := parseCourseFilter(args)
	if err != nil {
		return err
	}
	courses, err := a.catalog.Courses(ctx, filter)
	if err != nil {
		return a.fail(ctx, "Loading courses failed", err)
	}
	a.printCourses(courses)
	return nil
}

// Course prints one course in full.
func (a *App) Course(ctx context.Context, args []string) error {
	id, err := parseID(args, "course <id>")
	if err != nil {
		return err
	}
	c, err := a.catalog.Course(ctx, id)
	if err != nil {
		return a.fail(ctx, "Loading course failed", err)
	}

	a.say("%s (#%d)", c.Title, c.ID)
	a.say("Format: %s, %d hours", c.Format, c.DurationHours)
	a.say("Price: %s", c.Price.StringFixed(2))
	if !c.Rating.IsZero() {
		a.say("Rating: %s", c.Rating.StringFixed(1))
	}
	a.say("Category: %d", c.CategoryID)
	switch {
	case strings.HasPrefix(c.ImageURL, "/"):
		a.say("Image: %s%s", strings.TrimRight(a.config.ServerURL, "/"), c.ImageURL)
	case c.ImageURL != "":
		a.say("Image: %s", c.ImageURL)
	}
	if c.Description != "" {
		a.say("")
		a.say("%s", c.Description)
	}
	if mark := a.courseMark(c.ID); mark != "" {
		a.say("You have this course %s.", mark)
	}
	return nil
}

func (a *App) Categories(ctx context.Context) error {
	cats, err := a.catalog.Categories(ctx)
	if err != nil {
		return a.fail(ctx, "Loading categories failed", err)
	}
	if len(cats) == 0 {
		a.say("No categories.")
		return nil
	}
	for _, c := range cats {
		a.say("%d\t%s", c.ID, c.Name)
	}
	return nil
}
