package models

import "github.com/shopspring/decimal"

// PlaceholderTitle stands in for a course the server did not embed.
const PlaceholderTitle = "Loading..."

// CartItem is one pending purchase intent.
type CartItem struct {
	ID       int64          `json:"id"`
	CourseID int64          `json:"course_id"`
	Course   *CourseSummary `json:"course,omitempty"`
}

// Normalize guarantees Course is populated. A missing course becomes a
// placeholder keyed by CourseID with a zero price; a missing CourseID is
// taken from the embedded course.
func (i CartItem) Normalize() CartItem {
	if i.Course == nil {
		i.Course = &CourseSummary{ID: i.CourseID, Title: PlaceholderTitle, Price: decimal.Zero}
	}
	if i.CourseID == 0 {
		i.CourseID = i.Course.ID
	}
	return i
}

// Purchase is server-confirmed ownership of a course.
type Purchase struct {
	ID       int64          `json:"id"`
	UserID   int64          `json:"user_id"`
	CourseID int64          `json:"course_id"`
	Course   *CourseSummary `json:"course,omitempty"`
}

// CheckoutResult is the response of POST /cart/checkout.
type CheckoutResult struct {
	CoursesCount int `json:"courses_count"`
}

// Total sums the course prices of items. Items without a course count as zero.
func Total(items []CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		if it.Course != nil {
			sum = sum.Add(it.Course.Price)
		}
	}
	return sum
}
