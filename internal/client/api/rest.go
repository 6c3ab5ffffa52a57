package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/coursestore/internal/client/models"
	"github.com/dmitrijs2005/coursestore/internal/filex"
	"github.com/dmitrijs2005/coursestore/internal/logging"
)

// RequestIDHeader is set on every outgoing request.
const RequestIDHeader = "X-Request-ID"

// Options configures a RestClient.
type Options struct {
	BaseURL string
	Timeout time.Duration

	// RateLimit is the sustained number of requests per second; 0 disables
	// pacing. RateBurst defaults to 1 when pacing is on.
	RateLimit float64
	RateBurst int

	Logger logging.Logger
}

// RestClient implements Client over HTTP.
type RestClient struct {
	http    *resty.Client
	limiter *rate.Limiter
	log     logging.Logger
}

var _ Client = (*RestClient)(nil)

func NewRestClient(opts Options) (*RestClient, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("api: empty base URL")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	hc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetCookieJar(jar).
		SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		hc.SetTimeout(opts.Timeout)
	}

	c := &RestClient{http: hc, log: opts.Logger}
	if c.log == nil {
		c.log = logging.Discard()
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c, nil
}

// do executes one request. prepare may add a body, form or path params;
// out, when non-nil, is handed to resty as the result of a 2xx JSON response.
func (c *RestClient) do(ctx context.Context, method, path string, prepare func(*resty.Request), out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s %s: rate limiter: %w", method, path, err)
		}
	}

	reqID := uuid.NewString()
	req := c.http.R().SetContext(ctx).SetHeader(RequestIDHeader, reqID)
	if prepare != nil {
		prepare(req)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", method, path, ctxErr)
		}
		if resp != nil && resp.RawResponse != nil {
			// the server answered; resty could not decode the body into out.
			return fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
		c.log.Warn(ctx, "api request failed", "method", method, "path", path, "request_id", reqID, logging.Err(err))
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}

	c.log.Debug(ctx, "api request", "method", method, "path", path, "status", resp.StatusCode(),
		"request_id", reqID, "elapsed", resp.Time())

	if resp.IsError() {
		return newStatusError(method, path, resp.StatusCode(), resp.Body())
	}

	return nil
}

func withID(id int64) func(*resty.Request) {
	return func(r *resty.Request) { r.SetPathParam("id", strconv.FormatInt(id, 10)) }
}

// ---- auth & users ----

func (c *RestClient) Login(ctx context.Context, creds models.Credentials) error {
	return c.do(ctx, http.MethodPost, "/auth/login", func(r *resty.Request) {
		r.SetFormData(map[string]string{"username": creds.Username, "password": creds.Password})
	}, nil)
}

func (c *RestClient) Register(ctx context.Context, reg models.Registration) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodPost, "/auth/register", func(r *resty.Request) { r.SetBody(reg) }, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *RestClient) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *RestClient) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *RestClient) UpdateUser(ctx context.Context, id int64, patch models.ProfileUpdate) (*models.User, error) {
	var u models.User
	err := c.do(ctx, http.MethodPatch, "/users/{id}", func(r *resty.Request) {
		withID(id)(r)
		r.SetBody(patch)
	}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ---- courses ----

// coursePayload sends prices as JSON numbers rather than decimal's default
// quoted strings.
type coursePayload struct {
	Title         string      `json:"title"`
	Format        string      `json:"format"`
	Description   string      `json:"description"`
	Price         json.Number `json:"price"`
	DurationHours int         `json:"duration_hours"`
	CategoryID    int64       `json:"category_id"`
}

func newCoursePayload(f models.CourseForm) coursePayload {
	return coursePayload{
		Title:         f.Title,
		Format:        f.Format,
		Description:   f.Description,
		Price:         json.Number(f.Price.String()),
		DurationHours: f.DurationHours,
		CategoryID:    f.CategoryID,
	}
}

func (c *RestClient) ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	out := make([]models.Course, 0)
	err := c.do(ctx, http.MethodGet, "/courses/", func(r *resty.Request) {
		r.SetQueryParams(filter.Query())
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RestClient) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	var course models.Course
	if err := c.do(ctx, http.MethodGet, "/courses/{id}", withID(id), &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *RestClient) MyCourses(ctx context.Context) ([]models.Course, error) {
	out := make([]models.Course, 0)
	if err := c.do(ctx, http.MethodGet, "/courses/my", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCourse posts a multipart form; it is the only multipart request.
func (c *RestClient) CreateCourse(ctx context.Context, form models.CourseForm, image *filex.Upload) (*models.Course, error) {
	if image == nil {
		return nil, fmt.Errorf("%w: image is required", ErrValidation)
	}

	var course models.Course
	err := c.do(ctx, http.MethodPost, "/courses/my", func(r *resty.Request) {
		r.SetMultipartFormData(map[string]string{
			"title":          form.Title,
			"format":         form.Format,
			"description":    form.Description,
			"price":          form.Price.String(),
			"duration_hours": strconv.Itoa(form.DurationHours),
			"category_id":    strconv.FormatInt(form.CategoryID, 10),
		})
		r.SetMultipartField("image", image.Name, image.ContentType, bytes.NewReader(image.Data))
	}, &course)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *RestClient) UpdateCourse(ctx context.Context, id int64, form models.CourseForm) (*models.Course, error) {
	var course models.Course
	err := c.do(ctx, http.MethodPut, "/courses/my/{id}", func(r *resty.Request) {
		withID(id)(r)
		r.SetBody(newCoursePayload(form))
	}, &course)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *RestClient) DeleteCourse(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/courses/my/{id}", withID(id), nil)
}

func (c *RestClient) Categories(ctx context.Context) ([]models.Category, error) {
	out := make([]models.Category, 0)
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- cart & purchases ----

// Cart returns the raw line items; normalization is the cart store's job.
func (c *RestClient) Cart(ctx context.Context) ([]models.CartItem, error) {
	out := make([]models.CartItem, 0)
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RestClient) AddToCart(ctx context.Context, courseID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := c.do(ctx, http.MethodPost, "/cart", func(r *resty.Request) {
		r.SetBody(map[string]int64{"course_id": courseID})
	}, &item)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *RestClient) RemoveFromCart(ctx context.Context, itemID int64) error {
	return c.do(ctx, http.MethodDelete, "/cart/{id}", withID(itemID), nil)
}

func (c *RestClient) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/cart", nil, nil)
}

func (c *RestClient) Checkout(ctx context.Context) (*models.CheckoutResult, error) {
	var res models.CheckoutResult
	if err := c.do(ctx, http.MethodPost, "/cart/checkout", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *RestClient) Purchases(ctx context.Context) ([]models.Purchase, error) {
	out := make([]models.Purchase, 0)
	if err := c.do(ctx, http.MethodGet, "/bought-courses/user/me", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
