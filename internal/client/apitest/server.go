// Package apitest runs an in-memory imitation of the course marketplace REST
// API on an httptest server. It keeps users, courses, carts and purchases in
// maps, issues a session cookie on login, and lets tests inject failures per
// route.
package apitest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmitrijs2005/coursestore/internal/client/models"
)

// SessionCookie is the cookie the fake server issues on login.
const SessionCookie = "access_token"

type userRecord struct {
	user     models.User
	password string
}

type cartRow struct {
	id       int64
	userID   int64
	courseID int64
}

type fault struct {
	status int
	detail string
}

// Server is a fake API. All exported methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	nextID     int64
	users      map[int64]*userRecord
	sessions   map[string]int64
	courses    map[int64]*models.Course
	categories []models.Category
	cart       []cartRow
	purchases  []models.Purchase
	faults     map[string]fault
	calls      []string
	requestIDs []string
	uploads    map[int64][]byte
	omitCourse bool
}

// NewServer starts a fake API. It is closed automatically by t.Cleanup when
// created through Start; callers of NewServer must Close it.
func NewServer() *Server {
	s := &Server{
		users:    make(map[int64]*userRecord),
		sessions: make(map[string]int64),
		courses:  make(map[int64]*models.Course),
		faults:   make(map[string]fault),
		uploads:  make(map[int64][]byte),
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

// Cleaner is the part of testing.TB that Start needs.
type Cleaner interface {
	Cleanup(func())
}

// Start is NewServer with Close registered on t.
func Start(t Cleaner) *Server {
	s := NewServer()
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/login", s.handle("POST /auth/login", s.login))
	r.Post("/auth/register", s.handle("POST /auth/register", s.register))
	r.Post("/auth/logout", s.handle("POST /auth/logout", s.logout))

	r.Get("/users/me", s.handle("GET /users/me", s.authed(s.me)))
	r.Patch("/users/{id}", s.handle("PATCH /users/{id}", s.authed(s.updateUser)))

	r.Get("/courses/", s.handle("GET /courses/", s.listCourses))
	r.Get("/courses/my", s.handle("GET /courses/my", s.authed(s.myCourses)))
	r.Post("/courses/my", s.handle("POST /courses/my", s.authed(s.createCourse)))
	r.Put("/courses/my/{id}", s.handle("PUT /courses/my/{id}", s.authed(s.updateCourse)))
	r.Patch("/courses/my/{id}", s.handle("PATCH /courses/my/{id}", s.authed(s.updateCourse)))
	r.Delete("/courses/my/{id}", s.handle("DELETE /courses/my/{id}", s.authed(s.deleteCourse)))
	r.Get("/courses/{id}", s.handle("GET /courses/{id}", s.getCourse))

	r.Get("/cart", s.handle("GET /cart", s.authed(s.listCart)))
	r.Post("/cart", s.handle("POST /cart", s.authed(s.addToCart)))
	r.Delete("/cart", s.handle("DELETE /cart", s.authed(s.clearCart)))
	r.Post("/cart/checkout", s.handle("POST /cart/checkout", s.authed(s.checkout)))
	r.Delete("/cart/{id}", s.handle("DELETE /cart/{id}", s.authed(s.removeFromCart)))

	r.Get("/bought-courses/user/me", s.handle("GET /bought-courses/user/me", s.authed(s.listPurchases)))
	r.Get("/categories", s.handle("GET /categories", s.listCategories))

	return r
}

type authedHandler func(w http.ResponseWriter, r *http.Request, userID int64)

// handle records the call and applies an injected fault, if any.
func (s *Server) handle(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, route)
		s.requestIDs = append(s.requestIDs, r.Header.Get("X-Request-ID"))
		f, failing := s.faults[route]
		s.mu.Unlock()

		if failing {
			writeError(w, r, f.status, f.detail)
			return
		}
		h(w, r)
	}
}

func (s *Server) authed(h authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "Not authenticated")
			return
		}
		s.mu.Lock()
		uid, ok := s.sessions[c.Value]
		s.mu.Unlock()
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "Invalid token")
			return
		}
		h(w, r, uid)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"detail": detail})
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

// ---- seeding and inspection ----

// AddUser registers an account directly.
func (s *Server) AddUser(username, email, password string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := models.User{ID: s.id(), Username: username, Email: email}
	s.users[u.ID] = &userRecord{user: u, password: password}
	return u
}

// AddCategory adds a catalog category.
func (s *Server) AddCategory(name string) models.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := models.Category{ID: s.id(), Name: name}
	s.categories = append(s.categories, c)
	return c
}

// AddCourse stores c with a fresh ID and returns it.
func (s *Server) AddCourse(c models.Course) models.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	stored := c
	s.courses[c.ID] = &stored
	return c
}

// AddPurchase records that userID owns courseID.
func (s *Server) AddPurchase(userID, courseID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchases = append(s.purchases, models.Purchase{ID: s.id(), UserID: userID, CourseID: courseID})
}

// AddCartItem puts courseID into userID's cart and returns the line item id.
func (s *Server) AddCartItem(userID, courseID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := cartRow{id: s.id(), userID: userID, courseID: courseID}
	s.cart = append(s.cart, row)
	return row.id
}

// Fail makes route ("METHOD /pattern", e.g. "GET /cart") answer with status
// and detail until Recover is called.
func (s *Server) Fail(route string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = fault{status: status, detail: detail}
}

// Recover removes an injected fault.
func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, route)
}

// Calls returns the routes hit so far, in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CallCount counts hits of route.
func (s *Server) CallCount(route string) int {
	n := 0
	for _, c := range s.Calls() {
		if c == route {
			n++
		}
	}
	return n
}

// RequestIDs returns the X-Request-ID header of every recorded call.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

// CartCourseIDs lists the course ids in userID's server-side cart.
func (s *Server) CartCourseIDs(userID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, row := range s.cart {
		if row.userID == userID {
			ids = append(ids, row.courseID)
		}
	}
	return ids
}

// PurchasedCourseIDs lists the course ids userID owns.
func (s *Server) PurchasedCourseIDs(userID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, p := range s.purchases {
		if p.UserID == userID {
			ids = append(ids, p.CourseID)
		}
	}
	return ids
}

// User returns the stored account.
func (s *Server) User(id int64) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return models.User{}, false
	}
	return rec.user, true
}

// Course returns the stored course.
func (s *Server) Course(id int64) (models.Course, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	if !ok {
		return models.Course{}, false
	}
	return *c, true
}

// OmitCartCourse makes cart endpoints return line items without the
// embedded course, only course_id.
func (s *Server) OmitCartCourse(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitCourse = on
}

// Upload returns the image bytes received for course id.
func (s *Server) Upload(id int64) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads[id]
}

// ---- auth ----

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "malformed form")
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")

	s.mu.Lock()
	var uid int64
	for id, rec := range s.users {
		if rec.user.Username == username && rec.password == password {
			uid = id
			break
		}
	}
	var token string
	if uid != 0 {
		token = uuid.NewString()
		s.sessions[token] = uid
	}
	s.mu.Unlock()

	if uid == 0 {
		writeError(w, r, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: token, Path: "/", HttpOnly: true})
	render.JSON(w, r, map[string]string{"access_token": token, "token_type": "bearer"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req models.Registration
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "username, email and password are required")
		return
	}

	s.mu.Lock()
	for _, rec := range s.users {
		if rec.user.Username == req.Username {
			s.mu.Unlock()
			writeError(w, r, http.StatusBadRequest, "Username already taken")
			return
		}
	}
	u := models.User{ID: s.id(), Username: req.Username, Email: req.Email}
	s.users[u.ID] = &userRecord{user: u, password: req.Password}
	s.mu.Unlock()

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, u)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request, uid int64) {
	u, ok := s.User(uid)
	if !ok {
		writeError(w, r, http.StatusNotFound, "User not found")
		return
	}
	render.JSON(w, r, u)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request, uid int64) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid id")
		return
	}
	if id != uid {
		writeError(w, r, http.StatusForbidden, "Forbidden")
		return
	}
	var patch models.ProfileUpdate
	if err := render.DecodeJSON(r.Body, &patch); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "malformed body")
		return
	}

	s.mu.Lock()
	rec := s.users[id]
	if patch.Username != nil {
		rec.user.Username = *patch.Username
	}
	if patch.Email != nil {
		rec.user.Email = *patch.Email
	}
	if patch.AvatarURL != nil {
		rec.user.AvatarURL = patch.AvatarURL
	}
	if patch.Password != nil {
		rec.password = *patch.Password
	}
	u := rec.user
	s.mu.Unlock()

	render.JSON(w, r, u)
}

// ---- courses ----

func (s *Server) listCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))

	var (
		catID  int64
		lo, hi *decimal.Decimal
	)
	if v := q.Get("category_id"); v != "" {
		catID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("min_price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "invalid min_price")
			return
		}
		lo = &d
	}
	if v := q.Get("max_price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, "invalid max_price")
			return
		}
		hi = &d
	}

	out := make([]models.Course, 0)
	for _, c := range s.sortedCourses() {
		if search != "" && !strings.Contains(strings.ToLower(c.Title), search) && !strings.Contains(strings.ToLower(c.Description), search) {
			continue
		}
		if catID != 0 && c.CategoryID != catID {
			continue
		}
		if lo != nil && c.Price.LessThan(*lo) {
			continue
		}
		if hi != nil && c.Price.GreaterThan(*hi) {
			continue
		}
		out = append(out, c)
	}
	render.JSON(w, r, out)
}

func (s *Server) sortedCourses() []models.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) getCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid id")
		return
	}
	c, found := s.Course(id)
	if !found {
		writeError(w, r, http.StatusNotFound, fmt.Sprintf("Course %d not found", id))
		return
	}
	render.JSON(w, r, c)
}

func (s *Server) myCourses(w http.ResponseWriter, r *http.Request, uid int64) {
	out := make([]models.Course, 0)
	for _, c := range s.sortedCourses() {
		if c.OwnerID != nil && *c.OwnerID == uid {
			out = append(out, c)
		}
	}
	render.JSON(w, r, out)
}

func (s *Server) createCourse(w http.ResponseWriter, r *http.Request, uid int64) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "multipart form expected")
		return
	}
	f, hdr, err := r.FormFile("image")
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "image is required")
		return
	}
	defer f.Close()
	img, err := io.ReadAll(f)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "unreadable image")
		return
	}

	price, perr := decimal.NewFromString(r.FormValue("price"))
	hours, herr := strconv.Atoi(r.FormValue("duration_hours"))
	cat, cerr := strconv.ParseInt(r.FormValue("category_id"), 10, 64)
	if perr != nil || herr != nil || cerr != nil || r.FormValue("title") == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid course fields")
		return
	}

	owner := uid
	c := models.Course{
		Title:         r.FormValue("title"),
		Format:        r.FormValue("format"),
		Description:   r.FormValue("description"),
		Price:         price,
		DurationHours: hours,
		CategoryID:    cat,
		OwnerID:       &owner,
	}

	s.mu.Lock()
	c.ID = s.id()
	c.ImageURL = fmt.Sprintf("/static/images/courses/%d_%s", c.ID, hdr.Filename)
	stored := c
	s.courses[c.ID] = &stored
	s.uploads[c.ID] = img
	s.mu.Unlock()

	render.JSON(w, r, c)
}

func (s *Server) ownedCourse(w http.ResponseWriter, r *http.Request, uid int64) (int64, bool) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid id")
		return 0, false
	}
	c, found := s.Course(id)
	if !found {
		writeError(w, r, http.StatusNotFound, "Course not found")
		return 0, false
	}
	if c.OwnerID == nil || *c.OwnerID != uid {
		writeError(w, r, http.StatusForbidden, "Forbidden")
		return 0, false
	}
	return id, true
}

func (s *Server) updateCourse(w http.ResponseWriter, r *http.Request, uid int64) {
	id, ok := s.ownedCourse(w, r, uid)
	if !ok {
		return
	}
	var form models.CourseForm
	if err := render.DecodeJSON(r.Body, &form); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "malformed body")
		return
	}

	s.mu.Lock()
	c := s.courses[id]
	c.Title = form.Title
	c.Format = form.Format
	c.Description = form.Description
	c.Price = form.Price
	c.DurationHours = form.DurationHours
	c.CategoryID = form.CategoryID
	out := *c
	s.mu.Unlock()

	render.JSON(w, r, out)
}

func (s *Server) deleteCourse(w http.ResponseWriter, r *http.Request, uid int64) {
	id, ok := s.ownedCourse(w, r, uid)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.courses, id)
	delete(s.uploads, id)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := append([]models.Category{}, s.categories...)
	s.mu.Unlock()
	render.JSON(w, r, out)
}

// ---- cart & purchases ----

func (s *Server) summary(courseID int64) *models.CourseSummary {
	c, ok := s.courses[courseID]
	if !ok {
		return nil
	}
	sum := c.Summary()
	return &sum
}

func (s *Server) cartItem(row cartRow) map[string]any {
	if s.omitCourse {
		return map[string]any{"id": row.id, "course_id": row.courseID}
	}
	return map[string]any{"id": row.id, "course_id": row.courseID, "course": s.summary(row.courseID)}
}

func (s *Server) listCart(w http.ResponseWriter, r *http.Request, uid int64) {
	s.mu.Lock()
	out := make([]map[string]any, 0)
	for _, row := range s.cart {
		if row.userID == uid {
			out = append(out, s.cartItem(row))
		}
	}
	s.mu.Unlock()
	render.JSON(w, r, out)
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request, uid int64) {
	var req struct {
		CourseID int64 `json:"course_id"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil || req.CourseID == 0 {
		writeError(w, r, http.StatusUnprocessableEntity, "course_id is required")
		return
	}

	s.mu.Lock()
	if _, ok := s.courses[req.CourseID]; !ok {
		s.mu.Unlock()
		writeError(w, r, http.StatusNotFound, "Course not found")
		return
	}
	for _, row := range s.cart {
		if row.userID == uid && row.courseID == req.CourseID {
			s.mu.Unlock()
			writeError(w, r, http.StatusBadRequest, "Course already in cart")
			return
		}
	}
	row := cartRow{id: s.id(), userID: uid, courseID: req.CourseID}
	s.cart = append(s.cart, row)
	item := s.cartItem(row)
	s.mu.Unlock()

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, item)
}

func (s *Server) removeFromCart(w http.ResponseWriter, r *http.Request, uid int64) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid id")
		return
	}

	s.mu.Lock()
	idx := -1
	for i, row := range s.cart {
		if row.id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		writeError(w, r, http.StatusNotFound, "Cart item not found")
		return
	}
	if s.cart[idx].userID != uid {
		s.mu.Unlock()
		writeError(w, r, http.StatusForbidden, "Forbidden")
		return
	}
	s.cart = append(s.cart[:idx], s.cart[idx+1:]...)
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) dropCart(uid int64) []cartRow {
	var kept, dropped []cartRow
	for _, row := range s.cart {
		if row.userID == uid {
			dropped = append(dropped, row)
		} else {
			kept = append(kept, row)
		}
	}
	s.cart = kept
	return dropped
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request, uid int64) {
	s.mu.Lock()
	s.dropCart(uid)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request, uid int64) {
	s.mu.Lock()
	rows := s.dropCart(uid)
	for _, row := range rows {
		s.purchases = append(s.purchases, models.Purchase{ID: s.id(), UserID: uid, CourseID: row.courseID})
	}
	s.mu.Unlock()

	if len(rows) == 0 {
		writeError(w, r, http.StatusBadRequest, "Cart is empty")
		return
	}
	render.JSON(w, r, models.CheckoutResult{CoursesCount: len(rows)})
}

func (s *Server) listPurchases(w http.ResponseWriter, r *http.Request, uid int64) {
	s.mu.Lock()
	out := make([]models.Purchase, 0)
	for _, p := range s.purchases {
		if p.UserID == uid {
			p.Course = s.summary(p.CourseID)
			out = append(out, p)
		}
	}
	s.mu.Unlock()
	render.JSON(w, r, out)
}
