// Package cart mirrors the server-side cart and purchase list of the current
// user. Every mutation is confirmed by the server before local state changes.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/coursestore/internal/client/models"
	"github.com/dmitrijs2005/coursestore/internal/client/notify"
	"github.com/dmitrijs2005/coursestore/internal/logging"
)

var (
	ErrAnonymous        = errors.New("cart requires a logged in user")
	ErrAlreadyInCart    = errors.New("course already in cart")
	ErrAlreadyPurchased = errors.New("course already purchased")
	ErrItemNotFound     = errors.New("cart item not found")
)

// Backend is the part of the API client the store needs.
type Backend interface {
	Cart(ctx context.Context) ([]models.CartItem, error)
	Purchases(ctx context.Context) ([]models.Purchase, error)
	AddToCart(ctx context.Context, courseID int64) (*models.CartItem, error)
	RemoveFromCart(ctx context.Context, itemID int64) error
}

// Publisher receives user-facing failure messages.
type Publisher interface {
	Publish(n notify.Notification)
}

// Store is the current user's cart and purchase list. It is safe for
// concurrent use.
type Store struct {
	backend Backend
	notes   Publisher
	log     logging.Logger

	mu        sync.Mutex
	user      *models.User
	items     []models.CartItem
	purchases []models.Purchase
	loading   bool
	// gen increases on every identity change; results fetched under an
	// older generation are dropped.
	gen uint64
}

// NewStore returns an empty store. notes and log may be nil.
func NewStore(backend Backend, notes Publisher, log logging.Logger) *Store {
	if log == nil {
		log = logging.Discard()
	}
	return &Store{
		backend:   backend,
		notes:     notes,
		log:       log,
		items:     []models.CartItem{},
		purchases: []models.Purchase{},
	}
}

// Hydrate loads the cart and purchases of user. A nil user empties both.
// The two fetches run concurrently and fail independently; a failed half is
// logged and left empty. Loading stays set until both have settled.
//
// Hydrate has the session.Listener signature so it can be subscribed to
// identity changes directly.
func (s *Store) Hydrate(ctx context.Context, user *models.User) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	if user == nil {
		s.user = nil
		s.items = []models.CartItem{}
		s.purchases = []models.Purchase{}
		s.loading = false
		s.mu.Unlock()
		return
	}
	u := *user
	s.user = &u
	s.loading = true
	s.mu.Unlock()

	log := s.log.With("user_id", user.ID, "generation", gen)

	var (
		items     = []models.CartItem{}
		purchases = []models.Purchase{}
		g         errgroup.Group
	)
	g.Go(func() error {
		got, err := s.backend.Cart(ctx)
		if err != nil {
			log.Warn(ctx, "cart fetch failed", logging.Err(err))
			return nil
		}
		items = normalize(got)
		return nil
	})
	g.Go(func() error {
		got, err := s.backend.Purchases(ctx)
		if err != nil {
			log.Warn(ctx, "purchases fetch failed", logging.Err(err))
			return nil
		}
		purchases = got
		return nil
	})
	_ = g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		log.Debug(ctx, "stale hydrate discarded", "current_generation", s.gen)
		return
	}
	s.items = items
	s.purchases = purchases
	s.loading = false
	log.Debug(ctx, "cart hydrated", "items", len(items), "purchases", len(purchases))
}

// AddItem puts courseID into the cart. Nothing is sent when there is no
// user, or the course is already in the cart or purchased.
func (s *Store) AddItem(ctx context.Context, courseID int64) (models.CartItem, error) {
	s.mu.Lock()
	switch {
	case s.user == nil:
		s.mu.Unlock()
		return models.CartItem{}, ErrAnonymous
	case s.inCartLocked(courseID):
		s.mu.Unlock()
		return models.CartItem{}, ErrAlreadyInCart
	case s.boughtLocked(courseID):
		s.mu.Unlock()
		return models.CartItem{}, ErrAlreadyPurchased
	}
	gen := s.gen
	s.mu.Unlock()

	got, err := s.backend.AddToCart(ctx, courseID)
	if err != nil {
		return models.CartItem{}, fmt.Errorf("add course %d to cart: %w", courseID, err)
	}
	item := got.Normalize()
	if item.CourseID == 0 {
		item.CourseID = courseID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.log.Debug(ctx, "add result for a previous user discarded", "course_id", courseID)
		return item, nil
	}
	if !s.inCartLocked(item.CourseID) {
		s.items = append(s.items, item)
	}
	return item, nil
}

// RemoveItem deletes a line item on the server and then locally. An id that
// is not in the local cart yields ErrItemNotFound without a request. Server
// failures are also published to the user.
func (s *Store) RemoveItem(ctx context.Context, itemID int64) error {
	s.mu.Lock()
	found := false
	for _, it := range s.items {
		if it.ID == itemID {
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}

	if err := s.backend.RemoveFromCart(ctx, itemID); err != nil {
		s.log.Error(ctx, "remove from cart failed", "item_id", itemID, logging.Err(err))
		if s.notes != nil {
			s.notes.Publish(notify.Notification{
				Level:   notify.LevelError,
				Message: "Could not remove the course from the cart",
			})
		}
		return fmt.Errorf("remove cart item %d: %w", itemID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]models.CartItem, 0, len(s.items))
	for _, it := range s.items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	s.items = kept
	return nil
}

// ClearCart empties the local item list only.
func (s *Store) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = []models.CartItem{}
}

// RefreshPurchases re-reads the purchase list. Failures empty it and are
// logged.
func (s *Store) RefreshPurchases(ctx context.Context) {
	s.mu.Lock()
	if s.user == nil {
		s.purchases = []models.Purchase{}
		s.mu.Unlock()
		return
	}
	gen := s.gen
	s.mu.Unlock()

	got, err := s.backend.Purchases(ctx)
	if err != nil {
		s.log.Warn(ctx, "purchases refresh failed", logging.Err(err))
		got = []models.Purchase{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.purchases = got
	}
}

// IsCourseBought reports whether a purchase record exists for courseID.
func (s *Store) IsCourseBought(courseID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boughtLocked(courseID)
}

// InCart reports whether courseID is in the cart.
func (s *Store) InCart(courseID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inCartLocked(courseID)
}

// Items returns a copy of the cart.
func (s *Store) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CartItem{}, s.items...)
}

// Purchases returns a copy of the purchase list.
func (s *Store) Purchases() []models.Purchase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Purchase{}, s.purchases...)
}

// Count is the number of line items.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Total sums the prices of the line items.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Total(s.items)
}

// Loading is true while a hydrate for the current user is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) inCartLocked(courseID int64) bool {
	for _, it := range s.items {
		if it.CourseID == courseID {
			return true
		}
	}
	return false
}

func (s *Store) boughtLocked(courseID int64) bool {
	for _, p := range s.purchases {
		if p.CourseID == courseID {
			return true
		}
	}
	return false
}

func normalize(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, 0, len(items))
	for _, it := range items {
		out = append(out, it.Normalize())
	}
	return out
}
