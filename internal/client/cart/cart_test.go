package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/coursestore/internal/client/api"
	"github.com/dmitrijs2005/coursestore/internal/client/models"
	"github.com/dmitrijs2005/coursestore/internal/client/notify"
)

// ---- fakes ----

type fakeBackend struct {
	mu sync.Mutex

	CartFn      func(ctx context.Context) ([]models.CartItem, error)
	PurchasesFn func(ctx context.Context) ([]models.Purchase, error)

	AddRet    *models.CartItem
	AddErr    error
	RemoveErr error

	CartCalls      int
	PurchasesCalls int
	AddCalls       int
	RemoveCalls    int
}

func (f *fakeBackend) Cart(ctx context.Context) ([]models.CartItem, error) {
	f.mu.Lock()
	f.CartCalls++
	fn := f.CartFn
	f.mu.Unlock()
	if fn == nil {
		return []models.CartItem{}, nil
	}
	return fn(ctx)
}

func (f *fakeBackend) Purchases(ctx context.Context) ([]models.Purchase, error) {
	f.mu.Lock()
	f.PurchasesCalls++
	fn := f.PurchasesFn
	f.mu.Unlock()
	if fn == nil {
		return []models.Purchase{}, nil
	}
	return fn(ctx)
}

func (f *fakeBackend) AddToCart(_ context.Context, courseID int64) (*models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AddCalls++
	if f.AddErr != nil {
		return nil, f.AddErr
	}
	if f.AddRet != nil {
		it := *f.AddRet
		return &it, nil
	}
	return &models.CartItem{ID: 100 + courseID, CourseID: courseID}, nil
}

func (f *fakeBackend) RemoveFromCart(context.Context, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RemoveCalls++
	return f.RemoveErr
}

type fakePublisher struct {
	mu    sync.Mutex
	notes []notify.Notification
}

func (p *fakePublisher) Publish(n notify.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notes = append(p.notes, n)
}

func cartOf(items ...models.CartItem) func(context.Context) ([]models.CartItem, error) {
	return func(context.Context) ([]models.CartItem, error) { return items, nil }
}

func purchasesOf(ps ...models.Purchase) func(context.Context) ([]models.Purchase, error) {
	return func(context.Context) ([]models.Purchase, error) { return ps, nil }
}

func course(id int64, title string, price int64) *models.CourseSummary {
	return &models.CourseSummary{ID: id, Title: title, Price: decimal.NewFromInt(price)}
}

var (
	alice = &models.User{ID: 1, Username: "alice"}
	bob   = &models.User{ID: 2, Username: "bob"}
)

var decimalCmp = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

// ---- hydrate ----

func TestHydrate_NilUserEmptiesEverything(t *testing.T) {
	b := &fakeBackend{
		CartFn:      cartOf(models.CartItem{ID: 1, CourseID: 5, Course: course(5, "Go", 10)}),
		PurchasesFn: purchasesOf(models.Purchase{ID: 9, CourseID: 7}),
	}
	s := NewStore(b, nil, nil)
	ctx := context.Background()

	s.Hydrate(ctx, alice)
	require.Equal(t, 1, s.Count())
	require.Len(t, s.Purchases(), 1)

	s.Hydrate(ctx, nil)
	s.Hydrate(ctx, nil)

	assert.Empty(t, s.Items())
	assert.Empty(t, s.Purchases())
	assert.False(t, s.Loading())
	assert.Equal(t, 1, b.CartCalls, "anonymous hydrate sends nothing")
}

func TestHydrate_PlaceholderForMissingCourse(t *testing.T) {
	b := &fakeBackend{CartFn: cartOf(models.CartItem{ID: 1, CourseID: 5})}
	s := NewStore(b, nil, nil)

	s.Hydrate(context.Background(), alice)

	want := []models.CartItem{{
		ID:       1,
		CourseID: 5,
		Course:   &models.CourseSummary{ID: 5, Title: models.PlaceholderTitle, Price: decimal.Zero},
	}}
	if diff := cmp.Diff(want, s.Items(), decimalCmp); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, s.Purchases())
}

func TestHydrate_FailuresAreIsolated(t *testing.T) {
	t.Run("cart fails", func(t *testing.T) {
		b := &fakeBackend{
			CartFn: func(context.Context) ([]models.CartItem, error) {
				return nil, api.ErrUnavailable
			},
			PurchasesFn: purchasesOf(models.Purchase{ID: 1, CourseID: 3}),
		}
		s := NewStore(b, nil, nil)
		s.Hydrate(context.Background(), alice)

		assert.Empty(t, s.Items())
		assert.True(t, s.IsCourseBought(3))
		assert.False(t, s.Loading())
	})

	t.Run("purchases fail", func(t *testing.T) {
		b := &fakeBackend{
			CartFn: cartOf(models.CartItem{ID: 1, CourseID: 5, Course: course(5, "Go", 10)}),
			PurchasesFn: func(context.Context) ([]models.Purchase, error) {
				return nil, api.ErrUnauthorized
			},
		}
		s := NewStore(b, nil, nil)
		s.Hydrate(context.Background(), alice)

		assert.Equal(t, 1, s.Count())
		assert.Empty(t, s.Purchases())
	})
}

func TestHydrate_LoadingUntilBothSettle(t *testing.T) {
	release := make(chan struct{})
	b := &fakeBackend{
		CartFn: cartOf(models.CartItem{ID: 1, CourseID: 5}),
		PurchasesFn: func(context.Context) ([]models.Purchase, error) {
			<-release
			return []models.Purchase{}, nil
		},
	}
	s := NewStore(b, nil, nil)

	done := make(chan struct{})
	go func() {
		s.Hydrate(context.Background(), alice)
		close(done)
	}()

	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.CartCalls == 1 && b.PurchasesCalls == 1
	}, time.Second, time.Millisecond)
	// the cart half has returned, the purchases half has not.
	assert.True(t, s.Loading())
	assert.Empty(t, s.Items())

	close(release)
	<-done
	assert.False(t, s.Loading())
	assert.Equal(t, 1, s.Count())
}

func TestHydrate_StaleGenerationDiscarded(t *testing.T) {
	slow := make(chan struct{})
	b := &fakeBackend{}
	b.CartFn = func(ctx context.Context) ([]models.CartItem, error) {
		if ctx.Value(userKey{}) == alice.ID {
			<-slow
			return []models.CartItem{{ID: 1, CourseID: 11, Course: course(11, "alice's", 1)}}, nil
		}
		return []models.CartItem{{ID: 2, CourseID: 22, Course: course(22, "bob's", 2)}}, nil
	}
	s := NewStore(b, nil, nil)

	aliceCtx := context.WithValue(context.Background(), userKey{}, alice.ID)
	done := make(chan struct{})
	go func() {
		s.Hydrate(aliceCtx, alice)
		close(done)
	}()
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.CartCalls == 1
	}, time.Second, time.Millisecond)

	s.Hydrate(context.Background(), bob)
	require.False(t, s.Loading())

	close(slow)
	<-done

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, int64(22), items[0].CourseID)
	assert.False(t, s.Loading())
}

type userKey struct{}

// ---- add ----

func TestAddItem_Success(t *testing.T) {
	b := &fakeBackend{AddRet: &models.CartItem{ID: 7, CourseID: 5, Course: course(5, "Go", 30)}}
	s := NewStore(b, nil, nil)
	ctx := context.Background()
	s.Hydrate(ctx, alice)

	item, err := s.AddItem(ctx, 5)
	require.NoError(t, err)

	assert.Equal(t, int64(5), item.CourseID)
	assert.False(t, s.IsCourseBought(5))
	assert.True(t, s.InCart(5))
	assert.Equal(t, 1, s.Count())
	assert.True(t, s.Total().Equal(decimal.NewFromInt(30)))
	assert.Equal(t, 1, b.CartCalls, "no full re-fetch after add")
}

func TestAddItem_NormalizesReturnedItem(t *testing.T) {
	b := &fakeBackend{AddRet: &models.CartItem{ID: 7, CourseID: 5}}
	s := NewStore(b, nil, nil)
	s.Hydrate(context.Background(), alice)

	item, err := s.AddItem(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, item.Course)
	assert.Equal(t, models.PlaceholderTitle, item.Course.Title)
}

func TestAddItem_Refused(t *testing.T) {
	tests := []struct {
		name  string
		user  *models.User
		cart  []models.CartItem
		owned []models.Purchase
		want  error
	}{
		{name: "anonymous", user: nil, want: ErrAnonymous},
		{name: "already in cart", user: alice, cart: []models.CartItem{{ID: 1, CourseID: 5}}, want: ErrAlreadyInCart},
		{name: "already purchased", user: alice, owned: []models.Purchase{{ID: 1, CourseID: 5}}, want: ErrAlreadyPurchased},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{CartFn: cartOf(tt.cart...), PurchasesFn: purchasesOf(tt.owned...)}
			s := NewStore(b, nil, nil)
			s.Hydrate(context.Background(), tt.user)
			before := s.Items()

			_, err := s.AddItem(context.Background(), 5)
			require.ErrorIs(t, err, tt.want)
			assert.Zero(t, b.AddCalls)
			assert.Equal(t, before, s.Items())
		})
	}
}

func TestAddItem_ServerFailureLeavesState(t *testing.T) {
	b := &fakeBackend{AddErr: api.ErrNotFound}
	s := NewStore(b, nil, nil)
	s.Hydrate(context.Background(), alice)

	_, err := s.AddItem(context.Background(), 404)
	require.ErrorIs(t, err, api.ErrNotFound)
	assert.Zero(t, s.Count())
}

// ---- remove ----

func TestRemoveItem(t *testing.T) {
	seed := cartOf(
		models.CartItem{ID: 1, CourseID: 5, Course: course(5, "A", 10)},
		models.CartItem{ID: 2, CourseID: 6, Course: course(6, "B", 20)},
	)

	t.Run("success", func(t *testing.T) {
		b := &fakeBackend{CartFn: seed}
		s := NewStore(b, nil, nil)
		s.Hydrate(context.Background(), alice)

		require.NoError(t, s.RemoveItem(context.Background(), 1))
		items := s.Items()
		require.Len(t, items, 1)
		assert.Equal(t, int64(2), items[0].ID)
	})

	t.Run("unknown id sends nothing", func(t *testing.T) {
		b := &fakeBackend{CartFn: seed}
		s := NewStore(b, nil, nil)
		s.Hydrate(context.Background(), alice)

		err := s.RemoveItem(context.Background(), 99)
		require.ErrorIs(t, err, ErrItemNotFound)
		assert.Zero(t, b.RemoveCalls)
		assert.Equal(t, 2, s.Count())
	})

	t.Run("server failure notifies and keeps state", func(t *testing.T) {
		b := &fakeBackend{CartFn: seed, RemoveErr: api.ErrUnavailable}
		pub := &fakePublisher{}
		s := NewStore(b, pub, nil)
		s.Hydrate(context.Background(), alice)

		err := s.RemoveItem(context.Background(), 1)
		require.ErrorIs(t, err, api.ErrUnavailable)
		assert.Equal(t, 2, s.Count())
		require.Len(t, pub.notes, 1)
		assert.Equal(t, notify.LevelError, pub.notes[0].Level)
	})
}

// ---- clear, purchases ----

func TestClearCart_Idempotent(t *testing.T) {
	b := &fakeBackend{CartFn: cartOf(models.CartItem{ID: 1, CourseID: 5})}
	s := NewStore(b, nil, nil)
	s.Hydrate(context.Background(), alice)

	s.ClearCart()
	assert.Empty(t, s.Items())
	s.ClearCart()
	assert.Empty(t, s.Items())
	assert.True(t, s.Total().IsZero())
}

func TestRefreshPurchases(t *testing.T) {
	owned := []models.Purchase{}
	fail := false
	b := &fakeBackend{}
	b.PurchasesFn = func(context.Context) ([]models.Purchase, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return owned, nil
	}
	s := NewStore(b, nil, nil)
	ctx := context.Background()
	s.Hydrate(ctx, alice)

	owned = []models.Purchase{{ID: 1, CourseID: 5}}
	s.RefreshPurchases(ctx)
	assert.True(t, s.IsCourseBought(5))

	fail = true
	s.RefreshPurchases(ctx)
	assert.Empty(t, s.Purchases())
	assert.False(t, s.IsCourseBought(5))
}

func TestRefreshPurchases_Anonymous(t *testing.T) {
	b := &fakeBackend{}
	s := NewStore(b, nil, nil)

	s.RefreshPurchases(context.Background())
	assert.Zero(t, b.PurchasesCalls)
	assert.Empty(t, s.Purchases())
}

func TestItems_ReturnsCopy(t *testing.T) {
	b := &fakeBackend{CartFn: cartOf(models.CartItem{ID: 1, CourseID: 5, Course: course(5, "A", 1)})}
	s := NewStore(b, nil, nil)
	s.Hydrate(context.Background(), alice)

	items := s.Items()
	items[0].ID = 999
	assert.Equal(t, int64(1), s.Items()[0].ID)
}
