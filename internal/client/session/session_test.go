package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/coursestore/internal/client/api"
	"github.com/dmitrijs2005/coursestore/internal/client/models"
)

// ---- fake backend ----

type fakeBackend struct {
	mu sync.Mutex

	LoginErr  error
	LogoutErr error

	// MeFn overrides MeUser/MeErr when set.
	MeFn   func(ctx context.Context) (*models.User, error)
	MeUser *models.User
	MeErr  error

	LoginCalls  int
	LogoutCalls int
	MeCalls     int
	LastCreds   models.Credentials
}

func (f *fakeBackend) Login(_ context.Context, creds models.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LoginCalls++
	f.LastCreds = creds
	return f.LoginErr
}

func (f *fakeBackend) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LogoutCalls++
	return f.LogoutErr
}

func (f *fakeBackend) Me(ctx context.Context) (*models.User, error) {
	f.mu.Lock()
	f.MeCalls++
	fn, u, err := f.MeFn, f.MeUser, f.MeErr
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, api.ErrUnauthorized
	}
	c := *u
	return &c, nil
}

func (f *fakeBackend) setMe(u *models.User, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MeUser, f.MeErr = u, err
}

type recorder struct {
	mu    sync.Mutex
	calls []*models.User
}

func (r *recorder) listen(_ context.Context, u *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, u)
}

func (r *recorder) all() []*models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.User(nil), r.calls...)
}

var alice = &models.User{ID: 1, Username: "alice", Email: "alice@example.org"}

func newStore(b *fakeBackend) (*Store, *recorder) {
	s := NewStore(b, nil)
	rec := &recorder{}
	s.Subscribe(rec.listen)
	return s, rec
}

// ---- tests ----

func TestNewStore_Unresolved(t *testing.T) {
	s, _ := newStore(&fakeBackend{})

	snap := s.Snapshot()
	assert.Nil(t, snap.User)
	assert.True(t, snap.Loading)
	assert.Equal(t, StateUnresolved, snap.State)

	select {
	case <-s.Ready():
		t.Fatal("ready before resolve")
	default:
	}
}

func TestResolve_Authenticated(t *testing.T) {
	b := &fakeBackend{MeUser: alice}
	s, rec := newStore(b)

	s.Resolve(context.Background())

	snap := s.Snapshot()
	require.NotNil(t, snap.User)
	assert.Equal(t, "alice", snap.User.Username)
	assert.False(t, snap.Loading)
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.Len(t, rec.all(), 1)

	select {
	case <-s.Ready():
	default:
		t.Fatal("ready not closed")
	}
}

func TestResolve_FailureIsAnonymous(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unauthorized", api.ErrUnauthorized},
		{"server down", api.ErrUnavailable},
		{"anything else", errors.New("weird")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rec := newStore(&fakeBackend{MeErr: tt.err})

			s.Resolve(context.Background())

			assert.Nil(t, s.User())
			assert.False(t, s.Loading())
			assert.Equal(t, StateAnonymous, s.State())
			assert.Empty(t, rec.all(), "nil to nil is not an identity change")
		})
	}
}

func TestResolve_RunsOnce(t *testing.T) {
	b := &fakeBackend{MeUser: alice}
	s, _ := newStore(b)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Resolve(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, b.MeCalls)
}

func TestResolve_LoginWinsOverSlowResolve(t *testing.T) {
	gate := make(chan struct{})
	first := true
	b := &fakeBackend{}
	b.MeFn = func(context.Context) (*models.User, error) {
		b.mu.Lock()
		isFirst := first
		first = false
		b.mu.Unlock()
		if isFirst {
			<-gate
			return nil, api.ErrUnauthorized
		}
		return alice, nil
	}
	s, _ := newStore(b)

	done := make(chan struct{})
	go func() {
		s.Resolve(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return !first
	}, time.Second, time.Millisecond)

	require.NoError(t, s.Login(context.Background(), models.Credentials{Username: "alice", Password: "pw"}))
	close(gate)
	<-done

	assert.Equal(t, StateAuthenticated, s.State())
	require.NotNil(t, s.User())
	assert.Equal(t, int64(1), s.User().ID)
}

func TestResolve_NeverOverwritesConcurrentLogin(t *testing.T) {
	for i := 0; i < 500; i++ {
		started := make(chan struct{})
		var once sync.Once
		b := &fakeBackend{}
		b.MeFn = func(context.Context) (*models.User, error) {
			resolving := false
			once.Do(func() {
				resolving = true
				close(started)
			})
			if resolving {
				return nil, api.ErrUnauthorized
			}
			return alice, nil
		}
		s, rec := newStore(b)

		done := make(chan struct{})
		go func() {
			s.Resolve(context.Background())
			close(done)
		}()
		<-started

		require.NoError(t, s.Login(context.Background(), models.Credentials{Username: "alice", Password: "pw"}))
		<-done

		require.Equal(t, StateAuthenticated, s.State(), "iteration %d", i)
		calls := rec.all()
		require.NotEmpty(t, calls, "iteration %d", i)
		require.NotNil(t, calls[len(calls)-1], "iteration %d: listeners last saw anonymous", i)
	}
}

func TestListeners_SeeChangesInWriteOrder(t *testing.T) {
	for i := 0; i < 200; i++ {
		b := &fakeBackend{MeUser: alice}
		s, rec := newStore(b)
		s.Resolve(context.Background())

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Logout(context.Background())
		}()
		go func() {
			defer wg.Done()
			_ = s.Refresh(context.Background())
		}()
		wg.Wait()

		calls := rec.all()
		var last *models.User
		if len(calls) > 0 {
			last = calls[len(calls)-1]
		}
		require.Equal(t, s.User() == nil, last == nil, "iteration %d: store and listeners disagree", i)
	}
}

func TestLogin_Success(t *testing.T) {
	b := &fakeBackend{MeUser: alice}
	s, rec := newStore(b)

	err := s.Login(context.Background(), models.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, "alice", b.LastCreds.Username)
	assert.Equal(t, StateAuthenticated, s.State())
	calls := rec.all()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(1), calls[0].ID)
}

func TestLogin_ServerRejects_NoStateChange(t *testing.T) {
	b := &fakeBackend{LoginErr: api.ErrUnauthorized, MeUser: alice}
	s, rec := newStore(b)
	b.setMe(nil, api.ErrUnauthorized)
	s.Resolve(context.Background())

	err := s.Login(context.Background(), models.Credentials{Username: "alice", Password: "bad"})
	require.ErrorIs(t, err, api.ErrUnauthorized)

	assert.Equal(t, StateAnonymous, s.State())
	assert.Equal(t, 1, b.MeCalls, "identity is not fetched after a failed login")
	assert.Empty(t, rec.all())
}

func TestLogin_IdentityFetchFails_NoStateChange(t *testing.T) {
	b := &fakeBackend{MeErr: api.ErrUnavailable}
	s, rec := newStore(b)

	err := s.Login(context.Background(), models.Credentials{Username: "alice", Password: "pw"})
	require.ErrorIs(t, err, api.ErrUnavailable)
	assert.Nil(t, s.User())
	assert.Empty(t, rec.all())
}

func TestLogin_EmptyCredentials_NoRequest(t *testing.T) {
	b := &fakeBackend{MeUser: alice}
	s, _ := newStore(b)

	err := s.Login(context.Background(), models.Credentials{Username: "alice"})
	require.ErrorIs(t, err, models.ErrValidation)
	assert.Zero(t, b.LoginCalls)
}

func TestLogout_ClearsUser(t *testing.T) {
	b := &fakeBackend{MeUser: alice}
	s, rec := newStore(b)
	s.Resolve(context.Background())

	require.NoError(t, s.Logout(context.Background()))

	assert.Nil(t, s.User())
	assert.Equal(t, StateAnonymous, s.State())
	calls := rec.all()
	require.Len(t, calls, 2)
	assert.Nil(t, calls[1])
}

func TestLogout_ServerFails_StillClears(t *testing.T) {
	b := &fakeBackend{MeUser: alice, LogoutErr: api.ErrUnavailable}
	s, rec := newStore(b)
	s.Resolve(context.Background())

	err := s.Logout(context.Background())
	require.ErrorIs(t, err, api.ErrUnavailable)

	assert.Nil(t, s.User())
	assert.Equal(t, StateAnonymous, s.State())
	assert.Len(t, rec.all(), 2)
}

func TestRefresh(t *testing.T) {
	t.Run("same identity updates fields without notifying", func(t *testing.T) {
		b := &fakeBackend{MeUser: alice}
		s, rec := newStore(b)
		s.Resolve(context.Background())

		renamed := *alice
		renamed.Username = "alice2"
		b.setMe(&renamed, nil)

		require.NoError(t, s.Refresh(context.Background()))
		assert.Equal(t, "alice2", s.User().Username)
		assert.Len(t, rec.all(), 1)
	})

	t.Run("transient failure keeps user", func(t *testing.T) {
		b := &fakeBackend{MeUser: alice}
		s, _ := newStore(b)
		s.Resolve(context.Background())
		b.setMe(nil, api.ErrUnavailable)

		err := s.Refresh(context.Background())
		require.ErrorIs(t, err, api.ErrUnavailable)
		assert.Equal(t, StateAuthenticated, s.State())
	})

	t.Run("unauthorized goes anonymous", func(t *testing.T) {
		b := &fakeBackend{MeUser: alice}
		s, rec := newStore(b)
		s.Resolve(context.Background())
		b.setMe(nil, api.ErrUnauthorized)

		err := s.Refresh(context.Background())
		require.ErrorIs(t, err, api.ErrUnauthorized)
		assert.Equal(t, StateAnonymous, s.State())
		assert.Len(t, rec.all(), 2)
	})
}

func TestUser_ReturnsCopy(t *testing.T) {
	s, _ := newStore(&fakeBackend{MeUser: alice})
	s.Resolve(context.Background())

	u := s.User()
	u.Username = "mallory"
	assert.Equal(t, "alice", s.User().Username)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unresolved", StateUnresolved.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "anonymous", StateAnonymous.String())
}
