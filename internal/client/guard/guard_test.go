package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/coursestore/internal/client/models"
	"github.com/dmitrijs2005/coursestore/internal/client/session"
)

type fakeSession struct {
	state session.State
	ready chan struct{}
}

func (f *fakeSession) State() session.State   { return f.state }
func (f *fakeSession) Ready() <-chan struct{} { return f.ready }

func TestCheck(t *testing.T) {
	tests := []struct {
		state session.State
		want  Decision
	}{
		{session.StateUnresolved, Pending},
		{session.StateAnonymous, RedirectLogin},
		{session.StateAuthenticated, Allow},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Check(&fakeSession{state: tt.state}))
		})
	}
}

func TestRequire_ResolvedStates(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Require(ctx, &fakeSession{state: session.StateAuthenticated}))
	assert.ErrorIs(t, Require(ctx, &fakeSession{state: session.StateAnonymous}), ErrLoginRequired)
}

func TestRequire_ContextEndsWhilePending(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := Require(ctx, &fakeSession{state: session.StateUnresolved, ready: make(chan struct{})})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type meBackend struct {
	release chan struct{}
	user    *models.User
}

func (b *meBackend) Login(context.Context, models.Credentials) error { return nil }
func (b *meBackend) Logout(context.Context) error                   { return nil }
func (b *meBackend) Me(context.Context) (*models.User, error) {
	<-b.release
	if b.user == nil {
		return nil, errors.New("anonymous")
	}
	return b.user, nil
}

func TestRequire_WaitsForResolution(t *testing.T) {
	tests := []struct {
		name string
		user *models.User
		want error
	}{
		{"authenticated", &models.User{ID: 1, Username: "alice"}, nil},
		{"anonymous", nil, ErrLoginRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &meBackend{release: make(chan struct{}), user: tt.user}
			s := session.NewStore(b, nil)
			go s.Resolve(context.Background())

			result := make(chan error, 1)
			go func() { result <- Require(context.Background(), s) }()

			select {
			case err := <-result:
				t.Fatalf("guard decided before resolution: %v", err)
			case <-time.After(20 * time.Millisecond):
			}
			assert.Equal(t, Pending, Check(s))

			close(b.release)
			select {
			case err := <-result:
				if tt.want == nil {
					require.NoError(t, err)
				} else {
					require.ErrorIs(t, err, tt.want)
				}
			case <-time.After(time.Second):
				t.Fatal("guard did not decide after resolution")
			}
		})
	}
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "redirect-login", RedirectLogin.String())
	assert.Equal(t, "allow", Allow.String())
}
