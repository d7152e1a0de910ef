package gate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salon-portal/internal/model"
	"salon-portal/internal/session"
)

// sequencedAPI replays a scripted list of Me results, repeating the last one
// once the script runs out.
type sequencedAPI struct {
	script []func() (model.Profile, error)
	calls  int
}

func (s *sequencedAPI) Me(_ context.Context, _ string) (model.Profile, error) {
	idx := s.calls
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.calls++
	return s.script[idx]()
}

func ok(profile model.Profile) func() (model.Profile, error) {
	return func() (model.Profile, error) { return profile, nil }
}

func failWith(err error) func() (model.Profile, error) {
	return func() (model.Profile, error) { return model.Profile{}, err }
}

func newRotationStore(t *testing.T, flag session.Flag) session.Store {
	t.Helper()
	store := session.NewMemoryStore()
	require.NoError(t, store.Write(context.Background(), testSID, session.Session{
		Token:              "tok-1",
		Profile:            &model.Profile{ID: "u1", Role: model.RoleReceptionist, MustChangePassword: flag == session.FlagTrue},
		MustChangePassword: flag,
	}))
	return store
}

func TestRotationRequiredUnauthenticated(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	api := &sequencedAPI{script: []func() (model.Profile, error){ok(model.Profile{})}}
	r := NewRotationInterceptor(store, api)

	assert.False(t, r.Required(context.Background(), testSID))
	assert.Zero(t, api.calls)
}

func TestRotationRequiredStickyFalseSkipsProbe(t *testing.T) {
	t.Parallel()

	store := newRotationStore(t, session.FlagFalse)
	api := &sequencedAPI{script: []func() (model.Profile, error){
		ok(model.Profile{MustChangePassword: true}),
	}}
	r := NewRotationInterceptor(store, api)

	assert.False(t, r.Required(context.Background(), testSID))
	assert.Zero(t, api.calls, "a sticky false flag must not trigger a probe")
}

func TestRotationRequiredFlagTrue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("server confirms pending", func(t *testing.T) {
		store := newRotationStore(t, session.FlagTrue)
		api := &sequencedAPI{script: []func() (model.Profile, error){
			failWith(model.ErrPasswordChangeRequired),
		}}
		r := NewRotationInterceptor(store, api)

		assert.True(t, r.Required(ctx, testSID))
	})

	t.Run("server says resolved clears the flag", func(t *testing.T) {
		store := newRotationStore(t, session.FlagTrue)
		api := &sequencedAPI{script: []func() (model.Profile, error){
			ok(model.Profile{ID: "u1", MustChangePassword: false}),
		}}
		r := NewRotationInterceptor(store, api)

		assert.False(t, r.Required(ctx, testSID))

		sess, err := store.Read(ctx, testSID)
		require.NoError(t, err)
		assert.Equal(t, session.FlagUnknown, sess.MustChangePassword)
	})

	t.Run("probe failure falls back to the armed flag", func(t *testing.T) {
		store := newRotationStore(t, session.FlagTrue)
		api := &sequencedAPI{script: []func() (model.Profile, error){
			failWith(fmt.Errorf("%w: connection refused", model.ErrUpstreamUnreachable)),
		}}
		r := NewRotationInterceptor(store, api)

		assert.True(t, r.Required(ctx, testSID))
	})
}

func TestRotationRequiredFlagUnknown(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("server reports pending arms the flag", func(t *testing.T) {
		store := newRotationStore(t, session.FlagUnknown)
		api := &sequencedAPI{script: []func() (model.Profile, error){
			ok(model.Profile{ID: "u1", MustChangePassword: true}),
		}}
		r := NewRotationInterceptor(store, api)

		assert.True(t, r.Required(ctx, testSID))

		sess, err := store.Read(ctx, testSID)
		require.NoError(t, err)
		assert.Equal(t, session.FlagTrue, sess.MustChangePassword)
	})

	t.Run("server reports clean", func(t *testing.T) {
		store := newRotationStore(t, session.FlagUnknown)
		api := &sequencedAPI{script: []func() (model.Profile, error){
			ok(model.Profile{ID: "u1", MustChangePassword: false}),
		}}
		r := NewRotationInterceptor(store, api)

		assert.False(t, r.Required(ctx, testSID))
	})

	t.Run("rotation 403 counts as pending", func(t *testing.T) {
		store := newRotationStore(t, session.FlagUnknown)
		api := &sequencedAPI{script: []func() (model.Profile, error){
			failWith(model.ErrPasswordChangeRequired),
		}}
		r := NewRotationInterceptor(store, api)

		assert.True(t, r.Required(ctx, testSID))
	})

	t.Run("other probe failures do not arm the flag", func(t *testing.T) {
		store := newRotationStore(t, session.FlagUnknown)
		api := &sequencedAPI{script: []func() (model.Profile, error){
			failWith(fmt.Errorf("%w: connection refused", model.ErrUpstreamUnreachable)),
		}}
		r := NewRotationInterceptor(store, api)

		assert.False(t, r.Required(ctx, testSID))

		sess, err := store.Read(ctx, testSID)
		require.NoError(t, err)
		assert.Equal(t, session.FlagUnknown, sess.MustChangePassword)
	})
}

func TestOnPasswordChangedSetsStickyFalseImmediately(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newRotationStore(t, session.FlagTrue)
	api := &sequencedAPI{script: []func() (model.Profile, error){
		ok(model.Profile{ID: "u1", Role: model.RoleReceptionist, MustChangePassword: false, Name: "Dana"}),
	}}
	r := NewRotationInterceptor(store, api, WithPolling(time.Millisecond, 50*time.Millisecond))

	require.NoError(t, r.OnPasswordChanged(ctx, testSID))

	sess, err := store.Read(ctx, testSID)
	require.NoError(t, err)
	assert.Equal(t, session.FlagFalse, sess.MustChangePassword)
	assert.False(t, sess.Profile.MustChangePassword)
	assert.Equal(t, "Dana", sess.Profile.Name, "the converged profile replaces the cache")
}

func TestOnPasswordChangedPollsUntilUpstreamConverges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// The upstream write is visible only on the third read.
	store := newRotationStore(t, session.FlagTrue)
	api := &sequencedAPI{script: []func() (model.Profile, error){
		ok(model.Profile{ID: "u1", MustChangePassword: true}),
		ok(model.Profile{ID: "u1", MustChangePassword: true}),
		ok(model.Profile{ID: "u1", MustChangePassword: false}),
	}}
	r := NewRotationInterceptor(store, api, WithPolling(time.Millisecond, time.Second))

	require.NoError(t, r.OnPasswordChanged(ctx, testSID))
	assert.Equal(t, 3, api.calls)

	sess, err := store.Read(ctx, testSID)
	require.NoError(t, err)
	assert.Equal(t, session.FlagFalse, sess.MustChangePassword)
}

func TestOnPasswordChangedToleratesTimeout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// Upstream never converges inside the window. The sticky flag still
	// protects the user.
	store := newRotationStore(t, session.FlagTrue)
	api := &sequencedAPI{script: []func() (model.Profile, error){
		ok(model.Profile{ID: "u1", MustChangePassword: true}),
	}}
	r := NewRotationInterceptor(store, api, WithPolling(time.Millisecond, 10*time.Millisecond))

	require.NoError(t, r.OnPasswordChanged(ctx, testSID))

	sess, err := store.Read(ctx, testSID)
	require.NoError(t, err)
	assert.Equal(t, session.FlagFalse, sess.MustChangePassword)
}

func TestOnPasswordChangedDoesNotRaceConcurrentReads(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// A change-password POST races other requests reading the same session.
	// The store hands out copies, so the in-place flag flip stays private.
	store := newRotationStore(t, session.FlagTrue)
	api := &sequencedAPI{script: []func() (model.Profile, error){
		ok(model.Profile{ID: "u1", Role: model.RoleReceptionist, MustChangePassword: false}),
	}}
	r := NewRotationInterceptor(store, api, WithPolling(time.Millisecond, 50*time.Millisecond))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			sess, err := store.Read(ctx, testSID)
			if err != nil || sess.Profile == nil {
				return
			}
			_ = sess.Profile.MustChangePassword
		}
	}()

	require.NoError(t, r.OnPasswordChanged(ctx, testSID))
	wg.Wait()

	sess, err := store.Read(ctx, testSID)
	require.NoError(t, err)
	assert.Equal(t, session.FlagFalse, sess.MustChangePassword)
	assert.False(t, sess.Profile.MustChangePassword)
}

func TestOnPasswordChangedStopsOnLogout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newRotationStore(t, session.FlagTrue)
	api := &sequencedAPI{script: []func() (model.Profile, error){
		failWith(fmt.Errorf("%w: invalid token", model.ErrUnauthenticated)),
	}}
	r := NewRotationInterceptor(store, api, WithPolling(time.Millisecond, time.Second))

	require.NoError(t, r.OnPasswordChanged(ctx, testSID))
	assert.Equal(t, 1, api.calls, "an invalidated session must stop the poll")
}
