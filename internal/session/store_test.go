package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"salon-portal/internal/model"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unknown sid reads as zero session", func(t *testing.T) {
		store := NewMemoryStore()

		sess, err := store.Read(ctx, "missing")
		require.NoError(t, err)
		require.False(t, sess.Authenticated())
		require.Equal(t, FlagUnknown, sess.MustChangePassword)
	})

	t.Run("write then read round-trips", func(t *testing.T) {
		store := NewMemoryStore()

		written := Session{
			Token:              "tok-1",
			Profile:            &model.Profile{ID: "u1", Role: model.RoleManager},
			MustChangePassword: FlagTrue,
		}
		require.NoError(t, store.Write(ctx, "sid-1", written))

		sess, err := store.Read(ctx, "sid-1")
		require.NoError(t, err)
		require.True(t, sess.Authenticated())
		require.Equal(t, "tok-1", sess.Token)
		require.Equal(t, model.RoleManager, sess.Profile.Role)
		require.Equal(t, FlagTrue, sess.MustChangePassword)
	})

	t.Run("clear removes the session", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Write(ctx, "sid-1", Session{Token: "tok-1"}))
		require.NoError(t, store.Clear(ctx, "sid-1"))

		sess, err := store.Read(ctx, "sid-1")
		require.NoError(t, err)
		require.False(t, sess.Authenticated())
	})

	t.Run("clearing an absent session is not an error", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Clear(ctx, "never-written"))
	})

	t.Run("read hands out an independent copy", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Write(ctx, "sid-1", Session{
			Token:   "tok-1",
			Profile: &model.Profile{ID: "u1", MustChangePassword: true},
		}))

		sess, err := store.Read(ctx, "sid-1")
		require.NoError(t, err)
		sess.Profile.MustChangePassword = false

		again, err := store.Read(ctx, "sid-1")
		require.NoError(t, err)
		require.True(t, again.Profile.MustChangePassword, "mutating a read session must not touch the store")
	})

	t.Run("write captures a copy of the caller's session", func(t *testing.T) {
		store := NewMemoryStore()
		written := Session{
			Token:   "tok-1",
			Profile: &model.Profile{ID: "u1", Role: model.RoleManager},
		}
		require.NoError(t, store.Write(ctx, "sid-1", written))
		written.Profile.Role = model.RoleClient

		sess, err := store.Read(ctx, "sid-1")
		require.NoError(t, err)
		require.Equal(t, model.RoleManager, sess.Profile.Role)
	})
}

// Two requests on one session cookie: one mutates the profile it read, the
// other keeps reading. Neither may ever observe or race the other's copy.
func TestMemoryStoreConcurrentReadersDoNotShareProfiles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := NewMemoryStore()
	require.NoError(t, store.Write(ctx, "sid-1", Session{
		Token:   "tok-1",
		Profile: &model.Profile{ID: "u1", MustChangePassword: true},
	}))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			sess, err := store.Read(ctx, "sid-1")
			if err != nil || sess.Profile == nil {
				return
			}
			sess.Profile.MustChangePassword = false
			sess.MustChangePassword = FlagFalse
			_ = store.Write(ctx, "sid-1", sess)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			sess, err := store.Read(ctx, "sid-1")
			if err != nil || sess.Profile == nil {
				return
			}
			_ = sess.Profile.MustChangePassword
		}
	}()
	wg.Wait()
}

func TestFileStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("rejects empty path", func(t *testing.T) {
		_, err := NewFileStore("")
		require.Error(t, err)
	})

	t.Run("sessions survive a reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sessions.json")

		store, err := NewFileStore(path)
		require.NoError(t, err)
		require.NoError(t, store.Write(ctx, "sid-1", Session{
			Token:              "tok-1",
			Profile:            &model.Profile{ID: "u1", Email: "a@b.c", Role: model.RoleAdmin},
			MustChangePassword: FlagFalse,
		}))

		reopened, err := NewFileStore(path)
		require.NoError(t, err)

		sess, err := reopened.Read(ctx, "sid-1")
		require.NoError(t, err)
		require.Equal(t, "tok-1", sess.Token)
		require.Equal(t, model.RoleAdmin, sess.Profile.Role)
		require.Equal(t, FlagFalse, sess.MustChangePassword)
	})

	t.Run("the sticky flag persists across restarts", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sessions.json")

		store, err := NewFileStore(path)
		require.NoError(t, err)
		require.NoError(t, store.Write(ctx, "sid-1", Session{Token: "tok-1", MustChangePassword: FlagFalse}))
		require.NoError(t, store.Write(ctx, "sid-2", Session{Token: "tok-2", MustChangePassword: FlagTrue}))

		reopened, err := NewFileStore(path)
		require.NoError(t, err)

		first, err := reopened.Read(ctx, "sid-1")
		require.NoError(t, err)
		require.Equal(t, FlagFalse, first.MustChangePassword)

		second, err := reopened.Read(ctx, "sid-2")
		require.NoError(t, err)
		require.Equal(t, FlagTrue, second.MustChangePassword)
	})

	t.Run("read hands out an independent copy", func(t *testing.T) {
		store, err := NewFileStore(filepath.Join(t.TempDir(), "sessions.json"))
		require.NoError(t, err)
		require.NoError(t, store.Write(ctx, "sid-1", Session{
			Token:   "tok-1",
			Profile: &model.Profile{ID: "u1", MustChangePassword: true},
		}))

		sess, err := store.Read(ctx, "sid-1")
		require.NoError(t, err)
		sess.Profile.MustChangePassword = false

		again, err := store.Read(ctx, "sid-1")
		require.NoError(t, err)
		require.True(t, again.Profile.MustChangePassword, "mutating a read session must not touch the store")
	})

	t.Run("clear persists to disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sessions.json")

		store, err := NewFileStore(path)
		require.NoError(t, err)
		require.NoError(t, store.Write(ctx, "sid-1", Session{Token: "tok-1"}))
		require.NoError(t, store.Clear(ctx, "sid-1"))

		reopened, err := NewFileStore(path)
		require.NoError(t, err)

		sess, err := reopened.Read(ctx, "sid-1")
		require.NoError(t, err)
		require.False(t, sess.Authenticated())
	})
}
