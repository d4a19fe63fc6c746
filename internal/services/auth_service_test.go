package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"wallet/internal/core"
	"wallet/internal/log"
	"wallet/internal/storage/jsonfile"
)

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with hashed password and empty ledger", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.auth.Register(ctx, "  alice ", "pw1"))

		u, err := f.store.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", u.Username)
		assert.NotEqual(t, "pw1", u.PasswordHash)
		assert.True(t, strings.HasPrefix(u.PasswordHash, "$2"), "expected a bcrypt hash")
		assert.Equal(t, 0, u.Ledger.Len())
		assert.True(t, u.Ledger.Balance().IsZero())
		assert.False(t, f.auth.IsAuthenticated(f.sess), "register must not log in")
	})

	t.Run("duplicate username", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.auth.Register(ctx, "alice", "pw1"))
		err := f.auth.Register(ctx, "alice", "other")
		assert.ErrorIs(t, err, core.ErrDuplicateUser)
		assert.Contains(t, err.Error(), "alice")
	})

	t.Run("password longer than 72 bytes", func(t *testing.T) {
		f := newFixture(t)
		err := f.auth.Register(ctx, "bob", strings.Repeat("a", 72)+"SECRET")
		assert.ErrorIs(t, err, core.ErrValidation)
		ok, err := f.store.Exists(ctx, "bob")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("failed save leaves no user behind", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "users.json")
		store, err := jsonfile.Open(path, log.Discard())
		require.NoError(t, err)
		require.NoError(t, os.Mkdir(path+".tmp", 0o755))
		auth := NewAuthService(store, log.Discard(), WithBcryptCost(bcrypt.MinCost))
		sess := NewSession()

		require.Error(t, auth.Register(ctx, "carol", "pw1"))
		err = auth.Register(ctx, "carol", "pw1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, core.ErrDuplicateUser)
		assert.ErrorIs(t, auth.Login(ctx, sess, "carol", "pw1"), core.ErrAuth)
	})

	t.Run("empty fields", func(t *testing.T) {
		f := newFixture(t)
		assert.ErrorIs(t, f.auth.Register(ctx, "   ", "pw"), core.ErrValidation)
		assert.ErrorIs(t, f.auth.Register(ctx, "bob", ""), core.ErrValidation)
		ok, err := f.store.Exists(ctx, "bob")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success binds the stored user", func(t *testing.T) {
		f := newFixture(t).loggedIn(t, "alice")
		u, err := f.auth.CurrentUser(f.sess)
		require.NoError(t, err)
		stored, err := f.store.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Same(t, stored, u)
		assert.True(t, f.auth.IsAuthenticated(f.sess))
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.auth.Register(ctx, "alice", "pw1"))

		errWrong := f.auth.Login(ctx, f.sess, "alice", "nope")
		errUnknown := f.auth.Login(ctx, f.sess, "mallory", "pw1")
		assert.ErrorIs(t, errWrong, core.ErrAuth)
		assert.ErrorIs(t, errUnknown, core.ErrAuth)
		assert.Equal(t, errWrong.Error(), errUnknown.Error())
		assert.False(t, f.auth.IsAuthenticated(f.sess))
	})

	t.Run("failure clears a previous login", func(t *testing.T) {
		f := newFixture(t).loggedIn(t, "alice")
		require.Error(t, f.auth.Login(ctx, f.sess, "alice", "bad"))
		assert.False(t, f.auth.IsAuthenticated(f.sess))
	})

	t.Run("no lockout after repeated failures", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.auth.Register(ctx, "alice", "pw1"))
		for i := 0; i < 3; i++ {
			require.Error(t, f.auth.Login(ctx, f.sess, "alice", "bad"))
		}
		assert.NoError(t, f.auth.Login(ctx, f.sess, "alice", "pw1"))
	})

	t.Run("a 72 byte password must match exactly", func(t *testing.T) {
		f := newFixture(t)
		pw := strings.Repeat("a", 72)
		require.NoError(t, f.auth.Register(ctx, "bob", pw))

		assert.ErrorIs(t, f.auth.Login(ctx, f.sess, "bob", pw+"WRONG!"), core.ErrAuth)
		assert.ErrorIs(t, f.auth.Login(ctx, f.sess, "bob", pw[:71]), core.ErrAuth)
		assert.False(t, f.auth.IsAuthenticated(f.sess))
		assert.NoError(t, f.auth.Login(ctx, f.sess, "bob", pw))
	})

	t.Run("nil session", func(t *testing.T) {
		f := newFixture(t)
		assert.ErrorIs(t, f.auth.Login(ctx, nil, "alice", "pw1"), core.ErrAuth)
	})
}

func TestAuthService_Logout(t *testing.T) {
	f := newFixture(t).loggedIn(t, "alice")

	f.auth.Logout(f.sess)
	assert.False(t, f.auth.IsAuthenticated(f.sess))
	f.auth.Logout(f.sess)
	f.auth.Logout(nil)

	_, err := f.auth.CurrentUser(f.sess)
	assert.ErrorIs(t, err, core.ErrAuth)
	assert.EqualError(t, err, "no user logged in")
}

func TestAuthService_SwitchingUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t).loggedIn(t, "alice")
	_, err := f.finance.AddIncome(ctx, f.sess, d("10"), "gift")
	require.NoError(t, err)

	require.NoError(t, f.auth.Register(ctx, "bob", "pw2"))
	require.NoError(t, f.auth.Login(ctx, f.sess, "bob", "pw2"))
	bal, err := f.finance.CurrentBalance(f.sess)
	require.NoError(t, err)
	assert.True(t, bal.IsZero(), "bob must not see alice's ledger")
}
