package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet/internal/core"
	"wallet/internal/storage"
	"wallet/internal/storage/storetest"
)

func TestStoreContract(t *testing.T) {
	var path string
	storetest.Run(t, storetest.Factory{
		New: func(t *testing.T) storage.UserStore {
			path = filepath.Join(t.TempDir(), "users.json")
			s, err := Open(path, nil)
			require.NoError(t, err)
			return s
		},
		Reopen: func(t *testing.T) storage.UserStore {
			s, err := Open(path, nil)
			require.NoError(t, err)
			return s
		},
	})
}

func TestOpenCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "users.json")

	s, err := Open(path, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(data))

	snap, err := s.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestOpenEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

	_, err := Open(path, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(data))
}

func TestOpenCorruptFileResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := Open(path, nil)
	require.NoError(t, err)

	ok, err := s.Exists(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(data))
}

func TestPutKeepsOtherUsers(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.json")
	s, err := Open(path, nil)
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, storetest.SampleUser(t, "alice")))
	require.NoError(t, s.Put(ctx, storetest.SampleUser(t, "bob")))

	var raw map[string]json.RawMessage
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, 2)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must not be left behind")
}

func TestLegacyZeroBudgetIsIgnored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	doc := `{"alice":{"username":"alice","password_hash":"h","wallet":{"transactions":[],"budgets":{"food":"0","rent":"100"}}}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	s, err := Open(path, nil)
	require.NoError(t, err)

	u, err := s.Get(context.Background(), "alice")
	require.NoError(t, err)
	_, ok := u.Ledger.Budget("food")
	assert.False(t, ok)
	_, ok = u.Ledger.Budget("rent")
	assert.True(t, ok)
}

func TestMissingLedgerGetsEmptyOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"bob":{"password_hash":"h"}}`), 0o600))

	s, err := Open(path, nil)
	require.NoError(t, err)

	u, err := s.Get(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
	require.NotNil(t, u.Ledger)
	assert.True(t, u.Ledger.Balance().IsZero())
}

func TestFailedWriteLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.json")
	s, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, core.NewUser("alice", "hash")))

	// A directory in the way of the temp file makes every flush fail.
	require.NoError(t, os.Mkdir(path+".tmp", 0o755))

	t.Run("put of a new user", func(t *testing.T) {
		require.Error(t, s.Put(ctx, core.NewUser("carol", "hash")))
		exists, err := s.Exists(ctx, "carol")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("put over an existing user", func(t *testing.T) {
		before, err := s.Get(ctx, "alice")
		require.NoError(t, err)
		require.Error(t, s.Put(ctx, core.NewUser("alice", "other")))
		after, err := s.Get(ctx, "alice")
		require.NoError(t, err)
		assert.Same(t, before, after)
	})

	t.Run("remove", func(t *testing.T) {
		require.Error(t, s.Remove(ctx, "alice"))
		exists, err := s.Exists(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("snapshot", func(t *testing.T) {
		require.Error(t, s.SaveSnapshot(ctx, map[string]*core.User{"dave": core.NewUser("dave", "hash")}))
		exists, err := s.Exists(ctx, "dave")
		require.NoError(t, err)
		assert.False(t, exists)
		exists, err = s.Exists(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Len(t, onDisk, 1)
	assert.Contains(t, onDisk, "alice")
}
