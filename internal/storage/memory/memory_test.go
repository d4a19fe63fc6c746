package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet/internal/core"
	"wallet/internal/storage"
	"wallet/internal/storage/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, storetest.Factory{
		New: func(t *testing.T) storage.UserStore { return New() },
	})
}

func TestStoreKeepsReferences(t *testing.T) {
	s := New()
	u := core.NewUser("alice", "h")
	require.NoError(t, s.Put(context.Background(), u))

	got, err := s.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Same(t, u, got)
}
