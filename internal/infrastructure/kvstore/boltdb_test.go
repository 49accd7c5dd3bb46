package kvstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "taskdesk.db")

	store, err := Open(path, "")
	require.NoError(t, err)

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Put("report:last", []byte("2026-03-02")))
	assert.NoError(t, store.Ping())
	require.NoError(t, store.Close())

	reopened, err := Open(path, "")
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Get("report:last")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", string(got))

	require.NoError(t, reopened.Put("report:last", []byte("2026-03-03")))
	got, err = reopened.Get("report:last")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-03", string(got))
}

func TestStore_ClosedStoreReportsError(t *testing.T) {
	var store *Store
	assert.Error(t, store.Ping())
	assert.NoError(t, store.Close())
}
