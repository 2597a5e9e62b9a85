package eventstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "e1", []byte(`{"eventId":"e1"}`)))

	body, err := s.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"eventId":"e1"}`), body)
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutEmptyID(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.Put(context.Background(), "", []byte("x")))
}

func TestPutIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "e1", []byte("body")))
	require.NoError(t, s.Put(ctx, "e1", []byte("body")))

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHas(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ok, err := s.Has(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "e1", []byte("x")))
	ok, err = s.Has(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIterate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "b", []byte("2")))
	require.NoError(t, s.Put(ctx, "a", []byte("1")))

	seen := make(map[string]string)
	require.NoError(t, s.Iterate(ctx, func(id string, body []byte) error {
		seen[id] = string(body)
		return nil
	}))
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, seen)
}

func TestReopenIsDurable(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenSQLite(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "e1", []byte("persisted")))
	require.NoError(t, s.Close())

	s2, err := OpenSQLite(dir)
	require.NoError(t, err)
	defer s2.Close()

	body, err := s2.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), body)
}

func TestStoreDirectoryLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSQLite(dir)
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, filepath.Join(dir, DirName, "store.db"))
}
