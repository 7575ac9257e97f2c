package auth

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStoreCreateUserRejectsDuplicateUsername(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = store.CreateUser("alice", "hash")
	require.NoError(t, err)

	_, err = store.CreateUser("alice", "otherhash")
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestFileStorePersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	created, err := store.CreateUser("bob", "hash")
	require.NoError(t, err)
	require.NoError(t, store.IncrementWins("bob"))

	reloaded, err := NewFileStore(path)
	require.NoError(t, err)

	u, ok := reloaded.UserByUsername("bob")
	require.True(t, ok)
	require.Equal(t, created.ID, u.ID)
	require.Equal(t, 1, u.Wins)
}

func TestFileStoreUserByID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	created, err := store.CreateUser("carol", "hash")
	require.NoError(t, err)

	u, ok := store.UserByID(created.ID)
	require.True(t, ok)
	require.Equal(t, "carol", u.Username)

	_, ok = store.UserByID("does-not-exist")
	require.False(t, ok)
}

func TestFileStoreTopSortsByWinsThenUsername(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	for _, name := range []string{"zeb", "amy", "bob"} {
		_, err := store.CreateUser(name, "hash")
		require.NoError(t, err)
	}
	require.NoError(t, store.IncrementWins("zeb"))
	require.NoError(t, store.IncrementWins("zeb"))
	require.NoError(t, store.IncrementWins("bob"))

	top := store.Top(10)
	require.Len(t, top, 3)
	require.Equal(t, "zeb", top[0].Username)
	require.Equal(t, "bob", top[1].Username)
	require.Equal(t, "amy", top[2].Username)
}
