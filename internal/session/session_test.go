// internal/session/session_test.go
package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/internal/book"
	"bookhub/internal/storage"
)

func TestSetPersistsAcrossRestart(t *testing.T) {
	st := storage.NewMemStore()
	s := NewStore(st)

	_, ok := s.Current()
	assert.False(t, ok)
	assert.Empty(t, s.Token())

	sess := book.Session{User: book.User{ID: "u1", Email: "a@b.c"}, Token: "tok"}
	require.NoError(t, s.Set(sess))

	restored := NewStore(st)
	got, ok := restored.Current()
	require.True(t, ok)
	assert.Equal(t, sess, got)
	assert.Equal(t, "tok", restored.Token())
}

func TestClearRemovesPersistedEntry(t *testing.T) {
	st := storage.NewMemStore()
	s := NewStore(st)
	require.NoError(t, s.Set(book.Session{User: book.User{ID: "u1"}, Token: "tok"}))

	require.NoError(t, s.Clear())
	_, ok := s.Current()
	assert.False(t, ok)

	restored := NewStore(st)
	_, ok = restored.Current()
	assert.False(t, ok)
}

func TestCorruptPersistedSessionDiscarded(t *testing.T) {
	st := storage.NewMemStore()
	require.NoError(t, st.Set("session", []byte("not json at all")))

	s := NewStore(st)
	_, ok := s.Current()
	assert.False(t, ok)

	_, exists, err := st.Get("session")
	require.NoError(t, err)
	assert.False(t, exists, "corrupt entry is deleted")
}

func TestSessionWithoutTokenDiscarded(t *testing.T) {
	st := storage.NewMemStore()
	require.NoError(t, st.Set("session", []byte(`{"user": {"id": "u1"}}`)))

	s := NewStore(st)
	_, ok := s.Current()
	assert.False(t, ok)
}
