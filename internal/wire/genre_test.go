// internal/wire/genre_test.go
package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/internal/book"
)

func TestResolveGenreID(t *testing.T) {
	genres := []book.Genre{
		{ID: "g1", Name: "Fiction"},
		{ID: "g2", Name: "Dystopia"},
	}

	id, err := ResolveGenreID(genres, "fiction")
	require.NoError(t, err)
	assert.Equal(t, "g1", id)

	id, err = ResolveGenreID(genres, "FICTION")
	require.NoError(t, err)
	assert.Equal(t, "g1", id)

	_, err = ResolveGenreID(genres, "Mystery")
	assert.True(t, errors.Is(err, ErrGenreNotFound))

	_, err = ResolveGenreID(nil, "Fiction")
	assert.True(t, errors.Is(err, ErrGenreNotFound))
}
