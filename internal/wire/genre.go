// internal/wire/genre.go
package wire

import (
	"errors"
	"fmt"
	"strings"

	"bookhub/internal/book"
)

// ErrGenreNotFound is returned when a genre display name matches nothing in
// the backend's genre list.
var ErrGenreNotFound = errors.New("genre not found")

// ResolveGenreID maps a human-entered genre name to its backend identifier.
// Matching is a case-insensitive exact comparison over the supplied list.
func ResolveGenreID(genres []book.Genre, name string) (string, error) {
	for _, g := range genres {
		if strings.EqualFold(g.Name, name) {
			return g.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrGenreNotFound, name)
}
