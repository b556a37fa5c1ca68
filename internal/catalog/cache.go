// internal/catalog/cache.go
package catalog

import (
	"context"
	"fmt"
	"sync"

	"bookhub/internal/api"
	"bookhub/internal/book"
	"bookhub/internal/notify"
	"bookhub/internal/wire"
)

// BookService is the remote surface the cache depends on. *api.Client
// satisfies it.
type BookService interface {
	ListBooks(ctx context.Context, params api.ListBooksParams) ([]book.Book, error)
	CreateBook(ctx context.Context, draft wire.BookDraft) (book.Book, error)
	UpdateBook(ctx context.Context, id string, draft wire.BookDraft) (book.Book, error)
	DeleteBook(ctx context.Context, id string) error
	ListGenres(ctx context.Context) ([]book.Genre, error)
}

// Cache holds the fetched book list plus loading and error state, and merges
// mutation results back into the held list without re-fetching.
type Cache struct {
	mu       sync.Mutex
	svc      BookService
	notifier notify.Notifier

	books   []book.Book
	loading bool
	lastErr string

	params  api.ListBooksParams
	fetched bool
	// generation guards against out-of-order responses: only the latest
	// issued fetch may write its result back.
	generation uint64
}

// NewCache creates an empty cache around the given service.
func NewCache(svc BookService, n notify.Notifier) *Cache {
	return &Cache{svc: svc, notifier: n}
}

// SetParams re-fetches whenever the (search, genre, sort) tuple changes, and
// on the first call. Unchanged params are a no-op.
func (c *Cache) SetParams(ctx context.Context, params api.ListBooksParams) error {
	c.mu.Lock()
	if c.fetched && params == c.params {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.Fetch(ctx, params)
}

// Fetch queries the backend with the given params. On success the held list
// is replaced and the error cleared; on failure the previous list is kept,
// the error recorded, and a notification surfaced. A response that has been
// superseded by a newer Fetch is discarded without touching any state.
func (c *Cache) Fetch(ctx context.Context, params api.ListBooksParams) error {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.loading = true
	c.lastErr = ""
	c.params = params
	c.fetched = true
	c.mu.Unlock()

	books, err := c.svc.ListBooks(ctx, params)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		// A newer fetch owns the state now.
		return nil
	}
	c.loading = false
	if err != nil {
		c.lastErr = err.Error()
		c.notifier.Error("Error loading books", err.Error())
		return err
	}
	c.books = books
	return nil
}

// Refetch repeats the last query.
func (c *Cache) Refetch(ctx context.Context) error {
	c.mu.Lock()
	params := c.params
	c.mu.Unlock()
	return c.Fetch(ctx, params)
}

// BookPatch is a partial canonical book update. Nil fields are untouched.
// Genre, when set, is a display name resolved to its backend id before
// submission.
type BookPatch struct {
	Title           *string
	Writer          *string
	Publisher       *string
	PublicationYear *int
	Description     *string
	Price           *float64
	Stock           *int
	Genre           *string
}

func (p BookPatch) draft(genreID *string) wire.BookDraft {
	return wire.BookDraft{
		Title:           p.Title,
		Writer:          p.Writer,
		Publisher:       p.Publisher,
		PublicationYear: p.PublicationYear,
		Description:     p.Description,
		Price:           p.Price,
		Stock:           p.Stock,
		GenreID:         genreID,
	}
}

// CreateBook resolves the book's genre name, submits the create, and on
// success prepends the backend's copy to the held list.
func (c *Cache) CreateBook(ctx context.Context, b book.Book) (book.Book, error) {
	genreID, err := c.resolveGenre(ctx, b.Genre)
	if err != nil {
		c.notifier.Error("Failed to add book", err.Error())
		return book.Book{}, err
	}

	created, err := c.svc.CreateBook(ctx, wire.DraftFromBook(b, genreID))
	if err != nil {
		c.notifier.Error("Failed to add book", err.Error())
		return book.Book{}, err
	}

	c.mu.Lock()
	c.books = append([]book.Book{created}, c.books...)
	c.mu.Unlock()

	c.notifier.Success("Book added", fmt.Sprintf("%q has been added to the catalog", created.Title))
	return created, nil
}

// UpdateBook resolves a changed genre name, submits the patch, and on success
// replaces the matching book in the held list, preserving its position.
func (c *Cache) UpdateBook(ctx context.Context, id string, patch BookPatch) (book.Book, error) {
	var genreID *string
	if patch.Genre != nil {
		resolved, err := c.resolveGenre(ctx, *patch.Genre)
		if err != nil {
			c.notifier.Error("Failed to update book", err.Error())
			return book.Book{}, err
		}
		genreID = &resolved
	}

	updated, err := c.svc.UpdateBook(ctx, id, patch.draft(genreID))
	if err != nil {
		c.notifier.Error("Failed to update book", err.Error())
		return book.Book{}, err
	}

	c.mu.Lock()
	for i := range c.books {
		if c.books[i].ID == id {
			c.books[i] = updated
			break
		}
	}
	c.mu.Unlock()

	c.notifier.Success("Book updated", "Changes have been saved")
	return updated, nil
}

// DeleteBook submits the delete and on success removes the book from the
// held list.
func (c *Cache) DeleteBook(ctx context.Context, id string) error {
	if err := c.svc.DeleteBook(ctx, id); err != nil {
		c.notifier.Error("Failed to delete book", err.Error())
		return err
	}

	c.mu.Lock()
	for i := range c.books {
		if c.books[i].ID == id {
			c.books = append(c.books[:i], c.books[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	c.notifier.Success("Book removed", "The book has been deleted from the catalog")
	return nil
}

// Books returns a copy of the held list.
func (c *Cache) Books() []book.Book {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]book.Book(nil), c.books...)
}

// Loading reports whether the latest fetch is still outstanding.
func (c *Cache) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the message of the last failed fetch, or "".
func (c *Cache) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Cache) resolveGenre(ctx context.Context, name string) (string, error) {
	genres, err := c.svc.ListGenres(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch genres: %w", err)
	}
	id, err := wire.ResolveGenreID(genres, name)
	if err != nil {
		return "", fmt.Errorf("%w, please select a valid genre", err)
	}
	return id, nil
}
