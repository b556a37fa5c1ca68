// internal/catalog/cache_test.go
package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/internal/api"
	"bookhub/internal/book"
	"bookhub/internal/notify"
	"bookhub/internal/wire"
)

// fakeService scripts the remote surface for cache tests.
type fakeService struct {
	mu         sync.Mutex
	listCalls  int
	lastParams api.ListBooksParams
	books      []book.Book
	listErr    error
	// blockList, when set, delays the next ListBooks call until released.
	blockList chan struct{}

	genres []book.Genre

	created     book.Book
	createErr   error
	createDraft *wire.BookDraft

	updated     book.Book
	updateDraft *wire.BookDraft

	deleteErr error
}

func (f *fakeService) ListBooks(_ context.Context, params api.ListBooksParams) ([]book.Book, error) {
	f.mu.Lock()
	f.listCalls++
	f.lastParams = params
	block := f.blockList
	f.blockList = nil
	books := append([]book.Book(nil), f.books...)
	err := f.listErr
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return books, nil
}

func (f *fakeService) CreateBook(_ context.Context, draft wire.BookDraft) (book.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createDraft = &draft
	if f.createErr != nil {
		return book.Book{}, f.createErr
	}
	return f.created, nil
}

func (f *fakeService) UpdateBook(_ context.Context, id string, draft wire.BookDraft) (book.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateDraft = &draft
	return f.updated, nil
}

func (f *fakeService) DeleteBook(_ context.Context, id string) error {
	return f.deleteErr
}

func (f *fakeService) ListGenres(_ context.Context) ([]book.Genre, error) {
	return f.genres, nil
}

func TestFetchReplacesListAndClearsError(t *testing.T) {
	svc := &fakeService{books: []book.Book{{ID: "b1", Title: "1984"}}}
	cache := NewCache(svc, notify.Discard{})

	require.NoError(t, cache.Fetch(context.Background(), api.ListBooksParams{Search: "gatsby"}))
	assert.Equal(t, api.ListBooksParams{Search: "gatsby"}, svc.lastParams)
	require.Len(t, cache.Books(), 1)
	assert.Empty(t, cache.Err())
	assert.False(t, cache.Loading())
}

func TestFetchFailureKeepsPreviousList(t *testing.T) {
	svc := &fakeService{books: []book.Book{{ID: "b1"}}}
	rec := &notify.Recorder{}
	cache := NewCache(svc, rec)
	require.NoError(t, cache.Fetch(context.Background(), api.ListBooksParams{}))

	svc.listErr = errors.New("backend down")
	err := cache.Fetch(context.Background(), api.ListBooksParams{Search: "x"})
	require.Error(t, err)

	assert.Len(t, cache.Books(), 1, "previous list survives a failed fetch")
	assert.Equal(t, "backend down", cache.Err())

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, "Error loading books", last.Title)
}

func TestStaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	svc := &fakeService{
		books:     []book.Book{{ID: "stale"}},
		blockList: release,
	}
	cache := NewCache(svc, notify.Discard{})

	done := make(chan error, 1)
	go func() {
		done <- cache.Fetch(context.Background(), api.ListBooksParams{Search: "old"})
	}()

	// Wait for the blocked fetch to be issued before superseding it.
	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return svc.listCalls == 1
	}, time.Second, time.Millisecond)

	svc.mu.Lock()
	svc.books = []book.Book{{ID: "fresh"}}
	svc.mu.Unlock()
	require.NoError(t, cache.Fetch(context.Background(), api.ListBooksParams{Search: "new"}))

	close(release)
	require.NoError(t, <-done)

	books := cache.Books()
	require.Len(t, books, 1)
	assert.Equal(t, "fresh", books[0].ID, "the superseded response must not win")
}

func TestSetParamsSkipsUnchangedTuple(t *testing.T) {
	svc := &fakeService{}
	cache := NewCache(svc, notify.Discard{})

	params := api.ListBooksParams{Search: "gatsby", Sort: "title"}
	require.NoError(t, cache.SetParams(context.Background(), params))
	require.NoError(t, cache.SetParams(context.Background(), params))
	assert.Equal(t, 1, svc.listCalls)

	require.NoError(t, cache.SetParams(context.Background(), api.ListBooksParams{Search: "orwell"}))
	assert.Equal(t, 2, svc.listCalls)
}

func TestCreateBookResolvesGenreAndPrepends(t *testing.T) {
	svc := &fakeService{
		books:   []book.Book{{ID: "b1"}},
		genres:  []book.Genre{{ID: "g1", Name: "Fiction"}},
		created: book.Book{ID: "b2", Title: "X", Genre: "Fiction"},
	}
	cache := NewCache(svc, notify.Discard{})
	require.NoError(t, cache.Fetch(context.Background(), api.ListBooksParams{}))

	created, err := cache.CreateBook(context.Background(), book.Book{
		Title: "X", Writer: "Y", Genre: "Fiction", Price: 1, Stock: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "b2", created.ID)

	require.NotNil(t, svc.createDraft)
	require.NotNil(t, svc.createDraft.GenreID)
	assert.Equal(t, "g1", *svc.createDraft.GenreID)

	books := cache.Books()
	require.Len(t, books, 2)
	assert.Equal(t, "b2", books[0].ID, "new book goes to the front")
}

func TestCreateBookUnknownGenre(t *testing.T) {
	svc := &fakeService{genres: []book.Genre{{ID: "g1", Name: "Fiction"}}}
	rec := &notify.Recorder{}
	cache := NewCache(svc, rec)

	_, err := cache.CreateBook(context.Background(), book.Book{Title: "X", Genre: "Mystery"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, wire.ErrGenreNotFound))
	assert.Nil(t, svc.createDraft, "no create request reaches the backend")

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, "error", last.Level)
}

func TestUpdateBookReplacesInPlace(t *testing.T) {
	svc := &fakeService{
		books:   []book.Book{{ID: "b1"}, {ID: "b2", Title: "old"}, {ID: "b3"}},
		updated: book.Book{ID: "b2", Title: "new"},
	}
	cache := NewCache(svc, notify.Discard{})
	require.NoError(t, cache.Fetch(context.Background(), api.ListBooksParams{}))

	title := "new"
	_, err := cache.UpdateBook(context.Background(), "b2", BookPatch{Title: &title})
	require.NoError(t, err)

	books := cache.Books()
	require.Len(t, books, 3)
	assert.Equal(t, "b2", books[1].ID, "position preserved")
	assert.Equal(t, "new", books[1].Title)

	require.NotNil(t, svc.updateDraft)
	assert.Nil(t, svc.updateDraft.GenreID, "no genre resolution without a genre change")
}

func TestDeleteBookRemovesFromList(t *testing.T) {
	svc := &fakeService{books: []book.Book{{ID: "b1"}, {ID: "b2"}}}
	cache := NewCache(svc, notify.Discard{})
	require.NoError(t, cache.Fetch(context.Background(), api.ListBooksParams{}))

	require.NoError(t, cache.DeleteBook(context.Background(), "b1"))

	books := cache.Books()
	require.Len(t, books, 1)
	assert.Equal(t, "b2", books[0].ID)
}

func TestDeleteBookFailureKeepsList(t *testing.T) {
	svc := &fakeService{
		books:     []book.Book{{ID: "b1"}},
		deleteErr: errors.New("forbidden"),
	}
	cache := NewCache(svc, notify.Discard{})
	require.NoError(t, cache.Fetch(context.Background(), api.ListBooksParams{}))

	require.Error(t, cache.DeleteBook(context.Background(), "b1"))
	assert.Len(t, cache.Books(), 1)
}
