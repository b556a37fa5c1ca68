// internal/api/books.go
package api

import (
	"context"
	"net/http"
	"net/url"

	"bookhub/internal/book"
	"bookhub/internal/wire"
)

// ListBooksParams filter and order the catalog listing. Zero values are
// omitted from the query; a Genre of "all" means no genre filter.
type ListBooksParams struct {
	Search string
	Genre  string
	Sort   string
}

// ListBooks fetches the catalog, filtered and sorted server-side.
func (c *Client) ListBooks(ctx context.Context, params ListBooksParams) ([]book.Book, error) {
	query := url.Values{}
	if params.Search != "" {
		query.Set("q", params.Search)
	}
	if params.Genre != "" && params.Genre != "all" {
		query.Set("genre", params.Genre)
	}
	if params.Sort != "" {
		query.Set("sort", params.Sort)
	}

	body, err := c.do(ctx, http.MethodGet, "/books", query, nil)
	if err != nil {
		return nil, err
	}
	return wire.DecodeBooks(unwrapList(body))
}

// GetBook fetches one book by id.
func (c *Client) GetBook(ctx context.Context, id string) (book.Book, error) {
	body, err := c.do(ctx, http.MethodGet, "/books/"+id, nil, nil)
	if err != nil {
		return book.Book{}, err
	}
	return wire.DecodeBook(unwrapObject(body, "book"))
}

// CreateBook submits a new book and returns the backend's canonical copy.
func (c *Client) CreateBook(ctx context.Context, draft wire.BookDraft) (book.Book, error) {
	payload, err := wire.EncodeBookDraft(draft)
	if err != nil {
		return book.Book{}, err
	}
	body, err := c.do(ctx, http.MethodPost, "/books", nil, payload)
	if err != nil {
		return book.Book{}, err
	}
	return wire.DecodeBook(unwrapObject(body, "book"))
}

// UpdateBook patches a book with only the fields set on the draft.
func (c *Client) UpdateBook(ctx context.Context, id string, draft wire.BookDraft) (book.Book, error) {
	payload, err := wire.EncodeBookDraft(draft)
	if err != nil {
		return book.Book{}, err
	}
	body, err := c.do(ctx, http.MethodPatch, "/books/"+id, nil, payload)
	if err != nil {
		return book.Book{}, err
	}
	return wire.DecodeBook(unwrapObject(body, "book"))
}

// DeleteBook removes a book from the catalog.
func (c *Client) DeleteBook(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/books/"+id, nil, nil)
	return err
}
