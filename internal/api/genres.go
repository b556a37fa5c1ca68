// internal/api/genres.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"bookhub/internal/book"
)

// ListGenres fetches all genres.
func (c *Client) ListGenres(ctx context.Context) ([]book.Genre, error) {
	body, err := c.do(ctx, http.MethodGet, "/genre", nil, nil)
	if err != nil {
		return nil, err
	}
	var genres []book.Genre
	if err := json.Unmarshal(unwrapList(body), &genres); err != nil {
		return nil, fmt.Errorf("decode genre list: %w", err)
	}
	return genres, nil
}

// GetGenre fetches one genre by id.
func (c *Client) GetGenre(ctx context.Context, id string) (book.Genre, error) {
	body, err := c.do(ctx, http.MethodGet, "/genre/"+id, nil, nil)
	if err != nil {
		return book.Genre{}, err
	}
	return decodeGenre(body)
}

// CreateGenre adds a new genre.
func (c *Client) CreateGenre(ctx context.Context, name string) (book.Genre, error) {
	body, err := c.do(ctx, http.MethodPost, "/genre", nil, map[string]string{"name": name})
	if err != nil {
		return book.Genre{}, err
	}
	return decodeGenre(body)
}

// UpdateGenre renames a genre.
func (c *Client) UpdateGenre(ctx context.Context, id, name string) (book.Genre, error) {
	body, err := c.do(ctx, http.MethodPatch, "/genre/"+id, nil, map[string]string{"name": name})
	if err != nil {
		return book.Genre{}, err
	}
	return decodeGenre(body)
}

// DeleteGenre removes a genre.
func (c *Client) DeleteGenre(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/genre/"+id, nil, nil)
	return err
}

func decodeGenre(body []byte) (book.Genre, error) {
	var g book.Genre
	if err := json.Unmarshal(unwrapObject(body, "genre"), &g); err != nil {
		return book.Genre{}, fmt.Errorf("decode genre: %w", err)
	}
	return g, nil
}
