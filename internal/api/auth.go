// internal/api/auth.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"bookhub/internal/book"
)

// Login exchanges credentials for a session. The caller is responsible for
// persisting the returned session.
func (c *Client) Login(ctx context.Context, email, password string) (book.Session, error) {
	payload := map[string]string{"email": email, "password": password}
	body, err := c.do(ctx, http.MethodPost, "/auth/login", nil, payload)
	if err != nil {
		return book.Session{}, err
	}
	return decodeSession(body)
}

// Register creates an account and returns its initial session.
func (c *Client) Register(ctx context.Context, email, password, username string) (book.Session, error) {
	payload := map[string]string{"email": email, "password": password, "username": username}
	body, err := c.do(ctx, http.MethodPost, "/auth/register", nil, payload)
	if err != nil {
		return book.Session{}, err
	}
	return decodeSession(body)
}

func decodeSession(body []byte) (book.Session, error) {
	var resp struct {
		User  book.User `json:"user"`
		Token string    `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return book.Session{}, fmt.Errorf("decode auth response: %w", err)
	}
	if resp.Token == "" {
		return book.Session{}, &Error{Message: "auth response missing token"}
	}
	return book.Session{User: resp.User, Token: resp.Token}, nil
}
