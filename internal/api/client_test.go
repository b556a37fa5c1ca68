// internal/api/client_test.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/internal/book"
	"bookhub/internal/session"
	"bookhub/internal/storage"
	"bookhub/internal/wire"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *session.Store, *int) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sessions := session.NewStore(storage.NewMemStore())
	unauthorized := 0
	client, err := New(Config{
		BaseURL:        srv.URL,
		Sessions:       sessions,
		OnUnauthorized: func() { unauthorized++ },
	})
	require.NoError(t, err)
	return client, sessions, &unauthorized
}

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth string
	client, sessions, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))

	_, err := client.ListBooks(context.Background(), ListBooksParams{})
	require.NoError(t, err)
	assert.Empty(t, gotAuth)

	require.NoError(t, sessions.Set(book.Session{User: book.User{ID: "u1"}, Token: "tok-123"}))
	_, err = client.ListBooks(context.Background(), ListBooksParams{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestListBooksEnvelopeAndBare(t *testing.T) {
	payload := `{"id": "b1", "title": "1984", "stockQuantity": 3, "price": "9.99", "genre": {"id": "g1", "name": "Dystopia"}}`

	for name, body := range map[string]string{
		"enveloped": `{"data": [` + payload + `], "meta": {"count": 1}}`,
		"bare":      `[` + payload + `]`,
	} {
		t.Run(name, func(t *testing.T) {
			client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))

			books, err := client.ListBooks(context.Background(), ListBooksParams{})
			require.NoError(t, err)
			require.Len(t, books, 1)
			assert.Equal(t, "1984", books[0].Title)
			assert.Equal(t, 3, books[0].Stock)
			assert.Equal(t, 9.99, books[0].Price)
			assert.Equal(t, "Dystopia", books[0].Genre)
		})
	}
}

func TestGetBookEnvelopeAndBare(t *testing.T) {
	payload := `{"id": "b1", "title": "1984"}`

	for name, body := range map[string]string{
		"enveloped": `{"book": ` + payload + `}`,
		"bare":      payload,
	} {
		t.Run(name, func(t *testing.T) {
			client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))

			b, err := client.GetBook(context.Background(), "b1")
			require.NoError(t, err)
			assert.Equal(t, "1984", b.Title)
		})
	}
}

func TestListBooksQueryParams(t *testing.T) {
	var got string
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.RawQuery
		w.Write([]byte(`[]`))
	}))

	_, err := client.ListBooks(context.Background(), ListBooksParams{Search: "gatsby", Genre: "Fiction", Sort: "title"})
	require.NoError(t, err)
	assert.Contains(t, got, "q=gatsby")
	assert.Contains(t, got, "genre=Fiction")
	assert.Contains(t, got, "sort=title")

	// "all" means no genre filter.
	_, err = client.ListBooks(context.Background(), ListBooksParams{Genre: "all"})
	require.NoError(t, err)
	assert.NotContains(t, got, "genre=")
}

func TestUnauthorizedClearsSessionAndFiresHook(t *testing.T) {
	client, sessions, unauthorized := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid or expired token"}`))
	}))
	require.NoError(t, sessions.Set(book.Session{User: book.User{ID: "u1"}, Token: "stale"}))

	_, err := client.ListTransactions(context.Background())
	require.Error(t, err)
	assert.True(t, Unauthorized(err))

	_, active := sessions.Current()
	assert.False(t, active)
	assert.Equal(t, 1, *unauthorized)
}

// stuckSessions always holds a token and refuses to let go of it.
type stuckSessions struct{}

func (stuckSessions) Token() string { return "stale" }
func (stuckSessions) Clear() error  { return errors.New("storage unwritable") }

func TestUnauthorizedSurfacesFailedSessionClear(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid or expired token"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{BaseURL: srv.URL, Sessions: stuckSessions{}})
	require.NoError(t, err)

	_, err = client.ListTransactions(context.Background())
	require.Error(t, err)
	assert.True(t, Unauthorized(err))
	assert.Contains(t, err.Error(), "invalid or expired token")
	assert.Contains(t, err.Error(), "clear session: storage unwritable")
}

func TestServerErrorMessagePropagates(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error": "title and writer are required"}`))
	}))

	_, err := client.CreateBook(context.Background(), wire.BookDraft{})
	require.Error(t, err)
	apiErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "title and writer are required", apiErr.Message)
}

func TestNetworkErrorIsUniform(t *testing.T) {
	sessions := session.NewStore(storage.NewMemStore())
	client, err := New(Config{BaseURL: "http://127.0.0.1:1", Sessions: sessions})
	require.NoError(t, err)

	_, err = client.ListBooks(context.Background(), ListBooksParams{})
	require.Error(t, err)
	apiErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Zero(t, apiErr.Status)
	assert.Contains(t, apiErr.Message, "network error")
}

func TestLoginDecodesSession(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a@b.c", req["email"])
		w.Write([]byte(`{"user": {"id": "u1", "email": "a@b.c"}, "token": "tok"}`))
	}))

	sess, err := client.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.User.ID)
	assert.Equal(t, "tok", sess.Token)
}

func TestCreateTransactionUnwrap(t *testing.T) {
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req wire.TransactionDraft
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Items, 1)
		assert.Equal(t, "b1", req.Items[0].BookID)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"transaction": {"id": "t1", "userId": "u1", "items": [{"book_id": "b1", "quantity": 2}], "totalAmount": 20, "status": "completed"}}`))
	}))

	tx, err := client.CreateTransaction(context.Background(), wire.TransactionDraft{
		Items: []wire.TransactionItem{{BookID: "b1", Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", tx.ID)
	assert.Equal(t, 20.0, tx.TotalAmount)
}
