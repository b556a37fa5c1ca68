// internal/devserver/server_test.go
package devserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := NewMemStore()
	store.Seed()
	srv := httptest.NewServer(NewServer(store, NewUsers(), nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func registerUser(t *testing.T, baseURL, email string) string {
	t.Helper()
	resp := postJSON(t, baseURL+"/auth/register", "", map[string]string{
		"email": email, "password": "secret", "username": "tester",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv.URL, "a@b.c")

	// Duplicate email is rejected.
	resp := postJSON(t, srv.URL+"/auth/register", "", map[string]string{"email": "a@b.c", "password": "x"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/auth/login", "", map[string]string{"email": "a@b.c", "password": "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["token"])

	resp = postJSON(t, srv.URL+"/auth/login", "", map[string]string{"email": "a@b.c", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestListBooksSearchFiltersByTitleAndWriter(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/books?q=gatsby")
	require.NoError(t, err)
	body := decodeBody(t, resp)

	data, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
	first := data[0].(map[string]any)
	assert.Equal(t, "The Great Gatsby", first["title"])
	assert.Equal(t, float64(12), first["stockQuantity"])

	// Writer matches too, case-insensitive.
	resp, err = http.Get(srv.URL + "/books?q=ORWELL")
	require.NoError(t, err)
	body = decodeBody(t, resp)
	data = body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "1984", data[0].(map[string]any)["title"])
}

func TestListBooksGenreFilterAndSort(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/books?genre=Fiction&sort=price")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	data := body["data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, "The Great Gatsby", data[0].(map[string]any)["title"])
	assert.Equal(t, "To Kill a Mockingbird", data[1].(map[string]any)["title"])
}

func TestMutationsRequireAuth(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/books", "", map[string]string{"title": "X"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "missing bearer token", body["error"])

	resp = postJSON(t, srv.URL+"/books", "bogus-token", map[string]string{"title": "X"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateBookValidatesGenre(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv.URL, "a@b.c")

	resp := postJSON(t, srv.URL+"/books", token, map[string]any{
		"title": "New Book", "writer": "Someone", "genre_id": "nope",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/books", token, map[string]any{"writer": "Someone"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateTransactionDecrementsStock(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv.URL, "a@b.c")

	resp, err := http.Get(srv.URL + "/books?q=gatsby")
	require.NoError(t, err)
	data := decodeBody(t, resp)["data"].([]any)
	bookID := data[0].(map[string]any)["id"].(string)

	resp = postJSON(t, srv.URL+"/transactions", token, map[string]any{
		"items": []map[string]any{{"book_id": bookID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tx := decodeBody(t, resp)["transaction"].(map[string]any)
	assert.Equal(t, "completed", tx["status"])
	assert.InDelta(t, 2*10.99, tx["totalAmount"].(float64), 1e-9)

	resp, err = http.Get(srv.URL + "/books?q=gatsby")
	require.NoError(t, err)
	data = decodeBody(t, resp)["data"].([]any)
	assert.Equal(t, float64(10), data[0].(map[string]any)["stockQuantity"])
}

func TestCreateTransactionRejectsOverstock(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv.URL, "a@b.c")

	resp, err := http.Get(srv.URL + "/books?q=pride")
	require.NoError(t, err)
	data := decodeBody(t, resp)["data"].([]any)
	bookID := data[0].(map[string]any)["id"].(string)

	resp = postJSON(t, srv.URL+"/transactions", token, map[string]any{
		"items": []map[string]any{{"book_id": bookID, "quantity": 100}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestTransactionsScopedToUser(t *testing.T) {
	srv := newTestServer(t)
	tokenA := registerUser(t, srv.URL, "a@b.c")
	tokenB := registerUser(t, srv.URL, "b@b.c")

	resp, err := http.Get(srv.URL + "/books?q=1984")
	require.NoError(t, err)
	data := decodeBody(t, resp)["data"].([]any)
	bookID := data[0].(map[string]any)["id"].(string)

	resp = postJSON(t, srv.URL+"/transactions", tokenA, map[string]any{
		"items": []map[string]any{{"book_id": bookID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/transactions", nil)
	req.Header.Set("Authorization", "Bearer "+tokenB)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Empty(t, decodeBody(t, resp)["data"].([]any))
}
