// internal/devserver/server.go
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// Server is a local stand-in for the storefront backend. It speaks the same
// wire dialect: camelCase read payloads, snake_case write payloads, and
// enveloped responses.
type Server struct {
	store  Store
	users  *Users
	logger *slog.Logger
}

func NewServer(store Store, users *Users, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{store: store, users: users, logger: logger}
}

// Handler builds the full route table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/register", s.handleRegister)

	r.Get("/books", s.handleListBooks)
	r.Get("/books/{id}", s.handleGetBook)
	r.Get("/genre", s.handleListGenres)
	r.Get("/genre/{id}", s.handleGetGenre)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/books", s.handleCreateBook)
		r.Patch("/books/{id}", s.handleUpdateBook)
		r.Delete("/books/{id}", s.handleDeleteBook)
		r.Post("/genre", s.handleCreateGenre)
		r.Patch("/genre/{id}", s.handleUpdateGenre)
		r.Delete("/genre/{id}", s.handleDeleteGenre)
		r.Get("/transactions", s.handleListTransactions)
		r.Get("/transactions/{id}", s.handleGetTransaction)
		r.Post("/transactions", s.handleCreateTransaction)
	})

	return r
}

type contextKey string

const userKey contextKey = "user"

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, ok := s.users.Verify(token)
		if !ok {
			s.writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func requestUser(r *http.Request) User {
	user, _ := r.Context().Value(userKey).(User)
	return user
}

// ---- auth -----------------------------------------------------------------

type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := s.users.Login(req.Email, req.Password)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"user":  userResponse{ID: user.ID, Email: user.Email, Username: user.Username},
		"token": token,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		s.writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, token, err := s.users.Register(req.Email, req.Password, req.Username)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrEmailTaken) {
			status = http.StatusConflict
		}
		s.writeError(w, status, err.Error())
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"user":  userResponse{ID: user.ID, Email: user.Email, Username: user.Username},
		"token": token,
	})
}

// ---- books ----------------------------------------------------------------

type genreResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type bookResponse struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Writer          string         `json:"writer"`
	Publisher       string         `json:"publisher,omitempty"`
	PublicationYear int            `json:"publicationYear,omitempty"`
	Description     string         `json:"description,omitempty"`
	Price           float64        `json:"price"`
	StockQuantity   int            `json:"stockQuantity"`
	Genre           *genreResponse `json:"genre,omitempty"`
	GenreID         string         `json:"genreId,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func (s *Server) bookToResponse(ctx context.Context, b Book) bookResponse {
	resp := bookResponse{
		ID:              b.ID,
		Title:           b.Title,
		Writer:          b.Writer,
		Publisher:       b.Publisher,
		PublicationYear: b.PublicationYear,
		Description:     b.Description,
		Price:           b.Price,
		StockQuantity:   b.Stock,
		GenreID:         b.GenreID,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	if b.GenreID != "" {
		if g, err := s.store.GetGenre(ctx, b.GenreID); err == nil {
			resp.Genre = &genreResponse{ID: g.ID, Name: g.Name}
		}
	}
	return resp
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	books, err := s.store.ListBooks(r.Context(), q.Get("q"), q.Get("genre"), q.Get("sort"))
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	data := make([]bookResponse, 0, len(books))
	for _, b := range books {
		data = append(data, s.bookToResponse(r.Context(), b))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"data": data,
		"meta": map[string]int{"count": len(data)},
	})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	b, err := s.store.GetBook(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"book": s.bookToResponse(r.Context(), b)})
}

type bookWriteRequest struct {
	Title           *string  `json:"title"`
	Writer          *string  `json:"writer"`
	Publisher       *string  `json:"publisher"`
	PublicationYear *int     `json:"publication_year"`
	Description     *string  `json:"description"`
	Price           *float64 `json:"price"`
	StockQuantity   *int     `json:"stock_quantity"`
	GenreID         *string  `json:"genre_id"`
}

func (s *Server) validateGenreID(ctx context.Context, id string) error {
	_, err := s.store.GetGenre(ctx, id)
	return err
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req bookWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == nil || *req.Title == "" || req.Writer == nil || *req.Writer == "" {
		s.writeError(w, http.StatusUnprocessableEntity, "title and writer are required")
		return
	}
	if req.Price != nil && *req.Price < 0 {
		s.writeError(w, http.StatusUnprocessableEntity, "price must not be negative")
		return
	}
	if req.StockQuantity != nil && *req.StockQuantity < 0 {
		s.writeError(w, http.StatusUnprocessableEntity, "stock_quantity must not be negative")
		return
	}

	b := Book{Title: *req.Title, Writer: *req.Writer}
	if req.Publisher != nil {
		b.Publisher = *req.Publisher
	}
	if req.PublicationYear != nil {
		b.PublicationYear = *req.PublicationYear
	}
	if req.Description != nil {
		b.Description = *req.Description
	}
	if req.Price != nil {
		b.Price = *req.Price
	}
	if req.StockQuantity != nil {
		b.Stock = *req.StockQuantity
	}
	if req.GenreID != nil {
		if err := s.validateGenreID(r.Context(), *req.GenreID); err != nil {
			s.writeError(w, http.StatusUnprocessableEntity, "unknown genre_id")
			return
		}
		b.GenreID = *req.GenreID
	}

	created, err := s.store.CreateBook(r.Context(), b)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"book": s.bookToResponse(r.Context(), created)})
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	var req bookWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.GenreID != nil {
		if err := s.validateGenreID(r.Context(), *req.GenreID); err != nil {
			s.writeError(w, http.StatusUnprocessableEntity, "unknown genre_id")
			return
		}
	}

	updated, err := s.store.UpdateBook(r.Context(), chi.URLParam(r, "id"), BookUpdate{
		Title:           req.Title,
		Writer:          req.Writer,
		Publisher:       req.Publisher,
		PublicationYear: req.PublicationYear,
		Description:     req.Description,
		Price:           req.Price,
		Stock:           req.StockQuantity,
		GenreID:         req.GenreID,
	})
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"book": s.bookToResponse(r.Context(), updated)})
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteBook(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- genres ---------------------------------------------------------------

func (s *Server) handleListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.store.ListGenres(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data := make([]genreResponse, 0, len(genres))
	for _, g := range genres {
		data = append(data, genreResponse{ID: g.ID, Name: g.Name})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) handleGetGenre(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.GetGenre(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"genre": genreResponse{ID: g.ID, Name: g.Name}})
}

func (s *Server) readGenreName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	if req.Name == "" {
		s.writeError(w, http.StatusUnprocessableEntity, "name is required")
		return "", false
	}
	return req.Name, true
}

func (s *Server) handleCreateGenre(w http.ResponseWriter, r *http.Request) {
	name, ok := s.readGenreName(w, r)
	if !ok {
		return
	}
	g, err := s.store.CreateGenre(r.Context(), name)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"genre": genreResponse{ID: g.ID, Name: g.Name}})
}

func (s *Server) handleUpdateGenre(w http.ResponseWriter, r *http.Request) {
	name, ok := s.readGenreName(w, r)
	if !ok {
		return
	}
	g, err := s.store.UpdateGenre(r.Context(), chi.URLParam(r, "id"), name)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"genre": genreResponse{ID: g.ID, Name: g.Name}})
}

func (s *Server) handleDeleteGenre(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteGenre(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- transactions ---------------------------------------------------------

type transactionItemResponse struct {
	BookID   string  `json:"book_id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type transactionResponse struct {
	ID          string                    `json:"id"`
	UserID      string                    `json:"userId"`
	Items       []transactionItemResponse `json:"items"`
	TotalAmount float64                   `json:"totalAmount"`
	Status      string                    `json:"status"`
	CreatedAt   time.Time                 `json:"createdAt"`
	UpdatedAt   time.Time                 `json:"updatedAt"`
}

func transactionToResponse(tx Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          tx.ID,
		UserID:      tx.UserID,
		TotalAmount: tx.TotalAmount,
		Status:      tx.Status,
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	}
	for _, item := range tx.Items {
		resp.Items = append(resp.Items, transactionItemResponse{
			BookID:   item.BookID,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}
	return resp
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.store.ListTransactions(r.Context(), requestUser(r).ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		data = append(data, transactionToResponse(tx))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	txs, err := s.store.ListTransactions(r.Context(), requestUser(r).ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	for _, tx := range txs {
		if tx.ID == id {
			s.writeJSON(w, http.StatusOK, map[string]any{"transaction": transactionToResponse(tx)})
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "transaction not found")
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []struct {
			BookID   string `json:"book_id"`
			Quantity int    `json:"quantity"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items := make([]TransactionItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, TransactionItem{BookID: item.BookID, Quantity: item.Quantity})
	}

	tx, err := s.store.CreateTransaction(r.Context(), requestUser(r).ID, items)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, ErrInsufficientStock):
			s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			s.writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"transaction": transactionToResponse(tx)})
}

// ---- response helpers -----------------------------------------------------

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "method", r.Method, "url", r.URL.String(), "error", err)
	s.writeError(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

// storeError maps store sentinel errors onto HTTP statuses.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.serverError(w, r, err)
}
