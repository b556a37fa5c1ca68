// internal/devserver/store.go
package devserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Book is the server-side book record. The genre is stored by id.
type Book struct {
	ID              string
	Title           string
	Writer          string
	Publisher       string
	PublicationYear int
	Description     string
	Price           float64
	Stock           int
	GenreID         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BookUpdate carries a partial book update; nil fields are untouched.
type BookUpdate struct {
	Title           *string
	Writer          *string
	Publisher       *string
	PublicationYear *int
	Description     *string
	Price           *float64
	Stock           *int
	GenreID         *string
}

type Genre struct {
	ID   string
	Name string
}

// TransactionItem is one purchased line with the unit price frozen at
// purchase time.
type TransactionItem struct {
	BookID   string
	Quantity int
	Price    float64
}

type Transaction struct {
	ID          string
	UserID      string
	Items       []TransactionItem
	TotalAmount float64
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store is the persistence surface behind the development backend. Two
// implementations exist: in-memory (default) and Postgres.
type Store interface {
	ListBooks(ctx context.Context, search, genreName, sortKey string) ([]Book, error)
	GetBook(ctx context.Context, id string) (Book, error)
	CreateBook(ctx context.Context, b Book) (Book, error)
	UpdateBook(ctx context.Context, id string, update BookUpdate) (Book, error)
	DeleteBook(ctx context.Context, id string) error

	ListGenres(ctx context.Context) ([]Genre, error)
	GetGenre(ctx context.Context, id string) (Genre, error)
	CreateGenre(ctx context.Context, name string) (Genre, error)
	UpdateGenre(ctx context.Context, id, name string) (Genre, error)
	DeleteGenre(ctx context.Context, id string) error

	// CreateTransaction validates stock for every line, decrements it, and
	// records the purchase with the current unit prices.
	CreateTransaction(ctx context.Context, userID string, items []TransactionItem) (Transaction, error)
	ListTransactions(ctx context.Context, userID string) ([]Transaction, error)
}

// MemStore is the in-memory Store used by default and by tests.
type MemStore struct {
	mu           sync.Mutex
	books        []Book
	genres       []Genre
	transactions []Transaction
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

// Seed loads a handful of classics so a fresh devserver has something to
// browse.
func (s *MemStore) Seed() {
	fiction, _ := s.CreateGenre(context.Background(), "Fiction")
	dystopia, _ := s.CreateGenre(context.Background(), "Dystopia")
	romance, _ := s.CreateGenre(context.Background(), "Romance")

	seeds := []Book{
		{Title: "The Great Gatsby", Writer: "F. Scott Fitzgerald", Publisher: "Scribner", PublicationYear: 1925, Price: 10.99, Stock: 12, GenreID: fiction.ID},
		{Title: "To Kill a Mockingbird", Writer: "Harper Lee", Publisher: "J. B. Lippincott & Co.", PublicationYear: 1960, Price: 12.50, Stock: 8, GenreID: fiction.ID},
		{Title: "1984", Writer: "George Orwell", Publisher: "Secker & Warburg", PublicationYear: 1949, Price: 9.99, Stock: 15, GenreID: dystopia.ID},
		{Title: "Pride and Prejudice", Writer: "Jane Austen", Publisher: "T. Egerton", PublicationYear: 1813, Price: 8.75, Stock: 6, GenreID: romance.ID},
	}
	for _, b := range seeds {
		s.CreateBook(context.Background(), b)
	}
}

func (s *MemStore) ListBooks(_ context.Context, search, genreName, sortKey string) ([]Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var genreID string
	if genreName != "" {
		for _, g := range s.genres {
			if strings.EqualFold(g.Name, genreName) {
				genreID = g.ID
				break
			}
		}
		if genreID == "" {
			return []Book{}, nil
		}
	}

	out := make([]Book, 0, len(s.books))
	needle := strings.ToLower(search)
	for _, b := range s.books {
		if genreID != "" && b.GenreID != genreID {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(b.Title), needle) &&
			!strings.Contains(strings.ToLower(b.Writer), needle) {
			continue
		}
		out = append(out, b)
	}

	sortBooks(out, sortKey)
	return out, nil
}

func sortBooks(books []Book, key string) {
	switch key {
	case "title":
		sort.SliceStable(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	case "price":
		sort.SliceStable(books, func(i, j int) bool { return books[i].Price < books[j].Price })
	case "-price":
		sort.SliceStable(books, func(i, j int) bool { return books[i].Price > books[j].Price })
	case "newest":
		sort.SliceStable(books, func(i, j int) bool { return books[i].CreatedAt.After(books[j].CreatedAt) })
	}
}

func (s *MemStore) GetBook(_ context.Context, id string) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.books {
		if b.ID == id {
			return b, nil
		}
	}
	return Book{}, fmt.Errorf("book %s: %w", id, ErrNotFound)
}

func (s *MemStore) CreateBook(_ context.Context, b Book) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	b.ID = uuid.NewString()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.books = append(s.books, b)
	return b, nil
}

func (s *MemStore) UpdateBook(_ context.Context, id string, update BookUpdate) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.books {
		if s.books[i].ID != id {
			continue
		}
		b := &s.books[i]
		if update.Title != nil {
			b.Title = *update.Title
		}
		if update.Writer != nil {
			b.Writer = *update.Writer
		}
		if update.Publisher != nil {
			b.Publisher = *update.Publisher
		}
		if update.PublicationYear != nil {
			b.PublicationYear = *update.PublicationYear
		}
		if update.Description != nil {
			b.Description = *update.Description
		}
		if update.Price != nil {
			b.Price = *update.Price
		}
		if update.Stock != nil {
			b.Stock = *update.Stock
		}
		if update.GenreID != nil {
			b.GenreID = *update.GenreID
		}
		b.UpdatedAt = time.Now().UTC()
		return *b, nil
	}
	return Book{}, fmt.Errorf("book %s: %w", id, ErrNotFound)
}

func (s *MemStore) DeleteBook(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.books {
		if s.books[i].ID == id {
			s.books = append(s.books[:i], s.books[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("book %s: %w", id, ErrNotFound)
}

func (s *MemStore) ListGenres(_ context.Context) ([]Genre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Genre(nil), s.genres...), nil
}

func (s *MemStore) GetGenre(_ context.Context, id string) (Genre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.genres {
		if g.ID == id {
			return g, nil
		}
	}
	return Genre{}, fmt.Errorf("genre %s: %w", id, ErrNotFound)
}

func (s *MemStore) CreateGenre(_ context.Context, name string) (Genre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := Genre{ID: uuid.NewString(), Name: name}
	s.genres = append(s.genres, g)
	return g, nil
}

func (s *MemStore) UpdateGenre(_ context.Context, id, name string) (Genre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.genres {
		if s.genres[i].ID == id {
			s.genres[i].Name = name
			return s.genres[i], nil
		}
	}
	return Genre{}, fmt.Errorf("genre %s: %w", id, ErrNotFound)
}

func (s *MemStore) DeleteGenre(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.genres {
		if s.genres[i].ID == id {
			s.genres = append(s.genres[:i], s.genres[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("genre %s: %w", id, ErrNotFound)
}

func (s *MemStore) CreateTransaction(_ context.Context, userID string, items []TransactionItem) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(items) == 0 {
		return Transaction{}, errors.New("transaction needs at least one item")
	}

	// Validate every line before mutating any stock.
	indexByID := make(map[string]int, len(s.books))
	for i, b := range s.books {
		indexByID[b.ID] = i
	}
	for _, item := range items {
		i, ok := indexByID[item.BookID]
		if !ok {
			return Transaction{}, fmt.Errorf("book %s: %w", item.BookID, ErrNotFound)
		}
		if item.Quantity < 1 {
			return Transaction{}, fmt.Errorf("book %s: quantity must be at least 1", item.BookID)
		}
		if item.Quantity > s.books[i].Stock {
			return Transaction{}, fmt.Errorf("book %s: %w", item.BookID, ErrInsufficientStock)
		}
	}

	now := time.Now().UTC()
	tx := Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    "completed",
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, item := range items {
		i := indexByID[item.BookID]
		s.books[i].Stock -= item.Quantity
		s.books[i].UpdatedAt = now
		line := TransactionItem{BookID: item.BookID, Quantity: item.Quantity, Price: s.books[i].Price}
		tx.Items = append(tx.Items, line)
		tx.TotalAmount += line.Price * float64(line.Quantity)
	}
	s.transactions = append(s.transactions, tx)
	return tx, nil
}

func (s *MemStore) ListTransactions(_ context.Context, userID string) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Transaction, 0)
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}
