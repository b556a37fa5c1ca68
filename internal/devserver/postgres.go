// internal/devserver/postgres.go
package devserver

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// PgStore is a Postgres-backed Store for a devserver that should keep its
// catalog across restarts.
type PgStore struct {
	db *sql.DB
}

func NewPgStore(db *sql.DB) *PgStore {
	return &PgStore{db: db}
}

// Migrate creates the schema when it does not exist yet.
func (s *PgStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS genres (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS books (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			writer TEXT NOT NULL,
			publisher TEXT NOT NULL DEFAULT '',
			publication_year INT NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			price NUMERIC(10,2) NOT NULL DEFAULT 0,
			stock_quantity INT NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
			genre_id UUID REFERENCES genres(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			total_amount NUMERIC(10,2) NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS transaction_items (
			transaction_id UUID NOT NULL REFERENCES transactions(id),
			book_id UUID NOT NULL,
			quantity INT NOT NULL,
			price NUMERIC(10,2) NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

const bookColumns = `id, title, writer, publisher, publication_year, description, price, stock_quantity, COALESCE(genre_id::text, ''), created_at, updated_at`

func scanBook(row interface{ Scan(...any) error }) (Book, error) {
	var b Book
	err := row.Scan(&b.ID, &b.Title, &b.Writer, &b.Publisher, &b.PublicationYear,
		&b.Description, &b.Price, &b.Stock, &b.GenreID, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (s *PgStore) ListBooks(ctx context.Context, search, genreName, sortKey string) ([]Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE ($1 = '' OR title ILIKE '%' || $1 || '%' OR writer ILIKE '%' || $1 || '%')
		AND ($2 = '' OR genre_id IN (SELECT id FROM genres WHERE LOWER(name) = LOWER($2)))`

	switch sortKey {
	case "title":
		query += ` ORDER BY title`
	case "price":
		query += ` ORDER BY price`
	case "-price":
		query += ` ORDER BY price DESC`
	case "newest":
		query += ` ORDER BY created_at DESC`
	default:
		query += ` ORDER BY created_at`
	}

	rows, err := s.db.QueryContext(ctx, query, search, genreName)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (s *PgStore) GetBook(ctx context.Context, id string) (Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return Book{}, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Book{}, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

func (s *PgStore) CreateBook(ctx context.Context, b Book) (Book, error) {
	b.ID = uuid.NewString()
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO books (id, title, writer, publisher, publication_year, description, price, stock_quantity, genre_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, '')::uuid)
		RETURNING `+bookColumns,
		b.ID, b.Title, b.Writer, b.Publisher, b.PublicationYear, b.Description, b.Price, b.Stock, b.GenreID)
	created, err := scanBook(row)
	if err != nil {
		return Book{}, fmt.Errorf("create book: %w", err)
	}
	return created, nil
}

func (s *PgStore) UpdateBook(ctx context.Context, id string, update BookUpdate) (Book, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE books SET
			title = COALESCE($2, title),
			writer = COALESCE($3, writer),
			publisher = COALESCE($4, publisher),
			publication_year = COALESCE($5, publication_year),
			description = COALESCE($6, description),
			price = COALESCE($7, price),
			stock_quantity = COALESCE($8, stock_quantity),
			genre_id = COALESCE($9::uuid, genre_id),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+bookColumns,
		id, update.Title, update.Writer, update.Publisher, update.PublicationYear,
		update.Description, update.Price, update.Stock, update.GenreID)
	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return Book{}, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Book{}, fmt.Errorf("update book: %w", err)
	}
	return b, nil
}

func (s *PgStore) DeleteBook(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PgStore) ListGenres(ctx context.Context) ([]Genre, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM genres ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	defer rows.Close()

	var genres []Genre
	for rows.Next() {
		var g Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

func (s *PgStore) GetGenre(ctx context.Context, id string) (Genre, error) {
	var g Genre
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM genres WHERE id = $1`, id).Scan(&g.ID, &g.Name)
	if err == sql.ErrNoRows {
		return Genre{}, fmt.Errorf("genre %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Genre{}, fmt.Errorf("get genre: %w", err)
	}
	return g, nil
}

func (s *PgStore) CreateGenre(ctx context.Context, name string) (Genre, error) {
	g := Genre{ID: uuid.NewString(), Name: name}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO genres (id, name) VALUES ($1, $2)`, g.ID, g.Name); err != nil {
		return Genre{}, fmt.Errorf("create genre: %w", err)
	}
	return g, nil
}

func (s *PgStore) UpdateGenre(ctx context.Context, id, name string) (Genre, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE genres SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return Genre{}, fmt.Errorf("update genre: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return Genre{}, fmt.Errorf("genre %s: %w", id, ErrNotFound)
	}
	return Genre{ID: id, Name: name}, nil
}

func (s *PgStore) DeleteGenre(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM genres WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete genre: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("genre %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PgStore) CreateTransaction(ctx context.Context, userID string, items []TransactionItem) (Transaction, error) {
	if len(items) == 0 {
		return Transaction{}, fmt.Errorf("transaction needs at least one item")
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return Transaction{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	out := Transaction{ID: uuid.NewString(), UserID: userID, Status: "completed"}
	for _, item := range items {
		var price float64
		var stock int
		err := tx.QueryRowContext(ctx, `SELECT price, stock_quantity FROM books WHERE id = $1 FOR UPDATE`, item.BookID).
			Scan(&price, &stock)
		if err == sql.ErrNoRows {
			return Transaction{}, fmt.Errorf("book %s: %w", item.BookID, ErrNotFound)
		}
		if err != nil {
			return Transaction{}, fmt.Errorf("lock book: %w", err)
		}
		if item.Quantity < 1 {
			return Transaction{}, fmt.Errorf("book %s: quantity must be at least 1", item.BookID)
		}
		if item.Quantity > stock {
			return Transaction{}, fmt.Errorf("book %s: %w", item.BookID, ErrInsufficientStock)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE books SET stock_quantity = stock_quantity - $2, updated_at = NOW() WHERE id = $1`,
			item.BookID, item.Quantity); err != nil {
			return Transaction{}, fmt.Errorf("decrement stock: %w", err)
		}
		line := TransactionItem{BookID: item.BookID, Quantity: item.Quantity, Price: price}
		out.Items = append(out.Items, line)
		out.TotalAmount += price * float64(item.Quantity)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO transactions (id, user_id, total_amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		out.ID, out.UserID, out.TotalAmount, out.Status).Scan(&out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	for _, line := range out.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transaction_items (transaction_id, book_id, quantity, price) VALUES ($1, $2, $3, $4)`,
			out.ID, line.BookID, line.Quantity, line.Price); err != nil {
			return Transaction{}, fmt.Errorf("insert transaction item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Transaction{}, fmt.Errorf("commit transaction: %w", err)
	}
	return out, nil
}

func (s *PgStore) ListTransactions(ctx context.Context, userID string) ([]Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, total_amount, status, created_at, updated_at
		FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.TotalAmount, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range txs {
		itemRows, err := s.db.QueryContext(ctx,
			`SELECT book_id, quantity, price FROM transaction_items WHERE transaction_id = $1`, txs[i].ID)
		if err != nil {
			return nil, fmt.Errorf("list transaction items: %w", err)
		}
		for itemRows.Next() {
			var item TransactionItem
			if err := itemRows.Scan(&item.BookID, &item.Quantity, &item.Price); err != nil {
				itemRows.Close()
				return nil, fmt.Errorf("scan transaction item: %w", err)
			}
			txs[i].Items = append(txs[i].Items, item)
		}
		if err := itemRows.Err(); err != nil {
			itemRows.Close()
			return nil, err
		}
		itemRows.Close()
	}
	return txs, nil
}
