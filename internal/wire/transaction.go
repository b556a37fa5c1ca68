// internal/wire/transaction.go
package wire

import (
	"encoding/json"
	"fmt"

	"bookhub/internal/book"
)

// transactionItemPayload tolerates both the embedded-book and the bare
// book_id form of a transaction line.
type transactionItemPayload struct {
	Book      json.RawMessage `json:"book"`
	BookID    string          `json:"bookId"`
	BookIDAlt string          `json:"book_id"`
	Quantity  int             `json:"quantity"`
}

type transactionPayload struct {
	ID             string                   `json:"id"`
	UserID         string                   `json:"userId"`
	UserIDAlt      string                   `json:"user_id"`
	Items          []transactionItemPayload `json:"items"`
	TotalAmount    priceValue               `json:"totalAmount"`
	TotalAmountAlt priceValue               `json:"total_amount"`
	Status         string                   `json:"status"`
	CreatedAt      string                   `json:"createdAt"`
	UpdatedAt      string                   `json:"updatedAt"`
}

// DecodeTransaction converts a backend transaction payload into canonical
// form. Line items carrying only a book id become items whose book snapshot
// has just that id filled in.
func DecodeTransaction(data []byte) (book.Transaction, error) {
	var p transactionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return book.Transaction{}, fmt.Errorf("decode transaction: %w", err)
	}

	userID := p.UserID
	if userID == "" {
		userID = p.UserIDAlt
	}
	total := float64(p.TotalAmount)
	if total == 0 {
		total = float64(p.TotalAmountAlt)
	}

	items := make([]book.CartItem, 0, len(p.Items))
	for _, ip := range p.Items {
		item := book.CartItem{Quantity: ip.Quantity}
		if len(ip.Book) > 0 {
			b, err := DecodeBook(ip.Book)
			if err != nil {
				return book.Transaction{}, err
			}
			item.Book = b
		} else {
			id := ip.BookID
			if id == "" {
				id = ip.BookIDAlt
			}
			item.Book = book.Book{ID: id, Genre: GenreUnknown}
		}
		items = append(items, item)
	}

	return book.Transaction{
		ID:          p.ID,
		UserID:      userID,
		Items:       items,
		TotalAmount: total,
		Status:      p.Status,
		CreatedAt:   parseTimeOrNow(p.CreatedAt),
		UpdatedAt:   parseTimeOrNow(p.UpdatedAt),
	}, nil
}

// DecodeTransactions converts a backend array of transaction payloads.
func DecodeTransactions(data []byte) ([]book.Transaction, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode transaction list: %w", err)
	}
	txs := make([]book.Transaction, 0, len(raws))
	for _, raw := range raws {
		tx, err := DecodeTransaction(raw)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// TransactionItem is one line of the backend's transaction create request.
type TransactionItem struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

// TransactionDraft is the backend's transaction create request body.
type TransactionDraft struct {
	Items []TransactionItem `json:"items"`
}

// DraftFromCart converts cart items into a transaction create request.
func DraftFromCart(items []book.CartItem) TransactionDraft {
	d := TransactionDraft{Items: make([]TransactionItem, 0, len(items))}
	for _, item := range items {
		d.Items = append(d.Items, TransactionItem{BookID: item.Book.ID, Quantity: item.Quantity})
	}
	return d
}
