// internal/api/transactions.go
package api

import (
	"context"
	"net/http"

	"bookhub/internal/book"
	"bookhub/internal/wire"
)

// ListTransactions fetches the caller's past purchases.
func (c *Client) ListTransactions(ctx context.Context) ([]book.Transaction, error) {
	body, err := c.do(ctx, http.MethodGet, "/transactions", nil, nil)
	if err != nil {
		return nil, err
	}
	return wire.DecodeTransactions(unwrapList(body))
}

// GetTransaction fetches one transaction by id.
func (c *Client) GetTransaction(ctx context.Context, id string) (book.Transaction, error) {
	body, err := c.do(ctx, http.MethodGet, "/transactions/"+id, nil, nil)
	if err != nil {
		return book.Transaction{}, err
	}
	return wire.DecodeTransaction(unwrapObject(body, "transaction"))
}

// CreateTransaction submits a checkout. Transactions are immutable once
// created; there is no update call.
func (c *Client) CreateTransaction(ctx context.Context, draft wire.TransactionDraft) (book.Transaction, error) {
	body, err := c.do(ctx, http.MethodPost, "/transactions", nil, draft)
	if err != nil {
		return book.Transaction{}, err
	}
	return wire.DecodeTransaction(unwrapObject(body, "transaction"))
}
