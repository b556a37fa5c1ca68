// internal/cart/cart.go
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"bookhub/internal/book"
	"bookhub/internal/notify"
	"bookhub/internal/storage"
	"bookhub/internal/wire"
)

// storageKey names the single persisted cart entry.
const storageKey = "cart"

var (
	// ErrInsufficientStock rejects a mutation that would push an item's
	// quantity past the stock recorded on its book snapshot.
	ErrInsufficientStock = errors.New("not enough stock")
	// ErrEmptyCart rejects checkout of an empty cart.
	ErrEmptyCart = errors.New("cart is empty")
)

// TransactionCreator submits a checkout to the backend.
type TransactionCreator interface {
	CreateTransaction(ctx context.Context, draft wire.TransactionDraft) (book.Transaction, error)
}

// Store is the authoritative client-side shopping cart: an ordered list of
// items, unique by book id. Every mutation enforces the stock guard against
// the book snapshot and persists the whole cart on success. Rejected
// mutations leave the cart untouched and surface a notification as well as
// an error.
type Store struct {
	mu       sync.Mutex
	items    []book.CartItem
	storage  storage.Store
	notifier notify.Notifier
}

// NewStore restores any persisted cart. A corrupt persisted value is deleted
// and the cart starts empty; restore never fails.
func NewStore(st storage.Store, n notify.Notifier) *Store {
	s := &Store{storage: st, notifier: n}
	data, ok, err := st.Get(storageKey)
	if err != nil || !ok {
		return s
	}
	var items []book.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		st.Delete(storageKey)
		return s
	}
	s.items = items
	return s
}

// Add inserts a book or merges quantity into its existing item. A quantity
// below 1 counts as 1. The add is rejected when the resulting quantity would
// exceed the stock on the supplied book.
func (s *Store) Add(b book.Book, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range s.items {
		if item.Book.ID != b.ID {
			continue
		}
		newQuantity := item.Quantity + quantity
		if newQuantity > b.Stock {
			s.rejectStock(b.Stock)
			return fmt.Errorf("%w: only %d available", ErrInsufficientStock, b.Stock)
		}
		s.items[i].Quantity = newQuantity
		if err := s.persist(); err != nil {
			return err
		}
		s.notifier.Success("Cart updated", fmt.Sprintf("%s quantity updated", item.Book.Title))
		return nil
	}

	if quantity > b.Stock {
		s.rejectStock(b.Stock)
		return fmt.Errorf("%w: only %d available", ErrInsufficientStock, b.Stock)
	}
	s.items = append(s.items, book.CartItem{Book: b, Quantity: quantity})
	if err := s.persist(); err != nil {
		return err
	}
	s.notifier.Success("Added to cart", fmt.Sprintf("%s has been added to your cart", b.Title))
	return nil
}

// UpdateQuantity sets an item's quantity exactly. A quantity of zero or less
// removes the item. Unknown ids are a silent no-op.
func (s *Store) UpdateQuantity(bookID string, quantity int) error {
	if quantity <= 0 {
		return s.Remove(bookID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range s.items {
		if item.Book.ID != bookID {
			continue
		}
		if quantity > item.Book.Stock {
			s.rejectStock(item.Book.Stock)
			return fmt.Errorf("%w: only %d available", ErrInsufficientStock, item.Book.Stock)
		}
		s.items[i].Quantity = quantity
		if err := s.persist(); err != nil {
			return err
		}
		s.notifier.Success("Cart updated", fmt.Sprintf("%s quantity updated", item.Book.Title))
		return nil
	}
	return nil
}

// Remove deletes the item with the given book id. Absent ids are a no-op.
func (s *Store) Remove(bookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range s.items {
		if item.Book.ID != bookID {
			continue
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
		if err := s.persist(); err != nil {
			return err
		}
		s.notifier.Info("Removed from cart", fmt.Sprintf("%s has been removed", item.Book.Title))
		return nil
	}
	return nil
}

// Clear empties the cart unconditionally.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reset(); err != nil {
		return err
	}
	s.notifier.Success("Cart cleared", "")
	return nil
}

// Items returns a copy of the cart contents in insertion order.
func (s *Store) Items() []book.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]book.CartItem(nil), s.items...)
}

// TotalItems is the sum of all quantities, not the count of distinct books.
func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

// TotalPrice sums snapshot price times quantity over all items.
func (s *Store) TotalPrice() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0.0
	for _, item := range s.items {
		total += item.Book.Price * float64(item.Quantity)
	}
	return total
}

// Checkout converts the cart into a transaction. The cart empties only after
// the backend accepts the order; on failure it is left intact.
func (s *Store) Checkout(ctx context.Context, tc TransactionCreator) (book.Transaction, error) {
	s.mu.Lock()
	items := append([]book.CartItem(nil), s.items...)
	s.mu.Unlock()

	if len(items) == 0 {
		s.notifier.Error("Checkout failed", "your cart is empty")
		return book.Transaction{}, ErrEmptyCart
	}

	tx, err := tc.CreateTransaction(ctx, wire.DraftFromCart(items))
	if err != nil {
		s.notifier.Error("Checkout failed", err.Error())
		return book.Transaction{}, err
	}

	s.mu.Lock()
	resetErr := s.reset()
	s.mu.Unlock()
	if resetErr != nil {
		return tx, resetErr
	}

	s.notifier.Success("Order placed", fmt.Sprintf("transaction %s created", tx.ID))
	return tx, nil
}

// reset empties the cart and persists the empty state. Callers hold s.mu.
func (s *Store) reset() error {
	s.items = nil
	return s.persist()
}

// persist writes the full cart to storage. Callers hold s.mu.
func (s *Store) persist() error {
	data, err := json.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.storage.Set(storageKey, data); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

func (s *Store) rejectStock(stock int) {
	s.notifier.Error("Not enough stock", fmt.Sprintf("Only %d items available", stock))
}
