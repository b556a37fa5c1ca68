// internal/book/domain.go
package book

import "time"

// Book is the canonical storefront representation of a catalog entry.
// IDs are opaque strings minted by the backend.
type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Writer          string    `json:"writer"`
	Price           float64   `json:"price"`
	Stock           int       `json:"stock"`
	Genre           string    `json:"genre"`
	Publisher       string    `json:"publisher,omitempty"`
	PublicationYear int       `json:"publicationYear,omitempty"`
	ISBN            string    `json:"isbn,omitempty"`
	Pages           int       `json:"pages,omitempty"`
	Language        string    `json:"language,omitempty"`
	Rating          float64   `json:"rating,omitempty"`
	CoverImage      string    `json:"coverImage,omitempty"`
	Description     string    `json:"description,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Genre is a catalog category. Many books reference one genre; the backend
// stores the reference by id while the storefront displays the name.
type Genre struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CartItem pairs a book snapshot with a quantity. The snapshot, including its
// price and stock, is frozen at the moment the item entered the cart.
type CartItem struct {
	Book     Book `json:"book"`
	Quantity int  `json:"quantity"`
}

// Transaction statuses as reported by the backend.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Transaction is a completed checkout. Immutable from the client's side:
// transactions are only created and listed, never edited.
type Transaction struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Items       []CartItem `json:"items"`
	TotalAmount float64    `json:"totalAmount"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// User is an authenticated account.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
}

// Session is the persisted (user, token) pair for an authenticated client.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
