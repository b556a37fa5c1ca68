// internal/wire/adapter.go
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"bookhub/internal/book"
)

// GenreUnknown is the display name used when the backend gives no usable
// genre information for a book.
const GenreUnknown = "Unknown"

// priceValue decodes a price that the backend may send either as a JSON
// number or as a numeric string.
type priceValue float64

func (p *priceValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*p = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode price: %w", err)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("decode price %q: %w", s, err)
		}
		*p = priceValue(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode price: %w", err)
	}
	*p = priceValue(f)
	return nil
}

// genreValue decodes a genre that the backend may send as a nested object
// ({id, name}), as a bare identifier string, or not at all. Any other shape
// is treated as absent so the genreId / GenreUnknown fallback applies; genre
// never fails a book decode.
type genreValue struct {
	Name string
	ID   string
}

func (g *genreValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '{' {
		var obj struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil
		}
		g.ID = obj.ID
		g.Name = obj.Name
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	g.ID = s
	return nil
}

// bookPayload mirrors the backend's read representation of a book.
type bookPayload struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Writer          string     `json:"writer"`
	Publisher       string     `json:"publisher"`
	PublicationYear int        `json:"publicationYear"`
	StockQuantity   int        `json:"stockQuantity"`
	Price           priceValue `json:"price"`
	Genre           genreValue `json:"genre"`
	GenreID         string     `json:"genreId"`
	ISBN            string     `json:"isbn"`
	Pages           int        `json:"pages"`
	Language        string     `json:"language"`
	Rating          float64    `json:"rating"`
	CoverImage      string     `json:"coverImage"`
	CoverImageAlt   string     `json:"cover_image"`
	Description     string     `json:"description"`
	CreatedAt       string     `json:"createdAt"`
	UpdatedAt       string     `json:"updatedAt"`
}

// DecodeBook converts a backend book payload into its canonical form.
// Decoding is tolerant: a missing genre falls back to the raw identifier and
// then to GenreUnknown, missing timestamps are filled with the current time.
// The only value that can fail decoding is a price string that is not a
// number.
func DecodeBook(data []byte) (book.Book, error) {
	var p bookPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return book.Book{}, fmt.Errorf("decode book: %w", err)
	}

	genre := p.Genre.Name
	if genre == "" {
		genre = p.Genre.ID
	}
	if genre == "" {
		genre = p.GenreID
	}
	if genre == "" {
		genre = GenreUnknown
	}

	cover := p.CoverImage
	if cover == "" {
		cover = p.CoverImageAlt
	}

	return book.Book{
		ID:              p.ID,
		Title:           p.Title,
		Writer:          p.Writer,
		Publisher:       p.Publisher,
		PublicationYear: p.PublicationYear,
		Stock:           p.StockQuantity,
		Price:           float64(p.Price),
		Genre:           genre,
		ISBN:            p.ISBN,
		Pages:           p.Pages,
		Language:        p.Language,
		Rating:          p.Rating,
		CoverImage:      cover,
		Description:     p.Description,
		CreatedAt:       parseTimeOrNow(p.CreatedAt),
		UpdatedAt:       parseTimeOrNow(p.UpdatedAt),
	}, nil
}

// DecodeBooks converts a backend array of book payloads.
func DecodeBooks(data []byte) ([]book.Book, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode book list: %w", err)
	}
	books := make([]book.Book, 0, len(raws))
	for _, raw := range raws {
		b, err := DecodeBook(raw)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, nil
}

func parseTimeOrNow(s string) time.Time {
	if s == "" {
		return time.Now()
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now()
	}
	return t
}

// BookDraft is the backend's write representation of a book. Nil fields are
// omitted from the encoded body so a PATCH never clobbers server-side fields
// the caller did not touch.
type BookDraft struct {
	Title           *string  `json:"title,omitempty"`
	Writer          *string  `json:"writer,omitempty"`
	Publisher       *string  `json:"publisher,omitempty"`
	PublicationYear *int     `json:"publication_year,omitempty"`
	Description     *string  `json:"description,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	Stock           *int     `json:"stock_quantity,omitempty"`
	GenreID         *string  `json:"genre_id,omitempty"`
}

// DraftFromBook builds a write draft from a canonical book. The genre id
// must be supplied separately because the canonical form carries only the
// display name. Optional fields the book does not carry are left unset so
// they round-trip as absent rather than as zero values.
func DraftFromBook(b book.Book, genreID string) BookDraft {
	d := BookDraft{
		Title:  &b.Title,
		Writer: &b.Writer,
		Price:  &b.Price,
		Stock:  &b.Stock,
	}
	if b.Publisher != "" {
		d.Publisher = &b.Publisher
	}
	if b.PublicationYear != 0 {
		d.PublicationYear = &b.PublicationYear
	}
	if b.Description != "" {
		d.Description = &b.Description
	}
	if genreID != "" {
		d.GenreID = &genreID
	}
	return d
}

// EncodeBookDraft serializes a draft for the backend's create/update
// endpoints.
func EncodeBookDraft(d BookDraft) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode book draft: %w", err)
	}
	return data, nil
}
