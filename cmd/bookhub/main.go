// cmd/bookhub/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"bookhub/internal/api"
	"bookhub/internal/auth"
	"bookhub/internal/book"
	"bookhub/internal/cart"
	"bookhub/internal/catalog"
	"bookhub/internal/notify"
	"bookhub/internal/session"
	"bookhub/internal/storage"
	"bookhub/internal/telemetry"

	"golang.org/x/time/rate"
)

const usage = `usage: bookhub <command> [args]

Account:
  register <email> <password> [username]
  login <email> <password>
  logout

Catalog:
  books [-q query] [-genre name] [-sort title|price|-price|newest]
  book <id>
  genres
  book-add -title T -writer W -genre G -price P -stock N [options]
  book-update <id> [options]
  book-del <id>

Cart:
  cart
  cart-add <book-id> [quantity]
  cart-update <book-id> <quantity>
  cart-remove <book-id>
  cart-clear
  checkout

Purchases:
  transactions
`

// app bundles the stores and the backend client behind the CLI commands.
type app struct {
	client   *api.Client
	sessions *session.Store
	cart     *cart.Store
	books    *catalog.Cache
	auth     *auth.Manager
	notifier notify.Notifier
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, "bookhub")
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry setup failed: %v\n", err)
		os.Exit(1)
	}
	defer shutdown(ctx)

	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newApp() (*app, error) {
	home := os.Getenv("BOOKHUB_HOME")
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		home = filepath.Join(userHome, ".bookhub")
	}

	store, err := storage.NewFileStore(home)
	if err != nil {
		return nil, err
	}

	notifier := &notify.Writer{Out: os.Stdout}
	sessions := session.NewStore(store)

	client, err := api.New(api.Config{
		BaseURL:  getEnv("BOOKHUB_API", "http://localhost:8080"),
		Sessions: sessions,
		OnUnauthorized: func() {
			notifier.Error("Session expired", "please log in again")
		},
		Limiter: rate.NewLimiter(rate.Limit(10), 10),
	})
	if err != nil {
		return nil, err
	}

	return &app{
		client:   client,
		sessions: sessions,
		cart:     cart.NewStore(store, notifier),
		books:    catalog.NewCache(client, notifier),
		auth:     auth.NewManager(client, sessions, notifier),
		notifier: notifier,
	}, nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "register":
		if len(args) < 2 {
			return fmt.Errorf("usage: bookhub register <email> <password> [username]")
		}
		username := ""
		if len(args) > 2 {
			username = args[2]
		}
		return a.auth.Register(ctx, args[0], args[1], username)

	case "login":
		if len(args) < 2 {
			return fmt.Errorf("usage: bookhub login <email> <password>")
		}
		return a.auth.Login(ctx, args[0], args[1])

	case "logout":
		return a.auth.Logout()

	case "books":
		return a.listBooks(ctx, args)

	case "book":
		if len(args) < 1 {
			return fmt.Errorf("usage: bookhub book <id>")
		}
		b, err := a.client.GetBook(ctx, args[0])
		if err != nil {
			return err
		}
		printBook(b)
		return nil

	case "genres":
		genres, err := a.client.ListGenres(ctx)
		if err != nil {
			return err
		}
		for _, g := range genres {
			fmt.Printf("%s\t%s\n", g.ID, g.Name)
		}
		return nil

	case "book-add":
		return a.addBook(ctx, args)

	case "book-update":
		return a.updateBook(ctx, args)

	case "book-del":
		if len(args) < 1 {
			return fmt.Errorf("usage: bookhub book-del <id>")
		}
		return a.books.DeleteBook(ctx, args[0])

	case "cart":
		a.printCart()
		return nil

	case "cart-add":
		if len(args) < 1 {
			return fmt.Errorf("usage: bookhub cart-add <book-id> [quantity]")
		}
		quantity := 1
		if len(args) > 1 {
			q, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			quantity = q
		}
		b, err := a.client.GetBook(ctx, args[0])
		if err != nil {
			return err
		}
		return a.cart.Add(b, quantity)

	case "cart-update":
		if len(args) < 2 {
			return fmt.Errorf("usage: bookhub cart-update <book-id> <quantity>")
		}
		quantity, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
		return a.cart.UpdateQuantity(args[0], quantity)

	case "cart-remove":
		if len(args) < 1 {
			return fmt.Errorf("usage: bookhub cart-remove <book-id>")
		}
		return a.cart.Remove(args[0])

	case "cart-clear":
		return a.cart.Clear()

	case "checkout":
		_, err := a.cart.Checkout(ctx, a.client)
		return err

	case "transactions":
		txs, err := a.client.ListTransactions(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tTOTAL\tDATE")
		for _, tx := range txs {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", tx.ID, tx.Status, tx.TotalAmount, tx.CreatedAt.Format("2006-01-02"))
		}
		return w.Flush()

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) listBooks(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("books", flag.ContinueOnError)
	search := fs.String("q", "", "search in title and writer")
	genre := fs.String("genre", "", "filter by genre name")
	sortKey := fs.String("sort", "", "sort order")
	if err := fs.Parse(args); err != nil {
		return err
	}

	params := api.ListBooksParams{Search: *search, Genre: *genre, Sort: *sortKey}
	if err := a.books.SetParams(ctx, params); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tWRITER\tGENRE\tPRICE\tSTOCK")
	for _, b := range a.books.Books() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%d\n", b.ID, b.Title, b.Writer, b.Genre, b.Price, b.Stock)
	}
	return w.Flush()
}

func (a *app) addBook(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("book-add", flag.ContinueOnError)
	title := fs.String("title", "", "book title (required)")
	writer := fs.String("writer", "", "book writer (required)")
	genre := fs.String("genre", "", "genre display name (required)")
	price := fs.Float64("price", 0, "price")
	stock := fs.Int("stock", 0, "stock quantity")
	publisher := fs.String("publisher", "", "publisher")
	year := fs.Int("year", 0, "publication year")
	description := fs.String("description", "", "description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *title == "" || *writer == "" || *genre == "" {
		return fmt.Errorf("-title, -writer, and -genre are required")
	}

	_, err := a.books.CreateBook(ctx, book.Book{
		Title:           *title,
		Writer:          *writer,
		Genre:           *genre,
		Price:           *price,
		Stock:           *stock,
		Publisher:       *publisher,
		PublicationYear: *year,
		Description:     *description,
	})
	return err
}

func (a *app) updateBook(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: bookhub book-update <id> [options]")
	}
	id := args[0]

	fs := flag.NewFlagSet("book-update", flag.ContinueOnError)
	title := fs.String("title", "", "book title")
	writer := fs.String("writer", "", "book writer")
	genre := fs.String("genre", "", "genre display name")
	price := fs.Float64("price", -1, "price")
	stock := fs.Int("stock", -1, "stock quantity")
	publisher := fs.String("publisher", "", "publisher")
	year := fs.Int("year", 0, "publication year")
	description := fs.String("description", "", "description")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	var patch catalog.BookPatch
	if *title != "" {
		patch.Title = title
	}
	if *writer != "" {
		patch.Writer = writer
	}
	if *genre != "" {
		patch.Genre = genre
	}
	if *price >= 0 {
		patch.Price = price
	}
	if *stock >= 0 {
		patch.Stock = stock
	}
	if *publisher != "" {
		patch.Publisher = publisher
	}
	if *year != 0 {
		patch.PublicationYear = year
	}
	if *description != "" {
		patch.Description = description
	}

	_, err := a.books.UpdateBook(ctx, id, patch)
	return err
}

func (a *app) printCart() {
	items := a.cart.Items()
	if len(items) == 0 {
		fmt.Println("cart is empty")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tQTY\tPRICE\tLINE")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\n",
			item.Book.ID, item.Book.Title, item.Quantity, item.Book.Price,
			item.Book.Price*float64(item.Quantity))
	}
	w.Flush()
	fmt.Printf("total: %d items, %.2f\n", a.cart.TotalItems(), a.cart.TotalPrice())
}

func printBook(b book.Book) {
	fmt.Printf("%s by %s\n", b.Title, b.Writer)
	fmt.Printf("  id: %s\n  genre: %s\n  price: %.2f\n  stock: %d\n", b.ID, b.Genre, b.Price, b.Stock)
	if b.Publisher != "" {
		fmt.Printf("  publisher: %s\n", b.Publisher)
	}
	if b.PublicationYear != 0 {
		fmt.Printf("  published: %d\n", b.PublicationYear)
	}
	if b.Description != "" {
		fmt.Printf("  %s\n", b.Description)
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
