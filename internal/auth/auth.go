// internal/auth/auth.go
package auth

import (
	"context"
	"fmt"

	"bookhub/internal/book"
	"bookhub/internal/notify"
	"bookhub/internal/session"
)

// Authenticator is the remote auth surface. *api.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (book.Session, error)
	Register(ctx context.Context, email, password, username string) (book.Session, error)
}

// Manager runs the login, register, and logout flows: exchange credentials,
// persist the session, notify the user.
type Manager struct {
	client   Authenticator
	sessions *session.Store
	notifier notify.Notifier
}

func NewManager(client Authenticator, sessions *session.Store, n notify.Notifier) *Manager {
	return &Manager{client: client, sessions: sessions, notifier: n}
}

// Login authenticates and persists the resulting session.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	sess, err := m.client.Login(ctx, email, password)
	if err != nil {
		m.notifier.Error("Login failed", "Please check your credentials and try again")
		return err
	}
	if err := m.sessions.Set(sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	m.notifier.Success("Welcome back", fmt.Sprintf("Logged in as %s", sess.User.Email))
	return nil
}

// Register creates an account and persists its session.
func (m *Manager) Register(ctx context.Context, email, password, username string) error {
	sess, err := m.client.Register(ctx, email, password, username)
	if err != nil {
		m.notifier.Error("Registration failed", "Please try again later")
		return err
	}
	if err := m.sessions.Set(sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	m.notifier.Success("Account created", "Welcome to BookHub")
	return nil
}

// Logout clears the persisted session. The cart is left alone; only checkout
// empties it.
func (m *Manager) Logout() error {
	if err := m.sessions.Clear(); err != nil {
		return err
	}
	m.notifier.Info("Logged out", "See you next time")
	return nil
}
