// internal/devserver/auth.go
package devserver

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// User is a registered development account.
type User struct {
	ID       string
	Email    string
	Username string
}

type account struct {
	user User
	hash string
	salt string
}

// Users holds development accounts and their bearer tokens in memory.
type Users struct {
	mu       sync.Mutex
	byEmail  map[string]*account
	byToken  map[string]string // token -> user id
	byUserID map[string]*account
}

func NewUsers() *Users {
	return &Users{
		byEmail:  make(map[string]*account),
		byToken:  make(map[string]string),
		byUserID: make(map[string]*account),
	}
}

// Register creates an account and returns it with a fresh bearer token.
func (u *Users) Register(email, password, username string) (User, string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, exists := u.byEmail[email]; exists {
		return User{}, "", ErrEmailTaken
	}

	hash, salt, err := hashPassword(password)
	if err != nil {
		return User{}, "", fmt.Errorf("hash password: %w", err)
	}

	acct := &account{
		user: User{ID: uuid.NewString(), Email: email, Username: username},
		hash: hash,
		salt: salt,
	}
	u.byEmail[email] = acct
	u.byUserID[acct.user.ID] = acct

	token := uuid.NewString()
	u.byToken[token] = acct.user.ID
	return acct.user, token, nil
}

// Login verifies credentials and returns the account with a fresh token.
func (u *Users) Login(email, password string) (User, string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	acct, ok := u.byEmail[email]
	if !ok {
		return User{}, "", ErrInvalidCredentials
	}
	match, err := verifyPassword(password, acct.salt, acct.hash)
	if err != nil || !match {
		return User{}, "", ErrInvalidCredentials
	}

	token := uuid.NewString()
	u.byToken[token] = acct.user.ID
	return acct.user, token, nil
}

// Verify resolves a bearer token to its user.
func (u *Users) Verify(token string) (User, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	userID, ok := u.byToken[token]
	if !ok {
		return User{}, false
	}
	acct, ok := u.byUserID[userID]
	if !ok {
		return User{}, false
	}
	return acct.user, true
}

// hashPassword generates a salted Argon2id hash of the password.
func hashPassword(password string) (string, string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", "", err
	}

	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)

	encodedHash := base64.StdEncoding.EncodeToString(hash)
	encodedSalt := base64.StdEncoding.EncodeToString(salt)

	return encodedHash, encodedSalt, nil
}

// verifyPassword compares a password with a salted hash.
func verifyPassword(password, salt, hash string) (bool, error) {
	decodedSalt, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return false, fmt.Errorf("failed to decode salt: %w", err)
	}

	decodedHash, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		return false, fmt.Errorf("failed to decode hash: %w", err)
	}

	comparisonHash := argon2.IDKey([]byte(password), decodedSalt, 1, 64*1024, 4, 32)

	return string(decodedHash) == string(comparisonHash), nil
}
