package main

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// authService registers users and checks their credentials.
type authService struct {
	db   *sql.DB
	now  func() time.Time
	cost int
}

func newAuthService(db *sql.DB) *authService {
	return &authService{db: db, now: time.Now, cost: bcrypt.DefaultCost}
}

// register creates a user and returns its id.
func (s *authService) register(ctx context.Context, username, password string) (int64, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return 0, newError(ErrValidation, "Username and password cannot be empty")
	}

	_, err := getUserByUsername(ctx, s.db, username)
	switch {
	case err == nil:
		return 0, newError(ErrConflict, "User already exists")
	case !errors.Is(err, sql.ErrNoRows):
		return 0, storageError("There was an issue creating your account", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return 0, newError(ErrValidation, "Password is too long")
	}
	if err != nil {
		return 0, storageError("There was an issue creating your account", err)
	}

	id, err := insertUser(ctx, s.db, username, string(hash), s.now())
	if isUniqueViolation(err) {
		// lost a race with a concurrent registration
		return 0, newError(ErrConflict, "User already exists")
	}
	if err != nil {
		return 0, storageError("There was an issue creating your account", err)
	}
	return id, nil
}

// login verifies the credentials and returns the identity to store in the
// session.
func (s *authService) login(ctx context.Context, username, password string) (Identity, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	u, err := getUserByUsername(ctx, s.db, username)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, newError(ErrAuth, "Invalid Credentials!")
	}
	if err != nil {
		return Identity{}, storageError("There was an issue logging you in", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Identity{}, newError(ErrAuth, "Invalid Credentials!")
	}
	return Identity{UserID: u.ID, Username: u.Username}, nil
}

// requireSession returns the authenticated user id carried by ctx.
func requireSession(ctx context.Context) (int64, error) {
	id, ok := identityFrom(ctx)
	if !ok {
		return 0, newError(ErrAuth, "Please log in")
	}
	return id.UserID, nil
}
