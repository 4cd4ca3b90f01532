package main

import (
	"context"
	"database/sql"
	_ "embed"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

//go:embed schema.sql
var schema string

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// openDB opens the SQLite file at path with foreign keys enforced. A single
// connection keeps writers serialized inside the engine.
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return db, nil
}

// initSchema creates missing tables and drops expired sessions.
func initSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "create schema")
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", time.Now().UTC()); err != nil {
		return errors.Wrap(err, "purge sessions")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func isForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}

// --- users ---

func insertUser(ctx context.Context, q queryer, username, hash string, createdAt time.Time) (int64, error) {
	res, err := q.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)",
		username, hash, createdAt.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "insert user")
	}
	return res.LastInsertId()
}

func getUserByUsername(ctx context.Context, q queryer, username string) (User, error) {
	var u User
	err := q.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE username = ?", username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return User{}, errors.Wrap(err, "select user")
	}
	return u, nil
}

func queryUsers(ctx context.Context, q queryer) ([]User, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, username, created_at FROM users ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "select users")
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan user")
		}
		users = append(users, u)
	}
	return users, errors.Wrap(rows.Err(), "iterate users")
}

// --- messages ---

func insertMessage(ctx context.Context, q queryer, userID int64, content string, createdAt time.Time) (int64, error) {
	res, err := q.ExecContext(ctx,
		"INSERT INTO messages (user_id, content, created_at) VALUES (?, ?, ?)",
		userID, content, createdAt.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "insert message")
	}
	return res.LastInsertId()
}

func queryMessages(ctx context.Context, q queryer) ([]Message, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT messages.id, messages.user_id, users.username, messages.content, messages.created_at
		FROM messages
		JOIN users ON users.id = messages.user_id
		ORDER BY messages.created_at, messages.id`)
	if err != nil {
		return nil, errors.Wrap(err, "select messages")
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.Author, &m.Content, &m.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		messages = append(messages, m)
	}
	return messages, errors.Wrap(rows.Err(), "iterate messages")
}

func getMessageByID(ctx context.Context, q queryer, id int64) (Message, error) {
	var m Message
	err := q.QueryRowContext(ctx,
		"SELECT id, user_id, content, created_at FROM messages WHERE id = ?", id).
		Scan(&m.ID, &m.UserID, &m.Content, &m.CreatedAt)
	if err != nil {
		return Message{}, errors.Wrap(err, "select message")
	}
	return m, nil
}

func updateMessageContent(ctx context.Context, q queryer, id int64, content string) error {
	_, err := q.ExecContext(ctx, "UPDATE messages SET content = ? WHERE id = ?", content, id)
	return errors.Wrap(err, "update message")
}

func deleteMessageByID(ctx context.Context, q queryer, id int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id)
	return errors.Wrap(err, "delete message")
}
