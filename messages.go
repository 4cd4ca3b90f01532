package main

import (
	"context"
	"database/sql"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

type chatService struct {
	db     *sql.DB
	now    func() time.Time
	maxLen int
}

func newChatService(db *sql.DB, maxLen int) *chatService {
	return &chatService{db: db, now: time.Now, maxLen: maxLen}
}

func (s *chatService) validContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", newError(ErrValidation, "Message cannot be empty")
	}
	if utf8.RuneCountInString(content) > s.maxLen {
		return "", newError(ErrValidation, "Message is too long")
	}
	return content, nil
}

// postMessage stores a message owned by userID.
func (s *chatService) postMessage(ctx context.Context, userID int64, content string) (int64, error) {
	content, err := s.validContent(content)
	if err != nil {
		return 0, err
	}
	id, err := insertMessage(ctx, s.db, userID, content, s.now())
	if isForeignKeyViolation(err) {
		return 0, newError(ErrAuth, "Your account no longer exists")
	}
	if err != nil {
		return 0, storageError("There was an issue sending your message", err)
	}
	return id, nil
}

// listMessages returns every message, oldest first.
func (s *chatService) listMessages(ctx context.Context) ([]Message, error) {
	messages, err := queryMessages(ctx, s.db)
	if err != nil {
		return nil, storageError("There was an issue loading messages", err)
	}
	return messages, nil
}

// getMessage loads a message its owner is about to edit.
func (s *chatService) getMessage(ctx context.Context, userID, id int64) (Message, error) {
	return ownedMessage(ctx, s.db, userID, id, "update")
}

func (s *chatService) updateMessage(ctx context.Context, userID, id int64, content string) error {
	return s.inTx(ctx, "There was an issue updating your message", func(tx *sql.Tx) error {
		if _, err := ownedMessage(ctx, tx, userID, id, "update"); err != nil {
			return err
		}
		content, err := s.validContent(content)
		if err != nil {
			return err
		}
		return updateMessageContent(ctx, tx, id, content)
	})
}

func (s *chatService) deleteMessage(ctx context.Context, userID, id int64) error {
	return s.inTx(ctx, "There was a problem deleting your message", func(tx *sql.Tx) error {
		if _, err := ownedMessage(ctx, tx, userID, id, "delete"); err != nil {
			return err
		}
		return deleteMessageByID(ctx, tx, id)
	})
}

// inTx runs fn in a transaction. Errors that are not already classified are
// reported as storage failures with the given text.
func (s *chatService) inTx(ctx context.Context, text string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError(text, err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		var ae *appError
		if errors.As(err, &ae) {
			return err
		}
		return storageError(text, err)
	}
	if err := tx.Commit(); err != nil {
		return storageError(text, err)
	}
	return nil
}

func ownedMessage(ctx context.Context, q queryer, userID, id int64, action string) (Message, error) {
	m, err := getMessageByID(ctx, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, newError(ErrNotFound, "Message not found")
	}
	if err != nil {
		return Message{}, storageError("There was an issue loading your message", err)
	}
	if m.UserID != userID {
		return Message{}, newError(ErrAuthz, "You are not authorized to "+action+" this message.")
	}
	return m, nil
}
