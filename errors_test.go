package main

import (
	"database/sql"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		err    error
		kind   error
		status int
		text   string
	}{
		{newError(ErrValidation, "Message cannot be empty"), ErrValidation, http.StatusBadRequest, "Message cannot be empty"},
		{newError(ErrConflict, "User already exists"), ErrConflict, http.StatusConflict, "User already exists"},
		{newError(ErrAuth, "Invalid Credentials!"), ErrAuth, http.StatusUnauthorized, "Invalid Credentials!"},
		{newError(ErrAuthz, "nope"), ErrAuthz, http.StatusForbidden, "nope"},
		{newError(ErrNotFound, "Message not found"), ErrNotFound, http.StatusNotFound, "Message not found"},
		{storageError("oops", sql.ErrConnDone), ErrStorage, http.StatusInternalServerError, "oops"},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, tt.err, tt.kind)
		assert.Equal(t, tt.status, statusFor(tt.err))
		assert.Equal(t, tt.text, userText(tt.err))
	}
}

func TestStorageErrorKeepsCause(t *testing.T) {
	err := storageError("oops", errors.Wrap(sql.ErrConnDone, "insert message"))
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), "insert message")

	wrapped := errors.Wrap(err, "handler")
	assert.Equal(t, "oops", userText(wrapped))
	assert.Equal(t, http.StatusInternalServerError, statusFor(wrapped))
}

func TestUnclassifiedError(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, "Internal Server Error", userText(err))
	assert.Equal(t, http.StatusInternalServerError, statusFor(err))
}
