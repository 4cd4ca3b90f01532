package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestChat returns a chat service with two users and a clock that
// advances one second per message.
func newTestChat(t *testing.T) (s *chatService, alice, bob int64) {
	t.Helper()
	db := newTestDB(t)
	ctx := context.Background()

	var err error
	alice, err = insertUser(ctx, db, "alice", "hash", time.Now())
	require.NoError(t, err)
	bob, err = insertUser(ctx, db, "bob", "hash", time.Now())
	require.NoError(t, err)

	s = newChatService(db, 500)
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return s, alice, bob
}

func contents(messages []Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Content)
	}
	return out
}

func TestPostMessageValidation(t *testing.T) {
	s, alice, _ := newTestChat(t)
	ctx := context.Background()

	_, err := s.postMessage(ctx, alice, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.postMessage(ctx, alice, " \t ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.postMessage(ctx, alice, strings.Repeat("x", 501))
	assert.ErrorIs(t, err, ErrValidation)

	// bound counts characters, not bytes
	_, err = s.postMessage(ctx, alice, strings.Repeat("é", 500))
	assert.NoError(t, err)

	messages, err := s.listMessages(ctx)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestPostMessageUnknownUser(t *testing.T) {
	s, _, _ := newTestChat(t)

	_, err := s.postMessage(context.Background(), 999, "hello")
	assert.ErrorIs(t, err, ErrAuth)
}

func TestListMessagesOrder(t *testing.T) {
	s, alice, bob := newTestChat(t)
	ctx := context.Background()

	m1, err := s.postMessage(ctx, alice, "M1")
	require.NoError(t, err)
	m2, err := s.postMessage(ctx, alice, "M2")
	require.NoError(t, err)
	_, err = s.postMessage(ctx, bob, "M3")
	require.NoError(t, err)

	messages, err := s.listMessages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, []string{"M1", "M2", "M3"}, contents(messages))
	assert.Equal(t, m1, messages[0].ID)
	assert.Equal(t, m2, messages[1].ID)
	assert.Equal(t, "bob", messages[2].Author)
	assert.True(t, messages[0].CreatedAt.Before(messages[1].CreatedAt))
}

func TestListMessagesSameTimestamp(t *testing.T) {
	s, alice, _ := newTestChat(t)
	ctx := context.Background()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	for _, c := range []string{"a", "b", "c"} {
		_, err := s.postMessage(ctx, alice, c)
		require.NoError(t, err)
	}
	messages, err := s.listMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, contents(messages))
}

func TestUpdateMessage(t *testing.T) {
	s, alice, bob := newTestChat(t)
	ctx := context.Background()

	id, err := s.postMessage(ctx, alice, "hello")
	require.NoError(t, err)
	before, err := s.getMessage(ctx, alice, id)
	require.NoError(t, err)

	err = s.updateMessage(ctx, bob, id, "x")
	assert.ErrorIs(t, err, ErrAuthz)
	assert.Equal(t, "You are not authorized to update this message.", userText(err))

	err = s.updateMessage(ctx, alice, id+100, "x")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.updateMessage(ctx, alice, id, "  ")
	assert.ErrorIs(t, err, ErrValidation)

	got, err := s.getMessage(ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)

	require.NoError(t, s.updateMessage(ctx, alice, id, "hello, world"))
	got, err = s.getMessage(ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, "hello, world", got.Content)
	assert.True(t, before.CreatedAt.Equal(got.CreatedAt))
}

func TestUpdateChecksOwnershipBeforeContent(t *testing.T) {
	s, alice, bob := newTestChat(t)
	ctx := context.Background()

	id, err := s.postMessage(ctx, alice, "hello")
	require.NoError(t, err)

	assert.ErrorIs(t, s.updateMessage(ctx, bob, id, ""), ErrAuthz)
	assert.ErrorIs(t, s.updateMessage(ctx, bob, id+1, ""), ErrNotFound)
}

func TestGetMessageOwnership(t *testing.T) {
	s, alice, bob := newTestChat(t)
	ctx := context.Background()

	id, err := s.postMessage(ctx, alice, "hello")
	require.NoError(t, err)

	_, err = s.getMessage(ctx, bob, id)
	assert.ErrorIs(t, err, ErrAuthz)
	_, err = s.getMessage(ctx, alice, id+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMessage(t *testing.T) {
	s, alice, bob := newTestChat(t)
	ctx := context.Background()

	m1, err := s.postMessage(ctx, alice, "M1")
	require.NoError(t, err)
	_, err = s.postMessage(ctx, alice, "M2")
	require.NoError(t, err)

	err = s.deleteMessage(ctx, bob, m1)
	assert.ErrorIs(t, err, ErrAuthz)
	assert.Equal(t, "You are not authorized to delete this message.", userText(err))

	require.NoError(t, s.deleteMessage(ctx, alice, m1))

	messages, err := s.listMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"M2"}, contents(messages))

	err = s.deleteMessage(ctx, alice, m1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorageFailure(t *testing.T) {
	s, alice, _ := newTestChat(t)
	ctx := context.Background()
	require.NoError(t, s.db.Close())

	_, err := s.postMessage(ctx, alice, "hello")
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, "There was an issue sending your message", userText(err))

	_, err = s.listMessages(ctx)
	assert.ErrorIs(t, err, ErrStorage)

	assert.ErrorIs(t, s.deleteMessage(ctx, alice, 1), ErrStorage)
}
