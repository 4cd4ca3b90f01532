package main

import "time"

// User is a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Message is a chat message. Author is filled only by queries that join
// the users table.
type Message struct {
	ID        int64
	UserID    int64
	Author    string
	Content   string
	CreatedAt time.Time
}

// Identity is the authenticated user attached to a request.
type Identity struct {
	UserID   int64
	Username string
}
