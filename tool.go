package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"
)

const toolDoc = `Chat Maintenance Tool

Usage:
  chat tool -i
  chat tool -u
  chat tool -h
Options:
  -h            Show this screen.
  -i            Dump all messages and authors to STDOUT.
  -u            Dump all users to STDOUT.`

// runTool implements the "tool" subcommand and returns the exit code.
func runTool(ctx context.Context, db *sql.DB, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stdout, toolDoc)
		return 0
	}

	switch args[0] {
	case "-h":
		fmt.Fprintln(stdout, toolDoc)
	case "-i":
		messages, err := queryMessages(ctx, db)
		if err != nil {
			fmt.Fprintf(stderr, "SQL error: %s\n", err)
			return 1
		}
		for _, m := range messages {
			fmt.Fprintf(stdout, "%d,%s,%q,%s\n", m.ID, m.Author, m.Content, m.CreatedAt.UTC().Format(time.RFC3339))
		}
	case "-u":
		users, err := queryUsers(ctx, db)
		if err != nil {
			fmt.Fprintf(stderr, "SQL error: %s\n", err)
			return 1
		}
		for _, u := range users {
			fmt.Fprintf(stdout, "%d,%s,%s\n", u.ID, u.Username, u.CreatedAt.UTC().Format(time.RFC3339))
		}
	default:
		fmt.Fprintf(stderr, "Unknown option: %s\n", args[0])
		fmt.Fprintln(stderr, toolDoc)
		return 2
	}
	return 0
}
