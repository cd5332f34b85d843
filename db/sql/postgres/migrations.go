package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema creates the tables used by MeetingRepository and UserRepository.
// Every statement is idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS templates (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    sections TEXT[] NOT NULL DEFAULT '{}'
)`,
	`CREATE TABLE IF NOT EXISTS meetings (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    template_id TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    recording_active BOOLEAN NOT NULL DEFAULT FALSE,
    recording_started_at TIMESTAMPTZ,
    recording_stopped_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS sections (
    id TEXT PRIMARY KEY,
    meeting_id TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    ord INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS sections_meeting_idx ON sections (meeting_id, ord)`,
	`CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    section_id TEXT NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
    content TEXT NOT NULL,
    ord INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS items_section_idx ON items (section_id, ord)`,
	`CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    meeting_id TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    assignee TEXT NOT NULL DEFAULT '',
    due TIMESTAMPTZ,
    done BOOLEAN NOT NULL DEFAULT FALSE
)`,
	`CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    username TEXT NOT NULL,
    email TEXT UNIQUE NOT NULL,
    password_hash JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`,
}

// ApplyMigrations executes the provided SQL statements in order within the given context.
func ApplyMigrations(ctx context.Context, db *sql.DB, statements ...string) error {
	if db == nil {
		return fmt.Errorf("postgres: db is nil")
	}
	for i, stmt := range statements {
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate statement %d: %w", i, err)
		}
	}
	return nil
}

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	return ApplyMigrations(ctx, db, Schema...)
}
