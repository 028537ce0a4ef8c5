// Copyright 2026 © The Troupe Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aldasoro/troupe/pkg/llm"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const messagesTable = "troupe_messages"

// SQLiteArchive persists conversation messages in a SQLite database.
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive creates a SQLite-backed archive and ensures schema.
func NewSQLiteArchive(db *sql.DB) (*SQLiteArchive, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if err := ensureSQLiteSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteArchive{db: db}, nil
}

// OpenSQLiteArchive opens (or creates) a SQLite database at path and returns
// an archive backed by it.
func OpenSQLiteArchive(path string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite archive: %w", err)
	}
	return NewSQLiteArchive(db)
}

func ensureSQLiteSchema(db *sql.DB) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`, messagesTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_conversation ON %s(conversation_id);`,
			messagesTable, messagesTable),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure sqlite schema: %w", err)
		}
	}
	return nil
}

// Append implements Archive.
func (a *SQLiteArchive) Append(ctx context.Context, conversationID string, msg llm.Message) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, conversation_id, role, name, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, messagesTable)
	_, err := a.db.ExecContext(ctx, query,
		uuid.NewString(), conversationID, string(msg.Role), msg.Name, msg.Content,
		time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("archive append: %w", err)
	}
	return nil
}

// Messages implements Archive.
func (a *SQLiteArchive) Messages(ctx context.Context, conversationID string) ([]llm.Message, error) {
	query := fmt.Sprintf(`SELECT role, name, content FROM %s
		WHERE conversation_id = ? ORDER BY seq ASC`, messagesTable)
	rows, err := a.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("archive query: %w", err)
	}
	defer rows.Close()

	var messages []llm.Message
	for rows.Next() {
		var role, name, content string
		if err := rows.Scan(&role, &name, &content); err != nil {
			return nil, fmt.Errorf("archive scan: %w", err)
		}
		messages = append(messages, llm.Message{
			Role:    llm.Role(role),
			Name:    name,
			Content: content,
		})
	}
	return messages, rows.Err()
}

// Close releases the underlying database handle.
func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}

var _ Archive = (*SQLiteArchive)(nil)
