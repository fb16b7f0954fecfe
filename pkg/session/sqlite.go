package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/metadata"
	"github.com/Arun-Raghav-S/chatagent-sub000/pkg/sqliteutil"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	tenant_id    TEXT NOT NULL,
	active_agent TEXT NOT NULL DEFAULT '',
	metadata     TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	item_id    TEXT NOT NULL,
	position   INTEGER NOT NULL,
	role       TEXT NOT NULL,
	text       TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	agent_name TEXT NOT NULL DEFAULT '',
	hidden     INTEGER NOT NULL DEFAULT 0,
	divider    INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (session_id, item_id)
);

CREATE INDEX IF NOT EXISTS idx_items_session ON items(session_id, position);
`

// SQLiteStore persists sessions and transcripts in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqliteutil.OpenDB(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating session schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) AddSession(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		return ErrEmptyID
	}

	metaJSON, err := json.Marshal(sess.Metadata())
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, tenant_id, active_agent, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Metadata().TenantID, sess.ActiveAgent(), string(metaJSON), sess.CreatedAt)
	return err
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	var metaJSON, activeAgent string
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT metadata, active_agent, created_at FROM sessions WHERE id = ?`, id).
		Scan(&metaJSON, &activeAgent, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var meta metadata.Record
	if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
		return nil, fmt.Errorf("unmarshaling metadata: %w", err)
	}

	sess := New(&meta)
	sess.CreatedAt = createdAt
	sess.SetActiveAgent(activeAgent)

	items, err := s.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		sess.AddItem(item.ID, item.Role, item.AgentName, item.Hidden)
		sess.CompleteItem(item.ID, item.Text)
	}

	return sess, nil
}

func (s *SQLiteStore) GetSessionSummaries(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, active_agent, created_at FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var summary Summary
		if err := rows.Scan(&summary.ID, &summary.TenantID, &summary.ActiveAgent, &summary.CreatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) UpdateSession(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		return ErrEmptyID
	}

	metaJSON, err := json.Marshal(sess.Metadata())
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, tenant_id, active_agent, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET active_agent = excluded.active_agent, metadata = excluded.metadata`,
		sess.ID, sess.Metadata().TenantID, sess.ActiveAgent(), string(metaJSON), sess.CreatedAt)
	return err
}

func (s *SQLiteStore) AppendItem(ctx context.Context, sessionID string, item Item) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO items (session_id, item_id, position, role, text, status, agent_name, hidden, divider, created_at)
		 VALUES (?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM items WHERE session_id = ?), ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, item.ID, sessionID, item.Role, item.Text, string(item.Status), item.AgentName, item.Hidden, item.Divider, item.CreatedAt)
	return err
}

func (s *SQLiteStore) UpdateItem(ctx context.Context, sessionID string, item Item) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE items SET text = ?, status = ? WHERE session_id = ? AND item_id = ?`,
		item.Text, string(item.Status), sessionID, item.ID)
	return err
}

func (s *SQLiteStore) loadItems(ctx context.Context, sessionID string) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, role, text, status, agent_name, hidden, divider, created_at
		 FROM items WHERE session_id = ? ORDER BY position`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var status string
		if err := rows.Scan(&item.ID, &item.Role, &item.Text, &status, &item.AgentName, &item.Hidden, &item.Divider, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.Status = ItemStatus(status)
		items = append(items, item)
	}
	return items, rows.Err()
}
