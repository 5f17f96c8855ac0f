// Package postgres provides a PostgreSQL implementation of store.Store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/rbaliyan/discussions/store"
)

// Compile-time check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL.
type Store struct {
	db        *sqlx.DB
	opts      *options
	connected int32
	logger    *slog.Logger
}

// New creates a new PostgreSQL store with the provided database connection.
// Call Connect() to initialize the schema and indexes.
func New(db *sqlx.DB, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		db:     db,
		opts:   o,
		logger: o.logger,
	}
}

// NewFromDB creates a new PostgreSQL store from a standard sql.DB connection.
// This wraps the sql.DB with sqlx for enhanced functionality.
func NewFromDB(db *sql.DB, opts ...Option) *Store {
	return New(sqlx.NewDb(db, "postgres"), opts...)
}

// Connect initializes the schema and indexes.
func (s *Store) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}

	if s.db == nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("postgres: db is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("postgres ping: %w", err)
	}

	if err := s.ensureSchema(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("ensure schema: %w", err)
	}

	s.logger.Info("connected to PostgreSQL",
		"discussions", s.opts.discussions,
		"messages", s.opts.messages,
		"recipients", s.opts.recipients,
		"contacts", s.opts.contacts)
	return nil
}

// Close marks the store as disconnected.
// The caller is responsible for closing the database connection.
func (s *Store) Close(ctx context.Context) error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil
	}
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

// ensureSchema creates the required tables and indexes.
func (s *Store) ensureSchema(ctx context.Context) error {
	tables := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				sender_id VARCHAR(255) NOT NULL,
				subject TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				sender_deleted_at TIMESTAMPTZ
			)
		`, s.opts.discussions),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				discussion_id UUID NOT NULL,
				sender_id VARCHAR(255) NOT NULL,
				body TEXT NOT NULL,
				sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				sender_deleted_at TIMESTAMPTZ
			)
		`, s.opts.messages),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				discussion_id UUID NOT NULL,
				status VARCHAR(50) NOT NULL DEFAULT 'unread',
				read_at TIMESTAMPTZ,
				deleted_at TIMESTAMPTZ
			)
		`, s.opts.recipients),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				from_user_id VARCHAR(255) NOT NULL,
				to_user_id VARCHAR(255) NOT NULL,
				pair_key VARCHAR(511) NOT NULL,
				latest_discussion_id UUID NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`, s.opts.contacts),
	}

	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	// Uniqueness constraints carry the concurrency model: one recipient
	// row per (user, discussion) and one contact row per unordered pair.
	unique := []string{
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_user_discussion ON %s(user_id, discussion_id)`,
			s.opts.recipients, s.opts.recipients),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_pair_key ON %s(pair_key)`,
			s.opts.contacts, s.opts.contacts),
	}
	for _, idx := range unique {
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("create unique index: %w", err)
		}
	}

	indexes := []string{
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_sender ON %s(sender_id, created_at DESC)`,
			s.opts.discussions, s.opts.discussions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_discussion ON %s(discussion_id, sent_at DESC)`,
			s.opts.messages, s.opts.messages),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_user_status ON %s(user_id, status)`,
			s.opts.recipients, s.opts.recipients),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_from_user ON %s(from_user_id, updated_at DESC)`,
			s.opts.contacts, s.opts.contacts),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_to_user ON %s(to_user_id, updated_at DESC)`,
			s.opts.contacts, s.opts.contacts),
	}
	for _, idx := range indexes {
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			s.logger.Warn("failed to create index", "error", err, "sql", idx)
		}
	}

	return nil
}

// checkConnected returns error if not connected.
func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}

func orderDir(o store.SortOrder) string {
	if o == store.SortAsc {
		return "ASC"
	}
	return "DESC"
}
