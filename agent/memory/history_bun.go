package memory

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN string `envconfig:"DSN" split_words:"true"`
}

// OpenPostgres opens a bun DB over the pgdriver connector.
func OpenPostgres(cfg PostgresConfig) (*bun.DB, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// BunHistoryStore persists conversation entries in Postgres.
type BunHistoryStore struct {
	db *bun.DB
}

var _ HistoryStore = (*BunHistoryStore)(nil)

func NewBunHistoryStore(db *bun.DB) *BunHistoryStore {
	return &BunHistoryStore{db: db}
}

// EnsureSchema creates the conversation_history table when missing.
func (s *BunHistoryStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*ConversationEntry)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Append inserts the entries in a single statement so an interaction's USER
// and ASSISTANT rows land together.
func (s *BunHistoryStore) Append(ctx context.Context, entries ...*ConversationEntry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := s.db.NewInsert().Model(&entries).Exec(ctx)
	return err
}

// History returns a session's entries ordered by creation time.
func (s *BunHistoryStore) History(ctx context.Context, sessionID, tenantID string) ([]*ConversationEntry, error) {
	var entries []*ConversationEntry
	err := s.db.NewSelect().
		Model(&entries).
		Where("session_id = ?", sessionID).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Count returns the number of entries for a session.
func (s *BunHistoryStore) Count(ctx context.Context, sessionID, tenantID string) (int, error) {
	return s.db.NewSelect().
		Model((*ConversationEntry)(nil)).
		Where("session_id = ?", sessionID).
		Where("tenant_id = ?", tenantID).
		Count(ctx)
}

// DeleteBefore removes a tenant's entries created strictly before cutoff and
// reports the number of rows removed.
func (s *BunHistoryStore) DeleteBefore(ctx context.Context, tenantID string, cutoff time.Time) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*ConversationEntry)(nil)).
		Where("tenant_id = ?", tenantID).
		Where("created_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
