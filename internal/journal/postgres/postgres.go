// Package postgres provides a PostgreSQL-backed upload journal.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/fruitsalade/attachments/internal/journal"
	"github.com/fruitsalade/attachments/internal/logging"
	"github.com/fruitsalade/attachments/internal/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS attachment_pending_uploads (
	tenant      TEXT NOT NULL,
	document_id TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (tenant, document_id)
);
CREATE INDEX IF NOT EXISTS attachment_pending_uploads_created_at
	ON attachment_pending_uploads (created_at);
`

// Store is a PostgreSQL journal.
type Store struct {
	db *sql.DB
}

var _ journal.Journal = (*Store)(nil)

// New opens the database and verifies the connection.
func New(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewWithDB uses an existing connection pool.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the journal table.
func (s *Store) Migrate(ctx context.Context) error {
	logging.Info("migrating upload journal")
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate journal: %w", err)
	}
	return nil
}

// Record implements journal.Journal.
func (s *Store) Record(ctx context.Context, p journal.PendingUpload) error {
	start := time.Now()
	defer func() { metrics.RecordJournalQuery("record", time.Since(start)) }()

	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attachment_pending_uploads (tenant, document_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (tenant, document_id) DO UPDATE SET created_at = EXCLUDED.created_at`,
		p.Tenant, p.DocumentID, created.UTC())
	if err != nil {
		return fmt.Errorf("record pending upload: %w", err)
	}
	return nil
}

// Resolve implements journal.Journal.
func (s *Store) Resolve(ctx context.Context, tenant, documentID string) error {
	start := time.Now()
	defer func() { metrics.RecordJournalQuery("resolve", time.Since(start)) }()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM attachment_pending_uploads WHERE tenant = $1 AND document_id = $2`,
		tenant, documentID)
	if err != nil {
		return fmt.Errorf("resolve pending upload: %w", err)
	}
	return nil
}

// Expired implements journal.Journal.
func (s *Store) Expired(ctx context.Context, cutoff time.Time) ([]journal.PendingUpload, error) {
	start := time.Now()
	defer func() { metrics.RecordJournalQuery("expired", time.Since(start)) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT tenant, document_id, created_at FROM attachment_pending_uploads
		 WHERE created_at < $1 ORDER BY created_at, document_id`, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("list expired uploads: %w", err)
	}
	defer rows.Close()

	var out []journal.PendingUpload
	for rows.Next() {
		var p journal.PendingUpload
		if err := rows.Scan(&p.Tenant, &p.DocumentID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending upload: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
