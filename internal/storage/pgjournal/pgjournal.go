package pgjournal

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Storage is the audit journal: one row per dunning notice that left the
// worker. The authoritative progression state stays on the order in the
// backend; this table only exists for reporting and support.
type Storage struct {
	db *pgxpool.Pool
}

func New(connString string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "parse pg config")
	}

	db, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pg")
	}

	s := &Storage{db: db}
	if err := s.initSchema(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Storage) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

type Notice struct {
	ID          int64
	Tenant      string
	OrderID     string
	OrderNumber string
	Stage       string
	Recipient   string
	TemplateID  string
	DryRun      bool
	SentAt      time.Time
}

func (s *Storage) RecordNotice(ctx context.Context, n Notice) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO dunning_notices (tenant, order_id, order_number, stage, recipient, template_id, dry_run, sent_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
		n.Tenant, n.OrderID, n.OrderNumber, n.Stage, n.Recipient, n.TemplateID, n.DryRun, n.SentAt)
	if err != nil {
		return errors.Wrap(err, "insert notice")
	}
	return nil
}

// ListNotices returns the most recent notices for a tenant, newest first.
func (s *Storage) ListNotices(ctx context.Context, tenant string, limit int) ([]*Notice, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
SELECT id, tenant, order_id, order_number, stage, recipient, template_id, dry_run, sent_at
FROM dunning_notices
WHERE tenant = $1
ORDER BY sent_at DESC, id DESC
LIMIT $2`, tenant, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query notices")
	}
	defer rows.Close()

	var out []*Notice
	for rows.Next() {
		n := &Notice{}
		if err := rows.Scan(&n.ID, &n.Tenant, &n.OrderID, &n.OrderNumber, &n.Stage, &n.Recipient, &n.TemplateID, &n.DryRun, &n.SentAt); err != nil {
			return nil, errors.Wrap(err, "scan notice")
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
