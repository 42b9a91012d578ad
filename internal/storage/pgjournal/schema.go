package pgjournal

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS dunning_notices (
  id BIGSERIAL PRIMARY KEY,
  tenant TEXT NOT NULL,
  order_id TEXT NOT NULL,
  order_number TEXT NOT NULL,
  stage TEXT NOT NULL,
  recipient TEXT NOT NULL,
  template_id TEXT NOT NULL DEFAULT '',
  dry_run BOOLEAN NOT NULL DEFAULT FALSE,
  sent_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_dunning_notices_tenant_sent_at ON dunning_notices(tenant, sent_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_dunning_notices_order_id ON dunning_notices(order_id)`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
