package pgimports

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS import_records (
  id BIGSERIAL PRIMARY KEY,
  tracking_number TEXT NOT NULL,
  supplier_name TEXT NOT NULL,
  supplier_contact TEXT NULL,
  goods_description TEXT NOT NULL,
  total_value_usd NUMERIC(12,2) NOT NULL,
  weight_kg NUMERIC(10,3) NOT NULL,
  current_status TEXT NOT NULL DEFAULT 'ORDER_PLACED',

  order_placed_date TIMESTAMPTZ NULL,
  order_placed_notes TEXT NULL,
  shipped_date TIMESTAMPTZ NULL,
  shipped_notes TEXT NULL,
  customs_entry_date TIMESTAMPTZ NULL,
  customs_notes TEXT NULL,
  delivered_date TIMESTAMPTZ NULL,
  delivered_notes TEXT NULL,

  ecuapass_reference TEXT NULL,
  senae_declaration_number TEXT NULL,
  customs_broker TEXT NULL,

  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  CONSTRAINT uq_import_records_tracking_number UNIQUE (tracking_number),
  CONSTRAINT chk_import_records_status
    CHECK (current_status IN ('ORDER_PLACED', 'SHIPPED', 'IN_CUSTOMS', 'DELIVERED'))
)`,
		`CREATE INDEX IF NOT EXISTS idx_import_records_created_at ON import_records(created_at DESC, id)`,
		`CREATE INDEX IF NOT EXISTS idx_import_records_current_status ON import_records(current_status)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
