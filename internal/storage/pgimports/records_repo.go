package pgimports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BearBump/ImportBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// Numeric columns travel as text in both directions so values round-trip
// through decimal.Decimal without touching float64.
const recordColumns = `
  id, tracking_number, supplier_name, supplier_contact, goods_description,
  total_value_usd::text, weight_kg::text, current_status,
  order_placed_date, order_placed_notes, shipped_date, shipped_notes,
  customs_entry_date, customs_notes, delivered_date, delivered_notes,
  ecuapass_reference, senae_declaration_number, customs_broker,
  created_at, updated_at`

func (s *Storage) CreateImportRecord(ctx context.Context, rec *models.ImportRecord) (*models.ImportRecord, error) {
	row := s.db.QueryRow(ctx, `
INSERT INTO import_records (
  tracking_number, supplier_name, supplier_contact, goods_description,
  total_value_usd, weight_kg, current_status,
  order_placed_date, order_placed_notes,
  ecuapass_reference, senae_declaration_number, customs_broker,
  created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5::text::numeric,$6::text::numeric,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING`+recordColumns,
		rec.TrackingNumber, rec.SupplierName, rec.SupplierContact, rec.GoodsDescription,
		rec.TotalValueUSD.String(), rec.WeightKG.String(), string(rec.CurrentStatus),
		utcPtr(rec.OrderPlacedDate), rec.OrderPlacedNotes,
		rec.EcuapassReference, rec.SenaeDeclarationNumber, rec.CustomsBroker,
		rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
	)

	out, err := scanRecord(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrapf(models.ErrConstraintViolation, "tracking number %q already exists", rec.TrackingNumber)
		}
		return nil, errors.Wrap(err, "insert import record")
	}
	return out, nil
}

func (s *Storage) GetImportRecord(ctx context.Context, id uint64) (*models.ImportRecord, error) {
	row := s.db.QueryRow(ctx, `SELECT`+recordColumns+` FROM import_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select import record")
	}
	return rec, nil
}

func (s *Storage) ListImportRecords(ctx context.Context, f models.ImportRecordFilter) ([]*models.ImportRecord, error) {
	where, args := filterClause(f)

	rows, err := s.db.Query(ctx, `SELECT`+recordColumns+`
FROM import_records`+where+`
ORDER BY created_at DESC, id ASC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select import records")
	}
	defer rows.Close()

	out := make([]*models.ImportRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan import record")
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// UpdateImportRecord writes only the fields present in the input in a single
// UPDATE ... RETURNING, so concurrent writers never interleave a read.
func (s *Storage) UpdateImportRecord(ctx context.Context, in models.ImportRecordUpdateInput, now time.Time) (*models.ImportRecord, error) {
	var set setBuilder
	set.args = append(set.args, in.ID)

	optionalColumn(&set, "tracking_number", in.TrackingNumber)
	optionalColumn(&set, "supplier_name", in.SupplierName)
	optionalColumn(&set, "supplier_contact", in.SupplierContact)
	optionalColumn(&set, "goods_description", in.GoodsDescription)
	if in.TotalValueUSD.Set {
		set.addCast("total_value_usd", in.TotalValueUSD.Value.String(), "::text::numeric")
	}
	if in.WeightKG.Set {
		set.addCast("weight_kg", in.WeightKG.Value.String(), "::text::numeric")
	}
	if in.CurrentStatus.Set {
		set.add("current_status", string(in.CurrentStatus.Value))
	}
	optionalTime(&set, "order_placed_date", in.OrderPlacedDate)
	optionalColumn(&set, "order_placed_notes", in.OrderPlacedNotes)
	optionalTime(&set, "shipped_date", in.ShippedDate)
	optionalColumn(&set, "shipped_notes", in.ShippedNotes)
	optionalTime(&set, "customs_entry_date", in.CustomsEntryDate)
	optionalColumn(&set, "customs_notes", in.CustomsNotes)
	optionalTime(&set, "delivered_date", in.DeliveredDate)
	optionalColumn(&set, "delivered_notes", in.DeliveredNotes)
	optionalColumn(&set, "ecuapass_reference", in.EcuapassReference)
	optionalColumn(&set, "senae_declaration_number", in.SenaeDeclarationNumber)
	optionalColumn(&set, "customs_broker", in.CustomsBroker)
	set.add("updated_at", now.UTC())

	row := s.db.QueryRow(ctx,
		`UPDATE import_records SET `+strings.Join(set.parts, ", ")+` WHERE id = $1 RETURNING`+recordColumns,
		set.args...)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(models.ErrNotFound, "import record %d", in.ID)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Wrapf(models.ErrConstraintViolation, "tracking number %q already exists", in.TrackingNumber.Value)
		}
		return nil, errors.Wrap(err, "update import record")
	}
	return rec, nil
}

// ApplyImportStatus sets current_status and overwrites the date/notes pair of
// the target stage only.
func (s *Storage) ApplyImportStatus(ctx context.Context, in models.ImportStatusUpdateInput, now time.Time) (*models.ImportRecord, error) {
	st, ok := models.StageFor(in.Status)
	if !ok {
		return nil, errors.Wrapf(models.ErrValidation, "unknown status %q", in.Status)
	}

	row := s.db.QueryRow(ctx, fmt.Sprintf(`
UPDATE import_records
SET
  current_status = $2,
  %s = $3,
  %s = $4,
  updated_at = $5
WHERE id = $1
RETURNING`+recordColumns, st.DateColumn, st.NotesColumn),
		in.ID, string(in.Status), in.Date.UTC(), in.Notes, now.UTC())
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrapf(models.ErrNotFound, "import record %d", in.ID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "update import status")
	}
	return rec, nil
}

func (s *Storage) DeleteImportRecord(ctx context.Context, id uint64) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM import_records WHERE id = $1`, id)
	if err != nil {
		return false, errors.Wrap(err, "delete import record")
	}
	return tag.RowsAffected() > 0, nil
}

func filterClause(f models.ImportRecordFilter) (string, []any) {
	var conds []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != nil {
		conds = append(conds, "current_status = "+next(string(*f.Status)))
	}
	if f.TrackingNumber != nil && *f.TrackingNumber != "" {
		conds = append(conds, "tracking_number ILIKE "+next(likePattern(*f.TrackingNumber)))
	}
	if f.SupplierName != nil && *f.SupplierName != "" {
		conds = append(conds, "supplier_name ILIKE "+next(likePattern(*f.SupplierName)))
	}
	if f.DateFrom != nil {
		conds = append(conds, "created_at >= "+next(f.DateFrom.UTC()))
	}
	if f.DateTo != nil {
		conds = append(conds, "created_at <= "+next(f.DateTo.UTC()))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "\nWHERE " + strings.Join(conds, "\n  AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(sub string) string {
	return "%" + likeEscaper.Replace(sub) + "%"
}

type setBuilder struct {
	parts []string
	args  []any
}

func (b *setBuilder) add(column string, v any) {
	b.addCast(column, v, "")
}

func (b *setBuilder) addCast(column string, v any, cast string) {
	b.args = append(b.args, v)
	b.parts = append(b.parts, fmt.Sprintf("%s = $%d%s", column, len(b.args), cast))
}

func optionalColumn[T any](b *setBuilder, column string, o models.Optional[T]) {
	if o.Set {
		b.add(column, o.Value)
	}
}

func optionalTime(b *setBuilder, column string, o models.Optional[*time.Time]) {
	if o.Set {
		b.add(column, utcPtr(o.Value))
	}
}

func scanRecord(row pgx.Row) (*models.ImportRecord, error) {
	var r models.ImportRecord
	var totalValue, weight, status string
	if err := row.Scan(
		&r.ID, &r.TrackingNumber, &r.SupplierName, &r.SupplierContact, &r.GoodsDescription,
		&totalValue, &weight, &status,
		&r.OrderPlacedDate, &r.OrderPlacedNotes, &r.ShippedDate, &r.ShippedNotes,
		&r.CustomsEntryDate, &r.CustomsNotes, &r.DeliveredDate, &r.DeliveredNotes,
		&r.EcuapassReference, &r.SenaeDeclarationNumber, &r.CustomsBroker,
		&r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if r.TotalValueUSD, err = decimal.NewFromString(totalValue); err != nil {
		return nil, errors.Wrap(err, "parse total_value_usd")
	}
	if r.WeightKG, err = decimal.NewFromString(weight); err != nil {
		return nil, errors.Wrap(err, "parse weight_kg")
	}
	r.CurrentStatus = models.ImportStatus(status)
	return &r, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
