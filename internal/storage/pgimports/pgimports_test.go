package pgimports

import (
	"context"
	"testing"
	"time"

	"github.com/BearBump/ImportBox/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container test skipped in -short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "importbox_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/importbox_test?sslmode=disable"
	st, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func newRecord(tn, supplier string, createdAt time.Time) *models.ImportRecord {
	return &models.ImportRecord{
		TrackingNumber:   tn,
		SupplierName:     supplier,
		GoodsDescription: "Spare parts",
		TotalValueUSD:    decimal.RequireFromString("1234.56"),
		WeightKG:         decimal.RequireFromString("12.345"),
		CurrentStatus:    models.ImportStatusOrderPlaced,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
}

func TestPGImports_RepoFlow(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	a, err := st.CreateImportRecord(ctx, newRecord("ABC123", "Supplier One", base))
	require.NoError(t, err)
	require.NotZero(t, a.ID)
	require.True(t, decimal.RequireFromString("1234.56").Equal(a.TotalValueUSD))
	require.True(t, decimal.RequireFromString("12.345").Equal(a.WeightKG))

	_, err = st.CreateImportRecord(ctx, newRecord("ABC123", "Other", base))
	require.ErrorIs(t, err, models.ErrConstraintViolation)

	b, err := st.CreateImportRecord(ctx, newRecord("XYZ-9", "Supplier Two", base.Add(time.Hour)))
	require.NoError(t, err)
	c, err := st.CreateImportRecord(ctx, newRecord("Q_1%", "Different Company", base.Add(2*time.Hour)))
	require.NoError(t, err)

	// ordering: newest first
	all, err := st.ListImportRecords(ctx, models.ImportRecordFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []uint64{c.ID, b.ID, a.ID}, []uint64{all[0].ID, all[1].ID, all[2].ID})

	sup := "supplier"
	got, err := st.ListImportRecords(ctx, models.ImportRecordFilter{SupplierName: &sup})
	require.NoError(t, err)
	require.Len(t, got, 2)

	tn := "abc"
	got, err = st.ListImportRecords(ctx, models.ImportRecordFilter{TrackingNumber: &tn})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, a.ID, got[0].ID)

	// LIKE metacharacters match literally
	pct := "%"
	got, err = st.ListImportRecords(ctx, models.ImportRecordFilter{TrackingNumber: &pct})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, c.ID, got[0].ID)

	from := base.Add(time.Hour)
	got, err = st.ListImportRecords(ctx, models.ImportRecordFilter{DateFrom: &from})
	require.NoError(t, err)
	require.Len(t, got, 2)

	// status transition
	notes := "left port"
	shippedAt := base.Add(24 * time.Hour)
	upd, err := st.ApplyImportStatus(ctx, models.ImportStatusUpdateInput{
		ID: a.ID, Status: models.ImportStatusShipped, Date: shippedAt, Notes: &notes,
	}, time.Now())
	require.NoError(t, err)
	require.Equal(t, models.ImportStatusShipped, upd.CurrentStatus)
	require.WithinDuration(t, shippedAt, *upd.ShippedDate, time.Millisecond)
	require.Equal(t, "left port", *upd.ShippedNotes)
	require.Nil(t, upd.OrderPlacedDate)

	shipped := models.ImportStatusShipped
	got, err = st.ListImportRecords(ctx, models.ImportRecordFilter{Status: &shipped})
	require.NoError(t, err)
	require.Len(t, got, 1)

	// partial update
	upd, err = st.UpdateImportRecord(ctx, models.ImportRecordUpdateInput{
		ID:            a.ID,
		SupplierName:  models.Some("Renamed"),
		CustomsBroker: models.Some[*string](&notes),
		WeightKG:      models.Some(decimal.RequireFromString("0.001")),
	}, time.Now())
	require.NoError(t, err)
	require.Equal(t, "Renamed", upd.SupplierName)
	require.Equal(t, "ABC123", upd.TrackingNumber)
	require.Equal(t, "0.001", upd.WeightKG.String())
	require.Equal(t, models.ImportStatusShipped, upd.CurrentStatus)

	upd, err = st.UpdateImportRecord(ctx, models.ImportRecordUpdateInput{
		ID: a.ID, CustomsBroker: models.Null[string](),
	}, time.Now())
	require.NoError(t, err)
	require.Nil(t, upd.CustomsBroker)

	_, err = st.UpdateImportRecord(ctx, models.ImportRecordUpdateInput{
		ID: a.ID, TrackingNumber: models.Some("XYZ-9"),
	}, time.Now())
	require.ErrorIs(t, err, models.ErrConstraintViolation)

	_, err = st.UpdateImportRecord(ctx, models.ImportRecordUpdateInput{ID: 999_999}, time.Now())
	require.ErrorIs(t, err, models.ErrNotFound)
	_, err = st.ApplyImportStatus(ctx, models.ImportStatusUpdateInput{
		ID: 999_999, Status: models.ImportStatusDelivered, Date: time.Now(),
	}, time.Now())
	require.ErrorIs(t, err, models.ErrNotFound)

	// delete
	ok, err := st.DeleteImportRecord(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = st.DeleteImportRecord(ctx, a.ID)
	require.NoError(t, err)
	require.False(t, ok)

	missing, err := st.GetImportRecord(ctx, a.ID)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestLikePattern(t *testing.T) {
	require.Equal(t, `%abc%`, likePattern("abc"))
	require.Equal(t, `%a\%b\_c\\%`, likePattern(`a%b_c\`))
}

func TestFilterClause(t *testing.T) {
	where, args := filterClause(models.ImportRecordFilter{})
	require.Empty(t, where)
	require.Empty(t, args)

	s := models.ImportStatusDelivered
	tn := "x"
	empty := ""
	where, args = filterClause(models.ImportRecordFilter{Status: &s, TrackingNumber: &tn, SupplierName: &empty})
	require.Contains(t, where, "current_status = $1")
	require.Contains(t, where, "tracking_number ILIKE $2")
	require.NotContains(t, where, "supplier_name")
	require.Equal(t, []any{"DELIVERED", "%x%"}, args)
}
