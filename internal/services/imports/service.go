package imports

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BearBump/ImportBox/internal/broker/messages"
	"github.com/BearBump/ImportBox/internal/cache"
	"github.com/BearBump/ImportBox/internal/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Repository interface {
	CreateImportRecord(ctx context.Context, rec *models.ImportRecord) (*models.ImportRecord, error)
	GetImportRecord(ctx context.Context, id uint64) (*models.ImportRecord, error)
	ListImportRecords(ctx context.Context, f models.ImportRecordFilter) ([]*models.ImportRecord, error)
	UpdateImportRecord(ctx context.Context, in models.ImportRecordUpdateInput, now time.Time) (*models.ImportRecord, error)
	ApplyImportStatus(ctx context.Context, in models.ImportStatusUpdateInput, now time.Time) (*models.ImportRecord, error)
	DeleteImportRecord(ctx context.Context, id uint64) (bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Column precision of NUMERIC(12,2) and NUMERIC(10,3).
var (
	valueLimit  = decimal.New(1, 10)
	weightLimit = decimal.New(1, 7)
)

const (
	valueScale  = 2
	weightScale = 3
)

type Service struct {
	repo     Repository
	cache    cache.BytesCache
	cacheTTL time.Duration
	// id -> struct{}: ids whose cached copy could not be dropped.
	unsynced sync.Map

	publisher Publisher
	topic     string

	now func() time.Time
}

func New(repo Repository, c cache.BytesCache, cacheTTL time.Duration) *Service {
	return &Service{
		repo:     repo,
		cache:    c,
		cacheTTL: cacheTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithPublisher enables change events on topic. A nil publisher disables them.
func (s *Service) WithPublisher(p Publisher, topic string) *Service {
	s.publisher = p
	s.topic = topic
	return s
}

func (s *Service) CreateImportRecord(ctx context.Context, in models.ImportRecordCreateInput) (*models.ImportRecord, error) {
	if err := requireText("tracking_number", in.TrackingNumber); err != nil {
		return nil, err
	}
	if err := requireText("supplier_name", in.SupplierName); err != nil {
		return nil, err
	}
	if err := requireText("goods_description", in.GoodsDescription); err != nil {
		return nil, err
	}
	if err := checkAmount("total_value_usd", in.TotalValueUSD, valueScale, valueLimit); err != nil {
		return nil, err
	}
	if err := checkAmount("weight_kg", in.WeightKG, weightScale, weightLimit); err != nil {
		return nil, err
	}
	status := in.CurrentStatus
	if status == "" {
		status = models.ImportStatusOrderPlaced
	}
	if !status.Valid() {
		return nil, errors.Wrapf(models.ErrValidation, "unknown status %q", status)
	}

	now := s.now()
	rec, err := s.repo.CreateImportRecord(ctx, &models.ImportRecord{
		TrackingNumber:         in.TrackingNumber,
		SupplierName:           in.SupplierName,
		SupplierContact:        in.SupplierContact,
		GoodsDescription:       in.GoodsDescription,
		TotalValueUSD:          in.TotalValueUSD,
		WeightKG:               in.WeightKG,
		CurrentStatus:          status,
		OrderPlacedDate:        in.OrderPlacedDate,
		OrderPlacedNotes:       in.OrderPlacedNotes,
		EcuapassReference:      in.EcuapassReference,
		SenaeDeclarationNumber: in.SenaeDeclarationNumber,
		CustomsBroker:          in.CustomsBroker,
		CreatedAt:              now,
		UpdatedAt:              now,
	})
	if err != nil {
		return nil, err
	}

	s.remember(ctx, rec)
	s.publish(ctx, messages.EventCreated, rec.ID, rec)
	return rec, nil
}

func (s *Service) ListImportRecords(ctx context.Context, f models.ImportRecordFilter) ([]*models.ImportRecord, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, errors.Wrapf(models.ErrValidation, "unknown status %q", *f.Status)
	}
	return s.repo.ListImportRecords(ctx, f)
}

// GetImportRecord returns (nil, nil) when no record has this id.
func (s *Service) GetImportRecord(ctx context.Context, id uint64) (*models.ImportRecord, error) {
	if s.cacheEnabled() && !s.isUnsynced(id) {
		b, ok, err := s.cache.Get(ctx, recordKey(id))
		if err == nil && ok {
			var rec models.ImportRecord
			if json.Unmarshal(b, &rec) == nil {
				return &rec, nil
			}
		}
	}

	rec, err := s.repo.GetImportRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case rec != nil:
		s.remember(ctx, rec)
	case s.isUnsynced(id):
		s.forget(ctx, id)
	}
	return rec, nil
}

// UpdateImportRecord writes the fields present in the input and nothing else.
// No status routing happens here: stage fields are taken as given.
func (s *Service) UpdateImportRecord(ctx context.Context, in models.ImportRecordUpdateInput) (*models.ImportRecord, error) {
	if in.TrackingNumber.Set {
		if err := requireText("tracking_number", in.TrackingNumber.Value); err != nil {
			return nil, err
		}
	}
	if in.SupplierName.Set {
		if err := requireText("supplier_name", in.SupplierName.Value); err != nil {
			return nil, err
		}
	}
	if in.GoodsDescription.Set {
		if err := requireText("goods_description", in.GoodsDescription.Value); err != nil {
			return nil, err
		}
	}
	if in.TotalValueUSD.Set {
		if err := checkAmount("total_value_usd", in.TotalValueUSD.Value, valueScale, valueLimit); err != nil {
			return nil, err
		}
	}
	if in.WeightKG.Set {
		if err := checkAmount("weight_kg", in.WeightKG.Value, weightScale, weightLimit); err != nil {
			return nil, err
		}
	}
	if in.CurrentStatus.Set && !in.CurrentStatus.Value.Valid() {
		return nil, errors.Wrapf(models.ErrValidation, "unknown status %q", in.CurrentStatus.Value)
	}

	s.forget(ctx, in.ID)
	rec, err := s.repo.UpdateImportRecord(ctx, in, s.now())
	if err != nil {
		return nil, err
	}

	s.remember(ctx, rec)
	s.publish(ctx, messages.EventUpdated, rec.ID, rec)
	return rec, nil
}

// UpdateImportStatus moves a record to in.Status and records date/notes in
// that stage's slot. Any status may follow any other.
func (s *Service) UpdateImportStatus(ctx context.Context, in models.ImportStatusUpdateInput) (*models.ImportRecord, error) {
	if !in.Status.Valid() {
		return nil, errors.Wrapf(models.ErrValidation, "unknown status %q", in.Status)
	}
	if in.Date.IsZero() {
		return nil, errors.Wrap(models.ErrValidation, "date is required")
	}

	s.forget(ctx, in.ID)
	rec, err := s.repo.ApplyImportStatus(ctx, in, s.now())
	if err != nil {
		return nil, err
	}

	s.remember(ctx, rec)
	s.publish(ctx, messages.EventStatusChanged, rec.ID, rec)
	return rec, nil
}

// DeleteImportRecord reports false, not an error, when the id is unknown.
func (s *Service) DeleteImportRecord(ctx context.Context, id uint64) (bool, error) {
	s.forget(ctx, id)
	ok, err := s.repo.DeleteImportRecord(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		s.publish(ctx, messages.EventDeleted, id, nil)
	}
	return ok, nil
}

// ApplyStatusRequest handles a transition requested over the broker.
// Requests that can never succeed (bad input, unknown record) are dropped
// with a warning so the consumer can move on.
func (s *Service) ApplyStatusRequest(ctx context.Context, msg messages.StatusUpdateRequested) error {
	_, err := s.UpdateImportStatus(ctx, models.ImportStatusUpdateInput{
		ID:     msg.RecordID,
		Status: msg.Status,
		Date:   msg.Date,
		Notes:  msg.Notes,
	})
	if errors.Is(err, models.ErrValidation) || errors.Is(err, models.ErrNotFound) {
		slog.Warn("status request dropped", "record_id", msg.RecordID, "status", msg.Status, "err", err)
		return nil
	}
	return err
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.cacheTTL > 0
}

func (s *Service) remember(ctx context.Context, rec *models.ImportRecord) {
	if !s.cacheEnabled() {
		return
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, recordKey(rec.ID), b, s.cacheTTL); err != nil {
		slog.Warn("import record cache write failed", "record_id", rec.ID, "err", err)
		// старая копия не должна пережить неудачную запись
		s.forget(ctx, rec.ID)
		return
	}
	s.unsynced.Delete(rec.ID)
}

// forget drops the cached copy of id. If that fails, reads of id bypass the
// cache until a later write or delete for it goes through.
func (s *Service) forget(ctx context.Context, id uint64) {
	if !s.cacheEnabled() {
		return
	}
	if err := s.cache.Delete(ctx, recordKey(id)); err != nil {
		slog.Warn("import record cache invalidation failed", "record_id", id, "err", err)
		s.unsynced.Store(id, struct{}{})
		return
	}
	s.unsynced.Delete(id)
}

func (s *Service) isUnsynced(id uint64) bool {
	_, ok := s.unsynced.Load(id)
	return ok
}

func (s *Service) publish(ctx context.Context, event string, id uint64, rec *models.ImportRecord) {
	if s.publisher == nil || s.topic == "" {
		return
	}
	m := messages.RecordChanged{Event: event, RecordID: id, OccurredAt: s.now()}
	if rec != nil {
		m.TrackingNumber = rec.TrackingNumber
		m.Status = rec.CurrentStatus
	}
	b, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, s.topic, []byte(strconv.FormatUint(id, 10)), b); err != nil {
		slog.Warn("import record event publish failed", "record_id", id, "event", event, "err", err)
	}
}

func recordKey(id uint64) string {
	return fmt.Sprintf("import:%d:record", id)
}

func requireText(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return errors.Wrapf(models.ErrValidation, "%s is required", field)
	}
	return nil
}

func checkAmount(field string, d decimal.Decimal, scale int32, limit decimal.Decimal) error {
	if !d.IsPositive() {
		return errors.Wrapf(models.ErrValidation, "%s must be positive", field)
	}
	if !d.Equal(d.Truncate(scale)) {
		return errors.Wrapf(models.ErrValidation, "%s allows at most %d decimal places", field, scale)
	}
	if d.GreaterThanOrEqual(limit) {
		return errors.Wrapf(models.ErrValidation, "%s must be less than %s", field, limit.String())
	}
	return nil
}
