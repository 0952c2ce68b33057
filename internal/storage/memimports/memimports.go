// Package memimports keeps import records in process memory. It backs the
// "memory" storage mode and gives tests an isolated store per instance.
package memimports

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BearBump/ImportBox/internal/models"
	"github.com/pkg/errors"
)

type Storage struct {
	mu         sync.RWMutex
	seq        uint64
	records    map[uint64]*models.ImportRecord
	byTracking map[string]uint64
}

func New() *Storage {
	return &Storage{
		records:    make(map[uint64]*models.ImportRecord),
		byTracking: make(map[string]uint64),
	}
}

func (s *Storage) Close() {}

func (s *Storage) CreateImportRecord(_ context.Context, rec *models.ImportRecord) (*models.ImportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byTracking[rec.TrackingNumber]; ok {
		return nil, errors.Wrapf(models.ErrConstraintViolation, "tracking number %q already exists", rec.TrackingNumber)
	}

	s.seq++
	stored := rec.Clone()
	stored.ID = s.seq
	s.records[stored.ID] = stored
	s.byTracking[stored.TrackingNumber] = stored.ID
	return stored.Clone(), nil
}

func (s *Storage) GetImportRecord(_ context.Context, id uint64) (*models.ImportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

// ListImportRecords orders by CreatedAt descending; equal timestamps keep
// insertion order (ascending id).
func (s *Storage) ListImportRecords(_ context.Context, f models.ImportRecordFilter) ([]*models.ImportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ImportRecord, 0, len(s.records))
	for _, rec := range s.records {
		if f.Match(rec) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Storage) UpdateImportRecord(_ context.Context, in models.ImportRecordUpdateInput, now time.Time) (*models.ImportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[in.ID]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "import record %d", in.ID)
	}
	if in.TrackingNumber.Set && in.TrackingNumber.Value != cur.TrackingNumber {
		if _, taken := s.byTracking[in.TrackingNumber.Value]; taken {
			return nil, errors.Wrapf(models.ErrConstraintViolation, "tracking number %q already exists", in.TrackingNumber.Value)
		}
	}

	next := cur.Clone()
	in.Apply(next)
	next.UpdatedAt = now

	if next.TrackingNumber != cur.TrackingNumber {
		delete(s.byTracking, cur.TrackingNumber)
		s.byTracking[next.TrackingNumber] = next.ID
	}
	s.records[next.ID] = next
	return next.Clone(), nil
}

func (s *Storage) ApplyImportStatus(_ context.Context, in models.ImportStatusUpdateInput, now time.Time) (*models.ImportRecord, error) {
	st, ok := models.StageFor(in.Status)
	if !ok {
		return nil, errors.Wrapf(models.ErrValidation, "unknown status %q", in.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[in.ID]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "import record %d", in.ID)
	}
	next := cur.Clone()
	st.Apply(next, in.Date, in.Notes)
	next.UpdatedAt = now
	s.records[next.ID] = next
	return next.Clone(), nil
}

func (s *Storage) DeleteImportRecord(_ context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return false, nil
	}
	delete(s.records, id)
	delete(s.byTracking, rec.TrackingNumber)
	return true, nil
}
