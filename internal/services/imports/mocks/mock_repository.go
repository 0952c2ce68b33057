package mocks

import (
	"context"
	"time"

	"github.com/BearBump/ImportBox/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a testify mock of imports.Repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateImportRecord(ctx context.Context, rec *models.ImportRecord) (*models.ImportRecord, error) {
	args := m.Called(ctx, rec)
	return record(args.Get(0)), args.Error(1)
}

func (m *MockRepository) GetImportRecord(ctx context.Context, id uint64) (*models.ImportRecord, error) {
	args := m.Called(ctx, id)
	return record(args.Get(0)), args.Error(1)
}

func (m *MockRepository) ListImportRecords(ctx context.Context, f models.ImportRecordFilter) ([]*models.ImportRecord, error) {
	args := m.Called(ctx, f)
	var out []*models.ImportRecord
	if v := args.Get(0); v != nil {
		out = v.([]*models.ImportRecord)
	}
	return out, args.Error(1)
}

func (m *MockRepository) UpdateImportRecord(ctx context.Context, in models.ImportRecordUpdateInput, now time.Time) (*models.ImportRecord, error) {
	args := m.Called(ctx, in, now)
	return record(args.Get(0)), args.Error(1)
}

func (m *MockRepository) ApplyImportStatus(ctx context.Context, in models.ImportStatusUpdateInput, now time.Time) (*models.ImportRecord, error) {
	args := m.Called(ctx, in, now)
	return record(args.Get(0)), args.Error(1)
}

func (m *MockRepository) DeleteImportRecord(ctx context.Context, id uint64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func record(v any) *models.ImportRecord {
	if v == nil {
		return nil
	}
	return v.(*models.ImportRecord)
}
