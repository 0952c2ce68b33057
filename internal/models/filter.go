package models

import (
	"strings"
	"time"
)

// ImportRecordFilter is a conjunction; nil or empty fields impose nothing.
type ImportRecordFilter struct {
	Status         *ImportStatus
	TrackingNumber *string // case-insensitive substring
	SupplierName   *string // case-insensitive substring
	DateFrom       *time.Time
	DateTo         *time.Time
}

func (f ImportRecordFilter) Empty() bool {
	return f.Status == nil && !hasText(f.TrackingNumber) && !hasText(f.SupplierName) &&
		f.DateFrom == nil && f.DateTo == nil
}

// Match evaluates the filter in memory. Date bounds apply to CreatedAt and are inclusive.
func (f ImportRecordFilter) Match(r *ImportRecord) bool {
	if f.Status != nil && r.CurrentStatus != *f.Status {
		return false
	}
	if hasText(f.TrackingNumber) && !containsFold(r.TrackingNumber, *f.TrackingNumber) {
		return false
	}
	if hasText(f.SupplierName) && !containsFold(r.SupplierName, *f.SupplierName) {
		return false
	}
	if f.DateFrom != nil && r.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && r.CreatedAt.After(*f.DateTo) {
		return false
	}
	return true
}

func hasText(s *string) bool {
	return s != nil && *s != ""
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
