package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ImportStatus string

// Stages of the import pipeline, in their nominal order.
const (
	ImportStatusOrderPlaced ImportStatus = "ORDER_PLACED"
	ImportStatusShipped     ImportStatus = "SHIPPED"
	ImportStatusInCustoms   ImportStatus = "IN_CUSTOMS"
	ImportStatusDelivered   ImportStatus = "DELIVERED"
)

var importStatuses = []ImportStatus{
	ImportStatusOrderPlaced,
	ImportStatusShipped,
	ImportStatusInCustoms,
	ImportStatusDelivered,
}

// ImportStatuses returns the pipeline stages in order.
func ImportStatuses() []ImportStatus {
	return append([]ImportStatus(nil), importStatuses...)
}

func (s ImportStatus) Valid() bool {
	for _, v := range importStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type ImportRecord struct {
	ID               uint64          `json:"id"`
	TrackingNumber   string          `json:"tracking_number"`
	SupplierName     string          `json:"supplier_name"`
	SupplierContact  *string         `json:"supplier_contact"`
	GoodsDescription string          `json:"goods_description"`
	TotalValueUSD    decimal.Decimal `json:"total_value_usd"`
	WeightKG         decimal.Decimal `json:"weight_kg"`
	CurrentStatus    ImportStatus    `json:"current_status"`

	OrderPlacedDate  *time.Time `json:"order_placed_date"`
	OrderPlacedNotes *string    `json:"order_placed_notes"`
	ShippedDate      *time.Time `json:"shipped_date"`
	ShippedNotes     *string    `json:"shipped_notes"`
	CustomsEntryDate *time.Time `json:"customs_entry_date"`
	CustomsNotes     *string    `json:"customs_notes"`
	DeliveredDate    *time.Time `json:"delivered_date"`
	DeliveredNotes   *string    `json:"delivered_notes"`

	EcuapassReference      *string `json:"ecuapass_reference"`
	SenaeDeclarationNumber *string `json:"senae_declaration_number"`
	CustomsBroker          *string `json:"customs_broker"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can't alias stored pointers.
func (r *ImportRecord) Clone() *ImportRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.SupplierContact = cloneString(r.SupplierContact)
	c.OrderPlacedDate = cloneTime(r.OrderPlacedDate)
	c.OrderPlacedNotes = cloneString(r.OrderPlacedNotes)
	c.ShippedDate = cloneTime(r.ShippedDate)
	c.ShippedNotes = cloneString(r.ShippedNotes)
	c.CustomsEntryDate = cloneTime(r.CustomsEntryDate)
	c.CustomsNotes = cloneString(r.CustomsNotes)
	c.DeliveredDate = cloneTime(r.DeliveredDate)
	c.DeliveredNotes = cloneString(r.DeliveredNotes)
	c.EcuapassReference = cloneString(r.EcuapassReference)
	c.SenaeDeclarationNumber = cloneString(r.SenaeDeclarationNumber)
	c.CustomsBroker = cloneString(r.CustomsBroker)
	return &c
}

type ImportRecordCreateInput struct {
	TrackingNumber   string          `json:"tracking_number"`
	SupplierName     string          `json:"supplier_name"`
	SupplierContact  *string         `json:"supplier_contact"`
	GoodsDescription string          `json:"goods_description"`
	TotalValueUSD    decimal.Decimal `json:"total_value_usd"`
	WeightKG         decimal.Decimal `json:"weight_kg"`
	// Empty means ORDER_PLACED.
	CurrentStatus    ImportStatus `json:"current_status"`
	OrderPlacedDate  *time.Time   `json:"order_placed_date"`
	OrderPlacedNotes *string      `json:"order_placed_notes"`

	EcuapassReference      *string `json:"ecuapass_reference"`
	SenaeDeclarationNumber *string `json:"senae_declaration_number"`
	CustomsBroker          *string `json:"customs_broker"`
}

// ImportRecordUpdateInput is a partial update: only fields with Set=true are
// written. For nullable columns an explicit JSON null clears the value.
type ImportRecordUpdateInput struct {
	ID uint64 `json:"id"`

	TrackingNumber   Optional[string]          `json:"tracking_number"`
	SupplierName     Optional[string]          `json:"supplier_name"`
	SupplierContact  Optional[*string]         `json:"supplier_contact"`
	GoodsDescription Optional[string]          `json:"goods_description"`
	TotalValueUSD    Optional[decimal.Decimal] `json:"total_value_usd"`
	WeightKG         Optional[decimal.Decimal] `json:"weight_kg"`
	CurrentStatus    Optional[ImportStatus]    `json:"current_status"`

	OrderPlacedDate  Optional[*time.Time] `json:"order_placed_date"`
	OrderPlacedNotes Optional[*string]    `json:"order_placed_notes"`
	ShippedDate      Optional[*time.Time] `json:"shipped_date"`
	ShippedNotes     Optional[*string]    `json:"shipped_notes"`
	CustomsEntryDate Optional[*time.Time] `json:"customs_entry_date"`
	CustomsNotes     Optional[*string]    `json:"customs_notes"`
	DeliveredDate    Optional[*time.Time] `json:"delivered_date"`
	DeliveredNotes   Optional[*string]    `json:"delivered_notes"`

	EcuapassReference      Optional[*string] `json:"ecuapass_reference"`
	SenaeDeclarationNumber Optional[*string] `json:"senae_declaration_number"`
	CustomsBroker          Optional[*string] `json:"customs_broker"`
}

// Apply writes every set field onto r. UpdatedAt is left to the caller.
func (in ImportRecordUpdateInput) Apply(r *ImportRecord) {
	in.TrackingNumber.assign(&r.TrackingNumber)
	in.SupplierName.assign(&r.SupplierName)
	in.SupplierContact.assign(&r.SupplierContact)
	in.GoodsDescription.assign(&r.GoodsDescription)
	in.TotalValueUSD.assign(&r.TotalValueUSD)
	in.WeightKG.assign(&r.WeightKG)
	in.CurrentStatus.assign(&r.CurrentStatus)
	in.OrderPlacedDate.assign(&r.OrderPlacedDate)
	in.OrderPlacedNotes.assign(&r.OrderPlacedNotes)
	in.ShippedDate.assign(&r.ShippedDate)
	in.ShippedNotes.assign(&r.ShippedNotes)
	in.CustomsEntryDate.assign(&r.CustomsEntryDate)
	in.CustomsNotes.assign(&r.CustomsNotes)
	in.DeliveredDate.assign(&r.DeliveredDate)
	in.DeliveredNotes.assign(&r.DeliveredNotes)
	in.EcuapassReference.assign(&r.EcuapassReference)
	in.SenaeDeclarationNumber.assign(&r.SenaeDeclarationNumber)
	in.CustomsBroker.assign(&r.CustomsBroker)
}

type ImportStatusUpdateInput struct {
	ID     uint64       `json:"id"`
	Status ImportStatus `json:"status"`
	Date   time.Time    `json:"date"`
	Notes  *string      `json:"notes"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
