package models

import "time"

// Stage describes the (date, notes) slot a status transition writes to.
type Stage struct {
	Status      ImportStatus
	DateColumn  string
	NotesColumn string

	slot func(r *ImportRecord) (**time.Time, **string)
}

var stages = map[ImportStatus]Stage{
	ImportStatusOrderPlaced: {
		Status: ImportStatusOrderPlaced, DateColumn: "order_placed_date", NotesColumn: "order_placed_notes",
		slot: func(r *ImportRecord) (**time.Time, **string) { return &r.OrderPlacedDate, &r.OrderPlacedNotes },
	},
	ImportStatusShipped: {
		Status: ImportStatusShipped, DateColumn: "shipped_date", NotesColumn: "shipped_notes",
		slot: func(r *ImportRecord) (**time.Time, **string) { return &r.ShippedDate, &r.ShippedNotes },
	},
	ImportStatusInCustoms: {
		Status: ImportStatusInCustoms, DateColumn: "customs_entry_date", NotesColumn: "customs_notes",
		slot: func(r *ImportRecord) (**time.Time, **string) { return &r.CustomsEntryDate, &r.CustomsNotes },
	},
	ImportStatusDelivered: {
		Status: ImportStatusDelivered, DateColumn: "delivered_date", NotesColumn: "delivered_notes",
		slot: func(r *ImportRecord) (**time.Time, **string) { return &r.DeliveredDate, &r.DeliveredNotes },
	},
}

func StageFor(s ImportStatus) (Stage, bool) {
	st, ok := stages[s]
	return st, ok
}

// Apply sets the current status and overwrites this stage's date/notes.
// Other stages' slots are never touched.
func (st Stage) Apply(r *ImportRecord, date time.Time, notes *string) {
	r.CurrentStatus = st.Status
	d, n := st.slot(r)
	*d = &date
	*n = cloneString(notes)
}

// Slot reads this stage's date/notes from r.
func (st Stage) Slot(r *ImportRecord) (*time.Time, *string) {
	d, n := st.slot(r)
	return *d, *n
}
