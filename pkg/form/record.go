package form

import (
	"github.com/sw33tLie/kselect/pkg/codec"
	"github.com/sw33tLie/kselect/pkg/config"
)

// Lifecycle event types raised by the form host.
const (
	EventCreateShow   = "app.record.create.show"
	EventEditShow     = "app.record.edit.show"
	EventCreateSubmit = "app.record.create.submit"
	EventEditSubmit   = "app.record.edit.submit"
)

var (
	ShowEvents   = []string{EventCreateShow, EventEditShow}
	SubmitEvents = []string{EventCreateSubmit, EventEditSubmit}
)

// Field is one field of a record.
type Field struct {
	Type  string `json:"type,omitempty"`
	Value string `json:"value"`
}

// Record maps field codes to fields. A code that is not in the map does
// not exist on the form schema.
type Record map[string]*Field

// Has reports whether the field exists on the record.
func (r Record) Has(code string) bool {
	if code == "" {
		return false
	}
	_, ok := r[code]
	return ok
}

// Value returns the value of a field, or "" when it does not exist.
func (r Record) Value(code string) string {
	if f, ok := r[code]; ok && f != nil {
		return f.Value
	}
	return ""
}

// Set writes value, creating the field when needed.
func (r Record) Set(code, value string) {
	if f, ok := r[code]; ok && f != nil {
		f.Value = value
		return
	}
	r[code] = &Field{Value: value}
}

// SetIfExists writes value only when the field exists on the record.
func (r Record) SetIfExists(code, value string) bool {
	if !r.Has(code) {
		return false
	}
	r.Set(code, value)
	return true
}

func (r Record) optional(code string) *string {
	if !r.Has(code) {
		return nil
	}
	v := r.Value(code)
	return &v
}

// Stored collects the store fields named by f.
func (r Record) Stored(f config.Form) codec.Stored {
	return codec.Stored{
		Names:          r.Value(f.StoreField),
		BpoIDs:         r.optional(f.BpoIDStoreField),
		GoogleDriveIDs: r.optional(f.GoogleDriveIDStoreField),
		Structured:     r.optional(f.StructuredStoreField),
	}
}

// Event is what the host hands to a lifecycle handler.
type Event struct {
	Type     string `json:"type"`
	AppID    int    `json:"appId"`
	RecordID int64  `json:"recordId,omitempty"`
	Record   Record `json:"record"`
}
