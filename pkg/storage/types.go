package storage

import "time"

// Record is a locally stored form record.
type Record struct {
	ID        int64
	AppID     int
	Fields    map[string]string
	Companies []string // selected company names, in display order
	UpdatedAt time.Time
}

// Change captures one company being added to or removed from a record's selection.
type Change struct {
	OccurredAt time.Time
	RecordID   int64
	Company    string
	ChangeType string // added | removed
}
