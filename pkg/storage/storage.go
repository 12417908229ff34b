package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("record not found")

type DB struct {
	sql  *sql.DB
	lock *flock.Flock // set by OpenExclusive
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS records (
  id          INTEGER PRIMARY KEY,
  app_id      INTEGER NOT NULL DEFAULT 0,
  fields      TEXT NOT NULL,
  created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS record_companies (
  record_id   INTEGER NOT NULL REFERENCES records(id) ON DELETE CASCADE,
  position    INTEGER NOT NULL,
  name        TEXT NOT NULL,
  PRIMARY KEY (record_id, position)
);
CREATE TABLE IF NOT EXISTS selection_changes (
  id          INTEGER PRIMARY KEY,
  occurred_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  record_id   INTEGER NOT NULL,
  company     TEXT NOT NULL,
  change_type TEXT NOT NULL CHECK (change_type IN ('added','removed'))
);
CREATE INDEX IF NOT EXISTS idx_changes_time ON selection_changes(occurred_at);
CREATE INDEX IF NOT EXISTS idx_changes_record ON selection_changes(record_id, occurred_at);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	err := d.sql.Close()
	if d.lock != nil {
		if uerr := d.lock.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}

// SaveRecord inserts rec when rec.ID is 0 and updates it otherwise. It
// returns the stored record and the selection changes it caused.
func (d *DB) SaveRecord(ctx context.Context, rec Record) (saved Record, changes []Change, err error) {
	now := time.Now().UTC()

	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return Record{}, nil, err
	}

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return Record{}, nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var previous []string
	if rec.ID == 0 {
		res, ierr := tx.ExecContext(ctx, `INSERT INTO records(app_id, fields, created_at, updated_at) VALUES(?,?,CURRENT_TIMESTAMP,CURRENT_TIMESTAMP)`, rec.AppID, string(fieldsJSON))
		if ierr != nil {
			err = ierr
			return Record{}, nil, err
		}
		if rec.ID, err = res.LastInsertId(); err != nil {
			return Record{}, nil, err
		}
	} else {
		res, uerr := tx.ExecContext(ctx, `UPDATE records SET app_id = ?, fields = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, rec.AppID, string(fieldsJSON), rec.ID)
		if uerr != nil {
			err = uerr
			return Record{}, nil, err
		}
		n, rerr := res.RowsAffected()
		if rerr != nil {
			err = rerr
			return Record{}, nil, err
		}
		if n == 0 {
			err = ErrNotFound
			return Record{}, nil, err
		}
		if previous, err = companiesTx(ctx, tx, rec.ID); err != nil {
			return Record{}, nil, err
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM record_companies WHERE record_id = ?`, rec.ID); err != nil {
		return Record{}, nil, err
	}
	for i, name := range rec.Companies {
		if _, err = tx.ExecContext(ctx, `INSERT INTO record_companies(record_id, position, name) VALUES(?,?,?)`, rec.ID, i, name); err != nil {
			return Record{}, nil, err
		}
	}

	for _, c := range diffSelection(previous, rec.Companies) {
		if _, err = tx.ExecContext(ctx, `INSERT INTO selection_changes(occurred_at, record_id, company, change_type) VALUES(CURRENT_TIMESTAMP, ?, ?, ?)`, rec.ID, c.Company, c.ChangeType); err != nil {
			return Record{}, nil, err
		}
		c.OccurredAt = now
		c.RecordID = rec.ID
		changes = append(changes, c)
	}

	if err = tx.Commit(); err != nil {
		return Record{}, nil, err
	}
	rec.UpdatedAt = now
	return rec, changes, nil
}

func diffSelection(previous, current []string) []Change {
	prev := make(map[string]struct{}, len(previous))
	for _, p := range previous {
		prev[p] = struct{}{}
	}
	cur := make(map[string]struct{}, len(current))
	var out []Change
	for _, c := range current {
		cur[c] = struct{}{}
		if _, ok := prev[c]; !ok {
			out = append(out, Change{Company: c, ChangeType: "added"})
		}
	}
	for _, p := range previous {
		if _, ok := cur[p]; !ok {
			out = append(out, Change{Company: p, ChangeType: "removed"})
		}
	}
	return out
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func companiesTx(ctx context.Context, q querier, id int64) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT name FROM record_companies WHERE record_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// GetRecord loads one record, or ErrNotFound.
func (d *DB) GetRecord(ctx context.Context, id int64) (Record, error) {
	var (
		rec        Record
		fieldsJSON string
		updatedAt  string
	)
	err := d.sql.QueryRowContext(ctx, `SELECT id, app_id, fields, updated_at FROM records WHERE id = ?`, id).Scan(&rec.ID, &rec.AppID, &fieldsJSON, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(fieldsJSON), &rec.Fields); err != nil {
		return Record{}, err
	}
	rec.UpdatedAt = parseTimestamp(updatedAt)
	if rec.Companies, err = companiesTx(ctx, d.sql, id); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ListRecords returns the most recently updated records first.
func (d *DB) ListRecords(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx, `SELECT id FROM records ORDER BY updated_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	out := []Record{}
	for _, id := range ids {
		rec, err := d.GetRecord(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListRecentChanges returns the most recent N selection changes across all records.
func (d *DB) ListRecentChanges(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT occurred_at, record_id, company, change_type FROM selection_changes ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var c Change
		var occurredAtStr string
		if err := rows.Scan(&occurredAtStr, &c.RecordID, &c.Company, &c.ChangeType); err != nil {
			return nil, err
		}
		c.OccurredAt = parseTimestamp(occurredAtStr)
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

// parseTimestamp parses SQLite CURRENT_TIMESTAMP output, falling back to RFC3339.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
