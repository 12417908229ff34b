package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked means another process already serves the database.
var ErrLocked = errors.New("database is in use by another kselect server")

// ResolvePath returns the absolute database path, defaulting to
// ~/.config/kselect/records.sqlite.
func ResolvePath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "kselect", "records.sqlite"), nil
	}
	return filepath.Abs(dbPath)
}

// OpenExclusive opens the database and holds a lock file next to it until
// Close. The form server keeps pages in memory per record, so two servers
// on one database would each believe they own the record forms; the
// second one fails fast with ErrLocked instead of waiting.
func OpenExclusive(dbPath string) (*DB, error) {
	absPath, err := ResolvePath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not resolve db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, err
	}

	lock := flock.New(absPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", absPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, absPath)
	}

	db, err := Open(absPath)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	db.lock = lock
	return db, nil
}
