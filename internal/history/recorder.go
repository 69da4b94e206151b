// Package history remembers when each credential was last written, using
// SoloDB. Records expire after the retention period. Secrets are never
// stored.
package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	solodb "github.com/phillarmonic/SoloDB"
)

// Record is the last update attempt for one credential
type Record struct {
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	OK        bool      `json:"ok"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Stats summarises the history database
type Stats struct {
	Keys        int
	FileBytes   int64
	LiveRecords int64
}

// Recorder stores update records with expiration
type Recorder struct {
	db        *solodb.DB
	retention time.Duration
	disabled  bool
}

// Open opens (or creates) the history database at path. A disabled recorder
// accepts every call and stores nothing.
func Open(path string, retention time.Duration, disabled bool) (*Recorder, error) {
	if disabled {
		return &Recorder{
			disabled:  true,
			retention: retention,
		}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := solodb.Open(solodb.Options{
		Path:       path,
		Durability: solodb.SyncBatch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	return &Recorder{
		db:        db,
		retention: retention,
	}, nil
}

func key(name string) string {
	return "credential:" + name
}

// Record stores the outcome of writing name, replacing any earlier record
func (r *Recorder) Record(name, username string, ok bool) error {
	if r.disabled {
		return nil
	}

	now := time.Now()
	data, err := json.Marshal(Record{
		Name:      name,
		Username:  username,
		OK:        ok,
		UpdatedAt: now.UTC(),
	})
	if err != nil {
		return fmt.Errorf("history encode error: %w", err)
	}

	if err := r.db.SetBlob(key(name), bytes.NewReader(data), int64(len(data)), now.Add(r.retention)); err != nil {
		return fmt.Errorf("history write error: %w", err)
	}
	return nil
}

// Last returns the most recent record for name.
// Returns: record, found (false if missing or expired), error
func (r *Recorder) Last(name string) (*Record, bool, error) {
	if r.disabled {
		return nil, false, nil
	}

	rc, _, _, err := r.db.GetBlob(key(name))
	if err == solodb.ErrNotFound || err == solodb.ErrExpired {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("history read error: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, fmt.Errorf("history read error: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("history decode error: %w", err)
	}
	return &rec, true, nil
}

// Forget removes the record for name
func (r *Recorder) Forget(name string) error {
	if r.disabled {
		return nil
	}

	err := r.db.Delete(key(name))
	if err == solodb.ErrNotFound {
		return nil
	}
	return err
}

// Stats returns database statistics
func (r *Recorder) Stats() Stats {
	if r.disabled || r.db == nil {
		return Stats{}
	}

	dbStats := r.db.Stats()
	return Stats{
		Keys:        dbStats.Keys,
		FileBytes:   dbStats.FileBytes,
		LiveRecords: int64(dbStats.LiveRecords),
	}
}

// Compact reclaims space left by replaced and expired records
func (r *Recorder) Compact() error {
	if r.disabled || r.db == nil {
		return nil
	}

	return r.db.Compact()
}

// Close closes the history database
func (r *Recorder) Close() error {
	if r.disabled || r.db == nil {
		return nil
	}

	return r.db.Close()
}
