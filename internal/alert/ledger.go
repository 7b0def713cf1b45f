// internal/alert/ledger.go - Persisted active-alert ledger
package alert

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Ledger is the durable mapping from alert key to active alert record,
// backed by a single JSON file. Load never fails the caller: a missing or
// corrupt file is treated as "no active alerts". Save is a whole-file
// overwrite; callers must treat load+mutate+save as one unit of work.
// The design assumes a single engine instance owns the file.
type Ledger struct {
	path string
}

func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// Load returns the current active-alert map. Missing or unreadable
// content yields an empty map, favoring availability over continuity.
func (l *Ledger) Load() map[string]Record {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.WithError(err).WithField("path", l.path).Warn("Failed to read alert ledger")
		}
		return map[string]Record{}
	}

	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil {
		logrus.WithError(err).WithField("path", l.path).Warn("Corrupt alert ledger, starting empty")
		return map[string]Record{}
	}
	if records == nil {
		records = map[string]Record{}
	}
	return records
}

// Save overwrites the ledger file with the given map.
func (l *Ledger) Save(records map[string]Record) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	return nil
}
