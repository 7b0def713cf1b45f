// internal/detect/tail.go
package detect

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"hostsentry/internal/metrics"
)

// ErrSourceUnavailable is returned when the tailed file does not exist or
// cannot be opened. Callers skip the cycle without losing the checkpoint.
var ErrSourceUnavailable = errors.New("log source unavailable")

// Checkpoint persists a byte offset into the tailed file across restarts.
type Checkpoint struct {
	path string
}

func NewCheckpoint(path string) *Checkpoint {
	return &Checkpoint{path: path}
}

// Load returns the saved offset, or 0 when the checkpoint file is missing
// or corrupt. A zero offset only means the whole file is re-read once, so
// starting over is always safe.
func (c *Checkpoint) Load() int64 {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.WithError(err).WithField("path", c.path).Warn("Failed to read checkpoint, starting from beginning")
		}
		return 0
	}
	offset, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil || offset < 0 {
		logrus.WithField("path", c.path).Warn("Corrupt checkpoint, starting from beginning")
		return 0
	}
	return offset
}

func (c *Checkpoint) Save(offset int64) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	if err := os.WriteFile(c.path, []byte(strconv.FormatInt(offset, 10)), 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// Tailer reads newly appended complete lines from a log file.
type Tailer struct {
	path string
}

func NewTailer(path string) *Tailer {
	return &Tailer{path: path}
}

// ReadNew returns the complete lines appended since offset and the offset
// just past the last returned line. A trailing partial line is left for the
// next call. If the file shrank below the offset (rotation or truncation),
// reading restarts from the beginning.
func (t *Tailer) ReadNew(offset int64) ([]string, int64, error) {
	info, err := os.Stat(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, offset, ErrSourceUnavailable
		}
		return nil, offset, fmt.Errorf("failed to stat %s: %w", t.path, err)
	}

	size := info.Size()
	if size < offset {
		logrus.WithFields(logrus.Fields{
			"path":     t.path,
			"offset":   offset,
			"new_size": size,
		}).Info("Log file rotated, restarting from beginning")
		offset = 0
	}
	if size == offset {
		return nil, offset, nil
	}

	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, offset, ErrSourceUnavailable
		}
		return nil, offset, fmt.Errorf("failed to open %s: %w", t.path, err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("failed to seek in %s: %w", t.path, err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, offset, fmt.Errorf("failed to read %s: %w", t.path, err)
	}

	last := bytes.LastIndexByte(data, '\n')
	if last < 0 {
		return nil, offset, nil
	}
	consumed := data[:last+1]
	metrics.TailBytesTotal.Add(float64(len(consumed)))

	// Keep interior blank lines so the returned lines reproduce the
	// consumed byte range exactly; only the artifact after the final
	// newline is dropped.
	lines := strings.Split(string(consumed), "\n")
	lines = lines[:len(lines)-1]
	return lines, offset + int64(last+1), nil
}
