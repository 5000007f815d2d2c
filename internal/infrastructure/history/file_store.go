package history

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/doeshing/agentguard/internal/domain"
	"github.com/doeshing/agentguard/internal/ports"
)

// FileStore appends decision records to a jsonl file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by the jsonl file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save implements ports.DecisionLog.
func (f *FileStore) Save(record domain.DecisionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), domain.DirectoryPermissions); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, domain.SecureFilePermissions)
	if err != nil {
		return err
	}
	defer file.Close()
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = file.Write(data)
	return err
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Clear removes the log file.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Records returns entries newest first, optionally filtered by a substring
// of the subject, rule or explanation. Malformed lines are skipped.
func (f *FileStore) Records(limit int, search string) ([]domain.DecisionRecord, error) {
	f.mu.Lock()
	all, err := f.readAll()
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var records []domain.DecisionRecord
	for i := len(all) - 1; i >= 0; i-- {
		if !matches(all[i], search) {
			continue
		}
		records = append(records, all[i])
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	return records, nil
}

// ExportJSON copies the log to dest as jsonl.
func (f *FileStore) ExportJSON(dest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			data = nil
		} else {
			return err
		}
	}
	return os.WriteFile(dest, data, domain.SecureFilePermissions)
}

// PruneBefore removes entries older than cutoff and reports how many were
// dropped.
func (f *FileStore) PruneBefore(cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all, err := f.readAll()
	if err != nil || len(all) == 0 {
		return 0, err
	}
	var buf bytes.Buffer
	removed := 0
	for _, rec := range all {
		if rec.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		data, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, os.WriteFile(f.path, buf.Bytes(), domain.SecureFilePermissions)
}

func (f *FileStore) readAll() ([]domain.DecisionRecord, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var records []domain.DecisionRecord
	for _, line := range bytes.Split(bytes.TrimSpace(data), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var rec domain.DecisionRecord
		if err := json.Unmarshal(line, &rec); err == nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

func matches(rec domain.DecisionRecord, search string) bool {
	if search == "" {
		return true
	}
	return strings.Contains(rec.Subject, search) ||
		strings.Contains(rec.Rule, search) ||
		strings.Contains(rec.Explanation, search) ||
		string(rec.Decision) == search
}

var _ ports.DecisionLog = (*FileStore)(nil)
