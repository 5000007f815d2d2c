package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/agentguard/internal/domain"
	"github.com/doeshing/agentguard/internal/ports"
)

// timestampLayout is fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists decision records in a SQLite database. When the
// database cannot be opened it degrades to a jsonl FileStore next to it.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	fallback *FileStore
	mu       sync.Mutex
}

// NewSQLiteStore creates (or opens) the database at path.
func NewSQLiteStore(path string) *SQLiteStore {
	fallback := NewFileStore(strings.TrimSuffix(path, filepath.Ext(path)) + ".jsonl")
	_ = os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return &SQLiteStore{path: path, fallback: fallback}
	}
	db.SetMaxOpenConns(1)
	store := &SQLiteStore{db: db, path: path, fallback: fallback}
	if err := store.init(); err != nil {
		_ = db.Close()
		return &SQLiteStore{path: path, fallback: fallback}
	}
	return store
}

func (s *SQLiteStore) init() error {
	if s.db == nil {
		return os.ErrInvalid
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT,
		session_id TEXT,
		tool_name TEXT,
		kind TEXT,
		subject TEXT,
		decision TEXT,
		rule TEXT,
		explanation TEXT,
		duration_us INTEGER
	)`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS decisions_timestamp ON decisions(timestamp)`)
	return err
}

// Degraded reports whether records go to the jsonl fallback.
func (s *SQLiteStore) Degraded() bool {
	return s.db == nil
}

// Save inserts a new record.
func (s *SQLiteStore) Save(record domain.DecisionRecord) error {
	if s.db == nil {
		return s.fallback.Save(record)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO decisions
		(timestamp, session_id, tool_name, kind, subject, decision, rule, explanation, duration_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Timestamp.UTC().Format(timestampLayout),
		record.SessionID,
		record.ToolName,
		string(record.Kind),
		record.Subject,
		string(record.Decision),
		record.Rule,
		record.Explanation,
		record.DurationMicros,
	)
	return err
}

// Records returns entries newest first (limit/search optional).
func (s *SQLiteStore) Records(limit int, search string) ([]domain.DecisionRecord, error) {
	if s.db == nil {
		return s.fallback.Records(limit, search)
	}
	builder := strings.Builder{}
	builder.WriteString("SELECT timestamp, session_id, tool_name, kind, subject, decision, rule, explanation, duration_us FROM decisions")
	var args []interface{}
	if search != "" {
		builder.WriteString(" WHERE subject LIKE ? OR rule LIKE ? OR explanation LIKE ? OR decision = ?")
		like := "%" + search + "%"
		args = append(args, like, like, like, search)
	}
	builder.WriteString(" ORDER BY id DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	rows, err := s.db.Query(builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []domain.DecisionRecord
	for rows.Next() {
		var rec domain.DecisionRecord
		var ts, kind, decision string
		if err := rows.Scan(&ts, &rec.SessionID, &rec.ToolName, &kind, &rec.Subject, &decision, &rec.Rule, &rec.Explanation, &rec.DurationMicros); err != nil {
			return nil, err
		}
		if t, err := time.Parse(timestampLayout, ts); err == nil {
			rec.Timestamp = t
		}
		rec.Kind = domain.ActionKind(kind)
		rec.Decision = domain.Decision(decision)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Clear deletes all entries.
func (s *SQLiteStore) Clear() error {
	if s.db == nil {
		return s.fallback.Clear()
	}
	_, err := s.db.Exec("DELETE FROM decisions")
	return err
}

// PruneBefore deletes entries older than cutoff.
func (s *SQLiteStore) PruneBefore(cutoff time.Time) (int, error) {
	if s.db == nil {
		return s.fallback.PruneBefore(cutoff)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec("DELETE FROM decisions WHERE timestamp < ?", cutoff.UTC().Format(timestampLayout))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ExportJSON writes the decisions table to a jsonl file, oldest first.
func (s *SQLiteStore) ExportJSON(dest string) error {
	if s.db == nil {
		return s.fallback.ExportJSON(dest)
	}
	records, err := s.Records(0, "")
	if err != nil {
		return err
	}
	file, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, domain.SecureFilePermissions)
	if err != nil {
		return err
	}
	defer file.Close()
	for i := len(records) - 1; i >= 0; i-- {
		b, err := json.Marshal(records[i])
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		if _, err := file.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the active storage path.
func (s *SQLiteStore) Path() string {
	if s.db == nil {
		return s.fallback.Path()
	}
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ ports.DecisionLog = (*SQLiteStore)(nil)
