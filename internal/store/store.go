// Package store is the SQLite results cache behind the loupe CLI. It records
// each checked file's content hash and findings so re-runs can skip unchanged
// files and diff against a stored baseline. The analysis engine itself never
// touches it.
package store

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// File is one cached file record.
type File struct {
	ID          int64
	Path        string
	Hash        string
	LineCount   int
	LastChecked time.Time
}

// Finding is one stored diagnostic for a file.
type Finding struct {
	ID        int64
	FileID    int64
	Code      string
	Severity  string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	Message   string
}

// Key identifies a finding independent of database IDs, for baseline diffs.
// Column positions are deliberately excluded so small edits on the same line
// do not resurrect baselined findings.
func (f Finding) Key() string {
	return fmt.Sprintf("%s\x00%d\x00%s", f.Code, f.StartLine, f.Message)
}

// Store is the SQLite data access layer.
type Store struct {
	db *sql.DB
}

// Open opens a SQLite database at dbPath with WAL mode enabled and creates
// the schema when missing.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id            INTEGER PRIMARY KEY,
  path          TEXT NOT NULL UNIQUE,
  hash          TEXT NOT NULL,
  line_count    INTEGER NOT NULL DEFAULT 0,
  last_checked  TIMESTAMP
);

CREATE TABLE IF NOT EXISTS findings (
  id            INTEGER PRIMARY KEY,
  file_id       INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
  code          TEXT NOT NULL,
  severity      TEXT NOT NULL,
  start_line    INTEGER NOT NULL,
  start_col     INTEGER NOT NULL,
  end_line      INTEGER NOT NULL,
  end_col       INTEGER NOT NULL,
  message       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_findings_file ON findings(file_id);
CREATE INDEX IF NOT EXISTS idx_findings_code ON findings(code);
`

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// ContentHash returns the hex sha256 of file content, the change-detection
// key stored alongside each file.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// FileByPath returns the cached record for a path, or nil when the path has
// never been checked.
func (s *Store) FileByPath(path string) (*File, error) {
	row := s.db.QueryRow(
		"SELECT id, path, hash, line_count, last_checked FROM files WHERE path = ?", path)
	var f File
	var checked sql.NullTime
	err := row.Scan(&f.ID, &f.Path, &f.Hash, &f.LineCount, &checked)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup file: %w", err)
	}
	if checked.Valid {
		f.LastChecked = checked.Time
	}
	return &f, nil
}

// RecordCheck replaces a file's record and findings in one transaction.
// Returns the file's database ID.
func (s *Store) RecordCheck(path, hash string, lineCount int, findings []Finding) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var fileID int64
	row := tx.QueryRow("SELECT id FROM files WHERE path = ?", path)
	switch err := row.Scan(&fileID); err {
	case nil:
		if _, err := tx.Exec(
			"UPDATE files SET hash = ?, line_count = ?, last_checked = ? WHERE id = ?",
			hash, lineCount, time.Now(), fileID); err != nil {
			return 0, fmt.Errorf("update file: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM findings WHERE file_id = ?", fileID); err != nil {
			return 0, fmt.Errorf("delete old findings: %w", err)
		}
	case sql.ErrNoRows:
		res, err := tx.Exec(
			"INSERT INTO files (path, hash, line_count, last_checked) VALUES (?, ?, ?, ?)",
			path, hash, lineCount, time.Now())
		if err != nil {
			return 0, fmt.Errorf("insert file: %w", err)
		}
		fileID, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("file id: %w", err)
		}
	default:
		return 0, fmt.Errorf("lookup file: %w", err)
	}

	for _, f := range findings {
		if _, err := tx.Exec(
			`INSERT INTO findings (file_id, code, severity, start_line, start_col, end_line, end_col, message)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			fileID, f.Code, f.Severity, f.StartLine, f.StartCol, f.EndLine, f.EndCol, f.Message); err != nil {
			return 0, fmt.Errorf("insert finding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return fileID, nil
}

// FindingsByPath returns the stored findings for a path in position order.
// A path that was never checked yields no findings and no error.
func (s *Store) FindingsByPath(path string) ([]Finding, error) {
	rows, err := s.db.Query(
		`SELECT f.id, f.file_id, f.code, f.severity, f.start_line, f.start_col, f.end_line, f.end_col, f.message
		 FROM findings f JOIN files ON files.id = f.file_id
		 WHERE files.path = ?
		 ORDER BY f.start_line, f.start_col, f.code`, path)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	var out []Finding
	for rows.Next() {
		var f Finding
		if err := rows.Scan(&f.ID, &f.FileID, &f.Code, &f.Severity,
			&f.StartLine, &f.StartCol, &f.EndLine, &f.EndCol, &f.Message); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteFile removes a file record and, via cascade, its findings.
func (s *Store) DeleteFile(path string) error {
	if _, err := s.db.Exec("DELETE FROM files WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}
