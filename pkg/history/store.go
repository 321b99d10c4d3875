// Package history persists scan results and community feedback in SQLite.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Scan is one saved scan: what a user scanned and what was detected.
type Scan struct {
	ID          int64    `json:"id"`
	User        string   `json:"user"`
	Product     string   `json:"product"`
	Ingredients string   `json:"ingredients"`
	Detected    []string `json:"detected"`
	CreatedAt   int64    `json:"created_at"`
}

// Feedback is one community report about a product.
type Feedback struct {
	ID        int64  `json:"id"`
	User      string `json:"user"`
	Product   string `json:"product"`
	Reaction  string `json:"reaction"`
	Notes     string `json:"notes"`
	CreatedAt int64  `json:"created_at"`
}

// ProductCount is a feedback aggregation row.
type ProductCount struct {
	Product string `json:"product"`
	Count   int    `json:"count"`
}

// Store manages the scans and feedback SQLite tables.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and ensures the
// scans and feedback tables exist.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS scans (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user        TEXT NOT NULL,
		product     TEXT NOT NULL DEFAULT '',
		ingredients TEXT NOT NULL,
		detected    TEXT NOT NULL DEFAULT '[]',
		created_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scans_user ON scans(user, created_at);
	CREATE TABLE IF NOT EXISTS feedback (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		user        TEXT NOT NULL,
		product     TEXT NOT NULL,
		reaction    TEXT NOT NULL,
		notes       TEXT NOT NULL DEFAULT '',
		created_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_product ON feedback(product)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the SQLite connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveScan records a scan for later retrieval. CreatedAt is filled in if
// zero; the assigned row ID is returned.
func (s *Store) SaveScan(scan Scan) (int64, error) {
	if scan.CreatedAt == 0 {
		scan.CreatedAt = time.Now().Unix()
	}
	if scan.Detected == nil {
		scan.Detected = []string{}
	}
	detected, err := json.Marshal(scan.Detected)
	if err != nil {
		return 0, fmt.Errorf("encode detected list: %w", err)
	}

	res, err := s.db.Exec(
		`INSERT INTO scans (user, product, ingredients, detected, created_at) VALUES (?, ?, ?, ?, ?)`,
		scan.User, scan.Product, scan.Ingredients, string(detected), scan.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("save scan: %w", err)
	}
	return res.LastInsertId()
}

// ListScans returns a user's scans, newest first. limit <= 0 means no limit.
func (s *Store) ListScans(user string, limit int) ([]Scan, error) {
	q := `SELECT id, user, product, ingredients, detected, created_at
		FROM scans WHERE user = ? ORDER BY created_at DESC, id DESC`
	args := []any{user}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list scans for %s: %w", user, err)
	}
	defer rows.Close()

	scans := []Scan{}
	for rows.Next() {
		var sc Scan
		var detected string
		if err := rows.Scan(&sc.ID, &sc.User, &sc.Product, &sc.Ingredients, &detected, &sc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(detected), &sc.Detected); err != nil {
			return nil, fmt.Errorf("decode detected list for scan %d: %w", sc.ID, err)
		}
		scans = append(scans, sc)
	}
	return scans, rows.Err()
}

// AddFeedback records a community report. CreatedAt is filled in if zero.
func (s *Store) AddFeedback(fb Feedback) (int64, error) {
	if fb.CreatedAt == 0 {
		fb.CreatedAt = time.Now().Unix()
	}
	res, err := s.db.Exec(
		`INSERT INTO feedback (user, product, reaction, notes, created_at) VALUES (?, ?, ?, ?, ?)`,
		fb.User, fb.Product, fb.Reaction, fb.Notes, fb.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("add feedback: %w", err)
	}
	return res.LastInsertId()
}

// ListFeedback returns feedback rows, newest first, optionally filtered by
// product. limit <= 0 means no limit.
func (s *Store) ListFeedback(product string, limit int) ([]Feedback, error) {
	q := `SELECT id, user, product, reaction, notes, created_at FROM feedback`
	args := []any{}
	if product != "" {
		q += ` WHERE product = ?`
		args = append(args, product)
	}
	q += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	items := []Feedback{}
	for rows.Next() {
		var fb Feedback
		if err := rows.Scan(&fb.ID, &fb.User, &fb.Product, &fb.Reaction, &fb.Notes, &fb.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}
		items = append(items, fb)
	}
	return items, rows.Err()
}

// TopProducts returns the products with the most feedback, descending.
func (s *Store) TopProducts(limit int) ([]ProductCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT product, COUNT(*) AS n FROM feedback GROUP BY product ORDER BY n DESC, product LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	items := []ProductCount{}
	for rows.Next() {
		var pc ProductCount
		if err := rows.Scan(&pc.Product, &pc.Count); err != nil {
			return nil, fmt.Errorf("scan product count: %w", err)
		}
		items = append(items, pc)
	}
	return items, rows.Err()
}
