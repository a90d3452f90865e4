package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/wirelogic/internal/topology"
)

// SQLiteCircuitStore implements CircuitStore on a single SQLite file.
type SQLiteCircuitStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewSQLiteCircuitStore opens (creating if needed) the database at dbPath.
func NewSQLiteCircuitStore(dbPath string) (*SQLiteCircuitStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteCircuitStore{db: db, dbPath: dbPath, now: time.Now}, nil
}

// Path returns the database file path.
func (s *SQLiteCircuitStore) Path() string { return s.dbPath }

// Save replaces the topology stored under name inside one transaction.
func (s *SQLiteCircuitStore) Save(ctx context.Context, name string, doc *topology.Document) (Record, error) {
	if err := checkSave(name, doc); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	rec := Record{Name: name, UpdatedAt: now, Parts: len(doc.Parts), Wires: len(doc.Wires)}

	var createdAt string
	err = tx.QueryRowContext(ctx, `SELECT id, created_at FROM circuits WHERE name = ?`, name).Scan(&rec.ID, &createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rec.ID = uuid.NewString()
		rec.CreatedAt = now
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO circuits (id, name, doc_version, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			rec.ID, name, doc.Version, formatTime(now), formatTime(now)); err != nil {
			return Record{}, fmt.Errorf("failed to insert circuit: %w", err)
		}
	case err != nil:
		return Record{}, fmt.Errorf("failed to look up circuit: %w", err)
	default:
		rec.CreatedAt = parseTime(createdAt)
		if _, err := tx.ExecContext(ctx,
			`UPDATE circuits SET doc_version = ?, updated_at = ? WHERE id = ?`,
			doc.Version, formatTime(now), rec.ID); err != nil {
			return Record{}, fmt.Errorf("failed to update circuit: %w", err)
		}
		for _, table := range []string{"parts", "wires"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE circuit_id = ?`, rec.ID); err != nil {
				return Record{}, fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
	}

	for i, p := range doc.Parts {
		var energized sql.NullBool
		if p.Energized != nil {
			energized = sql.NullBool{Bool: *p.Energized, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO parts (circuit_id, idx, category, x, y, rotation, energized) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, i, p.Category, p.X, p.Y, p.Rotation, energized); err != nil {
			return Record{}, fmt.Errorf("failed to insert part %d: %w", i, err)
		}
	}

	for i, w := range doc.Wires {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO wires (circuit_id, idx, a_part, a_socket, b_part, b_socket) VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, i, w.A.Part, w.A.Socket, w.B.Part, w.B.Socket); err != nil {
			return Record{}, fmt.Errorf("failed to insert wire %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("failed to commit circuit: %w", err)
	}

	rec.Document = cloneDocument(doc)
	return rec, nil
}

// Load reads the circuit stored under name.
func (s *SQLiteCircuitStore) Load(ctx context.Context, name string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec Record
	var version int
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, doc_version, created_at, updated_at FROM circuits WHERE name = ?`, name).
		Scan(&rec.ID, &rec.Name, &version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, notFound(name)
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to load circuit: %w", err)
	}
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)

	doc := &topology.Document{Version: version}
	if doc.Parts, err = s.loadParts(ctx, rec.ID); err != nil {
		return Record{}, err
	}
	if doc.Wires, err = s.loadWires(ctx, rec.ID); err != nil {
		return Record{}, err
	}

	rec.Document = doc
	rec.Parts = len(doc.Parts)
	rec.Wires = len(doc.Wires)
	return rec, nil
}

func (s *SQLiteCircuitStore) loadParts(ctx context.Context, circuitID string) ([]topology.PartSpec, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, x, y, rotation, energized FROM parts WHERE circuit_id = ? ORDER BY idx`, circuitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query parts: %w", err)
	}
	defer rows.Close()

	parts := []topology.PartSpec{}
	for rows.Next() {
		var p topology.PartSpec
		var energized sql.NullBool
		if err := rows.Scan(&p.Category, &p.X, &p.Y, &p.Rotation, &energized); err != nil {
			return nil, fmt.Errorf("failed to scan part: %w", err)
		}
		if energized.Valid {
			on := energized.Bool
			p.Energized = &on
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

func (s *SQLiteCircuitStore) loadWires(ctx context.Context, circuitID string) ([]topology.WireSpec, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a_part, a_socket, b_part, b_socket FROM wires WHERE circuit_id = ? ORDER BY idx`, circuitID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wires: %w", err)
	}
	defer rows.Close()

	wires := []topology.WireSpec{}
	for rows.Next() {
		var w topology.WireSpec
		if err := rows.Scan(&w.A.Part, &w.A.Socket, &w.B.Part, &w.B.Socket); err != nil {
			return nil, fmt.Errorf("failed to scan wire: %w", err)
		}
		wires = append(wires, w)
	}
	return wires, rows.Err()
}

// List returns all stored circuits ordered by name.
func (s *SQLiteCircuitStore) List(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.created_at, c.updated_at,
		       (SELECT COUNT(*) FROM parts p WHERE p.circuit_id = c.id),
		       (SELECT COUNT(*) FROM wires w WHERE w.circuit_id = c.id)
		FROM circuits c
		ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list circuits: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var createdAt, updatedAt string
		if err := rows.Scan(&rec.ID, &rec.Name, &createdAt, &updatedAt, &rec.Parts, &rec.Wires); err != nil {
			return nil, fmt.Errorf("failed to scan circuit: %w", err)
		}
		rec.CreatedAt = parseTime(createdAt)
		rec.UpdatedAt = parseTime(updatedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes the circuit stored under name. Parts and wires go with it
// through the foreign key cascade.
func (s *SQLiteCircuitStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM circuits WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete circuit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete circuit: %w", err)
	}
	if n == 0 {
		return notFound(name)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteCircuitStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
