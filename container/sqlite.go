package container

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
	_ "modernc.org/sqlite"

	"github.com/jonwraymond/boxcache/foreign"
	"github.com/jonwraymond/boxcache/record"
)

const schema = `
CREATE TABLE IF NOT EXISTS attrs (
	grp   TEXT NOT NULL,
	name  TEXT NOT NULL,
	vtype TEXT NOT NULL,
	num   REAL NOT NULL DEFAULT 0,
	inum  INTEGER NOT NULL DEFAULT 0,
	txt   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (grp, name)
);
CREATE TABLE IF NOT EXISTS datasets (
	grp   TEXT NOT NULL,
	name  TEXT NOT NULL,
	dtype TEXT NOT NULL,
	shape TEXT NOT NULL,
	data  BLOB NOT NULL,
	PRIMARY KEY (grp, name)
);
`

// Store is the SQLite-backed container adapter. One container is one
// database file; write handles build the database at a hidden temp path in
// the target directory and publish it with an atomic rename on Close.
type Store struct{}

// NewStore creates a SQLite container adapter.
func NewStore() *Store {
	return &Store{}
}

// OpenOrCreate opens a writable handle targeting path.
func (s *Store) OpenOrCreate(path string) (Handle, error) {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%d.tmp", filepath.Base(path), os.Getpid()))

	// A stale temp file from a crashed writer is safe to discard.
	_ = os.Remove(tmp)

	db, err := sql.Open("sqlite", tmp)
	if err != nil {
		return nil, fmt.Errorf("container: open %s: %w", tmp, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("container: pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("container: migrate: %w", err)
	}

	return &handle{db: db, tmp: tmp, final: path}, nil
}

// Open opens an existing container read-only.
func (s *Store) Open(path string) (Handle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("container: open %s: %w", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("container: open %s: %w", path, err)
	}
	// A file that is not a container (truncated write, wrong format) fails
	// its first real query; surface that as corruption up front.
	if _, err := db.Exec("SELECT count(*) FROM attrs"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return &handle{db: db, readonly: true}, nil
}

// handle implements Handle over one database connection.
type handle struct {
	db       *sql.DB
	readonly bool

	// write-handle state: publish tmp to final on a clean Close.
	tmp      string
	final    string
	writeErr error
}

func (h *handle) WriteAttrGroup(group string, attrs map[string]record.Value) error {
	if h.readonly {
		return ErrReadOnly
	}
	tx, err := h.db.Begin()
	if err != nil {
		return h.fail(fmt.Errorf("container: begin: %w", err))
	}
	for name, v := range attrs {
		var num float64
		var inum int64
		var txt string
		switch v.Type() {
		case record.TypeFloat:
			num = v.Float64()
		case record.TypeInt:
			inum = v.Int64()
		case record.TypeBool:
			if v.Bool() {
				inum = 1
			}
		case record.TypeText:
			txt = v.Text()
		}
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO attrs (grp, name, vtype, num, inum, txt) VALUES (?, ?, ?, ?, ?, ?)`,
			group, name, v.Type().String(), num, inum, txt,
		)
		if err != nil {
			_ = tx.Rollback()
			return h.fail(fmt.Errorf("container: write attr %s/%s: %w", group, name, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return h.fail(fmt.Errorf("container: commit attrs %s: %w", group, err))
	}
	return nil
}

func (h *handle) WriteDataset(group, name string, a *foreign.Array) error {
	if h.readonly {
		return ErrReadOnly
	}
	_, err := h.db.Exec(
		`INSERT OR REPLACE INTO datasets (grp, name, dtype, shape, data) VALUES (?, ?, ?, ?, ?)`,
		group, name, a.Dtype().String(), encodeShape(a.Shape()), a.Bytes(),
	)
	if err != nil {
		return h.fail(fmt.Errorf("container: write dataset %s/%s: %w", group, name, err))
	}
	return nil
}

func (h *handle) ReadAttrGroup(group string) (map[string]record.Value, error) {
	rows, err := h.db.Query(`SELECT name, vtype, num, inum, txt FROM attrs WHERE grp = ?`, group)
	if err != nil {
		return nil, fmt.Errorf("%w: attrs of %s: %v", ErrCorrupt, group, err)
	}
	defer rows.Close()

	attrs := make(map[string]record.Value)
	for rows.Next() {
		var name, vtype, txt string
		var num float64
		var inum int64
		if err := rows.Scan(&name, &vtype, &num, &inum, &txt); err != nil {
			return nil, fmt.Errorf("%w: attrs of %s: %v", ErrCorrupt, group, err)
		}
		v, err := decodeValue(vtype, num, inum, txt)
		if err != nil {
			return nil, fmt.Errorf("%w: attr %s/%s: %v", ErrCorrupt, group, name, err)
		}
		attrs[name] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: attrs of %s: %v", ErrCorrupt, group, err)
	}
	return attrs, nil
}

func (h *handle) ReadDataset(group, name string, dst *foreign.Array) error {
	var dtype, shape string
	var data []byte
	err := h.db.QueryRow(
		`SELECT dtype, shape, data FROM datasets WHERE grp = ? AND name = ?`,
		group, name,
	).Scan(&dtype, &shape, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: missing dataset %s/%s", ErrCorrupt, group, name)
	}
	if err != nil {
		return fmt.Errorf("%w: dataset %s/%s: %v", ErrCorrupt, group, name, err)
	}
	if dtype != dst.Dtype().String() {
		return fmt.Errorf("%w: dataset %s/%s: dtype %s, want %s", ErrCorrupt, group, name, dtype, dst.Dtype())
	}
	if err := dst.CopyFrom(data); err != nil {
		return fmt.Errorf("%w: dataset %s/%s: %v", ErrCorrupt, group, name, err)
	}
	return nil
}

func (h *handle) GroupKeys(group string) ([]string, error) {
	return h.keys(`SELECT name FROM datasets WHERE grp = ? ORDER BY name`, group)
}

func (h *handle) AttrKeys(group string) ([]string, error) {
	return h.keys(`SELECT name FROM attrs WHERE grp = ? ORDER BY name`, group)
}

func (h *handle) keys(query, group string) ([]string, error) {
	rows, err := h.db.Query(query, group)
	if err != nil {
		return nil, fmt.Errorf("%w: keys of %s: %v", ErrCorrupt, group, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: keys of %s: %v", ErrCorrupt, group, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: keys of %s: %v", ErrCorrupt, group, err)
	}
	return names, nil
}

// Close releases the handle. A write handle publishes its temp database to
// the final path atomically; if any write failed, the temp file is removed
// and the first write error returned instead.
func (h *handle) Close() error {
	closeErr := h.db.Close()
	if h.readonly {
		return closeErr
	}

	if h.writeErr != nil {
		_ = os.Remove(h.tmp)
		return h.writeErr
	}
	if closeErr != nil {
		_ = os.Remove(h.tmp)
		return fmt.Errorf("container: close: %w", closeErr)
	}
	if err := atomic.ReplaceFile(h.tmp, h.final); err != nil {
		_ = os.Remove(h.tmp)
		return fmt.Errorf("container: publish %s: %w", h.final, err)
	}
	return nil
}

// fail records the first write error so Close can refuse to publish.
func (h *handle) fail(err error) error {
	if h.writeErr == nil {
		h.writeErr = err
	}
	return err
}

func encodeShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, s := range shape {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}

func decodeValue(vtype string, num float64, inum int64, txt string) (record.Value, error) {
	switch vtype {
	case record.TypeFloat.String():
		return record.Float(num), nil
	case record.TypeInt.String():
		return record.Int(inum), nil
	case record.TypeBool.String():
		return record.Bool(inum != 0), nil
	case record.TypeText.String():
		return record.Text(txt), nil
	default:
		return record.Value{}, fmt.Errorf("unknown attr type %q", vtype)
	}
}

// Ensure Store implements Adapter
var _ Adapter = (*Store)(nil)
