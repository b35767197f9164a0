// Package sqlite persists decomposed documents in SQLite via the pure-Go modernc driver.
//
// Sections, figures and chunks live in their own tables and cascade from documents.
// Save runs in one transaction, so a document is either fully indexed or absent.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kailas-cloud/citeqa/internal/domain"
	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
	"github.com/kailas-cloud/citeqa/internal/repository/sqlite/migrations"
)

// Repo implements the usecase document and index repositories.
type Repo struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database file at path and applies pending migrations.
func Open(path string) (*Repo, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	r := &Repo{db: db, path: path}
	if err := r.migrate(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return r, nil
}

// Close closes the database connection.
func (r *Repo) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repo) Path() string {
	return r.path
}

// Ping checks the database connection.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// migrate runs all pending up migrations in file-name order.
func (r *Repo) migrate(fsys fs.FS) error {
	if _, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := r.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			upFiles = append(upFiles, e.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := r.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := r.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// Save replaces a document and all its units in one transaction.
func (r *Repo) Save(ctx context.Context, doc domdoc.Document) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	id := doc.ID()
	if _, err = tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting previous version of %s: %w", id, err)
	}
	if _, err = tx.ExecContext(ctx,
		"INSERT INTO documents (id, indexed_at) VALUES (?, ?)", id, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("inserting document %s: %w", id, err)
	}
	for _, s := range doc.Sections() {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO sections (document_id, ord, title, content) VALUES (?, ?, ?, ?)",
			id, s.Order, s.Title, s.Content,
		); err != nil {
			return fmt.Errorf("inserting section %d of %s: %w", s.Order, id, err)
		}
	}
	for _, f := range doc.Figures() {
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO figures (document_id, id, page, position, caption, ref) VALUES (?, ?, ?, ?, ?, ?)",
			id, f.ID, f.Page, f.Position, f.Caption, f.Ref,
		); err != nil {
			return fmt.Errorf("inserting figure %s of %s: %w", f.ID, id, err)
		}
	}
	for i, c := range doc.Chunks() {
		// idx is the storage position.
		if _, err = tx.ExecContext(ctx,
			"INSERT INTO chunks (document_id, id, idx, section_order, content) VALUES (?, ?, ?, ?, ?)",
			id, c.ID, i, c.SectionOrder, c.Content,
		); err != nil {
			return fmt.Errorf("inserting chunk %s of %s: %w", c.ID, id, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit document %s: %w", id, err)
	}
	return nil
}

// Delete removes a document; units cascade.
func (r *Repo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// Exists reports whether a document is indexed.
func (r *Repo) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking document %s: %w", id, err)
	}
	return true, nil
}

// List returns the IDs of all indexed documents, sorted.
func (r *Repo) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM documents ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Sections returns the document's sections by order. Unindexed documents yield nil.
func (r *Repo) Sections(ctx context.Context, id string) ([]domdoc.Section, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT ord, title, content FROM sections WHERE document_id = ? ORDER BY ord", id)
	if err != nil {
		return nil, fmt.Errorf("querying sections of %s: %w", id, err)
	}
	defer rows.Close()

	var out []domdoc.Section
	for rows.Next() {
		s := domdoc.Section{DocumentID: id}
		if err := rows.Scan(&s.Order, &s.Title, &s.Content); err != nil {
			return nil, fmt.Errorf("scanning section: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Figures returns the document's figures by position. Unindexed documents yield nil.
func (r *Repo) Figures(ctx context.Context, id string) ([]domdoc.Figure, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, page, position, caption, ref FROM figures WHERE document_id = ? ORDER BY position, id", id)
	if err != nil {
		return nil, fmt.Errorf("querying figures of %s: %w", id, err)
	}
	defer rows.Close()

	var out []domdoc.Figure
	for rows.Next() {
		f := domdoc.Figure{DocumentID: id}
		if err := rows.Scan(&f.ID, &f.Page, &f.Position, &f.Caption, &f.Ref); err != nil {
			return nil, fmt.Errorf("scanning figure: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Chunks returns the document's chunks in storage order. Unindexed documents yield nil.
func (r *Repo) Chunks(ctx context.Context, id string) ([]domdoc.Chunk, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, idx, section_order, content FROM chunks WHERE document_id = ? ORDER BY idx", id)
	if err != nil {
		return nil, fmt.Errorf("querying chunks of %s: %w", id, err)
	}
	defer rows.Close()

	var out []domdoc.Chunk
	for rows.Next() {
		c := domdoc.Chunk{DocumentID: id}
		if err := rows.Scan(&c.ID, &c.Index, &c.SectionOrder, &c.Content); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
