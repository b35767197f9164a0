// Package badger persists decomposed documents in an embedded Badger database via badgerhold.
// A document is one record, so each Upsert replaces all of its units atomically.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/kailas-cloud/citeqa/internal/domain"
	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
)

// Config holds the database location. InMemory ignores Path.
type Config struct {
	Path     string
	InMemory bool
}

// record is the stored form of one document.
type record struct {
	ID        string
	Sections  []domdoc.Section
	Figures   []domdoc.Figure
	Chunks    []domdoc.Chunk
	IndexedAt time.Time
}

// Repo implements the usecase document and index repositories.
type Repo struct {
	store *badgerhold.Store
}

// Open opens (or creates) the database.
func Open(cfg Config) (*Repo, error) {
	options := badgerhold.DefaultOptions
	options.Logger = nil
	if cfg.InMemory {
		options.InMemory = true
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("badger path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		options.Dir = cfg.Path
		options.ValueDir = cfg.Path
	}

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Repo{store: store}, nil
}

// Close closes the database.
func (r *Repo) Close() error {
	return r.store.Close()
}

// Ping reports whether the database is open and usable.
func (r *Repo) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.store.Badger().IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

// Save replaces a document's units in one upsert.
func (r *Repo) Save(ctx context.Context, doc domdoc.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec := record{
		ID:        doc.ID(),
		Sections:  doc.Sections(),
		Figures:   doc.Figures(),
		Chunks:    doc.Chunks(),
		IndexedAt: time.Now().UTC(),
	}
	if err := r.store.Upsert(doc.ID(), rec); err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.ID(), err)
	}
	return nil
}

// Delete removes a document with all its units.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.store.Delete(id, record{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.ErrDocumentNotFound
		}
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// Exists reports whether a document is indexed.
func (r *Repo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok, err := r.load(ctx, id)
	return ok, err
}

// List returns the IDs of all indexed documents, sorted.
func (r *Repo) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var recs []record
	if err := r.store.Find(&recs, badgerhold.Where("ID").Ne("")); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

// Sections returns the document's sections by order. Unindexed documents yield nil.
func (r *Repo) Sections(ctx context.Context, id string) ([]domdoc.Section, error) {
	rec, _, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return domdoc.SortSections(rec.Sections), nil
}

// Figures returns the document's figures. Unindexed documents yield nil.
func (r *Repo) Figures(ctx context.Context, id string) ([]domdoc.Figure, error) {
	rec, _, err := r.load(ctx, id)
	return rec.Figures, err
}

// Chunks returns the document's chunks in storage order. Unindexed documents yield nil.
func (r *Repo) Chunks(ctx context.Context, id string) ([]domdoc.Chunk, error) {
	rec, _, err := r.load(ctx, id)
	return rec.Chunks, err
}

func (r *Repo) load(ctx context.Context, id string) (record, bool, error) {
	if err := ctx.Err(); err != nil {
		return record{}, false, err
	}
	var rec record
	if err := r.store.Get(id, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return record{}, false, nil
		}
		return record{}, false, fmt.Errorf("get document %s: %w", id, err)
	}
	return rec, true, nil
}
