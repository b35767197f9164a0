// Package document persists decomposed documents in Redis/Valkey hashes.
// Each document is one hash, so a single HSET writes sections, figures and chunks together.
package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/citeqa/internal/db"
	"github.com/kailas-cloud/citeqa/internal/domain"
	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
)

// store is the consumer interface for documents (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGet(ctx context.Context, key, field string) (string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements the usecase document and index repositories.
type Repo struct {
	store  store
	prefix string
	now    func() time.Time
}

// New creates a document repository. An empty prefix falls back to domain.KeyPrefix.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = domain.KeyPrefix
	}
	return &Repo{store: s, prefix: prefix, now: time.Now}
}

// Save replaces a document's sections, figures and chunks in one HSET.
// A previous version is deleted first so stale fields never survive.
func (r *Repo) Save(ctx context.Context, doc domdoc.Document) error {
	key := r.docKey(doc.ID())
	fields, err := buildHashFields(doc, r.now())
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.ID(), err)
	}

	// Every field is written on each save, so one HSET replaces the previous
	// version atomically; a failed write leaves it untouched.
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Delete removes a document with all its units.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := r.docKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// Exists reports whether a document is indexed.
func (r *Repo) Exists(ctx context.Context, id string) (bool, error) {
	key := r.docKey(id)
	ok, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}
	return ok, nil
}

// List returns the IDs of all indexed documents, sorted.
func (r *Repo) List(ctx context.Context) ([]string, error) {
	pattern := r.docKey("*")
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", pattern, err)
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, r.docKey("")))
	}
	sortStrings(ids)
	return ids, nil
}

// Sections returns the document's sections by order. Unindexed documents yield nil.
func (r *Repo) Sections(ctx context.Context, id string) ([]domdoc.Section, error) {
	var out []domdoc.Section
	if err := r.field(ctx, id, fieldSections, &out); err != nil {
		return nil, err
	}
	return domdoc.SortSections(out), nil
}

// Figures returns the document's figures. Unindexed documents yield nil.
func (r *Repo) Figures(ctx context.Context, id string) ([]domdoc.Figure, error) {
	var out []domdoc.Figure
	if err := r.field(ctx, id, fieldFigures, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Chunks returns the document's chunks in storage order. Unindexed documents yield nil.
func (r *Repo) Chunks(ctx context.Context, id string) ([]domdoc.Chunk, error) {
	var out []domdoc.Chunk
	if err := r.field(ctx, id, fieldChunks, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) field(ctx context.Context, id, name string, dst any) error {
	key := r.docKey(id)
	raw, err := r.store.HGet(ctx, key, name)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("hget %s %s: %w", key, name, err)
	}
	if err := decodeField(raw, dst); err != nil {
		return fmt.Errorf("decode %s %s: %w", key, name, err)
	}
	return nil
}

func (r *Repo) docKey(id string) string {
	return fmt.Sprintf("%sdoc:%s", r.prefix, id)
}
