// Package memory keeps decomposed documents in process memory.
// It backs tests, the CLI's one-shot mode and the embeddable SDK default.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/kailas-cloud/citeqa/internal/domain"
	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
)

// Repo implements the usecase document and index repositories.
type Repo struct {
	mu   sync.RWMutex
	docs map[string]domdoc.Document
}

// New creates an empty repository.
func New() *Repo {
	return &Repo{docs: make(map[string]domdoc.Document)}
}

// Ping always succeeds.
func (r *Repo) Ping(context.Context) error { return nil }

// Save replaces a document under the write lock.
func (r *Repo) Save(_ context.Context, doc domdoc.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID()] = doc
	return nil
}

// Delete removes a document with all its units.
func (r *Repo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(r.docs, id)
	return nil
}

// Exists reports whether a document is indexed.
func (r *Repo) Exists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.docs[id]
	return ok, nil
}

// List returns the IDs of all indexed documents, sorted.
func (r *Repo) List(context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.docs))
	for id := range r.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Sections returns a copy of the document's sections by order.
func (r *Repo) Sections(_ context.Context, id string) ([]domdoc.Section, error) {
	doc, ok := r.get(id)
	if !ok {
		return nil, nil
	}
	return domdoc.SortSections(doc.Sections()), nil
}

// Figures returns a copy of the document's figures.
func (r *Repo) Figures(_ context.Context, id string) ([]domdoc.Figure, error) {
	doc, ok := r.get(id)
	if !ok {
		return nil, nil
	}
	return append([]domdoc.Figure(nil), doc.Figures()...), nil
}

// Chunks returns a copy of the document's chunks in storage order.
func (r *Repo) Chunks(_ context.Context, id string) ([]domdoc.Chunk, error) {
	doc, ok := r.get(id)
	if !ok {
		return nil, nil
	}
	return append([]domdoc.Chunk(nil), doc.Chunks()...), nil
}

func (r *Repo) get(id string) (domdoc.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	return doc, ok
}
