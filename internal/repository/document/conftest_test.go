package document

import (
	"context"
	"testing"

	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn   func(ctx context.Context, key string, fields map[string]string) error
	hgetFn   func(ctx context.Context, key, field string) (string, error)
	delFn    func(ctx context.Context, key string) error
	existsFn func(ctx context.Context, key string) (bool, error)
	scanFn   func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGet(ctx context.Context, key, field string) (string, error) {
	if m.hgetFn != nil {
		return m.hgetFn(ctx, key, field)
	}
	return "", nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, "")
	return repo, ms
}

func testDocument(t *testing.T) domdoc.Document {
	t.Helper()
	doc, err := domdoc.New("doc-1",
		[]domdoc.Section{
			{DocumentID: "doc-1", Order: 1, Title: "Methods", Content: "# Methods\nWe measured light.\n"},
			{DocumentID: "doc-1", Order: 0, Title: "Intro", Content: "# Intro\nPhotosynthesis uses light.\n"},
		},
		[]domdoc.Figure{{DocumentID: "doc-1", ID: "figure-1", Page: 1, Caption: "Leaf"}},
		[]domdoc.Chunk{
			{DocumentID: "doc-1", ID: "c0", Index: 0, SectionOrder: 0, Content: "Photosynthesis uses light."},
			{DocumentID: "doc-1", ID: "c1", Index: 1, SectionOrder: 1, Content: "We measured light."},
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return doc
}
