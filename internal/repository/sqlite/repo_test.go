package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/citeqa/internal/domain"
	domdoc "github.com/kailas-cloud/citeqa/internal/domain/document"
	"github.com/kailas-cloud/citeqa/internal/usecase/decompose"
)

// setupTestRepo creates a SQLite repository in a temporary directory.
func setupTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "citeqa.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, repo.Close()) })
	return repo
}

func testDocument(t *testing.T, id string, chunks ...string) domdoc.Document {
	t.Helper()
	cs := make([]domdoc.Chunk, len(chunks))
	for i, c := range chunks {
		cs[i] = domdoc.Chunk{DocumentID: id, ID: fmt.Sprintf("%s-c%d", id, i), Index: i, Content: c}
	}
	doc, err := domdoc.New(id,
		[]domdoc.Section{
			{DocumentID: id, Order: 1, Title: "Body", Content: "Body text."},
			{DocumentID: id, Order: 0, Title: "Intro", Content: "Intro text. "},
		},
		[]domdoc.Figure{
			{DocumentID: id, ID: "figure-2", Page: 2, Position: 90, Caption: "Second"},
			{DocumentID: id, ID: "figure-1", Page: 1, Position: 10, Caption: "First", Ref: "leaf.png"},
		},
		cs,
	)
	require.NoError(t, err)
	return doc
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestOpen_MigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "citeqa.db")
	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	var n int
	require.NoError(t, second.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 1, n)
	assert.Equal(t, path, second.Path())
}

func TestSaveAndRead(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testDocument(t, "doc-1", "first", "second", "third")))

	sections, err := repo.Sections(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "Intro", sections[0].Title)
	assert.Equal(t, "Intro text. Body text.", domdoc.JoinSections(sections))

	chunks, err := repo.Chunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{chunks[0].Content, chunks[1].Content, chunks[2].Content})
	assert.Equal(t, "doc-1", chunks[0].DocumentID)

	figures, err := repo.Figures(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, figures, 2)
	assert.Equal(t, "figure-1", figures[0].ID)
	assert.Equal(t, "leaf.png", figures[0].Ref)
}

func TestSave_ReplacesPreviousVersion(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testDocument(t, "doc-1", "a", "b", "c")))
	require.NoError(t, repo.Save(ctx, testDocument(t, "doc-1", "z")))

	chunks, err := repo.Chunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "z", chunks[0].Content)
}

func TestSave_FailureLeavesPreviousVersion(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, testDocument(t, "doc-1", "a")))

	// Duplicate chunk IDs violate the primary key mid-transaction.
	bad := domdoc.Reconstruct("doc-1", nil, nil, []domdoc.Chunk{
		{DocumentID: "doc-1", ID: "dup", Content: "x"},
		{DocumentID: "doc-1", ID: "dup", Content: "y"},
	})
	require.Error(t, repo.Save(ctx, bad))

	chunks, err := repo.Chunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a", chunks[0].Content)
}

func TestSave_RepeatedFigureLabel(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	raw := "# Results\n\nFigure 1: Leaf cross-section.\n\nFigure 1 shows chloroplasts absorbing light.\n\n" +
		"![Leaf](leaf.png)\n\n![Leaf again](leaf.png)\n"
	doc, err := decompose.New().Decompose(ctx, "doc1", raw)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, doc))

	figures, err := repo.Figures(ctx, "doc1")
	require.NoError(t, err)
	require.Len(t, figures, len(doc.Figures()))
	ids := make(map[string]bool)
	for _, f := range figures {
		assert.False(t, ids[f.ID], "duplicate figure id %s", f.ID)
		ids[f.ID] = true
	}
	assert.True(t, ids["figure-1"])
}

func TestReads_Unindexed(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	sections, err := repo.Sections(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, sections)

	ok, err := repo.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDelete_Cascades(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, testDocument(t, "doc-1", "a", "b")))

	require.NoError(t, repo.Delete(ctx, "doc-1"))

	chunks, err := repo.Chunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
	figures, err := repo.Figures(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, figures)

	assert.ErrorIs(t, repo.Delete(ctx, "doc-1"), domain.ErrDocumentNotFound)
}

func TestList(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	for _, id := range []string{"b", "a"} {
		require.NoError(t, repo.Save(ctx, testDocument(t, id, "x")))
	}

	ids, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.NoError(t, repo.Ping(ctx))
}
