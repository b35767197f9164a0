package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/citeqa/internal/domain/answer"
	"github.com/kailas-cloud/citeqa/internal/version"
)

func TestVersionCmd_Executes(t *testing.T) {
	original := version.Version
	version.Version = "test-version-1.0.0"
	defer func() { version.Version = original }()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "citeqa version test-version-1.0.0")
}

func TestAskCmd_RequiresDocument(t *testing.T) {
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"ask", "What?"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"doc"`)
}

func TestReadInput(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("from stdin"))

	got, err := readInput(cmd, "-")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", string(got))

	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte("# Title\nBody."), 0o600))
	got, err = readInput(cmd, path)
	require.NoError(t, err)
	assert.Equal(t, "# Title\nBody.", string(got))

	_, err = readInput(cmd, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestOutputAnswerText(t *testing.T) {
	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	outputAnswerText(cmd, answer.Answer{
		Text:       "Photosynthesis uses light [1].",
		Confidence: answer.High,
		Sources: []answer.Source{
			{ID: 1, DocumentID: "bio", Content: "photosynthesis uses light"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Photosynthesis uses light [1].")
	assert.Contains(t, out, "Confidence: high")
	assert.Contains(t, out, "[1] (bio) photosynthesis uses light")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short", 10))
	assert.Equal(t, "Übe...", snippet("Über alles", 3))
}
