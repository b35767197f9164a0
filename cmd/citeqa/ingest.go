package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var ingestID string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Decompose and index a text document",
	Long: `Reads a plain-text or markdown document from file (or stdin when file is "-"),
splits it into sections, figures and chunks, and stores them under --id.
Re-ingesting an existing id replaces the previous version.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "document id (generated when empty)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	raw, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	_, logger, a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer a.Close()

	sum, err := a.Documents.Ingest(cmd.Context(), ingestID, string(raw))
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	verb := "Indexed"
	if sum.Replaced {
		verb = "Replaced"
	}
	cmd.Printf("%s %s: %d sections, %d figures, %d chunks\n",
		verb, sum.DocumentID, sum.Sections, sum.Figures, sum.Chunks)
	return nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied path is the point
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
