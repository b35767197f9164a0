package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/citeqa/internal/domain/answer"
)

var (
	askDocuments []string
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from indexed documents",
	Long: `Retrieves the passages relevant to the question from the given documents,
asks the configured provider for an answer citing them as [n], and reports
how well the answer is supported by those passages.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSliceVarP(&askDocuments, "doc", "d", nil, "document id to search (repeatable)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	_ = askCmd.MarkFlagRequired("doc")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	_, logger, a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer a.Close()

	res, err := a.Answers.Answer(cmd.Context(), askDocuments, args[0])
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, res)
	}
	outputAnswerText(cmd, res)
	return nil
}

func outputAnswerJSON(cmd *cobra.Command, res answer.Answer) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswerText(cmd *cobra.Command, res answer.Answer) {
	cmd.Println(res.Text)
	cmd.Println()
	cmd.Printf("Confidence: %s\n", res.Confidence)
	if len(res.Sources) == 0 {
		return
	}
	cmd.Println("Sources:")
	for _, s := range res.Sources {
		cmd.Printf("  %s (%s) %s\n", s.Label(), s.DocumentID, snippet(s.Content, 100))
	}
}

// snippet truncates s to at most n runes.
func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
