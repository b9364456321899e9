package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deepcompress/deepcompress/pkg/deepcompress"
)

var queryQuestion string

var queryCmd = &cobra.Command{
	Use:   "query <file.pdf>",
	Short: "Compress a PDF and answer a question about it",
	Long: `Compresses the document (served from cache when unchanged) and sends the
compressed text to the configured LLM as the only context for the question.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryQuestion, "question", "q", "", "question to ask (required)")
	queryCmd.MarkFlagRequired("question")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	compressor, err := deepcompress.New(cfg, logger)
	if err != nil {
		return err
	}
	defer compressor.Close()

	analysis, err := compressor.CompressAndAnalyze(context.Background(), args[0], queryQuestion)
	if err != nil {
		return err
	}

	fmt.Println(analysis.Answer.Text)
	if verbose {
		fmt.Printf("\nmodel: %s, tokens used: %d, context tokens saved: %d\n",
			analysis.Answer.Model, analysis.Answer.TokensUsed, analysis.Document.TokensSaved())
	}
	return nil
}
