package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deepcompress/deepcompress/pkg/deepcompress"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find previously compressed documents by similarity",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	compressor, err := deepcompress.New(cfg, logger)
	if err != nil {
		return err
	}
	defer compressor.Close()

	hits, err := compressor.Search(context.Background(), args[0], searchLimit)
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Println("no matches")
		return nil
	}
	for _, h := range hits {
		fmt.Printf("%.3f  %s  (fingerprint %s)\n", h.Similarity, h.DocumentID, h.Fingerprint)
	}
	return nil
}
