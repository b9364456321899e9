package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deepcompress/deepcompress/pkg/deepcompress"
)

var (
	compressOutput string
	compressStats  bool
)

var compressCmd = &cobra.Command{
	Use:   "compress <file.pdf>",
	Short: "Compress a single PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompress,
}

func init() {
	compressCmd.Flags().StringVarP(&compressOutput, "output", "o", "", "write compressed text to file instead of stdout")
	compressCmd.Flags().BoolVar(&compressStats, "stats", false, "print token accounting to stderr")
	rootCmd.AddCommand(compressCmd)
}

func runCompress(cmd *cobra.Command, args []string) error {
	compressor, err := deepcompress.New(cfg, logger)
	if err != nil {
		return err
	}
	defer compressor.Close()

	doc, err := compressor.Compress(context.Background(), args[0])
	if err != nil {
		return err
	}

	if compressOutput != "" {
		if err := os.WriteFile(compressOutput, []byte(doc.Text), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	} else {
		fmt.Println(doc.Text)
	}

	if compressStats {
		fmt.Fprintf(os.Stderr, "document:    %s\n", doc.DocumentID)
		fmt.Fprintf(os.Stderr, "fingerprint: %s\n", doc.Fingerprint)
		fmt.Fprintf(os.Stderr, "tokens:      %d -> %d (ratio %.3f)\n",
			doc.OriginalTokens, doc.CompressedTokens, doc.CompressionRatio)
		fmt.Fprintf(os.Stderr, "cache hit:   %v\n", doc.CacheHit)
		fmt.Fprintf(os.Stderr, "time:        %s\n", doc.ProcessingTime)
		for _, pe := range doc.PageErrors {
			fmt.Fprintf(os.Stderr, "page %d failed: %s\n", pe.Page, pe.Message)
		}
	}

	return nil
}
