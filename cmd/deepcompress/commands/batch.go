package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/deepcompress/deepcompress/pkg/deepcompress"
)

var batchOutputDir string

var batchCmd = &cobra.Command{
	Use:   "batch <directory>",
	Short: "Compress every PDF in a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchOutputDir, "output-dir", "o", "", "write one .dtoon file per input into this directory")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	compressor, err := deepcompress.New(cfg, logger)
	if err != nil {
		return err
	}
	defer compressor.Close()

	if batchOutputDir != "" {
		if err := os.MkdirAll(batchOutputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	pdfs, _ := filepath.Glob(filepath.Join(args[0], "*.pdf"))
	bar := progressbar.Default(int64(len(pdfs)), "compressing")

	progress, err := compressor.ProcessDirectory(context.Background(), args[0], func(r deepcompress.FileResult) {
		bar.Add(1)
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "\n%s: %v\n", r.Path, r.Err)
			return
		}
		if batchOutputDir != "" {
			name := strings.TrimSuffix(filepath.Base(r.Path), filepath.Ext(r.Path)) + ".dtoon"
			if err := os.WriteFile(filepath.Join(batchOutputDir, name), []byte(r.Document.Text), 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "\n%s: write output: %v\n", r.Path, err)
			}
		}
	})
	if err != nil {
		return err
	}

	fmt.Printf("processed:    %d/%d\n", progress.Processed, progress.Total)
	fmt.Printf("failed:       %d\n", progress.Failed)
	fmt.Printf("cache hits:   %d\n", progress.CacheHits)
	fmt.Printf("tokens saved: %d\n", progress.TokensSaved)
	fmt.Printf("cost saved:   $%.4f\n", progress.CostSavedUSD)
	return nil
}
