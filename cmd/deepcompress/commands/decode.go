package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deepcompress/deepcompress/internal/dtoon"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <file.dtoon>",
	Short: "Parse compressed text back into its document tree as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	doc, err := dtoon.Decode(string(data))
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
