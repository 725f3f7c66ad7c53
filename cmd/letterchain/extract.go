package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pynay/LetterChain/internal/extraction"
)

var extractOut string

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print the plain text extracted from a resume or job posting file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := extraction.New().ExtractFile(args[0])
		if err != nil {
			return err
		}
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		if extractOut == "" {
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		}
		if err := os.WriteFile(extractOut, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", "", "Write the text to this file instead of stdout")
	rootCmd.AddCommand(extractCmd)
}
