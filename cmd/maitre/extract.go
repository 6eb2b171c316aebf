package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platewise/maitre/extract"
)

var (
	extractURL    string
	extractAsJSON bool
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract text or a restaurant record from a source file",
	Long: `Extracts readable text from HTML, Markdown, PDF, or plain text files.
With --record, HTML input is parsed into a restaurant record (JSON-LD
schema.org data when present, page heuristics otherwise) suitable for
the structure command.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractURL, "url", "", "source URL of the document (improves HTML extraction)")
	extractCmd.Flags().BoolVar(&extractAsJSON, "record", false, "emit a restaurant record as JSON (HTML input only)")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(args[0]))
	ct := extract.ContentTypeFromExtension(ext)

	if extractAsJSON {
		if ct != extract.TypeHTML {
			return fmt.Errorf("--record requires HTML input, got %s", ct)
		}
		record, err := extract.ExtractRecord(content, extractURL)
		if err != nil {
			return fmt.Errorf("extract record: %w", err)
		}
		insts.RecordExtraction(cmd.Context(), string(ct), "record")
		out, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(out))
		return nil
	}

	var text string
	if ct == extract.TypeHTML && extractURL != "" {
		text, err = extract.HTMLExtractor{}.ExtractFromURL(content, extractURL)
	} else {
		text, err = extract.ForContentType(ct).Extract(content)
	}
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	insts.RecordExtraction(cmd.Context(), string(ct), "text")

	cmd.Println(text)
	return nil
}
