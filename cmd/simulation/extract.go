package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"ai-lifeplan-be/pkg/interview"
	"ai-lifeplan-be/pkg/interview/document"
	"ai-lifeplan-be/pkg/interview/extraction"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var documentPaths []string

var extractCmd = &cobra.Command{
	Use:   "extract <transcript.json>",
	Short: "Extract values, goals and tasks from a saved transcript",
	Long: `Extract values, goals and tasks from a transcript saved with
"interview --save". Documents are passed as kind=path, for example
--document resume=cv.txt --document journal=notes.txt.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtraction,
}

func init() {
	extractCmd.Flags().StringArrayVar(&documentPaths, "document", nil, "kind=path of a text document to use as background")
}

func runExtraction(cmd *cobra.Command, args []string) error {
	transcript, err := loadTranscript(args[0])
	if err != nil {
		return err
	}
	documentContext, err := loadDocuments(documentPaths)
	if err != nil {
		return err
	}
	completion, err := completionService()
	if err != nil {
		return err
	}

	pipeline := extraction.NewPipeline(completion, cliLogger(), extraction.Config{})
	res, err := pipeline.Extract(cmd.Context(), transcript, documentContext)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), res, outputFormat)
}

func loadTranscript(path string) ([]interview.Message, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var transcript []interview.Message
	if err := json.Unmarshal(raw, &transcript); err != nil {
		return nil, fmt.Errorf("read transcript %s: %w", path, err)
	}
	return transcript, nil
}

func saveTranscript(path string, history []interview.Message) error {
	raw, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func loadDocuments(specs []string) (string, error) {
	excerpts := make([]document.Excerpt, 0, len(specs))
	for _, spec := range specs {
		kind, path, ok := strings.Cut(spec, "=")
		if !ok {
			kind, path = string(document.KindOther), spec
		}
		text, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		excerpts = append(excerpts, document.Excerpt{Kind: document.ParseKind(kind), Text: string(text)})
	}
	if err := document.Validate(excerpts); err != nil {
		return "", err
	}
	return document.Compose(excerpts, document.DefaultPerExcerptLimit, 0), nil
}

func printResult(out io.Writer, res *extraction.Result, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml", "":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(res)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
