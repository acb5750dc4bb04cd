package main

import (
	"os"

	"ai-lifeplan-be/internal/pkg/logger"
	"ai-lifeplan-be/pkg/llm"
	"ai-lifeplan-be/pkg/llm/factory"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	provider     string
	model        string
	baseURL      string
	apiKey       string
	logFile      string
	outputFormat string
)

var (
	userColor      = color.New(color.FgCyan, color.Bold)
	assistantColor = color.New(color.FgGreen)
	phaseColor     = color.New(color.FgYellow, color.Bold)
	errorColor     = color.New(color.FgRed)
	dimColor       = color.New(color.Faint)
)

var rootCmd = &cobra.Command{
	Use:           "simulation",
	Short:         "Run the life-planning interview engine from a terminal",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&provider, "provider", envOr("LLM_PROVIDER", "mock"), "completion provider: mock, ollama, openai or gemini")
	rootCmd.PersistentFlags().StringVar(&model, "model", os.Getenv("LLM_MODEL"), "model name for the provider")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", os.Getenv("LLM_BASE_URL"), "provider base URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "provider API key (defaults to LLM_API_KEY)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "yaml", "extraction output: yaml or json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write engine logs to this file")

	rootCmd.AddCommand(interviewCmd, extractCmd, eventsCmd)
}

func completionService() (llm.CompletionService, error) {
	key := apiKey
	if key == "" {
		key = os.Getenv("LLM_API_KEY")
	}
	return factory.NewCompletionService(factory.Settings{
		Provider: provider,
		Model:    model,
		BaseURL:  baseURL,
		APIKey:   key,
	})
}

// cliLogger keeps engine logs off the terminal so they never interleave
// with the transcript.
func cliLogger() logger.ILogger {
	if logFile == "" {
		return logger.NewNopLogger()
	}
	return logger.NewIsolatedLogger(logFile)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
