package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/ragchat/internal/config"
	"github.com/Yates-Labs/ragchat/internal/logger"
)

var (
	configPath   string
	verbose      bool
	dataDir      string
	persistDir   string
	systemPrompt string
)

var rootCmd = &cobra.Command{
	Use:   "ragchat",
	Short: "ragchat - retrieval-augmented terminal chatbot",
	Long: `ragchat answers questions about your documents.

It loads .txt, .docx and .pdf files from the data directory (scanned PDF pages
go through OCR), indexes them into a local vector store and then opens a chat
where every answer is grounded in the most relevant passages.

Running ragchat without a subcommand starts the chat.

Required environment variables:
  GOOGLE_API_KEY     - Gemini API key for embeddings and chat`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Setup(verbose)
	},
	RunE: runChat,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", config.DefaultPath, "Path to the YAML config file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Show debug logs")
	flags.StringVar(&dataDir, "data-dir", "", "Directory with the documents to index (default data/)")
	flags.StringVar(&persistDir, "persist-dir", "", "Directory for the vector store (default db)")
	flags.StringVar(&systemPrompt, "system-prompt", "", "File with the system instructions (default system_prompt.txt)")

	addChatFlags(rootCmd)
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), userMessage(err))
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if persistDir != "" {
		cfg.PersistDir = persistDir
	}
	if systemPrompt != "" {
		cfg.SystemPrompt = systemPrompt
	}
	return cfg, nil
}

// commandContext returns the command's context cancelled on Ctrl-C.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// userMessage renders err for the terminal.
func userMessage(err error) string {
	if errors.Is(err, config.ErrMissingAPIKey) {
		return config.MissingAPIKeyMessage
	}
	return err.Error()
}
