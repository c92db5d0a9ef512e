package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Yates-Labs/ragchat/internal/orchestrator"
	"github.com/Yates-Labs/ragchat/internal/session"
)

const (
	userPrompt  = "Tú: "
	exitCommand = "salir"
)

var (
	rebuild   bool
	skipIndex bool
	sessionID string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Index the data directory and start the chat",
	Long: `Index the documents in the data directory and start an interactive chat.

By default new chunks are appended to the existing vector store, so running
the command twice over the same files stores them twice. Use --rebuild to
delete the store and index from scratch, or --skip-index to chat over the
current index.

Type 'salir' or press Ctrl-D to leave.

Examples:
  ragchat chat
  ragchat chat --rebuild
  ragchat chat --skip-index --session soporte`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	addChatFlags(chatCmd)
}

func addChatFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Delete the vector store and index from scratch")
	cmd.Flags().BoolVar(&skipIndex, "skip-index", false, "Chat over the existing index without indexing")
	cmd.Flags().StringVar(&sessionID, "session", "", "Conversation session identifier (default "+session.DefaultID+")")
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext(cmd)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pipeline, err := orchestrator.NewPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	out := cmd.OutOrStdout()
	if !skipIndex {
		if _, err := pipeline.BuildIndex(ctx, rebuild); err != nil {
			return err
		}
		fmt.Fprintln(out, successStyle.Render("Indexación completada."))
	}

	id := sessionID
	if id == "" {
		id = cfg.SessionID
	}

	fmt.Fprintln(out, headerStyle.Render("Chatbot RAG iniciado. Escribe 'salir' para terminar."))
	return runREPL(ctx, cmd.InOrStdin(), out, pipeline, id)
}

// answerer runs one conversation turn.
type answerer interface {
	Answer(ctx context.Context, sessionID, question string) (string, error)
}

// runREPL reads questions line by line until 'salir' or end of input.
// A failed turn is reported and the loop continues.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, bot answerer, sessionID string) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, userPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(question, exitCommand) {
			return nil
		}
		if question == "" {
			continue
		}

		answer, err := bot.Answer(ctx, sessionID, question)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(out)
				return nil
			}
			fmt.Fprintln(out, errorStyle.Render("Error:"), userMessage(err))
			continue
		}

		fmt.Fprintln(out, botStyle.Render("Bot:"), answer)
	}
}
