package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Yates-Labs/ragchat/internal/orchestrator"
	"github.com/Yates-Labs/ragchat/internal/rag"
)

var (
	askIndex    bool
	showContext bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and exit",
	Long: `Answer one question against the current index without opening the chat.

Examples:
  ragchat ask "¿Qué dice el manual sobre la garantía?"
  ragchat ask "Resume el documento" --index --show-context`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVar(&askIndex, "index", false, "Index the data directory before answering")
	askCmd.Flags().BoolVar(&showContext, "show-context", false, "Print the passages the answer was based on")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(args[0])
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
	if askIndex {
		if _, err := buildIndex(ctx, pipeline, false); err != nil {
			return err
		}
	}

	// Print question
	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("Pregunta:"))
	fmt.Fprintln(out, contextStyle.Render(question))
	fmt.Fprintln(out)

	answer, sources, err := pipeline.AnswerWithSources(ctx, cfg.SessionID, question)
	if err != nil {
		return err
	}

	if showContext {
		printSources(out, sources)
	}

	fmt.Fprintln(out, headerStyle.Render("Respuesta:"))
	fmt.Fprintln(out)
	fmt.Fprintln(out, answerStyle.Render(strings.TrimSpace(answer)))
	fmt.Fprintln(out)
	return nil
}

// printSources lists the chunks passed to the model, numbered from 1.
func printSources(out io.Writer, sources []rag.Chunk) {
	fmt.Fprintln(out, headerStyle.Render("Contexto:"))
	if len(sources) == 0 {
		fmt.Fprintln(out, contextStyle.Render("(sin resultados)"))
	}
	for i, c := range sources {
		fmt.Fprintln(out, contextStyle.Render(fmt.Sprintf("→ [%d] %s: %s", i+1, c.Source, preview(c.Content, 80))))
	}
	fmt.Fprintln(out)
}
