package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/ragchat/internal/orchestrator"
	"github.com/Yates-Labs/ragchat/internal/rag"
)

var (
	searchK    int
	exportFile string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Show the passages retrieved for a query",
	Long: `Embed a query and display the closest chunks in the vector store with
their similarity scores. Useful to check what the chat will see as context.

Examples:
  ragchat search "garantía"
  ragchat search "garantía" --k 10 --export resultados.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchK, "k", 0, "Number of chunks to retrieve (default top_k from config)")
	searchCmd.Flags().StringVar(&exportFile, "export", "", "Export results to JSON file: --export <filename>")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := commandContext(cmd)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pipeline, err := orchestrator.NewPipeline(ctx, cfg, orchestrator.IndexOnly())
	if err != nil {
		return err
	}
	defer pipeline.Close()

	results, err := pipeline.Retrieve(ctx, args[0], searchK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No chunks found; run 'ragchat index' first")
		return nil
	}

	if exportFile != "" {
		return handleExport(out, results, exportFile)
	}

	outputTable(out, results)
	return nil
}

func handleExport(out io.Writer, results []rag.ScoredChunk, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Fprintf(out, "✓ Exported %d chunks to %s\n", len(results), filename)
	return nil
}

// preview shortens content to at most n runes on a single line.
func preview(content string, n int) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n-1]) + "…"
}

func outputTable(out io.Writer, results []rag.ScoredChunk) {
	// Column widths
	const (
		rankWidth    = 6
		scoreWidth   = 9
		sourceWidth  = 24
		previewWidth = 60
	)

	headerCell := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true).
		Padding(0, 1)

	headers := []string{
		headerCell.Width(rankWidth).Render("RANK"),
		headerCell.Width(scoreWidth).Render("SCORE"),
		headerCell.Width(sourceWidth).Render("SOURCE"),
		headerCell.Width(previewWidth).Render("CONTENT"),
	}
	fmt.Fprintln(out, strings.Join(headers, borderStyle.Render("│")))

	separatorParts := []string{
		strings.Repeat("─", rankWidth),
		strings.Repeat("─", scoreWidth),
		strings.Repeat("─", sourceWidth),
		strings.Repeat("─", previewWidth),
	}
	fmt.Fprintln(out, borderStyle.Render(strings.Join(separatorParts, "┼")))

	numStyle := lipgloss.NewStyle().
		Foreground(numberColor).
		Padding(0, 1).
		Align(lipgloss.Right)

	sourceStyle := lipgloss.NewStyle().
		Foreground(botColor).
		Padding(0, 1).
		Width(sourceWidth)

	textStyle := lipgloss.NewStyle().
		Foreground(textColor).
		Padding(0, 1).
		Width(previewWidth)

	for i, r := range results {
		cells := []string{
			numStyle.Width(rankWidth).Render(fmt.Sprintf("%d", i+1)),
			numStyle.Width(scoreWidth).Render(fmt.Sprintf("%.3f", r.Score)),
			sourceStyle.Render(preview(r.Source, sourceWidth-2)),
			textStyle.Render(preview(r.Content, previewWidth-2)),
		}
		fmt.Fprintln(out, strings.Join(cells, borderStyle.Render("│")))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, summaryStyle.Render(fmt.Sprintf("Total: %d chunks", len(results))))
}
