package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Yates-Labs/ragchat/internal/orchestrator"
	"github.com/Yates-Labs/ragchat/internal/rag"
)

var indexRebuild bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the data directory without starting the chat",
	Long: `Load, split and embed every supported document in the data directory
and store the chunks in the vector store.

Examples:
  ragchat index
  ragchat index --rebuild --data-dir manuales/`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "Delete the vector store and index from scratch")
}

func runIndex(cmd *cobra.Command, _ []string) error {
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

	res, err := buildIndex(ctx, pipeline, indexRebuild)
	if err != nil {
		return err
	}

	printIndexSummary(cmd.OutOrStdout(), cfg.DataDir, pipeline.Loader().Registry().Extensions(), res)
	return nil
}

func buildIndex(ctx context.Context, pipeline *orchestrator.Pipeline, rebuild bool) (*rag.IndexResult, error) {
	res, err := pipeline.BuildIndex(ctx, rebuild)
	if err != nil {
		return nil, fmt.Errorf("indexing failed: %w", err)
	}
	return res, nil
}

func printIndexSummary(out io.Writer, dir string, extensions []string, res *rag.IndexResult) {
	const labelWidth = 12

	labelStyle := lipgloss.NewStyle().
		Foreground(headerColor).
		Bold(true).
		Width(labelWidth)

	numStyle := lipgloss.NewStyle().
		Foreground(numberColor).
		Align(lipgloss.Right).
		Width(8)

	rows := []struct {
		label string
		value int
	}{
		{"DOCUMENTS", res.Documents},
		{"CHUNKS", res.Chunks},
		{"SKIPPED", len(res.Skipped)},
		{"TOTAL", res.Total},
	}

	fmt.Fprintln(out, successStyle.Render("Indexación completada."))
	for _, row := range rows {
		fmt.Fprintln(out, labelStyle.Render(row.label)+borderStyle.Render("│")+numStyle.Render(fmt.Sprintf("%d", row.value)))
	}

	fmt.Fprintln(out)
	summary := fmt.Sprintf("Indexed %s (supported: %s)", dir, strings.Join(extensions, " "))
	if len(res.Skipped) > 0 {
		summary += fmt.Sprintf("; skipped %s", strings.Join(res.Skipped, ", "))
	}
	fmt.Fprintln(out, summaryStyle.Render(summary))
}
