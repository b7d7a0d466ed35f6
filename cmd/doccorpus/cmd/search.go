package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/mfenderov/doccorpus/internal/elasticsearch"
	"github.com/spf13/cobra"
)

var (
	searchLimit  int
	searchFormat string
	searchFrom   string
	searchTo     string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the indexed corpus",
	Long: `Search the indexed corpus text and filenames.

Examples:
  # Basic search
  doccorpus search "agricultural budget"

  # Only documents dated in 2024
  doccorpus search "budget" --from 2024-01-01 --to 2024-12-31

  # JSON output for scripting
  doccorpus search "fisheries" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results")
	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "Output format: text or json")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "Earliest document date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "Latest document date (YYYY-MM-DD)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	esClient, err := newESClient(cfg)
	if err != nil {
		return err
	}

	q := elasticsearch.Query{
		Text:  args[0],
		From:  searchFrom,
		To:    searchTo,
		Limit: searchLimit,
	}

	var vector []float32
	embedClient, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	if embedClient != nil {
		if vector, err = embedClient.Embed(ctx, q.Text); err != nil {
			slog.Warn("failed to embed query, using text search", "error", err)
			vector = nil
		}
	}

	docs, err := esClient.HybridSearch(ctx, q, vector)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(docs) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if searchFormat == "json" {
		output, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(docs))
	for i, doc := range docs {
		date := doc.Date
		if !doc.HasDate() {
			date = "-"
		}
		fmt.Printf("─── Result %d ───\n", i+1)
		fmt.Printf("File:    %s\n", doc.Filename)
		fmt.Printf("Date:    %s\n", date)
		fmt.Printf("ID:      %s\n", doc.ID)

		text := []rune(doc.Text)
		if len(text) > 500 {
			text = append(text[:500], []rune("...")...)
		}
		fmt.Printf("Text:\n%s\n\n", string(text))
	}

	return nil
}
