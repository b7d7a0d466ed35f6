package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mfenderov/doccorpus/internal/config"
	"github.com/mfenderov/doccorpus/internal/corpus"
	"github.com/mfenderov/doccorpus/internal/extract"
	"github.com/mfenderov/doccorpus/internal/store"
	"github.com/spf13/cobra"
)

var (
	extractDir    string
	extractOutput string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Build the CSV corpus from downloaded documents",
	Long: `Extract the text of every PDF in the download directory, take the date
from each filename, and write one "filename,date,text" row per file.

Files without a text layer still get a row, with empty text.

Examples:
  doccorpus extract
  doccorpus extract --dir reports --output reports.csv`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractDir, "dir", "", "download directory (default from config)")
	extractCmd.Flags().StringVar(&extractOutput, "output", "", "CSV output path (default from config)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	if extractDir != "" {
		cfg.Store.Dir = extractDir
	}
	if extractOutput != "" {
		cfg.Corpus.Output = extractOutput
	}

	return buildCorpus(ctx, cmd, cfg)
}

func buildCorpus(ctx context.Context, cmd *cobra.Command, cfg config.Config) error {
	st, err := store.Open(fsys, cfg.Store.Dir)
	if err != nil {
		return err
	}

	ex := extract.New(extract.Config{
		UserPassword:  cfg.Extract.UserPassword,
		OwnerPassword: cfg.Extract.OwnerPassword,
	})

	docs, err := corpus.NewBuilder(st, ex, cfg.Store.Extension).Build(ctx)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	if err := corpus.WriteCSV(fsys, cfg.Corpus.Output, docs, cfg.Corpus.BOM); err != nil {
		return err
	}

	withText := 0
	for _, d := range docs {
		if d.Text != "" {
			withText++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nWrote %d rows (%d with text) to %s\n", len(docs), withText, cfg.Corpus.Output)
	return nil
}
