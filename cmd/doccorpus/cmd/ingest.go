package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/mfenderov/doccorpus/internal/ingestion"
	"github.com/spf13/cobra"
)

var (
	ingestFile   string
	ingestPrefix string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index a corpus into Elasticsearch",
	Long: `Index the rows of a corpus CSV into Elasticsearch, one document per file.
Re-ingesting replaces documents with the same filename.

Examples:
  # Index the local corpus
  doccorpus ingest

  # Index a corpus published to S3
  doccorpus ingest --prefix corpora/2024-09-03T17-30-00-abc12345`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "corpus CSV to index (default from config)")
	ingestCmd.Flags().StringVar(&ingestPrefix, "prefix", "", "S3 prefix of a published corpus to index instead")
	ingestCmd.MarkFlagsMutuallyExclusive("file", "prefix")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	slog.Debug("ingest command starting", "file", ingestFile, "prefix", ingestPrefix)

	esClient, err := newESClient(cfg)
	if err != nil {
		return err
	}

	embedClient, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	// A nil *embeddings.Client must not become a non-nil Embedder.
	var engine *ingestion.Engine
	if embedClient != nil {
		engine = ingestion.New(esClient, embedClient)
	} else {
		engine = ingestion.New(esClient, nil)
	}

	var result *ingestion.Result
	if ingestPrefix != "" {
		storageClient, err := newStorageClient(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("Ingesting: %s\n", ingestPrefix)
		result, err = engine.IngestPrefix(ctx, storageClient, ingestPrefix)
		if err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}
	} else {
		path := cfg.Corpus.Output
		if ingestFile != "" {
			path = ingestFile
		}
		fmt.Printf("Ingesting: %s\n", path)
		result, err = engine.IngestFile(ctx, fsys, path)
		if err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Docs indexed: %d\n", result.DocsIndexed)
	fmt.Printf("  Embedded:     %d\n", result.Embedded)
	fmt.Printf("  Duration:     %v\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("  Warnings: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}

	return nil
}
