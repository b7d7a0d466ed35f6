package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/mfenderov/doccorpus/internal/storage"
	"github.com/mfenderov/doccorpus/internal/store"
	"github.com/spf13/cobra"
)

var (
	publishFile      string
	publishDocuments bool
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload the corpus to S3/MinIO",
	Long: `Upload the corpus CSV, and optionally every downloaded PDF, under a new
prefix corpora/<timestamp>-<id>/ with a metadata.json manifest. The printed
prefix can be passed to "ingest --prefix".

Examples:
  doccorpus publish
  doccorpus publish --documents`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVar(&publishFile, "file", "", "corpus CSV to upload (default from config)")
	publishCmd.Flags().BoolVar(&publishDocuments, "documents", false, "also upload the downloaded PDFs")
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	storageClient, err := newStorageClient(cfg)
	if err != nil {
		return err
	}
	if err := storageClient.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure bucket: %w", err)
	}

	req := storage.PublishRequest{
		SourceURL:  cfg.Crawler.StartURL,
		CorpusPath: cfg.Corpus.Output,
	}
	if publishFile != "" {
		req.CorpusPath = publishFile
	}

	if publishDocuments {
		st, err := store.Open(fsys, cfg.Store.Dir)
		if err != nil {
			return err
		}
		records, err := st.List(cfg.Store.Extension)
		if err != nil {
			return err
		}
		req.DocumentsDir = st.Dir()
		req.Documents = records
	}

	prefix := storage.NewPrefix(req.SourceURL, time.Now())
	meta, err := storage.Publish(ctx, storageClient, fsys, prefix, req)
	if err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	fmt.Printf("\nPublished to s3://%s/%s/\n", storageClient.Bucket(), prefix)
	fmt.Printf("  Documents: %d\n", len(meta.Documents))
	return nil
}
