package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/mfenderov/doccorpus/pkg/models"
	"github.com/spf13/afero"
)

const (
	corpusObject   = "corpus.csv"
	metadataObject = "metadata.json"
	documentsDir   = "documents"
)

// ObjectWriter stores objects by key.
type ObjectWriter interface {
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// Metadata describes one published corpus.
type Metadata struct {
	SourceURL string   `json:"source_url"`
	Timestamp string   `json:"timestamp"`
	Corpus    string   `json:"corpus"`
	Documents []string `json:"documents,omitempty"`
}

// PublishRequest names the local files to publish.
type PublishRequest struct {
	SourceURL    string
	CorpusPath   string // CSV artifact
	DocumentsDir string // download directory; empty skips the documents
	Documents    []models.DownloadRecord
}

// NewPrefix returns a unique "corpora/<timestamp>-<shortid>" prefix.
func NewPrefix(sourceURL string, now time.Time) string {
	timestamp := now.UTC().Format("2006-01-02T15-04-05")
	shortID := models.GenerateDocumentID(fmt.Sprintf("%s-%d", sourceURL, now.UnixNano()))[:8]
	return fmt.Sprintf("corpora/%s-%s", timestamp, shortID)
}

// Publish uploads the corpus, optionally the documents, and finally the
// manifest under prefix. The manifest is written last, so its presence
// means the upload is complete.
func Publish(ctx context.Context, objects ObjectWriter, fsys afero.Fs, prefix string, req PublishRequest) (*Metadata, error) {
	slog.Info("publishing corpus", "prefix", prefix, "corpus", req.CorpusPath)

	if err := putFile(ctx, objects, fsys, req.CorpusPath, path.Join(prefix, corpusObject), "text/csv"); err != nil {
		return nil, err
	}

	meta := &Metadata{
		SourceURL: req.SourceURL,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Corpus:    corpusObject,
	}

	if req.DocumentsDir != "" {
		for _, rec := range req.Documents {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			key := path.Join(prefix, documentsDir, rec.Filename)
			local := filepath.Join(req.DocumentsDir, rec.Filename)
			if err := putFile(ctx, objects, fsys, local, key, "application/pdf"); err != nil {
				return nil, err
			}
			meta.Documents = append(meta.Documents, rec.Filename)
			slog.Debug("published document", "key", key)
		}
	}

	if err := putJSON(ctx, objects, path.Join(prefix, metadataObject), meta); err != nil {
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}

	slog.Info("publish complete", "prefix", prefix, "documents", len(meta.Documents))
	return meta, nil
}

func putFile(ctx context.Context, objects ObjectWriter, fsys afero.Fs, local, key, contentType string) error {
	f, err := fsys.Open(local)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", local, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", local, err)
	}

	return objects.PutObject(ctx, key, f, info.Size(), contentType)
}
