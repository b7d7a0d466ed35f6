// Package ingestion indexes a corpus artifact into Elasticsearch.
package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mfenderov/doccorpus/internal/corpus"
	"github.com/mfenderov/doccorpus/pkg/models"
	"github.com/spf13/afero"
)

// Indexer stores corpus rows.
type Indexer interface {
	CreateIndex(ctx context.Context) error
	IndexDocument(ctx context.Context, doc models.ExtractedDocument) error
	Refresh(ctx context.Context) error
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CorpusSource opens a published corpus by prefix.
type CorpusSource interface {
	GetCorpus(ctx context.Context, prefix string) (io.ReadCloser, error)
}

// Result holds ingestion results.
type Result struct {
	Source      string
	DocsIndexed int
	Embedded    int
	Duration    time.Duration
	Errors      []string
}

// Engine reads corpus rows and indexes them.
type Engine struct {
	indexer  Indexer
	embedder Embedder // nil if embeddings disabled
}

// New creates an ingestion engine. embedder may be nil.
func New(indexer Indexer, embedder Embedder) *Engine {
	return &Engine{indexer: indexer, embedder: embedder}
}

// IngestFile indexes the corpus CSV at path.
func (e *Engine) IngestFile(ctx context.Context, fsys afero.Fs, path string) (*Result, error) {
	docs, err := corpus.ReadCSV(fsys, path)
	if err != nil {
		return nil, err
	}
	return e.Ingest(ctx, path, docs)
}

// IngestPrefix indexes the corpus published under prefix.
func (e *Engine) IngestPrefix(ctx context.Context, source CorpusSource, prefix string) (*Result, error) {
	rc, err := source.GetCorpus(ctx, prefix)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	docs, err := corpus.DecodeCSV(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus under %s: %w", prefix, err)
	}
	return e.Ingest(ctx, prefix, docs)
}

// Ingest indexes docs. Individual failures are collected in the Result;
// only a failure to prepare the index is returned as an error.
func (e *Engine) Ingest(ctx context.Context, source string, docs []models.ExtractedDocument) (*Result, error) {
	start := time.Now()
	result := &Result{Source: source}

	slog.Info("starting ingestion", "source", source, "documents", len(docs))

	if err := e.indexer.CreateIndex(ctx); err != nil {
		return nil, err
	}

	for _, doc := range docs {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "context cancelled")
			break
		}

		doc.ID = models.GenerateDocumentID(doc.Filename)

		if e.embedder != nil && doc.Text != "" {
			embedding, err := e.embedder.Embed(ctx, doc.Text)
			if err != nil {
				slog.Warn("failed to generate embedding", "file", doc.Filename, "error", err)
			} else {
				doc.Embedding = embedding
				result.Embedded++
			}
		}

		if err := e.indexer.IndexDocument(ctx, doc); err != nil {
			slog.Error("failed to index document", "file", doc.Filename, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", doc.Filename, err))
			continue
		}
		slog.Debug("document indexed", "id", doc.ID, "file", doc.Filename)
		result.DocsIndexed++
	}

	if err := e.indexer.Refresh(ctx); err != nil {
		slog.Warn("failed to refresh index", "error", err)
	}

	result.Duration = time.Since(start)
	slog.Info("ingestion complete",
		"source", source,
		"docs_indexed", result.DocsIndexed,
		"embedded", result.Embedded,
		"duration", result.Duration,
		"errors", len(result.Errors))

	return result, nil
}
