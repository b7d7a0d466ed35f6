// Package corpus turns a directory of downloaded documents into a
// tabular text corpus.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mfenderov/doccorpus/internal/filedate"
	"github.com/mfenderov/doccorpus/pkg/models"
	"github.com/spf13/afero"
)

var (
	ErrNoDocuments = errors.New("corpus: no documents found")
	ErrEmptyCorpus = errors.New("corpus: no rows to write")
)

// Source lists and opens downloaded documents.
type Source interface {
	List(ext string) ([]models.DownloadRecord, error)
	Open(filename string) (afero.File, error)
}

// Extractor returns a document's text, or "" when there is none.
type Extractor interface {
	Text(name string, rs io.ReadSeeker) string
}

// Builder assembles ExtractedDocuments from a Source.
type Builder struct {
	source    Source
	extractor Extractor
	ext       string
}

// NewBuilder creates a Builder over the documents in source whose name
// ends in ext.
func NewBuilder(source Source, extractor Extractor, ext string) *Builder {
	if ext == "" {
		ext = ".pdf"
	}
	return &Builder{source: source, extractor: extractor, ext: ext}
}

// Build extracts every eligible document in directory order. Every file
// yields exactly one row; a file whose text could not be extracted gets
// an empty text field.
func (b *Builder) Build(ctx context.Context) ([]models.ExtractedDocument, error) {
	start := time.Now()

	records, err := b.source.List(b.ext)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoDocuments
	}
	slog.Info("found documents", "count", len(records))

	docs := make([]models.ExtractedDocument, 0, len(records))
	empty := 0
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc := b.extract(rec.Filename)
		slog.Debug("progress", "done", i+1, "total", len(records))
		if doc.Text == "" {
			empty++
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	slog.Info("extraction complete",
		"documents", len(docs),
		"without_text", empty,
		"duration", time.Since(start))

	return docs, nil
}

func (b *Builder) extract(filename string) models.ExtractedDocument {
	doc := models.ExtractedDocument{Filename: filename}
	doc.Date, _ = filedate.Parse(filename)

	f, err := b.source.Open(filename)
	if err != nil {
		slog.Error("error opening document", "file", filename, "error", err)
		return doc
	}
	defer f.Close()

	doc.Text = strings.TrimSpace(b.extractor.Text(filename, f))
	if doc.Text == "" {
		slog.Warn("no text extracted", "file", filename)
	} else {
		slog.Info("extracted text", "file", filename, "chars", len(doc.Text), "date", doc.Date)
	}
	return doc
}
