// Package extract pulls the text layer out of PDF documents.
//
// Extraction never fails a batch: Text returns an empty string and logs
// the reason when a document cannot be parsed. Scanned documents with no
// text layer also come back empty; there is no OCR.
package extract

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Config holds extractor configuration.
type Config struct {
	UserPassword  string // for encrypted documents
	OwnerPassword string
}

// Extractor reads PDF text via pdfcpu.
type Extractor struct {
	config Config
}

// New creates an Extractor.
func New(config Config) *Extractor {
	return &Extractor{config: config}
}

// Text returns the document's text, or "" when it cannot be extracted.
// name is only used for diagnostics.
func (e *Extractor) Text(name string, rs io.ReadSeeker) string {
	text, err := e.ExtractText(rs)
	if err != nil {
		slog.Error("error extracting text", "file", name, "error", err)
		return ""
	}
	if text == "" {
		slog.Debug("document has no text layer", "file", name)
	}
	return text
}

// ExtractText returns the text of every page, pages separated by a blank
// line. pdfcpu panics on some malformed inputs; those come back as errors.
func (e *Extractor) ExtractText(rs io.ReadSeeker) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdfcpu panic: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.UserPW = e.config.UserPassword
	conf.OwnerPW = e.config.OwnerPassword

	ctx, err := api.ReadValidateAndOptimize(rs, conf)
	if err != nil {
		return "", fmt.Errorf("pdfcpu read: %w", err)
	}

	var pages []string
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		pageText, err := extractPage(ctx, pageNr)
		if err != nil {
			slog.Debug("skipping page", "page", pageNr, "error", err)
			continue
		}
		if pageText != "" {
			pages = append(pages, pageText)
		}
	}

	return strings.Join(pages, "\n\n"), nil
}

func extractPage(ctx *model.Context, pageNr int) (string, error) {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return "", err
	}
	if r == nil {
		return "", nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return decodeContent(data, pageFonts(ctx, pageNr)), nil
}
