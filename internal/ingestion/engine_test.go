package ingestion

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mfenderov/doccorpus/internal/corpus"
	"github.com/mfenderov/doccorpus/pkg/models"
	"github.com/spf13/afero"
)

type memIndex struct {
	created   bool
	refreshed bool
	docs      map[string]models.ExtractedDocument
	failFor   string
}

func (m *memIndex) CreateIndex(ctx context.Context) error {
	m.created = true
	return nil
}

func (m *memIndex) IndexDocument(ctx context.Context, doc models.ExtractedDocument) error {
	if doc.Filename == m.failFor {
		return errors.New("mapper_parsing_exception")
	}
	if m.docs == nil {
		m.docs = map[string]models.ExtractedDocument{}
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *memIndex) Refresh(ctx context.Context) error {
	m.refreshed = true
	return nil
}

type lengthEmbedder struct {
	calls int
}

func (e *lengthEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	return []float32{float32(len(text))}, nil
}

func writeCorpus(t *testing.T, fsys afero.Fs) {
	t.Helper()
	docs := []models.ExtractedDocument{
		{Filename: "A(2024)09-03.pdf", Date: "2024-09-03", Text: "Hello"},
		{Filename: "B(2024)09-04.pdf", Date: "2024-09-04", Text: ""},
	}
	if err := corpus.WriteCSV(fsys, "extracted_texts.csv", docs, true); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
}

func TestIngestFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeCorpus(t, fsys)
	idx := &memIndex{}
	emb := &lengthEmbedder{}

	res, err := New(idx, emb).IngestFile(context.Background(), fsys, "extracted_texts.csv")
	if err != nil {
		t.Fatalf("IngestFile() error = %v", err)
	}

	if !idx.created || !idx.refreshed {
		t.Error("index should be created and refreshed")
	}
	if res.DocsIndexed != 2 {
		t.Errorf("DocsIndexed = %d, want 2", res.DocsIndexed)
	}
	if emb.calls != 1 || res.Embedded != 1 {
		t.Errorf("embedded %d (calls %d), want only the row with text", res.Embedded, emb.calls)
	}

	doc, ok := idx.docs[models.GenerateDocumentID("A(2024)09-03.pdf")]
	if !ok {
		t.Fatal("row A not indexed under its filename ID")
	}
	if doc.Date != "2024-09-03" || len(doc.Embedding) != 1 {
		t.Errorf("indexed %+v", doc)
	}
}

func TestIngest_CollectsFailures(t *testing.T) {
	idx := &memIndex{failFor: "bad.pdf"}
	docs := []models.ExtractedDocument{
		{Filename: "good.pdf", Text: "a"},
		{Filename: "bad.pdf", Text: "b"},
	}

	res, err := New(idx, nil).Ingest(context.Background(), "test", docs)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if res.DocsIndexed != 1 || len(res.Errors) != 1 {
		t.Errorf("DocsIndexed = %d, Errors = %v", res.DocsIndexed, res.Errors)
	}
}

type memCorpora map[string]string

func (m memCorpora) GetCorpus(ctx context.Context, prefix string) (io.ReadCloser, error) {
	data, ok := m[prefix]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func TestIngestPrefix(t *testing.T) {
	source := memCorpora{
		"corpora/x": "\ufefffilename,date,text\na.pdf,,text a\n",
	}
	idx := &memIndex{}

	res, err := New(idx, nil).IngestPrefix(context.Background(), source, "corpora/x")
	if err != nil {
		t.Fatalf("IngestPrefix() error = %v", err)
	}
	if res.DocsIndexed != 1 || res.Source != "corpora/x" {
		t.Errorf("result = %+v", res)
	}

	if _, err := New(idx, nil).IngestPrefix(context.Background(), source, "corpora/missing"); err == nil {
		t.Error("IngestPrefix() should fail for a missing corpus")
	}
}
