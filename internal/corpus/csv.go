package corpus

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/mfenderov/doccorpus/pkg/models"
	"github.com/spf13/afero"
)

var header = []string{"filename", "date", "text"}

var bom = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes docs to path as "filename,date,text" rows. The file is
// written beside path and renamed into place. withBOM prefixes the UTF-8
// byte order mark that spreadsheet tools use to detect the encoding.
func WriteCSV(fsys afero.Fs, path string, docs []models.ExtractedDocument, withBOM bool) error {
	if len(docs) == 0 {
		return ErrEmptyCorpus
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	tmp := path + ".tmp"
	f, err := fsys.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	err = writeRows(f, docs, withBOM)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fsys.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	if err := fsys.Rename(tmp, path); err != nil {
		fsys.Remove(tmp)
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}

	slog.Info("wrote corpus", "path", path, "rows", len(docs))
	return nil
}

func writeRows(w io.Writer, docs []models.ExtractedDocument, withBOM bool) error {
	if withBOM {
		if _, err := w.Write(bom); err != nil {
			return err
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, d := range docs {
		if err := cw.Write([]string{d.Filename, d.Date, d.Text}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a corpus written by WriteCSV, with or without a BOM.
func ReadCSV(fsys afero.Fs, path string) ([]models.ExtractedDocument, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	docs, err := DecodeCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

// DecodeCSV parses corpus rows from r.
func DecodeCSV(r io.Reader) ([]models.ExtractedDocument, error) {
	br := bufio.NewReader(r)
	if prefix, _ := br.Peek(len(bom)); bytes.Equal(prefix, bom) {
		br.Discard(len(bom))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = len(header)

	cols, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyCorpus
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, name := range header {
		if cols[i] != name {
			return nil, fmt.Errorf("unexpected column %q at position %d, want %q", cols[i], i, name)
		}
	}

	var docs []models.ExtractedDocument
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		docs = append(docs, models.ExtractedDocument{
			Filename: row[0],
			Date:     row[1],
			Text:     row[2],
		})
	}

	return docs, nil
}
