package models

import (
	"crypto/sha256"
	"encoding/hex"
)

// ExpansionState tracks whether a catalog entry's detail panel has been opened.
type ExpansionState int

const (
	Collapsed ExpansionState = iota
	Expanded
)

func (s ExpansionState) String() string {
	if s == Expanded {
		return "expanded"
	}
	return "collapsed"
}

// CatalogEntry is one rendered item of the remote list during a crawl.
// It only lives while the crawler works on it.
type CatalogEntry struct {
	Index       int // 1-based position in the rendered list
	Title       string
	State       ExpansionState
	DocumentURL string // empty until the entry is expanded and a link is found
}

// DownloadRecord is a document file present in the download directory.
type DownloadRecord struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// ExtractedDocument is one row of the corpus.
type ExtractedDocument struct {
	ID        string    `json:"id,omitempty"`
	Filename  string    `json:"filename"`
	Date      string    `json:"date"` // YYYY-MM-DD from the filename, empty when absent
	Text      string    `json:"text"` // empty when extraction failed
	Embedding []float32 `json:"embedding,omitempty"`
}

// HasDate reports whether a date was parsed from the filename.
func (d ExtractedDocument) HasDate() bool {
	return d.Date != ""
}

// GenerateDocumentID creates a deterministic ID from a filename or URL.
// The ID is a SHA-256 hash (first 16 chars) of the input.
func GenerateDocumentID(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])[:16]
}
