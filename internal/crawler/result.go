package crawler

import (
	"time"

	"github.com/mfenderov/doccorpus/pkg/models"
)

// RevealState is where the "load more" loop stopped.
type RevealState int

const (
	Loading RevealState = iota
	Exhausted
	Bounded
)

func (s RevealState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Exhausted:
		return "exhausted"
	case Bounded:
		return "bounded"
	default:
		return "unknown"
	}
}

// OutcomeKind classifies how one catalog entry was handled.
type OutcomeKind int

const (
	Downloaded OutcomeKind = iota
	AlreadyPresent
	NoDocument
	Skipped
	FetchFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case Downloaded:
		return "downloaded"
	case AlreadyPresent:
		return "already_present"
	case NoDocument:
		return "no_document"
	case Skipped:
		return "skipped"
	case FetchFailed:
		return "fetch_failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of processing one entry.
type Outcome struct {
	Entry    models.CatalogEntry
	Kind     OutcomeKind
	Filename string
	Reason   error // nil for Downloaded and AlreadyPresent
}

// Result summarizes a crawl run.
type Result struct {
	Clicks         int
	State          RevealState
	Entries        int // entries processed, whatever their outcome
	Downloaded     int
	AlreadyPresent int
	NoDocument     int
	Skipped        int
	FetchFailed    int
	Duration       time.Duration
}

func (r *Result) record(o Outcome) {
	r.Entries++
	switch o.Kind {
	case Downloaded:
		r.Downloaded++
	case AlreadyPresent:
		r.AlreadyPresent++
	case NoDocument:
		r.NoDocument++
	case Skipped:
		r.Skipped++
	case FetchFailed:
		r.FetchFailed++
	}
}
