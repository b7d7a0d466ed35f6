package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gocolly/colly/v2"
)

// Config holds fetcher configuration.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	// MaxBodySize rejects bodies of this many bytes or more; 0 means
	// unlimited.
	MaxBodySize int
}

// Sink receives downloaded bytes. store.Store satisfies it.
type Sink interface {
	Put(filename string, r io.Reader) (int64, error)
}

// ErrTooLarge means the body reached the configured size limit and may be
// truncated.
var ErrTooLarge = errors.New("document exceeds size limit")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// Fetcher downloads documents with a single bounded GET per URL.
type Fetcher struct {
	config    Config
	collector *colly.Collector
	sink      Sink
}

// New creates a Fetcher that writes successful downloads to sink.
func New(config Config, sink Sink) *Fetcher {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "doccorpus/1.0"
	}

	c := colly.NewCollector(
		colly.UserAgent(config.UserAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(config.MaxBodySize),
		// Every response reaches OnResponse; 2xx is decided there.
		colly.ParseHTTPErrorResponse(),
	)
	c.SetRequestTimeout(config.Timeout)

	return &Fetcher{
		config:    config,
		collector: c,
		sink:      sink,
	}
}

// Fetch downloads url and stores it as filename. Any transport error,
// timeout or non-2xx status is returned; nothing is retried and nothing
// is written in that case.
func (f *Fetcher) Fetch(ctx context.Context, url, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Each call gets its own callbacks; the clone shares the HTTP backend.
	c := f.collector.Clone()

	var (
		written  int64
		fetchErr error
		writeErr error
		status   int
	)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			slog.Debug("fetch cancelled", "url", r.URL.String())
			r.Abort()
		}
	})

	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		switch {
		case status/100 != 2:
			fetchErr = &StatusError{URL: url, StatusCode: status}
		case f.config.MaxBodySize > 0 && len(r.Body) >= f.config.MaxBodySize:
			// colly cuts the body at the limit without reporting it.
			fetchErr = fmt.Errorf("%w: %d bytes", ErrTooLarge, f.config.MaxBodySize)
		default:
			written, writeErr = f.sink.Put(filename, bytes.NewReader(r.Body))
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	err := c.Visit(url)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = fetchErr
	}
	if err != nil {
		slog.Warn("failed to download", "url", url, "error", err)
		return fmt.Errorf("download %s: %w", url, err)
	}
	if writeErr != nil {
		slog.Warn("failed to store download", "url", url, "filename", filename, "error", writeErr)
		return fmt.Errorf("store %s: %w", filename, writeErr)
	}
	if status == 0 {
		return fmt.Errorf("download %s: no response", url)
	}

	slog.Info("downloaded", "url", url, "filename", filename, "bytes", written)
	return nil
}
