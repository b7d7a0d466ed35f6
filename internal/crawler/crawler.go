// Package crawler reveals every item of a paginated, script-rendered
// catalog and downloads the document linked from each item.
//
// The browser is reached only through the Page interface; see
// internal/browser for the Chrome implementation.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/mfenderov/doccorpus/pkg/models"
)

// Config holds the crawl bounds.
type Config struct {
	MaxRevealClicks int
	WaitTimeout     time.Duration // per bounded wait
	ActionDelay     time.Duration // after scrolling an element into view
	SettleDelay     time.Duration // after each "load more" click
	Extension       string        // document extension, e.g. ".pdf"
}

// Store reports which documents are already downloaded.
type Store interface {
	Has(filename string) (bool, error)
}

// Fetcher downloads one document.
type Fetcher interface {
	Fetch(ctx context.Context, url, filename string) error
}

// Crawler drives one crawl over a Page.
type Crawler struct {
	config  Config
	page    Page
	store   Store
	fetcher Fetcher
}

// New creates a Crawler.
func New(config Config, page Page, store Store, fetcher Fetcher) *Crawler {
	if config.WaitTimeout <= 0 {
		config.WaitTimeout = 15 * time.Second
	}
	if config.Extension == "" {
		config.Extension = ".pdf"
	}
	return &Crawler{
		config:  config,
		page:    page,
		store:   store,
		fetcher: fetcher,
	}
}

// Run loads startURL, reveals all entries, and processes each one.
// Only a failed navigation is fatal; per-entry problems are logged and
// tallied in the Result. On cancellation the partial Result is returned
// with ctx.Err().
func (c *Crawler) Run(ctx context.Context, startURL string) (*Result, error) {
	start := time.Now()
	res := &Result{}

	if err := c.page.Navigate(ctx, startURL); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", startURL, err)
	}
	slog.Info("navigated", "url", startURL)

	res.Clicks, res.State = c.Reveal(ctx)
	if err := ctx.Err(); err != nil {
		res.Duration = time.Since(start)
		return res, err
	}

	waitCtx, cancel := c.bounded(ctx)
	entries, err := c.page.Entries(waitCtx)
	cancel()
	if err != nil {
		slog.Warn("timeout while waiting for catalog entries", "error", err)
	}
	slog.Info("found catalog entries", "count", len(entries))

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, err
		}
		res.record(c.process(ctx, i+1, e))
	}

	res.Duration = time.Since(start)
	slog.Info("crawl complete",
		"clicks", res.Clicks,
		"reveal_state", res.State,
		"entries", res.Entries,
		"downloaded", res.Downloaded,
		"already_present", res.AlreadyPresent,
		"no_document", res.NoDocument,
		"skipped", res.Skipped,
		"fetch_failed", res.FetchFailed,
		"duration", res.Duration)

	return res, nil
}

// Reveal clicks the "load more" control until it disappears or the click
// ceiling is reached. It never fails: any error ends the loop as
// Exhausted.
func (c *Crawler) Reveal(ctx context.Context) (int, RevealState) {
	clicks := 0
	for clicks < c.config.MaxRevealClicks {
		if err := c.clickReveal(ctx); err != nil {
			slog.Info("no more 'load more' control", "clicks", clicks, "reason", err)
			return clicks, Exhausted
		}
		clicks++
		slog.Debug("clicked 'load more'", "click", clicks, "max", c.config.MaxRevealClicks)

		if err := sleep(ctx, c.config.SettleDelay); err != nil {
			return clicks, Exhausted
		}
	}

	slog.Info("reached maximum 'load more' clicks", "max", c.config.MaxRevealClicks)
	return clicks, Bounded
}

func (c *Crawler) clickReveal(ctx context.Context) error {
	waitCtx, cancel := c.bounded(ctx)
	ctrl, err := c.page.RevealControl(waitCtx)
	if err == nil {
		err = ctrl.ScrollIntoView(waitCtx)
	}
	cancel()
	if err != nil {
		return err
	}

	if err := sleep(ctx, c.config.ActionDelay); err != nil {
		return err
	}

	clickCtx, cancel := c.bounded(ctx)
	defer cancel()

	err = ctrl.Click(clickCtx)
	if errors.Is(err, ErrIntercepted) {
		slog.Debug("native click intercepted, clicking from script")
		err = ctrl.ForceClick(clickCtx)
	}
	return err
}

// process resolves one entry's document and downloads it unless it is
// already in the store.
func (c *Crawler) process(ctx context.Context, index int, e Entry) Outcome {
	entry, err := c.resolve(ctx, index, e)
	o := Outcome{Entry: entry, Reason: err}

	switch {
	case errors.Is(err, ErrNoDocument):
		o.Kind = NoDocument
		slog.Info("no document link for entry", "index", index, "title", entry.Title)
		return o
	case err != nil:
		o.Kind = Skipped
		slog.Warn("skipping entry", "index", index, "title", entry.Title, "reason", err)
		return o
	}

	filename, err := Filename(entry.DocumentURL, c.config.Extension)
	if err != nil {
		o.Kind, o.Reason = NoDocument, err
		slog.Info("entry link is not a document", "index", index, "url", entry.DocumentURL, "reason", err)
		return o
	}
	o.Filename = filename

	has, err := c.store.Has(filename)
	if err != nil {
		o.Kind, o.Reason = Skipped, err
		slog.Warn("skipping entry", "index", index, "filename", filename, "reason", err)
		return o
	}
	if has {
		o.Kind = AlreadyPresent
		slog.Info("already downloaded", "index", index, "filename", filename)
		return o
	}

	if err := c.fetcher.Fetch(ctx, entry.DocumentURL, filename); err != nil {
		o.Kind, o.Reason = FetchFailed, err
		return o
	}

	o.Kind = Downloaded
	return o
}

// resolve expands the entry and returns it with its document URL set.
func (c *Crawler) resolve(ctx context.Context, index int, e Entry) (models.CatalogEntry, error) {
	entry := models.CatalogEntry{Index: index, State: models.Collapsed}

	waitCtx, cancel := c.bounded(ctx)
	title, err := e.Title(waitCtx)
	if err == nil {
		if text, terr := title.Text(waitCtx); terr == nil {
			entry.Title = strings.TrimSpace(text)
		}
		err = title.ScrollIntoView(waitCtx)
	}
	cancel()
	if err != nil {
		return entry, fmt.Errorf("title: %w", err)
	}

	if err := sleep(ctx, c.config.ActionDelay); err != nil {
		return entry, err
	}

	waitCtx, cancel = c.bounded(ctx)
	err = title.WaitInteractable(waitCtx)
	if err == nil {
		// A script click cannot be swallowed by an overlay.
		err = title.ForceClick(waitCtx)
	}
	cancel()
	if err != nil {
		return entry, fmt.Errorf("expand: %w", err)
	}
	entry.State = models.Expanded
	slog.Debug("expanded entry", "index", index, "title", entry.Title)

	waitCtx, cancel = c.bounded(ctx)
	href, err := e.DocumentLink(waitCtx)
	cancel()
	switch {
	case errors.Is(err, ErrNotFound) || (err == nil && href == ""):
		return entry, ErrNoDocument
	case err != nil:
		return entry, fmt.Errorf("document link: %w", err)
	}

	entry.DocumentURL = href
	return entry, nil
}

func (c *Crawler) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.config.WaitTimeout)
}

// Filename returns the final path segment of a document URL. The URL must
// be absolute and its path must end in ext (case-insensitive).
func Filename(rawURL, ext string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid document URL %q: %w", rawURL, err)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("document URL %q is not absolute", rawURL)
	}

	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return "", fmt.Errorf("document URL %q has no filename", rawURL)
	}
	if !strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
		return "", fmt.Errorf("document URL %q does not end in %s", rawURL, ext)
	}
	return name, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
