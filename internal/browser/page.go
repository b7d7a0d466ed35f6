package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/proto"
	"github.com/mfenderov/doccorpus/internal/config"
	"github.com/mfenderov/doccorpus/internal/crawler"
)

// Page is one browser tab showing the catalog.
type Page struct {
	page            *rod.Page
	selectors       config.Selectors
	navigateTimeout time.Duration
}

// Navigate loads url and waits for the load event.
func (p *Page) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, p.navigateTimeout)
	defer cancel()

	page := p.page.Context(navCtx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	if err := page.WaitLoad(); err != nil {
		slog.Warn("timeout while waiting for page load", "url", url, "error", err)
	}
	return nil
}

// RevealControl waits for the "load more" control to be visible.
func (p *Page) RevealControl(ctx context.Context) (crawler.Element, error) {
	el, err := p.page.Context(ctx).ElementX(p.selectors.RevealControl)
	if err != nil {
		return nil, classify(err)
	}
	if err := el.Context(ctx).WaitVisible(); err != nil {
		return nil, classify(err)
	}
	return newElement(el), nil
}

// Entries waits for the first entry, then returns every rendered one.
func (p *Page) Entries(ctx context.Context) ([]crawler.Entry, error) {
	page := p.page.Context(ctx)
	if _, err := page.Element(p.selectors.Entry); err != nil {
		return nil, classify(err)
	}

	els, err := page.Elements(p.selectors.Entry)
	if err != nil {
		return nil, classify(err)
	}

	entries := make([]crawler.Entry, len(els))
	for i, el := range els {
		entries[i] = &entry{el: el, selectors: p.selectors}
	}
	return entries, nil
}

// Close closes the tab.
func (p *Page) Close() error {
	return p.page.Close()
}

type entry struct {
	el        *rod.Element
	selectors config.Selectors
}

func (e *entry) Title(ctx context.Context) (crawler.Element, error) {
	el, err := e.el.Context(ctx).Element(e.selectors.EntryTitle)
	if err != nil {
		return nil, classify(err)
	}
	return newElement(el), nil
}

func (e *entry) DocumentLink(ctx context.Context) (string, error) {
	a, err := e.el.Context(ctx).ElementX(e.selectors.DocumentLink)
	if err != nil {
		return "", classify(err)
	}
	// The DOM property is already resolved against the page URL.
	res, err := a.Context(ctx).Eval(`() => this.href`)
	if err != nil {
		return "", classify(err)
	}
	return res.Value.Str(), nil
}

// node is the part of *rod.Element an element drives. Every call is
// bounded by the context the node was bound to.
type node interface {
	ScrollIntoView() error
	WaitVisible() error
	WaitEnabled() error
	Interactable() (*proto.Point, error)
	Click(button proto.InputMouseButton, clickCount int) error
	Eval(js string, params ...interface{}) (*proto.RuntimeRemoteObject, error)
	Text() (string, error)
}

type element struct {
	at func(ctx context.Context) node
}

func newElement(el *rod.Element) *element {
	return &element{at: func(ctx context.Context) node { return el.Context(ctx) }}
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	return classify(e.at(ctx).ScrollIntoView())
}

// WaitInteractable waits until the element is visible and enabled. An
// overlay does not count against it.
func (e *element) WaitInteractable(ctx context.Context) error {
	n := e.at(ctx)
	if err := n.WaitVisible(); err != nil {
		return classify(err)
	}
	return classify(n.WaitEnabled())
}

// Click checks the hit point once before the native click. rod's own click
// keeps waiting while the element is covered, so an overlay would only
// surface as a timeout.
func (e *element) Click(ctx context.Context) error {
	n := e.at(ctx)
	if err := n.ScrollIntoView(); err != nil {
		return classify(err)
	}
	if _, err := n.Interactable(); err != nil {
		return classify(err)
	}
	return classify(n.Click(proto.InputMouseButtonLeft, 1))
}

func (e *element) ForceClick(ctx context.Context) error {
	_, err := e.at(ctx).Eval(`() => this.click()`)
	return classify(err)
}

func (e *element) Text(ctx context.Context) (string, error) {
	s, err := e.at(ctx).Text()
	return s, classify(err)
}

// classify maps rod failures onto the crawler's error kinds.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var (
		covered         *rod.CoveredError
		noPointer       *rod.NoPointerEventsError
		notInteractable *rod.NotInteractableError
		invisible       *rod.InvisibleShapeError
		notFound        *rod.ElementNotFoundError
		objNotFound     *rod.ObjectNotFoundError
		cdpErr          *cdp.Error
	)

	switch {
	// These render the element they carry; keep only the kind.
	case errors.As(err, &covered), errors.As(err, &noPointer), errors.As(err, &invisible):
		return crawler.ErrIntercepted
	case errors.As(err, &notInteractable):
		return fmt.Errorf("%w: %w", crawler.ErrIntercepted, err)
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &notFound):
		return fmt.Errorf("%w: %w", crawler.ErrNotFound, err)
	case errors.As(err, &objNotFound):
		return fmt.Errorf("%w: %w", crawler.ErrStale, err)
	case errors.As(err, &cdpErr) && detached(cdpErr.Message):
		return fmt.Errorf("%w: %w", crawler.ErrStale, err)
	}
	return err
}

func detached(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "could not find node") ||
		strings.Contains(msg, "node is detached") ||
		strings.Contains(msg, "could not find object") ||
		strings.Contains(msg, "cannot find context")
}
