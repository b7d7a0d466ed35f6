package crawler

import (
	"context"
	"errors"
)

// Errors a Page implementation maps its driver failures onto.
var (
	// ErrNotFound means an element did not appear before the wait ended.
	ErrNotFound = errors.New("element not found")
	// ErrIntercepted means a native click landed on an overlapping element.
	ErrIntercepted = errors.New("click intercepted")
	// ErrStale means the element was detached by a re-render.
	ErrStale = errors.New("stale element reference")
)

// ErrNoDocument marks an entry that exposes no document link.
var ErrNoDocument = errors.New("no document link")

// Element is a rendered DOM node. Every call is bounded by ctx.
type Element interface {
	ScrollIntoView(ctx context.Context) error
	WaitInteractable(ctx context.Context) error
	// Click performs a native click and reports ErrIntercepted when another
	// element would receive it.
	Click(ctx context.Context) error
	// ForceClick dispatches the click from script, ignoring occlusion.
	ForceClick(ctx context.Context) error
	Text(ctx context.Context) (string, error)
}

// Entry is one rendered catalog item.
type Entry interface {
	// Title waits for the entry's title element.
	Title(ctx context.Context) (Element, error)
	// DocumentLink waits, within the entry only, for a link to a document
	// and returns its absolute URL.
	DocumentLink(ctx context.Context) (string, error)
}

// Page is the remote list view.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// RevealControl waits for the visible "load more" control.
	RevealControl(ctx context.Context) (Element, error)
	// Entries waits for at least one entry and returns all rendered ones.
	Entries(ctx context.Context) ([]Entry, error)
}
