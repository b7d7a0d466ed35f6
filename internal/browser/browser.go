// Package browser drives Chrome through rod and implements crawler.Page.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/mfenderov/doccorpus/internal/config"
)

// Browser owns a Chrome process, or a connection to a remote one.
type Browser struct {
	config   config.Crawler
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// Launch starts a local Chrome, or connects to config.RemoteURL when set.
func Launch(ctx context.Context, cfg config.Crawler) (*Browser, error) {
	b := &Browser{config: cfg}

	wsURL := cfg.RemoteURL
	if wsURL != "" {
		slog.Info("connecting to remote browser", "url", wsURL)
	} else {
		l := launcher.New().
			Context(ctx).
			Headless(cfg.Headless).
			NoSandbox(true).
			Set("disable-gpu").
			Set("disable-extensions").
			Set("disable-infobars").
			Set("disable-blink-features", "AutomationControlled")
		if cfg.WindowSize != "" {
			l = l.Set("window-size", cfg.WindowSize)
		}

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		wsURL = u
		b.launcher = l
		slog.Info("launched local browser", "headless", cfg.Headless, "window_size", cfg.WindowSize)
	}

	rb := rod.New().ControlURL(wsURL)
	if err := rb.Connect(); err != nil {
		b.cleanup()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	b.browser = rb

	return b, nil
}

// NewPage opens a tab that locates catalog elements with sel.
func (b *Browser) NewPage(sel config.Selectors) (*Page, error) {
	var (
		p   *rod.Page
		err error
	)
	if b.config.Stealth {
		p, err = stealth.Page(b.browser)
	} else {
		p, err = b.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	timeout := b.config.NavigateTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Page{page: p, selectors: sel, navigateTimeout: timeout}, nil
}

// Close shuts the browser down. A remote browser is only disconnected.
func (b *Browser) Close() error {
	var err error
	if b.browser != nil {
		if b.launcher != nil {
			err = b.browser.Close()
		}
		b.browser = nil
	}
	b.cleanup()
	return err
}

func (b *Browser) cleanup() {
	if b.launcher != nil {
		b.launcher.Cleanup()
		b.launcher = nil
	}
}
