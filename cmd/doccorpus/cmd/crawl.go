package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/mfenderov/doccorpus/internal/browser"
	"github.com/mfenderov/doccorpus/internal/config"
	"github.com/mfenderov/doccorpus/internal/crawler"
	"github.com/mfenderov/doccorpus/internal/fetcher"
	"github.com/mfenderov/doccorpus/internal/store"
	"github.com/spf13/cobra"
)

var (
	crawlURL       string
	crawlDir       string
	crawlMaxClicks int
	crawlHeadless  bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Download every document linked from the catalog",
	Long: `Open the catalog in a browser, click "load more" until every entry is
rendered, expand each entry and download its PDF. Files already in the
download directory are skipped, so an interrupted crawl can be re-run.

Examples:
  # Crawl the configured start URL
  doccorpus crawl

  # Crawl a different list into ./reports, watching the browser
  doccorpus crawl --url https://example.com/list --dir reports --headless=false

  # Quick partial run
  doccorpus crawl --max-clicks 3`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)
	addCrawlFlags(crawlCmd)
}

func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&crawlURL, "url", "", "catalog URL (default from config)")
	cmd.Flags().StringVar(&crawlDir, "dir", "", "download directory (default from config)")
	cmd.Flags().IntVar(&crawlMaxClicks, "max-clicks", 0, "maximum 'load more' clicks (default from config)")
	cmd.Flags().BoolVar(&crawlHeadless, "headless", true, "run the browser without a window")
}

// applyCrawlFlags overrides cfg with the flags the user set.
func applyCrawlFlags(cmd *cobra.Command, cfg *config.Config) {
	if crawlURL != "" {
		cfg.Crawler.StartURL = crawlURL
	}
	if crawlDir != "" {
		cfg.Store.Dir = crawlDir
	}
	if crawlMaxClicks > 0 {
		cfg.Crawler.MaxRevealClicks = crawlMaxClicks
	}
	if cmd.Flags().Changed("headless") {
		cfg.Crawler.Headless = crawlHeadless
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	applyCrawlFlags(cmd, &cfg)

	res, err := crawl(ctx, cfg)
	if err != nil {
		return err
	}
	printCrawlResult(cmd, res)
	return nil
}

func crawl(ctx context.Context, cfg config.Config) (*crawler.Result, error) {
	slog.Debug("crawl starting", "url", cfg.Crawler.StartURL, "dir", cfg.Store.Dir)

	st, err := store.New(fsys, cfg.Store.Dir)
	if err != nil {
		return nil, err
	}

	b, err := browser.Launch(ctx, cfg.Crawler)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	page, err := b.NewPage(cfg.Selectors)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	f := fetcher.New(fetcher.Config{
		Timeout:     cfg.Fetcher.Timeout,
		UserAgent:   cfg.Fetcher.UserAgent,
		MaxBodySize: cfg.Fetcher.MaxBodySize,
	}, st)

	c := crawler.New(crawler.Config{
		MaxRevealClicks: cfg.Crawler.MaxRevealClicks,
		WaitTimeout:     cfg.Crawler.WaitTimeout,
		ActionDelay:     cfg.Crawler.ActionDelay,
		SettleDelay:     cfg.Crawler.SettleDelay,
		Extension:       cfg.Store.Extension,
	}, page, st, f)

	res, err := c.Run(ctx, cfg.Crawler.StartURL)
	if err != nil {
		if res != nil {
			slog.Warn("crawl interrupted", "entries", res.Entries, "downloaded", res.Downloaded)
		}
		return res, fmt.Errorf("crawl failed: %w", err)
	}
	return res, nil
}

func printCrawlResult(cmd *cobra.Command, res *crawler.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nCrawl complete:\n")
	fmt.Fprintf(out, "  Load-more clicks: %d (%s)\n", res.Clicks, res.State)
	fmt.Fprintf(out, "  Entries:          %d\n", res.Entries)
	fmt.Fprintf(out, "  Downloaded:       %d\n", res.Downloaded)
	fmt.Fprintf(out, "  Already present:  %d\n", res.AlreadyPresent)
	fmt.Fprintf(out, "  No document:      %d\n", res.NoDocument)
	fmt.Fprintf(out, "  Skipped:          %d\n", res.Skipped)
	fmt.Fprintf(out, "  Failed downloads: %d\n", res.FetchFailed)
	fmt.Fprintf(out, "  Duration:         %v\n", res.Duration)
}
