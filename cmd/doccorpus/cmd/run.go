package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runOutput string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Crawl, then build the corpus",
	Long: `Run both phases: download every new document, then extract the whole
download directory into the CSV corpus.

Example:
  doccorpus run --max-clicks 10 --output sample.csv`,
	RunE: runAll,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addCrawlFlags(runCmd)
	runCmd.Flags().StringVar(&runOutput, "output", "", "CSV output path (default from config)")
}

func runAll(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	applyCrawlFlags(cmd, &cfg)
	if runOutput != "" {
		cfg.Corpus.Output = runOutput
	}

	res, err := crawl(ctx, cfg)
	if err != nil {
		return err
	}
	printCrawlResult(cmd, res)

	return buildCorpus(ctx, cmd, cfg)
}
