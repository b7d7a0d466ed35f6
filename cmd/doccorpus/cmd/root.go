package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mfenderov/doccorpus/internal/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
	logFile afero.File
	fsys    = afero.NewOsFs()
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "doccorpus",
	Short: "doccorpus: build a text corpus from a paginated document catalog",
	Long: `doccorpus walks a script-rendered catalog in a headless browser, downloads
every linked PDF, extracts the text and date of each file, and writes the
result as a CSV corpus.

Commands:
  crawl    Reveal the catalog and download new documents
  extract  Build the CSV corpus from the download directory
  run      crawl, then extract
  ingest   Index a corpus into Elasticsearch
  search   Search the indexed corpus
  serve    Start the MCP server over the indexed corpus
  publish  Upload a corpus to S3/MinIO`,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			logFile.Close()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// initLogger logs at Info so crawl progress is visible; -v adds Debug.
func initLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if cfg.Log.File != "" {
		f, err := openLogFile(fsys, cfg.Log.File, cfg.Log.Append)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v\n", cfg.Log.File, err)
		} else {
			logFile = f
			w = io.MultiWriter(os.Stderr, f)
		}
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// openLogFile opens the log sink, truncating it unless appendMode is set.
func openLogFile(fs afero.Fs, path string, appendMode bool) (afero.File, error) {
	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	return fs.OpenFile(path, flag, 0o644)
}

func initConfig() {
	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/doccorpus")
		viper.AddConfigPath(".")
	}

	// DOCCORPUS_CRAWLER_START_URL -> crawler.start_url
	viper.SetEnvPrefix("DOCCORPUS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Unmarshal only sees keys viper knows about; bind the nested ones.
	for _, key := range []string{
		"crawler.start_url",
		"crawler.max_reveal_clicks",
		"crawler.wait_timeout",
		"crawler.headless",
		"crawler.stealth",
		"crawler.remote_url",
		"fetcher.timeout",
		"fetcher.user_agent",
		"store.dir",
		"extract.user_password",
		"extract.owner_password",
		"corpus.output",
		"corpus.bom",
		"log.file",
		"log.append",
		"elasticsearch.index",
		"elasticsearch.username",
		"elasticsearch.password",
		"embeddings.enabled",
		"embeddings.socket_path",
		"embeddings.url",
		"embeddings.model",
		"storage.endpoint",
		"storage.bucket",
		"storage.access_key_id",
		"storage.secret_access_key",
		"storage.use_ssl",
		"mcp.name",
		"mcp.version",
	} {
		viper.BindEnv(key, "DOCCORPUS_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Comma-separated list from env
	if addrs := os.Getenv("DOCCORPUS_ELASTICSEARCH_ADDRESSES"); addrs != "" {
		cfg.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}
}
