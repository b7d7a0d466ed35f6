package config

import "time"

// Config holds all application configuration.
type Config struct {
	Crawler       Crawler       `mapstructure:"crawler"`
	Selectors     Selectors     `mapstructure:"selectors"`
	Fetcher       Fetcher       `mapstructure:"fetcher"`
	Store         Store         `mapstructure:"store"`
	Extract       Extract       `mapstructure:"extract"`
	Corpus        Corpus        `mapstructure:"corpus"`
	Log           Log           `mapstructure:"log"`
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	Embeddings    Embeddings    `mapstructure:"embeddings"`
	Storage       Storage       `mapstructure:"storage"`
	MCP           MCP           `mapstructure:"mcp"`
}

// Crawler holds the bounds of the pagination-and-expansion crawl.
type Crawler struct {
	StartURL        string        `mapstructure:"start_url"`
	MaxRevealClicks int           `mapstructure:"max_reveal_clicks"`
	WaitTimeout     time.Duration `mapstructure:"wait_timeout"`
	ActionDelay     time.Duration `mapstructure:"action_delay"` // after scrolling an element into view
	SettleDelay     time.Duration `mapstructure:"settle_delay"` // after each "load more" click
	Headless        bool          `mapstructure:"headless"`
	Stealth         bool          `mapstructure:"stealth"`
	RemoteURL       string        `mapstructure:"remote_url"` // existing Chrome DevTools endpoint
	WindowSize      string        `mapstructure:"window_size"`
	NavigateTimeout time.Duration `mapstructure:"navigate_timeout"`
}

// Selectors is the single lookup table for every DOM selector the crawl uses.
// Markup changes on the remote site should only require edits here.
type Selectors struct {
	RevealControl string `mapstructure:"reveal_control"` // XPath
	Entry         string `mapstructure:"entry"`          // CSS
	EntryTitle    string `mapstructure:"entry_title"`    // CSS, relative to an entry
	DocumentLink  string `mapstructure:"document_link"`  // XPath, relative to an entry
}

// Fetcher holds document download configuration.
type Fetcher struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	MaxBodySize int           `mapstructure:"max_body_size"`
}

// Store holds the download directory configuration.
type Store struct {
	Dir       string `mapstructure:"dir"`
	Extension string `mapstructure:"extension"`
}

// Extract holds text extraction configuration.
type Extract struct {
	UserPassword  string `mapstructure:"user_password"`
	OwnerPassword string `mapstructure:"owner_password"`
}

// Corpus holds output artifact configuration.
type Corpus struct {
	Output string `mapstructure:"output"`
	BOM    bool   `mapstructure:"bom"`
}

// Log holds log sink configuration.
type Log struct {
	File string `mapstructure:"file"`
	// Append keeps earlier runs in File; by default each run starts it over.
	Append bool `mapstructure:"append"`
}

// Elasticsearch holds ES connection configuration.
type Elasticsearch struct {
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// Embeddings holds embeddings generation configuration.
type Embeddings struct {
	Enabled    bool   `mapstructure:"enabled"`
	SocketPath string `mapstructure:"socket_path"`
	URL        string `mapstructure:"url"` // OpenAI-compatible endpoint, instead of the socket
	Model      string `mapstructure:"model"`
}

// Storage holds S3/MinIO storage configuration.
type Storage struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// DefaultStartURL is the European Parliament register search for plenary reports.
const DefaultStartURL = "https://www.europarl.europa.eu/RegistreWeb/search/simple.htm?endDate=1725206399999&types=PCREP&sortAndOrder=DATE_DOCU_DESC"

// DefaultSelectors returns the selectors matching the register's result list.
func DefaultSelectors() Selectors {
	return Selectors{
		RevealControl: "//div[contains(@class, 'btn') and normalize-space(text())='Load more']",
		Entry:         "div.erpl_search-results-item",
		EntryTitle:    "h3.erpl_search-results-item-title",
		DocumentLink:  ".//a[contains(@class, 't-item') and contains(@href, '.pdf')]",
	}
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Crawler: Crawler{
			StartURL:        DefaultStartURL,
			MaxRevealClicks: 1500,
			WaitTimeout:     15 * time.Second,
			ActionDelay:     1 * time.Second,
			SettleDelay:     2 * time.Second,
			Headless:        true,
			Stealth:         false,
			WindowSize:      "1920,1080",
			NavigateTimeout: 60 * time.Second,
		},
		Selectors: DefaultSelectors(),
		Fetcher: Fetcher{
			Timeout:     30 * time.Second,
			UserAgent:   "doccorpus/1.0",
			MaxBodySize: 200 << 20,
		},
		Store: Store{
			Dir:       "pdfs",
			Extension: ".pdf",
		},
		Corpus: Corpus{
			Output: "extracted_texts.csv",
			BOM:    true, // spreadsheet tools expect utf-8-sig
		},
		Elasticsearch: Elasticsearch{
			Addresses: []string{"http://localhost:9200"},
			Index:     "doccorpus",
		},
		Embeddings: Embeddings{
			Enabled:    false, // Disabled by default, requires DMR setup
			SocketPath: "",
			URL:        "",
			Model:      "ai/embeddinggemma",
		},
		Storage: Storage{
			Endpoint:        "",
			Bucket:          "doccorpus",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			UseSSL:          false,
		},
		MCP: MCP{
			Name:    "doccorpus",
			Version: "1.0.0",
		},
	}
}
