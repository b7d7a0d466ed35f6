package cmd

import (
	"fmt"
	"log/slog"

	"github.com/mfenderov/doccorpus/internal/config"
	"github.com/mfenderov/doccorpus/internal/elasticsearch"
	"github.com/mfenderov/doccorpus/internal/embeddings"
	"github.com/mfenderov/doccorpus/internal/storage"
)

func newESClient(cfg config.Config) (*elasticsearch.Client, error) {
	dims := 0
	if cfg.Embeddings.Enabled {
		dims = embeddings.Dimensions(cfg.Embeddings.Model)
	}

	client, err := elasticsearch.New(elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Index:     cfg.Elasticsearch.Index,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
		Dims:      dims,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}
	return client, nil
}

// newEmbedder returns nil when embeddings are disabled.
func newEmbedder(cfg config.Config) (*embeddings.Client, error) {
	if !cfg.Embeddings.Enabled {
		return nil, nil
	}

	client, err := embeddings.New(embeddings.Config{
		SocketPath: cfg.Embeddings.SocketPath,
		URL:        cfg.Embeddings.URL,
		Model:      cfg.Embeddings.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings client: %w", err)
	}
	slog.Info("embeddings enabled", "model", cfg.Embeddings.Model)
	return client, nil
}

func newStorageClient(cfg config.Config) (*storage.Client, error) {
	if cfg.Storage.Endpoint == "" {
		return nil, fmt.Errorf("storage not configured - set storage.endpoint")
	}

	client, err := storage.New(storage.Config{
		Endpoint:        cfg.Storage.Endpoint,
		Bucket:          cfg.Storage.Bucket,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		UseSSL:          cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return client, nil
}
