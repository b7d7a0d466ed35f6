package cmd

import (
	"fmt"

	"github.com/mfenderov/doccorpus/internal/mcp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server over the indexed corpus.

The server communicates via stdio and provides two tools:
  - search_corpus: Search documents by query and optional date range
  - get_document: Get one document by ID or filename

Example:
  doccorpus serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	esClient, err := newESClient(cfg)
	if err != nil {
		return err
	}

	embedClient, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	mcpConfig := mcp.Config{
		Name:    cfg.MCP.Name,
		Version: cfg.MCP.Version,
	}

	var server *mcp.Server
	if embedClient != nil {
		server = mcp.NewServer(mcpConfig, esClient, embedClient)
	} else {
		server = mcp.NewServer(mcpConfig, esClient, nil)
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return server.ServeStdio()
}
