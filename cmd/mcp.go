package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cbitforge/forge/internal/app"
	"github.com/cbitforge/forge/internal/confirm"
	"github.com/cbitforge/forge/internal/embeddings"
	"github.com/cbitforge/forge/internal/fixedqa"
	"github.com/cbitforge/forge/internal/fusion"
	"github.com/cbitforge/forge/internal/llm"
	mcpserver "github.com/cbitforge/forge/internal/mcp"
	"github.com/cbitforge/forge/internal/policy"
	"github.com/cbitforge/forge/internal/retrieval"
	"github.com/cbitforge/forge/internal/vectordb"
	"github.com/cbitforge/forge/internal/websearch"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing answering and retrieval tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		embedder, err := embeddings.New(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}

		provider, err := llm.NewProvider(cfg)
		if err != nil {
			return fmt.Errorf("creating LLM provider: %w", err)
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		store := openVectorStore(cfg, embedder)

		var web retrieval.WebSearcher
		if os.Getenv("TAVILY_API_KEY") != "" {
			web = websearch.NewClient(cfg.WebSearch)
		}

		qaStore := fixedqa.NewStore(database, embedder)
		matcher := fixedqa.NewMatcher(qaStore, embedder)
		engine := fusion.NewEngine(
			matcher,
			vectordb.NewRetriever(vectordb.NewRegistry(database), store),
			web,
			confirm.NewStore(),
		)

		mcpserver.Version = Version

		fmt.Fprintln(os.Stderr, "forge MCP server started on stdio")

		srv := mcpserver.NewServer(
			app.NewStore(database),
			policy.NewStore(database),
			engine,
			matcher,
			provider,
			cfg.Model,
		)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
