package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cbitforge/forge/internal/embeddings"
	"github.com/cbitforge/forge/internal/llm"
	"github.com/cbitforge/forge/internal/retrieval"
	"github.com/cbitforge/forge/internal/server"
	"github.com/cbitforge/forge/internal/websearch"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the forge HTTP server",
	Long:  `Starts the forge server with the admin REST API and the per-application chat endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort > 0 {
			cfg.Port = servePort
		}

		embedder, err := embeddings.New(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}

		provider, err := llm.NewProvider(cfg)
		if err != nil {
			return fmt.Errorf("creating LLM provider: %w", err)
		}

		store := openVectorStore(cfg, embedder)

		database, err := openDatabase(cfg)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		// Web search only activates when a key is present; policies
		// with web search enabled degrade gracefully without one.
		var web retrieval.WebSearcher
		if os.Getenv("TAVILY_API_KEY") != "" {
			web = websearch.NewClient(cfg.WebSearch)
		}

		srv := server.New(server.Config{
			Port:     cfg.Port,
			DataDir:  cfg.DataDir,
			AllowAll: cfg.AllowAllOrigins,
		}, database, embedder, store, provider, cfg.Model, web)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		fmt.Fprintf(os.Stderr, "forge v%s starting on port %d\n", Version, cfg.Port)
		fmt.Fprintf(os.Stderr, "  Data dir: %s\n", cfg.DataDir)
		fmt.Fprintf(os.Stderr, "  Provider: %s (%s)\n", cfg.Provider, cfg.Model)
		if web == nil {
			fmt.Fprintln(os.Stderr, "  Web search: disabled (TAVILY_API_KEY not set)")
		}

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override the configured port")
	rootCmd.AddCommand(serveCmd)
}
