package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cbitforge/forge/internal/app"
	"github.com/cbitforge/forge/internal/embeddings"
	"github.com/cbitforge/forge/internal/ingest"
	"github.com/cbitforge/forge/internal/vectordb"
)

var (
	ingestAppID  int64
	ingestKBName string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Ingest documents into an application's knowledge base",
	Long: `Walks a directory, chunks every matching markdown and text file, and
embeds the chunks into the named knowledge base. The knowledge base is
created if it does not exist yet.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) > 0 {
			root = args[0]
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		embedder, err := embeddings.New(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		ctx := context.Background()

		apps := app.NewStore(database)
		if _, err := apps.Get(ctx, ingestAppID); err != nil {
			return fmt.Errorf("application %d: %w", ingestAppID, err)
		}

		registry := vectordb.NewRegistry(database)
		kb, err := findOrCreateKB(ctx, registry, ingestAppID, ingestKBName)
		if err != nil {
			return err
		}

		store := openVectorStore(cfg, embedder)

		ing := ingest.NewIngester(store, cfg.Ingest, ingest.NewReporter())
		stats, err := ing.Ingest(ctx, root, kb.Collection)
		if err != nil {
			return err
		}

		if err := persistVectorStore(cfg, store); err != nil {
			return fmt.Errorf("persisting vector store: %w", err)
		}

		fmt.Fprintf(os.Stderr, "Ingested %d files (%d chunks, %d skipped) into %q\n",
			stats.Files, stats.Chunks, stats.Skipped, kb.Name)
		return nil
	},
}

func findOrCreateKB(ctx context.Context, registry *vectordb.Registry, appID int64, name string) (*vectordb.KnowledgeBase, error) {
	kbs, err := registry.ListByApp(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("listing knowledge bases: %w", err)
	}
	for _, kb := range kbs {
		if kb.Name == name {
			return &kb, nil
		}
	}

	kb := &vectordb.KnowledgeBase{
		ApplicationID: appID,
		Name:          name,
		Collection:    vectordb.CollectionName(appID, name),
	}
	if err := registry.Create(ctx, kb); err != nil {
		return nil, fmt.Errorf("creating knowledge base %q: %w", name, err)
	}
	fmt.Fprintf(os.Stderr, "Created knowledge base %q (id %d)\n", kb.Name, kb.ID)
	return kb, nil
}

func init() {
	ingestCmd.Flags().Int64Var(&ingestAppID, "app", 0, "application ID (required)")
	ingestCmd.Flags().StringVar(&ingestKBName, "kb", "docs", "knowledge base name")
	ingestCmd.MarkFlagRequired("app")
	rootCmd.AddCommand(ingestCmd)
}
