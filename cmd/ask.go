package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbitforge/forge/internal/app"
	"github.com/cbitforge/forge/internal/compose"
	"github.com/cbitforge/forge/internal/confirm"
	"github.com/cbitforge/forge/internal/embeddings"
	"github.com/cbitforge/forge/internal/fixedqa"
	"github.com/cbitforge/forge/internal/fusion"
	"github.com/cbitforge/forge/internal/llm"
	"github.com/cbitforge/forge/internal/policy"
	"github.com/cbitforge/forge/internal/retrieval"
	"github.com/cbitforge/forge/internal/vectordb"
	"github.com/cbitforge/forge/internal/websearch"
)

var (
	askAppID    int64
	askForceWeb bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against an application from the command line",
	Long:  `Runs the full fusion pipeline for one question and prints the answer with its confidence tier and citations.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))

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

		ctx := context.Background()

		apps := app.NewStore(database)
		application, err := apps.Get(ctx, askAppID)
		if err != nil {
			return fmt.Errorf("application %d: %w", askAppID, err)
		}

		store := openVectorStore(cfg, embedder)
		qaStore := fixedqa.NewStore(database, embedder)

		var web retrieval.WebSearcher
		if os.Getenv("TAVILY_API_KEY") != "" {
			web = websearch.NewClient(cfg.WebSearch)
		}

		engine := fusion.NewEngine(
			fixedqa.NewMatcher(qaStore, embedder),
			vectordb.NewRetriever(vectordb.NewRegistry(database), store),
			web,
			confirm.NewStore(),
		)

		pol, err := policy.NewStore(database).Load(ctx, application.ID)
		if err != nil {
			return fmt.Errorf("loading policy: %w", err)
		}

		decision, err := engine.Decide(ctx, fusion.Request{
			AppID:          application.ID,
			Question:       question,
			ForceWebSearch: askForceWeb,
		}, &pol)
		if err != nil {
			return err
		}

		model := application.LLMModel
		if model == "" {
			model = cfg.Model
		}
		gen := llm.NewGenerator(provider, model, application.SystemPrompt)

		resp, err := compose.Compose(ctx, decision, gen, question, model)
		if err != nil {
			return fmt.Errorf("composing answer: %w", err)
		}

		printAnswer(resp)
		return nil
	},
}

func printAnswer(resp *compose.ChatResponse) {
	msg := resp.Choices[0].Message
	if msg.Content != "" {
		fmt.Println(msg.Content)
	}

	fmt.Printf("\n[%s, tier %s, confidence %.2f]\n",
		msg.Metadata.Source, msg.Metadata.StrategyInfo.Tier, msg.Metadata.RetrievalConfidence)

	for _, c := range msg.Metadata.StrategyInfo.Citations {
		if c.URL != "" {
			fmt.Printf("  [%d] %s (%s)\n", c.ID, c.Title, c.URL)
		} else {
			fmt.Printf("  [%d] %s\n", c.ID, c.Title)
		}
	}

	if resp.CbitMetadata.NeedsConfirmation {
		fmt.Println("\nDid you mean:")
		for _, s := range resp.CbitMetadata.SuggestedQuestions {
			fmt.Printf("  [%d] %s\n", s.QAID, s.Question)
		}
	}
}

func init() {
	askCmd.Flags().Int64Var(&askAppID, "app", 0, "application ID (required)")
	askCmd.Flags().BoolVar(&askForceWeb, "web", false, "force a web search")
	askCmd.MarkFlagRequired("app")
	rootCmd.AddCommand(askCmd)
}
