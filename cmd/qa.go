package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbitforge/forge/internal/embeddings"
	"github.com/cbitforge/forge/internal/fixedqa"
)

var (
	qaAppID    int64
	qaQuestion string
	qaAnswer   string
	qaCategory string
	qaKeywords string
)

var qaCmd = &cobra.Command{
	Use:   "qa",
	Short: "Manage an application's curated question/answer pairs",
}

var qaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List QA pairs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cleanup, err := qaStore()
		if err != nil {
			return err
		}
		defer cleanup()

		pairs, err := store.List(context.Background(), qaAppID)
		if err != nil {
			return err
		}
		if len(pairs) == 0 {
			fmt.Println("No QA pairs.")
			return nil
		}
		for _, p := range pairs {
			status := ""
			if !p.IsActive {
				status = " (inactive)"
			}
			fmt.Printf("[%d]%s %s\n", p.ID, status, p.Question)
			fmt.Printf("     %s\n", p.Answer)
			if p.HitCount > 0 {
				fmt.Printf("     hits: %d\n", p.HitCount)
			}
		}
		return nil
	},
}

var qaAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a QA pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		if qaQuestion == "" || qaAnswer == "" {
			return fmt.Errorf("--question and --answer are required")
		}

		store, cleanup, err := qaStore()
		if err != nil {
			return err
		}
		defer cleanup()

		pair := &fixedqa.Pair{
			ApplicationID: qaAppID,
			Question:      qaQuestion,
			Answer:        qaAnswer,
			Category:      qaCategory,
			IsActive:      true,
		}
		if qaKeywords != "" {
			for _, k := range strings.Split(qaKeywords, ",") {
				if k = strings.TrimSpace(k); k != "" {
					pair.Keywords = append(pair.Keywords, k)
				}
			}
		}

		if err := store.Create(context.Background(), pair); err != nil {
			return err
		}
		fmt.Printf("Created QA pair %d\n", pair.ID)
		return nil
	},
}

var qaDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a QA pair",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}

		store, cleanup, err := qaStore()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := store.Delete(context.Background(), qaAppID, id); err != nil {
			return err
		}
		fmt.Printf("Deleted QA pair %d\n", id)
		return nil
	},
}

// qaStore builds a fixedqa store with its database; callers must run
// the returned cleanup.
func qaStore() (*fixedqa.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	embedder, err := embeddings.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return fixedqa.NewStore(database, embedder), func() { database.Close() }, nil
}

func init() {
	qaCmd.PersistentFlags().Int64Var(&qaAppID, "app", 0, "application ID (required)")
	qaCmd.MarkPersistentFlagRequired("app")

	qaAddCmd.Flags().StringVarP(&qaQuestion, "question", "q", "", "question text")
	qaAddCmd.Flags().StringVarP(&qaAnswer, "answer", "a", "", "canonical answer")
	qaAddCmd.Flags().StringVar(&qaCategory, "category", "", "category label")
	qaAddCmd.Flags().StringVar(&qaKeywords, "keywords", "", "comma-separated boost keywords")

	qaCmd.AddCommand(qaListCmd, qaAddCmd, qaDeleteCmd)
	rootCmd.AddCommand(qaCmd)
}
