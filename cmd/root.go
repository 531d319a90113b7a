package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "Confidence-tiered answering engine over curated QA, knowledge bases, and web search",
	Long: `Forge answers questions for registered applications by fusing three
knowledge sources: curated question/answer pairs, vector knowledge
bases, and live web search. Every answer carries a confidence tier so
clients know how much to trust it.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".forge.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
