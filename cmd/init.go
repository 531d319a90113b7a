package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cbitforge/forge/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize forge configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure forge and generates a .forge.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
