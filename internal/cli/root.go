// Package cli implements the dragonfall command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "0.3.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "dragonfall",
	Short: "Dragonfall economy backend",
	Long: `Dragonfall is the companion backend for the Dragonfall game.
It ingests signed postbacks from the game server, applies Drogon credits
and debits, tracks House standings and bounties, and serves read endpoints
for the site and the game client.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default ~/.dragonfall/config.toml)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the dragonfall version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("dragonfall " + Version)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
