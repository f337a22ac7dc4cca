package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dragonfall-gg/dragonfall/internal/daemon"
	"github.com/dragonfall-gg/dragonfall/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(seedHousesCmd)
}

// canonicalHouses are the ten noble houses created on first deploy.
// Activity points are left at zero; the game server's postbacks own
// those counters from then on.
var canonicalHouses = []string{
	"House Stark",
	"House Lannister",
	"House Targaryen",
	"House Baratheon",
	"House Tyrell",
	"House Martell",
	"House Greyjoy",
	"House Arryn",
	"House Bolton",
	"House Frey",
}

var seedHousesCmd = &cobra.Command{
	Use:   "seed-houses",
	Short: "Create the ten canonical houses",
	Long: `Insert the ten noble houses into the database with zero activity
points. Existing houses keep their current standings; the command is safe
to run more than once.`,
	RunE: runSeedHouses,
}

func runSeedHouses(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	for _, name := range canonicalHouses {
		if err := db.EnsureHouse(ctx, name); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
		fmt.Println("seeded", name)
	}
	return nil
}
