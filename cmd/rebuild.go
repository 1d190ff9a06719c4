package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NickRemizov/Padel-Galleries/internal/config"
	"github.com/NickRemizov/Padel-Galleries/internal/database/postgres"
	"github.com/NickRemizov/Padel-Galleries/internal/faceindex"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Build the identity index once and report its size",
	Long: `Scan all verified face descriptors and build the identity index.
Useful as a smoke test of the database and descriptor data: the serve
command performs the same build at startup and after every verification
change.`,
	RunE: runRebuild,
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	pool, err := postgres.Connect(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	store := postgres.NewStore(pool)
	index := faceindex.NewIndex(cfg.Recognition.Dim)
	rebuilder := faceindex.NewRebuilder(store, index, cfg.Recognition.Dim)
	defer rebuilder.Close()

	rebuilder.RequestRebuild()
	rebuilder.WaitIdle()

	if rebuilder.Dirty() {
		return fmt.Errorf("index rebuild failed, see log output")
	}
	fmt.Printf("Identity index built with %d verified descriptors\n", index.Len())
	return nil
}
