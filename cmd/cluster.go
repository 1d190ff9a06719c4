package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/NickRemizov/Padel-Galleries/internal/cluster"
	"github.com/NickRemizov/Padel-Galleries/internal/config"
	"github.com/NickRemizov/Padel-Galleries/internal/database"
	"github.com/NickRemizov/Padel-Galleries/internal/database/postgres"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Group unassigned faces into candidate identities",
	Long: `Cluster all unassigned face descriptors into candidate identities
using similarity-threshold connectivity. Clusters are printed for review;
nothing is written. Use the API's from-cluster endpoint to promote a
cluster into a person.

Examples:
  # Cluster the whole corpus with the configured threshold
  padel-galleries cluster

  # Use a stricter threshold and hide singletons
  padel-galleries cluster --threshold 0.7 --min-size 2`,
	RunE: runCluster,
}

func init() {
	rootCmd.AddCommand(clusterCmd)

	clusterCmd.Flags().Float64("threshold", 0, "Similarity threshold for cluster edges (0 = configured default)")
	clusterCmd.Flags().Int("min-size", 1, "Hide clusters with fewer members")
}

func runCluster(cmd *cobra.Command, args []string) error {
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	minSize, _ := cmd.Flags().GetInt("min-size")

	ctx := context.Background()
	cfg := config.Load()
	if threshold <= 0 {
		threshold = cfg.Recognition.ClusterThreshold
	}

	pool, err := postgres.Connect(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	store := postgres.NewStore(pool)

	fmt.Printf("Loading unassigned faces...\n")
	faces, err := store.UnassignedFaces(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to load unassigned faces: %w", err)
	}
	if len(faces) == 0 {
		fmt.Println("No unassigned faces found")
		return nil
	}

	bar := progressbar.Default(int64(len(faces)), "clustering")
	pool2 := make([]cluster.Face, 0, len(faces))
	for i := range faces {
		pool2 = append(pool2, cluster.Face{ID: faces[i].ID, Descriptor: faces[i].Descriptor})
		_ = bar.Add(1)
	}

	clusters, err := cluster.Group(pool2, threshold)
	if err != nil {
		return fmt.Errorf("clustering failed: %w", err)
	}

	shown := 0
	for i := range clusters {
		if clusters[i].Size() < minSize {
			continue
		}
		shown++
		fmt.Printf("\nCluster %d (%d faces):\n", shown, clusters[i].Size())
		for _, id := range clusters[i].FaceIDs {
			fmt.Printf("  %s\n", id)
		}
	}
	fmt.Printf("\n%d unassigned faces, %d clusters (%d shown, threshold %.2f)\n",
		len(faces), len(clusters), shown, threshold)
	return nil
}

// printFaceLine is used by people/cluster listings that show assignment state.
func printFaceLine(f *database.FaceRecord) {
	state := "unassigned"
	if f.PersonID != nil {
		if f.Verified {
			state = "verified"
		} else {
			state = "unverified"
		}
	}
	fmt.Printf("  %s  photo=%s  %s\n", f.ID, f.PhotoID, state)
}
