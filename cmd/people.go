package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/NickRemizov/Padel-Galleries/internal/config"
	"github.com/NickRemizov/Padel-Galleries/internal/database/postgres"
)

var peopleCmd = &cobra.Command{
	Use:   "people [person-id]",
	Short: "List people or show one person's faces",
	Long: `Without arguments, lists all people with face and photo counts.
With a person id, shows the person's linked faces and their verification
state.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPeople,
}

func init() {
	rootCmd.AddCommand(peopleCmd)
}

func runPeople(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	pool, err := postgres.Connect(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	store := postgres.NewStore(pool)

	if len(args) == 1 {
		person, err := store.GetPerson(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get person: %w", err)
		}
		faces, err := store.GetPersonFaces(ctx, person.ID)
		if err != nil {
			return fmt.Errorf("failed to get faces: %w", err)
		}
		fmt.Printf("%s (%s)\n", person.DisplayName, person.ID)
		for i := range faces {
			printFaceLine(&faces[i])
		}
		fmt.Printf("%d faces\n", len(faces))
		return nil
	}

	people, err := store.ListPeople(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to list people: %w", err)
	}
	for i := range people {
		p := &people[i]
		fmt.Printf("%s  %-30s  faces=%d photos=%d\n", p.ID, p.DisplayName, p.FaceCount, p.PhotoCount)
	}
	fmt.Printf("%d people\n", len(people))
	return nil
}
