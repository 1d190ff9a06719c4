package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "padel-galleries",
	Short: "Face identity index and clustering engine for event galleries",
	Long: `Padel Galleries recognizes recurring players across event photo
galleries. It maintains an identity index of verified face descriptors,
matches new faces against it, and clusters unassigned faces into
candidate identities for operator review.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
