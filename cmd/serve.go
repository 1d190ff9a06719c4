package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/NickRemizov/Padel-Galleries/internal/config"
	"github.com/NickRemizov/Padel-Galleries/internal/database/postgres"
	"github.com/NickRemizov/Padel-Galleries/internal/faceindex"
	"github.com/NickRemizov/Padel-Galleries/internal/identity"
	"github.com/NickRemizov/Padel-Galleries/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the identity API server",
	Long: `Start the Padel Galleries identity server.
The server answers face-descriptor match queries against the identity
index and exposes the curation API (verify, unlink, clustering, person
management). The index is built at startup and rebuilt automatically
after every verification change.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

func runServe(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")

	cfg := config.Load()

	pool, err := postgres.Connect(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	fmt.Printf("Using PostgreSQL backend\n")

	store := postgres.NewStore(pool)
	index := faceindex.NewIndex(cfg.Recognition.Dim)
	rebuilder := faceindex.NewRebuilder(store, index, cfg.Recognition.Dim)
	defer rebuilder.Close()

	// Build the initial index before accepting queries.
	fmt.Printf("Building identity index...\n")
	rebuilder.RequestRebuild()
	rebuilder.WaitIdle()
	fmt.Printf("Identity index ready with %d verified descriptors\n", index.Len())

	service := identity.NewService(store, index, rebuilder, cfg.Recognition)
	server := web.NewServer(service, port, host)

	// Handle graceful shutdown
	done := make(chan error, 1)
	go func() {
		done <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-done:
		return err
	case sig := <-quit:
		fmt.Printf("Received signal %s, shutting down...\n", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
