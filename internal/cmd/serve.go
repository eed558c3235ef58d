package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adjust/file-cache/internal/config"
	"github.com/adjust/file-cache/pkg/filecache"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start every cache in a manifest and block until signaled",
	Long: `Loads caches.yaml, starts every named cache it describes, and blocks
until SIGINT or SIGTERM, at which point every cache is stopped in turn.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "caches.yaml", "path to the cache manifest")
}

func runServe(cmd *cobra.Command, args []string) error {
	manifest, err := config.LoadManifest(serveConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", serveConfigPath, err)
	}
	if len(manifest.Caches) == 0 {
		return fmt.Errorf("%s declares no caches", serveConfigPath)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	caches := make([]*filecache.Cache, 0, len(manifest.Caches))
	for _, cfg := range manifest.Caches {
		fmt.Printf("📦 Starting cache %q (dir=%s)...\n", cfg.Cache, cfg.Dir)
		c, err := filecache.FromConfig(ctx, cfg)
		if err != nil {
			for _, started := range caches {
				_ = started.Stop(context.Background())
			}
			return fmt.Errorf("failed to start cache %q: %w", cfg.Cache, err)
		}
		caches = append(caches, c)
	}
	fmt.Printf("✅ %d cache(s) running\n", len(caches))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\n🛑 Shutting down...")
	for _, c := range caches {
		if err := c.Stop(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "error stopping cache: %v\n", err)
		}
	}
	return nil
}
