package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/adjust/file-cache/pkg/filecache"
)

var (
	cleanConfigPath string
	cleanCacheName  string
	cleanAll        bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Force a full sweep of one cache, or every cache in the manifest",
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().StringVar(&cleanConfigPath, "config", "caches.yaml", "path to the cache manifest")
	cleanCmd.Flags().StringVar(&cleanCacheName, "cache", "", "named cache to clean")
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "clean every cache registered in the manifest")
}

func runClean(cmd *cobra.Command, args []string) error {
	if !cleanAll && cleanCacheName == "" {
		return fmt.Errorf("specify --cache NAME or --all")
	}

	ctx := cmd.Context()

	if !cleanAll {
		c, err := openCache(ctx, cleanConfigPath, cleanCacheName)
		if err != nil {
			return err
		}
		defer c.Stop(context.Background())
		if err := c.Clean(ctx); err != nil {
			return fmt.Errorf("clean failed: %w", err)
		}
		fmt.Printf("✅ cache %q cleaned\n", cleanCacheName)
		return nil
	}

	manifest, err := findManifest(cleanConfigPath)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(manifest.Caches),
		progressbar.OptionSetDescription("Cleaning caches"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionFullWidth(),
	)

	for _, cfg := range manifest.Caches {
		c, err := filecache.FromConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to start cache %q: %w", cfg.Cache, err)
		}
		err = c.Clean(ctx)
		_ = c.Stop(context.Background())
		if err != nil {
			return fmt.Errorf("failed to clean cache %q: %w", cfg.Cache, err)
		}
		_ = bar.Add(1)
	}
	fmt.Println("\n✅ all caches cleaned")
	return nil
}
