package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	statsConfigPath string
	statsCache      string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report a cache's current and in-progress file counts",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsConfigPath, "config", "caches.yaml", "path to the cache manifest")
	statsCmd.Flags().StringVar(&statsCache, "cache", "", "named cache to inspect (required)")
	_ = statsCmd.MarkFlagRequired("cache")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := openCache(ctx, statsConfigPath, statsCache)
	if err != nil {
		return err
	}
	defer c.Stop(context.Background())

	stats, err := c.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	fmt.Printf("cache: %s\n", statsCache)
	fmt.Printf("  current:     %d\n", stats.Current)
	fmt.Printf("  in_progress: %d\n", stats.InProgress)
	return nil
}
