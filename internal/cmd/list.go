package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	listConfigPath string
	listCache      string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every currently live entry in a cache",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listConfigPath, "config", "caches.yaml", "path to the cache manifest")
	listCmd.Flags().StringVar(&listCache, "cache", "", "named cache to list (required)")
	_ = listCmd.MarkFlagRequired("cache")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := openCache(ctx, listConfigPath, listCache)
	if err != nil {
		return err
	}
	defer c.Stop(context.Background())

	records, err := c.List(ctx)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	for _, r := range records {
		fmt.Printf("%s\texpires=%s\t%s\n", r.ID, r.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"), r.Path)
	}
	fmt.Printf("%d entr(ies)\n", len(records))
	return nil
}
