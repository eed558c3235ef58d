package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	getConfigPath string
	getCache      string
)

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Stream a cached entry's content to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().StringVar(&getConfigPath, "config", "caches.yaml", "path to the cache manifest")
	getCmd.Flags().StringVar(&getCache, "cache", "", "named cache to read from (required)")
	_ = getCmd.MarkFlagRequired("cache")
}

func runGet(cmd *cobra.Command, args []string) error {
	id := args[0]

	ctx := cmd.Context()
	c, err := openCache(ctx, getConfigPath, getCache)
	if err != nil {
		return err
	}
	defer c.Stop(context.Background())

	stream, err := c.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get failed: %w", err)
	}
	if stream == nil {
		return fmt.Errorf("no entry found for %q in cache %q", id, getCache)
	}
	defer stream.Close()

	_, err = io.Copy(os.Stdout, stream)
	return err
}
