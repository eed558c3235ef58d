package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/adjust/file-cache/pkg/filecache"
)

var (
	putConfigPath string
	putCache      string
	putTTL        time.Duration
	putFile       string
)

var putCmd = &cobra.Command{
	Use:   "put <id>",
	Short: "Write content under id, overwriting any existing entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runPut,
}

func init() {
	putCmd.Flags().StringVar(&putConfigPath, "config", "caches.yaml", "path to the cache manifest")
	putCmd.Flags().StringVar(&putCache, "cache", "", "named cache to write to (required)")
	putCmd.Flags().DurationVar(&putTTL, "ttl", 0, "override the cache's default TTL for this entry")
	putCmd.Flags().StringVar(&putFile, "file", "", "read content from this file instead of stdin")
	_ = putCmd.MarkFlagRequired("cache")
}

func runPut(cmd *cobra.Command, args []string) error {
	id := args[0]

	var r io.Reader = os.Stdin
	if putFile != "" {
		f, err := os.Open(putFile)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", putFile, err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}

	ctx := cmd.Context()
	c, err := openCache(ctx, putConfigPath, putCache)
	if err != nil {
		return err
	}
	defer c.Stop(context.Background())

	var opts []filecache.PutOption
	if putTTL > 0 {
		opts = append(opts, filecache.WithTTL(putTTL))
	}

	stream, err := c.Put(ctx, id, filecache.Bytes(data), opts...)
	if err != nil {
		return fmt.Errorf("put failed: %w", err)
	}
	defer stream.Close()

	fmt.Printf("✅ wrote %d byte(s) under %q in cache %q\n", len(data), id, putCache)
	return nil
}
