package cmd

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var (
	deleteConfigPath string
	deleteCache      string
	deleteYes        bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete every generation of an entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().StringVar(&deleteConfigPath, "config", "caches.yaml", "path to the cache manifest")
	deleteCmd.Flags().StringVar(&deleteCache, "cache", "", "named cache to delete from (required)")
	deleteCmd.Flags().BoolVar(&deleteYes, "yes", false, "skip the confirmation prompt")
	_ = deleteCmd.MarkFlagRequired("cache")
}

func runDelete(cmd *cobra.Command, args []string) error {
	id := args[0]

	if !deleteYes {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete %q from cache %q", id, deleteCache),
			IsConfirm: true,
		}
		if _, err := prompt.Run(); err != nil {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	ctx := cmd.Context()
	c, err := openCache(ctx, deleteConfigPath, deleteCache)
	if err != nil {
		return err
	}
	defer c.Stop(context.Background())

	if err := c.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	fmt.Printf("🗑️  deleted %q from cache %q\n", id, deleteCache)
	return nil
}
