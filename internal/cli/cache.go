package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ml-archive/dandy/internal/mapping"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the on-disk entity mapping cache",
	}
	cmd.AddCommand(newCacheClearCommand(opts))
	return cmd
}

func newCacheClearCommand(opts *RootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the mapping archive; it rebuilds cold on next use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache := mapping.NewCache(dir, nil)
			cache.Clear()
			if opts.Verbose {
				fmt.Fprintf(cmd.OutOrStdout(), "cleared mapping archive in %s\n", dir)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory holding the mapping archive")
	return cmd
}
