package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/temppivot/pkg/cache"
	pio "github.com/matzehuels/temppivot/pkg/io"
	"github.com/matzehuels/temppivot/pkg/mat"
	"github.com/matzehuels/temppivot/pkg/pivot"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the learned-offset cache",
		Long: `Manage the learned-offset cache.

Every run saves the scene's offset container under a key derived from the
scene file content and the container name, so the next run of the same
scene starts with the pivots you placed before.`,
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheShowCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached offsets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}

			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo(out, "Cache is empty")
				return nil
			}

			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return err
			}
			count, err := fc.Clear()
			if err != nil {
				return err
			}

			printSuccess(out, "Cleared %d cached entries", count)
			printDetail(out, "Directory: %s", dir)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

// cacheShowCommand creates the "cache show" subcommand.
func (c *CLI) cacheShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [scene]",
		Short: "Show the offsets cached for a scene file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCacheShow(cmd, args[0])
		},
	}
}

func (c *CLI) runCacheShow(cmd *cobra.Command, scenePath string) error {
	out := cmd.OutOrStdout()

	sf, raw, err := pio.ImportScene(scenePath)
	if err != nil {
		return err
	}
	dir, err := cacheDir()
	if err != nil {
		return fmt.Errorf("get cache dir: %w", err)
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return err
	}
	defer fc.Close()

	key := cache.DefaultKeyer{}.ContainerKey(cache.Hash(raw), c.config.ContainerName)
	data, hit, err := fc.Get(cmd.Context(), key)
	if err != nil {
		return err
	}
	if !hit {
		printInfo(out, "No offsets cached for %s", scenePath)
		printNextStep(out, "Learn some", fmt.Sprintf("%s run %s --script edit.yaml", appName, scenePath))
		return nil
	}

	offsets, err := pivot.DecodeOffsets(string(data))
	if err != nil {
		return err
	}

	s, err := sf.Build()
	if err != nil {
		return err
	}
	names := make(map[string]string)
	for _, id := range s.NodeIDs() {
		names[string(id)] = s.Name(id)
	}

	printSuccess(out, "%d cached offsets for %s", len(offsets), scenePath)
	printKeyValue(out, "Container", c.config.ContainerName)
	printKeyValue(out, "Key", key)
	fmt.Fprintln(out, offsetTable(offsetSlices(offsets), names))
	return nil
}

func offsetSlices(o pivot.Offsets) map[string][]float64 {
	out := make(map[string][]float64, len(o))
	for uuid, m := range o {
		out[uuid] = mat.ToSlice(m)
	}
	return out
}
