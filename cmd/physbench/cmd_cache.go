package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/physbench/physbench/internal/cache"
	"github.com/physbench/physbench/internal/models"
	"github.com/physbench/physbench/internal/utils"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the model response cache",
		Long: `Manage the model response cache.

When gateway.cache_dir is set, identical requests (model, system prompt,
prompt and response schema) are answered from disk instead of the API.`,
	}

	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear [benchmark.yaml]",
		Short: "Delete every cached model response",
		Long: `Delete every cached model response.

The directory is taken from --cache-dir, or from gateway.cache_dir of the
given benchmark spec. The next run calls the API for every request.`,
		Args: cobra.MaximumNArgs(1),
		RunE: cacheClearE,
	}

	cmd.Flags().String("cache-dir", "", "Cache directory to clear")

	return cmd
}

func cacheClearE(cmd *cobra.Command, args []string) error {
	v, err := bindEnv(cmd)
	if err != nil {
		return err
	}

	dir := v.GetString("cache-dir")
	if dir == "" && len(args) == 1 {
		spec, err := models.LoadBenchmarkSpec(args[0])
		if err != nil {
			return fmt.Errorf("failed to load spec: %w", err)
		}
		if spec.Gateway.CacheDir != "" {
			dir = utils.ResolvePath(spec.Gateway.CacheDir, filepath.Dir(args[0]))
		}
	}
	if dir == "" {
		return errors.New("no cache directory: pass --cache-dir or a spec with gateway.cache_dir")
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving cache directory: %w", err)
	}

	c, err := cache.New(absDir)
	if err != nil {
		return err
	}
	if err := c.Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", absDir)
	return nil
}
