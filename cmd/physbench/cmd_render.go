package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/physbench/physbench/internal/reporting"
)

func newRenderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <output-dir>",
		Short: "Render markdown artifacts to HTML",
		Long: `Render every markdown artifact under an output directory to a
standalone HTML page, keeping the directory layout.`,
		Args: cobra.ExactArgs(1),
		RunE: renderCommandE,
	}

	cmd.Flags().String("html-dir", "", "Destination directory (default: <output-dir>/html)")

	return cmd
}

func renderCommandE(cmd *cobra.Command, args []string) error {
	v, err := bindEnv(cmd)
	if err != nil {
		return err
	}

	dst := v.GetString("html-dir")
	if dst == "" {
		dst = filepath.Join(args[0], "html")
	}
	n, err := reporting.RenderTree(args[0], dst)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d artifact(s) to %s\n", n, dst)
	return nil
}
