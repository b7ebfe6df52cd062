package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/physbench/physbench/internal/publish"
)

const connectionStringEnv = "AZURE_STORAGE_CONNECTION_STRING"

func newPublishCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish <output-dir>",
		Short: "Upload a run's outputs to Azure Blob Storage",
		Long: `Upload every file under an output directory (artifacts, CSV exports,
results.json, metrics) to an Azure Blob Storage container.

Authentication uses ` + connectionStringEnv + ` when it is set and
otherwise the default Azure credential chain against --account-url.`,
		Args: cobra.ExactArgs(1),
		RunE: publishCommandE,
	}

	cmd.Flags().String("container", "", "Destination container (required)")
	cmd.Flags().String("account-url", "", "Blob service URL, e.g. https://<account>.blob.core.windows.net/")
	cmd.Flags().String("prefix", "", "Prefix prepended to every blob name")
	cmd.Flags().Int("concurrency", 8, "Parallel uploads")

	return cmd
}

func publishCommandE(cmd *cobra.Command, args []string) error {
	v, err := bindEnv(cmd)
	if err != nil {
		return err
	}

	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", args[0])
	}

	uploader, err := publish.NewUploader(publish.Config{
		AccountURL:       v.GetString("account-url"),
		ConnectionString: os.Getenv(connectionStringEnv),
		Container:        v.GetString("container"),
		Prefix:           v.GetString("prefix"),
		Concurrency:      v.GetInt("concurrency"),
	}, slog.Default())
	if err != nil {
		return err
	}

	n, err := uploader.UploadDir(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d file(s) to container %s\n", n, v.GetString("container"))
	return nil
}
