package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/physbench/physbench/internal/utils"
)

var version = "dev"

// envPrefix namespaces the environment variables that override flags, for
// example PHYSBENCH_MAX_WORKERS for --max-workers.
const envPrefix = "PHYSBENCH"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "physbench",
		Short: "physbench - benchmark LLMs on physics questions",
		Long: `physbench asks several language models the same physics questions and
has other models judge the answers.

Solvable questions have a reference answer: responses are scored with
deterministic text metrics and rated by evaluator models. Unsolvable
questions are open problems: hypotheses are ranked by ranker models.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	logFormat := cmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	envFile := cmd.PersistentFlags().String("env-file", ".env", "File with environment variables to load")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		format, err := utils.ParseLogFormat(*logFormat)
		if err != nil {
			return err
		}
		level := slog.LevelInfo
		if *debugLogging {
			level = slog.LevelDebug
		}
		slog.SetDefault(utils.NewLogger(os.Stderr, level, format))
		return nil
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newExportCommand())
	cmd.AddCommand(newSummaryCommand())
	cmd.AddCommand(newRenderCommand())
	cmd.AddCommand(newPublishCommand())
	cmd.AddCommand(newCacheCommand())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "physbench %s\n", version)
		},
	})

	return cmd
}

// bindEnv returns a viper instance reading cmd's flags with PHYSBENCH_*
// environment overrides. Flags set explicitly on the command line win.
func bindEnv(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return v, nil
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
