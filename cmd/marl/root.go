package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/marldb/marl"
	"github.com/marldb/marl/pkg/adapters/gitfs"
)

var (
	verbose  bool
	repoPath string
	plain    bool
	format   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "marl",
	Short: "A typed entity store backed by a Git repository",
	Long: `Marl treats a git repository as a database of entity collections.
Every mutation takes a container lock, validates an optimistic version
token, and lands as one commit.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&repoPath, "path", "p", ".", "Repository path")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "Disable git versioning")
	rootCmd.PersistentFlags().StringVar(&format, "format", "", "Collection file format (json or yaml)")
}

// openClient builds the client from the persistent flags. Commands that
// mutate or read an existing repository use MustExist; init does not.
func openClient(ctx context.Context, mustExist bool) *marl.Client {
	client, err := marl.Open(ctx, repoPath,
		marl.WithPlain(plain),
		marl.WithMustExist(mustExist),
		marl.WithFormat(gitfs.Format(format)),
		marl.WithLogger(slog.Default()),
	)
	if err != nil {
		fatal("Failed to open repository", err)
	}
	return client
}

// emit prints the uniform result envelope for a (payload, error) pair and
// exits non-zero on failure.
func emit(payload any, err error) {
	env := marl.Enclose(payload, err)
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if encErr := encoder.Encode(env); encErr != nil {
		fatal("Failed to encode result", encErr)
	}
	if !env.OK {
		os.Exit(1)
	}
}
