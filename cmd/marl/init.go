package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/marldb/marl"
	"github.com/marldb/marl/pkg/adapters/gitfs"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a repository at the given path",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client, err := marl.Open(context.Background(), repoPath,
			marl.WithPlain(plain),
			marl.WithAutoInit(true),
			marl.WithFormat(gitfs.Format(format)),
			marl.WithLogger(slog.Default()),
		)
		if err != nil {
			fatal("Failed to initialize repository", err)
		}
		defer client.Close()

		fmt.Printf("Initialized repository at %s\n", repoPath)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
