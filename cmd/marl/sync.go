package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the repository with its remote",
	Long: `Synchronize the local repository with the configured remote.
It integrates remote changes with a rebase and pushes local commits.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client := openClient(ctx, true)
		defer client.Close()

		fmt.Println("Syncing...")
		if err := client.Sync(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Sync failed: %v\n", err)
			fmt.Println("Tip: Ensure a remote is configured ('git remote add origin <url>') and you are online.")
			os.Exit(1)
		}

		fmt.Println("Sync completed successfully.")
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
