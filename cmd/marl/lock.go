package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var lockBreakAge time.Duration

// lockCmd groups the lock inspection and recovery subcommands.
var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Inspect and recover container locks",
}

var lockStatusCmd = &cobra.Command{
	Use:   "status <container>",
	Short: "Report whether a container is locked",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client := openClient(ctx, true)
		defer client.Close()

		locked, err := client.Locks().Locked(ctx, containerStore(client, args[0]).Container())
		emit(map[string]any{"container": args[0], "locked": locked}, err)
	},
}

var lockBreakCmd = &cobra.Command{
	Use:   "break <container>",
	Short: "Force-release an abandoned container lock",
	Long: `Force-release a container lock older than --age. Breaking a lock
that a live writer still holds can corrupt its commit; only use this for
locks left behind by crashed processes.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client := openClient(ctx, true)
		defer client.Close()

		broken, err := client.Locks().BreakLock(ctx, containerStore(client, args[0]).Container(), lockBreakAge)
		emit(map[string]any{"container": args[0], "broken": broken}, err)
	},
}

func init() {
	rootCmd.AddCommand(lockCmd)
	lockCmd.AddCommand(lockStatusCmd)
	lockCmd.AddCommand(lockBreakCmd)
	lockBreakCmd.Flags().DurationVar(&lockBreakAge, "age", 15*time.Minute, "Minimum lock age before breaking")
}
