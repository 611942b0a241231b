package main

import (
	"context"

	"github.com/spf13/cobra"
)

// whoamiCmd represents the whoami command
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current repository user",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client := openClient(ctx, true)
		defer client.Close()

		me, err := client.Users.GetMyself(ctx)
		emit(me, err)
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
