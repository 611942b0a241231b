package main

import (
	"context"

	"github.com/spf13/cobra"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <container> <name>",
	Short: "Delete the named record from a container",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client := openClient(ctx, true)
		defer client.Close()

		err := containerStore(client, args[0]).Delete(ctx, args[1])
		emit(args[1], err)
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
