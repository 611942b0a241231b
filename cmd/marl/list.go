package main

import (
	"context"

	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list <container>",
	Short: "List every record in a container",
	Long:  "List every record in a container. Built-in containers: " + knownContainers + ".",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client := openClient(ctx, true)
		defer client.Close()

		coll, err := containerStore(client, args[0]).GetAll(ctx)
		emit(coll, err)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
