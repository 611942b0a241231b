package main

import (
	"context"

	"github.com/spf13/cobra"
)

var updateData string

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update <container> <name>",
	Short: "Merge a patch into the named record",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		patch := parseRecord(updateData)

		ctx := context.Background()
		client := openClient(ctx, true)
		defer client.Close()

		err := containerStore(client, args[0]).Update(ctx, args[1], patch)
		emit(args[1], err)
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
	updateCmd.Flags().StringVarP(&updateData, "data", "d", "", "Patch as a JSON object")
	updateCmd.MarkFlagRequired("data")
}
