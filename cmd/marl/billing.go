package main

import (
	"context"

	"github.com/spf13/cobra"
)

// billingCmd represents the billing command
var billingCmd = &cobra.Command{
	Use:   "billing",
	Short: "Show storage and actions billing figures",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		client := openClient(ctx, true)
		defer client.Close()

		storage, err := client.Storage.GetStorageBilling(ctx)
		if err != nil {
			emit(nil, err)
			return
		}
		actions, err := client.Actions.GetActionsBilling(ctx)
		emit(map[string]any{
			"storage": storage,
			"actions": actions,
		}, err)
	},
}

func init() {
	rootCmd.AddCommand(billingCmd)
}
