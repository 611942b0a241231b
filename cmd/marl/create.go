package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marldb/marl"
)

var createData string

// createCmd represents the create command
var createCmd = &cobra.Command{
	Use:   "create <container>",
	Short: "Create a record in a container",
	Long:  `Create a record from the JSON object given via --data. The object must carry a "name" attribute.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		rec := parseRecord(createData)

		ctx := context.Background()
		client := openClient(ctx, true)
		defer client.Close()

		err := containerStore(client, args[0]).Create(ctx, rec)
		emit(rec.Name(), err)
	},
}

// parseRecord decodes the --data JSON object.
func parseRecord(data string) marl.Record {
	var rec marl.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		fmt.Fprintf(os.Stderr, "Error: --data must be a JSON object: %v\n", err)
		os.Exit(1)
	}
	return rec
}

func init() {
	rootCmd.AddCommand(createCmd)
	createCmd.Flags().StringVarP(&createData, "data", "d", "", "Record as a JSON object")
	createCmd.MarkFlagRequired("data")
}
