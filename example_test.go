package marl_test

import (
	"context"
	"fmt"
	"log"

	"github.com/marldb/marl"
	"github.com/marldb/marl/pkg/adapters/memory"
	"github.com/marldb/marl/pkg/query"
)

// Example_basic creates a client over the in-memory backend, writes a
// study, and searches it back.
func Example_basic() {
	client := marl.New(memory.New())
	defer client.Close()

	ctx := context.Background()

	err := client.Studies.Create(ctx, marl.Record{
		"name":   "acoustic-survey",
		"status": "active",
		"sites":  3,
	})
	if err != nil {
		log.Fatal(err)
	}

	results, err := client.Studies.Search(ctx,
		query.Filter{"status": "active"},
		query.Options{Sort: "name"},
	)
	if err != nil {
		log.Fatal(err)
	}

	for _, rec := range results {
		fmt.Printf("Found study: %s\n", rec.Name())
	}
	// Output:
	// Found study: acoustic-survey
}

// Example_typed wraps a container with the generic typed client.
func Example_typed() {
	client := marl.New(memory.New())
	defer client.Close()

	type Study struct {
		Name   string `json:"name"`
		Status string `json:"status"`
	}

	ctx := context.Background()
	studies := marl.NewTyped[Study](client.Studies)

	if err := studies.Create(ctx, Study{Name: "riverbed", Status: "draft"}); err != nil {
		log.Fatal(err)
	}

	all, err := studies.All(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s is %s\n", all[0].Name, all[0].Status)
	// Output:
	// riverbed is draft
}
