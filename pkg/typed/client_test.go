package typed_test

import (
	"context"
	"testing"

	"github.com/marldb/marl/pkg/adapters/memory"
	"github.com/marldb/marl/pkg/query"
	"github.com/marldb/marl/pkg/store"
	"github.com/marldb/marl/pkg/typed"
)

type Study struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Order  int    `json:"order,omitempty"`
}

func TestTypedRoundTrip(t *testing.T) {
	ctx := context.Background()
	conn := memory.New()
	client := typed.NewClient[Study](store.New("Studies", conn))

	t.Run("Create and Read Back", func(t *testing.T) {
		if err := client.Create(ctx, Study{Name: "Study 1", Status: "active", Order: 2}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := client.Create(ctx, Study{Name: "Study 2", Status: "inactive", Order: 1}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		all, err := client.All(ctx)
		if err != nil {
			t.Fatalf("All failed: %v", err)
		}
		if len(all) != 2 || all[0].Status != "active" {
			t.Errorf("round trip lost fields: %+v", all)
		}
	})

	t.Run("FindByName Converts", func(t *testing.T) {
		got, err := client.FindByName(ctx, "study 2")
		if err != nil {
			t.Fatalf("FindByName failed: %v", err)
		}
		if len(got) != 1 || got[0].Order != 1 {
			t.Errorf("unexpected result: %+v", got)
		}
	})

	t.Run("Search With Sort", func(t *testing.T) {
		got, err := client.Search(ctx, nil, query.Options{Sort: "order"})
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(got) != 2 || got[0].Name != "Study 2" {
			t.Errorf("unexpected order: %+v", got)
		}
	})

	t.Run("Update Patches Fields", func(t *testing.T) {
		if err := client.Update(ctx, "Study 2", Study{Name: "Study 2", Status: "active"}); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		got, _ := client.FindByName(ctx, "Study 2")
		if got[0].Status != "active" {
			t.Errorf("patch not applied: %+v", got[0])
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := client.Delete(ctx, "Study 1"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		all, _ := client.All(ctx)
		if len(all) != 1 {
			t.Errorf("expected 1 study left, got %d", len(all))
		}
	})
}
