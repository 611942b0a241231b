package entities_test

import (
	"context"
	"errors"
	"testing"

	"github.com/marldb/marl/pkg/adapters/memory"
	"github.com/marldb/marl/pkg/core"
	"github.com/marldb/marl/pkg/entities"
)

func TestRecordClients(t *testing.T) {
	ctx := context.Background()

	t.Run("Studies and Companies Are Bound to Their Containers", func(t *testing.T) {
		conn := memory.New()
		if got := entities.Studies(conn).Container(); got != "Studies" {
			t.Errorf("expected Studies, got %q", got)
		}
		if got := entities.Companies(conn).Container(); got != "Companies" {
			t.Errorf("expected Companies, got %q", got)
		}
	})

	t.Run("Clients Share One Connector", func(t *testing.T) {
		conn := memory.New()
		studies := entities.Studies(conn)
		companies := entities.Companies(conn)

		if err := studies.Create(ctx, core.Record{"name": "Study 1"}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		coll, err := companies.GetAll(ctx)
		if err != nil {
			t.Fatalf("GetAll failed: %v", err)
		}
		if len(coll) != 0 {
			t.Errorf("containers must be independent, got %v", coll)
		}
	})

	t.Run("Interactions FindByHash", func(t *testing.T) {
		conn := memory.New()
		conn.Seed("Interactions", core.Collection{
			{"name": "call-01", "file_hash": "abc123"},
			{"name": "call-02", "file_hash": "def456"},
		})
		inter := entities.NewInteractions(conn)

		coll, err := inter.FindByHash(ctx, "def456")
		if err != nil {
			t.Fatalf("FindByHash failed: %v", err)
		}
		if len(coll) != 1 || coll[0].Name() != "call-02" {
			t.Errorf("unexpected result: %v", coll)
		}

		if _, err := inter.FindByHash(ctx, "nope"); core.StatusOf(err) != 404 {
			t.Errorf("expected 404, got %v", err)
		}
	})
}

func TestReadOnlyFacades(t *testing.T) {
	ctx := context.Background()

	conn := memory.New()
	conn.SetMetric(core.MetricUserList, []string{"ada", "grace"})
	conn.SetMetric(core.MetricCurrentUser, map[string]any{"login": "ada"})
	conn.SetMetric(core.MetricRepoSize, 4096)
	conn.SetMetric(core.MetricStorageBilling, map[string]any{"gb": 1.5})
	conn.SetMetric(core.MetricActionsBilling, map[string]any{"minutes": 12})
	conn.SetMetric(core.MetricWorkflowRuns, 7)

	t.Run("Users Passes Payloads Through", func(t *testing.T) {
		users := entities.NewUsers(conn)

		all, err := users.GetAll(ctx)
		if err != nil {
			t.Fatalf("GetAll failed: %v", err)
		}
		if list, ok := all.([]string); !ok || len(list) != 2 {
			t.Errorf("unexpected payload: %v", all)
		}

		me, err := users.GetMyself(ctx)
		if err != nil {
			t.Fatalf("GetMyself failed: %v", err)
		}
		if m, ok := me.(map[string]any); !ok || m["login"] != "ada" {
			t.Errorf("unexpected payload: %v", me)
		}
	})

	t.Run("Storage Billing", func(t *testing.T) {
		st := entities.NewStorage(conn)
		if size, err := st.GetAll(ctx); err != nil || size != 4096 {
			t.Errorf("unexpected repo size: %v (%v)", size, err)
		}
		if _, err := st.GetStorageBilling(ctx); err != nil {
			t.Errorf("GetStorageBilling failed: %v", err)
		}
	})

	t.Run("Actions Billing and Runs", func(t *testing.T) {
		a := entities.NewActions(conn, nil)
		if runs, err := a.GetAll(ctx); err != nil || runs != 7 {
			t.Errorf("unexpected runs payload: %v (%v)", runs, err)
		}
		if _, err := a.GetActionsBilling(ctx); err != nil {
			t.Errorf("GetActionsBilling failed: %v", err)
		}
	})

	t.Run("Missing Metric is an Error, Not a Crash", func(t *testing.T) {
		bare := memory.New()
		if _, err := entities.NewUsers(bare).GetMyself(ctx); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}
