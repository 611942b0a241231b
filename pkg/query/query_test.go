package query_test

import (
	"testing"

	"github.com/marldb/marl/pkg/core"
	"github.com/marldb/marl/pkg/query"
)

func studies() core.Collection {
	return core.Collection{
		{"name": "Study 1", "status": "active", "order": 3},
		{"name": "Study 2", "status": "inactive", "order": 1},
		{"name": "Pilot", "status": "active", "order": 2},
	}
}

func names(c core.Collection) []string {
	out := make([]string, len(c))
	for i, r := range c {
		out[i] = r.Name()
	}
	return out
}

func TestByName(t *testing.T) {
	t.Run("Case-Insensitive Substring", func(t *testing.T) {
		got, err := query.ByName(studies(), "study")
		if err != nil {
			t.Fatalf("ByName failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 records, got %d", len(got))
		}
	})

	t.Run("Missing Name is 404", func(t *testing.T) {
		_, err := query.ByName(studies(), "Nonexistent")
		if err == nil {
			t.Fatal("expected error for missing name")
		}
		if core.StatusOf(err) != 404 {
			t.Errorf("expected status 404, got %d", core.StatusOf(err))
		}
	})
}

func TestByAttr(t *testing.T) {
	t.Run("Exact Match", func(t *testing.T) {
		got, err := query.ByAttr(core.Collection{
			{"name": "Study 1", "status": "active"},
			{"name": "Study 2", "status": "inactive"},
		}, "status", "active")
		if err != nil {
			t.Fatalf("ByAttr failed: %v", err)
		}
		if len(got) != 1 || got[0].Name() != "Study 1" {
			t.Errorf("expected exactly Study 1, got %v", names(got))
		}
	})

	t.Run("Empty Attribute is Invalid", func(t *testing.T) {
		_, err := query.ByAttr(studies(), "", "value")
		if err == nil {
			t.Fatal("expected error for empty attribute")
		}
		if core.StatusOf(err) != 400 {
			t.Errorf("expected status 400, got %d", core.StatusOf(err))
		}
	})

	t.Run("No Match is 404", func(t *testing.T) {
		_, err := query.ByAttr(studies(), "status", "archived")
		if core.StatusOf(err) != 404 {
			t.Errorf("expected status 404, got %d", core.StatusOf(err))
		}
	})

	t.Run("Numeric Normalization", func(t *testing.T) {
		got, err := query.ByAttr(core.Collection{{"name": "a", "order": float64(3)}}, "order", 3)
		if err != nil || len(got) != 1 {
			t.Fatalf("expected int 3 to match float64 3: %v", err)
		}
	})

	t.Run("Booleans Never Match Numbers", func(t *testing.T) {
		coll := core.Collection{{"name": "a", "active": true}}

		if _, err := query.ByAttr(coll, "active", 1); core.StatusOf(err) != 404 {
			t.Errorf("expected 1 not to match true, got %v", err)
		}
		if _, err := query.ByAttr(core.Collection{{"name": "b", "count": float64(1)}}, "count", true); core.StatusOf(err) != 404 {
			t.Errorf("expected true not to match 1, got %v", err)
		}

		got, err := query.ByAttr(coll, "active", true)
		if err != nil || len(got) != 1 {
			t.Fatalf("expected true to match true: %v", err)
		}
		got, err = query.ByAttr(coll, "active", "true")
		if err != nil || len(got) != 1 {
			t.Fatalf("expected the string form to match true: %v", err)
		}
	})
}

func TestApply(t *testing.T) {
	t.Run("Empty Filter Matches All", func(t *testing.T) {
		got := query.Apply(studies(), nil, query.Options{})
		if len(got) != 3 {
			t.Errorf("expected whole collection, got %d", len(got))
		}
	})

	t.Run("Filters AND-Combine", func(t *testing.T) {
		got := query.Apply(studies(), query.Filter{"name": "study", "status": "active"}, query.Options{})
		if len(got) != 1 || got[0].Name() != "Study 1" {
			t.Errorf("expected Study 1 only, got %v", names(got))
		}
	})

	t.Run("Numeric Sort", func(t *testing.T) {
		in := core.Collection{{"order": 3}, {"order": 1}, {"order": 2}}
		got := query.Apply(in, nil, query.Options{Sort: "order"})
		want := []int{1, 2, 3}
		for i, w := range want {
			if got[i]["order"] != w {
				t.Fatalf("position %d: expected order %d, got %v", i, w, got[i]["order"])
			}
		}
	})

	t.Run("Descending Reverses Ascending", func(t *testing.T) {
		asc := query.Apply(studies(), nil, query.Options{Sort: "name"})
		desc := query.Apply(studies(), nil, query.Options{Sort: "name", Descending: true})
		for i := range asc {
			if asc[i].Name() != desc[len(desc)-1-i].Name() {
				t.Fatalf("descending is not the reverse of ascending: %v vs %v", names(asc), names(desc))
			}
		}
	})

	t.Run("Stable Sort Keeps Input Order on Ties", func(t *testing.T) {
		in := core.Collection{
			{"name": "b", "rank": 1},
			{"name": "a", "rank": 1},
			{"name": "c", "rank": 0},
		}
		got := query.Apply(in, nil, query.Options{Sort: "rank"})
		if names(got)[0] != "c" || names(got)[1] != "b" || names(got)[2] != "a" {
			t.Errorf("expected [c b a], got %v", names(got))
		}
	})

	t.Run("Unknown Sort Attribute Keeps Order", func(t *testing.T) {
		got := query.Apply(studies(), nil, query.Options{Sort: "bogus"})
		if names(got)[0] != "Study 1" || names(got)[2] != "Pilot" {
			t.Errorf("expected input order, got %v", names(got))
		}
	})

	t.Run("Limit Truncates After Sort", func(t *testing.T) {
		got := query.Apply(studies(), nil, query.Options{Sort: "order", Limit: 2})
		if len(got) != 2 || got[0].Name() != "Study 2" {
			t.Errorf("expected first two by order, got %v", names(got))
		}
	})

	t.Run("Limit Beyond Size is a No-Op", func(t *testing.T) {
		got := query.Apply(studies(), nil, query.Options{Limit: 99})
		if len(got) != 3 {
			t.Errorf("expected 3 records, got %d", len(got))
		}
	})

	t.Run("Results Are Copies", func(t *testing.T) {
		in := studies()
		got := query.Apply(in, nil, query.Options{})
		got[0]["status"] = "mutated"
		if in[0]["status"] == "mutated" {
			t.Error("result aliases the input collection")
		}
	})

	t.Run("Lexicographic Sort When Mixed Types", func(t *testing.T) {
		in := core.Collection{{"v": "b"}, {"v": 2}, {"v": "a"}}
		got := query.Apply(in, nil, query.Options{Sort: "v"})
		// "2" < "a" < "b" lexicographically
		if got[0]["v"] != 2 || got[1]["v"] != "a" || got[2]["v"] != "b" {
			t.Errorf("unexpected order: %v", got)
		}
	})
}
