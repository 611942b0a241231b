// Package query implements the pure in-memory query engine: AND-combined
// attribute filters, stable single-key sorting, and result limits over a
// collection fetched from the backend. Results are always copies, never
// aliases into the input collection.
package query

import (
	"sort"
	"strings"

	"github.com/spf13/cast"

	"github.com/marldb/marl/pkg/core"
)

// Filter maps attribute names to expected values. The "name" attribute
// matches case-insensitively as a substring; every other attribute must
// match exactly (numbers compare numerically, so 3 matches 3.0).
type Filter map[string]any

// Options shapes the result set after filtering.
type Options struct {
	// Sort names the attribute to order by. Unknown attributes leave the
	// input order untouched.
	Sort string

	// Descending inverts the sort direction.
	Descending bool

	// Limit truncates the result. Zero or negative means no limit.
	Limit int
}

// Apply filters, sorts, and truncates the collection.
func Apply(c core.Collection, f Filter, opts Options) core.Collection {
	out := make(core.Collection, 0, len(c))
	for _, rec := range c {
		if Matches(rec, f) {
			out = append(out, rec.Clone())
		}
	}

	if opts.Sort != "" {
		sortBy(out, opts.Sort, opts.Descending)
	}

	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out
}

// Matches reports whether a record satisfies every filter entry.
// An empty filter matches everything.
func Matches(rec core.Record, f Filter) bool {
	for attr, want := range f {
		got, ok := rec[attr]
		if !ok {
			return false
		}
		if attr == core.NameKey {
			if !containsFold(cast.ToString(got), cast.ToString(want)) {
				return false
			}
			continue
		}
		if !equal(got, want) {
			return false
		}
	}
	return true
}

// ByName returns every record whose name contains the given name,
// case-insensitively. Empty result is a 404.
func ByName(c core.Collection, name string) (core.Collection, error) {
	out := Apply(c, Filter{core.NameKey: name}, Options{})
	if len(out) == 0 {
		return nil, core.NotFound("no record matching name %q", name)
	}
	return out, nil
}

// ByAttr returns every record whose attribute equals the given value.
// An empty attribute is an invalid parameter; an empty result is a 404.
func ByAttr(c core.Collection, attr string, value any) (core.Collection, error) {
	if attr == "" {
		return nil, core.Invalid("attribute name must not be empty")
	}
	out := Apply(c, Filter{attr: value}, Options{})
	if len(out) == 0 {
		return nil, core.NotFound("no record with %s = %v", attr, value)
	}
	return out, nil
}

// sortBy stably orders the collection by one attribute. If every record
// that carries the attribute holds a numeric value, comparison is numeric;
// otherwise lexicographic. Records missing the attribute compare equal to
// everything and therefore stay in place relative to each other.
func sortBy(c core.Collection, attr string, descending bool) {
	numeric := true
	present := 0
	for _, rec := range c {
		v, ok := rec[attr]
		if !ok {
			continue
		}
		present++
		if _, err := cast.ToFloat64E(v); err != nil {
			numeric = false
			break
		}
	}
	if present == 0 {
		return // unknown attribute: keep input order
	}

	less := func(a, b core.Record) bool {
		av, aok := a[attr]
		bv, bok := b[attr]
		if !aok || !bok {
			return false
		}
		if numeric {
			return cast.ToFloat64(av) < cast.ToFloat64(bv)
		}
		return cast.ToString(av) < cast.ToString(bv)
	}

	sort.SliceStable(c, func(i, j int) bool {
		if descending {
			return less(c[j], c[i])
		}
		return less(c[i], c[j])
	})
}

// equal compares two attribute values, normalizing numbers so that values
// decoded from JSON (float64) match values provided as int. Booleans only
// match booleans; cast would otherwise coerce true to 1.
func equal(got, want any) bool {
	gb, gok := got.(bool)
	wb, wok := want.(bool)
	if gok && wok {
		return gb == wb
	}
	if gok || wok {
		// One side is a bool: compare as strings so "true" still matches
		// but 1 does not.
		return cast.ToString(got) == cast.ToString(want)
	}

	gf, gerr := cast.ToFloat64E(got)
	wf, werr := cast.ToFloat64E(want)
	if gerr == nil && werr == nil {
		return gf == wf
	}
	if (gerr == nil) != (werr == nil) {
		return false
	}
	return cast.ToString(got) == cast.ToString(want)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
