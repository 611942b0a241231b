package core

// Metadata-free data model: a record is just its attributes.

// Record is the central entity of the domain. It represents one domain
// object (a study, a company, an interaction) as an attribute mapping.
// No schema is enforced beyond the presence of a "name" attribute, which
// default lookups key on.
type Record map[string]any

// NameKey is the attribute used for default lookups.
const NameKey = "name"

// Name returns the record's name attribute, or "" if absent or not a string.
func (r Record) Name() string {
	if v, ok := r[NameKey].(string); ok {
		return v
	}
	return ""
}

// Clone returns a shallow-nested copy of the record. Top-level map and
// slice values are copied one level deep, which is enough to keep callers
// from mutating a collection through query results.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge applies the patch on top of the record, returning a new record.
// The name attribute of the original wins unless the patch renames it.
func (r Record) Merge(patch Record) Record {
	out := r.Clone()
	for k, v := range patch {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

// Collection is an ordered sequence of records sharing a container name.
// Insertion order is preserved but not semantically significant.
type Collection []Record

// Clone copies the collection and every record in it.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for i, r := range c {
		out[i] = r.Clone()
	}
	return out
}

// IndexOf returns the position of the first record whose name matches
// exactly, or -1.
func (c Collection) IndexOf(name string) int {
	for i, r := range c {
		if r.Name() == name {
			return i
		}
	}
	return -1
}

// VersionToken is an opaque fingerprint of a collection's exact on-backend
// state at read time. A write must present the token it last observed; the
// backend rejects writes keyed to a stale token.
type VersionToken string
