package cookies

import (
	"slices"
	"strings"
)

// jar is a name-keyed collection that remembers the order names were first seen.
// Setting an existing name replaces the entry in place.
type jar struct {
	order   []string
	entries map[string]Entry
}

func newJar(capacity int) *jar {
	return &jar{
		order:   make([]string, 0, capacity),
		entries: make(map[string]Entry, capacity),
	}
}

func (j *jar) set(e Entry) {
	if _, ok := j.entries[e.Name]; !ok {
		j.order = append(j.order, e.Name)
	}
	j.entries[e.Name] = e
}

func (j *jar) get(name string) (Entry, bool) {
	e, ok := j.entries[name]
	return e, ok
}

func (j *jar) list() []Entry {
	out := make([]Entry, 0, len(j.order))
	for _, name := range j.order {
		out = append(out, j.entries[name])
	}
	return out
}

// collect builds a last-wins jar from raw.
func collect(raw string) *jar {
	entries := Parse(raw)
	j := newJar(len(entries))
	for _, e := range entries {
		j.set(e)
	}
	return j
}

// IsAllowed reports whether a cookie name belongs to the platform allow-list.
func IsAllowed(name string) bool {
	if slices.Contains(RequiredNames, name) {
		return true
	}
	for _, prefix := range allowedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Format serializes entries as a Cookie header, skipping entries without a name or value.
func Format(entries []Entry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name == "" || e.Value == "" {
			continue
		}
		parts = append(parts, e.Name+"="+e.Value)
	}
	return strings.Join(parts, "; ")
}

// Clean returns the outbound Cookie header for raw: duplicates collapse to their last
// value, non-platform cookies are dropped and the rest are serialized in first-seen order.
func Clean(raw string) string {
	j := collect(raw)

	kept := make([]Entry, 0, len(j.order))
	for _, e := range j.list() {
		if IsAllowed(e.Name) {
			kept = append(kept, e)
		}
	}
	return Format(kept)
}

// Merge folds server-issued updates into base. Updates for names outside the allow-list
// are ignored. Existing names keep their position; new names are appended in update order.
func Merge(base string, updates []Entry) string {
	j := collect(base)
	for _, u := range updates {
		if !IsAllowed(u.Name) {
			continue
		}
		j.set(u)
	}
	return Format(j.list())
}

// IsInstagramDomain reports whether a cookie Domain attribute belongs to Instagram.
func IsInstagramDomain(domain string) bool {
	return slices.Contains(instagramDomains, strings.ToLower(domain))
}
