package quiet

import (
	"strings"

	"quietroute.dev/quiet/model"
)

// StationDirectory resolves free-text station names (as returned by
// external routing APIs, which rarely match canonical names exactly)
// to complex ids. Resolution runs a fixed chain of stateless matching
// strategies in priority order; the first hit wins, and a miss means
// the station is unresolved rather than defaulted.
type StationDirectory struct {
	entries []model.StationName
}

func NewStationDirectory(names []model.StationName) *StationDirectory {
	return &StationDirectory{entries: names}
}

type matchFunc func(query, canonical string) bool

var matchChain = []matchFunc{
	matchExact,
	matchNormalized,
	matchTokenPrefix,
}

// Resolve maps a station name to its complex id.
func (d *StationDirectory) Resolve(name string) (int64, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, false
	}

	for _, match := range matchChain {
		for _, entry := range d.entries {
			if match(name, entry.Name) {
				return entry.ComplexID, true
			}
		}
	}
	return 0, false
}

// Len returns the number of canonical names in the directory.
func (d *StationDirectory) Len() int {
	return len(d.entries)
}

func matchExact(query, canonical string) bool {
	return query == canonical
}

// Lowercase, hyphens to spaces, repeated whitespace collapsed.
func normalizeName(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

// Normalized names match when either contains the other: "grand
// central 42 st" against "grand central - 42 st" resolves here.
func matchNormalized(query, canonical string) bool {
	q := normalizeName(query)
	c := normalizeName(canonical)
	if q == "" || c == "" {
		return false
	}
	return strings.Contains(c, q) || strings.Contains(q, c)
}

// Last resort: the first two significant words agree.
func matchTokenPrefix(query, canonical string) bool {
	q := strings.Fields(normalizeName(query))
	c := strings.Fields(normalizeName(canonical))
	if len(q) < 2 || len(c) < 2 {
		return false
	}
	return q[0] == c[0] && q[1] == c[1]
}
