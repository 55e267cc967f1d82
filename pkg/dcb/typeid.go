package dcb

import (
	"sort"
	"strings"

	"go.jetify.com/typeid"
)

// maxTypeIDPrefixLength keeps the generated TypeID within a VARCHAR(64)
// column: 64 total - 26 chars for the sortable UUID part - 1 underscore.
const maxTypeIDPrefixLength = 64 - 26 - 1

// NewEventID derives a sortable, prefixed identifier for an event from its
// tags, so IDs sort roughly by entity in addition to the store's own
// Position ordering. If the tags don't yield a usable prefix, it falls back
// to the generic "event" prefix. The in-memory recorder calls this once per
// event at Append and keeps the result. The postgres recorder does not store
// the ID: it calls this each time it assembles a SequencedEvent from a read
// row, so the same event read twice carries two different IDs.
func NewEventID(tags []Tag) string {
	sorted := make([]string, len(tags))
	for i, t := range tags {
		sorted[i] = sanitizeForTypeID(string(t))
	}
	sort.Strings(sorted)

	prefix := strings.Join(sorted, "_")
	if len(prefix) > maxTypeIDPrefixLength {
		prefix = prefix[:maxTypeIDPrefixLength]
	}
	prefix = strings.Trim(prefix, "_")

	tid, err := typeid.WithPrefix(prefix)
	if err != nil {
		tid, _ = typeid.WithPrefix("event")
	}
	return tid.String()
}

// sanitizeForTypeID lowercases s and replaces every character outside
// [a-z0-9_] with an underscore, collapsing repeats, so it's safe to use as a
// TypeID prefix segment.
func sanitizeForTypeID(s string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, strings.ToLower(s))

	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	return strings.Trim(sanitized, "_")
}
