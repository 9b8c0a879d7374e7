// Package canonical resolves raw line-item identities to their canonical
// (deduplicated) identities. The mapping is many-to-one: many raw ids may
// collapse onto one canonical id, never the reverse.
package canonical

import (
	"context"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/gleaner/internal/record"
)

// Mapper is an immutable raw-id -> canonical-id lookup table, built once per
// run. Resolving the same raw id twice always yields the same canonical id.
type Mapper struct {
	byRaw     map[string]string
	conflicts int
}

// Build constructs a Mapper from the run's line items. Items with an empty
// canonical id stay unmapped. If a raw id appears with two different
// canonical ids the first mapping wins and a warning is logged; the
// many-to-one invariant is enforced, not assumed.
func Build(ctx context.Context, items []record.LineItem, logger log.Logger) *Mapper {
	if logger == nil {
		logger = log.Nop()
	}

	m := &Mapper{byRaw: make(map[string]string, len(items))}
	for _, li := range items {
		if li.CanonicalID == "" {
			continue
		}
		if existing, ok := m.byRaw[li.LineItemID]; ok {
			if existing != li.CanonicalID {
				m.conflicts++
				logger.Warn(ctx, "conflicting canonical mapping, keeping first",
					"line_item_id", li.LineItemID,
					"canonical_line_item_id", existing,
					"conflicting_id", li.CanonicalID,
				)
			}
			continue
		}
		m.byRaw[li.LineItemID] = li.CanonicalID
	}
	return m
}

// Resolve returns the canonical id for a raw line-item id. ok is false when
// the raw id has no canonical mapping; callers exclude such items from
// canonical aggregation rather than failing the run.
func (m *Mapper) Resolve(raw string) (string, bool) {
	id, ok := m.byRaw[raw]
	return id, ok
}

// Len reports the number of mapped raw ids.
func (m *Mapper) Len() int { return len(m.byRaw) }

// Conflicts reports how many raw ids were seen with more than one canonical
// id during the build.
func (m *Mapper) Conflicts() int { return m.conflicts }
