package linktree

import "github.com/0dayMonkey/linktree-backend/internal/notion"

// Match pairs one desired item with the record it claimed, if any.
type Match struct {
	Item   Item
	Record *notion.Page
}

// MatchResult is a partial bijection between desired items and existing
// records: every item appears once in Matches (input order), every record is
// claimed by at most one item, and Orphans holds the records nothing
// claimed.
type MatchResult struct {
	Matches []Match
	Orphans []notion.Page
}

// MatchIdentities matches items to records by normalized identity key. When
// two records share a key, the first in store-returned order wins and the
// duplicate ends up in Orphans. Records without a usable key are never
// matched.
func MatchIdentities(spec ContainerSpec, records []notion.Page, items []Item) MatchResult {
	byKey := make(map[string]int, len(records))
	for i, record := range records {
		key := IdentityOf(spec, record)
		if key == "" {
			continue
		}
		if _, exists := byKey[key]; !exists {
			byKey[key] = i
		}
	}

	claimed := make([]bool, len(records))
	result := MatchResult{Matches: make([]Match, 0, len(items))}
	for _, item := range items {
		match := Match{Item: item}
		if idx, ok := byKey[item.Identity()]; ok && !claimed[idx] {
			claimed[idx] = true
			match.Record = &records[idx]
		}
		result.Matches = append(result.Matches, match)
	}
	for i := range records {
		if !claimed[i] {
			result.Orphans = append(result.Orphans, records[i])
		}
	}
	return result
}
