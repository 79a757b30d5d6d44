package notify

// Resolve merges action definitions from all scope layers into one ordered,
// deduplicated list for the given condition.
//
// Precedence is fixed: record-level actions first, then each scope-level
// list in supplied order, then universal actions. After filtering to
// enabled actions bound to exactly this condition, the first action per
// dedup key wins. An empty result means "no actions", not an error.
//
// Returned actions are clones; callers own them as fresh result objects.
func Resolve(condition string, recordActions []*Action, scopeActions [][]*Action, universal []*Action) []*Action {
	var merged []*Action
	merged = append(merged, recordActions...)
	for _, scope := range scopeActions {
		merged = append(merged, scope...)
	}
	merged = append(merged, universal...)

	seen := make(map[string]bool)
	var resolved []*Action
	for _, a := range merged {
		if a == nil || !a.Enabled || a.Condition != condition {
			continue
		}
		key := DedupKey(a)
		if seen[key] {
			continue
		}
		seen[key] = true
		resolved = append(resolved, a.Clone())
	}
	return resolved
}
