package delegation

// GroupRecords partitions records into delivery groups.
func GroupRecords(records []Record) map[GroupKey][]Record {
	groups := make(map[GroupKey][]Record)
	for _, r := range records {
		key := r.GroupKey()
		groups[key] = append(groups[key], r)
	}
	return groups
}

// FindWinner returns the record that claimed the group, if any. The first
// record in a winning status wins; after convergence there is at most one.
func FindWinner(group []Record) (Record, bool) {
	for _, r := range group {
		if r.Status.Winning() {
			return r, true
		}
	}
	return Record{}, false
}

// Losers selects the group members the watchdog must remove once a winner
// exists: every sibling that is not terminal-successful. COLLECTED and
// COMPLETED records are protected even when a newer winner appears, so an
// already finished delivery can never be destroyed by a later pass.
func Losers(group []Record, winnerID string) []Record {
	losers := make([]Record, 0, len(group))
	for _, r := range group {
		if r.ID == winnerID {
			continue
		}
		if r.Status.TerminalSuccessful() {
			continue
		}
		losers = append(losers, r)
	}
	return losers
}
