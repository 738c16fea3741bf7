package ports

import "context"

// Profile counter names updated on terminal-successful transitions.
const (
	CounterPackagesCollected = "packages_collected"
	CounterPackagesDelegated = "packages_delegated"
	CounterNeighborsHelped   = "neighbors_helped"
)

// ProfileStats is the external profile/statistics collaborator. The engine
// only bumps counters; leaderboards and derived statistics live elsewhere.
type ProfileStats interface {
	IncrementCounter(ctx context.Context, userID string, counter string) error
}
