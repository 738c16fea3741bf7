package feed

import (
	"context"
	"log/slog"
	"sync"

	"doora/internal/bootstrap/logging"
	"doora/internal/ports"
)

// subscriberBuffer bounds each subscriber channel. A slow consumer loses
// changes rather than blocking writers; the watchdog tolerates this because
// any later change retriggers convergence.
const subscriberBuffer = 64

type subscriber struct {
	ch     chan ports.Change
	filter ports.ChangeFilter
}

// Feed is the in-process realization of the record store's push-on-change
// subscription contract.
type Feed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
}

func New() *Feed {
	return &Feed{subs: make(map[int]*subscriber)}
}

func (f *Feed) Publish(ctx context.Context, change ports.Change) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, sub := range f.subs {
		if !matches(sub.filter, change) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			logging.Warn(ctx, "change feed subscriber lagging, dropping change",
				slog.Int("subscriber", id),
				slog.String("record_id", change.RecordID),
			)
		}
	}
}

func (f *Feed) Subscribe(filter ports.ChangeFilter) (<-chan ports.Change, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++

	sub := &subscriber{
		ch:     make(chan ports.Change, subscriberBuffer),
		filter: filter,
	}
	f.subs[id] = sub

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if existing, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(existing.ch)
		}
	}
	return sub.ch, cancel
}

func matches(filter ports.ChangeFilter, change ports.Change) bool {
	if filter.UserID == "" {
		return true
	}
	return change.RequesterID == filter.UserID || change.DelegateID == filter.UserID
}
