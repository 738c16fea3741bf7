package delegation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"doora/internal/bootstrap/logging"
	"doora/internal/ports"
)

const defaultDebounce = 500 * time.Millisecond

// Runner watches the change feed and converges delivery groups after a quiet
// period. A fan-out touches many records of the same group in a burst;
// debouncing folds that burst into one convergence pass per group.
type Runner struct {
	service  *Service
	feed     ports.ChangeFeed
	debounce time.Duration

	mu      sync.Mutex
	pending map[groupTimerKey]*groupTimer

	// Timer callbacks only hand the fired group to the loop goroutine, which
	// runs the convergence itself. Stop therefore cannot return while a pass
	// is still touching the database.
	fired chan firedGroup

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

type groupTimerKey struct {
	requesterID   string
	deliveryLabel string
}

type groupTimer struct {
	timer   *time.Timer
	actorID string
}

type firedGroup struct {
	key     groupTimerKey
	actorID string
}

func NewRunner(service *Service, feed ports.ChangeFeed, debounce time.Duration) *Runner {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Runner{
		service:  service,
		feed:     feed,
		debounce: debounce,
		pending:  make(map[groupTimerKey]*groupTimer),
		fired:    make(chan firedGroup, 16),
	}
}

// Start subscribes to the change feed and converges in the background until
// Stop is called or the parent context ends.
func (r *Runner) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	changes, unsubscribe := r.feed.Subscribe(ports.ChangeFilter{})

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer unsubscribe()

		logging.Info(runCtx, "watchdog started",
			slog.Duration("debounce", r.debounce),
		)
		for {
			select {
			case <-runCtx.Done():
				r.drainTimers()
				return
			case change, ok := <-changes:
				if !ok {
					return
				}
				r.schedule(runCtx, change)
			case f := <-r.fired:
				r.converge(runCtx, f)
			}
		}
	}()
}

// Stop halts the runner and waits for in-flight convergence to finish.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// schedule arms (or re-arms) the debounce timer for the change's group. The
// last actor to touch the group is the one spared the displacement notice.
func (r *Runner) schedule(ctx context.Context, change ports.Change) {
	if change.RequesterID == "" || change.DeliveryLabel == "" {
		return
	}
	key := groupTimerKey{
		requesterID:   change.RequesterID,
		deliveryLabel: change.DeliveryLabel,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.pending[key]; ok {
		existing.actorID = change.ActorID
		existing.timer.Reset(r.debounce)
		return
	}

	entry := &groupTimer{actorID: change.ActorID}
	entry.timer = time.AfterFunc(r.debounce, func() {
		r.mu.Lock()
		actorID := entry.actorID
		delete(r.pending, key)
		r.mu.Unlock()

		select {
		case r.fired <- firedGroup{key: key, actorID: actorID}:
		case <-ctx.Done():
		}
	})
	r.pending[key] = entry
}

func (r *Runner) converge(ctx context.Context, f firedGroup) {
	if ctx.Err() != nil {
		return
	}
	if err := r.service.ConvergeGroup(ctx, f.key.requesterID, f.key.deliveryLabel, f.actorID); err != nil {
		logging.Error(ctx, "watchdog convergence failed",
			slog.String("requester_id", f.key.requesterID),
			slog.String("delivery_label", f.key.deliveryLabel),
			slog.Any("err", err),
		)
	}
}

func (r *Runner) drainTimers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, entry := range r.pending {
		entry.timer.Stop()
		delete(r.pending, key)
	}
}
