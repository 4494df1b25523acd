package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron"
)

// Refresher re-fetches the catalog on a cron schedule such as "@every 30m"
// or "0 0 */6 * * *".
type Refresher struct {
	cron    *cron.Cron
	store   *Store
	log     *slog.Logger
	timeout time.Duration
}

// NewRefresher schedules store refreshes. An empty schedule returns an error.
func NewRefresher(store *Store, schedule string, log *slog.Logger) (*Refresher, error) {
	if schedule == "" {
		return nil, fmt.Errorf("empty refresh schedule")
	}
	r := &Refresher{
		cron:    cron.New(),
		store:   store,
		log:     log,
		timeout: time.Minute,
	}
	if err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("parsing refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start runs the schedule in the background.
func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop halts future refreshes. A refresh already running is not interrupted.
func (r *Refresher) Stop() {
	r.cron.Stop()
}

func (r *Refresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if _, err := r.store.Refresh(ctx); err != nil {
		r.log.Warn("scheduled catalog refresh failed", "error", err)
	}
}
