package janitor

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/registry"
	"github.com/PathFinder-25-26J-118/path-finder-backend/internal/identity/session"
)

// Janitor sweeps engine state that would otherwise linger: offline snapshots
// past their staleness bound and principal ids parked in the error state.
type Janitor struct {
	snaps *session.SnapshotStore
	reg   *registry.Registry
	cron  *cron.Cron
}

func New(snaps *session.SnapshotStore, reg *registry.Registry) *Janitor {
	return &Janitor{
		snaps: snaps,
		reg:   reg,
		cron:  cron.New(),
	}
}

// Start schedules the sweep to run hourly.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc("@hourly", j.Sweep); err != nil {
		return err
	}

	log.Println("[janitor] scheduler started (hourly sweep)")
	j.cron.Start()
	return nil
}

// Sweep runs one maintenance pass.
func (j *Janitor) Sweep() {
	removed, err := j.snaps.Sweep(context.Background())
	if err != nil {
		log.Printf("[janitor] snapshot sweep failed: %v", err)
	} else if removed > 0 {
		log.Printf("[janitor] removed %d stale snapshots", removed)
	}

	if cleared := j.reg.ClearErrors(); cleared > 0 {
		log.Printf("[janitor] cleared %d error states", cleared)
	}
}

// Stop halts the schedule.
func (j *Janitor) Stop() {
	j.cron.Stop()
}
