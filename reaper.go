package robolink

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Reaper periodically sweeps expired sessions out of the store. Reads
// already treat expired entries as absent, so the reaper only bounds
// memory growth from abandoned sessions.
type Reaper struct {
	Store    SessionStore
	Interval time.Duration
}

// Run sweeps every Interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := r.Store.SweepExpired(ctx)
			if err != nil {
				logrus.WithError(err).Warningln("Session sweep failed.")
				continue
			}
			if count > 0 {
				logrus.WithField("count", count).Debugln("Swept expired sessions.")
			}
		}
	}
}
