// Package async includes helpers for scheduling periodic work.
package async

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "async")

// RunEvery runs f every period in a new goroutine until ctx is done. name
// identifies the job in logs.
func RunEvery(ctx context.Context, name string, period time.Duration, f func()) {
	ticker := time.NewTicker(period)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				log.WithField("job", name).Trace("Running")
				f()
			case <-ctx.Done():
				log.WithField("job", name).Debug("Context is closed, exiting")
				return
			}
		}
	}()
}
