// Package backup exposes database backups over HTTP.
package backup

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Exporter writes a backup of a database and returns its path.
type Exporter interface {
	Backup(ctx context.Context) (string, error)
}

// Handler for accepting requests to initiate a new database backup.
func Handler(bk Exporter) func(http.ResponseWriter, *http.Request) {
	log := logrus.WithField("prefix", "db")

	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Creating database backup from HTTP webhook")

		path, err := bk.Backup(r.Context())
		if err != nil {
			log.WithError(err).Error("Failed to create backup")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := fmt.Fprint(w, path); err != nil {
			log.WithError(err).Error("Failed to write backup path")
		}
	}
}
