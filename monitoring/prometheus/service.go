// Package prometheus serves the node's metrics and debug pages over HTTP.
package prometheus

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"runtime/pprof"
	"sort"
	"time"

	"github.com/esperanzalabs/esperanza/runtime"
	"github.com/fjl/memsize/memsizeui"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "prometheus")

// Service provides Prometheus metrics via the /metrics route. This route will
// show all the metrics registered with the Prometheus DefaultRegisterer.
type Service struct {
	server      *http.Server
	svcRegistry *runtime.ServiceRegistry
	memsize     memsizeui.Handler
	failStatus  error
}

// Handler represents a path and handler func to serve on the same port as
// /metrics, /healthz, /goroutinez, etc.
type Handler struct {
	Path    string
	Handler func(http.ResponseWriter, *http.Request)
}

// NewService sets up a new instance for a given address host:port.
// An empty host will match with any IP so an address like ":2121" is perfectly acceptable.
func NewService(addr string, svcRegistry *runtime.ServiceRegistry, additionalHandlers ...Handler) *Service {
	s := &Service{svcRegistry: svcRegistry}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.healthzHandler)
	mux.HandleFunc("/goroutinez", s.goroutinezHandler)
	mux.Handle("/memsize/", http.StripPrefix("/memsize", &s.memsize))

	// Register additional handlers.
	for _, h := range additionalHandlers {
		mux.HandleFunc(h.Path, h.Handler)
	}

	s.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: time.Second}

	return s
}

// TrackMemory adds v to the /memsize page under name. v must be a pointer.
func (s *Service) TrackMemory(name string, v interface{}) {
	s.memsize.Add(name, v)
}

type serviceStatus struct {
	Name   string `json:"service"`
	Status bool   `json:"status"`
	Err    string `json:"error"`
}

func (s *Service) healthzHandler(w http.ResponseWriter, r *http.Request) {
	response := generatedResponse{}

	var statuses []serviceStatus
	if s.svcRegistry != nil {
		for name, err := range s.svcRegistry.Statuses() {
			st := serviceStatus{Name: name, Status: true}
			if err != nil {
				st.Status = false
				st.Err = err.Error()
			}
			statuses = append(statuses, st)
		}
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Name < statuses[j].Name
	})

	hasError := false
	for _, st := range statuses {
		if !st.Status {
			hasError = true
		}
	}

	if negotiateContentType(r) == contentTypePlainText {
		var buf bytes.Buffer
		for _, st := range statuses {
			status := "OK"
			if !st.Status {
				status = "ERROR " + st.Err
			}
			if _, err := buf.WriteString(fmt.Sprintf("%s: %s\n", st.Name, status)); err != nil {
				response.Err = err.Error()
				hasError = true
			}
		}
		response.Data = buf
	} else {
		response.Data = statuses
	}

	code := http.StatusOK
	if hasError {
		code = http.StatusInternalServerError
	}
	if err := writeResponse(w, r, code, response); err != nil {
		log.Errorf("Could not write healthz body %v", err)
	}
}

func (s *Service) goroutinezHandler(w http.ResponseWriter, _ *http.Request) {
	stack := debug.Stack()
	if _, err := w.Write(stack); err != nil {
		log.WithError(err).Error("Failed to write goroutines stack")
	}
	if err := pprof.Lookup("goroutine").WriteTo(w, 2); err != nil {
		log.WithError(err).Error("Failed to write pprof goroutines")
	}
}

// Start the prometheus service.
func (s *Service) Start() {
	log.WithField("endpoint", s.server.Addr).Info("Starting service")
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Errorf("Could not listen to host:port :%s: %v", s.server.Addr, err)
			s.failStatus = err
		}
	}()
}

// Stop the service gracefully.
func (s *Service) Stop() error {
	log.Info("Stopping service")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Status checks for any service failure conditions.
func (s *Service) Status() error {
	return s.failStatus
}
