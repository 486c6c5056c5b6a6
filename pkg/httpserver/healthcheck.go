package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/authsvc/pkg/logger"
)

// Check probes one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

// HealthReport is the body written by the health handlers.
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler reports that the process is serving requests.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeReport(w, http.StatusOK, HealthReport{Status: "alive"})
	}
}

// ReadinessHandler runs every check concurrently, each bounded by timeout.
// Any failure turns the response into 503 with the failing check named.
func ReadinessHandler(log *slog.Logger, timeout time.Duration, checks map[string]Check) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		var mu sync.Mutex
		report := HealthReport{Status: "ready", Checks: make(map[string]string, len(names))}

		// Every check runs to completion so the report names all failures.
		var g errgroup.Group
		for _, name := range names {
			check := checks[name]
			g.Go(func() error {
				err := check(ctx)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					report.Checks[name] = "fail"
					log.WarnContext(ctx, "readiness check failed", slog.String("check", name), logger.Error(err))
					return err
				}
				report.Checks[name] = "ok"
				return nil
			})
		}

		status := http.StatusOK
		if err := g.Wait(); err != nil {
			report.Status = "not_ready"
			status = http.StatusServiceUnavailable
		}
		writeReport(w, status, report)
	}
}

func writeReport(w http.ResponseWriter, status int, report HealthReport) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(report)
}
