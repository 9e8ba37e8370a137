// Package health serves liveness and readiness probes and runs the same
// checks for the doctor command.
//
//   - /healthz answers 200 while the process can serve HTTP.
//   - /readyz answers 200 only when every required [Checker] passes.
//
// Optional checkers are reported but never fail readiness; an open circuit
// on a fallback TTS provider is worth seeing, not worth taking the service
// out of rotation.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/murphy/internal/resilience"
)

const checkTimeout = 5 * time.Second

// Checker is one named probe.
type Checker struct {
	// Name keys the check in the JSON response.
	Name string

	// Optional checks do not affect the overall status.
	Optional bool

	// Check returns nil when the dependency is usable. It must respect ctx.
	Check func(ctx context.Context) error
}

// Outcome is the result of running one Checker.
type Outcome struct {
	Name     string
	Optional bool
	Err      error
	Elapsed  time.Duration
}

// OK reports whether the check passed.
func (o Outcome) OK() bool { return o.Err == nil }

// Run executes all checkers concurrently, each bounded by its own timeout,
// and returns the outcomes in checker order.
func Run(ctx context.Context, checkers []Checker) []Outcome {
	out := make([]Outcome, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			start := time.Now()
			err := c.Check(cctx)
			out[i] = Outcome{Name: c.Name, Optional: c.Optional, Err: err, Elapsed: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Healthy reports whether every required outcome passed.
func Healthy(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if !o.OK() && !o.Optional {
			return false
		}
	}
	return true
}

type response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the probe endpoints. The checker list is fixed at
// construction.
type Handler struct {
	checkers []Checker
}

// New creates a Handler evaluating checkers on every /readyz request.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// Healthz is the liveness probe.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

// Readyz is the readiness probe.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	outcomes := Run(r.Context(), h.checkers)
	resp := response{Status: "ok", Checks: make(map[string]string, len(outcomes))}
	degraded := false
	for _, o := range outcomes {
		switch {
		case o.OK():
			resp.Checks[o.Name] = "ok"
		case o.Optional:
			resp.Checks[o.Name] = "warn: " + o.Err.Error()
			degraded = true
		default:
			resp.Checks[o.Name] = "fail: " + o.Err.Error()
		}
	}

	status := http.StatusOK
	switch {
	case !Healthy(outcomes):
		resp.Status = "fail"
		status = http.StatusServiceUnavailable
	case degraded:
		resp.Status = "degraded"
	}
	writeJSON(w, status, resp)
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ---- ready-made checkers ----

// Binary checks a local executable through check, typically
// (*concat.FFmpeg).Check.
func Binary(name string, check func() error) Checker {
	return Checker{Name: name, Check: func(context.Context) error { return check() }}
}

// Ping checks a remote dependency such as the metadata store.
func Ping(name string, ping func(ctx context.Context) error) Checker {
	return Checker{Name: name, Check: ping}
}

// Breakers reports an error naming every provider whose circuit is not
// closed. It is optional: fallbacks may still serve requests.
func Breakers(name string, status func() []resilience.BreakerStatus) Checker {
	return Checker{Name: name, Optional: true, Check: func(context.Context) error {
		var tripped []string
		for _, s := range status() {
			if s.State != resilience.StateClosed.String() {
				tripped = append(tripped, fmt.Sprintf("%s=%s", s.Name, s.State))
			}
		}
		if len(tripped) > 0 {
			return errors.New("circuit not closed: " + strings.Join(tripped, ", "))
		}
		return nil
	}}
}
