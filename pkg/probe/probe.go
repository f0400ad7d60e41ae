// Package probe runs the service's startup and liveness checks: the
// database, the optional fast cache tier, source credentials, the AI
// provider. Critical failures abort startup; the rest only log.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// checkTimeout bounds a single check so one hung upstream cannot stall
// the whole run.
const checkTimeout = 5 * time.Second

// CheckFunc performs one health check. A nil return means the check
// passed.
type CheckFunc func(ctx context.Context) error

// Probe is a single named check. Critical probes abort startup when
// they fail; optional ones degrade the corresponding feature.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool
}

// Result holds the outcome of one probe run.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Run executes the probes in order, each under its own timeout.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, len(probes))

	for i, p := range probes {
		start := time.Now()
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := p.Check(checkCtx)
		cancel()

		results[i] = Result{
			Probe:    p,
			Error:    err,
			Duration: time.Since(start),
		}
	}
	return results
}

// Analyze logs a summary of the results and returns a joined error when
// critical probes failed.
func Analyze(results []Result) error {
	var criticalErrors []error

	slog.Info("Startup checks")
	for _, r := range results {
		status := "PASS"
		if r.Error != nil {
			status = "FAIL"
		}
		msg := fmt.Sprintf("[%s] %-16s (%v)", status, r.Probe.Name, r.Duration.Round(time.Millisecond))

		if r.Error != nil {
			slog.Error(msg, "error", r.Error)
			if r.Probe.Critical {
				criticalErrors = append(criticalErrors, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
			}
		} else {
			slog.Info(msg)
		}
	}

	if len(criticalErrors) > 0 {
		return errors.Join(criticalErrors...)
	}
	return nil
}

// Status is the wire form of one check, as served by the health endpoint.
type Status struct {
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Health re-runs the probes and reports a snapshot for the health
// endpoint. The boolean is false when any critical check fails;
// optional failures leave the service degraded but healthy.
func Health(ctx context.Context, probes []Probe) (bool, []Status) {
	results := Run(ctx, probes)

	healthy := true
	statuses := make([]Status, len(results))
	for i, r := range results {
		st := Status{
			Name:       r.Probe.Name,
			OK:         r.Error == nil,
			DurationMS: r.Duration.Milliseconds(),
		}
		if r.Error != nil {
			st.Error = r.Error.Error()
			if r.Probe.Critical {
				healthy = false
			}
		}
		statuses[i] = st
	}
	return healthy, statuses
}
