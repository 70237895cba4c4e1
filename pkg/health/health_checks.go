package health

import (
	"context"
	"fmt"
	"time"
)

// SimpleCheck always reports healthy
func SimpleCheck(name string) CheckFunc {
	return func(context.Context) Check {
		return Check{Name: name, Status: StatusHealthy}
	}
}

// DatabaseCheck pings the relation database
func DatabaseCheck(ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: "database"}
		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Connected"
		}
		return check
	}
}

// FrameLoopCheck runs a no-op on the frame loop. A loop that cannot take
// the call before ctx expires is wedged in a frame.
func FrameLoopCheck(call func(ctx context.Context, fn func()) error, timeout time.Duration) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{Name: "frame_loop"}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := call(ctx, func() {}); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		check.Status = StatusHealthy
		check.Message = "Responsive"
		return check
	}
}

// LoadState describes the most recent source load
type LoadState struct {
	LastSuccess time.Time
	LastError   error
	Records     int
	Skipped     int
}

// SourceCheck reports the relation source. Never having loaded is
// unhealthy; a failed reload over an older good load is degraded, as the
// view keeps showing the old graph.
func SourceCheck(name string, state func() LoadState) CheckFunc {
	return func(context.Context) Check {
		s := state()
		check := Check{
			Name: "source",
			Details: map[string]any{
				"source":  name,
				"records": s.Records,
				"skipped": s.Skipped,
			},
		}
		if !s.LastSuccess.IsZero() {
			check.Details["last_success"] = s.LastSuccess
		}

		switch {
		case s.LastSuccess.IsZero() && s.LastError != nil:
			check.Status = StatusUnhealthy
			check.Message = s.LastError.Error()
		case s.LastSuccess.IsZero():
			check.Status = StatusUnhealthy
			check.Message = "Not loaded yet"
		case s.LastError != nil:
			check.Status = StatusDegraded
			check.Message = "Last reload failed: " + s.LastError.Error()
		default:
			check.Status = StatusHealthy
			check.Message = "Loaded"
		}
		return check
	}
}

// SessionsCheck reports how full the interactive session table is;
// at 90% of max it is degraded, at max unhealthy for new clients
func SessionsCheck(active func() int, max int) CheckFunc {
	return func(context.Context) Check {
		n := active()
		check := Check{
			Name:    "sessions",
			Details: map[string]any{"active": n, "max": max},
		}

		switch {
		case max <= 0:
			check.Status = StatusHealthy
			check.Message = "Unlimited"
		case n >= max:
			check.Status = StatusUnhealthy
			check.Message = "Session limit reached"
		case float64(n) >= 0.9*float64(max):
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("%d of %d sessions in use", n, max)
		default:
			check.Status = StatusHealthy
			check.Message = "Capacity available"
		}
		return check
	}
}

// MemoryCheck reports degraded when allocated heap exceeds 90% of the
// memory obtained from the OS
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func(context.Context) Check {
		alloc, sys := getUsage()
		check := Check{
			Name: "memory",
			Details: map[string]any{
				"alloc_bytes": alloc,
				"sys_bytes":   sys,
			},
		}

		if sys > 0 && float64(alloc)/float64(sys) > 0.9 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}
		return check
	}
}
