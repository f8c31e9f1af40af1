package checks

import (
	"context"
	"time"

	"github.com/charlesng35/authflow/internal/monitoring"
)

const defaultStoreTimeout = 2 * time.Second

// Pinger is satisfied by every credential store backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store returns a readiness probe that pings the credential store.
func Store(store Pinger, timeout time.Duration) monitoring.Check {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}

	return monitoring.NewCheck("store", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if store == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "store not configured"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return monitoring.ResultFromError("store", store.Ping(probeCtx), time.Since(start))
	})
}
