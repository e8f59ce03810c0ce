package vault

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/unkn0wn-root/confita"
)

// HealthCheck performs one health check and returns the HTTP status observed.
type HealthCheck func(ctx context.Context) (int, error)

// HTTPHealthCheck issues GET url with client. The body is drained and discarded.
func HTTPHealthCheck(client *http.Client, url string) HealthCheck {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return 0, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return resp.StatusCode, nil
	}
}

func healthy(status int) bool { return status >= 200 && status <= 204 }

// IsAgentReady polls the store until it reports a 200-204 status or the
// readiness timeout elapses, waiting the poll interval between checks.
// Check failures are logged at debug and retried. Cancelling ctx ends the
// wait early with false.
func (b *Backend) IsAgentReady(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	for attempt := 1; ; attempt++ {
		status, err := b.check(ctx)
		if err == nil && healthy(status) {
			b.log.Info("vault agent is ready", confita.Fields{"address": b.address, "attempts": attempt})
			return true
		}
		f := confita.Fields{"attempt": attempt, "elapsed": time.Since(start).String()}
		if err != nil {
			f["err"] = err
		} else {
			f["status"] = status
		}
		b.log.Debug("waiting for vault agent", f)

		wait := time.NewTimer(b.interval)
		select {
		case <-ctx.Done():
			wait.Stop()
			b.log.Error("vault agent is not ready", confita.Fields{
				"address":  b.address,
				"attempts": attempt,
				"timeout":  b.timeout.String(),
			})
			return false
		case <-wait.C:
		}
	}
}
