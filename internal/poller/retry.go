// internal/poller/retry.go
package poller

import "fmt"

// withRetries runs op up to MaxAttempts times with no backoff. Every
// failed attempt emits one error event; after exhaustion the last error
// is returned so the cycle can abort.
func (e *Engine) withRetries(label string, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		e.emitError(fmt.Sprintf(
			"%s failed (attempt %d/%d): %v",
			label, attempt, e.cfg.MaxAttempts, err,
		))
	}
	return fmt.Errorf("%s failed after %d attempts: %w", label, e.cfg.MaxAttempts, lastErr)
}
