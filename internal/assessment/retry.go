package assessment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/neurlyn/internal/model"
)

// withRetry runs op until it succeeds, the retry budget is spent, or ctx is
// done. The delay doubles after every failed attempt. Permanent store errors
// are returned at once: a missing record as ErrSessionNotFound, a corrupt
// one unchanged.
func withRetry(ctx context.Context, retries int, backoff time.Duration, op func() error) error {
	delay := backoff
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, model.ErrRecordNotFound) {
			return fmt.Errorf("%w: %w", ErrSessionNotFound, err)
		}
		if errors.Is(err, model.ErrCorruptRecord) {
			return err
		}
		if attempt >= retries {
			return fmt.Errorf("%w: %w", ErrTransientStore, err)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrTransientStore, ctx.Err())
		case <-timer.C:
		}
		delay *= 2
	}
}
