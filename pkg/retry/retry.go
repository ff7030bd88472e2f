package retry

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Policy — единая политика ретраев вместо разбросанных по коду циклов:
// Attempts попыток, пауза растёт линейно (Step, 2*Step, 3*Step...).
type Policy struct {
	Attempts int
	Step     time.Duration
}

// Do гоняет fn до успеха или исчерпания попыток.
// retryable=nil означает «ретраить любую ошибку».
func (p Policy) Do(ctx context.Context, retryable func(error) bool, fn func() error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var last error
	for i := 1; i <= attempts; i++ {
		last = fn()
		if last == nil {
			return nil
		}
		if retryable != nil && !retryable(last) {
			return last
		}
		if i == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "retry interrupted")
		case <-time.After(time.Duration(i) * p.Step):
		}
	}
	return errors.Wrapf(last, "after %d attempts", attempts)
}
