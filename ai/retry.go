// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"context"
	"log/slog"
	"time"
)

// Backoff is the explicit backoff policy: the delay before retry attempt
// attempt (0-based) is baseDelay * 2^attempt.
func Backoff(baseDelay time.Duration, attempt int) time.Duration {
	delay := baseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// RetryWithBackoff runs operation up to maxRetries+1 times, sleeping
// Backoff(baseDelay, i) after failed attempt i. It stops early when the
// operation succeeds, when retryable returns false for the error, or when the
// context is done. Returns the error from the last attempt.
func RetryWithBackoff(ctx context.Context, operation func() error, retryable func(error) bool, maxRetries int, baseDelay time.Duration) error {
	if maxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 0 {
				slog.Debug("operation succeeded after retry", "attempt", attempt+1)
			}
			return nil
		}

		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}

		slog.Debug("operation failed, will retry",
			"attempt", attempt+1, "maxAttempts", maxRetries+1, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == maxRetries {
			break
		}

		timer := time.NewTimer(Backoff(baseDelay, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
