// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package internal

import (
	"context"
	"fmt"
	"strings"
	"time"

	gax "github.com/googleapis/gax-go/v2"
)

// SleepFunc pauses for d or until ctx is done, returning ctx.Err() in the
// latter case. [gax.Sleep] is the production implementation.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Backoff yields the pause before the next attempt. *[gax.Backoff]
// implements it.
type Backoff interface {
	Pause() time.Duration
}

// ConstantBackoff pauses for the same duration before every attempt.
type ConstantBackoff time.Duration

// Pause implements [Backoff].
func (b ConstantBackoff) Pause() time.Duration { return time.Duration(b) }

// RetryN calls f until it succeeds, making at most maxAttempts calls and
// pausing between them according to bo. It returns nil on success, a
// *RetryExhaustedError once every attempt failed, or an error wrapping
// ctx.Err() if ctx is done while pausing. A nil sleep means [gax.Sleep].
func RetryN(ctx context.Context, bo Backoff, maxAttempts int, sleep SleepFunc, f func(context.Context) error) error {
	if sleep == nil {
		sleep = gax.Sleep
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var errs []error
	for {
		err := f(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
		if len(errs) >= maxAttempts {
			return &RetryExhaustedError{MaxAttempts: maxAttempts, Errors: errs}
		}
		if ctxErr := sleep(ctx, bo.Pause()); ctxErr != nil {
			return wrappedCallErr{ctxErr: ctxErr, wrappedErr: err}
		}
	}
}

// RetryExhaustedError is returned by [RetryN] when every attempt failed. The
// errors are ordered oldest first.
type RetryExhaustedError struct {
	MaxAttempts int
	Errors      []error
}

func (e *RetryExhaustedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "retry exhausted after %d attempts; errors:\n", e.MaxAttempts)
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  [%d]: %v\n", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the most recent error.
func (e *RetryExhaustedError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

// wrappedCallErr allows introspection of both the context error and the last
// error returned by the call.
type wrappedCallErr struct {
	ctxErr     error
	wrappedErr error
}

func (e wrappedCallErr) Error() string {
	return fmt.Sprintf("retry failed with %v; last error: %v", e.ctxErr, e.wrappedErr)
}

func (e wrappedCallErr) Unwrap() error {
	return e.wrappedErr
}

func (e wrappedCallErr) Is(err error) bool {
	return e.ctxErr == err || e.wrappedErr == err
}
