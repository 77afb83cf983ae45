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
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	gax "github.com/googleapis/gax-go/v2"
)

func noSleep(context.Context, time.Duration) error { return nil }

func TestRetryN_SuccessBeforeMaxAttempts(t *testing.T) {
	n := 0
	err := RetryN(context.Background(), &gax.Backoff{}, 5, noSleep, func(context.Context) error {
		n++
		if n < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RetryN() = %v, want nil", err)
	}
	if n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestRetryN_ExhaustsMaxAttempts(t *testing.T) {
	var pauses []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}
	bo := &gax.Backoff{Initial: time.Minute, Max: time.Minute, Multiplier: 1}
	n := 0
	err := RetryN(context.Background(), bo, 3, sleep, func(context.Context) error {
		n++
		return fmt.Errorf("error %d", n)
	})

	var rerr *RetryExhaustedError
	if !errors.As(err, &rerr) {
		t.Fatalf("RetryN() = %v, want *RetryExhaustedError", err)
	}
	if n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
	var got []string
	for _, e := range rerr.Errors {
		got = append(got, e.Error())
	}
	if diff := cmp.Diff([]string{"error 1", "error 2", "error 3"}, got); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
	if got := errors.Unwrap(err).Error(); got != "error 3" {
		t.Errorf("Unwrap() = %q, want %q", got, "error 3")
	}
	if len(pauses) != 2 {
		t.Fatalf("pauses = %v, want 2 pauses", pauses)
	}
	for _, p := range pauses {
		// gax applies full jitter up to the current backoff.
		if p <= 0 || p > time.Minute {
			t.Errorf("pause = %v, want within (0, 1m]", p)
		}
	}
	if !strings.Contains(err.Error(), "retry exhausted after 3 attempts") {
		t.Errorf("Error() = %q", err)
	}
}

func TestRetryN_ConstantBackoff(t *testing.T) {
	var pauses []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}
	RetryN(context.Background(), ConstantBackoff(time.Minute), 4, sleep, func(context.Context) error {
		return errors.New("fail")
	})
	want := []time.Duration{time.Minute, time.Minute, time.Minute}
	if diff := cmp.Diff(want, pauses); diff != "" {
		t.Errorf("pauses mismatch (-want +got):\n%s", diff)
	}
}

func TestRetryN_NonPositiveMaxAttemptsCallsOnce(t *testing.T) {
	for _, attempts := range []int{0, -1} {
		n := 0
		err := RetryN(context.Background(), &gax.Backoff{}, attempts, noSleep, func(context.Context) error {
			n++
			return errors.New("fail")
		})
		if err == nil {
			t.Errorf("RetryN(%d) = nil, want error", attempts)
		}
		if n != 1 {
			t.Errorf("RetryN(%d) calls = %d, want 1", attempts, n)
		}
	}
}

func TestRetryN_ContextDone(t *testing.T) {
	last := errors.New("last failure")
	err := RetryN(context.Background(), &gax.Backoff{}, 10,
		func(context.Context, time.Duration) error { return context.Canceled },
		func(context.Context) error { return last })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("errors.Is(err, context.Canceled) = false for %v", err)
	}
	if !errors.Is(err, last) {
		t.Errorf("errors.Is(err, last) = false for %v", err)
	}
	want := "retry failed with context canceled; last error: last failure"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err, want)
	}
}
