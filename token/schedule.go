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

package token

import (
	"context"
	"time"

	"firebase.google.com/admin/internal"
)

// refreshSchedule returns how long to wait before refreshing a token that
// expires in expiresIn, and how many times a failed refresh is retried.
// Tokens that expire within ExpiryThreshold are refreshed at the next minute
// boundary and retried every minute until they expire.
func refreshSchedule(expiresIn time.Duration) (delay time.Duration, retries int) {
	delay = expiresIn - ExpiryThreshold
	retries = proactiveRetries
	if delay <= 0 {
		retries = int(expiresIn/retryInterval) - 1
		delay = expiresIn % retryInterval
	}
	if retries < 0 {
		retries = 0
	}
	return delay, retries
}

// scheduleLocked replaces any pending proactive refresh with one for a token
// expiring in expiresIn. m.mu must be held.
func (m *Manager) scheduleLocked(expiresIn time.Duration) {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if !m.proactive || m.closed {
		return
	}
	delay, retries := refreshSchedule(expiresIn)
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.proactiveRefresh(ctx, delay, retries)
}

func (m *Manager) proactiveRefresh(ctx context.Context, delay time.Duration, retries int) {
	if err := sleep(ctx, delay); err != nil {
		return
	}
	err := internal.RetryN(ctx, internal.ConstantBackoff(retryInterval), retries+1, sleep, func(ctx context.Context) error {
		v, err, _ := m.group.Do(refreshKey, func() (interface{}, error) {
			return m.refresh(context.WithoutCancel(ctx))
		})
		if err != nil {
			return err
		}
		v.(*refreshed).notifyListeners()
		return nil
	})
	if err != nil && ctx.Err() == nil {
		m.logger.Warn("proactive token refresh gave up", "retries", retries, "error", err)
	}
}
