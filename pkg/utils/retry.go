/*
Copyright 2023 The Qovery Engine Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package utils holds small helpers shared across adapters.
package utils

import (
	"time"

	"github.com/avast/retry-go"
)

// transientAttempts is the adapter-layer retry budget. The orchestrator
// layer never retries on its own.
const transientAttempts = 5

// fibonacci returns the n-th Fibonacci number, 1-indexed: 1 1 2 3 5 ...
func fibonacci(n uint) uint {
	a, b := uint(1), uint(1)
	for ; n > 1; n-- {
		a, b = b, a+b
	}
	return a
}

// FibonacciDelay is a retry-go delay schedule: base, base, 2*base, 3*base,
// 5*base...
func FibonacciDelay(base time.Duration) retry.DelayTypeFunc {
	return func(n uint, _ error, _ *retry.Config) time.Duration {
		return time.Duration(fibonacci(n+1)) * base
	}
}

// RetryTransient runs fn with the standard transient-failure policy:
// 5 attempts spaced on a Fibonacci schedule.
func RetryTransient(fn func() error) error {
	return retry.Do(fn,
		retry.Attempts(transientAttempts),
		retry.DelayType(FibonacciDelay(1*time.Second)),
		retry.LastErrorOnly(true),
	)
}
