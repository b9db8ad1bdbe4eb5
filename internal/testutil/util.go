// Licensed to Elasticsearch B.V. under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Elasticsearch B.V. licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// This file contains commonly-used utility functions for testing.

package testutil

import (
	"flag"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/njcx/logqueued/internal/queue/codec"
)

var (
	SeedFlag = flag.Int64("seed", 0, "Randomization seed")
)

// SeedPRNG logs (and returns) a reproducible PRNG seed, defaulting to the
// current time unless -seed was passed on the test command line.
func SeedPRNG(t *testing.T) *rand.Rand {
	seed := *SeedFlag
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	t.Logf("reproduce test with `go test ... -seed %v`", seed)
	return rand.New(rand.NewSource(seed))
}

// GenerateLogEntries builds n codec.LogEntry values with deterministic,
// distinguishable fields, for feeding queue producers in tests.
func GenerateLogEntries(n int) []*codec.LogEntry {
	entries := make([]*codec.LogEntry, n)
	for i := 0; i < n; i++ {
		entries[i] = &codec.LogEntry{
			TimestampUnixNano: int64(i) * int64(time.Millisecond),
			Host:              "test-host",
			Facility:          "local0",
			Severity:          "info",
			Message:           fmt.Sprintf("message %d", i),
		}
	}
	return entries
}
