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

package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/coursefinder/core"
)

// chunkBySize splits courses into contiguous shards of at most size entries.
// The number of shards is ceil(len(courses)/size) and every course appears in
// exactly one shard.
func chunkBySize(courses []*core.CourseRecord, size int) [][]*core.CourseRecord {
	if size < 1 || len(courses) == 0 {
		return nil
	}
	shards := make([][]*core.CourseRecord, 0, (len(courses)+size-1)/size)
	for start := 0; start < len(courses); start += size {
		end := start + size
		if end > len(courses) {
			end = len(courses)
		}
		shards = append(shards, courses[start:end])
	}
	return shards
}

// chunkEvenly splits courses into at most shardCount contiguous shards of
// roughly equal size.
func chunkEvenly(courses []*core.CourseRecord, shardCount int) [][]*core.CourseRecord {
	if shardCount < 1 || len(courses) == 0 {
		return nil
	}
	size := (len(courses) + shardCount - 1) / shardCount
	return chunkBySize(courses, size)
}

// fanOut runs call for every shard index on the worker pool, launching calls
// in fixed-size batches separated by batchDelay to respect the backend's rate
// limits. Batching paces launches only; earlier calls stay in flight while
// later batches start. A shard's failure yields a zero-value contribution
// without aborting the others. Results are indexed by shard, so merging in
// slice order merges
// by ascending shard index. Returns the results and the failed-shard count.
// Cancelling the context stops further batches from launching; in-flight
// calls settle before fanOut returns.
func fanOut[T any](ctx context.Context, pool *ants.Pool, batchSize int, batchDelay time.Duration, logger *slog.Logger, shards int, call func(shard int) (T, error)) ([]T, int) {
	results := make([]T, shards)
	errs := make([]error, shards)
	var wg sync.WaitGroup

launch:
	for start := 0; start < shards; start += batchSize {
		end := start + batchSize
		if end > shards {
			end = shards
		}
		for i := start; i < end; i++ {
			i := i
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				results[i], errs[i] = call(i)
			}); err != nil {
				wg.Done()
				errs[i] = err
			}
		}
		if end < shards {
			timer := time.NewTimer(batchDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				for i := end; i < shards; i++ {
					errs[i] = ctx.Err()
				}
				break launch
			case <-timer.C:
			}
		}
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			logger.Warn("shard contributed nothing", "shard", i, "err", err)
		}
	}
	return results, failed
}

// dedupeCourses unions shard contributions in slice order, dropping repeated
// course identifiers and preserving first-seen order.
func dedupeCourses(shards [][]*core.CourseRecord) []*core.CourseRecord {
	seen := make(map[string]bool)
	var out []*core.CourseRecord
	for _, shard := range shards {
		for _, course := range shard {
			id := course.Identifier()
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, course)
		}
	}
	return out
}
