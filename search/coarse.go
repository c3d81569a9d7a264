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
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/coursefinder/ai"
	"github.com/poiesic/coursefinder/core"
)

// coarseShardCount is how many shards the full catalog is split into. Each
// shard must fit one oracle call together with the coarse prompt.
const coarseShardCount = 30

// dispatch bundles what every sharded stage needs: the oracle, the worker
// pool, and the rate-limit batching policy.
type dispatch struct {
	oracle     ai.Oracle
	pool       *ants.Pool
	batchSize  int
	batchDelay time.Duration
	logger     *slog.Logger
}

// selectByIndices maps 1-based local indices back to shard courses.
func selectByIndices(shard []*core.CourseRecord, indices []int) []*core.CourseRecord {
	out := make([]*core.CourseRecord, 0, len(indices))
	for _, n := range indices {
		out = append(out, shard[n-1])
	}
	return out
}

// CoarseFilter shards the full catalog and asks the oracle, per shard, which
// courses are not completely unrelated to the required attributes.
type CoarseFilter struct {
	d *dispatch
}

// Filter returns the deduplicated union of all shard survivors, merged by
// ascending shard index. A shard's failure yields an empty contribution;
// only every shard failing is an error.
func (f *CoarseFilter) Filter(ctx context.Context, query string, attrs core.AttributeSet, catalog []*core.CourseRecord) ([]*core.CourseRecord, error) {
	shards := chunkEvenly(catalog, coarseShardCount)
	if len(shards) == 0 {
		return nil, nil
	}
	f.d.logger.Info("coarse filtering", "courses", len(catalog), "shards", len(shards))

	results, failed := fanOut(ctx, f.d.pool, f.d.batchSize, f.d.batchDelay, f.d.logger, len(shards),
		func(i int) ([]*core.CourseRecord, error) {
			response, err := f.d.oracle.Invoke(ctx, buildCoarsePrompt(query, attrs, shards[i]), coarseTemperature, noThinkingBudget)
			if err != nil {
				return nil, err
			}
			indices, err := parseIndices(response, len(shards[i]))
			if err != nil {
				return nil, err
			}
			return selectByIndices(shards[i], indices), nil
		})

	if failed == len(shards) {
		return nil, ErrAllShardsFailed
	}

	survivors := dedupeCourses(results)
	f.d.logger.Info("coarse filter done", "survivors", len(survivors), "failedShards", failed)
	return survivors, nil
}
