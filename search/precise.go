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

	"github.com/poiesic/coursefinder/core"
)

// preciseChunkSize bounds precise-matching shards. Smaller than coarse shards
// because each course line carries full detail plus any cached annotation.
const preciseChunkSize = 200

// PreciseMatcher re-checks the coarse survivors against the full attribute
// set with strict time-code containment rules. Precise mode only.
type PreciseMatcher struct {
	d *dispatch
}

// Match returns the deduplicated union of strictly matching courses. If no
// shard yields a match, the coarse survivors are returned unmodified, so the
// stage never produces fewer usable results than the coarse stage.
func (m *PreciseMatcher) Match(ctx context.Context, query string, attrs core.AttributeSet, coarse []*core.CourseRecord) []*core.CourseRecord {
	shards := chunkBySize(coarse, preciseChunkSize)
	if len(shards) == 0 {
		return coarse
	}
	m.d.logger.Info("precise matching", "courses", len(coarse), "shards", len(shards))

	results, failed := fanOut(ctx, m.d.pool, m.d.batchSize, m.d.batchDelay, m.d.logger, len(shards),
		func(i int) ([]*core.CourseRecord, error) {
			response, err := m.d.oracle.Invoke(ctx, buildPrecisePrompt(query, attrs, shards[i]), preciseTemperature, defaultThinkingBudget)
			if err != nil {
				return nil, err
			}
			indices, err := parseIndices(response, len(shards[i]))
			if err != nil {
				return nil, err
			}
			return selectByIndices(shards[i], indices), nil
		})

	matched := dedupeCourses(results)
	if len(matched) == 0 {
		m.d.logger.Warn("precise match empty, keeping coarse survivors", "coarse", len(coarse), "failedShards", failed)
		return coarse
	}
	m.d.logger.Info("precise match done", "matched", len(matched), "failedShards", failed)
	return matched
}
