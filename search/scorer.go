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
	"sort"

	"github.com/poiesic/coursefinder/core"
)

// scoreChunkSize bounds scoring shards.
const scoreChunkSize = 200

// Scorer asks the oracle for a four-component score per candidate course and
// produces the final ranking.
type Scorer struct {
	d *dispatch
}

// Score returns the per-course score map. Course ids are disjoint across
// shards, so the merge is a plain union. Sub-scores are clamped and totals
// recomputed; the oracle's claimed total is never trusted.
func (s *Scorer) Score(ctx context.Context, query string, attrs core.AttributeSet, candidates []*core.CourseRecord) map[string]core.ScoreRecord {
	shards := chunkBySize(candidates, scoreChunkSize)
	if len(shards) == 0 {
		return nil
	}
	s.d.logger.Info("scoring", "courses", len(candidates), "shards", len(shards))

	results, failed := fanOut(ctx, s.d.pool, s.d.batchSize, s.d.batchDelay, s.d.logger, len(shards),
		func(i int) (map[string]core.ScoreRecord, error) {
			response, err := s.d.oracle.Invoke(ctx, buildScorePrompt(query, attrs, shards[i]), scoreTemperature, noThinkingBudget)
			if err != nil {
				return nil, err
			}
			tuples, err := parseScoreTuples(response, len(shards[i]))
			if err != nil {
				return nil, err
			}
			scores := make(map[string]core.ScoreRecord, len(tuples))
			for _, t := range tuples {
				scores[shards[i][t.Index-1].Identifier()] = t.Score
			}
			return scores, nil
		})

	merged := make(map[string]core.ScoreRecord)
	for _, shardScores := range results {
		for id, score := range shardScores {
			merged[id] = score
		}
	}
	s.d.logger.Info("scoring done", "scored", len(merged), "failedShards", failed)
	return merged
}

// RankByScore stable-sorts courses by total score descending. Unscored
// courses rank as zero, so relative order among them is preserved.
func RankByScore(courses []*core.CourseRecord, scores map[string]core.ScoreRecord) {
	sort.SliceStable(courses, func(a, b int) bool {
		return scores[courses[a].Identifier()].Total > scores[courses[b].Identifier()].Total
	})
}
