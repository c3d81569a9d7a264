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
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/poiesic/coursefinder/core"
)

var (
	indexPattern      = regexp.MustCompile(`\d+`)
	scoreTuplePattern = regexp.MustCompile(`(\d+)\s*:\s*(\d+)\s*:\s*(\d+)\s*:\s*(\d+)\s*:\s*(\d+)\s*:\s*(\d+)`)
)

// noneSentinelPattern marks an explicit empty selection, distinguishing "no
// course matched" from a parse failure. Anchored at the start of the trimmed
// response: a refusal that merely mentions 無 mid-sentence is malformed.
var noneSentinelPattern = regexp.MustCompile(`(?i)^(無|沒有|找不到|not found|none)`)

// extractJSONObject returns the first well-formed-looking object substring of
// the response: from the first opening brace to the last closing brace.
// Markdown code fences are stripped first.
func extractJSONObject(text string) (string, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// parseIndices extracts 1-based local indices from a free-text shard
// response. Out-of-range numbers are dropped. A response carrying an explicit
// none sentinel and no digits is a valid empty selection; a response with
// neither digits nor sentinel is malformed.
func parseIndices(response string, max int) ([]int, error) {
	matches := indexPattern.FindAllString(response, -1)
	if len(matches) == 0 {
		if noneSentinelPattern.MatchString(strings.TrimSpace(response)) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: no indices in %q", ErrMalformedResponse, truncate(response, 80))
	}

	indices := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m)
		if err != nil || n < 1 || n > max {
			continue
		}
		indices = append(indices, n)
	}
	return indices, nil
}

// scoredIndex is one parsed score line, local to a shard.
type scoredIndex struct {
	Index int
	Score core.ScoreRecord
}

// parseScoreTuples extracts all index:total:quality:time:path:bonus tuples
// from a shard response. The claimed total is discarded; sub-scores are
// clamped and the total recomputed. Out-of-range indices are dropped.
func parseScoreTuples(response string, max int) ([]scoredIndex, error) {
	matches := scoreTuplePattern.FindAllStringSubmatch(response, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no score tuples in %q", ErrMalformedResponse, truncate(response, 80))
	}

	out := make([]scoredIndex, 0, len(matches))
	for _, m := range matches {
		idx, _ := strconv.Atoi(m[1])
		if idx < 1 || idx > max {
			continue
		}
		quality, _ := strconv.Atoi(m[3])
		timeScore, _ := strconv.Atoi(m[4])
		path, _ := strconv.Atoi(m[5])
		bonus, _ := strconv.Atoi(m[6])
		out = append(out, scoredIndex{
			Index: idx,
			Score: core.NewScoreRecord(quality, timeScore, path, bonus),
		})
	}
	return out, nil
}

// attributeAliases maps attribute spellings the oracle sometimes emits back
// to the canonical schema names.
var attributeAliases = map[string]string{
	"cos_id":   "courseId",
	"acy":      "year",
	"sem":      "term",
	"cos_type": "courseType",
	"dep_id":   "deptId",
	"dep_name": "deptName",
}

// parseAttributeSet decodes the oracle's attribute decomposition: an object
// mapping attribute names to [necessity, keywordGroups] pairs. A flat keyword
// list is tolerated and coerced into a single group. Returns the normalized
// set plus which schema attributes the response actually carried, so callers
// can merge partial responses.
func parseAttributeSet(response string) (core.AttributeSet, map[string]bool, error) {
	obj, ok := extractJSONObject(response)
	if !ok {
		return nil, nil, fmt.Errorf("%w: no object in %q", ErrMalformedResponse, truncate(response, 80))
	}

	var raw map[string][]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	set := core.NewAttributeSet()
	present := make(map[string]bool, len(raw))
	for name, pair := range raw {
		if canonical, ok := attributeAliases[name]; ok {
			name = canonical
		}
		if _, known := set[name]; !known {
			continue
		}
		if len(pair) < 2 {
			continue
		}

		var necessity string
		if err := json.Unmarshal(pair[0], &necessity); err != nil {
			continue
		}
		groups, ok := decodeGroups(pair[1])
		if !ok {
			continue
		}
		set[name] = core.Attribute{
			Necessity: core.Necessity(necessity),
			Groups:    groups,
		}
		present[name] = true
	}

	return core.NormalizeAttributeSet(set), present, nil
}

// decodeGroups accepts the canonical two-dimensional keyword array, or a flat
// one-dimensional list coerced into a single OR group.
func decodeGroups(raw json.RawMessage) ([][]string, bool) {
	var groups [][]string
	if err := json.Unmarshal(raw, &groups); err == nil {
		return groups, true
	}
	var flat []string
	if err := json.Unmarshal(raw, &flat); err == nil {
		if len(flat) == 0 {
			return nil, true
		}
		return [][]string{flat}, true
	}
	return nil, false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
