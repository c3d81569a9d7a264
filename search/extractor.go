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
	"strings"

	"github.com/poiesic/coursefinder/ai"
	"github.com/poiesic/coursefinder/core"
)

// AttributeExtractor decomposes a preprocessed query into the fixed
// 14-attribute schema via two sequential oracle calls: decompose, then clean.
type AttributeExtractor struct {
	oracle ai.Oracle
	logger *slog.Logger
}

// NewAttributeExtractor creates an extractor backed by the given oracle.
func NewAttributeExtractor(oracle ai.Oracle) (*AttributeExtractor, error) {
	if oracle == nil {
		return nil, ErrOracleRequired
	}
	return &AttributeExtractor{
		oracle: oracle,
		logger: slog.Default().With("component", "attribute-extractor"),
	}, nil
}

// Extract runs the decompose and clean calls and returns a normalized
// attribute set. A decompose parse failure falls back to heuristic substring
// extraction; a clean failure of any kind keeps the unclean set. Only an
// unreachable backend on the decompose call is a stage failure.
func (e *AttributeExtractor) Extract(ctx context.Context, query string, instructions *core.Instructions) (core.AttributeSet, error) {
	response, err := e.oracle.Invoke(ctx, buildDecomposePrompt(query, instructions), decomposeTemperature, noThinkingBudget)
	if err != nil {
		return nil, err
	}

	attrs, _, perr := parseAttributeSet(response)
	if perr != nil {
		e.logger.Warn("decompose response unparseable, using heuristic fallback", "err", perr)
		attrs = heuristicAttributeSet(query)
	}
	attrs = coerceDeptNameOptional(attrs)

	cleaned, err := e.clean(ctx, query, attrs)
	if err != nil {
		e.logger.Warn("clean step failed, keeping unfiltered attributes", "err", err)
		return attrs, nil
	}
	return coerceDeptNameOptional(cleaned), nil
}

// clean asks the oracle to drop noise keywords while preserving necessity
// tags and group structure. Attributes absent from the response keep their
// unclean value.
func (e *AttributeExtractor) clean(ctx context.Context, query string, attrs core.AttributeSet) (core.AttributeSet, error) {
	response, err := e.oracle.Invoke(ctx, buildCleanPrompt(query, attrs), cleanTemperature, noThinkingBudget)
	if err != nil {
		return nil, err
	}

	cleaned, present, perr := parseAttributeSet(response)
	if perr != nil {
		return nil, perr
	}

	merged := core.NewAttributeSet()
	for _, name := range core.AttributeNames {
		if present[name] {
			merged[name] = cleaned[name]
		} else {
			merged[name] = attrs[name]
		}
	}
	return merged, nil
}

// deptName is a ranking signal, never a hard filter.
func coerceDeptNameOptional(attrs core.AttributeSet) core.AttributeSet {
	if attr, ok := attrs["deptName"]; ok && attr.Necessity == core.NecessityRequired {
		attr.Necessity = core.NecessityOptional
		attrs["deptName"] = attr
	}
	return attrs
}

var weekdayNames = []struct {
	letter string
	names  []string
}{
	{"M", []string{"星期一", "週一", "禮拜一"}},
	{"T", []string{"星期二", "週二", "禮拜二"}},
	{"W", []string{"星期三", "週三", "禮拜三"}},
	{"R", []string{"星期四", "週四", "禮拜四"}},
	{"F", []string{"星期五", "週五", "禮拜五"}},
}

// heuristicAttributeSet populates time and paths from literal substring
// checks when the oracle's decomposition cannot be parsed at all.
func heuristicAttributeSet(query string) core.AttributeSet {
	attrs := core.NewAttributeSet()

	var timeGroup []string
	for _, day := range weekdayNames {
		for _, name := range day.names {
			if strings.Contains(query, name) {
				timeGroup = append([]string{day.letter}, day.names...)
				break
			}
		}
		if timeGroup != nil {
			break
		}
	}

	appendPeriods := func(codes ...string) {
		if timeGroup != nil {
			day := timeGroup[0]
			for _, code := range codes {
				timeGroup = append(timeGroup, day+code)
			}
		}
		timeGroup = append(timeGroup, codes...)
	}
	switch {
	case strings.Contains(query, "上午"):
		appendPeriods("1234n")
		timeGroup = append(timeGroup, "上午")
	case strings.Contains(query, "下午"):
		appendPeriods("56789")
		timeGroup = append(timeGroup, "下午")
	case strings.Contains(query, "晚上"):
		appendPeriods("abc")
		timeGroup = append(timeGroup, "晚上")
	}
	if timeGroup != nil {
		attrs["time"] = core.Attribute{
			Necessity: core.NecessityRequired,
			Groups:    [][]string{timeGroup},
		}
	}

	if strings.Contains(query, "資工") {
		attrs["paths"] = core.Attribute{
			Necessity: core.NecessityRequired,
			Groups:    [][]string{{"資訊學院", "資工", "DCP", "CS", "資訊工程學系", "CSIE"}},
		}
	}

	return attrs
}
