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

import "errors"

var (
	// ErrCatalogRequired is returned when a catalog repository is not provided.
	ErrCatalogRequired = errors.New("catalog repository required")

	// ErrOracleRequired is returned when an oracle is not provided.
	ErrOracleRequired = errors.New("oracle required")

	// ErrEmptyQuery is returned when the query contains no usable text.
	ErrEmptyQuery = errors.New("empty query")

	// ErrMalformedResponse indicates a response yielded no parseable indices
	// or tuples. Shard-local; treated as an empty contribution, not an abort.
	ErrMalformedResponse = errors.New("malformed oracle response")

	// ErrAllShardsFailed indicates every shard in a stage failed or parsed
	// empty where a non-empty result was structurally expected.
	ErrAllShardsFailed = errors.New("all shards failed")
)
