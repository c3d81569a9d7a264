// Package search implements the staged course-search pipeline: directive
// preprocessing, oracle-backed attribute extraction, sharded coarse filtering,
// optional precise matching, sharded scoring, and deterministic post-filters,
// glued together by a cancellable orchestrator that degrades to a pure
// keyword search when the oracle path fails.
//
// All oracle fan-out goes through a shared worker pool that launches calls in
// fixed-size batches with an inter-batch delay to respect backend rate
// limits. Shard failures are isolated: one failed shard contributes nothing,
// only a whole stage failing triggers the fail-over path.
package search
