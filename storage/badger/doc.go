// Package badger provides BadgerDB-backed implementations of the storage
// repositories: the course catalog, keyed by an insertion-order sequence with
// an identifier index for refresh-in-place, and the keyword-annotation cache
// keyed by course cache key.
package badger
