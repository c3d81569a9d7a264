// Package storage defines the persistence boundaries of the course finder:
// the catalog repository written by ingestion and read during searches, and
// the per-course annotation cache shared between the background enricher and
// the pipeline's prompt construction. Concrete implementations live in
// storage/badger.
package storage
