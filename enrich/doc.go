// Package enrich implements the background keyword enricher: it walks the
// course catalog in rate-limited batches, asks the oracle to distill search
// keywords from each course's outline text, and caches the result per course.
// The searcher pauses it for the duration of a search via the cooperative
// pause flag.
package enrich
