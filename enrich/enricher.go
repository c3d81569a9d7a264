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

package enrich

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/coursefinder/ai"
	"github.com/poiesic/coursefinder/core"
	"github.com/poiesic/coursefinder/storage"
)

const (
	defaultBatchSize  = 20
	defaultBatchDelay = time.Second

	// pausePollInterval is how often a paused run re-checks the flag.
	pausePollInterval = 100 * time.Millisecond

	keywordTemperature = 0.3
	maxRetries         = 2
	retryBaseDelay     = time.Second
)

// Stats summarizes one enrichment run.
type Stats struct {
	Processed int // courses examined this run
	Annotated int // keywords extracted and cached
	Fallback  int // oracle failed, memo text cached instead
	Skipped   int // already cached, or nothing to extract from
	Failed    int // nothing could be cached
}

// Enricher walks the catalog in the background and caches oracle-extracted
// search keywords per course. It runs in rate-limited batches and honors a
// cooperative pause flag that the searcher toggles around each search.
type Enricher struct {
	catalog     storage.CatalogRepository
	annotations storage.AnnotationRepository
	oracle      ai.Oracle
	pool        *ants.Pool
	batchSize   int
	batchDelay  time.Duration
	retryDelay  time.Duration
	logger      *slog.Logger

	paused  atomic.Bool
	running atomic.Bool
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enricher) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithBatchPolicy sets the batch size and inter-batch delay.
// Default is 20 courses per batch, 1 second apart.
func WithBatchPolicy(batchSize int, batchDelay time.Duration) Option {
	return func(e *Enricher) {
		if batchSize >= 1 {
			e.batchSize = batchSize
		}
		e.batchDelay = batchDelay
	}
}

// NewEnricher creates an enricher over the given repositories and oracle.
func NewEnricher(catalog storage.CatalogRepository, annotations storage.AnnotationRepository, oracle ai.Oracle, opts ...Option) (*Enricher, error) {
	if catalog == nil {
		return nil, ErrCatalogRequired
	}
	if annotations == nil {
		return nil, ErrAnnotationsRequired
	}
	if oracle == nil {
		return nil, ErrOracleRequired
	}

	e := &Enricher{
		catalog:     catalog,
		annotations: annotations,
		oracle:      oracle,
		batchSize:   defaultBatchSize,
		batchDelay:  defaultBatchDelay,
		retryDelay:  retryBaseDelay,
		logger:      slog.Default().With("component", "enricher"),
	}
	for _, opt := range opts {
		opt(e)
	}

	pool, err := ants.NewPool(e.batchSize)
	if err != nil {
		return nil, err
	}
	e.pool = pool
	return e, nil
}

// Close releases the worker pool.
func (e *Enricher) Close() error {
	e.pool.Release()
	return nil
}

// Pause suspends the run after the current batch. Safe from any goroutine.
func (e *Enricher) Pause() {
	e.paused.Store(true)
}

// Resume lets a paused run continue.
func (e *Enricher) Resume() {
	e.paused.Store(false)
}

// Paused reports whether the pause flag is set.
func (e *Enricher) Paused() bool {
	return e.paused.Load()
}

// Run walks the whole catalog once, extracting and caching keywords for every
// course that has none yet. Only one run may be active at a time. The pause
// flag is polled between batches; cancelling the context stops the run after
// the current batch.
func (e *Enricher) Run(ctx context.Context) (Stats, error) {
	if !e.running.CompareAndSwap(false, true) {
		return Stats{}, ErrAlreadyRunning
	}
	defer e.running.Store(false)

	courses, err := e.catalog.AllCourses(ctx)
	if err != nil {
		return Stats{}, err
	}

	pending, skipped := e.pendingCourses(ctx, courses)
	stats := Stats{Skipped: skipped}
	if len(pending) == 0 {
		return stats, nil
	}
	e.logger.Info("enrichment run starting",
		"catalog", len(courses), "pending", len(pending), "cached", skipped)

	var mu sync.Mutex
	for start := 0; start < len(pending); start += e.batchSize {
		if err := e.waitWhilePaused(ctx); err != nil {
			return stats, err
		}

		end := start + e.batchSize
		if end > len(pending) {
			end = len(pending)
		}

		var wg sync.WaitGroup
		for _, course := range pending[start:end] {
			course := course
			wg.Add(1)
			if err := e.pool.Submit(func() {
				defer wg.Done()
				outcome := e.enrichCourse(ctx, course)
				mu.Lock()
				stats.Processed++
				switch outcome {
				case outcomeAnnotated:
					stats.Annotated++
				case outcomeFallback:
					stats.Fallback++
				case outcomeSkipped:
					stats.Skipped++
				default:
					stats.Failed++
				}
				mu.Unlock()
			}); err != nil {
				wg.Done()
				mu.Lock()
				stats.Processed++
				stats.Failed++
				mu.Unlock()
			}
		}
		wg.Wait()

		if end < len(pending) {
			select {
			case <-ctx.Done():
				return stats, ctx.Err()
			case <-time.After(e.batchDelay):
			}
		}
	}

	e.logger.Info("enrichment run finished",
		"annotated", stats.Annotated, "fallback", stats.Fallback,
		"skipped", stats.Skipped, "failed", stats.Failed)
	return stats, nil
}

// pendingCourses filters out courses that already carry a cached annotation.
func (e *Enricher) pendingCourses(ctx context.Context, courses []*core.CourseRecord) ([]*core.CourseRecord, int) {
	pending := make([]*core.CourseRecord, 0, len(courses))
	cached := 0
	for _, c := range courses {
		if _, err := e.annotations.Get(ctx, c.CacheKey()); err == nil {
			cached++
			continue
		}
		pending = append(pending, c)
	}
	return pending, cached
}

func (e *Enricher) waitWhilePaused(ctx context.Context) error {
	for e.paused.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pausePollInterval):
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeAnnotated
	outcomeFallback
	outcomeSkipped
)

// enrichCourse extracts keywords for one course and caches them. When the
// oracle cannot be reached the course memo is cached as-is, so the legacy
// search still gains a searchable annotation.
func (e *Enricher) enrichCourse(ctx context.Context, course *core.CourseRecord) outcome {
	outline := outlineText(course)
	if outline == "" {
		return outcomeSkipped
	}

	var keywords string
	operation := func() error {
		response, err := e.oracle.Invoke(ctx, buildKeywordPrompt(course.Name, outline), keywordTemperature, 0)
		if err != nil {
			return err
		}
		keywords = strings.TrimSpace(strings.ReplaceAll(response, "\n", " "))
		if keywords == "" {
			return ErrEmptyKeywords
		}
		return nil
	}
	err := ai.RetryWithBackoff(ctx, operation, nil, maxRetries, e.retryDelay)
	if err != nil {
		e.logger.Warn("keyword extraction failed", "course", course.Identifier(), "err", err)
		if course.Memo == "" {
			return outcomeFailed
		}
		keywords = course.Memo
	}

	if perr := e.annotations.Put(ctx, course.CacheKey(), keywords); perr != nil {
		e.logger.Warn("error caching annotation", "course", course.Identifier(), "err", perr)
		return outcomeFailed
	}
	if err != nil {
		return outcomeFallback
	}
	return outcomeAnnotated
}

// outlineText assembles the course text the keyword prompt works from.
func outlineText(course *core.CourseRecord) string {
	var parts []string
	if course.Memo != "" {
		parts = append(parts, "備註："+course.Memo)
	}
	if t := course.PathsText(); t != "" {
		parts = append(parts, "選課路徑："+t)
	}
	return strings.Join(parts, "\n\n")
}
