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
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/coursefinder/ai"
	"github.com/poiesic/coursefinder/core"
	"github.com/poiesic/coursefinder/storage"
)

const (
	defaultBatchSize  = 5
	defaultBatchDelay = time.Second

	// maxInFlightCalls sizes the worker pool. The batch policy paces how fast
	// new oracle calls launch; earlier calls stay in flight across batches, so
	// the pool must hold a whole stage's fan-out, not one batch.
	maxInFlightCalls = 64
)

// Pauser is the cooperative pause flag of the background annotation enricher.
// The searcher pauses it before a search and resumes it afterwards so the two
// never contend for the rate-limited backend.
type Pauser interface {
	Pause()
	Resume()
}

// Searcher runs the staged oracle-orchestrated pipeline over the catalog and
// degrades to the deterministic keyword search when a stage fails outright.
type Searcher struct {
	catalog     storage.CatalogRepository
	annotations storage.AnnotationRepository
	oracle      ai.Oracle
	enricher    Pauser
	pool        *ants.Pool
	batchSize   int
	batchDelay  time.Duration
	logger      *slog.Logger

	extractor *AttributeExtractor
	coarse    *CoarseFilter
	precise   *PreciseMatcher
	scorer    *Scorer
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithAnnotations sets the keyword-annotation cache read during precise
// matching and scoring. Without it courses carry no annotations.
func WithAnnotations(repo storage.AnnotationRepository) Option {
	return func(s *Searcher) error {
		s.annotations = repo
		return nil
	}
}

// WithEnricher registers the background enricher to pause during searches.
func WithEnricher(p Pauser) Option {
	return func(s *Searcher) error {
		s.enricher = p
		return nil
	}
}

// WithBatchPolicy sets the rate-limit fan-out policy: how many oracle calls
// launch at once and the delay between batches.
// Default is 5 calls per batch, 1 second apart.
func WithBatchPolicy(batchSize int, batchDelay time.Duration) Option {
	return func(s *Searcher) error {
		if batchSize < 1 {
			batchSize = 1
		}
		s.batchSize = batchSize
		s.batchDelay = batchDelay
		return nil
	}
}

// NewSearcher creates a searcher over the given catalog and oracle.
func NewSearcher(catalog storage.CatalogRepository, oracle ai.Oracle, opts ...Option) (*Searcher, error) {
	if catalog == nil {
		return nil, ErrCatalogRequired
	}
	if oracle == nil {
		return nil, ErrOracleRequired
	}

	s := &Searcher{
		catalog:    catalog,
		oracle:     oracle,
		batchSize:  defaultBatchSize,
		batchDelay: defaultBatchDelay,
		logger:     slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	poolSize := maxInFlightCalls
	if s.batchSize > poolSize {
		poolSize = s.batchSize
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	s.pool = pool

	d := &dispatch{
		oracle:     s.oracle,
		pool:       s.pool,
		batchSize:  s.batchSize,
		batchDelay: s.batchDelay,
		logger:     s.logger,
	}
	extractor, err := NewAttributeExtractor(s.oracle)
	if err != nil {
		pool.Release()
		return nil, err
	}
	s.extractor = extractor
	s.coarse = &CoarseFilter{d: d}
	s.precise = &PreciseMatcher{d: d}
	s.scorer = &Scorer{d: d}

	return s, nil
}

// Close releases the worker pool.
func (s *Searcher) Close() error {
	s.pool.Release()
	return nil
}

// Search runs the full pipeline for one session. The occupied argument is the
// user's personal-timetable occupancy, consumed by the free-time directive.
func (s *Searcher) Search(ctx context.Context, session *core.Session, query string, occupied []string) (*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, session, query, occupied, nil)
}

// SearchWithMonitor runs the full pipeline with stage callbacks. Cancellation
// is polled between stages only: a cancelled search returns an empty result
// and leaves in-flight oracle calls to settle and be discarded. Any stage
// failure that is not shard-local degrades to the legacy keyword search.
func (s *Searcher) SearchWithMonitor(ctx context.Context, session *core.Session, query string, occupied []string, monitor SearchMonitor) (*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	if s.enricher != nil {
		s.enricher.Pause()
		defer s.enricher.Resume()
	}

	monitor.Start(query, session.Mode)

	// Preprocessing
	session.SetStage(core.StagePreprocessing)
	rewritten, instructions := Preprocess(query, occupied)
	monitor.AfterPreprocess(rewritten, instructions)

	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if len(catalog) == 0 {
		return s.finish(session, monitor, nil, nil, core.StageDone), nil
	}

	// Extracting
	if s.cancelled(session) {
		return s.finish(session, monitor, nil, nil, core.StageCancelled), nil
	}
	session.SetStage(core.StageExtracting)
	attrs, err := s.extractor.Extract(ctx, rewritten, instructions)
	if err != nil {
		return s.failOver(session, monitor, catalog, query, err), nil
	}
	monitor.AfterExtraction(attrs)

	// Coarse filtering
	if s.cancelled(session) {
		return s.finish(session, monitor, nil, nil, core.StageCancelled), nil
	}
	session.SetStage(core.StageCoarseFiltering)
	candidates, err := s.coarse.Filter(ctx, rewritten, attrs, catalog)
	if err != nil {
		return s.failOver(session, monitor, catalog, query, err), nil
	}
	monitor.AfterCoarseFilter(candidates)

	// Precise matching
	if session.Mode == core.SearchModePrecise {
		if s.cancelled(session) {
			return s.finish(session, monitor, nil, nil, core.StageCancelled), nil
		}
		session.SetStage(core.StagePreciseMatching)
		candidates = s.precise.Match(ctx, rewritten, attrs, candidates)
		monitor.AfterPreciseMatch(candidates)
	}

	// Scoring
	if s.cancelled(session) {
		return s.finish(session, monitor, nil, nil, core.StageCancelled), nil
	}
	session.SetStage(core.StageScoring)
	scores := s.scorer.Score(ctx, rewritten, attrs, candidates)
	RankByScore(candidates, scores)
	monitor.AfterScoring(scores)

	// Post-filtering
	if s.cancelled(session) {
		return s.finish(session, monitor, nil, nil, core.StageCancelled), nil
	}
	session.SetStage(core.StagePostFiltering)
	candidates = ApplyInstructions(candidates, instructions)
	monitor.AfterPostFilter(candidates)

	return s.finish(session, monitor, candidates, scores, core.StageDone), nil
}

// loadCatalog reads every course and attaches cached annotations.
func (s *Searcher) loadCatalog(ctx context.Context) ([]*core.CourseRecord, error) {
	catalog, err := s.catalog.AllCourses(ctx)
	if err != nil {
		s.logger.Error("error loading catalog", "err", err)
		return nil, err
	}
	if s.annotations == nil {
		return catalog, nil
	}
	for _, c := range catalog {
		keywords, err := s.annotations.Get(ctx, c.CacheKey())
		if err != nil {
			if !errors.Is(err, storage.ErrAnnotationNotFound) {
				s.logger.Warn("error reading annotation", "course", c.Identifier(), "err", err)
			}
			continue
		}
		c.Annotation = keywords
	}
	return catalog, nil
}

func (s *Searcher) cancelled(session *core.Session) bool {
	return session.Cancelled()
}

func (s *Searcher) finish(session *core.Session, monitor SearchMonitor, courses []*core.CourseRecord, scores map[string]core.ScoreRecord, stage core.Stage) *core.SearchResult {
	session.SetStage(stage)
	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.Identifier()
	}
	result := &core.SearchResult{
		CourseIDs: ids,
		Scores:    scores,
		Stage:     stage,
		Elapsed:   session.Elapsed(),
	}
	monitor.Finish(result)
	s.logger.Info("search finished", "stage", stage.String(), "results", len(ids), "elapsed", result.Elapsed)
	return result
}

// failOver degrades to the deterministic keyword search over the raw query.
// The legacy path produces no scores.
func (s *Searcher) failOver(session *core.Session, monitor SearchMonitor, catalog []*core.CourseRecord, query string, cause error) *core.SearchResult {
	s.logger.Warn("pipeline failed, falling over to keyword search", "stage", session.Stage().String(), "err", cause)
	monitor.FailedOver(cause)
	return s.finish(session, monitor, LegacySearch(catalog, query), nil, core.StageFailedOver)
}
