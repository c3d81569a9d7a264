package core

import (
	"sync/atomic"
	"time"
)

// Stage identifies where in the pipeline a search currently is.
type Stage int32

const (
	StagePreprocessing Stage = iota
	StageExtracting
	StageCoarseFiltering
	StagePreciseMatching
	StageScoring
	StagePostFiltering
	StageDone
	// StageCancelled and StageFailedOver are absorbing terminal states.
	StageCancelled
	StageFailedOver
)

var stageNames = map[Stage]string{
	StagePreprocessing:   "preprocessing",
	StageExtracting:      "extracting",
	StageCoarseFiltering: "coarse-filtering",
	StagePreciseMatching: "precise-matching",
	StageScoring:         "scoring",
	StagePostFiltering:   "post-filtering",
	StageDone:            "done",
	StageCancelled:       "cancelled",
	StageFailedOver:      "failed-over",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// Session is the ephemeral state of one search invocation. The cancellation
// flag may be flipped by any goroutine at any time; the pipeline polls it
// between stages only, so a cancelled search may still finish the stage it is
// currently in.
type Session struct {
	Mode      SearchMode
	cancelled atomic.Bool
	stage     atomic.Int32
	started   time.Time
}

// NewSession creates a session for one search invocation.
func NewSession(mode SearchMode) *Session {
	s := &Session{Mode: mode, started: time.Now()}
	s.stage.Store(int32(StagePreprocessing))
	return s
}

// Cancel requests a cooperative stop. Safe to call from any goroutine.
func (s *Session) Cancel() {
	s.cancelled.Store(true)
}

// Cancelled reports whether a stop has been requested.
func (s *Session) Cancelled() bool {
	return s.cancelled.Load()
}

// SetStage records the pipeline stage the session entered.
func (s *Session) SetStage(stage Stage) {
	s.stage.Store(int32(stage))
}

// Stage returns the stage the session most recently entered.
func (s *Session) Stage() Stage {
	return Stage(s.stage.Load())
}

// Elapsed returns the wall-clock time since the session was created.
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.started)
}
