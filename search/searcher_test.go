package search

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/coursefinder/ai/mock"
	"github.com/poiesic/coursefinder/core"
	"github.com/poiesic/coursefinder/storage"
	badgerstore "github.com/poiesic/coursefinder/storage/badger"
)

var testCatalog = []*core.CourseRecord{
	{CourseID: "5001", Code: "AMMA10001", Name: "微積分", Teacher: "張三", Time: "M12", Credits: 4, Type: "必修", DeptName: "應用數學系"},
	{CourseID: "5002", Code: "CSCS10021", Name: "資料結構", Teacher: "王小明", Time: "T34", Credits: 3, Type: "必修", DeptName: "資訊工程學系"},
	{CourseID: "5003", Code: "PE001", Name: "體育", Teacher: "李四", Time: "F56", Credits: 1, Type: "必修"},
}

// routingOracle answers each pipeline stage by its prompt preamble.
func routingOracle(coarse func(prompt string) (string, error)) *mock.MockOracle {
	oracle := mock.NewMockOracle()
	oracle.InvokeFunc = func(_ context.Context, prompt string, _ float64, _ int) (string, error) {
		switch {
		case strings.HasPrefix(prompt, "將用戶查詢拆分成"),
			strings.HasPrefix(prompt, "過濾關鍵字集合"):
			return `{"name": ["required", [["資料結構"]]]}`, nil
		case strings.HasPrefix(prompt, "快速粗篩課程"):
			return coarse(prompt)
		case strings.HasPrefix(prompt, "精準匹配課程"):
			return "1", nil
		case strings.HasPrefix(prompt, "為課程評分"):
			return "1:100:30:30:20:20", nil
		default:
			return "", nil
		}
	}
	return oracle
}

// keepDataStructures is a coarse stub keeping only the 資料結構 shard.
func keepDataStructures(prompt string) (string, error) {
	if strings.Contains(prompt, "1. 資料結構") {
		return "1", nil
	}
	return "無", nil
}

func newTestSearcher(t *testing.T, oracle *mock.MockOracle, courses []*core.CourseRecord, opts ...Option) (*Searcher, storage.AnnotationRepository) {
	t.Helper()
	catalog, annotations, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		catalog.Close()
		backend.Close()
	})
	if len(courses) > 0 {
		require.NoError(t, catalog.PutCourses(context.Background(), courses))
	}

	opts = append([]Option{
		WithAnnotations(annotations),
		WithBatchPolicy(5, time.Millisecond),
	}, opts...)
	searcher, err := NewSearcher(catalog, oracle, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { searcher.Close() })
	return searcher, annotations
}

func TestNewSearcher(t *testing.T) {
	t.Run("requires a catalog", func(t *testing.T) {
		_, err := NewSearcher(nil, mock.NewMockOracle())
		assert.ErrorIs(t, err, ErrCatalogRequired)
	})

	t.Run("requires an oracle", func(t *testing.T) {
		catalog, _, backend, err := badgerstore.NewMemoryRepositories()
		require.NoError(t, err)
		defer backend.Close()
		defer catalog.Close()

		_, err = NewSearcher(catalog, nil)
		assert.ErrorIs(t, err, ErrOracleRequired)
	})

	t.Run("worker pool holds a whole stage, not one batch", func(t *testing.T) {
		catalog, _, backend, err := badgerstore.NewMemoryRepositories()
		require.NoError(t, err)
		defer backend.Close()
		defer catalog.Close()

		s, err := NewSearcher(catalog, mock.NewMockOracle())
		require.NoError(t, err)
		defer s.Close()

		assert.Equal(t, maxInFlightCalls, s.pool.Cap())
		assert.Greater(t, s.pool.Cap(), s.batchSize)
	})
}

func TestSearcherPipeline(t *testing.T) {
	t.Run("loose mode returns the scored survivor", func(t *testing.T) {
		oracle := routingOracle(keepDataStructures)
		searcher, _ := newTestSearcher(t, oracle, testCatalog)

		session := core.NewSession(core.SearchModeLoose)
		result, err := searcher.Search(context.Background(), session, "我想修資料結構", nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"5002"}, result.CourseIDs)
		assert.Equal(t, 100, result.Scores["5002"].Total)
		assert.Equal(t, core.StageDone, result.Stage)
		assert.Equal(t, core.StageDone, session.Stage())

		// Loose mode never issues precise-matching prompts.
		for _, call := range oracle.Invocations() {
			assert.False(t, strings.HasPrefix(call.Prompt, "精準匹配課程"))
		}
	})

	t.Run("precise mode runs the strict stage with a lifted budget", func(t *testing.T) {
		oracle := routingOracle(keepDataStructures)
		searcher, _ := newTestSearcher(t, oracle, testCatalog)

		session := core.NewSession(core.SearchModePrecise)
		result, err := searcher.Search(context.Background(), session, "我想修資料結構", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"5002"}, result.CourseIDs)

		var preciseCalls []mock.Invocation
		for _, call := range oracle.Invocations() {
			if strings.HasPrefix(call.Prompt, "精準匹配課程") {
				preciseCalls = append(preciseCalls, call)
			}
		}
		require.NotEmpty(t, preciseCalls)
		assert.Equal(t, -1, preciseCalls[0].ReasoningBudget)
	})

	t.Run("cached annotations reach the scoring prompts", func(t *testing.T) {
		oracle := routingOracle(keepDataStructures)
		searcher, annotations := newTestSearcher(t, oracle, testCatalog)

		key := testCatalog[1].CacheKey()
		require.NoError(t, annotations.Put(context.Background(), key, "樹狀結構, 雜湊表"))

		session := core.NewSession(core.SearchModeLoose)
		_, err := searcher.Search(context.Background(), session, "我想修資料結構", nil)
		require.NoError(t, err)

		found := false
		for _, call := range oracle.Invocations() {
			if strings.HasPrefix(call.Prompt, "為課程評分") && strings.Contains(call.Prompt, "關鍵字:樹狀結構, 雜湊表") {
				found = true
			}
		}
		assert.True(t, found, "scoring prompt should carry the cached annotation")
	})

	t.Run("post filters apply after ranking", func(t *testing.T) {
		oracle := routingOracle(func(string) (string, error) { return "1", nil })
		searcher, _ := newTestSearcher(t, oracle, testCatalog)

		// All three survive coarse and scoring; the exclude directive drops
		// the 資料結構 course afterwards.
		session := core.NewSession(core.SearchModeLoose)
		result, err := searcher.Search(context.Background(), session, "{除了}王小明{必修}", nil)
		require.NoError(t, err)

		assert.NotContains(t, result.CourseIDs, "5002")
		assert.Len(t, result.CourseIDs, 2)
	})

	t.Run("empty query is rejected", func(t *testing.T) {
		searcher, _ := newTestSearcher(t, mock.NewMockOracle(), testCatalog)

		session := core.NewSession(core.SearchModeLoose)
		_, err := searcher.Search(context.Background(), session, "   ", nil)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("empty catalog finishes without oracle calls", func(t *testing.T) {
		oracle := mock.NewMockOracle()
		searcher, _ := newTestSearcher(t, oracle, nil)

		session := core.NewSession(core.SearchModeLoose)
		result, err := searcher.Search(context.Background(), session, "資料結構", nil)
		require.NoError(t, err)

		assert.Empty(t, result.CourseIDs)
		assert.Equal(t, core.StageDone, result.Stage)
		assert.Zero(t, oracle.CallCount())
	})
}

func TestSearcherFailover(t *testing.T) {
	t.Run("all coarse shards failing degrades to keyword search", func(t *testing.T) {
		oracle := routingOracle(func(string) (string, error) { return "完全無法判斷", nil })
		searcher, _ := newTestSearcher(t, oracle, testCatalog)

		monitor := &recordingMonitor{}
		session := core.NewSession(core.SearchModeLoose)
		result, err := searcher.SearchWithMonitor(context.Background(), session, "資料結構", nil, monitor)
		require.NoError(t, err)

		assert.Equal(t, []string{"5002"}, result.CourseIDs)
		assert.Nil(t, result.Scores)
		assert.Equal(t, core.StageFailedOver, result.Stage)
		assert.Error(t, monitor.failedOver)
	})

	t.Run("extraction failure degrades with the raw query", func(t *testing.T) {
		oracle := mock.NewMockOracle()
		oracle.InvokeFunc = func(_ context.Context, _ string, _ float64, _ int) (string, error) {
			return "", context.DeadlineExceeded
		}
		searcher, _ := newTestSearcher(t, oracle, testCatalog)

		session := core.NewSession(core.SearchModeLoose)
		result, err := searcher.Search(context.Background(), session, "{除了}體育 微積分", nil)
		require.NoError(t, err)

		// The legacy search sees the raw query, braces and all; its
		// tokenizer treats the directive text as keywords.
		assert.Equal(t, core.StageFailedOver, result.Stage)
		assert.Contains(t, result.CourseIDs, "5001")
	})
}

func TestSearcherCancellation(t *testing.T) {
	t.Run("cancel between stages returns an empty result", func(t *testing.T) {
		oracle := routingOracle(keepDataStructures)
		searcher, _ := newTestSearcher(t, oracle, testCatalog)

		session := core.NewSession(core.SearchModeLoose)
		monitor := &recordingMonitor{afterCoarse: session.Cancel}
		result, err := searcher.SearchWithMonitor(context.Background(), session, "資料結構", nil, monitor)
		require.NoError(t, err)

		assert.Empty(t, result.CourseIDs)
		assert.Equal(t, core.StageCancelled, result.Stage)
		assert.Equal(t, core.StageCancelled, session.Stage())

		for _, call := range oracle.Invocations() {
			assert.False(t, strings.HasPrefix(call.Prompt, "為課程評分"), "scoring must not run after cancellation")
		}
	})

	t.Run("cancel before extraction skips all oracle calls", func(t *testing.T) {
		oracle := mock.NewMockOracle()
		searcher, _ := newTestSearcher(t, oracle, testCatalog)

		session := core.NewSession(core.SearchModeLoose)
		session.Cancel()
		result, err := searcher.Search(context.Background(), session, "資料結構", nil)
		require.NoError(t, err)

		assert.Equal(t, core.StageCancelled, result.Stage)
		assert.Zero(t, oracle.CallCount())
	})
}

func TestSearcherEnricherPause(t *testing.T) {
	oracle := routingOracle(keepDataStructures)
	pauser := &fakePauser{}
	searcher, _ := newTestSearcher(t, oracle, testCatalog, WithEnricher(pauser))

	session := core.NewSession(core.SearchModeLoose)
	_, err := searcher.Search(context.Background(), session, "資料結構", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, pauser.pauses)
	assert.Equal(t, 1, pauser.resumes)
}

type fakePauser struct {
	mu      sync.Mutex
	pauses  int
	resumes int
}

func (p *fakePauser) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pauses++
}

func (p *fakePauser) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resumes++
}

// recordingMonitor captures pipeline callbacks for assertions.
type recordingMonitor struct {
	afterCoarse func()
	failedOver  error
	finished    *core.SearchResult
}

var _ SearchMonitor = (*recordingMonitor)(nil)

func (m *recordingMonitor) Start(string, core.SearchMode)              {}
func (m *recordingMonitor) AfterPreprocess(string, *core.Instructions) {}
func (m *recordingMonitor) AfterExtraction(core.AttributeSet)          {}
func (m *recordingMonitor) AfterCoarseFilter([]*core.CourseRecord) {
	if m.afterCoarse != nil {
		m.afterCoarse()
	}
}
func (m *recordingMonitor) AfterPreciseMatch([]*core.CourseRecord)  {}
func (m *recordingMonitor) AfterScoring(map[string]core.ScoreRecord) {}
func (m *recordingMonitor) AfterPostFilter([]*core.CourseRecord)    {}
func (m *recordingMonitor) FailedOver(err error)                    { m.failedOver = err }
func (m *recordingMonitor) Finish(result *core.SearchResult)        { m.finished = result }
