package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/coursefinder/ai/mock"
	"github.com/poiesic/coursefinder/core"
	"github.com/poiesic/coursefinder/storage"
	badgerstore "github.com/poiesic/coursefinder/storage/badger"
)

func seedCourses(t *testing.T, n int) (storage.CatalogRepository, storage.AnnotationRepository, []*core.CourseRecord) {
	t.Helper()
	catalog, annotations, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		catalog.Close()
		backend.Close()
	})

	courses := make([]*core.CourseRecord, n)
	for i := range courses {
		courses[i] = &core.CourseRecord{
			CourseID: fmt.Sprintf("5%03d", i),
			Name:     fmt.Sprintf("課程%d", i),
			Time:     "M12",
			Memo:     fmt.Sprintf("課程概述%d", i),
		}
	}
	require.NoError(t, catalog.PutCourses(context.Background(), courses))
	return catalog, annotations, courses
}

func newTestEnricher(t *testing.T, catalog storage.CatalogRepository, annotations storage.AnnotationRepository, oracle *mock.MockOracle) *Enricher {
	t.Helper()
	e, err := NewEnricher(catalog, annotations, oracle, WithBatchPolicy(4, time.Millisecond))
	require.NoError(t, err)
	e.retryDelay = time.Millisecond
	t.Cleanup(func() { e.Close() })
	return e
}

func TestNewEnricher(t *testing.T) {
	catalog, annotations, _ := seedCourses(t, 1)

	t.Run("requires all collaborators", func(t *testing.T) {
		_, err := NewEnricher(nil, annotations, mock.NewMockOracle())
		assert.ErrorIs(t, err, ErrCatalogRequired)

		_, err = NewEnricher(catalog, nil, mock.NewMockOracle())
		assert.ErrorIs(t, err, ErrAnnotationsRequired)

		_, err = NewEnricher(catalog, annotations, nil)
		assert.ErrorIs(t, err, ErrOracleRequired)
	})
}

func TestEnricherRun(t *testing.T) {
	t.Run("annotates every course with memo text", func(t *testing.T) {
		catalog, annotations, courses := seedCourses(t, 10)
		oracle := mock.NewMockOracle()
		oracle.InvokeFunc = func(_ context.Context, _ string, _ float64, _ int) (string, error) {
			return "微積分,線性代數,Python", nil
		}
		e := newTestEnricher(t, catalog, annotations, oracle)

		stats, err := e.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 10, stats.Annotated)
		assert.Zero(t, stats.Failed)

		for _, c := range courses {
			keywords, err := annotations.Get(context.Background(), c.CacheKey())
			require.NoError(t, err)
			assert.Equal(t, "微積分,線性代數,Python", keywords)
		}
	})

	t.Run("prompt carries name and outline", func(t *testing.T) {
		catalog, annotations, _ := seedCourses(t, 1)
		oracle := mock.NewMockOracle()
		oracle.InvokeFunc = func(_ context.Context, prompt string, temperature float64, budget int) (string, error) {
			assert.Contains(t, prompt, "課程0")
			assert.Contains(t, prompt, "課程概述0")
			assert.InDelta(t, 0.3, temperature, 1e-9)
			assert.Zero(t, budget)
			return "關鍵字", nil
		}
		e := newTestEnricher(t, catalog, annotations, oracle)

		_, err := e.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, oracle.CallCount())
	})

	t.Run("already annotated courses are skipped", func(t *testing.T) {
		catalog, annotations, courses := seedCourses(t, 3)
		require.NoError(t, annotations.Put(context.Background(), courses[1].CacheKey(), "既有關鍵字"))

		oracle := mock.NewMockOracle()
		oracle.InvokeFunc = func(_ context.Context, _ string, _ float64, _ int) (string, error) {
			return "新關鍵字", nil
		}
		e := newTestEnricher(t, catalog, annotations, oracle)

		stats, err := e.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Annotated)
		assert.Equal(t, 1, stats.Skipped)

		keywords, err := annotations.Get(context.Background(), courses[1].CacheKey())
		require.NoError(t, err)
		assert.Equal(t, "既有關鍵字", keywords)
	})

	t.Run("oracle failure caches memo text as fallback", func(t *testing.T) {
		catalog, annotations, courses := seedCourses(t, 1)
		oracle := mock.NewMockOracle()
		oracle.InvokeFunc = func(_ context.Context, _ string, _ float64, _ int) (string, error) {
			return "", errors.New("backend unreachable")
		}
		e := newTestEnricher(t, catalog, annotations, oracle)

		stats, err := e.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Fallback)

		keywords, err := annotations.Get(context.Background(), courses[0].CacheKey())
		require.NoError(t, err)
		assert.Equal(t, "課程概述0", keywords)
	})

	t.Run("courses with no outline text are skipped", func(t *testing.T) {
		catalog, annotations, backend, err := badgerstore.NewMemoryRepositories()
		require.NoError(t, err)
		t.Cleanup(func() {
			catalog.Close()
			backend.Close()
		})
		bare := &core.CourseRecord{CourseID: "9001", Name: "無綱要課程", Time: "M12"}
		require.NoError(t, catalog.PutCourses(context.Background(), []*core.CourseRecord{bare}))

		oracle := mock.NewMockOracle()
		e := newTestEnricher(t, catalog, annotations, oracle)

		stats, err := e.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Skipped)
		assert.Zero(t, oracle.CallCount())
	})

	t.Run("response whitespace is flattened", func(t *testing.T) {
		catalog, annotations, courses := seedCourses(t, 1)
		oracle := mock.NewMockOracle()
		oracle.InvokeFunc = func(_ context.Context, _ string, _ float64, _ int) (string, error) {
			return "\n微積分,\n線性代數\n", nil
		}
		e := newTestEnricher(t, catalog, annotations, oracle)

		_, err := e.Run(context.Background())
		require.NoError(t, err)

		keywords, err := annotations.Get(context.Background(), courses[0].CacheKey())
		require.NoError(t, err)
		assert.False(t, strings.Contains(keywords, "\n"))
		assert.Equal(t, "微積分, 線性代數", keywords)
	})

	t.Run("only one run at a time", func(t *testing.T) {
		catalog, annotations, _ := seedCourses(t, 1)
		oracle := mock.NewMockOracle()
		e := newTestEnricher(t, catalog, annotations, oracle)
		e.running.Store(true)

		_, err := e.Run(context.Background())
		assert.ErrorIs(t, err, ErrAlreadyRunning)
	})
}

func TestEnricherPause(t *testing.T) {
	t.Run("paused run makes no progress until resumed", func(t *testing.T) {
		catalog, annotations, courses := seedCourses(t, 2)
		oracle := mock.NewMockOracle()
		oracle.InvokeFunc = func(_ context.Context, _ string, _ float64, _ int) (string, error) {
			return "關鍵字", nil
		}
		e := newTestEnricher(t, catalog, annotations, oracle)

		e.Pause()
		done := make(chan Stats, 1)
		go func() {
			stats, _ := e.Run(context.Background())
			done <- stats
		}()

		time.Sleep(50 * time.Millisecond)
		assert.Zero(t, oracle.CallCount())
		_, err := annotations.Get(context.Background(), courses[0].CacheKey())
		assert.ErrorIs(t, err, storage.ErrAnnotationNotFound)

		e.Resume()
		select {
		case stats := <-done:
			assert.Equal(t, 2, stats.Annotated)
		case <-time.After(5 * time.Second):
			t.Fatal("run did not finish after resume")
		}
	})

	t.Run("cancelling a paused run stops it", func(t *testing.T) {
		catalog, annotations, _ := seedCourses(t, 2)
		e := newTestEnricher(t, catalog, annotations, mock.NewMockOracle())

		ctx, cancel := context.WithCancel(context.Background())
		e.Pause()
		done := make(chan error, 1)
		go func() {
			_, err := e.Run(ctx)
			done <- err
		}()

		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("run did not stop after cancellation")
		}
	})
}
