package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/coursefinder/ai/mock"
	"github.com/poiesic/coursefinder/core"
)

const (
	decomposeMarker = "將用戶查詢拆分成"
	cleanMarker     = "過濾關鍵字集合"
)

func TestNewAttributeExtractor(t *testing.T) {
	t.Run("requires an oracle", func(t *testing.T) {
		_, err := NewAttributeExtractor(nil)
		assert.ErrorIs(t, err, ErrOracleRequired)
	})
}

func TestAttributeExtractor(t *testing.T) {
	t.Run("decompose then clean", func(t *testing.T) {
		oracle := mock.NewMockOracle()
		oracle.InvokeFunc = func(_ context.Context, prompt string, _ float64, _ int) (string, error) {
			if strings.HasPrefix(prompt, decomposeMarker) {
				return `{
					"name": ["required", [["演算法", "algorithm", "課程"]]],
					"teacher": ["optional", [["王小明"]]]
				}`, nil
			}
			return `{"name": ["required", [["演算法", "algorithm"]]]}`, nil
		}
		extractor, err := NewAttributeExtractor(oracle)
		require.NoError(t, err)

		attrs, err := extractor.Extract(context.Background(), "演算法", nil)
		require.NoError(t, err)

		// The clean response rewrote name; teacher was absent from it and
		// keeps its unclean value.
		assert.Equal(t, [][]string{{"演算法", "algorithm"}}, attrs["name"].Groups)
		assert.Equal(t, [][]string{{"王小明"}}, attrs["teacher"].Groups)
		assert.Equal(t, core.NecessityOptional, attrs["teacher"].Necessity)
		assert.Equal(t, 2, oracle.CallCount())
	})

	t.Run("stage temperatures", func(t *testing.T) {
		oracle := mock.NewMockOracle()
		oracle.InvokeFunc = func(_ context.Context, _ string, _ float64, _ int) (string, error) {
			return `{"name": ["required", [["體育"]]]}`, nil
		}
		extractor, err := NewAttributeExtractor(oracle)
		require.NoError(t, err)

		_, err = extractor.Extract(context.Background(), "體育", nil)
		require.NoError(t, err)

		calls := oracle.Invocations()
		require.Len(t, calls, 2)
		assert.InDelta(t, 0.7, calls[0].Temperature, 1e-9)
		assert.InDelta(t, 0.3, calls[1].Temperature, 1e-9)
		assert.Zero(t, calls[0].ReasoningBudget)
	})

	t.Run("deptName is never a hard filter", func(t *testing.T) {
		oracle := mock.NewMockOracle()
		oracle.InvokeFunc = func(_ context.Context, _ string, _ float64, _ int) (string, error) {
			return `{"deptName": ["required", [["資訊工程學系", "資工"]]]}`, nil
		}
		extractor, err := NewAttributeExtractor(oracle)
		require.NoError(t, err)

		attrs, err := extractor.Extract(context.Background(), "資工的課", nil)
		require.NoError(t, err)
		assert.Equal(t, core.NecessityOptional, attrs["deptName"].Necessity)
	})

	t.Run("decompose oracle error is a stage failure", func(t *testing.T) {
		oracle := mock.NewMockOracle()
		oracle.InvokeFunc = func(_ context.Context, _ string, _ float64, _ int) (string, error) {
			return "", errors.New("backend unreachable")
		}
		extractor, err := NewAttributeExtractor(oracle)
		require.NoError(t, err)

		_, err = extractor.Extract(context.Background(), "演算法", nil)
		assert.Error(t, err)
	})

	t.Run("unparseable decompose falls back to heuristics", func(t *testing.T) {
		oracle := mock.NewMockOracle()
		oracle.InvokeFunc = func(_ context.Context, prompt string, _ float64, _ int) (string, error) {
			if strings.HasPrefix(prompt, decomposeMarker) {
				return "抱歉，我無法解析", nil
			}
			return "", errors.New("backend unreachable")
		}
		extractor, err := NewAttributeExtractor(oracle)
		require.NoError(t, err)

		attrs, err := extractor.Extract(context.Background(), "星期三下午的資工課", nil)
		require.NoError(t, err)

		require.Equal(t, core.NecessityRequired, attrs["time"].Necessity)
		require.Len(t, attrs["time"].Groups, 1)
		timeGroup := attrs["time"].Groups[0]
		assert.Contains(t, timeGroup, "星期三")
		assert.Contains(t, timeGroup, "W56789")
		assert.Contains(t, timeGroup, "下午")

		require.Equal(t, core.NecessityRequired, attrs["paths"].Necessity)
		assert.Contains(t, attrs["paths"].Groups[0], "資訊工程學系")
	})

	t.Run("clean failure keeps the unfiltered set", func(t *testing.T) {
		unclean := `{"name": ["required", [["演算法", "課程"]]]}`
		for name, cleanResponse := range map[string]func() (string, error){
			"oracle error": func() (string, error) { return "", errors.New("timeout") },
			"unparseable":  func() (string, error) { return "好的，我清理好了", nil },
		} {
			t.Run(name, func(t *testing.T) {
				oracle := mock.NewMockOracle()
				oracle.InvokeFunc = func(_ context.Context, prompt string, _ float64, _ int) (string, error) {
					if strings.HasPrefix(prompt, cleanMarker) {
						return cleanResponse()
					}
					return unclean, nil
				}
				extractor, err := NewAttributeExtractor(oracle)
				require.NoError(t, err)

				attrs, err := extractor.Extract(context.Background(), "演算法", nil)
				require.NoError(t, err)
				assert.Equal(t, [][]string{{"演算法", "課程"}}, attrs["name"].Groups)
			})
		}
	})

	t.Run("directive context reaches the decompose prompt", func(t *testing.T) {
		oracle := mock.NewMockOracle()
		oracle.InvokeFunc = func(_ context.Context, _ string, _ float64, _ int) (string, error) {
			return `{"time": ["required", [["M1", "M2"]]]}`, nil
		}
		extractor, err := NewAttributeExtractor(oracle)
		require.NoError(t, err)

		instructions := &core.Instructions{
			FreeTimeRequested: true,
			FreeTimeSlots:     []string{"M1", "M2"},
			ExcludeKeywords:   []string{"體育"},
		}
		_, err = extractor.Extract(context.Background(), "我的空堂時間（共 2 個時段）", instructions)
		require.NoError(t, err)

		prompt := oracle.Invocations()[0].Prompt
		assert.Contains(t, prompt, "M12")
		assert.Contains(t, prompt, "體育")
	})
}
