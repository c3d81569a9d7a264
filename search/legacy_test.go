package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/coursefinder/core"
)

func TestIsAbbreviation(t *testing.T) {
	assert.True(t, isAbbreviation("資結", "資料結構"))
	assert.True(t, isAbbreviation("資工", "資訊工程學系"))
	assert.False(t, isAbbreviation("結資", "資料結構"))
	assert.False(t, isAbbreviation("資料結構概論", "資料結構"))
	assert.True(t, isAbbreviation("", "任何"))
}

func TestConvertDayCode(t *testing.T) {
	t.Run("bare weekday", func(t *testing.T) {
		assert.Equal(t, []string{"週一"}, convertDayCode("M"))
	})

	t.Run("weekday with periods expands per period variants", func(t *testing.T) {
		patterns := convertDayCode("M56")
		assert.Contains(t, patterns, "週一 56")
		assert.Contains(t, patterns, "週一56")
		assert.Contains(t, patterns, "週一5")
		assert.Contains(t, patterns, "週一 6")
	})

	t.Run("non day code passes through", func(t *testing.T) {
		assert.Equal(t, []string{"體育"}, convertDayCode("體育"))
	})
}

func TestTokenizeQuery(t *testing.T) {
	t.Run("splits on connective particles", func(t *testing.T) {
		assert.Equal(t, []string{"資工系", "資工", "演算法"}, TokenizeQuery("資工系的演算法"))
	})

	t.Run("pulls out time words", func(t *testing.T) {
		keywords := TokenizeQuery("星期三的體育")
		assert.Contains(t, keywords, "星期三")
		assert.Contains(t, keywords, "體育")
	})

	t.Run("expands short teacher suffix", func(t *testing.T) {
		keywords := TokenizeQuery("王老師")
		assert.Contains(t, keywords, "王")
		assert.Contains(t, keywords, "王老師")
	})

	t.Run("expands long teacher course compound", func(t *testing.T) {
		keywords := TokenizeQuery("陳大文老師的程式設計")
		assert.Contains(t, keywords, "陳大文")
		assert.Contains(t, keywords, "程式設計")
	})

	t.Run("expands department course compound", func(t *testing.T) {
		keywords := TokenizeQuery("資工系微積分課程")
		assert.Contains(t, keywords, "資工系")
		assert.Contains(t, keywords, "資工")
		assert.Contains(t, keywords, "微積分課程")
	})

	t.Run("course suffix yields the bare subject", func(t *testing.T) {
		keywords := TokenizeQuery("體育課")
		assert.Contains(t, keywords, "體育")
		assert.NotContains(t, keywords, "體育課")
	})

	t.Run("deduplicates keywords", func(t *testing.T) {
		keywords := TokenizeQuery("體育 體育")
		assert.Equal(t, []string{"體育"}, keywords)
	})

	t.Run("blank query yields nothing", func(t *testing.T) {
		assert.Empty(t, TokenizeQuery("   "))
	})
}

func TestLegacySearch(t *testing.T) {
	algorithms := &core.CourseRecord{
		CourseID: "5001", Code: "CSCS20001", Name: "演算法", Teacher: "王小明", Time: "M56",
		Paths: []core.PathEntry{{College: "資訊學院", Department: "資訊工程學系"}},
	}
	dataStructures := &core.CourseRecord{
		CourseID: "5002", Code: "CSCS10021", Name: "資料結構", Teacher: "王小明", Time: "T34",
		Paths: []core.PathEntry{{College: "資訊學院", Department: "資訊工程學系"}},
	}
	tennis := &core.CourseRecord{
		CourseID: "5003", Code: "PE001", Name: "網球", Teacher: "李四", Time: "F78",
	}
	catalog := []*core.CourseRecord{tennis, algorithms, dataStructures}

	t.Run("exact name match ranks first", func(t *testing.T) {
		out := LegacySearch(catalog, "演算法")
		require.Len(t, out, 1)
		assert.Same(t, algorithms, out[0])
	})

	t.Run("department keyword matches via paths", func(t *testing.T) {
		out := LegacySearch(catalog, "資工系")
		require.Len(t, out, 2)
		assert.NotContains(t, out, tennis)
	})

	t.Run("name and teacher together earn the combo bonus", func(t *testing.T) {
		out := LegacySearch(catalog, "王小明的演算法")
		require.NotEmpty(t, out)
		assert.Same(t, algorithms, out[0])
	})

	t.Run("abbreviated course names still match", func(t *testing.T) {
		out := LegacySearch(catalog, "資結")
		require.Len(t, out, 1)
		assert.Same(t, dataStructures, out[0])
	})

	t.Run("annotations are searchable", func(t *testing.T) {
		annotated := &core.CourseRecord{CourseID: "5004", Code: "GEN001", Name: "生活科技", Annotation: "3D列印, 雷射切割"}
		out := LegacySearch([]*core.CourseRecord{annotated}, "雷射切割")
		require.Len(t, out, 1)
	})

	t.Run("ties break by course code for determinism", func(t *testing.T) {
		a := &core.CourseRecord{CourseID: "1", Code: "B001", Name: "網球"}
		b := &core.CourseRecord{CourseID: "2", Code: "A001", Name: "網球"}
		out := LegacySearch([]*core.CourseRecord{a, b}, "網球")
		require.Len(t, out, 2)
		assert.Equal(t, "A001", out[0].Code)
	})

	t.Run("no keywords yields no results", func(t *testing.T) {
		assert.Nil(t, LegacySearch(catalog, " "))
	})

	t.Run("unmatched courses are dropped", func(t *testing.T) {
		assert.Empty(t, LegacySearch(catalog, "量子物理"))
	})
}
