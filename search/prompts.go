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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/poiesic/coursefinder/core"
)

// Stage sampling parameters. Decomposition wants variety in generated
// synonyms; every later stage wants stable output. The reasoning budget is
// only lifted for precise matching.
const (
	decomposeTemperature = 0.7
	cleanTemperature     = 0.3
	coarseTemperature    = 0.3
	preciseTemperature   = 0.1
	scoreTemperature     = 0.1

	noThinkingBudget      = 0
	defaultThinkingBudget = -1
)

// formatGroups renders keyword groups for a prompt: a single group as a flat
// OR list, several groups as bracketed lists joined with AND.
func formatGroups(groups [][]string) string {
	if len(groups) == 0 {
		return "(空)"
	}
	if len(groups) == 1 {
		return strings.Join(groups[0], ", ")
	}
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = "[" + strings.Join(g, ", ") + "]"
	}
	return strings.Join(parts, " AND ")
}

// attributeLines renders named attributes one per line, or "無" when empty.
func attributeLines(attrs []core.NamedAttribute) string {
	if len(attrs) == 0 {
		return "無"
	}
	lines := make([]string, len(attrs))
	for i, a := range attrs {
		lines[i] = fmt.Sprintf("%s: %s", a.Name, formatGroups(a.Groups))
	}
	return strings.Join(lines, "\n")
}

// coarseCourseLine is the compact per-course summary used by the coarse
// filter: enough to judge relevance, small enough for wide shards.
func coarseCourseLine(i int, c *core.CourseRecord) string {
	return fmt.Sprintf("%d. %s|%s|%s|%s|%s|%s",
		i+1, c.Name, c.Teacher, c.Time, c.DeptName, c.PathsText(), c.Type)
}

// detailCourseLine is the full per-course line used by precise matching and
// scoring. The annotation holds cached search keywords extracted from the
// course outline and may be empty.
func detailCourseLine(i int, c *core.CourseRecord, includeAnnotation bool) string {
	parts := []string{fmt.Sprintf("%d. %s", i+1, c.Name)}
	add := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}
	add(c.Teacher)
	add(c.Time)
	add(c.Room)
	if c.DeptName != "" {
		add("系所:" + c.DeptName)
	}
	if t := c.PathsText(); t != "" {
		add("路徑:" + t)
	}
	add(c.Type)
	if c.Credits > 0 {
		add(fmt.Sprintf("%d學分", c.Credits))
	}
	add(c.Code)
	add(c.Memo)
	if includeAnnotation && c.Annotation != "" {
		add("關鍵字:" + c.Annotation)
	}
	return strings.Join(parts, "｜")
}

func courseListing(shard []*core.CourseRecord, detailed, includeAnnotation bool) string {
	lines := make([]string, len(shard))
	for i, c := range shard {
		if detailed {
			lines[i] = detailCourseLine(i, c, includeAnnotation)
		} else {
			lines[i] = coarseCourseLine(i, c)
		}
	}
	return strings.Join(lines, "\n")
}

const decomposePromptTemplate = `將用戶查詢拆分成課程的 14 個屬性的關鍵字集合，並判斷每個屬性是必要條件還是可選條件

查詢：%s%s

課程資料結構包含以下 14 個屬性：
1. code - 課程代碼（如：CSCS10021）
2. name - 課程名稱（如：資料結構、物件導向程式設計等）
3. teacher - 教師姓名
4. time - 上課時間代碼（M=星期一, T=星期二, W=星期三, R=星期四, F=星期五；1234n=上午, 56789=下午, abc=晚上）
5. credits - 學分數
6. room - 教室
7. courseId - 課程編號
8. year - 學年度
9. term - 學期
10. memo - 備註
11. courseType - 課程類型（必修、選修、核心等。注意：此欄位不包含"通識"）
12. deptId - 開課系所ID
13. deptName - 開課系所名稱【重要：此屬性僅用於排序加分，應標記為 "optional"】
14. paths - 選課路徑（包含課程類型、學院、系所等。通識課程的資訊在 paths 中：搜尋「通識」時應匹配「通識」或「核心課程」，但不匹配「學士班共同課程」）【用於篩選】

任務：
1. 為每個屬性生成所有可能的關鍵字、變體、同義詞
2. 判斷每個屬性的必要性：
   - "required" = 必要條件（課程必須符合，不符合直接淘汰）
   - "optional" = 可選條件（符合會加分但不符合也不淘汰）
   - "none" = 未提及（不檢查此屬性）
3. 特別注意：
   - **deptName 應該總是標記為 "optional"，不要標記為 "required"**
   - **paths 用於篩選，可以是 "required"**

**【重要】統一的二維陣列格式：**
- 內層陣列（同一組內）：OR 邏輯（任一匹配即可）
- 外層陣列（不同組間）：AND 邏輯（都要匹配）
- [["A", "B"]] = A OR B
- [["A", "B"], ["C", "D"]] = (A OR B) AND (C OR D)

輸出格式：每個屬性是 [必要性, 關鍵字] 的 pair，關鍵字永遠是二維陣列

範例 1：
輸入：星期一下午的資工課
輸出：
{
  "time": ["required", [["M56789", "M5", "M6", "M7", "M8", "M9", "星期一下午"]]],
  "deptName": ["optional", [["資訊工程學系", "資工", "DCP", "CS"]]],
  "paths": ["required", [["資訊學院", "資工", "資訊工程", "資訊工程學系", "DCP", "CS", "CSIE"]]]
}
（未提及的屬性輸出 ["none", []]）

範例 2：
輸入：通識課程
輸出：
{
  "paths": ["required", [["通識", "核心課程"]]]
}
註：「通識」包含「核心課程」；「學士班共同課程」、「校共同課程」不屬於通識；不要在 courseType 中查找通識

範例 3：
輸入：週一週三晚上的通識課
輸出：
{
  "time": ["required", [["Mabc", "Wabc"]]],
  "paths": ["required", [["通識", "核心課程"]]]
}
註：晚上時段（abc節）必須用完整代碼 Mabc、Wabc，不要使用單獨節次或模糊字樣；M78、W78 是下午末，不是晚上

範例 4：
輸入：星期二上午的課
輸出：
{
  "time": ["required", [["T1234n", "T1", "T2", "T3", "T4", "Tn", "星期二上午"]]]
}
註：上午時段包含 1, 2, 3, 4, n 節

現在為此查詢生成關鍵字集合：%s

只輸出 JSON：`

// specialInstructionsInfo renders directive context for the decompose prompt
// so the oracle folds free slots and exclusions into the attribute sets.
func specialInstructionsInfo(instructions *core.Instructions) string {
	if instructions == nil {
		return ""
	}
	var b strings.Builder
	if instructions.FreeTimeRequested && len(instructions.FreeTimeSlots) > 0 {
		fmt.Fprintf(&b, "\n特殊指令 - {空堂}：用戶的空堂時間代碼為 \"%s\"（共 %d 個時段）\n   → 如果查詢提到\"空堂\"或\"空閒時間\"，time 應設為 required，並包含這些時間代碼",
			FormatSlots(instructions.FreeTimeSlots), len(instructions.FreeTimeSlots))
	}
	if len(instructions.ExcludeKeywords) > 0 {
		fmt.Fprintf(&b, "\n特殊指令 - {除了}：需要排除的條件：%s\n   → 請在對應屬性的關鍵字中避免包含這些詞",
			strings.Join(instructions.ExcludeKeywords, "、"))
	}
	return b.String()
}

func buildDecomposePrompt(query string, instructions *core.Instructions) string {
	return fmt.Sprintf(decomposePromptTemplate, query, specialInstructionsInfo(instructions), query)
}

const cleanPromptTemplate = `過濾關鍵字集合，移除不適合用於課程搜尋的關鍵字（保留必要性標記）

原始查詢：%s

當前關鍵字集合（格式：[必要性, 關鍵字列表]）：
%s

過濾規則：
1. 移除單個數字（如：1, 2, 5, 6 等），但保留完整時間代碼（如：M5, M56, M56789）
2. 移除過於通用或模糊的詞（如：「課程」、「學習」、「教學」等**單獨出現**的詞）
3. 重要例外：不要移除複合詞中的關鍵字（「核心課程」、「學士班共同課程」等是 paths 的有效關鍵字）
4. 保留所有有意義的關鍵字（系所名稱、時間代碼、星期、時段等）
5. 保持必要性標記不變（required/optional/none）
6. 保持二維陣列結構不變
7. 如果某個屬性的所有關鍵字都被移除，設為 ["none", []]

範例：
輸入：time: ["required", [["M", "星期一", "56789", "5", "6", "7", "下午", "M56789"]]]
輸出：time: ["required", [["M", "星期一", "56789", "下午", "M56789"]]]

輸出過濾後的關鍵字集合（只輸出 JSON，保持 [必要性, 二維陣列] 格式）：`

func buildCleanPrompt(query string, attrs core.AttributeSet) string {
	var lines []string
	for _, name := range core.AttributeNames {
		attr := attrs[name]
		if attr.Necessity == core.NecessityNone || len(attr.Groups) == 0 {
			continue
		}
		groups, _ := json.Marshal(attr.Groups)
		lines = append(lines, fmt.Sprintf("%s: [%q, %s]", name, string(attr.Necessity), groups))
	}
	return fmt.Sprintf(cleanPromptTemplate, query, strings.Join(lines, "\n"))
}

const coarsePromptTemplate = `快速粗篩課程（只淘汰完全不符合的）

查詢：%s

必要條件（ALL required，缺一不可）：
%s

課程列表：
%s

匹配規則：
1. 時間匹配規則（IMPORTANT）：
   時間關鍵字格式：
   - T1234n = 星期二上午+中午（第1,2,3,4,n節）
   - T56789 = 星期二下午（第5,6,7,8,9節）
   - Tabc = 星期二晚上（第a,b,c節）

   範例 1：time: [[T1234n, T1, T2, T3, T4]] = 星期二上午
   - ✓ 符合：T1, T2, T3, T4, T12, T34, T234, T1234, T1n, T34n, T1234n
   - ✗ 不符合：T56, T567, T789, Tabc, Tab, M1, W234
   - 重點：Tabc（晚上）不符合上午條件！

   範例 2：time: [[Mabc, Wabc]] = 週一晚上 OR 週三晚上
   - ✓ 符合：Mabc, Mabc-, M56abc, M56abcn, Wabc, W9abc
   - ✗ 不符合：M56, M78, Mab, Tab, Tabc, W234, W78

2. 路徑匹配：課程路徑包含任一關鍵字即可
   - paths: [[通識, 核心課程]] = 路徑含「通識」或「核心課程」

3. ALL Required 條件必須同時符合，缺一就淘汰

只輸出符合的課程編號（逗號分隔），無則輸出「無」`

func buildCoarsePrompt(query string, attrs core.AttributeSet, shard []*core.CourseRecord) string {
	return fmt.Sprintf(coarsePromptTemplate,
		query,
		attributeLines(attrs.Required()),
		courseListing(shard, false, false))
}

const precisePromptTemplate = `精準匹配課程（嚴格檢查所有必要條件）

【用戶查詢】：%s

【必要條件（Required）】：
%s

【可選條件（Optional）】：
%s

課程列表：
%s

匹配規則：

【二維陣列匹配邏輯】：
所有屬性的關鍵字都是二維陣列格式：[[group1], [group2], ...]
- 內層陣列（組內）：OR 邏輯 - 匹配任一關鍵字即可
- 外層陣列（組間）：AND 邏輯 - 必須每組都匹配至少一個關鍵字

1. 必要條件（Required）：
   - 所有 Required 屬性必須同時符合（AND 邏輯）

   - **時間匹配規則（time）**【最高優先級、最嚴格】：
     * 關鍵字中的每個字元都必須出現在課程時間中
     * 範例 1：time: [[T1234n, T1, T2, T3, T4]] → 星期二上午
       ✓ 符合：T1, T2, T3, T4, T12, T34, T123, T234, T1234, T1n, T2n, T34n, T1234n
       ✗ 不符合：T56, T567, T789, T5678, Tabc, Tab, Tbc, M1, M2, W1234
       ✗ 重點：Tabc 是晚上，不符合上午條件！
     * 範例 2：time: [[Mabc, Wabc]] → 週一或週三晚上
       ✓ 符合：Mabc, Wabc, Mabc-, M56abcn, W9abc
       ✗ 不符合：M56, M78, Tab, Tabc（星期二晚上不是星期一或星期三）
     * 範例 3：time: [[T56789, T5, T6]] → 星期二下午
       ✓ 符合：T5, T6, T7, T56, T567, T56789, T5n, T56n
       ✗ 不符合：T1, T2, T3, T4, T1234, Tabc, M56

   - **路徑匹配規則（paths）**【寬鬆匹配】：
     * 檢查 paths 文字是否包含關鍵字
     * 只要匹配任一組內的任一關鍵字即可（雙重 OR）

   - 不符合任一 Required 屬性：直接淘汰

2. 可選條件（Optional）：
   - 符合會更好，但不是必須

輸出格式：
- 只輸出符合所有必要條件的課程編號（逗號分隔）
- 範例：1,3,5,7
- 無符合課程則輸出「無」`

func buildPrecisePrompt(query string, attrs core.AttributeSet, shard []*core.CourseRecord) string {
	return fmt.Sprintf(precisePromptTemplate,
		query,
		attributeLines(attrs.Required()),
		attributeLines(attrs.Optional()),
		courseListing(shard, true, true))
}

const scorePromptTemplate = `為課程評分（0-100分）

【用戶查詢】：%s

【必要條件（Required）】：
%s

【可選條件（Optional）】：
%s

課程列表：
%s

**課程列表說明**：
- 每門課程的資訊用「｜」分隔
- 「關鍵字」欄位：包含從完整課程綱要（先修科目、課程概述、評量方式、教學方法等）中提取的重要關鍵字
- 如果課程有「關鍵字」欄位，請優先使用該欄位來理解課程的詳細內容

評分標準：
總分 = AI分(0-30) + 時間匹配分(0-30) + 路徑/系所匹配分(0-20) + 匹配度加分(0-20)
**最高分 100 分**

**重要原則：如果用戶沒有指定某個屬性（該屬性不在 Required 和 Optional 中），則該屬性給滿分**

AI分（0-30分）：
根據課程與查詢的整體匹配度、課程品質、實用性、推薦程度等因素綜合評估。
- 30分：完美匹配，強烈推薦
- 20-29分：高度匹配，推薦
- 10-19分：中等匹配
- 0-9分：勉強匹配或不推薦

時間匹配分（0-30分）：
- 如果用戶沒有指定時間條件：給滿分 30 分
- 精確匹配時間：30 分；時間完全包含：28 分；部分重疊：20-25 分

路徑/系所匹配分（0-20分）：
- 如果用戶沒有指定路徑/系所條件：給滿分 20 分
- paths 精確匹配查詢的學院/系所：20 分
- deptName 精確匹配查詢的系所名稱：18 分
- paths 部分匹配（如含「通識」、「核心課程」）：15 分
- paths 勉強匹配（如含「學士班共同課程」）：10 分
- 完全不匹配：0 分

匹配度加分（0-20 分）：
- 如果用戶沒有指定 name 條件：給滿分 20 分
- 完全符合用戶意圖：15-20 分；高度相關：10-14 分；部分相關：5-9 分；勉強相關：0-4 分

輸出格式：
- 格式：編號:總分:AI分:時間分:路徑分:匹配度分
- 每行一個課程，各項分數用冒號分隔
- 結果必須按總分從高到低排序
- 範例：
  2:100:30:30:20:20
  3:95:25:28:20:17
  1:92:28:30:15:15
- 不要輸出任何解釋、分析或額外文字
- 確保所有分數都在合理範圍內（AI分0-30，時間0-30，路徑0-20，匹配度0-20）`

func buildScorePrompt(query string, attrs core.AttributeSet, shard []*core.CourseRecord) string {
	return fmt.Sprintf(scorePromptTemplate,
		query,
		attributeLines(attrs.Required()),
		attributeLines(attrs.Optional()),
		courseListing(shard, true, true))
}
