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

import "fmt"

const keywordPromptTemplate = `從以下完整課程綱要中提取搜尋關鍵字。

課程名稱：%s

完整課程綱要：
%s

任務：
1. 分析【先修科目】：提取必備的前置知識、技能（如微積分、線性代數、程式設計等）
2. 分析【課程概述】：提取核心技術術語、概念、主題
3. 分析【教科書】：提取重要參考書籍、工具、框架名稱
4. 分析【評量方式】：提取評分相關關鍵詞（如報告、考試、實作、分組專題等）
5. 分析【教學方法】：提取教學形式關鍵詞（如翻轉教學、實驗課、線上課程等）
6. 保留所有專有名詞（演算法名稱、工具名稱、理論名稱、書名、英文專有名詞如 Python、API 等）
7. 移除冗長描述和連接詞
8. 每個關鍵字用逗號分隔
9. 只輸出關鍵字，不要解釋

範例：
輸入：
先修科目：微積分、線性代數
課程概述：本課程介紹資料結構的基本概念，包括陣列、鏈結串列、堆疊、佇列、樹狀結構、圖形等，並學習排序演算法。使用 Python 實作。
評量方式：期中考 30%%、期末考 30%%、程式作業 40%%
教學方法：課堂講授與實驗課

輸出：微積分,線性代數,資料結構,陣列,鏈結串列,堆疊,佇列,樹狀結構,圖形,排序演算法,Python,實作,期中考,期末考,程式作業,考試,講授,實驗課

現在請為上述完整課程綱要提取關鍵字：`

func buildKeywordPrompt(courseName, outline string) string {
	return fmt.Sprintf(keywordPromptTemplate, courseName, outline)
}
