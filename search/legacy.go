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
	"regexp"
	"sort"
	"strings"

	"github.com/poiesic/coursefinder/core"
)

// Deterministic, oracle-free keyword search. This is the fail-over path when
// the pipeline cannot complete, so it must never touch the backend.

var (
	splitPattern    = regexp.MustCompile(`[\s的和或與]+`)
	timeWordPattern = regexp.MustCompile(`(星期[一二三四五六日]|週[一二三四五六日]|禮拜[一二三四五六日]|早上|下午|晚上)`)
	teacherPattern  = regexp.MustCompile(`^(.{1,3})老師(.+)$`)
	deptPattern     = regexp.MustCompile(`^(.{2,4})系(.+)$`)
	collegePattern  = regexp.MustCompile(`^(.{2,4})學院(.+)$`)
)

var dayCodeNames = map[byte]string{
	'M': "一", 'T': "二", 'W': "三", 'R': "四", 'F': "五", 'S': "六", 'U': "日",
}

// isAbbreviation reports whether abbr is a subsequence of target, e.g.
// "資結" abbreviates "資料結構".
func isAbbreviation(abbr, target string) bool {
	a := []rune(abbr)
	t := []rune(target)
	ai, ti := 0, 0
	for ai < len(a) && ti < len(t) {
		if a[ai] == t[ti] {
			ai++
		}
		ti++
	}
	return ai == len(a)
}

func isTimeKeyword(keyword string) bool {
	if keyword == "" {
		return false
	}
	upper := strings.ToUpper(keyword)
	if _, ok := dayCodeNames[upper[0]]; ok {
		return true
	}
	return timeWordPattern.MatchString(keyword)
}

// convertDayCode expands a weekday code like "M56" into textual match
// patterns ("週一 56", "週一56", per-period variants).
func convertDayCode(keyword string) []string {
	upper := strings.ToUpper(keyword)
	day, ok := dayCodeNames[upper[0]]
	if !ok {
		return []string{keyword}
	}
	if len(upper) == 1 {
		return []string{"週" + day}
	}
	timeCode := upper[1:]
	patterns := []string{
		"週" + day + " " + timeCode,
		"週" + day + timeCode,
	}
	if len(timeCode) > 1 {
		for i := 0; i < len(timeCode); i++ {
			p := string(timeCode[i])
			patterns = append(patterns, "週"+day+" "+p, "週"+day+p)
		}
	}
	return patterns
}

// TokenizeQuery splits a free-text query into search keywords: it separates
// on connective particles, pulls out time words, and expands teacher /
// department / college compounds into their parts.
func TokenizeQuery(query string) []string {
	query = strings.ToLower(query)
	parts := splitPattern.Split(query, -1)

	var keywords []string
	for i := 0; i < len(parts); i++ {
		part := parts[i]
		if part == "" {
			continue
		}

		if matches := timeWordPattern.FindAllString(part, -1); matches != nil {
			keywords = append(keywords, matches...)
			if remaining := timeWordPattern.ReplaceAllString(part, ""); remaining != "" {
				parts = append(parts, remaining)
			}
			continue
		}

		runes := []rune(part)
		if len(runes) > 4 {
			if m := teacherPattern.FindStringSubmatch(part); m != nil {
				keywords = append(keywords, m[1])
				if len([]rune(m[1])) == 1 {
					keywords = append(keywords, m[1]+"老師")
				}
				keywords = append(keywords, m[2])
				continue
			}
			if m := deptPattern.FindStringSubmatch(part); m != nil {
				keywords = append(keywords, m[1]+"系", m[1], m[2])
				continue
			}
			if m := collegePattern.FindStringSubmatch(part); m != nil {
				keywords = append(keywords, m[1]+"學院", m[1], m[2])
				continue
			}
		}

		switch {
		case strings.HasSuffix(part, "老師") && len(runes) > 2:
			name := strings.TrimSuffix(part, "老師")
			keywords = append(keywords, name)
			if len([]rune(name)) == 1 {
				keywords = append(keywords, part)
			}
		case strings.HasSuffix(part, "系") && len(runes) > 1:
			keywords = append(keywords, part, strings.TrimSuffix(part, "系"))
		case strings.HasSuffix(part, "課") && len(runes) > 1:
			subject := strings.TrimSuffix(part, "課")
			keywords = append(keywords, subject)
			if n := len([]rune(subject)); n >= 2 && n <= 4 {
				keywords = append(keywords, subject+"系")
			}
		case strings.Contains(part, "學院") && len(runes) > 2:
			keywords = append(keywords, part, strings.ReplaceAll(part, "學院", ""))
		case part != "課":
			keywords = append(keywords, part)
		}
	}

	seen := make(map[string]bool, len(keywords))
	out := keywords[:0]
	for _, kw := range keywords {
		if kw != "" && !seen[kw] {
			seen[kw] = true
			out = append(out, kw)
		}
	}
	return out
}

// relevance scores one course against the keywords. Each field counts its
// best match only; matching several distinct fields earns a bonus.
func relevance(c *core.CourseRecord, keywords []string) (score, matchedFields int) {
	name := strings.ToLower(c.Name)
	code := strings.ToLower(c.Code)
	teacher := strings.ToLower(c.Teacher)
	courseTime := strings.ToLower(c.Time)
	room := strings.ToLower(c.Room)
	annotation := strings.ToLower(c.Annotation)

	var nameScore, codeScore, teacherScore, timeScore, roomScore, pathScore, annotationScore int
	fields := make(map[string]bool)

	maxOf := func(current *int, candidate int, field string) {
		if candidate > *current {
			*current = candidate
		}
		fields[field] = true
	}

	for _, kw := range keywords {
		switch {
		case name == kw:
			maxOf(&nameScore, 100, "name")
		case strings.HasPrefix(name, kw):
			maxOf(&nameScore, 80, "name")
		case strings.Contains(name, kw):
			maxOf(&nameScore, 50, "name")
		case isAbbreviation(kw, name):
			maxOf(&nameScore, 40, "name")
		}

		if code == kw {
			maxOf(&codeScore, 100, "code")
		} else if code != "" && strings.Contains(code, kw) {
			maxOf(&codeScore, 60, "code")
		}

		if teacher != "" {
			switch {
			case teacher == kw:
				maxOf(&teacherScore, 70, "teacher")
			case strings.HasPrefix(teacher, kw):
				maxOf(&teacherScore, 65, "teacher")
			case strings.HasSuffix(kw, "老師") && strings.HasPrefix(teacher, strings.TrimSuffix(kw, "老師")):
				maxOf(&teacherScore, 65, "teacher")
			case strings.Contains(teacher, kw):
				maxOf(&teacherScore, 50, "teacher")
			}
		}

		if isTimeKeyword(kw) {
			matched := strings.Contains(strings.ToUpper(courseTime), strings.ToUpper(kw))
			for _, pattern := range convertDayCode(kw) {
				if strings.Contains(courseTime, strings.ToLower(pattern)) {
					matched = true
					break
				}
			}
			if matched {
				maxOf(&timeScore, 30, "time")
			}
		} else if courseTime != "" && strings.Contains(courseTime, kw) {
			maxOf(&timeScore, 25, "time")
		}

		if room != "" && strings.Contains(room, kw) {
			maxOf(&roomScore, 20, "room")
		}

		for _, p := range c.Paths {
			dept := strings.ToLower(p.Department)
			college := strings.ToLower(p.College)
			typeText := strings.ToLower(p.Type)
			category := strings.ToLower(p.Category)
			switch {
			case dept == kw || college == kw:
				maxOf(&pathScore, 45, "path")
			case strings.Contains(dept, kw) || isAbbreviation(kw, dept) ||
				strings.Contains(college, kw) || isAbbreviation(kw, college):
				maxOf(&pathScore, 30, "path")
			case strings.Contains(typeText, kw) || strings.Contains(category, kw):
				maxOf(&pathScore, 20, "path")
			}
		}

		if annotation != "" && strings.Contains(annotation, kw) {
			maxOf(&annotationScore, 35, "annotation")
		}
	}

	score = nameScore + codeScore + teacherScore + timeScore + roomScore + pathScore + annotationScore
	matchedFields = len(fields)
	if matchedFields > 1 {
		score += matchedFields * 20
	}
	if fields["name"] && fields["teacher"] {
		score += 50
	}
	return score, matchedFields
}

// LegacySearch ranks the catalog by deterministic keyword relevance. Courses
// matching no field are dropped. Ties break by matched-field count, then by
// course code for full determinism.
func LegacySearch(catalog []*core.CourseRecord, query string) []*core.CourseRecord {
	keywords := TokenizeQuery(query)
	if len(keywords) == 0 {
		return nil
	}

	type scored struct {
		course  *core.CourseRecord
		score   int
		matched int
	}
	var hits []scored
	for _, c := range catalog {
		score, matched := relevance(c, keywords)
		if matched > 0 {
			hits = append(hits, scored{c, score, matched})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].score != hits[b].score {
			return hits[a].score > hits[b].score
		}
		if hits[a].matched != hits[b].matched {
			return hits[a].matched > hits[b].matched
		}
		return hits[a].course.Code < hits[b].course.Code
	})

	out := make([]*core.CourseRecord, len(hits))
	for i, h := range hits {
		out[i] = h.course
	}
	return out
}
