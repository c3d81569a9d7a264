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
	"strings"

	"github.com/poiesic/coursefinder/core"
)

// ApplyInstructions runs the pure, order-preserving directive filters over a
// ranked course list: free slots, exclusions, time-of-day, course type,
// credit tier, in that order. Each filter is a no-op when its Instructions
// field is empty.
func ApplyInstructions(courses []*core.CourseRecord, instructions *core.Instructions) []*core.CourseRecord {
	if instructions == nil {
		return courses
	}
	courses = filterFreeSlots(courses, instructions.FreeTimeSlots)
	courses = filterExcludes(courses, instructions.ExcludeKeywords)
	courses = filterTimeOfDay(courses, instructions.TimeOfDayPeriods)
	courses = filterCourseType(courses, instructions.CourseTypeFilters)
	courses = filterCreditTier(courses, instructions.CreditTiers)
	return courses
}

// filterFreeSlots keeps courses that occupy at least one free slot.
func filterFreeSlots(courses []*core.CourseRecord, free []string) []*core.CourseRecord {
	if len(free) == 0 {
		return courses
	}
	freeSet := make(map[string]bool, len(free))
	for _, slot := range free {
		freeSet[slot] = true
	}
	return keep(courses, func(c *core.CourseRecord) bool {
		for _, slot := range TimeSlots(c.Time) {
			if freeSet[slot] {
				return true
			}
		}
		return false
	})
}

// filterExcludes drops courses whose name, teacher, department, type, code or
// time contains any excluded keyword.
func filterExcludes(courses []*core.CourseRecord, excludes []string) []*core.CourseRecord {
	if len(excludes) == 0 {
		return courses
	}
	return keep(courses, func(c *core.CourseRecord) bool {
		fields := []string{c.Name, c.Teacher, c.DeptName, c.Type, c.Code, c.Time}
		for _, exclude := range excludes {
			kw := strings.ToLower(exclude)
			for _, field := range fields {
				if field != "" && strings.Contains(strings.ToLower(field), kw) {
					return false
				}
			}
		}
		return true
	})
}

// filterTimeOfDay keeps courses whose time code contains any of the requested
// period symbols.
func filterTimeOfDay(courses []*core.CourseRecord, periods []string) []*core.CourseRecord {
	if len(periods) == 0 {
		return courses
	}
	return keep(courses, func(c *core.CourseRecord) bool {
		if c.Time == "" {
			return false
		}
		for _, p := range periods {
			if strings.Contains(c.Time, p) {
				return true
			}
		}
		return false
	})
}

// filterCourseType keeps courses matching any requested course type.
// General education is recognized via path text, never via the course-type
// field: some general-education courses carry "選修" or "核心" there.
func filterCourseType(courses []*core.CourseRecord, filters []core.CourseTypeFilter) []*core.CourseRecord {
	if len(filters) == 0 {
		return courses
	}
	return keep(courses, func(c *core.CourseRecord) bool {
		for _, f := range filters {
			if f == core.CourseTypeGeneralEdu {
				if isGeneralEducation(c) {
					return true
				}
				continue
			}
			if c.Type != "" && strings.Contains(c.Type, string(f)) {
				return true
			}
		}
		return false
	})
}

func isGeneralEducation(c *core.CourseRecord) bool {
	for _, p := range c.Paths {
		typeText := strings.ToLower(p.Type)
		categoryText := strings.ToLower(p.Category)
		collegeText := strings.ToLower(p.College)
		if strings.Contains(typeText, "核心課程") ||
			strings.Contains(typeText, "通識") ||
			strings.Contains(categoryText, "核心課程") ||
			strings.Contains(categoryText, "通識") ||
			strings.Contains(typeText, "學士班共同課程") ||
			strings.Contains(collegeText, "通識") {
			return true
		}
	}
	return false
}

// filterCreditTier keeps courses matching any requested tier: low is 1-2
// credits, high is 3 or more.
func filterCreditTier(courses []*core.CourseRecord, tiers []core.CreditTier) []*core.CourseRecord {
	if len(tiers) == 0 {
		return courses
	}
	return keep(courses, func(c *core.CourseRecord) bool {
		for _, tier := range tiers {
			switch tier {
			case core.CreditTierLow:
				if c.Credits >= 1 && c.Credits <= 2 {
					return true
				}
			case core.CreditTierHigh:
				if c.Credits >= 3 {
					return true
				}
			}
		}
		return false
	})
}

func keep(courses []*core.CourseRecord, pred func(*core.CourseRecord) bool) []*core.CourseRecord {
	out := make([]*core.CourseRecord, 0, len(courses))
	for _, c := range courses {
		if pred(c) {
			out = append(out, c)
		}
	}
	return out
}
