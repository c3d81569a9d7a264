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

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/poiesic/coursefinder/core"
)

// snapshotCourse mirrors one entry of the scraped registrar snapshot. The
// registrar reports credits as a decimal string and embeds classrooms in the
// time field, so both need cleanup before they become a CourseRecord.
type snapshotCourse struct {
	Code     string         `json:"code"`
	Name     string         `json:"name"`
	Teacher  string         `json:"teacher"`
	Time     string         `json:"time"`
	Credits  string         `json:"credits"`
	Room     string         `json:"room"`
	CourseID string         `json:"cos_id"`
	Year     string         `json:"acy"`
	Term     string         `json:"sem"`
	DeptID   string         `json:"dep_id"`
	DeptName string         `json:"dep_name"`
	Type     string         `json:"cos_type"`
	Memo     string         `json:"memo"`
	Paths    []snapshotPath `json:"paths"`
}

type snapshotPath struct {
	Type       string `json:"type"`
	Category   string `json:"category"`
	College    string `json:"college"`
	Department string `json:"department"`
}

// loadSnapshot reads a JSON snapshot file and converts every entry into a
// validated CourseRecord.
func loadSnapshot(path string) ([]*core.CourseRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var entries []snapshotCourse
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	courses := make([]*core.CourseRecord, 0, len(entries))
	for i, entry := range entries {
		course, err := entry.toRecord()
		if err != nil {
			return nil, fmt.Errorf("snapshot entry %d (%s): %w", i, entry.Name, err)
		}
		courses = append(courses, course)
	}
	return courses, nil
}

func (s snapshotCourse) toRecord() (*core.CourseRecord, error) {
	timeCode, rooms := splitTimeRooms(s.Time)
	room := s.Room
	if room == "" {
		room = rooms
	}

	course := &core.CourseRecord{
		CourseID: s.CourseID,
		Code:     s.Code,
		Name:     s.Name,
		Teacher:  s.Teacher,
		Time:     timeCode,
		Room:     room,
		Credits:  parseCredits(s.Credits),
		DeptID:   s.DeptID,
		DeptName: s.DeptName,
		Type:     s.Type,
		Memo:     s.Memo,
	}
	for _, p := range s.Paths {
		course.Paths = append(course.Paths, core.PathEntry{
			Type:       p.Type,
			Category:   p.Category,
			College:    p.College,
			Department: p.Department,
		})
	}

	if err := core.ValidateCourseRecord(course); err != nil {
		return nil, err
	}
	return course, nil
}

// splitTimeRooms separates the raw registrar time string into a compact time
// code and the classrooms. The raw form appends a room to each day group, e.g.
// "M56-EC015[GF],T78-EC115", and the bracketed suffix tags the building zone.
func splitTimeRooms(raw string) (string, string) {
	if raw == "" {
		return "", ""
	}
	var codes, rooms []string
	for _, segment := range strings.Split(raw, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		code, room, found := strings.Cut(segment, "-")
		codes = append(codes, code)
		if !found {
			continue
		}
		if i := strings.IndexByte(room, '['); i >= 0 {
			room = room[:i]
		}
		if room != "" {
			rooms = append(rooms, room)
		}
	}
	return strings.Join(codes, ","), strings.Join(dedupeStrings(rooms), ",")
}

// parseCredits tolerates the registrar's decimal credit strings ("3.00").
func parseCredits(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
