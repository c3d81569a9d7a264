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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidCourseRecord indicates a CourseRecord failed validation.
	ErrInvalidCourseRecord = errors.New("invalid course record")

	// ErrEmptyCourseName indicates the course Name field is empty.
	ErrEmptyCourseName = errors.New("course name cannot be empty")

	// ErrMissingIdentifier indicates a course carries neither an id nor a code.
	ErrMissingIdentifier = errors.New("course must have an id or a code")

	// ErrInvalidTimeCode indicates a time code contains symbols outside the
	// weekday/period alphabet.
	ErrInvalidTimeCode = errors.New("invalid time code")

	// ErrUnknownAttribute indicates an attribute name outside the fixed schema.
	ErrUnknownAttribute = errors.New("unknown attribute name")

	// ErrInvalidNecessity indicates a necessity tag outside required/optional/none.
	ErrInvalidNecessity = errors.New("invalid necessity tag")

	// ErrNecessityWithoutKeywords indicates an attribute tagged required or
	// optional but carrying no keyword groups.
	ErrNecessityWithoutKeywords = errors.New("attribute with empty keyword groups must have necessity none")
)
