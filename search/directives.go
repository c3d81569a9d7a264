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
	"fmt"
	"strings"

	"github.com/poiesic/coursefinder/core"
)

// DirectiveKind identifies one bracketed directive token. The vocabulary is
// closed; unrecognized bracketed text passes through as literal text.
type DirectiveKind int

const (
	DirectiveLiteral DirectiveKind = iota
	DirectiveFreeTime
	DirectiveExclude
	DirectiveMorning
	DirectiveAfternoon
	DirectiveEvening
	DirectiveRequired
	DirectiveElective
	DirectiveGeneralEdu
	DirectiveLowCredit
	DirectiveHighCredit
)

var directiveVocabulary = map[string]DirectiveKind{
	"空堂":  DirectiveFreeTime,
	"空閒":  DirectiveFreeTime,
	"有空":  DirectiveFreeTime,
	"除了":  DirectiveExclude,
	"上午":  DirectiveMorning,
	"下午":  DirectiveAfternoon,
	"晚上":  DirectiveEvening,
	"必修":  DirectiveRequired,
	"選修":  DirectiveElective,
	"通識":  DirectiveGeneralEdu,
	"低學分": DirectiveLowCredit,
	"高學分": DirectiveHighCredit,
}

// directiveToken is one lexed unit of the query: a recognized directive or a
// run of literal text.
type directiveToken struct {
	Kind    DirectiveKind
	Literal string // raw text as it appeared in the query
	Arg     string // exclude payload: text up to the next token
}

// tokenizeDirectives lexes a query into literal runs and directive tokens.
// An exclude directive consumes the text following it up to the next brace
// or end of input.
func tokenizeDirectives(query string) []directiveToken {
	var tokens []directiveToken
	rest := query
	for len(rest) > 0 {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			tokens = append(tokens, directiveToken{Kind: DirectiveLiteral, Literal: rest})
			break
		}
		if open > 0 {
			tokens = append(tokens, directiveToken{Kind: DirectiveLiteral, Literal: rest[:open]})
			rest = rest[open:]
		}
		closing := strings.IndexByte(rest, '}')
		if closing < 0 {
			tokens = append(tokens, directiveToken{Kind: DirectiveLiteral, Literal: rest})
			break
		}

		name := rest[1:closing]
		rest = rest[closing+1:]
		kind, ok := directiveVocabulary[name]
		if !ok {
			tokens = append(tokens, directiveToken{Kind: DirectiveLiteral, Literal: "{" + name + "}"})
			continue
		}

		tok := directiveToken{Kind: kind, Literal: "{" + name + "}"}
		if kind == DirectiveExclude {
			end := strings.IndexByte(rest, '{')
			if end < 0 {
				end = len(rest)
			}
			tok.Arg = strings.TrimSpace(rest[:end])
			rest = rest[end:]
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Preprocess scans the raw query for directive tokens, rewrites each into a
// natural-language description so attribute extraction still receives plain
// text, and records the directives into Instructions. Deterministic and
// oracle-free. The occupied argument is the user's personal-timetable
// occupancy as "<weekday><period>" slots.
func Preprocess(query string, occupied []string) (string, *core.Instructions) {
	instructions := &core.Instructions{}
	tokens := tokenizeDirectives(query)

	seen := make(map[DirectiveKind]bool)
	var out strings.Builder
	for _, tok := range tokens {
		switch tok.Kind {
		case DirectiveLiteral:
			out.WriteString(tok.Literal)

		case DirectiveFreeTime:
			if !seen[tok.Kind] {
				instructions.FreeTimeRequested = true
				instructions.FreeTimeSlots = FreeSlots(occupied)
			}
			if len(instructions.FreeTimeSlots) > 0 {
				fmt.Fprintf(&out, "我的空堂時間（共 %d 個時段）", len(instructions.FreeTimeSlots))
			} else {
				out.WriteString("（課表已滿，沒有空堂）")
			}

		case DirectiveExclude:
			if tok.Arg != "" {
				instructions.ExcludeKeywords = append(instructions.ExcludeKeywords, tok.Arg)
			}
			fmt.Fprintf(&out, "（排除：%s）", tok.Arg)

		case DirectiveMorning:
			if !seen[tok.Kind] {
				instructions.TimeOfDayPeriods = append(instructions.TimeOfDayPeriods, "1", "2", "3", "4", "n")
			}
			out.WriteString("上午時段（1-4、n節）")

		case DirectiveAfternoon:
			if !seen[tok.Kind] {
				instructions.TimeOfDayPeriods = append(instructions.TimeOfDayPeriods, "5", "6", "7", "8", "9")
			}
			out.WriteString("下午時段（5-9節）")

		case DirectiveEvening:
			if !seen[tok.Kind] {
				instructions.TimeOfDayPeriods = append(instructions.TimeOfDayPeriods, "a", "b", "c")
			}
			out.WriteString("晚上時段（a-c節）")

		case DirectiveRequired:
			if !seen[tok.Kind] {
				instructions.CourseTypeFilters = append(instructions.CourseTypeFilters, core.CourseTypeRequired)
			}
			out.WriteString("必修課程")

		case DirectiveElective:
			if !seen[tok.Kind] {
				instructions.CourseTypeFilters = append(instructions.CourseTypeFilters, core.CourseTypeElective)
			}
			out.WriteString("選修課程")

		case DirectiveGeneralEdu:
			if !seen[tok.Kind] {
				instructions.CourseTypeFilters = append(instructions.CourseTypeFilters, core.CourseTypeGeneralEdu)
			}
			out.WriteString("通識課程")

		case DirectiveLowCredit:
			if !seen[tok.Kind] {
				instructions.CreditTiers = append(instructions.CreditTiers, core.CreditTierLow)
			}
			out.WriteString("低學分課程（1-2學分）")

		case DirectiveHighCredit:
			if !seen[tok.Kind] {
				instructions.CreditTiers = append(instructions.CreditTiers, core.CreditTierHigh)
			}
			out.WriteString("高學分課程（3學分以上）")
		}
		seen[tok.Kind] = true
	}

	return out.String(), instructions
}
