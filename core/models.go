package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for cache entries derived from course identity.
// It is generated using content-based hashing so identical courses map to
// identical cache keys across catalog refreshes.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// PathEntry is one enrollment path of a course. A course may be offered
// through several paths (college, department, category combinations).
type PathEntry struct {
	Type       string
	Category   string
	College    string
	Department string
}

// Text joins the non-empty path fields with "/" for prompt and filter text.
func (p PathEntry) Text() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{p.Type, p.Category, p.College, p.Department} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// CourseRecord is a single catalog entry. Records are produced by the catalog
// ingestion collaborator and are read-only during a search.
type CourseRecord struct {
	CourseID   string // registrar course id; preferred identifier
	Code       string // course code, e.g. "CSCS10021"
	Name       string
	Teacher    string
	Time       string // compact time code: weekday letters + period symbols, e.g. "M56"
	Room       string
	Credits    int
	DeptID     string
	DeptName   string
	Type       string // course type text (required/elective/core); never carries general-education
	Memo       string
	Paths      []PathEntry
	Annotation string // cached search keywords produced by the enrichment collaborator; may be empty
}

// Identifier returns the course's stable identifier: CourseID when present,
// otherwise the course code.
func (c *CourseRecord) Identifier() string {
	if c.CourseID != "" {
		return c.CourseID
	}
	return c.Code
}

// CacheKey derives the annotation-cache key from the course identity tuple.
func (c *CourseRecord) CacheKey() ID {
	return IDFromContent(c.Name + "|" + c.Teacher + "|" + c.Time)
}

// PathsText joins all enrollment paths with "; " for prompt construction.
func (c *CourseRecord) PathsText() string {
	if len(c.Paths) == 0 {
		return ""
	}
	parts := make([]string, 0, len(c.Paths))
	for _, p := range c.Paths {
		if t := p.Text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "; ")
}

// Necessity governs whether an attribute can eliminate a course.
type Necessity string

const (
	// NecessityRequired attributes must match or the course is eliminated.
	NecessityRequired Necessity = "required"
	// NecessityOptional attributes contribute to ranking but never eliminate.
	NecessityOptional Necessity = "optional"
	// NecessityNone marks attributes the query does not mention.
	NecessityNone Necessity = "none"
)

// AttributeNames lists the fixed 14-attribute schema in canonical order.
var AttributeNames = []string{
	"code", "name", "teacher", "time", "credits", "room", "courseId",
	"year", "term", "memo", "courseType", "deptId", "deptName", "paths",
}

// Attribute pairs a necessity tag with keyword groups. Within a group any
// keyword may match (OR); across groups every group must be satisfied (AND).
type Attribute struct {
	Necessity Necessity
	Groups    [][]string
}

// AttributeSet maps the fixed attribute schema to extracted keyword groups.
type AttributeSet map[string]Attribute

// NewAttributeSet returns a set with every attribute present and unmentioned.
func NewAttributeSet() AttributeSet {
	s := make(AttributeSet, len(AttributeNames))
	for _, name := range AttributeNames {
		s[name] = Attribute{Necessity: NecessityNone}
	}
	return s
}

// NamedAttribute is an attribute together with its schema name, used when a
// deterministic iteration order is needed.
type NamedAttribute struct {
	Name string
	Attribute
}

// withNecessity returns attributes carrying the given necessity and at least
// one keyword group, in canonical schema order.
func (s AttributeSet) withNecessity(n Necessity) []NamedAttribute {
	out := make([]NamedAttribute, 0, len(AttributeNames))
	for _, name := range AttributeNames {
		attr, ok := s[name]
		if !ok || attr.Necessity != n || len(attr.Groups) == 0 {
			continue
		}
		out = append(out, NamedAttribute{Name: name, Attribute: attr})
	}
	return out
}

// Required returns the required attributes in canonical order.
func (s AttributeSet) Required() []NamedAttribute { return s.withNecessity(NecessityRequired) }

// Optional returns the optional attributes in canonical order.
func (s AttributeSet) Optional() []NamedAttribute { return s.withNecessity(NecessityOptional) }

// Mentioned reports whether the attribute carries keywords under a necessity
// other than none.
func (s AttributeSet) Mentioned(name string) bool {
	attr, ok := s[name]
	return ok && attr.Necessity != NecessityNone && len(attr.Groups) > 0
}

// CourseTypeFilter is a course-type directive target.
type CourseTypeFilter string

const (
	CourseTypeRequired   CourseTypeFilter = "必修"
	CourseTypeElective   CourseTypeFilter = "選修"
	CourseTypeGeneralEdu CourseTypeFilter = "通識"
)

// CreditTier is a credit-count directive target.
type CreditTier string

const (
	// CreditTierLow selects 1-2 credit courses.
	CreditTierLow CreditTier = "low"
	// CreditTierHigh selects courses worth 3 or more credits.
	CreditTierHigh CreditTier = "high"
)

// Instructions is the structured record of directive tokens found in a query.
// It is built once by the preprocessor and immutable afterwards.
type Instructions struct {
	// FreeTimeSlots holds the slots not occupied in the user's timetable,
	// format "<weekday><period>" (e.g. "M1"), sorted. Empty means the
	// free-time directive was absent or the timetable is full.
	FreeTimeSlots []string
	// FreeTimeRequested is set when a free-time directive was present, even
	// if no free slots remain.
	FreeTimeRequested bool
	ExcludeKeywords   []string
	// TimeOfDayPeriods holds period symbols ("1".."9", "n", "a".."c")
	// accumulated from time-of-day directives.
	TimeOfDayPeriods  []string
	CourseTypeFilters []CourseTypeFilter
	CreditTiers       []CreditTier
}

// ScoreRecord holds the four-component score the oracle assigns one course.
// Total is always the recomputed clamped sum, never the oracle's own figure.
type ScoreRecord struct {
	Total   int
	Quality int // 0-30
	Time    int // 0-30
	Path    int // 0-20
	Bonus   int // 0-20
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NewScoreRecord clamps each sub-score to its declared range and recomputes
// the total as their sum.
func NewScoreRecord(quality, timeScore, path, bonus int) ScoreRecord {
	r := ScoreRecord{
		Quality: clampInt(quality, 0, 30),
		Time:    clampInt(timeScore, 0, 30),
		Path:    clampInt(path, 0, 20),
		Bonus:   clampInt(bonus, 0, 20),
	}
	r.Total = r.Quality + r.Time + r.Path + r.Bonus
	return r
}

// SearchMode selects how strict the pipeline is.
type SearchMode string

const (
	// SearchModeLoose skips the precise-matching stage.
	SearchModeLoose SearchMode = "loose"
	// SearchModePrecise adds the strict attribute-matching stage.
	SearchModePrecise SearchMode = "precise"
)

// SearchResult is the pipeline output: ranked course identifiers plus a
// parallel score map. Identifiers absent from Scores were not scored (the
// legacy fallback path produces no scores).
type SearchResult struct {
	CourseIDs []string
	Scores    map[string]ScoreRecord
	Stage     Stage
	Elapsed   time.Duration
}
