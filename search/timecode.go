package search

import (
	"sort"
	"strings"
)

const (
	weekdayOrder = "MTWRFSU"
	periodOrder  = "123456789nabcd"
	// slotDays and slotPeriods span the timetable grid used for free-slot
	// computation. The noon period is excluded; it is not a schedulable slot.
	slotDays    = "MTWRF"
	slotPeriods = "123456789abcd"
)

// TimeSlots expands a compact time code into individual slots, e.g.
// "M12,T3" yields ["M1", "M2", "T3"]. Symbols outside the weekday/period
// alphabet are skipped.
func TimeSlots(code string) []string {
	var slots []string
	var day rune
	for _, r := range code {
		switch {
		case strings.ContainsRune(weekdayOrder, r):
			day = r
		case strings.ContainsRune(periodOrder, r) && day != 0:
			slots = append(slots, string(day)+string(r))
		}
	}
	return slots
}

// FormatSlots renders slots back into a compact per-day time code,
// e.g. ["M1", "M2", "T3"] yields "M12,T3". Days appear in weekday order,
// periods in period order.
func FormatSlots(slots []string) string {
	byDay := make(map[byte][]byte)
	for _, slot := range slots {
		if len(slot) < 2 {
			continue
		}
		byDay[slot[0]] = append(byDay[slot[0]], slot[1])
	}

	var parts []string
	for i := 0; i < len(weekdayOrder); i++ {
		day := weekdayOrder[i]
		periods, ok := byDay[day]
		if !ok {
			continue
		}
		sort.Slice(periods, func(a, b int) bool {
			return strings.IndexByte(periodOrder, periods[a]) < strings.IndexByte(periodOrder, periods[b])
		})
		parts = append(parts, string(day)+string(periods))
	}
	return strings.Join(parts, ",")
}

// FreeSlots returns every timetable slot not present in occupied, in grid
// order (Monday through Friday, periods 1-9 and a-d).
func FreeSlots(occupied []string) []string {
	taken := make(map[string]bool, len(occupied))
	for _, slot := range occupied {
		taken[slot] = true
	}

	var free []string
	for i := 0; i < len(slotDays); i++ {
		for j := 0; j < len(slotPeriods); j++ {
			slot := string(slotDays[i]) + string(slotPeriods[j])
			if !taken[slot] {
				free = append(free, slot)
			}
		}
	}
	return free
}
