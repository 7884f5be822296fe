package booking

import (
	"sort"
	"time"
)

// ExpandTemplate turns a provider's recurring weekly schedule into concrete
// candidate slots over [windowStart, windowStart+days).
//
// Each enabled time block is walked from its start in session-length
// increments. A trailing remainder shorter than a session but at least
// minTail long is emitted as a final short slot; shorter remainders are
// discarded. Output is chronological within and across dates.
//
// The expansion is a pure function of (template, window, session, minTail):
// calling it twice with the same inputs yields identical output. Past
// times on the window's first date are left in; ResolveConflicts prunes
// them against the actual current instant.
func ExpandTemplate(tpl *ScheduleTemplate, windowStart time.Time, days int, session, minTail time.Duration) []Slot {
	if tpl == nil || days <= 0 || session <= 0 {
		return nil
	}
	if minTail <= 0 || minTail > session {
		minTail = session
	}

	sessionMin := int(session / time.Minute)
	tailMin := int(minTail / time.Minute)

	start := dateOf(windowStart)

	var slots []Slot
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)

		day, ok := tpl.Days[date.Weekday()]
		if !ok || !day.Enabled {
			continue
		}

		blocks := sortedBlocks(day.Blocks)
		for _, b := range blocks {
			slots = append(slots, expandBlock(date, b, sessionMin, tailMin)...)
		}
	}

	return slots
}

// expandBlock walks one time block in session-length steps. Blocks with
// unparseable or inverted bounds expand to nothing.
func expandBlock(date time.Time, block TimeBlock, sessionMin, tailMin int) []Slot {
	blockStart, err := parseClock(block.Start)
	if err != nil {
		return nil
	}
	blockEnd, err := parseClock(block.End)
	if err != nil {
		return nil
	}
	if blockEnd <= blockStart {
		return nil
	}

	var slots []Slot
	cursor := blockStart
	for cursor+sessionMin <= blockEnd {
		slots = append(slots, Slot{
			Date:  date,
			Start: formatClock(cursor),
			End:   formatClock(cursor + sessionMin),
		})
		cursor += sessionMin
	}

	// Trailing remainder: keep only if it is still a viable short session.
	if remainder := blockEnd - cursor; remainder >= tailMin {
		slots = append(slots, Slot{
			Date:  date,
			Start: formatClock(cursor),
			End:   formatClock(blockEnd),
		})
	}

	return slots
}

func sortedBlocks(blocks []TimeBlock) []TimeBlock {
	if len(blocks) < 2 {
		return blocks
	}
	out := make([]TimeBlock, len(blocks))
	copy(out, blocks)
	// "HH:MM" sorts correctly as a string
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
