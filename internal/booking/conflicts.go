package booking

import "time"

// ResolveConflicts removes candidate slots that overlap any of the
// provider's existing non-cancelled appointments, and, on the current
// date, any candidate whose start is not strictly after now. Candidates
// that fail to parse are dropped.
//
// Cancelled appointments must be filtered out by the caller (the
// repository window query already excludes them).
func ResolveConflicts(candidates []Slot, booked []Appointment, now time.Time) []Slot {
	nowMin := now.Hour()*60 + now.Minute()

	var free []Slot
	for _, c := range candidates {
		cStart, err := parseClock(c.Start)
		if err != nil {
			continue
		}
		cEnd, err := parseClock(c.End)
		if err != nil {
			continue
		}

		if sameDate(c.Date, now) && cStart <= nowMin {
			continue
		}

		if overlapsAny(c.Date, cStart, cEnd, booked) {
			continue
		}

		free = append(free, c)
	}

	return free
}

func overlapsAny(date time.Time, start, end int, booked []Appointment) bool {
	for _, appt := range booked {
		if !sameDate(appt.Date, date) {
			continue
		}

		bStart, err := parseClock(appt.Start)
		if err != nil {
			continue
		}
		bEnd, err := parseClock(appt.End)
		if err != nil {
			continue
		}

		// Half-open intervals: [start,end) overlaps [bStart,bEnd) iff
		// start < bEnd && bStart < end.
		if start < bEnd && bStart < end {
			return true
		}
	}
	return false
}

// GroupByDate folds an ordered slot list into the per-date shape the API
// returns. Dates without slots are omitted entirely.
func GroupByDate(slots []Slot) []DayAvailability {
	var out []DayAvailability
	for _, s := range slots {
		date := s.Date.Format(dateLayout)
		if len(out) == 0 || out[len(out)-1].Date != date {
			out = append(out, DayAvailability{Date: date})
		}
		last := &out[len(out)-1]
		last.Slots = append(last.Slots, SlotTime{Start: s.Start, End: s.End})
	}
	return out
}
