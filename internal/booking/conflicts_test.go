package booking

import (
	"testing"
	"time"
)

func slotOn(date time.Time, start, end string) Slot {
	return Slot{Date: date, Start: start, End: end}
}

func apptOn(date time.Time, start, end string, status AppointmentStatus) Appointment {
	return Appointment{Date: date, Start: start, End: end, Status: status}
}

func TestResolveConflicts_RemovesOverlapping(t *testing.T) {
	day := time.Date(2026, time.September, 8, 0, 0, 0, 0, time.UTC)
	now := day.AddDate(0, 0, -1) // all candidates are in the future

	candidates := []Slot{
		slotOn(day, "09:00", "10:00"),
		slotOn(day, "10:00", "11:00"),
		slotOn(day, "11:00", "12:00"),
	}
	booked := []Appointment{
		// 09:30-10:30 overlaps both the 09:00 and 10:00 candidates
		apptOn(day, "09:30", "10:30", StatusConfirmed),
	}

	free := ResolveConflicts(candidates, booked, now)

	if len(free) != 1 {
		t.Fatalf("expected 1 free slot, got %d: %v", len(free), free)
	}
	if free[0].Start != "11:00" {
		t.Fatalf("expected 11:00 slot to survive, got %s", free[0].Start)
	}
}

func TestResolveConflicts_HalfOpenBoundariesTouchButDoNotOverlap(t *testing.T) {
	day := time.Date(2026, time.September, 8, 0, 0, 0, 0, time.UTC)
	now := day.AddDate(0, 0, -1)

	candidates := []Slot{
		slotOn(day, "09:00", "10:00"),
		slotOn(day, "11:00", "12:00"),
	}
	booked := []Appointment{
		// [10:00, 11:00) shares endpoints with both candidates
		apptOn(day, "10:00", "11:00", StatusPendingPayment),
	}

	free := ResolveConflicts(candidates, booked, now)

	if len(free) != 2 {
		t.Fatalf("adjacent slots must not conflict, got %d free: %v", len(free), free)
	}
}

func TestResolveConflicts_DropsPastStartsOnCurrentDate(t *testing.T) {
	day := time.Date(2026, time.September, 8, 0, 0, 0, 0, time.UTC)
	now := day.Add(10*time.Hour + 30*time.Minute) // 10:30 on the same date

	candidates := []Slot{
		slotOn(day, "09:00", "10:00"),
		slotOn(day, "10:30", "11:30"), // start == now, not strictly after
		slotOn(day, "11:00", "12:00"),
	}

	free := ResolveConflicts(candidates, nil, now)

	if len(free) != 1 {
		t.Fatalf("expected 1 future slot, got %d: %v", len(free), free)
	}
	if free[0].Start != "11:00" {
		t.Fatalf("expected 11:00 slot, got %s", free[0].Start)
	}
}

func TestResolveConflicts_OtherDatesUnaffectedByClock(t *testing.T) {
	today := time.Date(2026, time.September, 8, 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)
	now := today.Add(23 * time.Hour)

	candidates := []Slot{
		slotOn(tomorrow, "09:00", "10:00"),
	}

	free := ResolveConflicts(candidates, nil, now)

	if len(free) != 1 {
		t.Fatalf("tomorrow's morning slot must survive a late clock today, got %v", free)
	}
}

// No two returned slots may overlap each other or any booked appointment.
func TestResolveConflicts_NoOverlapProperty(t *testing.T) {
	day := time.Date(2026, time.September, 8, 0, 0, 0, 0, time.UTC)
	now := day.AddDate(0, 0, -1)

	tpl := &ScheduleTemplate{
		Days: allDaysEnabled(
			TimeBlock{Start: "08:00", End: "13:00"},
			TimeBlock{Start: "14:00", End: "19:45"},
		),
	}
	candidates := ExpandTemplate(tpl, day, 3, 60*time.Minute, 45*time.Minute)

	booked := []Appointment{
		apptOn(day, "08:30", "09:30", StatusConfirmed),
		apptOn(day, "15:00", "16:00", StatusPendingPayment),
		apptOn(day.AddDate(0, 0, 1), "10:00", "11:00", StatusPaymentUploaded),
	}

	free := ResolveConflicts(candidates, booked, now)

	intervals := make([]Appointment, 0, len(free)+len(booked))
	intervals = append(intervals, booked...)
	for _, s := range free {
		intervals = append(intervals, apptOn(s.Date, s.Start, s.End, StatusPendingPayment))
	}

	for i := 0; i < len(intervals); i++ {
		for j := i + 1; j < len(intervals); j++ {
			a, b := intervals[i], intervals[j]
			if !sameDate(a.Date, b.Date) {
				continue
			}
			aStart, _ := parseClock(a.Start)
			aEnd, _ := parseClock(a.End)
			bStart, _ := parseClock(b.Start)
			bEnd, _ := parseClock(b.End)
			if aStart < bEnd && bStart < aEnd {
				t.Fatalf("overlap between %s %s-%s and %s %s-%s",
					a.Date.Format(dateLayout), a.Start, a.End,
					b.Date.Format(dateLayout), b.Start, b.End)
			}
		}
	}
}

func TestGroupByDate_OmitsEmptyDatesAndGroups(t *testing.T) {
	d1 := time.Date(2026, time.September, 8, 0, 0, 0, 0, time.UTC)
	d3 := d1.AddDate(0, 0, 2)

	slots := []Slot{
		slotOn(d1, "09:00", "10:00"),
		slotOn(d1, "10:00", "11:00"),
		// nothing on d1+1
		slotOn(d3, "14:00", "15:00"),
	}

	days := GroupByDate(slots)

	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d: %v", len(days), days)
	}
	if days[0].Date != "2026-09-08" || len(days[0].Slots) != 2 {
		t.Fatalf("unexpected first day %v", days[0])
	}
	if days[1].Date != "2026-09-10" || len(days[1].Slots) != 1 {
		t.Fatalf("unexpected second day %v", days[1])
	}
}

func TestGroupByDate_Empty(t *testing.T) {
	if got := GroupByDate(nil); len(got) != 0 {
		t.Fatalf("expected no days, got %v", got)
	}
}
