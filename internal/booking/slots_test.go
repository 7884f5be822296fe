package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func allDaysEnabled(blocks ...TimeBlock) map[time.Weekday]DayTemplate {
	days := make(map[time.Weekday]DayTemplate)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		days[wd] = DayTemplate{Enabled: true, Blocks: blocks}
	}
	return days
}

func mustDate(t *testing.T, year int, month time.Month, day int) time.Time {
	t.Helper()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestExpandTemplate_WalksBlockInSessionIncrements(t *testing.T) {
	tpl := &ScheduleTemplate{
		ProviderID: uuid.New(),
		Days:       allDaysEnabled(TimeBlock{Start: "09:00", End: "12:00"}),
	}

	// Monday
	start := mustDate(t, 2026, time.September, 7)
	slots := ExpandTemplate(tpl, start, 1, 60*time.Minute, 45*time.Minute)

	want := []struct{ start, end string }{
		{"09:00", "10:00"},
		{"10:00", "11:00"},
		{"11:00", "12:00"},
	}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d: %v", len(want), len(slots), slots)
	}
	for i, w := range want {
		if slots[i].Start != w.start || slots[i].End != w.end {
			t.Fatalf("slot %d: expected %s-%s, got %s-%s", i, w.start, w.end, slots[i].Start, slots[i].End)
		}
		if !slots[i].Date.Equal(start) {
			t.Fatalf("slot %d: expected date %s, got %s", i, start, slots[i].Date)
		}
	}
}

func TestExpandTemplate_TailRule(t *testing.T) {
	cases := []struct {
		name    string
		block   TimeBlock
		wantLen int
		lastEnd string
	}{
		// 90 minute block: one full session, 30 minute remainder discarded (< 45)
		{"remainder below min tail", TimeBlock{Start: "09:00", End: "10:30"}, 1, "10:00"},
		// 105 minute block: one full session plus a 45 minute tail
		{"remainder at min tail", TimeBlock{Start: "09:00", End: "10:45"}, 2, "10:45"},
		// 80 minute block: 20 minute remainder discarded
		{"short remainder", TimeBlock{Start: "09:00", End: "10:20"}, 1, "10:00"},
		// 50 minute block: no full session and no viable tail
		{"block shorter than tail floor", TimeBlock{Start: "09:00", End: "09:40"}, 0, ""},
		// 45 minute block: no full session but a viable tail
		{"block exactly min tail", TimeBlock{Start: "09:00", End: "09:45"}, 1, "09:45"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tpl := &ScheduleTemplate{Days: allDaysEnabled(tc.block)}
			slots := ExpandTemplate(tpl, mustDate(t, 2026, time.September, 7), 1, 60*time.Minute, 45*time.Minute)

			if len(slots) != tc.wantLen {
				t.Fatalf("expected %d slots, got %d: %v", tc.wantLen, len(slots), slots)
			}
			if tc.wantLen > 0 && slots[len(slots)-1].End != tc.lastEnd {
				t.Fatalf("expected last slot to end at %s, got %s", tc.lastEnd, slots[len(slots)-1].End)
			}
		})
	}
}

func TestExpandTemplate_SkipsDisabledAndAbsentDays(t *testing.T) {
	tpl := &ScheduleTemplate{
		Days: map[time.Weekday]DayTemplate{
			time.Monday:  {Enabled: true, Blocks: []TimeBlock{{Start: "09:00", End: "11:00"}}},
			time.Tuesday: {Enabled: false, Blocks: []TimeBlock{{Start: "09:00", End: "11:00"}}},
			// Wednesday absent entirely
		},
	}

	// Monday through Wednesday
	slots := ExpandTemplate(tpl, mustDate(t, 2026, time.September, 7), 3, 60*time.Minute, 45*time.Minute)

	if len(slots) != 2 {
		t.Fatalf("expected 2 slots (Monday only), got %d: %v", len(slots), slots)
	}
	for _, s := range slots {
		if s.Date.Weekday() != time.Monday {
			t.Fatalf("expected only Monday slots, got %s", s.Date.Weekday())
		}
	}
}

func TestExpandTemplate_ChronologicalAcrossDates(t *testing.T) {
	tpl := &ScheduleTemplate{
		Days: allDaysEnabled(
			TimeBlock{Start: "14:00", End: "16:00"},
			TimeBlock{Start: "09:00", End: "10:00"},
		),
	}

	slots := ExpandTemplate(tpl, mustDate(t, 2026, time.September, 7), 3, 60*time.Minute, 45*time.Minute)

	for i := 1; i < len(slots); i++ {
		prev, cur := slots[i-1], slots[i]
		if cur.Date.Before(prev.Date) {
			t.Fatalf("dates out of order at %d: %s before %s", i, cur.Date, prev.Date)
		}
		if cur.Date.Equal(prev.Date) && cur.Start < prev.End {
			t.Fatalf("slots out of order within %s: %s-%s after %s-%s",
				cur.Date.Format(dateLayout), cur.Start, cur.End, prev.Start, prev.End)
		}
	}
}

func TestExpandTemplate_Deterministic(t *testing.T) {
	tpl := &ScheduleTemplate{
		Days: allDaysEnabled(
			TimeBlock{Start: "09:00", End: "12:30"},
			TimeBlock{Start: "14:00", End: "15:45"},
		),
	}
	start := mustDate(t, 2026, time.September, 7)

	first := ExpandTemplate(tpl, start, 14, 60*time.Minute, 45*time.Minute)
	second := ExpandTemplate(tpl, start, 14, 60*time.Minute, 45*time.Minute)

	if len(first) != len(second) {
		t.Fatalf("expected identical output, got %d vs %d slots", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("slot %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestExpandTemplate_IgnoresMalformedBlocks(t *testing.T) {
	tpl := &ScheduleTemplate{
		Days: allDaysEnabled(
			TimeBlock{Start: "9am", End: "noon"},
			TimeBlock{Start: "15:00", End: "14:00"},
			TimeBlock{Start: "10:00", End: "11:00"},
		),
	}

	slots := ExpandTemplate(tpl, mustDate(t, 2026, time.September, 7), 1, 60*time.Minute, 45*time.Minute)

	if len(slots) != 1 {
		t.Fatalf("expected 1 slot from the one valid block, got %d: %v", len(slots), slots)
	}
	if slots[0].Start != "10:00" || slots[0].End != "11:00" {
		t.Fatalf("unexpected slot %v", slots[0])
	}
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"9:30", 0, true},
		{"12-30", 0, true},
		{"09:3a", 0, true},
		{"0a:30", 0, true},
		{"", 0, true},
	}

	for _, tc := range cases {
		got, err := parseClock(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseClock(%q): expected error, got %d", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseClock(%q): unexpected error %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parseClock(%q): expected %d, got %d", tc.in, tc.want, got)
		}
		if formatClock(got) != tc.in {
			t.Fatalf("formatClock(%d): expected %q, got %q", got, tc.in, formatClock(got))
		}
	}
}

func TestDateOfNormalizesAcrossZones(t *testing.T) {
	want, err := time.Parse(dateLayout, "2026-03-14")
	if err != nil {
		t.Fatal(err)
	}

	zones := []*time.Location{
		time.UTC,
		time.FixedZone("UTC-5", -5*3600),
		time.FixedZone("UTC+9", 9*3600),
	}
	for _, loc := range zones {
		in := time.Date(2026, 3, 14, 23, 30, 0, 0, loc)
		if got := dateOf(in); !got.Equal(want) {
			t.Fatalf("dateOf(%v): expected %v, got %v", in, want, got)
		}
	}
}
