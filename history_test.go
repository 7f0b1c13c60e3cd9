package main

import (
	"testing"
	"time"
)

/* ─── currentMonday tests ────────────────────────────────────────────── */

// TestCurrentMonday verifies the Monday of the containing week at midnight
// UTC, including weeks that span a month or year boundary and clocks that are
// not in UTC.
func TestCurrentMonday(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		want string
	}{
		{"monday itself", time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC), "2026-03-16"},
		{"midweek", time.Date(2026, 3, 11, 23, 59, 0, 0, time.UTC), "2026-03-09"},
		{"sunday belongs to previous week", time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC), "2026-03-09"},
		{"month boundary", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), "2026-02-23"},
		{"year boundary", time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC), "2025-12-29"},
		// Sunday evening west of UTC is already Monday in UTC; the local
		// calendar date decides the week.
		{"local sunday evening", time.Date(2026, 3, 15, 22, 0, 0, 0, time.FixedZone("UTC-5", -5*3600)), "2026-03-09"},
		{"local monday morning", time.Date(2026, 3, 16, 1, 0, 0, 0, time.FixedZone("UTC+9", 9*3600)), "2026-03-16"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := currentMonday(tc.now)
			if got.Format("2006-01-02") != tc.want {
				t.Errorf("currentMonday = %s, want %s", got.Format("2006-01-02"), tc.want)
			}
			if got.Weekday() != time.Monday {
				t.Errorf("currentMonday returned %s", got.Weekday())
			}
			if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 || got.Nanosecond() != 0 {
				t.Errorf("currentMonday returned non-midnight time: %v", got)
			}
			if got.Location() != time.UTC {
				t.Errorf("currentMonday returned non-UTC location: %v", got.Location())
			}
		})
	}
}

/* ─── fillWeek / summarizeProgress tests ─────────────────────────────── */

func dayRow(date string, target, eaten, burned int, status DeficitStatus, xp int, completed bool) dayDBRow {
	d, _ := time.Parse("2006-01-02", date)
	return dayDBRow{
		Date:          DateOnly{d},
		TargetKcal:    target,
		EatenKcal:     eaten,
		BurnedKcal:    burned,
		DeficitStatus: string(status),
		XPEarned:      xp,
		IsCompleted:   completed,
	}
}

// TestFillWeek verifies stored days are used and gaps are Pending days
// carrying the current target.
func TestFillWeek(t *testing.T) {
	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	rows := []dayDBRow{
		dayRow("2026-03-09", 2000, 1950, 200, StatusPerfect, 60, true),
		dayRow("2026-03-12", 2000, 2600, 0, StatusModerate, 0, false),
	}

	week := fillWeek(monday, rows, 2100)
	if len(week) != 7 {
		t.Fatalf("expected 7 days, got %d", len(week))
	}

	mon := week[0]
	if !mon.HasData || mon.NetCalories != 1750 || mon.CaloriesLeft != 250 || mon.DeficitStatus != StatusPerfect {
		t.Errorf("monday = %+v", mon)
	}
	thu := week[3]
	if !thu.HasData || thu.CaloriesLeft != -600 {
		t.Errorf("thursday = %+v", thu)
	}

	tue := week[1]
	if tue.HasData || tue.TargetKcal != 2100 || tue.CaloriesLeft != 2100 || tue.DeficitStatus != StatusPending {
		t.Errorf("tuesday gap = %+v", tue)
	}
	if got := week[6].Date.Format("2006-01-02"); got != "2026-03-15" {
		t.Errorf("last day = %s, want 2026-03-15", got)
	}
}

// TestSummarizeProgress verifies counts, averages, and totals.
func TestSummarizeProgress(t *testing.T) {
	rows := []dayDBRow{
		dayRow("2026-03-09", 2000, 1950, 200, StatusPerfect, 60, true),
		dayRow("2026-03-10", 2000, 1800, 0, StatusGood, 40, true),
		dayRow("2026-03-11", 2000, 2700, 100, StatusFail, 0, false),
	}

	got := summarizeProgress(rows)
	want := progressStats{
		DaysTracked:       3,
		DaysOnTarget:      2,
		DaysCompleted:     2,
		AvgEatenKcal:      2150,
		AvgBurnedKcal:     100,
		AvgNetCalories:    2050,
		TotalCaloriesLeft: 250 + 200 - 600,
		TotalXP:           100,
	}
	if got.Stats != want {
		t.Errorf("stats = %+v, want %+v", got.Stats, want)
	}
	if len(got.Days) != 3 {
		t.Errorf("expected 3 days, got %d", len(got.Days))
	}
}

// TestSummarizeProgress_Empty verifies an empty range returns a non-nil day list.
func TestSummarizeProgress_Empty(t *testing.T) {
	got := summarizeProgress(nil)
	if got.Days == nil || len(got.Days) != 0 {
		t.Errorf("days = %v, want empty slice", got.Days)
	}
	if got.Stats != (progressStats{}) {
		t.Errorf("stats = %+v, want zero", got.Stats)
	}
}
