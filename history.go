package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

const selectDayRowsSQL = `SELECT date, target_kcal, eaten_kcal, burned_kcal,
	protein_g, carbs_g, fat_g, water_ml, deficit_status, xp_earned, is_completed
 FROM daily_logs
 WHERE user_id = @userID AND date >= @start AND date <= @end
 ORDER BY date ASC`

// currentMonday returns the Monday of the week containing now's calendar date,
// as a UTC-midnight date. The date is read in now's own location, the same
// way the daily ledger decides which day an entry belongs to.
// Uses AddDate to safely handle month/year boundaries; direct day subtraction
// can produce day=0 or negative, which time.Date normalizes but is confusing.
func currentMonday(now time.Time) time.Time {
	day := truncateDay(now)
	weekday := int(day.Weekday()) // 0=Sun
	if weekday == 0 {
		weekday = 7 // treat Sunday as day 7 so Mon=1..Sun=7
	}
	return day.AddDate(0, 0, -(weekday - 1))
}

// daySummaryFromRow derives net and remaining calories for a stored day.
func daySummaryFromRow(r dayDBRow) daySummary {
	net := r.EatenKcal - r.BurnedKcal
	return daySummary{
		Date:          r.Date,
		TargetKcal:    r.TargetKcal,
		EatenKcal:     r.EatenKcal,
		BurnedKcal:    r.BurnedKcal,
		NetCalories:   net,
		CaloriesLeft:  r.TargetKcal + r.BurnedKcal - r.EatenKcal,
		ProteinG:      r.ProteinG,
		CarbsG:        r.CarbsG,
		FatG:          r.FatG,
		WaterMl:       r.WaterMl,
		DeficitStatus: DeficitStatus(r.DeficitStatus),
		XPEarned:      r.XPEarned,
		HasData:       true,
	}
}

// fillWeek builds a full 7-day slice starting at weekStart, using stored rows
// where present and an empty Pending day (with the current target) elsewhere.
func fillWeek(weekStart time.Time, rows []dayDBRow, targetKcal int) []daySummary {
	rowByDate := make(map[string]dayDBRow, len(rows))
	for _, r := range rows {
		rowByDate[r.Date.Time.Format("2006-01-02")] = r
	}

	result := make([]daySummary, 7)
	for i := 0; i < 7; i++ {
		d := weekStart.AddDate(0, 0, i)
		if row, ok := rowByDate[d.Format("2006-01-02")]; ok {
			result[i] = daySummaryFromRow(row)
			continue
		}
		result[i] = daySummary{
			Date:          DateOnly{d},
			TargetKcal:    targetKcal,
			CaloriesLeft:  targetKcal,
			DeficitStatus: StatusPending,
		}
	}
	return result
}

// summarizeProgress aggregates stored days. A day is on target when it
// finished Perfect or Good.
func summarizeProgress(rows []dayDBRow) progressResponse {
	days := make([]daySummary, 0, len(rows))
	var stats progressStats
	for _, row := range rows {
		day := daySummaryFromRow(row)
		days = append(days, day)
		stats.DaysTracked++
		if day.DeficitStatus == StatusPerfect || day.DeficitStatus == StatusGood {
			stats.DaysOnTarget++
		}
		if row.IsCompleted {
			stats.DaysCompleted++
		}
		stats.AvgEatenKcal += day.EatenKcal
		stats.AvgBurnedKcal += day.BurnedKcal
		stats.AvgNetCalories += day.NetCalories
		stats.TotalCaloriesLeft += day.CaloriesLeft
		stats.TotalXP += day.XPEarned
	}

	// Convert totals to averages.
	if stats.DaysTracked > 0 {
		stats.AvgEatenKcal /= stats.DaysTracked
		stats.AvgBurnedKcal /= stats.DaysTracked
		stats.AvgNetCalories /= stats.DaysTracked
	}
	return progressResponse{Days: days, Stats: stats}
}

// getWeekSummary returns per-day totals for the Mon–Sun week containing
// week_start. Days with no stored log are included with has_data=false.
// GET /api/daily-log/week-summary?week_start=YYYY-MM-DD (defaults to current week).
func (h *Handler) getWeekSummary(c *gin.Context) {
	userID := c.GetInt("user_id")

	// Parse week_start; default to the current Monday.
	var weekStart time.Time
	if s := c.Query("week_start"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			apiError(c, http.StatusBadRequest, "invalid week_start, expected YYYY-MM-DD")
			return
		}
		weekStart = t
	} else {
		weekStart = currentMonday(h.clock())
	}
	weekEnd := weekStart.AddDate(0, 0, 6)

	p, err := h.loadProfile(c, userID)
	if err != nil {
		profileError(c, "getWeekSummary", err)
		return
	}

	rows, err := queryMany[dayDBRow](h.db, c, selectDayRowsSQL, pgx.NamedArgs{
		"userID": userID,
		"start":  weekStart.Format("2006-01-02"),
		"end":    weekEnd.Format("2006-01-02"),
	})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch week data")
		return
	}

	c.JSON(http.StatusOK, fillWeek(weekStart, rows, p.targets().TargetsOrDefault().TargetCalories))
}

// getProgress returns stored days and aggregate stats for an arbitrary range.
// GET /api/daily-log/progress?start=YYYY-MM-DD&end=YYYY-MM-DD. Both params required.
// Only days with a stored log are returned (no gap-filling, the frontend handles that).
func (h *Handler) getProgress(c *gin.Context) {
	userID := c.GetInt("user_id")
	start := c.Query("start")
	end := c.Query("end")

	if start == "" || end == "" {
		apiError(c, http.StatusBadRequest, "start and end query params are required")
		return
	}
	if _, err := time.Parse("2006-01-02", start); err != nil {
		apiError(c, http.StatusBadRequest, "invalid start, expected YYYY-MM-DD")
		return
	}
	if _, err := time.Parse("2006-01-02", end); err != nil {
		apiError(c, http.StatusBadRequest, "invalid end, expected YYYY-MM-DD")
		return
	}
	if start > end {
		apiError(c, http.StatusBadRequest, "start must not be after end")
		return
	}

	rows, err := queryMany[dayDBRow](h.db, c, selectDayRowsSQL,
		pgx.NamedArgs{"userID": userID, "start": start, "end": end})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch progress data")
		return
	}

	c.JSON(http.StatusOK, summarizeProgress(rows))
}
