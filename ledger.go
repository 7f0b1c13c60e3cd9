package main

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Macros is a gram triple. Subtraction clamps each component at zero so an
// inconsistent meal removal can never report negative grams.
type Macros struct {
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

func (m Macros) add(o Macros) Macros {
	return Macros{
		ProteinG: m.ProteinG + o.ProteinG,
		CarbsG:   m.CarbsG + o.CarbsG,
		FatG:     m.FatG + o.FatG,
	}
}

func (m Macros) sub(o Macros) Macros {
	return Macros{
		ProteinG: max(0, m.ProteinG-o.ProteinG),
		CarbsG:   max(0, m.CarbsG-o.CarbsG),
		FatG:     max(0, m.FatG-o.FatG),
	}
}

// FoodItem is one line of a Meal.
type FoodItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Kcal     int     `json:"kcal"`
	Macros   Macros  `json:"macros"`
}

// Meal is a logged meal. TotalKcal and TotalMacros are trusted as supplied;
// the ledger does not re-derive them from Items.
type Meal struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Time        string     `json:"time"`
	Items       []FoodItem `json:"items"`
	TotalKcal   int        `json:"total_kcal"`
	TotalMacros Macros     `json:"total_macros"`
}

// Exercise is a logged activity. ID and RegisteredAt are assigned by the ledger.
type Exercise struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	DurationMin  int       `json:"duration_min"`
	Intensity    Intensity `json:"intensity"`
	Kcal         int       `json:"kcal"`
	RegisteredAt time.Time `json:"registered_at"`
}

type DeficitStatus string

const (
	StatusPending  DeficitStatus = "Pending"
	StatusPerfect  DeficitStatus = "Perfect"
	StatusGood     DeficitStatus = "Good"
	StatusModerate DeficitStatus = "Moderate"
	StatusFail     DeficitStatus = "Fail"
)

// DailyLog is one user's ledger for a calendar day.
type DailyLog struct {
	Date          DateOnly      `json:"date"`
	TargetKcal    int           `json:"target_kcal"`
	TargetMacros  Macros        `json:"target_macros"`
	EatenKcal     int           `json:"eaten_kcal"`
	EatenMacros   Macros        `json:"eaten_macros"`
	Meals         []Meal        `json:"meals"`
	BurnedKcal    int           `json:"burned_kcal"`
	Exercises     []Exercise    `json:"exercises"`
	NetCalories   int           `json:"net_calories"`
	WaterMl       int           `json:"water_ml"`
	DeficitStatus DeficitStatus `json:"deficit_status"`
	DailyXPEarned int           `json:"daily_xp_earned"`
	IsCompleted   bool          `json:"is_completed"`
}

// newDailyLog returns an empty Pending log for date carrying the given targets.
func newDailyLog(date time.Time, targetKcal int, targetMacros Macros) DailyLog {
	return DailyLog{
		Date:          DateOnly{truncateDay(date)},
		TargetKcal:    targetKcal,
		TargetMacros:  targetMacros,
		Meals:         []Meal{},
		Exercises:     []Exercise{},
		DeficitStatus: StatusPending,
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

/* ─── Ledger ─────────────────────────────────────────────────────────── */

// dailyLedger is the single owner of a DailyLog. It is not safe for
// concurrent use; handlers load, mutate, and save one ledger per request.
type dailyLedger struct {
	log   DailyLog
	now   func() time.Time
	newID func() string
}

// newDailyLedger wraps an existing log. A nil clock uses time.Now.
func newDailyLedger(d DailyLog, now func() time.Time) *dailyLedger {
	if now == nil {
		now = time.Now
	}
	if d.Meals == nil {
		d.Meals = []Meal{}
	}
	if d.Exercises == nil {
		d.Exercises = []Exercise{}
	}
	if d.DeficitStatus == "" {
		d.DeficitStatus = StatusPending
	}
	return &dailyLedger{
		log:   d,
		now:   now,
		newID: func() string { return uuid.New().String() },
	}
}

// initialize starts a fresh log when the stored date is not today; otherwise it
// only swaps the targets so mid-day profile edits keep today's progress.
func (l *dailyLedger) initialize(targetKcal int, targetMacros Macros) {
	today := l.now()
	if !sameDay(l.log.Date.Time, today) {
		l.log = newDailyLog(today, targetKcal, targetMacros)
		return
	}
	l.log.TargetKcal = targetKcal
	l.log.TargetMacros = targetMacros
	l.evaluateStatus()
}

// addMeal assigns an ID and accumulates the meal's totals.
func (l *dailyLedger) addMeal(m Meal) Meal {
	m.ID = l.newID()
	if m.Items == nil {
		m.Items = []FoodItem{}
	}
	l.log.Meals = append(l.log.Meals, m)
	l.log.EatenKcal += m.TotalKcal
	l.log.EatenMacros = l.log.EatenMacros.add(m.TotalMacros)
	l.log.NetCalories = l.log.EatenKcal - l.log.BurnedKcal
	l.evaluateStatus()
	return m
}

// removeMeal reports whether a meal was removed. Unknown IDs are a no-op.
func (l *dailyLedger) removeMeal(id string) bool {
	i := slices.IndexFunc(l.log.Meals, func(m Meal) bool { return m.ID == id })
	if i < 0 {
		return false
	}
	m := l.log.Meals[i]
	l.log.Meals = slices.Delete(l.log.Meals, i, i+1)
	l.log.EatenKcal -= m.TotalKcal
	l.log.EatenMacros = l.log.EatenMacros.sub(m.TotalMacros)
	l.log.NetCalories = l.log.EatenKcal - l.log.BurnedKcal
	l.evaluateStatus()
	return true
}

// addExercise assigns an ID and registration time and accumulates burned kcal.
func (l *dailyLedger) addExercise(e Exercise) Exercise {
	e.ID = l.newID()
	e.RegisteredAt = l.now().UTC()
	l.log.Exercises = append(l.log.Exercises, e)
	l.log.BurnedKcal += e.Kcal
	l.log.NetCalories = l.log.EatenKcal - l.log.BurnedKcal
	l.evaluateStatus()
	return e
}

// removeExercise reports whether an exercise was removed. Unknown IDs are a no-op.
func (l *dailyLedger) removeExercise(id string) bool {
	i := slices.IndexFunc(l.log.Exercises, func(e Exercise) bool { return e.ID == id })
	if i < 0 {
		return false
	}
	e := l.log.Exercises[i]
	l.log.Exercises = slices.Delete(l.log.Exercises, i, i+1)
	l.log.BurnedKcal -= e.Kcal
	l.log.NetCalories = l.log.EatenKcal - l.log.BurnedKcal
	l.evaluateStatus()
	return true
}

// addWater does not affect the deficit status.
func (l *dailyLedger) addWater(ml int) {
	l.log.WaterMl += ml
}

// percentUsed returns eaten/budget as a percentage, where budget includes
// exercise. ok is false when the budget is not positive. Multiplying before
// dividing keeps whole-number percentages exact (2100*100/2000 == 105).
func percentUsed(eatenKcal, targetKcal, burnedKcal int) (pct float64, ok bool) {
	budget := targetKcal + burnedKcal
	if budget <= 0 {
		return 0, false
	}
	return float64(eatenKcal) * 100 / float64(budget), true
}

// classifyUsage maps a usage percentage to a status. Bands overlap; the
// tightest band is checked first.
func classifyUsage(pct float64) DeficitStatus {
	switch {
	case pct >= 95 && pct <= 105:
		return StatusPerfect
	case pct >= 85 && pct <= 115:
		return StatusGood
	case pct >= 70 && pct <= 130:
		return StatusModerate
	default:
		return StatusFail
	}
}

func (l *dailyLedger) evaluateStatus() {
	if l.log.EatenKcal == 0 {
		l.log.DeficitStatus = StatusPending
		return
	}
	pct, ok := percentUsed(l.log.EatenKcal, l.log.TargetKcal, l.log.BurnedKcal)
	if !ok {
		l.log.DeficitStatus = StatusPending
		return
	}
	l.log.DeficitStatus = classifyUsage(pct)
}

var statusXPBonus = map[DeficitStatus]int{
	StatusPerfect:  50,
	StatusGood:     30,
	StatusModerate: 15,
}

const (
	baseDailyXP      = 10
	fallbackXPBonus  = 5
	xpPerExercise    = 10
	waterGoalMl      = 2000
	waterGoalXPBonus = 15
)

// dailyXP is the day-completion reward for d in its current state.
func dailyXP(d DailyLog) int {
	xp := baseDailyXP
	if bonus, ok := statusXPBonus[d.DeficitStatus]; ok {
		xp += bonus
	} else {
		xp += fallbackXPBonus
	}
	xp += xpPerExercise * len(d.Exercises)
	if d.WaterMl >= waterGoalMl {
		xp += waterGoalXPBonus
	}
	return xp
}

// completeDay recomputes and stores the day's XP. granted is true only the
// first time a day is completed; callers award XP to the profile only then.
func (l *dailyLedger) completeDay() (xp int, granted bool) {
	xp = dailyXP(l.log)
	granted = !l.log.IsCompleted
	l.log.DailyXPEarned = xp
	l.log.IsCompleted = true
	return xp, granted
}

// snapshot returns a copy of the log that shares no slices with the ledger.
func (l *dailyLedger) snapshot() DailyLog {
	out := l.log
	out.Meals = slices.Clone(l.log.Meals)
	for i := range out.Meals {
		out.Meals[i].Items = slices.Clone(out.Meals[i].Items)
	}
	out.Exercises = slices.Clone(l.log.Exercises)
	return out
}
