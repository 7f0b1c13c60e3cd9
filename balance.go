package main

import "math"

// runningKcalPerMinute approximates moderate running for the "earn this meal" hint.
const runningKcalPerMinute = 10

// calorieBalance is the dashboard view of today's budget. The budget grows
// with exercise: TotalBudget = TargetKcal + BurnedKcal.
type calorieBalance struct {
	TargetKcal     int           `json:"target_kcal"`
	BurnedKcal     int           `json:"burned_kcal"`
	EatenKcal      int           `json:"eaten_kcal"`
	TotalBudget    int           `json:"total_budget"`
	Remaining      int           `json:"remaining"`
	NetCalories    int           `json:"net_calories"`
	PercentageUsed float64       `json:"percentage_used"`
	Status         DeficitStatus `json:"status"`
}

func computeBalance(d DailyLog) calorieBalance {
	budget := d.TargetKcal + d.BurnedKcal
	pct, _ := percentUsed(d.EatenKcal, d.TargetKcal, d.BurnedKcal)
	return calorieBalance{
		TargetKcal:     d.TargetKcal,
		BurnedKcal:     d.BurnedKcal,
		EatenKcal:      d.EatenKcal,
		TotalBudget:    budget,
		Remaining:      budget - d.EatenKcal,
		NetCalories:    d.EatenKcal - d.BurnedKcal,
		PercentageUsed: pct,
		Status:         d.DeficitStatus,
	}
}

// mealAffordance answers whether a prospective meal fits the remaining budget,
// and if not, how much exercise would cover the difference.
type mealAffordance struct {
	MealKcal           int  `json:"meal_kcal"`
	CanAfford          bool `json:"can_afford"`
	RemainingAfter     int  `json:"remaining_after"`
	ExerciseNeededKcal int  `json:"exercise_needed_kcal"`
	RunningMinutes     int  `json:"running_minutes"`
}

func affordMeal(b calorieBalance, mealKcal int) mealAffordance {
	after := b.Remaining - mealKcal
	a := mealAffordance{MealKcal: mealKcal, CanAfford: after >= 0, RemainingAfter: after}
	if !a.CanAfford {
		a.ExerciseNeededKcal = -after
		a.RunningMinutes = int(math.Ceil(float64(a.ExerciseNeededKcal) / runningKcalPerMinute))
	}
	return a
}
