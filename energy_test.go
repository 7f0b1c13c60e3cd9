package main

import (
	"errors"
	"testing"
)

// makeBiometrics returns a valid male 70kg/175cm/30y moderate profile with the
// given goal. Tests override individual fields from there.
func makeBiometrics(goal Goal) Biometrics {
	return Biometrics{
		WeightKG:      70,
		HeightCM:      175,
		AgeYears:      30,
		Sex:           SexMale,
		ActivityLevel: ActivityModerate,
		Goal:          goal,
	}
}

/* ─── End-to-end tests ───────────────────────────────────────────────── */

// TestComputeEnergyTargets_LoseWeight walks the full pipeline for a known
// profile: BMR 1649 → TDEE 2556 → target 2056 → 140g/246g/57g.
func TestComputeEnergyTargets_LoseWeight(t *testing.T) {
	got, err := computeEnergyTargets(makeBiometrics(GoalLose))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := EnergyTargets{
		BasalRate:        1649,
		TotalExpenditure: 2556,
		TargetCalories:   2056,
		Macros:           Macros{ProteinG: 140, CarbsG: 246, FatG: 57},
	}
	if got != want {
		t.Errorf("computeEnergyTargets = %+v, want %+v", got, want)
	}
}

// TestComputeEnergyTargets_Goals checks the goal offset and the per-goal
// protein and fat ratios.
func TestComputeEnergyTargets_Goals(t *testing.T) {
	cases := []struct {
		goal       Goal
		wantTarget int
		wantMacros Macros
	}{
		{GoalMaintain, 2556, Macros{ProteinG: 112, CarbsG: 347, FatG: 80}},
		{GoalGain, 2856, Macros{ProteinG: 154, CarbsG: 360, FatG: 89}},
	}

	for _, tc := range cases {
		t.Run(string(tc.goal), func(t *testing.T) {
			got, err := computeEnergyTargets(makeBiometrics(tc.goal))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.TargetCalories != tc.wantTarget {
				t.Errorf("target = %d, want %d", got.TargetCalories, tc.wantTarget)
			}
			if got.Macros != tc.wantMacros {
				t.Errorf("macros = %+v, want %+v", got.Macros, tc.wantMacros)
			}
		})
	}
}

/* ─── BMR / TDEE tests ───────────────────────────────────────────────── */

// TestComputeBasalRate_Sex verifies the +5 / -161 Mifflin-St Jeor constants.
func TestComputeBasalRate_Sex(t *testing.T) {
	if got := computeBasalRate(70, 175, 30, SexMale); got != 1649 {
		t.Errorf("male BMR = %d, want 1649", got)
	}
	if got := computeBasalRate(70, 175, 30, SexFemale); got != 1483 {
		t.Errorf("female BMR = %d, want 1483", got)
	}
}

// TestComputeTotalExpenditure_Multipliers checks every activity level for a
// fixed BMR, and that the result grows with activity.
func TestComputeTotalExpenditure_Multipliers(t *testing.T) {
	cases := []struct {
		level ActivityLevel
		want  int
	}{
		{ActivitySedentary, 1979},
		{ActivityLight, 2267},
		{ActivityModerate, 2556},
		{ActivityActive, 2845},
		{ActivityVeryActive, 3133},
	}

	prev := 0
	for _, tc := range cases {
		got, err := computeTotalExpenditure(1649, tc.level)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.level, err)
		}
		if got != tc.want {
			t.Errorf("%s: TDEE = %d, want %d", tc.level, got, tc.want)
		}
		if got <= prev {
			t.Errorf("%s: TDEE %d did not increase over %d", tc.level, got, prev)
		}
		prev = got
	}
}

// TestComputeBasalRate_Monotonic verifies BMR rises with weight and height
// and falls with age, holding the other inputs fixed.
func TestComputeBasalRate_Monotonic(t *testing.T) {
	for _, sex := range []Sex{SexMale, SexFemale} {
		for w := 40.0; w < 150; w += 5 {
			if computeBasalRate(w+5, 175, 30, sex) <= computeBasalRate(w, 175, 30, sex) {
				t.Errorf("%s: BMR not increasing in weight at %v kg", sex, w)
			}
		}
		for h := 140.0; h < 210; h += 5 {
			if computeBasalRate(70, h+5, 30, sex) <= computeBasalRate(70, h, 30, sex) {
				t.Errorf("%s: BMR not increasing in height at %v cm", sex, h)
			}
		}
		for a := 18; a < 90; a++ {
			if computeBasalRate(70, 175, a+1, sex) >= computeBasalRate(70, 175, a, sex) {
				t.Errorf("%s: BMR not decreasing in age at %d", sex, a)
			}
		}
	}
}

/* ─── Floor tests ────────────────────────────────────────────────────── */

// TestComputeTargetCalories_Floor verifies the 1200 kcal floor wins over the
// goal offset for a small, elderly, sedentary profile.
func TestComputeTargetCalories_Floor(t *testing.T) {
	b := Biometrics{
		WeightKG:      40,
		HeightCM:      150,
		AgeYears:      80,
		Sex:           SexFemale,
		ActivityLevel: ActivitySedentary,
		Goal:          GoalLose,
	}
	got, err := computeEnergyTargets(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TotalExpenditure != 932 {
		t.Errorf("TDEE = %d, want 932", got.TotalExpenditure)
	}
	if got.TargetCalories != 1200 {
		t.Errorf("target = %d, want 1200", got.TargetCalories)
	}
	want := Macros{ProteinG: 80, CarbsG: 146, FatG: 33}
	if got.Macros != want {
		t.Errorf("macros = %+v, want %+v", got.Macros, want)
	}
}

// TestComputeTargetCalories_NeverBelowFloor sweeps TDEE values and goals.
func TestComputeTargetCalories_NeverBelowFloor(t *testing.T) {
	for _, goal := range []Goal{GoalLose, GoalMaintain, GoalGain} {
		for tdee := 0; tdee <= 4000; tdee += 250 {
			got, err := computeTargetCalories(tdee, goal)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got < minTargetCalories {
				t.Errorf("computeTargetCalories(%d, %s) = %d, below floor", tdee, goal, got)
			}
		}
	}
}

// TestComputeMacroTargets_CarbFloor verifies carbs never drop below 50g when
// protein and fat already consume the target.
func TestComputeMacroTargets_CarbFloor(t *testing.T) {
	got, err := computeMacroTargets(1752, 150, GoalLose)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Macros{ProteinG: 300, CarbsG: 50, FatG: 49}
	if got != want {
		t.Errorf("macros = %+v, want %+v", got, want)
	}
}

/* ─── Validation tests ───────────────────────────────────────────────── */

// TestComputeEnergyTargets_InvalidBiometrics verifies non-positive numeric
// inputs are rejected with ErrInvalidBiometrics.
func TestComputeEnergyTargets_InvalidBiometrics(t *testing.T) {
	cases := []struct {
		name  string
		mutFn func(b *Biometrics)
	}{
		{"zero weight", func(b *Biometrics) { b.WeightKG = 0 }},
		{"negative weight", func(b *Biometrics) { b.WeightKG = -70 }},
		{"zero height", func(b *Biometrics) { b.HeightCM = 0 }},
		{"zero age", func(b *Biometrics) { b.AgeYears = 0 }},
		{"negative age", func(b *Biometrics) { b.AgeYears = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := makeBiometrics(GoalLose)
			tc.mutFn(&b)
			_, err := computeEnergyTargets(b)
			if !errors.Is(err, ErrInvalidBiometrics) {
				t.Errorf("expected ErrInvalidBiometrics, got %v", err)
			}
		})
	}
}

// TestComputeEnergyTargets_InvalidEnumeration verifies unknown sex, activity
// level, and goal values are rejected with ErrInvalidEnumeration.
func TestComputeEnergyTargets_InvalidEnumeration(t *testing.T) {
	cases := []struct {
		name  string
		mutFn func(b *Biometrics)
	}{
		{"sex", func(b *Biometrics) { b.Sex = "other" }},
		{"empty sex", func(b *Biometrics) { b.Sex = "" }},
		{"activity level", func(b *Biometrics) { b.ActivityLevel = "extreme" }},
		{"goal", func(b *Biometrics) { b.Goal = "lose_weight" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := makeBiometrics(GoalLose)
			tc.mutFn(&b)
			_, err := computeEnergyTargets(b)
			if !errors.Is(err, ErrInvalidEnumeration) {
				t.Errorf("expected ErrInvalidEnumeration, got %v", err)
			}
		})
	}
}

/* ─── ProfileTargets tests ───────────────────────────────────────────── */

// TestProfileTargets verifies the Unconfigured / Configured variants and the
// default used to seed a ledger before onboarding.
func TestProfileTargets(t *testing.T) {
	if _, ok := Unconfigured().Configured(); ok {
		t.Error("Unconfigured() reported configured")
	}
	if got := Unconfigured().TargetsOrDefault(); got != defaultTargets {
		t.Errorf("TargetsOrDefault() = %+v, want defaultTargets", got)
	}

	et, _ := computeEnergyTargets(makeBiometrics(GoalLose))
	got, ok := Configured(et).Configured()
	if !ok || got != et {
		t.Errorf("Configured(et).Configured() = %+v, %v", got, ok)
	}
	if Configured(et).TargetsOrDefault() != et {
		t.Error("TargetsOrDefault() ignored configured targets")
	}
}

/* ─── Exercise estimate tests ────────────────────────────────────────── */

// TestEstimateExerciseCalories checks MET × kg × hours for known and unknown
// activity types.
func TestEstimateExerciseCalories(t *testing.T) {
	cases := []struct {
		name      string
		activity  string
		minutes   int
		intensity Intensity
		weightKG  float64
		want      int
	}{
		{"running moderate", "running", 30, IntensityModerate, 70, 350},
		{"walking light", "walking", 45, IntensityLight, 80, 150},
		{"hiit intense", "hiit", 20, IntensityIntense, 60, 300},
		{"case and space insensitive", " Running ", 30, IntensityModerate, 70, 350},
		{"unknown type uses default", "climbing", 60, IntensityModerate, 60, 300},
		{"zero minutes", "running", 0, IntensityIntense, 70, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := estimateExerciseCalories(tc.activity, tc.minutes, tc.intensity, tc.weightKG)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("estimate = %d, want %d", got, tc.want)
			}
		})
	}
}

// TestEstimateExerciseCalories_UnknownIntensity verifies the intensity is validated.
func TestEstimateExerciseCalories_UnknownIntensity(t *testing.T) {
	_, err := estimateExerciseCalories("running", 30, "extreme", 70)
	if !errors.Is(err, ErrInvalidEnumeration) {
		t.Errorf("expected ErrInvalidEnumeration, got %v", err)
	}
}
