package main

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidBiometrics is returned when weight, height, or age is not positive.
	ErrInvalidBiometrics = errors.New("invalid biometrics")
	// ErrInvalidEnumeration is returned for an unrecognized sex, activity level, or goal.
	ErrInvalidEnumeration = errors.New("invalid enumeration")
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

type Goal string

const (
	GoalLose     Goal = "lose"
	GoalMaintain Goal = "maintain"
	GoalGain     Goal = "gain"
)

// activityMultipliers maps activity levels to their TDEE multiplier.
// This is the single source of truth for valid activity levels, also used for
// input validation in patchProfile.
var activityMultipliers = map[ActivityLevel]float64{
	ActivitySedentary:  1.2,
	ActivityLight:      1.375,
	ActivityModerate:   1.55,
	ActivityActive:     1.725,
	ActivityVeryActive: 1.9,
}

// goalAdjustments is the fixed daily kcal offset applied to TDEE per goal.
var goalAdjustments = map[Goal]int{
	GoalLose:     -500,
	GoalMaintain: 0,
	GoalGain:     300,
}

// proteinPerKG is grams of protein per kg of body weight per goal.
var proteinPerKG = map[Goal]float64{
	GoalLose:     2.0,
	GoalMaintain: 1.6,
	GoalGain:     2.2,
}

const (
	minTargetCalories  = 1200
	minCarbsG          = 50
	kcalPerGramProtein = 4
	kcalPerGramCarbs   = 4
	kcalPerGramFat     = 9
)

// Biometrics is the input to the energy model, sourced from onboarding or a profile edit.
type Biometrics struct {
	WeightKG      float64       `json:"weight_kg"`
	HeightCM      float64       `json:"height_cm"`
	AgeYears      int           `json:"age_years"`
	Sex           Sex           `json:"sex"`
	ActivityLevel ActivityLevel `json:"activity_level"`
	Goal          Goal          `json:"goal"`
}

// EnergyTargets is the output of computeEnergyTargets. All kcal figures are per day.
type EnergyTargets struct {
	BasalRate        int    `json:"basal_rate"`
	TotalExpenditure int    `json:"total_expenditure"`
	TargetCalories   int    `json:"target_calories"`
	Macros           Macros `json:"macros"`
}

// computeBasalRate returns BMR via Mifflin-St Jeor. Callers must reject
// non-positive inputs first; the formula itself accepts any value.
func computeBasalRate(weightKG, heightCM float64, ageYears int, sex Sex) int {
	base := 10*weightKG + 6.25*heightCM - 5*float64(ageYears)
	if sex == SexMale {
		return int(math.Round(base + 5))
	}
	return int(math.Round(base - 161))
}

// computeTotalExpenditure scales BMR by the activity multiplier.
func computeTotalExpenditure(basalRate int, level ActivityLevel) (int, error) {
	mult, ok := activityMultipliers[level]
	if !ok {
		return 0, fmt.Errorf("%w: activity level %q", ErrInvalidEnumeration, level)
	}
	return int(math.Round(float64(basalRate) * mult)), nil
}

// computeTargetCalories applies the goal offset and the 1200 kcal safety floor.
// The floor wins over the offset.
func computeTargetCalories(totalExpenditure int, goal Goal) (int, error) {
	adj, ok := goalAdjustments[goal]
	if !ok {
		return 0, fmt.Errorf("%w: goal %q", ErrInvalidEnumeration, goal)
	}
	return max(minTargetCalories, totalExpenditure+adj), nil
}

// computeMacroTargets splits targetCalories into protein, fat, and carbs grams.
// Carbs take the residual with a 50g floor, so protein+fat+carbs kcal can
// exceed targetCalories for heavy users on a low target.
func computeMacroTargets(targetCalories int, weightKG float64, goal Goal) (Macros, error) {
	perKG, ok := proteinPerKG[goal]
	if !ok {
		return Macros{}, fmt.Errorf("%w: goal %q", ErrInvalidEnumeration, goal)
	}
	fatFraction := 0.28
	if goal == GoalLose {
		fatFraction = 0.25
	}

	protein := math.Round(weightKG * perKG)
	fat := math.Round(float64(targetCalories) * fatFraction / kcalPerGramFat)
	remaining := float64(targetCalories) - protein*kcalPerGramProtein - fat*kcalPerGramFat
	carbs := math.Round(math.Max(remaining/kcalPerGramCarbs, minCarbsG))

	return Macros{ProteinG: protein, CarbsG: carbs, FatG: fat}, nil
}

// validate checks numeric positivity and every enumerated field.
func (b Biometrics) validate() error {
	if b.WeightKG <= 0 || b.HeightCM <= 0 || b.AgeYears <= 0 {
		return fmt.Errorf("%w: weight, height, and age must be positive", ErrInvalidBiometrics)
	}
	if b.Sex != SexMale && b.Sex != SexFemale {
		return fmt.Errorf("%w: sex %q", ErrInvalidEnumeration, b.Sex)
	}
	if _, ok := activityMultipliers[b.ActivityLevel]; !ok {
		return fmt.Errorf("%w: activity level %q", ErrInvalidEnumeration, b.ActivityLevel)
	}
	if _, ok := goalAdjustments[b.Goal]; !ok {
		return fmt.Errorf("%w: goal %q", ErrInvalidEnumeration, b.Goal)
	}
	return nil
}

// computeEnergyTargets is the single entry point: basal → total → target → macros.
func computeEnergyTargets(b Biometrics) (EnergyTargets, error) {
	if err := b.validate(); err != nil {
		return EnergyTargets{}, err
	}

	bmr := computeBasalRate(b.WeightKG, b.HeightCM, b.AgeYears, b.Sex)
	tdee, err := computeTotalExpenditure(bmr, b.ActivityLevel)
	if err != nil {
		return EnergyTargets{}, err
	}
	target, err := computeTargetCalories(tdee, b.Goal)
	if err != nil {
		return EnergyTargets{}, err
	}
	macros, err := computeMacroTargets(target, b.WeightKG, b.Goal)
	if err != nil {
		return EnergyTargets{}, err
	}

	return EnergyTargets{
		BasalRate:        bmr,
		TotalExpenditure: tdee,
		TargetCalories:   target,
		Macros:           macros,
	}, nil
}

/* ─── Profile targets variant ────────────────────────────────────────── */

// ProfileTargets is either Unconfigured (no biometrics yet) or Configured with
// the targets last computed for the profile. Consumers branch on Configured()
// instead of nil-checking stats.
type ProfileTargets struct {
	targets    EnergyTargets
	configured bool
}

// Unconfigured is the zero ProfileTargets.
func Unconfigured() ProfileTargets { return ProfileTargets{} }

func Configured(t EnergyTargets) ProfileTargets {
	return ProfileTargets{targets: t, configured: true}
}

// Configured returns the targets and true when the profile has biometrics.
func (p ProfileTargets) Configured() (EnergyTargets, bool) {
	return p.targets, p.configured
}

// defaultTargets seeds a ledger for a profile that has not finished onboarding.
var defaultTargets = EnergyTargets{
	TargetCalories: 2000,
	Macros:         Macros{ProteinG: 150, CarbsG: 200, FatG: 65},
}

// TargetsOrDefault returns the configured targets, or defaultTargets.
func (p ProfileTargets) TargetsOrDefault() EnergyTargets {
	if t, ok := p.Configured(); ok {
		return t
	}
	return defaultTargets
}

/* ─── Exercise estimate ──────────────────────────────────────────────── */

type Intensity string

const (
	IntensityLight    Intensity = "light"
	IntensityModerate Intensity = "moderate"
	IntensityIntense  Intensity = "intense"
)

// metValues holds MET per activity type, indexed light/moderate/intense.
var metValues = map[string][3]float64{
	"running":  {7, 10, 14},
	"walking":  {2.5, 3.5, 5},
	"cycling":  {4, 8, 12},
	"strength": {3, 5, 6},
	"swimming": {6, 8, 10},
	"hiit":     {8, 12, 15},
	"yoga":     {2, 3, 4},
	"dance":    {4, 6, 8},
	"soccer":   {5, 7, 10},
}

var defaultMET = [3]float64{3, 5, 7}

func intensityIndex(i Intensity) (int, bool) {
	switch i {
	case IntensityLight:
		return 0, true
	case IntensityModerate:
		return 1, true
	case IntensityIntense:
		return 2, true
	}
	return 0, false
}

// estimateExerciseCalories returns kcal burned as MET × weight (kg) × hours.
// Unknown activity types fall back to a generic MET row.
func estimateExerciseCalories(activityType string, minutes int, intensity Intensity, weightKG float64) (int, error) {
	idx, ok := intensityIndex(intensity)
	if !ok {
		return 0, fmt.Errorf("%w: intensity %q", ErrInvalidEnumeration, intensity)
	}
	mets, found := metValues[strings.ToLower(strings.TrimSpace(activityType))]
	if !found {
		mets = defaultMET
	}
	return int(math.Round(mets[idx] * weightKG * float64(minutes) / 60)), nil
}
