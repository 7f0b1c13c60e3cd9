package main

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DateOnly wraps time.Time to serialize as "YYYY-MM-DD" in JSON.
type DateOnly struct{ time.Time }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format("2006-01-02") + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"2006-01-02"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ScanDate implements pgtype.DateScanner so pgx can scan PostgreSQL date
// columns (OID 1082) into DateOnly. NULL values zero the time and return nil
// so that *DateOnly pointer fields can be set to nil by pgx's NULL handling.
func (d *DateOnly) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		d.Time = time.Time{}
		return nil
	}
	d.Time = v.Time
	return nil
}

/* ─── Domain structs ─────────────────────────────────────────────────── */

// user maps to the users table. AuthToken and Password are hidden from JSON responses.
type user struct {
	ID        int        `json:"id" db:"id"`
	Username  string     `json:"username" db:"username"`
	Email     string     `json:"email" db:"email"`
	AuthToken string     `json:"-" db:"auth_token"`
	Password  string     `json:"-" db:"password"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

type profileMode string

const (
	modeAIAuto   profileMode = "AI_AUTO"
	modeNutriPro profileMode = "NUTRI_PRO"
)

// userProfile maps to user_profiles. One row per user. Biometric and target
// columns are nullable until onboarding completes.
type userProfile struct {
	UserID      int         `json:"user_id"      db:"user_id"`
	DisplayName string      `json:"display_name" db:"display_name"`
	Mode        profileMode `json:"mode"         db:"mode"`

	// Biometrics, all nullable; a profile without them is Unconfigured.
	WeightKG      *float64 `json:"weight_kg"      db:"weight_kg"`
	HeightCM      *float64 `json:"height_cm"      db:"height_cm"`
	AgeYears      *int     `json:"age_years"      db:"age_years"`
	Sex           *string  `json:"sex"            db:"sex"`
	ActivityLevel *string  `json:"activity_level" db:"activity_level"`
	Goal          *string  `json:"goal"           db:"goal"`

	// Last computed targets, copied from EnergyTargets.
	BasalRate        *int     `json:"basal_rate"        db:"basal_rate"`
	TotalExpenditure *int     `json:"total_expenditure" db:"total_expenditure"`
	TargetCalories   *int     `json:"target_calories"   db:"target_calories"`
	ProteinTargetG   *float64 `json:"protein_target_g"  db:"protein_target_g"`
	CarbsTargetG     *float64 `json:"carbs_target_g"    db:"carbs_target_g"`
	FatTargetG       *float64 `json:"fat_target_g"      db:"fat_target_g"`

	Level          int       `json:"level"            db:"level"`
	CurrentXP      int       `json:"current_xp"       db:"current_xp"`
	StreakDays     int       `json:"streak_days"      db:"streak_days"`
	LastActiveDate *DateOnly `json:"last_active_date" db:"last_active_date"`
	Coins          int       `json:"coins"            db:"coins"`
}

// biometrics returns the stored biometrics, or ok=false when any field is missing.
func (p *userProfile) biometrics() (Biometrics, bool) {
	if p.WeightKG == nil || p.HeightCM == nil || p.AgeYears == nil ||
		p.Sex == nil || p.ActivityLevel == nil || p.Goal == nil {
		return Biometrics{}, false
	}
	return Biometrics{
		WeightKG:      *p.WeightKG,
		HeightCM:      *p.HeightCM,
		AgeYears:      *p.AgeYears,
		Sex:           Sex(*p.Sex),
		ActivityLevel: ActivityLevel(*p.ActivityLevel),
		Goal:          Goal(*p.Goal),
	}, true
}

// targets returns Configured when every target column has been populated.
func (p *userProfile) targets() ProfileTargets {
	if p.BasalRate == nil || p.TotalExpenditure == nil || p.TargetCalories == nil ||
		p.ProteinTargetG == nil || p.CarbsTargetG == nil || p.FatTargetG == nil {
		return Unconfigured()
	}
	return Configured(EnergyTargets{
		BasalRate:        *p.BasalRate,
		TotalExpenditure: *p.TotalExpenditure,
		TargetCalories:   *p.TargetCalories,
		Macros: Macros{
			ProteinG: *p.ProteinTargetG,
			CarbsG:   *p.CarbsTargetG,
			FatG:     *p.FatTargetG,
		},
	})
}

// setTargets copies computed targets onto the profile's target columns.
func (p *userProfile) setTargets(t EnergyTargets) {
	p.BasalRate = &t.BasalRate
	p.TotalExpenditure = &t.TotalExpenditure
	p.TargetCalories = &t.TargetCalories
	p.ProteinTargetG = &t.Macros.ProteinG
	p.CarbsTargetG = &t.Macros.CarbsG
	p.FatTargetG = &t.Macros.FatG
}

// weightEntry maps to weight_log. One row per user per date.
type weightEntry struct {
	ID        int        `json:"id"         db:"id"`
	UserID    int        `json:"user_id"    db:"user_id"`
	Date      DateOnly   `json:"date"       db:"date"`
	WeightKG  float64    `json:"weight_kg"  db:"weight_kg"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

// mealPlan maps to meal_plans. Meals and TargetMacros are stored as jsonb.
type mealPlan struct {
	ID           int        `json:"id"            db:"id"`
	UserID       int        `json:"user_id"       db:"user_id"`
	Name         string     `json:"name"          db:"name"`
	Description  *string    `json:"description"   db:"description"`
	TargetKcal   int        `json:"target_kcal"   db:"target_kcal"`
	TargetMacros Macros     `json:"target_macros" db:"target_macros"`
	Meals        []Meal     `json:"meals"         db:"meals"`
	Source       string     `json:"source"        db:"source"`
	IsActive     bool       `json:"is_active"     db:"is_active"`
	CreatedAt    *time.Time `json:"created_at"    db:"created_at"`
}

// dayDBRow is the shape of the denormalized per-day columns of daily_logs,
// used by the week-summary and progress queries.
type dayDBRow struct {
	Date          DateOnly `db:"date"`
	TargetKcal    int      `db:"target_kcal"`
	EatenKcal     int      `db:"eaten_kcal"`
	BurnedKcal    int      `db:"burned_kcal"`
	ProteinG      float64  `db:"protein_g"`
	CarbsG        float64  `db:"carbs_g"`
	FatG          float64  `db:"fat_g"`
	WaterMl       int      `db:"water_ml"`
	DeficitStatus string   `db:"deficit_status"`
	XPEarned      int      `db:"xp_earned"`
	IsCompleted   bool     `db:"is_completed"`
}

// daySummary is one day's entry in the week-summary and progress responses.
// Days with no stored log have HasData=false and zero calorie fields.
type daySummary struct {
	Date          DateOnly      `json:"date"`
	TargetKcal    int           `json:"target_kcal"`
	EatenKcal     int           `json:"eaten_kcal"`
	BurnedKcal    int           `json:"burned_kcal"`
	NetCalories   int           `json:"net_calories"`
	CaloriesLeft  int           `json:"calories_left"`
	ProteinG      float64       `json:"protein_g"`
	CarbsG        float64       `json:"carbs_g"`
	FatG          float64       `json:"fat_g"`
	WaterMl       int           `json:"water_ml"`
	DeficitStatus DeficitStatus `json:"deficit_status"`
	XPEarned      int           `json:"xp_earned"`
	HasData       bool          `json:"has_data"`
}

// progressStats aggregates a progress range. Averages are integer kcal.
type progressStats struct {
	DaysTracked       int `json:"days_tracked"`
	DaysOnTarget      int `json:"days_on_target"`
	DaysCompleted     int `json:"days_completed"`
	AvgEatenKcal      int `json:"avg_eaten_kcal"`
	AvgBurnedKcal     int `json:"avg_burned_kcal"`
	AvgNetCalories    int `json:"avg_net_calories"`
	TotalCaloriesLeft int `json:"total_calories_left"`
	TotalXP           int `json:"total_xp"`
}

type progressResponse struct {
	Days  []daySummary  `json:"days"`
	Stats progressStats `json:"stats"`
}

/* ─── Request bodies ─────────────────────────────────────────────────── */

// addMealRequest is the request body for POST /api/daily-log/meals.
// When TotalKcal/TotalMacros are omitted they are summed from Items.
type addMealRequest struct {
	Name        string     `json:"name"`
	Time        string     `json:"time"`
	Items       []FoodItem `json:"items"`
	TotalKcal   *int       `json:"total_kcal"`
	TotalMacros *Macros    `json:"total_macros"`
}

// addExerciseRequest is the request body for POST /api/daily-log/exercises.
// Kcal is estimated from MET values and the profile weight when omitted.
type addExerciseRequest struct {
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	DurationMin int       `json:"duration_min"`
	Intensity   Intensity `json:"intensity"`
	Kcal        *int      `json:"kcal"`
}

// patchProfileRequest is the request body for PATCH /api/profile.
// All fields are pointers; only non-nil fields are applied.
type patchProfileRequest struct {
	DisplayName   *string  `json:"display_name"`
	Mode          *string  `json:"mode"`
	WeightKG      *float64 `json:"weight_kg"`
	HeightCM      *float64 `json:"height_cm"`
	AgeYears      *int     `json:"age_years"`
	Sex           *string  `json:"sex"`
	ActivityLevel *string  `json:"activity_level"`
	Goal          *string  `json:"goal"`
}

// touchesBiometrics reports whether any energy-model input is being changed.
func (r patchProfileRequest) touchesBiometrics() bool {
	return r.WeightKG != nil || r.HeightCM != nil || r.AgeYears != nil ||
		r.Sex != nil || r.ActivityLevel != nil || r.Goal != nil
}
