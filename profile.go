package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

const insertProfileSQL = `INSERT INTO user_profiles (
	user_id, display_name, mode,
	weight_kg, height_cm, age_years, sex, activity_level, goal,
	basal_rate, total_expenditure, target_calories,
	protein_target_g, carbs_target_g, fat_target_g,
	level, current_xp, streak_days, last_active_date, coins
) VALUES (
	@userID, @displayName, @mode,
	@weightKG, @heightCM, @ageYears, @sex, @activityLevel, @goal,
	@basalRate, @totalExpenditure, @targetCalories,
	@proteinTargetG, @carbsTargetG, @fatTargetG,
	@level, @currentXP, @streakDays, @lastActiveDate, @coins
)`

const updateProfileSQL = `UPDATE user_profiles SET
	display_name = @displayName, mode = @mode,
	weight_kg = @weightKG, height_cm = @heightCM, age_years = @ageYears,
	sex = @sex, activity_level = @activityLevel, goal = @goal,
	basal_rate = @basalRate, total_expenditure = @totalExpenditure,
	target_calories = @targetCalories, protein_target_g = @proteinTargetG,
	carbs_target_g = @carbsTargetG, fat_target_g = @fatTargetG,
	level = @level, current_xp = @currentXP, streak_days = @streakDays,
	last_active_date = @lastActiveDate, coins = @coins, updated_at = now()
 WHERE user_id = @userID
 RETURNING user_id, display_name, mode, weight_kg, height_cm, age_years, sex,
	activity_level, goal, basal_rate, total_expenditure, target_calories,
	protein_target_g, carbs_target_g, fat_target_g, level, current_xp,
	streak_days, last_active_date, coins`

const selectProfileSQL = `SELECT user_id, display_name, mode, weight_kg, height_cm, age_years, sex,
	activity_level, goal, basal_rate, total_expenditure, target_calories,
	protein_target_g, carbs_target_g, fat_target_g, level, current_xp,
	streak_days, last_active_date, coins
 FROM user_profiles WHERE user_id = @userID`

// profileArgs binds every column of p for insertProfileSQL and updateProfileSQL.
func profileArgs(p *userProfile) pgx.NamedArgs {
	var lastActive *string
	if p.LastActiveDate != nil {
		s := p.LastActiveDate.Format("2006-01-02")
		lastActive = &s
	}
	return pgx.NamedArgs{
		"userID": p.UserID, "displayName": p.DisplayName, "mode": string(p.Mode),
		"weightKG": p.WeightKG, "heightCM": p.HeightCM, "ageYears": p.AgeYears,
		"sex": p.Sex, "activityLevel": p.ActivityLevel, "goal": p.Goal,
		"basalRate": p.BasalRate, "totalExpenditure": p.TotalExpenditure,
		"targetCalories": p.TargetCalories, "proteinTargetG": p.ProteinTargetG,
		"carbsTargetG": p.CarbsTargetG, "fatTargetG": p.FatTargetG,
		"level": p.Level, "currentXP": p.CurrentXP, "streakDays": p.StreakDays,
		"lastActiveDate": lastActive, "coins": p.Coins,
	}
}

// selectProfile reads a profile. With forUpdate the row stays locked until the
// surrounding transaction ends; every ledger write takes this lock first, which
// serializes them per user.
func selectProfile(ctx context.Context, db dbtx, userID int, forUpdate bool) (userProfile, error) {
	sql := selectProfileSQL
	if forUpdate {
		sql += " FOR UPDATE"
	}
	return queryOne[userProfile](db, ctx, sql, pgx.NamedArgs{"userID": userID})
}

func updateProfile(ctx context.Context, db dbtx, p *userProfile) (userProfile, error) {
	return queryOne[userProfile](db, ctx, updateProfileSQL, profileArgs(p))
}

func (h *Handler) loadProfile(ctx context.Context, userID int) (userProfile, error) {
	return selectProfile(ctx, h.db, userID, false)
}

// profileError answers a failed profile lookup: 404 when the user has no
// profile row, 500 for anything else.
func profileError(c *gin.Context, tag string, err error) {
	if errors.Is(err, pgx.ErrNoRows) {
		apiError(c, http.StatusNotFound, "profile not found")
		return
	}
	log.Printf("[%s] profile lookup failed: %v", tag, err)
	apiError(c, http.StatusInternalServerError, "failed to load profile")
}

// recomputeTargets runs the energy model over the profile's biometrics and
// stores the result. A profile with incomplete biometrics is left unchanged.
func recomputeTargets(p *userProfile) error {
	b, ok := p.biometrics()
	if !ok {
		return nil
	}
	t, err := computeEnergyTargets(b)
	if err != nil {
		return err
	}
	p.setTargets(t)
	return nil
}

// validateBiometricsPatch checks each supplied biometric on its own. A
// half-filled profile never runs the energy model, so nothing downstream would
// catch a bad value before it is stored.
func validateBiometricsPatch(body patchProfileRequest) error {
	if body.WeightKG != nil && *body.WeightKG <= 0 {
		return fmt.Errorf("%w: weight_kg must be positive", ErrInvalidBiometrics)
	}
	if body.HeightCM != nil && *body.HeightCM <= 0 {
		return fmt.Errorf("%w: height_cm must be positive", ErrInvalidBiometrics)
	}
	if body.AgeYears != nil && *body.AgeYears <= 0 {
		return fmt.Errorf("%w: age_years must be positive", ErrInvalidBiometrics)
	}
	if body.Sex != nil {
		if s := Sex(*body.Sex); s != SexMale && s != SexFemale {
			return fmt.Errorf("%w: sex must be one of: male, female", ErrInvalidEnumeration)
		}
	}
	if body.ActivityLevel != nil {
		if _, ok := activityMultipliers[ActivityLevel(*body.ActivityLevel)]; !ok {
			return fmt.Errorf("%w: activity_level must be one of: sedentary, light, moderate, active, very_active", ErrInvalidEnumeration)
		}
	}
	if body.Goal != nil {
		if _, ok := goalAdjustments[Goal(*body.Goal)]; !ok {
			return fmt.Errorf("%w: goal must be one of: lose, maintain, gain", ErrInvalidEnumeration)
		}
	}
	return nil
}

// applyProfilePatch copies non-nil patch fields onto p and re-runs the energy
// model when biometrics changed.
func applyProfilePatch(p *userProfile, body patchProfileRequest) error {
	if body.DisplayName != nil {
		name := strings.TrimSpace(*body.DisplayName)
		if name == "" {
			return errors.New("display_name must not be empty")
		}
		p.DisplayName = name
	}
	if body.Mode != nil {
		switch m := profileMode(*body.Mode); m {
		case modeAIAuto, modeNutriPro:
			p.Mode = m
		default:
			return fmt.Errorf("mode must be one of: %s, %s", modeAIAuto, modeNutriPro)
		}
	}
	if err := validateBiometricsPatch(body); err != nil {
		return err
	}
	if body.WeightKG != nil {
		p.WeightKG = body.WeightKG
	}
	if body.HeightCM != nil {
		p.HeightCM = body.HeightCM
	}
	if body.AgeYears != nil {
		p.AgeYears = body.AgeYears
	}
	if body.Sex != nil {
		p.Sex = body.Sex
	}
	if body.ActivityLevel != nil {
		p.ActivityLevel = body.ActivityLevel
	}
	if body.Goal != nil {
		p.Goal = body.Goal
	}
	if body.touchesBiometrics() {
		return recomputeTargets(p)
	}
	return nil
}

// profileResponse adds the computed targets to a profile for the client.
type profileResponse struct {
	userProfile
	Configured bool          `json:"configured"`
	Targets    EnergyTargets `json:"targets"`
	XPForNext  int           `json:"xp_for_next_level"`
}

func newProfileResponse(p userProfile) profileResponse {
	t, ok := p.targets().Configured()
	return profileResponse{
		userProfile: p,
		Configured:  ok,
		Targets:     t,
		XPForNext:   xpForLevel(p.Level),
	}
}

// getProfile returns the authenticated user's profile with computed targets.
// GET /api/profile.
func (h *Handler) getProfile(c *gin.Context) {
	userID := c.GetInt("user_id")

	p, err := h.loadProfile(c, userID)
	if err != nil {
		profileError(c, "getProfile", err)
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(p))
}

// patchProfile updates only the provided profile fields.
// PATCH /api/profile. When biometrics change, the energy model re-runs and the
// new targets are pushed into today's log without erasing progress.
func (h *Handler) patchProfile(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body patchProfileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validateBiometricsPatch(body); err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}

	var saved userProfile
	var patchErr error
	err := pgx.BeginFunc(c, h.db, func(tx pgx.Tx) error {
		p, err := selectProfile(c, tx, userID, true)
		if err != nil {
			return err
		}
		if patchErr = applyProfilePatch(&p, body); patchErr != nil {
			return patchErr
		}
		if saved, err = updateProfile(c, tx, &p); err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		if !body.touchesBiometrics() {
			return nil
		}
		if _, ok := saved.targets().Configured(); !ok {
			return nil
		}
		l, err := h.loadLedger(c, tx, userID, &saved)
		if err != nil {
			return err
		}
		return h.saveLedger(c, tx, userID, l.snapshot())
	})
	switch {
	case patchErr != nil:
		apiError(c, http.StatusBadRequest, patchErr.Error())
		return
	case errors.Is(err, pgx.ErrNoRows):
		profileError(c, "patchProfile", err)
		return
	case err != nil:
		log.Printf("[patchProfile] user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(saved))
}
