package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// defaultExerciseWeightKG stands in for body weight in MET estimates when the
// profile has no weight yet.
const defaultExerciseWeightKG = 70.0

// maxWaterPerEntryMl caps a single water entry; larger values are almost
// certainly unit mistakes (litres typed as ml).
const maxWaterPerEntryMl = 5000

/* ─── Persistence ────────────────────────────────────────────────────── */

// loadLedger reads the user's most recent stored log and initializes it with
// the profile's targets. A stored log from a previous day rolls over to a
// fresh one; a missing log starts fresh.
func (h *Handler) loadLedger(ctx context.Context, db dbtx, userID int, p *userProfile) (*dailyLedger, error) {
	var stored DailyLog
	err := db.QueryRow(ctx,
		`SELECT log FROM daily_logs WHERE user_id = @userID ORDER BY date DESC LIMIT 1`,
		pgx.NamedArgs{"userID": userID}).Scan(&stored)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load daily log: %w", err)
	}

	l := newDailyLedger(stored, h.now)
	t := p.targets().TargetsOrDefault()
	l.initialize(t.TargetCalories, t.Macros)
	return l, nil
}

// saveLedger upserts the snapshot keyed by (user_id, date). Summary columns are
// denormalized from the snapshot for the history queries.
func (h *Handler) saveLedger(ctx context.Context, db dbtx, userID int, d DailyLog) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal daily log: %w", err)
	}
	_, err = db.Exec(ctx,
		`INSERT INTO daily_logs (user_id, date, log, target_kcal, eaten_kcal, burned_kcal,
			net_calories, protein_g, carbs_g, fat_g, water_ml, deficit_status, xp_earned, is_completed)
		 VALUES (@userID, @date, @log::jsonb, @targetKcal, @eatenKcal, @burnedKcal,
			@netCalories, @proteinG, @carbsG, @fatG, @waterMl, @status, @xpEarned, @isCompleted)
		 ON CONFLICT (user_id, date) DO UPDATE SET
			log = EXCLUDED.log, target_kcal = EXCLUDED.target_kcal,
			eaten_kcal = EXCLUDED.eaten_kcal, burned_kcal = EXCLUDED.burned_kcal,
			net_calories = EXCLUDED.net_calories, protein_g = EXCLUDED.protein_g,
			carbs_g = EXCLUDED.carbs_g, fat_g = EXCLUDED.fat_g, water_ml = EXCLUDED.water_ml,
			deficit_status = EXCLUDED.deficit_status, xp_earned = EXCLUDED.xp_earned,
			is_completed = EXCLUDED.is_completed, updated_at = now()`,
		pgx.NamedArgs{
			"userID": userID, "date": d.Date.Format("2006-01-02"), "log": string(raw),
			"targetKcal": d.TargetKcal, "eatenKcal": d.EatenKcal, "burnedKcal": d.BurnedKcal,
			"netCalories": d.NetCalories, "proteinG": d.EatenMacros.ProteinG,
			"carbsG": d.EatenMacros.CarbsG, "fatG": d.EatenMacros.FatG,
			"waterMl": d.WaterMl, "status": string(d.DeficitStatus),
			"xpEarned": d.DailyXPEarned, "isCompleted": d.IsCompleted,
		})
	if err != nil {
		return fmt.Errorf("save daily log: %w", err)
	}
	return nil
}

// errResponded marks a transaction that was rolled back after the callback
// already wrote its own response.
var errResponded = errors.New("response already written")

// updateLedger runs one read-modify-write of today's ledger in a transaction.
// The profile row is locked first, so concurrent writes for the same user
// queue behind each other instead of overwriting one another's snapshot.
// Nothing is saved unless fn returns nil.
func (h *Handler) updateLedger(ctx context.Context, userID int, fn func(tx pgx.Tx, l *dailyLedger, p *userProfile) error) error {
	return pgx.BeginFunc(ctx, h.db, func(tx pgx.Tx) error {
		p, err := selectProfile(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		l, err := h.loadLedger(ctx, tx, userID, &p)
		if err != nil {
			return err
		}
		if err := fn(tx, l, &p); err != nil {
			return err
		}
		return h.saveLedger(ctx, tx, userID, l.snapshot())
	})
}

// ledgerError maps a failed ledger update to a response. errResponded means
// the callback already answered.
func ledgerError(c *gin.Context, tag string, err error) {
	switch {
	case errors.Is(err, errResponded):
	case errors.Is(err, pgx.ErrNoRows):
		profileError(c, tag, err)
	default:
		log.Printf("[%s] %v", tag, err)
		apiError(c, http.StatusInternalServerError, "failed to update daily log")
	}
}

// withLedger loads the profile and today's ledger, runs fn, persists the
// resulting snapshot, and responds with it. fn may write its own error
// response and return false to roll back.
func (h *Handler) withLedger(c *gin.Context, tag string, fn func(l *dailyLedger, p *userProfile) bool) {
	var snap DailyLog
	err := h.updateLedger(c, c.GetInt("user_id"), func(_ pgx.Tx, l *dailyLedger, p *userProfile) error {
		if !fn(l, p) {
			return errResponded
		}
		snap = l.snapshot()
		return nil
	})
	if err != nil {
		ledgerError(c, tag, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

/* ─── Request mapping ────────────────────────────────────────────────── */

// mealFromRequest validates the body and builds a Meal. Totals default to the
// sum over items when the client doesn't supply them.
func mealFromRequest(body addMealRequest) (Meal, error) {
	name := strings.TrimSpace(body.Name)
	if name == "" {
		return Meal{}, errors.New("name is required")
	}
	items := body.Items
	if items == nil {
		items = []FoodItem{}
	}
	var kcal int
	var macros Macros
	for _, it := range items {
		if it.Kcal < 0 || it.Macros.ProteinG < 0 || it.Macros.CarbsG < 0 || it.Macros.FatG < 0 {
			return Meal{}, fmt.Errorf("item %q has negative nutrition values", it.Name)
		}
		kcal += it.Kcal
		macros = macros.add(it.Macros)
	}
	if body.TotalKcal != nil {
		kcal = *body.TotalKcal
	}
	if body.TotalMacros != nil {
		macros = *body.TotalMacros
	}
	if kcal < 0 || macros.ProteinG < 0 || macros.CarbsG < 0 || macros.FatG < 0 {
		return Meal{}, errors.New("meal totals must not be negative")
	}
	return Meal{
		Name:        name,
		Time:        body.Time,
		Items:       items,
		TotalKcal:   kcal,
		TotalMacros: macros,
	}, nil
}

// exerciseFromRequest validates the body and builds an Exercise. When kcal is
// omitted it is estimated from MET values using weightKG, which then needs a
// positive duration and weight.
func exerciseFromRequest(body addExerciseRequest, weightKG float64) (Exercise, error) {
	name := strings.TrimSpace(body.Name)
	if name == "" {
		return Exercise{}, errors.New("name is required")
	}
	if body.DurationMin < 0 {
		return Exercise{}, errors.New("duration_min must not be negative")
	}
	if body.Intensity == "" {
		body.Intensity = IntensityModerate
	}
	if _, ok := intensityIndex(body.Intensity); !ok {
		return Exercise{}, errors.New("intensity must be one of: light, moderate, intense")
	}
	kcal := 0
	if body.Kcal != nil {
		if *body.Kcal < 0 {
			return Exercise{}, errors.New("kcal must not be negative")
		}
		kcal = *body.Kcal
	} else {
		if body.DurationMin <= 0 {
			return Exercise{}, errors.New("duration_min must be positive when kcal is omitted")
		}
		if weightKG <= 0 {
			return Exercise{}, fmt.Errorf("%w: body weight must be positive to estimate kcal", ErrInvalidBiometrics)
		}
		est, err := estimateExerciseCalories(body.Type, body.DurationMin, body.Intensity, weightKG)
		if err != nil {
			return Exercise{}, err
		}
		kcal = est
	}
	return Exercise{
		Name:        name,
		Type:        strings.ToLower(strings.TrimSpace(body.Type)),
		DurationMin: body.DurationMin,
		Intensity:   body.Intensity,
		Kcal:        kcal,
	}, nil
}

/* ─── Handlers ───────────────────────────────────────────────────────── */

// getDailyLog returns today's log, rolling over to a fresh one on a new day.
// GET /api/daily-log.
func (h *Handler) getDailyLog(c *gin.Context) {
	h.withLedger(c, "getDailyLog", func(l *dailyLedger, p *userProfile) bool {
		return true
	})
}

// addMeal logs a meal into today's ledger.
// POST /api/daily-log/meals.
func (h *Handler) addMeal(c *gin.Context) {
	var body addMealRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	meal, err := mealFromRequest(body)
	if err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	h.withLedger(c, "addMeal", func(l *dailyLedger, p *userProfile) bool {
		l.addMeal(meal)
		return true
	})
}

// removeMeal removes a meal by ID. Unknown IDs leave the log unchanged and
// still return 200 with the current snapshot.
// DELETE /api/daily-log/meals/:id.
func (h *Handler) removeMeal(c *gin.Context) {
	id := c.Param("id")
	h.withLedger(c, "removeMeal", func(l *dailyLedger, p *userProfile) bool {
		l.removeMeal(id)
		return true
	})
}

// addExercise logs an exercise, estimating kcal from the profile weight when omitted.
// POST /api/daily-log/exercises.
func (h *Handler) addExercise(c *gin.Context) {
	var body addExerciseRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	// Reject malformed bodies before touching the database; the estimate is
	// redone below with the profile's weight.
	if _, err := exerciseFromRequest(body, defaultExerciseWeightKG); err != nil {
		apiError(c, http.StatusBadRequest, err.Error())
		return
	}
	h.withLedger(c, "addExercise", func(l *dailyLedger, p *userProfile) bool {
		weight := defaultExerciseWeightKG
		if p.WeightKG != nil {
			weight = *p.WeightKG
		}
		e, err := exerciseFromRequest(body, weight)
		if err != nil {
			apiError(c, http.StatusBadRequest, err.Error())
			return false
		}
		l.addExercise(e)
		return true
	})
}

// removeExercise removes an exercise by ID; unknown IDs are a no-op.
// DELETE /api/daily-log/exercises/:id.
func (h *Handler) removeExercise(c *gin.Context) {
	id := c.Param("id")
	h.withLedger(c, "removeExercise", func(l *dailyLedger, p *userProfile) bool {
		l.removeExercise(id)
		return true
	})
}

// addWater adds to today's water intake. Body: { "ml": 250 }.
// POST /api/daily-log/water.
func (h *Handler) addWater(c *gin.Context) {
	var body struct {
		Ml int `json:"ml"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Ml <= 0 || body.Ml > maxWaterPerEntryMl {
		apiError(c, http.StatusBadRequest, fmt.Sprintf("ml must be between 1 and %d", maxWaterPerEntryMl))
		return
	}
	h.withLedger(c, "addWater", func(l *dailyLedger, p *userProfile) bool {
		l.addWater(body.Ml)
		return true
	})
}

// settleDay completes the ledger's day and, on the first completion only,
// credits the profile. Both sides change together so they can be committed
// together.
func settleDay(l *dailyLedger, p *userProfile, today time.Time) (xp int, granted bool, reward dayReward) {
	xp, granted = l.completeDay()
	if granted {
		reward = awardDayCompletion(p, xp, today)
	}
	return xp, granted, reward
}

// completeDay finalizes today's XP. The profile is credited (XP, level, streak,
// coins) only on the first completion of a day; repeat calls refresh the log's
// XP figure and report granted=false. The completed log and the credit commit
// in one transaction, so a failed profile write leaves the day open.
// POST /api/daily-log/complete.
func (h *Handler) completeDay(c *gin.Context) {
	userID := c.GetInt("user_id")

	var (
		xp      int
		granted bool
		reward  dayReward
		snap    DailyLog
		saved   userProfile
	)
	err := h.updateLedger(c, userID, func(tx pgx.Tx, l *dailyLedger, p *userProfile) error {
		xp, granted, reward = settleDay(l, p, h.clock())
		snap = l.snapshot()
		saved = *p
		if !granted {
			return nil
		}
		var err error
		if saved, err = updateProfile(c, tx, p); err != nil {
			return fmt.Errorf("credit %d XP to user %d: %w", xp, userID, err)
		}
		return nil
	})
	if err != nil {
		ledgerError(c, "completeDay", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"xp":      xp,
		"granted": granted,
		"reward":  reward,
		"log":     snap,
		"profile": newProfileResponse(saved),
	})
}

// getBalance returns the calorie balance for today and, when meal_kcal is
// given, whether that meal fits the remaining budget.
// GET /api/daily-log/balance?meal_kcal=N.
func (h *Handler) getBalance(c *gin.Context) {
	var mealKcal *int
	if s := c.Query("meal_kcal"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			apiError(c, http.StatusBadRequest, "meal_kcal must be a non-negative integer")
			return
		}
		mealKcal = &n
	}

	userID := c.GetInt("user_id")
	p, err := h.loadProfile(c, userID)
	if err != nil {
		profileError(c, "getBalance", err)
		return
	}
	l, err := h.loadLedger(c, h.db, userID, &p)
	if err != nil {
		log.Printf("[getBalance] %v", err)
		apiError(c, http.StatusInternalServerError, "failed to load daily log")
		return
	}

	b := computeBalance(l.snapshot())
	resp := gin.H{"balance": b}
	if mealKcal != nil {
		resp["meal"] = affordMeal(b, *mealKcal)
	}
	c.JSON(http.StatusOK, resp)
}
