package main

import (
	"encoding/json"
	"log"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// planSlot is one meal of a generated day and its share of the daily targets.
type planSlot struct {
	name  string
	time  string
	share float64
	foods []FoodItem
}

// planSlots splits the day 20/35/15/30. Foods are a fixed example menu; the
// slot totals come from the targets, not from the foods.
var planSlots = []planSlot{
	{name: "Breakfast", time: "08:00", share: 0.20, foods: []FoodItem{
		{Name: "Scrambled Eggs", Quantity: 2, Unit: "each", Kcal: 140, Macros: Macros{ProteinG: 12, CarbsG: 1, FatG: 10}},
		{Name: "Whole Wheat Toast", Quantity: 2, Unit: "slices", Kcal: 120, Macros: Macros{ProteinG: 4, CarbsG: 22, FatG: 1}},
		{Name: "Black Coffee", Quantity: 1, Unit: "cup", Kcal: 2},
	}},
	{name: "Lunch", time: "12:30", share: 0.35, foods: []FoodItem{
		{Name: "Grilled Chicken Breast", Quantity: 150, Unit: "g", Kcal: 250, Macros: Macros{ProteinG: 45, FatG: 5}},
		{Name: "Brown Rice", Quantity: 100, Unit: "g", Kcal: 110, Macros: Macros{ProteinG: 3, CarbsG: 23, FatG: 1}},
		{Name: "Beans", Quantity: 100, Unit: "g", Kcal: 76, Macros: Macros{ProteinG: 5, CarbsG: 14}},
		{Name: "Mixed Salad", Quantity: 1, Unit: "plate", Kcal: 30, Macros: Macros{ProteinG: 1, CarbsG: 5}},
	}},
	{name: "Afternoon Snack", time: "16:00", share: 0.15, foods: []FoodItem{
		{Name: "Plain Yogurt", Quantity: 170, Unit: "g", Kcal: 100, Macros: Macros{ProteinG: 6, CarbsG: 9, FatG: 4}},
		{Name: "Granola", Quantity: 30, Unit: "g", Kcal: 120, Macros: Macros{ProteinG: 3, CarbsG: 20, FatG: 4}},
	}},
	{name: "Dinner", time: "20:00", share: 0.30, foods: []FoodItem{
		{Name: "Tilapia Fillet", Quantity: 150, Unit: "g", Kcal: 190, Macros: Macros{ProteinG: 30, FatG: 3}},
		{Name: "Boiled Sweet Potato", Quantity: 100, Unit: "g", Kcal: 86, Macros: Macros{ProteinG: 2, CarbsG: 20}},
		{Name: "Steamed Broccoli", Quantity: 100, Unit: "g", Kcal: 35, Macros: Macros{ProteinG: 3, CarbsG: 7}},
	}},
}

// generatePlanMeals distributes the targets over planSlots, rounding each
// slot's kcal and macros to whole units.
func generatePlanMeals(targetKcal int, targetMacros Macros) []Meal {
	meals := make([]Meal, 0, len(planSlots))
	for _, s := range planSlots {
		meals = append(meals, Meal{
			Name:      s.name,
			Time:      s.time,
			Items:     append([]FoodItem(nil), s.foods...),
			TotalKcal: int(math.Round(float64(targetKcal) * s.share)),
			TotalMacros: Macros{
				ProteinG: math.Round(targetMacros.ProteinG * s.share),
				CarbsG:   math.Round(targetMacros.CarbsG * s.share),
				FatG:     math.Round(targetMacros.FatG * s.share),
			},
		})
	}
	return meals
}

// getMealPlans lists the user's meal plans, newest first.
// GET /api/meal-plans.
func (h *Handler) getMealPlans(c *gin.Context) {
	userID := c.GetInt("user_id")

	plans, err := queryMany[mealPlan](h.db, c,
		`SELECT * FROM meal_plans WHERE user_id = @userID ORDER BY created_at DESC`,
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch meal plans")
		return
	}
	if plans == nil {
		plans = []mealPlan{}
	}

	c.JSON(http.StatusOK, plans)
}

// generateMealPlan builds a plan from the profile's targets and makes it the
// active AI plan, deactivating earlier AI plans. Profiles in NUTRI_PRO mode get
// their plans from a nutritionist and are refused.
// POST /api/meal-plans/generate.
func (h *Handler) generateMealPlan(c *gin.Context) {
	userID := c.GetInt("user_id")

	p, err := h.loadProfile(c, userID)
	if err != nil {
		profileError(c, "generateMealPlan", err)
		return
	}
	if p.Mode == modeNutriPro {
		apiError(c, http.StatusConflict, "meal plans are prescribed by your nutritionist")
		return
	}
	t, ok := p.targets().Configured()
	if !ok {
		apiError(c, http.StatusBadRequest, "complete your biometrics before generating a plan")
		return
	}

	meals := generatePlanMeals(t.TargetCalories, t.Macros)
	mealsJSON, err := json.Marshal(meals)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to generate meal plan")
		return
	}
	macrosJSON, err := json.Marshal(t.Macros)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to generate meal plan")
		return
	}

	tx, err := h.db.Begin(c)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save meal plan")
		return
	}
	defer tx.Rollback(c)

	if _, err := tx.Exec(c,
		`UPDATE meal_plans SET is_active = false WHERE user_id = @userID AND source = 'AI'`,
		pgx.NamedArgs{"userID": userID}); err != nil {
		log.Printf("[generateMealPlan] deactivate failed for user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to save meal plan")
		return
	}

	rows, err := tx.Query(c,
		`INSERT INTO meal_plans (user_id, name, description, target_kcal, target_macros, meals, source, is_active)
		 VALUES (@userID, @name, @description, @targetKcal, @targetMacros::jsonb, @meals::jsonb, 'AI', true)
		 RETURNING *`,
		pgx.NamedArgs{
			"userID": userID, "name": "Generated Plan",
			"description": "Daily targets split across four meals",
			"targetKcal": t.TargetCalories, "targetMacros": string(macrosJSON),
			"meals": string(mealsJSON),
		})
	if err != nil {
		log.Printf("[generateMealPlan] insert failed for user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to save meal plan")
		return
	}
	plan, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[mealPlan])
	if err != nil {
		log.Printf("[generateMealPlan] scan failed for user %d: %v", userID, err)
		apiError(c, http.StatusInternalServerError, "failed to save meal plan")
		return
	}
	if err := tx.Commit(c); err != nil {
		apiError(c, http.StatusInternalServerError, "failed to save meal plan")
		return
	}

	c.JSON(http.StatusCreated, plan)
}
