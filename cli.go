package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "neurodiet-api",
	Short: "neurodiet-api serves the daily energy ledger API",
	Long:  "neurodiet-api computes energy and macro targets from biometrics and tracks each user's daily calorie ledger.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var (
	targetsWeight   float64
	targetsHeight   float64
	targetsAge      int
	targetsSex      string
	targetsActivity string
	targetsGoal     string
	targetsJSON     bool
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Compute energy and macro targets offline",
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := computeEnergyTargets(Biometrics{
			WeightKG:      targetsWeight,
			HeightCM:      targetsHeight,
			AgeYears:      targetsAge,
			Sex:           Sex(targetsSex),
			ActivityLevel: ActivityLevel(targetsActivity),
			Goal:          Goal(targetsGoal),
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if targetsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(t)
		}
		fmt.Fprintf(out, "BMR:     %d kcal\n", t.BasalRate)
		fmt.Fprintf(out, "TDEE:    %d kcal\n", t.TotalExpenditure)
		fmt.Fprintf(out, "Target:  %d kcal\n", t.TargetCalories)
		fmt.Fprintf(out, "Protein: %.0f g\n", t.Macros.ProteinG)
		fmt.Fprintf(out, "Carbs:   %.0f g\n", t.Macros.CarbsG)
		fmt.Fprintf(out, "Fat:     %.0f g\n", t.Macros.FatG)
		return nil
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("[cli] %v", err)
		os.Exit(1)
	}
}

func init() {
	targetsCmd.Flags().Float64Var(&targetsWeight, "weight", 0, "Body weight in kg")
	targetsCmd.Flags().Float64Var(&targetsHeight, "height", 0, "Height in cm")
	targetsCmd.Flags().IntVar(&targetsAge, "age", 0, "Age in years")
	targetsCmd.Flags().StringVar(&targetsSex, "sex", "", "male or female")
	targetsCmd.Flags().StringVar(&targetsActivity, "activity", string(ActivitySedentary), "sedentary, light, moderate, active, very_active")
	targetsCmd.Flags().StringVar(&targetsGoal, "goal", string(GoalMaintain), "lose, maintain, gain")
	targetsCmd.Flags().BoolVar(&targetsJSON, "json", false, "Output JSON")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(targetsCmd)
}
