package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

/* ─── Request / Response types ───────────────────────────────────────── */

// suggestRequest is the request body for POST /api/daily-log/suggest.
// Kind is "meal" (default) or "exercise".
type suggestRequest struct {
	Description string `json:"description"`
	Kind        string `json:"kind"`
}

// suggestionResponse is the structured nutrition data returned by the AI.
// For exercise entries, only ItemName, Qty/Uom, and Calories are populated.
// Confidence is 1-5 indicating how accurate the estimate is.
type suggestionResponse struct {
	ItemName   string  `json:"item_name"`
	Qty        float64 `json:"qty"`
	Uom        string  `json:"uom"`
	Calories   int     `json:"calories"`
	ProteinG   float64 `json:"protein_g"`
	CarbsG     float64 `json:"carbs_g"`
	FatG       float64 `json:"fat_g"`
	Confidence int     `json:"confidence"`
}

// proposal is what the client shows for confirmation. Exactly one of Meal or
// Exercise is set; nothing is logged until the client posts it back.
type proposal struct {
	Kind       string    `json:"kind"`
	Meal       *Meal     `json:"meal,omitempty"`
	Exercise   *Exercise `json:"exercise,omitempty"`
	Confidence int       `json:"confidence"`
}

// toMealProposal wraps a food suggestion as a one-item Meal. The meal time is
// the request time formatted HH:MM.
func (s suggestionResponse) toMealProposal(at time.Time) proposal {
	macros := Macros{ProteinG: s.ProteinG, CarbsG: s.CarbsG, FatG: s.FatG}
	return proposal{
		Kind: "meal",
		Meal: &Meal{
			Name: s.ItemName,
			Time: at.Format("15:04"),
			Items: []FoodItem{{
				Name:     s.ItemName,
				Quantity: s.Qty,
				Unit:     s.Uom,
				Kcal:     s.Calories,
				Macros:   macros,
			}},
			TotalKcal:   s.Calories,
			TotalMacros: macros,
		},
		Confidence: s.Confidence,
	}
}

// toExerciseProposal maps an exercise suggestion. Duration is only known when
// the model reported the quantity in minutes.
func (s suggestionResponse) toExerciseProposal() proposal {
	e := &Exercise{
		Name:      s.ItemName,
		Type:      strings.ToLower(s.ItemName),
		Intensity: IntensityModerate,
		Kcal:      s.Calories,
	}
	if s.Uom == "minutes" {
		e.DurationMin = int(math.Round(s.Qty))
	}
	return proposal{Kind: "exercise", Exercise: e, Confidence: s.Confidence}
}

/* ─── OpenAI prompt constants ────────────────────────────────────────── */

const foodSystemPrompt = `You are a nutrition assistant. Parse the food description and return a JSON object with:
- "item_name" (string, cleaned up title case)
- "qty" (number)
- "uom" (one of: each, g, ml, cup, slice)
- "calories" (integer, total for the full quantity)
- "protein_g" (integer, total for the full quantity)
- "carbs_g" (integer, total for the full quantity)
- "fat_g" (integer, total for the full quantity)
- "confidence" (integer 1-5: 5=exact known nutritional data, 4=very close estimate, 3=reasonable estimate, 2=rough guess, 1=very uncertain)

Always provide your best estimate, even for unfamiliar or vague items. Use your knowledge of similar foods to approximate. Only return {"error": "unrecognized"} if the input is not food at all (e.g. random characters, non-food objects).
Return only valid JSON, no explanation.`

// exerciseSystemPromptTemplate includes placeholders for the user's body stats
// so the AI can estimate calories burned more accurately.
const exerciseSystemPromptTemplate = `You are a fitness calorie-burn estimator. The user is:
- Sex: %s
- Age: %d years
- Weight: %.0f kg
- Height: %.0f cm

Parse the exercise description and estimate calories burned. Return a JSON object with:
- "item_name" (string, cleaned up title case)
- "qty" (number, duration or distance)
- "uom" (one of: minutes, km, miles, each)
- "calories" (integer, estimated calories burned)
- "protein_g" (always 0)
- "carbs_g" (always 0)
- "fat_g" (always 0)
- "confidence" (integer 1-5: 5=well-studied exercise with known MET values, 4=very close estimate, 3=reasonable estimate, 2=rough guess, 1=very uncertain)

Always provide your best estimate, even for unusual activities. Only return {"error": "unrecognized"} if the input is not an exercise at all.
Return only valid JSON, no explanation.`

// exerciseSystemPromptFallback is used when the user has no body stats saved.
const exerciseSystemPromptFallback = `You are a fitness calorie-burn estimator. No body stats are available, so use averages for an adult.

Parse the exercise description and estimate calories burned. Return a JSON object with:
- "item_name" (string, cleaned up title case)
- "qty" (number, duration or distance)
- "uom" (one of: minutes, km, miles, each)
- "calories" (integer, estimated calories burned)
- "protein_g" (always 0)
- "carbs_g" (always 0)
- "fat_g" (always 0)
- "confidence" (integer 1-5: 5=well-studied exercise with known MET values, 4=very close estimate, 3=reasonable estimate, 2=rough guess, 1=very uncertain)

Always provide your best estimate, even for unusual activities. Only return {"error": "unrecognized"} if the input is not an exercise at all.
Return only valid JSON, no explanation.`

/* ─── OpenAI HTTP client ─────────────────────────────────────────────── */

// openAIMessage is a single message in the OpenAI chat completions request.
type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openAIRequest is the request body for the OpenAI chat completions API.
type openAIRequest struct {
	Model          string                 `json:"model"`
	Messages       []openAIMessage        `json:"messages"`
	Temperature    float64                `json:"temperature"`
	ResponseFormat map[string]interface{} `json:"response_format"`
}

// callOpenAI sends a chat completions request and returns the raw content string
// from the first choice. Uses raw net/http to avoid pulling in the OpenAI SDK.
func callOpenAI(ctx context.Context, messages []openAIMessage, baseURL string) (string, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}

	reqBody := openAIRequest{
		Model:       "gpt-4o-mini",
		Messages:    messages,
		Temperature: 0,
		ResponseFormat: map[string]interface{}{
			"type": "json_object",
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai returned status %d: %s", resp.StatusCode, string(respBytes))
	}

	// Parse the response to extract choices[0].message.content
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return result.Choices[0].Message.Content, nil
}

/* ─── Handler ────────────────────────────────────────────────────────── */

// suggestLogEntry handles POST /api/daily-log/suggest.
// Accepts a free-text meal or exercise description, calls OpenAI to parse it
// into structured nutrition data, and returns a proposal for the client to
// confirm. The daily log is not touched here.
func (h *Handler) suggestLogEntry(c *gin.Context) {
	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Description) == "" {
		apiError(c, http.StatusBadRequest, "description is required")
		return
	}
	if req.Kind == "" {
		req.Kind = "meal"
	}
	if req.Kind != "meal" && req.Kind != "exercise" {
		apiError(c, http.StatusBadRequest, "kind must be one of: meal, exercise")
		return
	}

	// Build the system prompt based on entry kind
	var systemPrompt string
	if req.Kind == "exercise" {
		systemPrompt = h.buildExercisePrompt(c)
	} else {
		systemPrompt = foodSystemPrompt
	}

	messages := []openAIMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: req.Description},
	}

	content, err := callOpenAI(c.Request.Context(), messages, h.openAIBaseURL)
	if err != nil {
		log.Printf("[suggest] OpenAI error: %v", err)
		apiError(c, http.StatusInternalServerError, "openai request failed")
		return
	}

	// Check if the AI returned an "unrecognized" error
	var errorResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(content), &errorResp); err != nil {
		log.Printf("[suggest] Failed to parse OpenAI response: %v", err)
		apiError(c, http.StatusInternalServerError, "openai request failed")
		return
	}
	if errorResp.Error == "unrecognized" {
		c.JSON(http.StatusOK, gin.H{"error": "unrecognized"})
		return
	}

	// Parse the suggestion
	var suggestion suggestionResponse
	if err := json.Unmarshal([]byte(content), &suggestion); err != nil {
		log.Printf("[suggest] Failed to parse suggestion JSON: %v", err)
		apiError(c, http.StatusInternalServerError, "openai request failed")
		return
	}

	// Validate that we got a usable response (at minimum, item_name and calories)
	if suggestion.ItemName == "" || suggestion.Calories <= 0 {
		c.JSON(http.StatusOK, gin.H{"error": "unrecognized"})
		return
	}

	if req.Kind == "exercise" {
		c.JSON(http.StatusOK, suggestion.toExerciseProposal())
		return
	}
	c.JSON(http.StatusOK, suggestion.toMealProposal(h.clock()))
}

// buildExercisePrompt loads the user's body stats from the profile and builds
// the exercise system prompt. Falls back to a generic prompt if stats are missing.
func (h *Handler) buildExercisePrompt(c *gin.Context) string {
	if h.db == nil {
		return exerciseSystemPromptFallback
	}
	p, err := h.loadProfile(c, c.GetInt("user_id"))
	if err != nil {
		return exerciseSystemPromptFallback
	}

	// Need sex, age, weight, and height for a personalized estimate
	if p.Sex == nil || p.AgeYears == nil || p.WeightKG == nil || p.HeightCM == nil {
		return exerciseSystemPromptFallback
	}

	return fmt.Sprintf(exerciseSystemPromptTemplate,
		*p.Sex, *p.AgeYears, *p.WeightKG, *p.HeightCM)
}
