package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// setupSuggestTest creates a Gin engine with a mock OpenAI server and returns
// the router and a function to set the mock response. No DB needed for food tests.
func setupSuggestTest() (*gin.Engine, *httptest.Server, func(int, interface{})) {
	var mockStatus int
	var mockBody interface{}

	mockOpenAI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(mockStatus)
		json.NewEncoder(w).Encode(mockBody)
	}))

	gin.SetMode(gin.TestMode)
	h := Handler{
		openAIBaseURL: mockOpenAI.URL,
		now:           func() time.Time { return time.Date(2026, 3, 9, 8, 15, 0, 0, time.UTC) },
	}
	router := gin.New()
	// Skip auth middleware for tests, set a dummy user_id
	router.POST("/api/daily-log/suggest", func(c *gin.Context) {
		c.Set("user_id", 1)
		c.Next()
	}, h.suggestLogEntry)

	setMock := func(status int, body interface{}) {
		mockStatus = status
		mockBody = body
	}

	return router, mockOpenAI, setMock
}

// doSuggestRequest sends a POST to the suggest endpoint with the given body.
func doSuggestRequest(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/daily-log/suggest", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// openAIChatResponse wraps a content string in the OpenAI chat completions
// response shape (choices[0].message.content).
func openAIChatResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"message": map[string]interface{}{
					"content": content,
				},
			},
		},
	}
}

func TestSuggest_FoodSuccess(t *testing.T) {
	router, mockServer, setMock := setupSuggestTest()
	defer mockServer.Close()

	suggestion := `{"item_name":"Scrambled Eggs","qty":2,"uom":"each","calories":180,"protein_g":14,"carbs_g":2,"fat_g":12,"confidence":4}`
	setMock(http.StatusOK, openAIChatResponse(suggestion))
	t.Setenv("OPENAI_API_KEY", "test-key")

	w := doSuggestRequest(router, `{"description":"2 eggs scrambled","kind":"meal"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp proposal
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Kind != "meal" || resp.Meal == nil || resp.Exercise != nil {
		t.Fatalf("expected a meal proposal, got %+v", resp)
	}
	if resp.Meal.Name != "Scrambled Eggs" {
		t.Errorf("expected name 'Scrambled Eggs', got '%s'", resp.Meal.Name)
	}
	if resp.Meal.Time != "08:15" {
		t.Errorf("expected time '08:15', got '%s'", resp.Meal.Time)
	}
	if resp.Meal.TotalKcal != 180 {
		t.Errorf("expected total_kcal 180, got %d", resp.Meal.TotalKcal)
	}
	if len(resp.Meal.Items) != 1 || resp.Meal.Items[0].Quantity != 2 || resp.Meal.Items[0].Unit != "each" {
		t.Errorf("expected one item of 2 each, got %+v", resp.Meal.Items)
	}
	want := Macros{ProteinG: 14, CarbsG: 2, FatG: 12}
	if resp.Meal.TotalMacros != want {
		t.Errorf("expected macros %+v, got %+v", want, resp.Meal.TotalMacros)
	}
	if resp.Confidence != 4 {
		t.Errorf("expected confidence 4, got %d", resp.Confidence)
	}
}

func TestSuggest_KindDefaultsToMeal(t *testing.T) {
	router, mockServer, setMock := setupSuggestTest()
	defer mockServer.Close()

	setMock(http.StatusOK, openAIChatResponse(`{"item_name":"Banana","qty":1,"uom":"each","calories":105,"protein_g":1,"carbs_g":27,"fat_g":0,"confidence":5}`))
	t.Setenv("OPENAI_API_KEY", "test-key")

	w := doSuggestRequest(router, `{"description":"banana"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp proposal
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Kind != "meal" || resp.Meal == nil {
		t.Errorf("expected a meal proposal, got %+v", resp)
	}
}

func TestSuggest_ExerciseSuccess(t *testing.T) {
	router, mockServer, setMock := setupSuggestTest()
	defer mockServer.Close()

	// Exercise entries without DB still work, they use the fallback prompt
	suggestion := `{"item_name":"Jogging","qty":30,"uom":"minutes","calories":250,"protein_g":0,"carbs_g":0,"fat_g":0,"confidence":3}`
	setMock(http.StatusOK, openAIChatResponse(suggestion))
	t.Setenv("OPENAI_API_KEY", "test-key")

	w := doSuggestRequest(router, `{"description":"30 minute jog","kind":"exercise"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp proposal
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Kind != "exercise" || resp.Exercise == nil || resp.Meal != nil {
		t.Fatalf("expected an exercise proposal, got %+v", resp)
	}
	if resp.Exercise.Name != "Jogging" {
		t.Errorf("expected name 'Jogging', got '%s'", resp.Exercise.Name)
	}
	if resp.Exercise.Kcal != 250 {
		t.Errorf("expected kcal 250, got %d", resp.Exercise.Kcal)
	}
	if resp.Exercise.DurationMin != 30 {
		t.Errorf("expected duration 30, got %d", resp.Exercise.DurationMin)
	}
}

func TestSuggest_InvalidKind(t *testing.T) {
	router, mockServer, _ := setupSuggestTest()
	defer mockServer.Close()

	w := doSuggestRequest(router, `{"description":"banana","kind":"snack"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSuggest_ZeroCaloriesIsUnrecognized(t *testing.T) {
	router, mockServer, setMock := setupSuggestTest()
	defer mockServer.Close()

	setMock(http.StatusOK, openAIChatResponse(`{"item_name":"Water","qty":1,"uom":"cup","calories":0,"confidence":5}`))
	t.Setenv("OPENAI_API_KEY", "test-key")

	w := doSuggestRequest(router, `{"description":"glass of water"}`)

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp["error"] != "unrecognized" {
		t.Errorf("expected 200 unrecognized, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSuggest_Unrecognized(t *testing.T) {
	router, mockServer, setMock := setupSuggestTest()
	defer mockServer.Close()

	setMock(http.StatusOK, openAIChatResponse(`{"error":"unrecognized"}`))
	t.Setenv("OPENAI_API_KEY", "test-key")

	w := doSuggestRequest(router, `{"description":"asdfghjkl","kind":"meal"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "unrecognized" {
		t.Errorf("expected error 'unrecognized', got '%s'", resp["error"])
	}
}

func TestSuggest_OpenAIError500(t *testing.T) {
	router, mockServer, setMock := setupSuggestTest()
	defer mockServer.Close()

	setMock(http.StatusInternalServerError, map[string]string{"error": "server error"})
	t.Setenv("OPENAI_API_KEY", "test-key")

	w := doSuggestRequest(router, `{"description":"banana","kind":"meal"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "openai request failed" {
		t.Errorf("expected error 'openai request failed', got '%s'", resp["error"])
	}
}

func TestSuggest_EmptyDescription(t *testing.T) {
	router, mockServer, _ := setupSuggestTest()
	defer mockServer.Close()

	w := doSuggestRequest(router, `{"description":"","kind":"meal"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSuggest_MalformedJSON(t *testing.T) {
	router, mockServer, setMock := setupSuggestTest()
	defer mockServer.Close()

	// OpenAI returns something that isn't valid JSON
	setMock(http.StatusOK, openAIChatResponse(`not valid json at all`))
	t.Setenv("OPENAI_API_KEY", "test-key")

	w := doSuggestRequest(router, `{"description":"banana","kind":"meal"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}
}
