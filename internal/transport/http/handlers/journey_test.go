package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"evalhub/internal/app/server"
	"evalhub/internal/platform/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		DatabaseURL:        dbURL,
		JWTSecret:          "test-secret",
		Environment:        "test",
		SeedOrgName:        "Test Org",
		SeedAdminEmail:     "admin@test.local",
		SeedAdminPassword:  "ChangeMe123!",
		SeedCatalogue:      true,
		EmailFrom:          "no-reply@test.local",
		RunMigrations:      true,
		RunSeed:            true,
		MigrationsDir:      "../../../../migrations",
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
	}
}

func TestCompetencyEvaluationJourney(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()

	client := ts.Client()
	hrToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	suffix := time.Now().UnixNano()
	employeePassword := "Employee123!"
	employeeEmail := fmt.Sprintf("emp-%d@example.com", suffix)
	createEmployee(t, client, ts.URL, hrToken, employeeEmail, "employee", employeePassword)

	assessorPassword := "Assessor123!"
	assessorEmail := fmt.Sprintf("assessor-%d@example.com", suffix)
	assessorID := createEmployee(t, client, ts.URL, hrToken, assessorEmail, "assessor", assessorPassword)

	closeActiveCycle(t, client, ts.URL, hrToken)
	cycleID := createCycle(t, client, ts.URL, hrToken, fmt.Sprintf("Cycle %d", suffix))
	postJSON(t, client, ts.URL+"/api/v1/cycles/"+cycleID+"/activate", hrToken, map[string]any{})

	competencies := listCatalogue(t, client, ts.URL, hrToken, "/api/v1/competencies")
	if len(competencies) == 0 {
		t.Fatal("expected seeded competencies")
	}
	competencyID, _ := competencies[0]["id"].(string)

	empToken := login(t, client, ts.URL, employeeEmail, employeePassword)
	selfID := createSelfEvaluation(t, client, ts.URL, empToken, "competency")

	postJSON(t, client, ts.URL+"/api/v1/evaluations/"+selfID+"/start", empToken, map[string]any{})
	postJSON(t, client, ts.URL+"/api/v1/evaluations/"+selfID+"/ratings", empToken, map[string]any{
		"competencyId": competencyID,
		"rating":       4,
		"comment":      "solid",
	})

	// Competency fan-out reaches every assessor in the org; pick out the one
	// this test created.
	created := completeEvaluation(t, client, ts.URL, empToken, selfID)
	var assessorInstanceID string
	for _, inst := range created {
		if inst["assessorId"] == assessorID {
			assessorInstanceID, _ = inst["id"].(string)
		}
	}
	if assessorInstanceID == "" {
		t.Fatalf("expected fan-out instance for assessor %s, got %d instances", assessorID, len(created))
	}

	// A second complete is idempotent and must not fan out again.
	createdAgain := completeEvaluation(t, client, ts.URL, empToken, selfID)
	if len(createdAgain) != 0 {
		t.Fatalf("expected no new instances on re-complete, got %d", len(createdAgain))
	}

	assessorToken := login(t, client, ts.URL, assessorEmail, assessorPassword)
	postJSON(t, client, ts.URL+"/api/v1/evaluations/"+assessorInstanceID+"/start", assessorToken, map[string]any{})
	postJSON(t, client, ts.URL+"/api/v1/evaluations/"+assessorInstanceID+"/ratings", assessorToken, map[string]any{
		"competencyId": competencyID,
		"rating":       2,
	})
	completeEvaluation(t, client, ts.URL, assessorToken, assessorInstanceID)

	rows := gapAnalysis(t, client, ts.URL, hrToken, "kind=competency&cycleId="+cycleID)
	var found bool
	for _, row := range rows {
		if row["dimensionId"] != competencyID {
			continue
		}
		found = true
		if row["selfAvg"].(float64) != 4 || row["assessorAvg"].(float64) != 2 {
			t.Fatalf("unexpected averages: self %v assessor %v", row["selfAvg"], row["assessorAvg"])
		}
		if row["gap"].(float64) != -2 {
			t.Fatalf("expected gap -2, got %v", row["gap"])
		}
	}
	if !found {
		t.Fatalf("expected gap row for competency %s", competencyID)
	}

	resp := postJSON(t, client, ts.URL+"/api/v1/evaluations/"+selfID+"/review", hrToken, map[string]any{})
	var reviewed map[string]any
	if err := json.Unmarshal(resp.Data, &reviewed); err != nil {
		t.Fatalf("failed to decode review response: %v", err)
	}
	if reviewed["status"] != "reviewed" {
		t.Fatalf("expected reviewed status, got %v", reviewed["status"])
	}
}

func TestAppraisalFanOutHonorsAssignments(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()

	client := ts.Client()
	hrToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	suffix := time.Now().UnixNano()
	employeeID := createEmployee(t, client, ts.URL, hrToken, fmt.Sprintf("appr-emp-%d@example.com", suffix), "employee", "Employee123!")
	assignedID := createEmployee(t, client, ts.URL, hrToken, fmt.Sprintf("appr-yes-%d@example.com", suffix), "assessor", "Assessor123!")
	createEmployee(t, client, ts.URL, hrToken, fmt.Sprintf("appr-no-%d@example.com", suffix), "assessor", "Assessor123!")

	postJSON(t, client, ts.URL+"/api/v1/assignments", hrToken, map[string]any{
		"assessorId": assignedID,
		"employeeId": employeeID,
	})

	closeActiveCycle(t, client, ts.URL, hrToken)
	cycleID := createCycle(t, client, ts.URL, hrToken, fmt.Sprintf("Appraisal Cycle %d", suffix))
	postJSON(t, client, ts.URL+"/api/v1/cycles/"+cycleID+"/activate", hrToken, map[string]any{})

	resp := postJSON(t, client, ts.URL+"/api/v1/evaluations/self", hrToken, map[string]any{
		"employeeId": employeeID,
		"kind":       "appraisal",
	})
	var inst map[string]any
	if err := json.Unmarshal(resp.Data, &inst); err != nil {
		t.Fatalf("failed to decode self evaluation: %v", err)
	}
	selfID, _ := inst["id"].(string)

	postJSON(t, client, ts.URL+"/api/v1/evaluations/"+selfID+"/start", hrToken, map[string]any{})
	created := completeEvaluation(t, client, ts.URL, hrToken, selfID)
	if len(created) != 1 {
		t.Fatalf("expected appraisal fan-out only to the assigned assessor, got %d instances", len(created))
	}
	if created[0]["assessorId"] != assignedID {
		t.Fatalf("expected instance for assessor %s, got %v", assignedID, created[0]["assessorId"])
	}
}

func TestEmployeeCannotManageCycles(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()

	client := ts.Client()
	hrToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	email := fmt.Sprintf("plain-%d@example.com", time.Now().UnixNano())
	createEmployee(t, client, ts.URL, hrToken, email, "employee", "Employee123!")
	empToken := login(t, client, ts.URL, email, "Employee123!")

	postJSONStatus(t, client, ts.URL+"/api/v1/cycles", empToken, map[string]any{"name": "Nope"}, http.StatusForbidden)
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatal("expected token")
	}
	return token
}

func createEmployee(t *testing.T, client *http.Client, baseURL, token, email, role, password string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/employees", token, map[string]any{
		"firstName": "Journey",
		"lastName":  "Tester",
		"email":     email,
		"role":      role,
		"password":  password,
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode employee response: %v", err)
	}
	id, _ := payload["id"].(string)
	if id == "" {
		t.Fatal("expected employee id")
	}
	return id
}

// closeActiveCycle clears the one-active-per-org constraint so tests sharing
// the seeded org can each activate their own cycle.
func closeActiveCycle(t *testing.T, client *http.Client, baseURL, token string) {
	t.Helper()
	resp := getJSON(t, client, baseURL+"/api/v1/cycles", token)
	var cyclesList []map[string]any
	if err := json.Unmarshal(resp.Data, &cyclesList); err != nil {
		t.Fatalf("failed to decode cycles response: %v", err)
	}
	for _, cycle := range cyclesList {
		if cycle["status"] == "active" {
			id, _ := cycle["id"].(string)
			postJSON(t, client, baseURL+"/api/v1/cycles/"+id+"/close", token, map[string]any{})
		}
	}
}

func createCycle(t *testing.T, client *http.Client, baseURL, token, name string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/cycles", token, map[string]any{
		"name": name,
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode cycle response: %v", err)
	}
	id, _ := payload["id"].(string)
	if id == "" {
		t.Fatal("expected cycle id")
	}
	return id
}

func listCatalogue(t *testing.T, client *http.Client, baseURL, token, path string) []map[string]any {
	t.Helper()
	resp := getJSON(t, client, baseURL+path, token)
	var payload []map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode catalogue response: %v", err)
	}
	return payload
}

func createSelfEvaluation(t *testing.T, client *http.Client, baseURL, token, kind string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/evaluations/self", token, map[string]any{
		"kind": kind,
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode self evaluation response: %v", err)
	}
	id, _ := payload["id"].(string)
	if id == "" {
		t.Fatal("expected evaluation id")
	}
	return id
}

func completeEvaluation(t *testing.T, client *http.Client, baseURL, token, instanceID string) []map[string]any {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/evaluations/"+instanceID+"/complete", token, map[string]any{})
	var payload struct {
		Instance map[string]any   `json:"instance"`
		Created  []map[string]any `json:"created"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode complete response: %v", err)
	}
	if payload.Instance["status"] != "completed" && payload.Instance["status"] != "reviewed" {
		t.Fatalf("expected completed status, got %v", payload.Instance["status"])
	}
	return payload.Created
}

func gapAnalysis(t *testing.T, client *http.Client, baseURL, token, query string) []map[string]any {
	t.Helper()
	resp := getJSON(t, client, baseURL+"/api/v1/analytics/gaps?"+query, token)
	var payload []map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode gap analysis response: %v", err)
	}
	return payload
}

func postJSON(t *testing.T, client *http.Client, url, token string, body any) envelope {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(http.MethodPost, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.StatusCode >= 400 {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	return env
}

func postJSONStatus(t *testing.T, client *http.Client, url, token string, body any, want int) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(raw))
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	got, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, string(got))
	}
}

func getJSON(t *testing.T, client *http.Client, url, token string) envelope {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.StatusCode >= 400 {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	return env
}
