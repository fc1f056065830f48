package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"orchboard/internal/config"
	"orchboard/internal/db"
	"orchboard/internal/domain"
	"orchboard/internal/engine"
	"orchboard/internal/metrics"
	"orchboard/internal/migrate"
	orchboardsdk "orchboard/sdk/go"
)

const testKey = "dash-secret"

var authed = map[string]string{"X-Api-Key": testKey}

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, auth AuthConfig) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	cfg := config.Default()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	m := metrics.New()
	e := engine.New(conn, cfg)
	e.Metrics = m
	if auth.APIKey == "" {
		auth.APIKey = testKey
	}
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: auth, Metrics: m})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, string(data))
	}
	return env.Error.Code
}

func seedProject(t *testing.T, srv *testServer, id string) {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/projects", map[string]any{
		"id":          id,
		"name":        "Project " + id,
		"description": "test project",
	}, authed)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create project status %d: %s", res.StatusCode, string(data))
	}
}

func seedSuggestion(t *testing.T, srv *testServer, projectID, title string) domain.Suggestion {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/suggestions", map[string]any{
		"project_id": projectID,
		"title":      title,
	}, authed)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create suggestion status %d: %s", res.StatusCode, string(data))
	}
	var s domain.Suggestion
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("unmarshal suggestion: %v", err)
	}
	return s
}

func TestHealthIsOpen(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}

func TestAuthGate(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{
		JWTSecret:       "jwt-secret",
		SameOriginHosts: []string{"dash.local"},
	})
	defer cleanup()
	token, _, err := signToken("jwt-secret", "ci-bot", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	forged, _, err := signToken("other-secret", "ci-bot", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	tests := []struct {
		name    string
		query   string
		headers map[string]string
		status  int
		code    string
	}{
		{name: "no credentials", status: http.StatusUnauthorized, code: "unauthorized"},
		{name: "query key", query: "?key=" + testKey, status: http.StatusOK},
		{name: "wrong query key", query: "?key=nope", status: http.StatusUnauthorized, code: "invalid_credentials"},
		{name: "bearer dashboard key", headers: map[string]string{"Authorization": "Bearer " + testKey}, status: http.StatusOK},
		{name: "api key header", headers: authed, status: http.StatusOK},
		{name: "wrong api key header", headers: map[string]string{"X-Api-Key": "nope"}, status: http.StatusUnauthorized, code: "invalid_credentials"},
		{name: "signed token", headers: map[string]string{"Authorization": "Bearer " + token}, status: http.StatusOK},
		{name: "forged token", headers: map[string]string{"Authorization": "Bearer " + forged}, status: http.StatusUnauthorized, code: "invalid_credentials"},
		{name: "malformed authorization", headers: map[string]string{"Authorization": "Basic abc"}, status: http.StatusUnauthorized, code: "invalid_credentials"},
		{name: "same origin referer", headers: map[string]string{"Referer": "http://dash.local:3000/projects"}, status: http.StatusOK},
		{name: "foreign referer", headers: map[string]string{"Referer": "http://evil.example/"}, status: http.StatusUnauthorized, code: "unauthorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/running-tasks"+tt.query, nil, tt.headers)
			if res.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, res.StatusCode, string(data))
			}
			if tt.code != "" {
				if got := errorCode(t, data); got != tt.code {
					t.Fatalf("expected code %s, got %s", tt.code, got)
				}
			}
		})
	}
}

func TestNoDashboardKeyRefusesKeyCredentials(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	handler, err := New(Config{Engine: srv.Engine, BasePath: "/v0"})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	for _, target := range []string{"/v0/status?key=anything", "/v0/status?key="} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d: %s", target, rec.Code, rec.Body.String())
		}
	}
}

func TestStoredAPIKeyAndMe(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/api-keys", map[string]any{"name": "scheduler"}, authed)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create api key status %d: %s", res.StatusCode, string(data))
	}
	var created engine.CreatedAPIKey
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal key: %v", err)
	}
	if !strings.HasPrefix(created.Key, "ob_") {
		t.Fatalf("unexpected key %q", created.Key)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{"X-Api-Key": created.Key})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me status %d: %s", res.StatusCode, string(data))
	}
	var who WhoAmIResponse
	_ = json.Unmarshal(data, &who)
	if who.ActorID != "scheduler" || who.Source != "api_key" {
		t.Fatalf("unexpected principal %+v", who)
	}

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/api-keys/"+created.ID, nil, authed)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete api key status %d: %s", res.StatusCode, string(data))
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{"X-Api-Key": created.Key})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("revoked key still accepted: %d", res.StatusCode)
	}
}

func TestIssueToken(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{JWTSecret: "jwt-secret"})
	defer cleanup()
	client := srv.Client()
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/auth/token", map[string]any{"subject": "runner-1"}, authed)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("issue token status %d: %s", res.StatusCode, string(data))
	}
	var tok TokenResponse
	_ = json.Unmarshal(data, &tok)
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{"Authorization": "Bearer " + tok.Token})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me with token status %d: %s", res.StatusCode, string(data))
	}
	var who WhoAmIResponse
	_ = json.Unmarshal(data, &who)
	if who.ActorID != "runner-1" || who.Source != "jwt" {
		t.Fatalf("unexpected principal %+v", who)
	}
}

func TestPromoteSuggestionsOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()
	seedProject(t, srv, "alpha")
	a := seedSuggestion(t, srv, "alpha", "Add retries")
	b := seedSuggestion(t, srv, "alpha", "Cache results")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/suggestions/execute", map[string]any{
		"suggestion_ids": []int64{a.ID, b.ID},
	}, authed)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("execute status %d: %s", res.StatusCode, string(data))
	}
	var promoted PromoteResponse
	if err := json.Unmarshal(data, &promoted); err != nil {
		t.Fatalf("unmarshal promote: %v", err)
	}
	if !promoted.Success || promoted.Count != 2 || len(promoted.Tasks) != 2 {
		t.Fatalf("unexpected promotion %+v", promoted)
	}
	for _, task := range promoted.Tasks {
		if task.Status != domain.TaskPending || task.Priority != domain.DefaultTaskPriority || task.ProjectID != "alpha" {
			t.Fatalf("unexpected task %+v", task)
		}
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/suggestions?project_id=alpha", nil, authed)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list suggestions status %d: %s", res.StatusCode, string(data))
	}
	var list SuggestionsResponse
	_ = json.Unmarshal(data, &list)
	if len(list.Suggestions) != 0 {
		t.Fatalf("promoted suggestions still listed: %+v", list.Suggestions)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/instructions?project_id=alpha", nil, authed)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list instructions status %d: %s", res.StatusCode, string(data))
	}
	var open TasksResponse
	_ = json.Unmarshal(data, &open)
	if len(open.Tasks) != 2 {
		t.Fatalf("expected 2 open tasks, got %d", len(open.Tasks))
	}
}

func TestPromoteRejectsBadBatches(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/suggestions/execute", map[string]any{
		"suggestion_ids": []int64{},
	}, authed)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty batch: expected 400, got %d: %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "bad_request" {
		t.Fatalf("empty batch: expected bad_request, got %s", code)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/suggestions/execute", map[string]any{
		"suggestion_ids": []int64{404, 405},
	}, authed)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown ids: expected 404, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/suggestions/execute", nil, authed)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing body: expected 400, got %d: %s", res.StatusCode, string(data))
	}
}

func TestRunLifecycleAndCapacity(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()
	seedProject(t, srv, "alpha")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/instructions", map[string]any{
		"project_id":  "alpha",
		"instruction": "Fix the flaky test",
	}, authed)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("submit instruction status %d: %s", res.StatusCode, string(data))
	}
	var queued TaskResponse
	_ = json.Unmarshal(data, &queued)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/runs", map[string]any{
		"project_id": "alpha",
		"task_id":    queued.Task.ID,
	}, authed)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("start run status %d: %s", res.StatusCode, string(data))
	}
	var run domain.Run
	_ = json.Unmarshal(data, &run)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/running-tasks", nil, authed)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("running-tasks status %d: %s", res.StatusCode, string(data))
	}
	var status engine.RunningStatus
	if err := json.Unmarshal(data, &status); err != nil {
		t.Fatalf("unmarshal running status: %v", err)
	}
	if len(status.Running) != 1 || status.MaxConcurrent != 3 || status.AvailableSlots != 2 || !status.CanStart {
		t.Fatalf("unexpected running status %+v", status)
	}
	if status.Running[0].Task == nil || status.Running[0].Task.Title != "Fix the flaky test" {
		t.Fatalf("running run missing task join: %+v", status.Running[0])
	}

	path := srv.URL + "/v0/runs/" + jsonNumber(run.ID)
	res, data = doJSON(t, client, http.MethodPost, path+"/tool-calls", map[string]any{"tool_name": "bash", "success": true}, authed)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("tool call status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, path+"/evaluations", map[string]any{"overall_score": 8.5}, authed)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("evaluation status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, path+"/finish", map[string]any{"status": "completed"}, authed)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("finish status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, path+"/finish", map[string]any{"status": "failed"}, authed)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("second finish: expected 400, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/running-tasks", nil, authed)
	_ = json.Unmarshal(data, &status)
	if len(status.Running) != 0 || status.AvailableSlots != 3 {
		t.Fatalf("finished run still counted: %+v", status)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/evaluations", nil, authed)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("evaluations status %d: %s", res.StatusCode, string(data))
	}
	var evals EvaluationsResponse
	_ = json.Unmarshal(data, &evals)
	if len(evals.Evaluations) != 1 || evals.Evaluations[0].RunStatus != domain.RunCompleted {
		t.Fatalf("unexpected evaluations %+v", evals.Evaluations)
	}
}

func TestAnalyticsEndpoint(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()
	seedProject(t, srv, "alpha")
	ctx := context.Background()
	run, err := srv.Engine.StartRun(ctx, engine.RunStartOptions{ProjectID: "alpha", Instruction: "audit"})
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	for _, score := range []float64{6, 8} {
		if _, err := srv.Engine.RecordEvaluation(ctx, engine.EvaluationOptions{RunID: run.ID, OverallScore: score, FailureCategory: "timeout"}); err != nil {
			t.Fatalf("record evaluation: %v", err)
		}
	}
	for _, ok := range []bool{true, true, false} {
		if _, err := srv.Engine.RecordToolCall(ctx, engine.ToolCallOptions{RunID: run.ID, ToolName: "grep", Success: ok}); err != nil {
			t.Fatalf("record tool call: %v", err)
		}
	}

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/analytics?days=7&project_id=alpha", nil, authed)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("analytics status %d: %s", res.StatusCode, string(data))
	}
	var a engine.Analytics
	if err := json.Unmarshal(data, &a); err != nil {
		t.Fatalf("unmarshal analytics: %v", err)
	}
	if a.WindowDays != 7 || len(a.Degraded) != 0 {
		t.Fatalf("unexpected window %+v", a)
	}
	if len(a.ScoreTrend) != 1 || a.ScoreTrend[0].AverageScore != 7 {
		t.Fatalf("unexpected score trend %+v", a.ScoreTrend)
	}
	if len(a.FailureCategories) != 1 || a.FailureCategories[0].Count != 2 {
		t.Fatalf("unexpected failure categories %+v", a.FailureCategories)
	}
	if len(a.ToolUsage) != 1 || a.ToolUsage[0].SuccessRate != 66.7 {
		t.Fatalf("unexpected tool usage %+v", a.ToolUsage)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/analytics?days=-1", nil, authed)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative days: expected 400, got %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/analytics?days=200000", nil, authed)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("oversized days: expected 400, got %d: %s", res.StatusCode, string(data))
	}
}

func TestErrorEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()
	seedProject(t, srv, "alpha")

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects/missing", nil, authed)
	if res.StatusCode != http.StatusNotFound || errorCode(t, data) != "not_found" {
		t.Fatalf("missing project: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/projects", map[string]any{
		"id": "alpha", "name": "again", "description": "dup",
	}, authed)
	if res.StatusCode != http.StatusConflict || errorCode(t, data) != "conflict" {
		t.Fatalf("duplicate project: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/instructions", map[string]any{
		"project_id": "alpha", "instruction": "   ",
	}, authed)
	if res.StatusCode != http.StatusBadRequest || errorCode(t, data) != "bad_request" {
		t.Fatalf("blank instruction: %d %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/v0/suggestions/999", nil, authed)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("delete missing suggestion: %d %s", res.StatusCode, string(data))
	}
}

func TestProjectsAndProfile(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()
	seedProject(t, srv, "alpha")
	seedProject(t, srv, "beta")

	res, data := doJSON(t, client, http.MethodPatch, srv.URL+"/v0/projects/beta", map[string]any{"priority": 9}, authed)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update project status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/projects", nil, authed)
	var projects ProjectsResponse
	_ = json.Unmarshal(data, &projects)
	if len(projects.Projects) != 2 || projects.Projects[0].ID != "beta" {
		t.Fatalf("expected beta first, got %+v", projects.Projects)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/user-profile", nil, authed)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("profile before save: expected 404, got %d", res.StatusCode)
	}
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/user-profile", map[string]any{
		"current_situation": "shipping v1",
		"current_goals":     []string{"stability"},
	}, authed)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("save profile status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/status", nil, authed)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var overview engine.StatusOverview
	_ = json.Unmarshal(data, &overview)
	if overview.UserProfile == nil || overview.UserProfile.CurrentSituation != "shipping v1" || len(overview.Projects) != 2 {
		t.Fatalf("unexpected overview %+v", overview)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/events?project_id=beta", nil, authed)
	var evts EventsResponse
	_ = json.Unmarshal(data, &evts)
	if len(evts.Events) != 2 || evts.Events[0].Type != "project.updated" {
		t.Fatalf("unexpected events %+v", evts.Events)
	}
}

func TestMetricsAndOpenAPI(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()
	if res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/running-tasks", nil, authed); res.StatusCode != http.StatusOK {
		t.Fatalf("running-tasks status %d: %s", res.StatusCode, string(data))
	}
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/metrics", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("metrics status %d", res.StatusCode)
	}
	if !strings.Contains(string(data), "orchboard_run_capacity 3") {
		t.Fatalf("metrics missing capacity gauge:\n%s", string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/openapi.json", nil, authed)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("openapi status %d", res.StatusCode)
	}
	if !strings.Contains(string(data), "/v0/suggestions/execute") || !strings.Contains(string(data), "queryKeyAuth") {
		t.Fatalf("openapi document incomplete")
	}
}

func TestSDKClient(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	seedProject(t, srv, "alpha")
	ctx := context.Background()
	c := orchboardsdk.New(srv.URL, testKey)

	s, err := c.CreateSuggestion(ctx, "alpha", "Trim logs", "")
	if err != nil {
		t.Fatalf("create suggestion: %v", err)
	}
	list, err := c.Suggestions(ctx, "alpha")
	if err != nil || len(list) != 1 {
		t.Fatalf("suggestions: %v %+v", err, list)
	}
	promoted, err := c.PromoteSuggestions(ctx, []int64{s.ID})
	if err != nil || !promoted.Success || promoted.Count != 1 {
		t.Fatalf("promote: %v %+v", err, promoted)
	}
	task, err := c.SubmitInstruction(ctx, "alpha", "Write docs")
	if err != nil || task.Status != domain.TaskPending {
		t.Fatalf("instruction: %v %+v", err, task)
	}
	running, err := c.RunningTasks(ctx)
	if err != nil || running.PendingCount != 2 || running.AvailableSlots != 3 {
		t.Fatalf("running tasks: %v %+v", err, running)
	}
	a, err := c.Analytics(ctx, 0, "")
	if err != nil || a.WindowDays != 30 {
		t.Fatalf("analytics: %v %+v", err, a)
	}

	_, err = orchboardsdk.New(srv.URL, "wrong").RunningTasks(ctx)
	apiErr, ok := err.(*orchboardsdk.APIError)
	if !ok || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 api error, got %v", err)
	}
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
