package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive/internal/assignment"
	assignmentrepo "github.com/taskhive/taskhive/internal/assignment/repositoryimpl"
	"github.com/taskhive/taskhive/internal/assistant"
	assistantrepo "github.com/taskhive/taskhive/internal/assistant/repositoryimpl"
	"github.com/taskhive/taskhive/internal/client"
	clientrepo "github.com/taskhive/taskhive/internal/client/repositoryimpl"
	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/engine"
	"github.com/taskhive/taskhive/internal/entitlement"
	"github.com/taskhive/taskhive/internal/eventbus"
	"github.com/taskhive/taskhive/internal/marketplace"
	"github.com/taskhive/taskhive/internal/pushsubscription"
	pushsubrepo "github.com/taskhive/taskhive/internal/pushsubscription/repositoryimpl"
	"github.com/taskhive/taskhive/internal/stats"
	"github.com/taskhive/taskhive/internal/task"
	taskrepo "github.com/taskhive/taskhive/internal/task/repositoryimpl"
	"github.com/taskhive/taskhive/pkg/storage"
)

const testAPIKey = "test-api-key"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	env := &config.Env{}
	env.APIKey = testAPIKey

	bus := eventbus.New()
	taskRepo := taskrepo.NewYAMLRepository(st)
	assistantRepo := assistantrepo.NewYAMLRepository(st)
	clientRepo := clientrepo.NewYAMLRepository(st)
	assignmentRepo := assignmentrepo.NewYAMLRepository(st)
	pushSubRepo := pushsubrepo.NewYAMLRepository(st)

	gate := entitlement.NewGate(entitlement.NewCatalog())
	eng := engine.New(taskRepo, assistantRepo, clientRepo, assignmentRepo, gate, bus)

	srv := NewServer(
		env,
		task.NewServer(eng),
		marketplace.NewServer(marketplace.NewMatcher(taskRepo, assistantRepo)),
		assistant.NewServer(assistantRepo, eng),
		client.NewServer(clientRepo),
		assignment.NewServer(eng, assignmentRepo),
		stats.NewServer(taskRepo, assistantRepo, clientRepo),
		pushsubscription.NewServer(&config.VAPIDEnv{}, pushSubRepo),
	)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func call(t *testing.T, ts *httptest.Server, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), "body: %s", string(data))
	}
	return resp.StatusCode, out
}

func TestHealthAndAuth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// No API key on an API route.
	resp, err = http.Get(ts.URL + "/api/v1/tasks")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Bearer form is accepted too.
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/tasks", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	resp, err = ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRouteEnvelope(t *testing.T) {
	ts := newTestServer(t)

	status, body := call(t, ts, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NotFound", body["code"])
	assert.NotEmpty(t, body["message"])
}

// The whole happy path over HTTP: registration, subscription, creation,
// marketplace, claim, complete, revision, approve, stats.
func TestEndToEndFlow(t *testing.T) {
	ts := newTestServer(t)

	status, clientBody := call(t, ts, http.MethodPost, "/api/v1/clients", map[string]any{
		"name": "Alice", "contact": "alice@example.com",
	})
	require.Equal(t, http.StatusCreated, status)
	clientID := clientBody["id"].(string)

	status, assistantBody := call(t, ts, http.MethodPost, "/api/v1/assistants", map[string]any{
		"name": "Bob", "specialization": "full_access",
	})
	require.Equal(t, http.StatusCreated, status)
	assistantID := assistantBody["id"].(string)

	// Without a subscription the client cannot create tasks.
	status, errBody := call(t, ts, http.MethodPost, "/api/v1/tasks", map[string]any{
		"client_id": clientID, "title": "book travel", "task_type": "personal",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "not_entitled", errBody["reason"])

	status, _ = call(t, ts, http.MethodPut, fmt.Sprintf("/api/v1/clients/%s/subscription", clientID), map[string]any{
		"plan": "personal_5h", "status": "active",
	})
	require.Equal(t, http.StatusOK, status)

	status, taskBody := call(t, ts, http.MethodPost, "/api/v1/tasks", map[string]any{
		"client_id": clientID, "title": "book travel", "task_type": "personal",
		"deadline_hours": 24,
	})
	require.Equal(t, http.StatusCreated, status)
	taskID := taskBody["id"].(string)
	assert.Equal(t, "pending", taskBody["status"])

	// Offline assistants see an empty marketplace.
	status, market := call(t, ts, http.MethodGet, "/api/v1/marketplace?assistant_id="+assistantID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, market["tasks"])

	status, _ = call(t, ts, http.MethodPut, fmt.Sprintf("/api/v1/assistants/%s/status", assistantID), map[string]any{
		"status": "online",
	})
	require.Equal(t, http.StatusOK, status)

	status, market = call(t, ts, http.MethodGet, "/api/v1/marketplace?assistant_id="+assistantID, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, market["tasks"], 1)

	status, claimed := call(t, ts, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%s/claim", taskID), map[string]any{
		"assistant_id": assistantID,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "in_progress", claimed["status"])

	// Second claim loses.
	status, errBody = call(t, ts, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%s/claim", taskID), map[string]any{
		"assistant_id": assistantID,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_claimed", errBody["reason"])

	status, _ = call(t, ts, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%s/complete", taskID), map[string]any{
		"assistant_id": assistantID, "detailed_result": "flights and hotel booked", "completion_summary": "done",
	})
	require.Equal(t, http.StatusOK, status)

	status, revised := call(t, ts, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%s/revision", taskID), map[string]any{
		"client_id": clientID, "feedback": "use the other airline",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "revision_requested", revised["status"])

	status, _ = call(t, ts, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%s/complete", taskID), map[string]any{
		"assistant_id": assistantID, "detailed_result": "rebooked with the other airline",
	})
	require.Equal(t, http.StatusOK, status)

	status, approved := call(t, ts, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%s/approve", taskID), map[string]any{
		"client_id": clientID, "rating": 5, "feedback": "perfect",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "approved", approved["status"])
	assert.Nil(t, approved["assistant_id"])

	// Approving again is an invalid transition.
	status, errBody = call(t, ts, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%s/approve", taskID), map[string]any{
		"client_id": clientID, "rating": 5, "feedback": "again",
	})
	assert.Equal(t, http.StatusPreconditionFailed, status)
	assert.Equal(t, "invalid_transition", errBody["reason"])

	status, stat := call(t, ts, http.MethodGet, "/api/v1/stats?actor=assistant&actor_id="+assistantID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), stat["active_tasks"])
	assert.Equal(t, float64(1), stat["total_tasks_completed"])
	assert.Equal(t, float64(5), stat["average_rating"])

	status, stat = call(t, ts, http.MethodGet, "/api/v1/stats?actor=manager", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), stat["total_tasks"])
	assert.Equal(t, float64(1), stat["clients_subscribed"])
}

func TestManagerReassignOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	_, clientBody := call(t, ts, http.MethodPost, "/api/v1/clients", map[string]any{"name": "Alice"})
	clientID := clientBody["id"].(string)
	call(t, ts, http.MethodPut, fmt.Sprintf("/api/v1/clients/%s/subscription", clientID), map[string]any{
		"plan": "full_8h", "status": "active",
	})

	_, aBody := call(t, ts, http.MethodPost, "/api/v1/assistants", map[string]any{
		"name": "Bob", "specialization": "business_only",
	})
	assistantID := aBody["id"].(string)

	status, taskBody := call(t, ts, http.MethodPost, "/api/v1/tasks", map[string]any{
		"client_id": clientID, "title": "quarterly report", "task_type": "business",
	})
	require.Equal(t, http.StatusCreated, status)
	taskID := taskBody["id"].(string)

	// Manager assignment skips the online filter; Bob never went online.
	status, assigned := call(t, ts, http.MethodPut, fmt.Sprintf("/api/v1/tasks/%s/assignee", taskID), map[string]any{
		"assistant_id": assistantID,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "in_progress", assigned["status"])
	assert.Equal(t, assistantID, assigned["assistant_id"])

	// And back to the marketplace.
	status, unassigned := call(t, ts, http.MethodPut, fmt.Sprintf("/api/v1/tasks/%s/assignee", taskID), map[string]any{
		"assistant_id": nil,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "pending", unassigned["status"])
}

func TestStandingAssignmentOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	_, clientBody := call(t, ts, http.MethodPost, "/api/v1/clients", map[string]any{"name": "Alice"})
	clientID := clientBody["id"].(string)
	call(t, ts, http.MethodPut, fmt.Sprintf("/api/v1/clients/%s/subscription", clientID), map[string]any{
		"plan": "personal_5h", "status": "active",
	})

	_, aBody := call(t, ts, http.MethodPost, "/api/v1/assistants", map[string]any{
		"name": "Bob", "specialization": "personal_only",
	})
	assistantID := aBody["id"].(string)
	call(t, ts, http.MethodPut, fmt.Sprintf("/api/v1/assistants/%s/status", assistantID), map[string]any{
		"status": "online",
	})

	status, _ := call(t, ts, http.MethodPost, "/api/v1/assignments", map[string]any{
		"client_id": clientID, "assistant_id": assistantID, "assigned_by": "manager1",
	})
	require.Equal(t, http.StatusCreated, status)

	status, taskBody := call(t, ts, http.MethodPost, "/api/v1/tasks", map[string]any{
		"client_id": clientID, "title": "groceries", "task_type": "personal",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "in_progress", taskBody["status"])
	assert.Equal(t, assistantID, taskBody["assistant_id"])
}

func TestPushSubscriptionRoutes(t *testing.T) {
	ts := newTestServer(t)

	// No VAPID keys configured in the test env.
	status, body := call(t, ts, http.MethodGet, "/api/v1/push/vapid-public-key", nil)
	assert.Equal(t, http.StatusPreconditionFailed, status)
	assert.Equal(t, "FailedPrecondition", body["code"])

	status, sub := call(t, ts, http.MethodPost, "/api/v1/push/subscriptions", map[string]any{
		"user_id":    "client1",
		"endpoint":   "https://push.example.com/ep1",
		"p256dh_key": "p256dh",
		"auth_key":   "auth",
	})
	require.Equal(t, http.StatusCreated, status)
	subID := sub["id"].(string)

	// Same endpoint again is an idempotent refresh, not a duplicate.
	status, again := call(t, ts, http.MethodPost, "/api/v1/push/subscriptions", map[string]any{
		"user_id":    "client1",
		"endpoint":   "https://push.example.com/ep1",
		"p256dh_key": "p256dh-2",
		"auth_key":   "auth-2",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, subID, again["id"])

	status, _ = call(t, ts, http.MethodDelete, "/api/v1/push/subscriptions/"+subID, nil)
	assert.Equal(t, http.StatusOK, status)
}
