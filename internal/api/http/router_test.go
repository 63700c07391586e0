package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/ticket-notifier/internal/api/http/handlers"
	"github.com/spec-kit/ticket-notifier/internal/auth"
	"github.com/spec-kit/ticket-notifier/internal/config"
	"github.com/spec-kit/ticket-notifier/internal/events"
	"github.com/spec-kit/ticket-notifier/internal/observability"
	"github.com/spec-kit/ticket-notifier/internal/persistence"
	"github.com/spec-kit/ticket-notifier/internal/push"
	"github.com/spec-kit/ticket-notifier/internal/repository"
	"github.com/spec-kit/ticket-notifier/internal/service"
)

type testServer struct {
	app     *fiber.App
	tokens  repository.TokenRepository
	teams   repository.MembershipRepository
	metrics *observability.Metrics
	bus     *events.LocalBus
}

func newTestServer(t *testing.T, tm *auth.TokenManager, checks ...handlers.DependencyCheck) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	db, err := persistence.NewSQLite(context.Background(), config.SQLiteConfig{Path: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	tokens := repository.NewSQLiteTokenRepository(db.DB)
	teams := repository.NewSQLiteMembershipRepository(db.DB)
	metrics := observability.NewMetrics()
	notifications := service.NewNotificationService(service.NotificationDependencies{
		Tokens:      tokens,
		Memberships: teams,
		Gateway:     push.NewLogGateway(logger),
		Metrics:     metrics,
		Logger:      logger,
	})

	bus := events.NewLocalBus()
	t.Cleanup(func() { _ = bus.Close() })

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("ticket-notifier", "test", metrics, checks...),
		Tokens:         handlers.NewTokensHandler(tokens),
		Teams:          handlers.NewTeamsHandler(teams),
		Notifications:  handlers.NewNotificationsHandler(notifications, bus, "ttk.events"),
		AuthMiddleware: auth.NewAuthMiddleware(tm),
	})
	return &testServer{app: app, tokens: tokens, teams: teams, metrics: metrics, bus: bus}
}

func (s *testServer) do(t *testing.T, method, path string, body any, header ...string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if len(header) == 2 {
		req.Header.Set(header[0], header[1])
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, stdhttp.MethodGet, "/health/live", nil)
	assert.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = s.do(t, stdhttp.MethodGet, "/health/ready", nil)
	assert.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, "ready", body["status"])

	status, body = s.do(t, stdhttp.MethodGet, "/metrics", nil)
	assert.Equal(t, stdhttp.StatusOK, status)
	assert.Contains(t, body, "data")
}

func TestReadyReportsFailingDependency(t *testing.T) {
	s := newTestServer(t, nil, handlers.DependencyCheck{
		Name: "nats",
		Ping: func(context.Context) error { return errors.New("not connected") },
	})

	status, body := s.do(t, stdhttp.MethodGet, "/health/ready", nil)
	assert.Equal(t, stdhttp.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errorCode(body))
}

func TestTokenEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	status, _ := s.do(t, stdhttp.MethodPost, "/api/tokens/register", map[string]string{"userId": "alice", "deviceToken": "tok-1"})
	assert.Equal(t, stdhttp.StatusCreated, status)

	status, body := s.do(t, stdhttp.MethodPost, "/api/tokens/register", map[string]string{"userId": "alice"})
	assert.Equal(t, stdhttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = s.do(t, stdhttp.MethodPost, "/api/tokens/register", "{not json")
	assert.Equal(t, stdhttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = s.do(t, stdhttp.MethodGet, "/api/tokens/user/alice", nil)
	assert.Equal(t, stdhttp.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, []any{"tok-1"}, data["tokens"])
	assert.Equal(t, float64(1), data["count"])

	status, body = s.do(t, stdhttp.MethodGet, "/api/tokens/owner?token=tok-1", nil)
	assert.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, "alice", body["data"].(map[string]any)["userId"])

	status, body = s.do(t, stdhttp.MethodGet, "/api/tokens/owner?token=missing", nil)
	assert.Equal(t, stdhttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, _ = s.do(t, stdhttp.MethodGet, "/api/tokens/owner", nil)
	assert.Equal(t, stdhttp.StatusBadRequest, status)

	status, body = s.do(t, stdhttp.MethodGet, "/api/tokens/stats", nil)
	assert.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, float64(1), body["data"].(map[string]any)["totalTokens"])

	status, _ = s.do(t, stdhttp.MethodDelete, "/api/tokens/unregister?token=tok-1", nil)
	assert.Equal(t, stdhttp.StatusOK, status)

	status, body = s.do(t, stdhttp.MethodDelete, "/api/tokens/unregister?token=tok-1", nil)
	assert.Equal(t, stdhttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	status, _ = s.do(t, stdhttp.MethodDelete, "/api/tokens/unregister", nil)
	assert.Equal(t, stdhttp.StatusBadRequest, status)
}

func TestTeamEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	status, _ := s.do(t, stdhttp.MethodPost, "/api/user-teams/add", map[string]string{"userId": "alice", "teamId": "T1"})
	assert.Equal(t, stdhttp.StatusCreated, status)

	status, _ = s.do(t, stdhttp.MethodPost, "/api/user-teams/add-batch", map[string]any{"userIds": []string{"carol", "dave"}, "teamId": "T1"})
	assert.Equal(t, stdhttp.StatusCreated, status)

	status, _ = s.do(t, stdhttp.MethodPost, "/api/user-teams/add-batch", map[string]any{"userIds": []string{"erin", " "}, "teamId": "T1"})
	assert.Equal(t, stdhttp.StatusBadRequest, status)

	status, body := s.do(t, stdhttp.MethodGet, "/api/user-teams/team/T1/users", nil)
	assert.Equal(t, stdhttp.StatusOK, status)
	assert.ElementsMatch(t, []any{"alice", "carol", "dave"}, body["data"].(map[string]any)["userIds"])

	status, _ = s.do(t, stdhttp.MethodPost, "/api/user-teams/add", map[string]string{"userId": "frank", "teamId": "T2"})
	assert.Equal(t, stdhttp.StatusCreated, status)

	status, body = s.do(t, stdhttp.MethodGet, "/api/user-teams/users?teamIds=T1,%20T2,,T9", nil)
	assert.Equal(t, stdhttp.StatusOK, status)
	union := body["data"].(map[string]any)
	assert.ElementsMatch(t, []any{"alice", "carol", "dave", "frank"}, union["userIds"])
	assert.Equal(t, []any{"T1", "T2", "T9"}, union["teamIds"])

	status, _ = s.do(t, stdhttp.MethodGet, "/api/user-teams/users", nil)
	assert.Equal(t, stdhttp.StatusBadRequest, status)

	status, body = s.do(t, stdhttp.MethodGet, "/api/user-teams/user/dave/teams", nil)
	assert.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, []any{"T1"}, body["data"].(map[string]any)["teamIds"])

	status, body = s.do(t, stdhttp.MethodGet, "/api/user-teams/stats", nil)
	assert.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, float64(4), body["data"].(map[string]any)["totalMemberships"])

	status, _ = s.do(t, stdhttp.MethodDelete, "/api/user-teams/remove?userId=dave&teamId=T1", nil)
	assert.Equal(t, stdhttp.StatusOK, status)
	status, _ = s.do(t, stdhttp.MethodDelete, "/api/user-teams/remove?userId=dave&teamId=T1", nil)
	assert.Equal(t, stdhttp.StatusNotFound, status)
}

func TestEventIngestion(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()
	require.NoError(t, s.tokens.Register(ctx, "alice", "tok-alice"))
	require.NoError(t, s.tokens.Register(ctx, "carol", "tok-carol"))
	require.NoError(t, s.teams.AddUsersToTeam(ctx, []string{"alice", "carol"}, "T1"))

	event := `{
		"header": {"schema": "TTK", "eventType": "Resolved", "performedBy": "bob"},
		"data": {"value": {"id": "TCK-1", "createdBy": "alice", "origin": "Onecare", "assignedTeams": ["T1"]}},
		"changes": [{"type": "FieldChange", "fieldName": "status", "oldValue": "Open", "newValue": "Resolved"}]
	}`
	status, body := s.do(t, stdhttp.MethodPost, "/api/events", event)
	require.Equal(t, stdhttp.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, "dispatched", data["status"])
	assert.Equal(t, float64(2), data["recipients"])
	report := data["report"].(map[string]any)
	assert.Equal(t, float64(2), report["successCount"])

	status, body = s.do(t, stdhttp.MethodPost, "/api/events", `{"header":{"schema":"TTK"}}`)
	assert.Equal(t, stdhttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = s.do(t, stdhttp.MethodPost, "/api/events", `{"header":{"schema":"OTHER"}}`)
	assert.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, "skipped_schema", body["data"].(map[string]any)["status"])

	assert.Equal(t, int64(1), s.metrics.Snapshot().Outcomes["dispatched"])
}

func TestAsyncEventIngestion(t *testing.T) {
	s := newTestServer(t, nil)
	var queued [][]byte
	_, err := s.bus.Subscribe("ttk.events", "", func(payload []byte) { queued = append(queued, payload) })
	require.NoError(t, err)

	status, body := s.do(t, stdhttp.MethodPost, "/api/events?async=true", `{"header":{"schema":"TTK"}}`)
	require.Equal(t, stdhttp.StatusAccepted, status)
	assert.Equal(t, true, body["data"].(map[string]any)["queued"])
	require.Len(t, queued, 1)
	assert.JSONEq(t, `{"header":{"schema":"TTK"}}`, string(queued[0]))

	status, body = s.do(t, stdhttp.MethodPost, "/api/events?async=true", nil)
	assert.Equal(t, stdhttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	require.NoError(t, s.bus.Close())
	status, body = s.do(t, stdhttp.MethodPost, "/api/events?async=true", `{}`)
	assert.Equal(t, stdhttp.StatusServiceUnavailable, status)
	assert.Equal(t, "UNAVAILABLE", errorCode(body))
}

func TestSendToExplicitTokens(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, stdhttp.MethodPost, "/api/notifications/send", map[string]any{
		"tokens": []string{"tok-1", "tok-2", "tok-1"},
		"title":  "Maintenance",
		"body":   "Tonight 22:00",
	})
	require.Equal(t, stdhttp.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(2), data["successCount"])
	assert.Equal(t, float64(0), data["failureCount"])
	assert.Len(t, data["results"], 2)

	status, body = s.do(t, stdhttp.MethodPost, "/api/notifications/send", map[string]any{"tokens": []string{}, "title": "x"})
	assert.Equal(t, stdhttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = s.do(t, stdhttp.MethodPost, "/api/notifications/send", map[string]any{"tokens": []string{"tok-1"}})
	assert.Equal(t, stdhttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, _ = s.do(t, stdhttp.MethodPost, "/api/notifications/send", map[string]any{"tokens": []string{" "}, "title": "x"})
	assert.Equal(t, stdhttp.StatusBadRequest, status)
}

func TestSendToUser(t *testing.T) {
	s := newTestServer(t, nil)
	require.NoError(t, s.tokens.Register(context.Background(), "alice", "tok-alice"))

	status, body := s.do(t, stdhttp.MethodPost, "/api/notifications/send-to-user", map[string]any{"userId": "alice", "title": "Hello"})
	assert.Equal(t, stdhttp.StatusOK, status)
	assert.Equal(t, float64(1), body["data"].(map[string]any)["successCount"])

	status, _ = s.do(t, stdhttp.MethodPost, "/api/notifications/send-to-user", map[string]any{"userId": "nobody", "title": "Hello"})
	assert.Equal(t, stdhttp.StatusNotFound, status)

	status, _ = s.do(t, stdhttp.MethodPost, "/api/notifications/send-to-user", map[string]any{"userId": "alice"})
	assert.Equal(t, stdhttp.StatusBadRequest, status)
}

func TestAPIRequiresBearerWhenEnabled(t *testing.T) {
	tm := auth.NewTokenManager("s3cret", 5)
	s := newTestServer(t, tm)

	status, body := s.do(t, stdhttp.MethodGet, "/api/tokens/stats", nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	token, _, err := tm.GenerateToken("ops", auth.RoleAdmin)
	require.NoError(t, err)
	status, _ = s.do(t, stdhttp.MethodGet, "/api/tokens/stats", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, stdhttp.StatusOK, status)

	status, _ = s.do(t, stdhttp.MethodGet, "/health/live", nil)
	assert.Equal(t, stdhttp.StatusOK, status)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)
	status, body := s.do(t, stdhttp.MethodGet, "/nope", nil)
	assert.Equal(t, stdhttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
	assert.Equal(t, int64(1), s.metrics.Snapshot().Errors["/nope|GET|NOT_FOUND"])
}
