package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ai-lifeplan-be/internal/model"
	"ai-lifeplan-be/internal/pkg/logger"
	"ai-lifeplan-be/internal/pkg/serverutils"
	"ai-lifeplan-be/internal/repository/unitofwork"
	"ai-lifeplan-be/internal/service"
	"ai-lifeplan-be/pkg/interview/conversation"
	"ai-lifeplan-be/pkg/interview/extraction"
	"ai-lifeplan-be/pkg/interview/prompt"
	"ai-lifeplan-be/pkg/interview/ratelimit"
	"ai-lifeplan-be/pkg/llm/mock"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "test-secret"

type testApp struct {
	app    *fiber.App
	userId uuid.UUID
	token  string
}

func newTestApp(t *testing.T, turnLimit int, replies ...string) *testApp {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, model.AutoMigrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logger.NewNopLogger()
	rules := prompt.MustDefaultRules()
	completion := mock.Texts(replies...)
	limiter := ratelimit.NewLimiter(ratelimit.NewRedisStore(rdb), ratelimit.Config{Limit: turnLimit, Window: time.Minute}, log)

	svc := service.NewInterviewService(
		unitofwork.NewRepositoryFactory(db),
		conversation.NewOrchestrator(completion, prompt.NewAssembler(rules), limiter, log, conversation.Config{}),
		extraction.NewPipeline(completion, log, extraction.Config{}),
		rules,
		nil,
		log,
		service.InterviewServiceConfig{DocumentCharLimit: 8000},
	)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(log))
	NewInterviewController(svc).RegisterRoutes(app.Group("/api"), serverutils.JwtMiddleware(testSecret))

	userId := uuid.New()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": userId.String()}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	return &testApp{app: app, userId: userId, token: token}
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}, token string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func (a *testApp) createPlan(t *testing.T) string {
	t.Helper()
	resp, body := a.do(t, "POST", "/api/interview/v1/plans", map[string]string{"title": "Next year"}, a.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["data"].(map[string]interface{})["id"].(string)
}

func TestPhasesIsPublic(t *testing.T) {
	a := newTestApp(t, 20)
	resp, body := a.do(t, "GET", "/api/interview/v1/phases", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 9)
}

func TestPlansRequireToken(t *testing.T) {
	a := newTestApp(t, 20)
	resp, _ := a.do(t, "POST", "/api/interview/v1/plans", map[string]string{"title": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTokenWithoutUuidSubject(t *testing.T) {
	a := newTestApp(t, 20)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "not-a-uuid"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	resp, _ := a.do(t, "POST", "/api/interview/v1/plans", map[string]string{"title": "x"}, token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTurnEndpoint(t *testing.T) {
	a := newTestApp(t, 20, "We now have a comprehensive picture of your values. Ready to move on?")
	planId := a.createPlan(t)

	resp, body := a.do(t, "POST", "/api/interview/v1/plans/"+planId+"/turn", map[string]interface{}{
		"message": "Honesty and family",
		"phase":   "values",
		"conversation_history": []map[string]string{
			{"role": "assistant", "content": "What do you value?"},
		},
	}, a.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "vision", data["suggested_next_phase"])
	assert.Equal(t, "deep", data["mode"])
	assert.NotEmpty(t, data["follow_up_questions"])
}

func TestTurnValidationErrors(t *testing.T) {
	a := newTestApp(t, 20)
	planId := a.createPlan(t)
	path := "/api/interview/v1/plans/" + planId + "/turn"

	history := make([]map[string]string, 101)
	for i := range history {
		history[i] = map[string]string{"role": "user", "content": "x"}
	}

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing message", map[string]interface{}{"phase": "values"}},
		{"unknown phase", map[string]interface{}{"message": "hi", "phase": "dreaming"}},
		{"marker only message", map[string]interface{}{"message": "[starting quick mode]", "phase": "values"}},
		{"bad role", map[string]interface{}{"message": "hi", "phase": "values", "conversation_history": []map[string]string{{"role": "system", "content": "x"}}}},
		{"history too long", map[string]interface{}{"message": "hi", "phase": "values", "conversation_history": history}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := a.do(t, "POST", path, tt.body, a.token)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestTurnRateLimited(t *testing.T) {
	a := newTestApp(t, 1, "First answer.", "Second answer.")
	planId := a.createPlan(t)
	path := "/api/interview/v1/plans/" + planId + "/turn"
	req := map[string]interface{}{"message": "hi", "phase": "introduction"}

	resp, _ := a.do(t, "POST", path, req, a.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := a.do(t, "POST", path, req, a.token)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.EqualValues(t, 1, body["data"].(map[string]interface{})["limit"])
}

func TestForeignPlanReturnsNotFound(t *testing.T) {
	a := newTestApp(t, 20)
	planId := a.createPlan(t)

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": uuid.NewString()}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	resp, _ := a.do(t, "GET", "/api/interview/v1/plans/"+planId, nil, other)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = a.do(t, "GET", "/api/interview/v1/plans/not-a-uuid", nil, a.token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExtractEndpoint(t *testing.T) {
	a := newTestApp(t, 20,
		`{"values":[{"title":"Health"}],"goals":[{"title":"Sleep 8h","parent_value_title":"Health","timeframe_suggestion":"weekly"}],"tasks":[{"title":"No screens after 10","parent_goal_title":"Sleep 8h"}]}`,
		"no json here",
	)
	planId := a.createPlan(t)
	path := "/api/interview/v1/plans/" + planId + "/extract"
	req := map[string]interface{}{
		"transcript": []map[string]string{{"role": "user", "content": "I want to sleep better"}},
	}

	resp, body := a.do(t, "POST", path, req, a.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.Len(t, data["tasks"], 1)
	assert.EqualValues(t, 12, data["reassessment_recommendation"].(map[string]interface{})["months"])

	resp, body = a.do(t, "POST", path, req, a.token)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Could not build a plan from this conversation, please try again", body["message"])

	resp, _ = a.do(t, "POST", path, map[string]interface{}{"transcript": []map[string]string{}}, a.token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
