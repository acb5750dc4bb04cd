package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-lifeplan-be/internal/dto"
	"ai-lifeplan-be/internal/model"
	"ai-lifeplan-be/internal/pkg/apierr"
	"ai-lifeplan-be/internal/pkg/logger"
	"ai-lifeplan-be/internal/repository/specification"
	"ai-lifeplan-be/internal/repository/unitofwork"
	"ai-lifeplan-be/pkg/events"
	"ai-lifeplan-be/pkg/interview"
	"ai-lifeplan-be/pkg/interview/conversation"
	"ai-lifeplan-be/pkg/interview/extraction"
	"ai-lifeplan-be/pkg/interview/prompt"
	"ai-lifeplan-be/pkg/interview/ratelimit"
	"ai-lifeplan-be/pkg/llm/mock"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type allowLimiter struct{}

func (allowLimiter) Check(ctx context.Context, userId string) ratelimit.Decision {
	return ratelimit.Decision{Allowed: true, Remaining: 10, Limit: 20, ResetIn: time.Minute}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type testEnv struct {
	svc       IInterviewService
	factory   unitofwork.RepositoryFactory
	llm       *mock.Provider
	published *recordingPublisher
}

func newTestEnv(t *testing.T, replies ...string) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, model.AutoMigrate(db))

	log := logger.NewNopLogger()
	rules := prompt.MustDefaultRules()
	completion := mock.Texts(replies...)
	published := &recordingPublisher{}
	factory := unitofwork.NewRepositoryFactory(db)

	svc := NewInterviewService(
		factory,
		conversation.NewOrchestrator(completion, prompt.NewAssembler(rules), allowLimiter{}, log, conversation.Config{}),
		extraction.NewPipeline(completion, log, extraction.Config{}),
		rules,
		published,
		log,
		InterviewServiceConfig{DocumentCharLimit: 8000},
	)
	return &testEnv{svc: svc, factory: factory, llm: completion, published: published}
}

func (e *testEnv) createPlan(t *testing.T, userId uuid.UUID) uuid.UUID {
	t.Helper()
	res, err := e.svc.CreatePlan(context.Background(), userId, &dto.CreatePlanRequest{Title: "Next year"})
	require.NoError(t, err)
	return res.Id
}

func TestCreatePlanDefaultsAndModeValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.CreatePlan(ctx, uuid.New(), &dto.CreatePlanRequest{Title: "2027"})
	require.NoError(t, err)
	assert.Equal(t, "introduction", res.CurrentPhase)
	assert.Equal(t, "deep", res.Mode)

	res, err = env.svc.CreatePlan(ctx, uuid.New(), &dto.CreatePlanRequest{Title: "2027", Mode: "quick"})
	require.NoError(t, err)
	assert.Equal(t, "quick", res.Mode)

	_, err = env.svc.CreatePlan(ctx, uuid.New(), &dto.CreatePlanRequest{Title: "2027", Mode: "slow"})
	var verr *interview.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestForeignPlanIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	planId := env.createPlan(t, uuid.New())
	stranger := uuid.New()

	_, err := env.svc.GetPlan(context.Background(), stranger, planId)
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)

	_, err = env.svc.Turn(context.Background(), stranger, &dto.TurnRequest{PlanId: planId, Message: "hi", Phase: "introduction"})
	require.ErrorAs(t, err, &apiErr)
	assert.Empty(t, env.llm.Calls(), "no completion for a foreign plan")
}

func TestTurnRecordsPhaseAndPublishes(t *testing.T) {
	env := newTestEnv(t, "I think we have a good understanding of your values. Ready to move on?")
	userId := uuid.New()
	planId := env.createPlan(t, userId)

	res, err := env.svc.Turn(context.Background(), userId, &dto.TurnRequest{
		PlanId:  planId,
		Message: "[starting quick mode] Family and health matter most",
		Phase:   "values",
		ConversationHistory: []dto.ConversationMessage{
			{Role: "assistant", Content: "What matters most to you?"},
		},
		Documents: []dto.DocumentExcerpt{{Kind: "journal", Text: "Ran 5k on Sunday."}},
	})
	require.NoError(t, err)
	assert.Equal(t, "quick", res.Mode)
	require.NotNil(t, res.SuggestedNextPhase)
	assert.Equal(t, "vision", *res.SuggestedNextPhase)
	assert.NotEmpty(t, res.FollowUpQuestions)

	calls := env.llm.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].SystemPrompt, "Ran 5k on Sunday.")
	last := calls[0].Messages[len(calls[0].Messages)-1]
	assert.Equal(t, "Family and health matter most", last.Content)

	plan, err := env.svc.GetPlan(context.Background(), userId, planId)
	require.NoError(t, err)
	assert.Equal(t, "values", plan.CurrentPhase)
	assert.Equal(t, "quick", plan.Mode)

	assert.Equal(t, []string{events.TypeTurnCompleted}, env.published.types())
}

func TestTurnUsesPlanModeWhenRequestOmitsIt(t *testing.T) {
	env := newTestEnv(t, "Tell me more.")
	userId := uuid.New()
	res, err := env.svc.CreatePlan(context.Background(), userId, &dto.CreatePlanRequest{Title: "t", Mode: "quick"})
	require.NoError(t, err)

	turn, err := env.svc.Turn(context.Background(), userId, &dto.TurnRequest{PlanId: res.Id, Message: "hello", Phase: "introduction"})
	require.NoError(t, err)
	assert.Equal(t, "quick", turn.Mode)
	assert.Nil(t, turn.SuggestedNextPhase)
}

func TestTurnPublishFailureDoesNotFailRequest(t *testing.T) {
	env := newTestEnv(t, "Noted.")
	env.published.err = errors.New("bus closed")
	userId := uuid.New()
	planId := env.createPlan(t, userId)

	_, err := env.svc.Turn(context.Background(), userId, &dto.TurnRequest{PlanId: planId, Message: "hi", Phase: "goals"})
	assert.NoError(t, err)
}

func TestTurnRejectsTooManyDocuments(t *testing.T) {
	env := newTestEnv(t)
	userId := uuid.New()
	planId := env.createPlan(t, userId)

	docs := make([]dto.DocumentExcerpt, 11)
	for i := range docs {
		docs[i] = dto.DocumentExcerpt{Kind: "other", Text: "x"}
	}
	_, err := env.svc.Turn(context.Background(), userId, &dto.TurnRequest{PlanId: planId, Message: "hi", Phase: "goals", Documents: docs})
	var verr *interview.ValidationError
	assert.ErrorAs(t, err, &verr)
}

const extractionReply = `Here is the plan:
{"values":[{"title":"Health","confidence":0.9}],
 "goals":[{"title":"Run a marathon","parent_value_title":"Health","timeframe_suggestion":"yearly","confidence":0.8},
          {"title":"Learn Spanish","parent_value_title":"Travel","timeframe_suggestion":"sometime"}],
 "tasks":[{"title":"Buy shoes","parent_goal_title":"Run a marathon","confidence":0.7},
          {"title":"Book flights","parent_goal_title":"Visit Spain"}],
 "reassessment_recommendation":{"months":9,"reason":"Few goals, long horizon."}}`

func TestExtractPersistsHierarchy(t *testing.T) {
	env := newTestEnv(t, extractionReply)
	userId := uuid.New()
	planId := env.createPlan(t, userId)

	res, err := env.svc.Extract(context.Background(), userId, &dto.ExtractRequest{
		PlanId: planId,
		Transcript: []dto.ConversationMessage{
			{Role: "assistant", Content: "What matters to you?"},
			{Role: "user", Content: "My health. I want to run a marathon."},
		},
	})
	require.NoError(t, err)

	require.Len(t, res.Values, 1)
	require.Len(t, res.Goals, 2)
	require.Len(t, res.Tasks, 1)
	require.NotNil(t, res.Goals[0].ValueId)
	assert.Equal(t, res.Values[0].Id, *res.Goals[0].ValueId)
	assert.Nil(t, res.Goals[1].ValueId, "unmatched value keeps the goal un-parented")
	assert.Equal(t, "quarterly", res.Goals[1].Timeframe)
	assert.Equal(t, res.Goals[0].Id, res.Tasks[0].GoalId)
	assert.Equal(t, 12, res.Reassessment.Months)
	assert.Equal(t, 1, countSkipped(res.Skipped, "task"))

	plan, err := env.svc.GetPlan(context.Background(), userId, planId)
	require.NoError(t, err)
	require.NotNil(t, plan.Reassessment)
	assert.Equal(t, 12, plan.Reassessment.Months)
	assert.NotNil(t, plan.LastExtractedAt)
	assert.Len(t, plan.Tasks, 1)

	runs, err := env.factory.NewUnitOfWork(context.Background()).ExtractionRunRepository().
		FindAll(context.Background(), specification.ByPlanID{PlanID: planId})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].TaskCount)

	assert.Equal(t, []string{events.TypePlanExtracted}, env.published.types())
}

func TestExtractReplacesPreviousHierarchy(t *testing.T) {
	env := newTestEnv(t, extractionReply, `{"values":[{"title":"Family"}],"goals":[],"tasks":[]}`)
	userId := uuid.New()
	planId := env.createPlan(t, userId)
	req := &dto.ExtractRequest{PlanId: planId, Transcript: []dto.ConversationMessage{{Role: "user", Content: "family first"}}}

	_, err := env.svc.Extract(context.Background(), userId, req)
	require.NoError(t, err)
	_, err = env.svc.Extract(context.Background(), userId, req)
	require.NoError(t, err)

	plan, err := env.svc.GetPlan(context.Background(), userId, planId)
	require.NoError(t, err)
	require.Len(t, plan.Values, 1)
	assert.Equal(t, "Family", plan.Values[0].Title)
	assert.Empty(t, plan.Goals)
	assert.Empty(t, plan.Tasks)
}

func TestExtractFailureLeavesPlanUntouched(t *testing.T) {
	env := newTestEnv(t, extractionReply, "sorry, I cannot do that")
	userId := uuid.New()
	planId := env.createPlan(t, userId)
	req := &dto.ExtractRequest{PlanId: planId, Transcript: []dto.ConversationMessage{{Role: "user", Content: "health"}}}

	_, err := env.svc.Extract(context.Background(), userId, req)
	require.NoError(t, err)

	_, err = env.svc.Extract(context.Background(), userId, req)
	var failed *interview.ExtractionFailedError
	require.ErrorAs(t, err, &failed)

	plan, err := env.svc.GetPlan(context.Background(), userId, planId)
	require.NoError(t, err)
	assert.Len(t, plan.Goals, 2)
	assert.Len(t, env.published.types(), 1)
}

func TestPhasesListing(t *testing.T) {
	env := newTestEnv(t)
	phases := env.svc.Phases()
	require.Len(t, phases, 9)
	assert.Equal(t, "introduction", phases[0].Id)
	assert.Equal(t, 0, phases[0].Ordinal)
	assert.True(t, phases[8].Terminal)
	assert.NotEmpty(t, phases[2].FollowUpQuestions)
}
