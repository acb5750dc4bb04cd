package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-lifeplan-be/internal/dto"
	"ai-lifeplan-be/internal/entity"
	"ai-lifeplan-be/internal/pkg/apierr"
	"ai-lifeplan-be/internal/pkg/logger"
	"ai-lifeplan-be/internal/repository/specification"
	"ai-lifeplan-be/internal/repository/unitofwork"
	"ai-lifeplan-be/pkg/events"
	"ai-lifeplan-be/pkg/interview"
	"ai-lifeplan-be/pkg/interview/conversation"
	"ai-lifeplan-be/pkg/interview/document"
	"ai-lifeplan-be/pkg/interview/extraction"
	"ai-lifeplan-be/pkg/interview/phase"
	"ai-lifeplan-be/pkg/interview/prompt"

	"github.com/google/uuid"
)

const interviewModule = "INTERVIEW"

var errPlanNotFound = errors.New("plan not found")

type IInterviewService interface {
	CreatePlan(ctx context.Context, userId uuid.UUID, req *dto.CreatePlanRequest) (*dto.CreatePlanResponse, error)
	GetPlan(ctx context.Context, userId uuid.UUID, planId uuid.UUID) (*dto.PlanDetailResponse, error)
	Turn(ctx context.Context, userId uuid.UUID, req *dto.TurnRequest) (*dto.TurnResponse, error)
	Extract(ctx context.Context, userId uuid.UUID, req *dto.ExtractRequest) (*dto.ExtractResponse, error)
	Phases() []dto.PhaseResponse
}

type InterviewServiceConfig struct {
	DefaultMode       interview.Mode
	DocumentCharLimit int
}

type interviewService struct {
	uowFactory       unitofwork.RepositoryFactory
	orchestrator     *conversation.Orchestrator
	pipeline         *extraction.Pipeline
	rules            *prompt.Rules
	publisherService IPublisherService
	log              logger.ILogger
	cfg              InterviewServiceConfig
	now              func() time.Time
}

func NewInterviewService(
	uowFactory unitofwork.RepositoryFactory,
	orchestrator *conversation.Orchestrator,
	pipeline *extraction.Pipeline,
	rules *prompt.Rules,
	publisherService IPublisherService,
	log logger.ILogger,
	cfg InterviewServiceConfig,
) IInterviewService {
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = interview.ModeDeep
	}
	return &interviewService{
		uowFactory:       uowFactory,
		orchestrator:     orchestrator,
		pipeline:         pipeline,
		rules:            rules,
		publisherService: publisherService,
		log:              log,
		cfg:              cfg,
		now:              time.Now,
	}
}

func (s *interviewService) CreatePlan(ctx context.Context, userId uuid.UUID, req *dto.CreatePlanRequest) (*dto.CreatePlanResponse, error) {
	mode := s.cfg.DefaultMode
	if req.Mode != "" {
		parsed, err := interview.ParseMode(req.Mode)
		if err != nil {
			return nil, err
		}
		mode = parsed
	}

	plan := entity.Plan{
		UserId:       userId,
		Title:        req.Title,
		CurrentPhase: phase.Introduction.String(),
		Mode:         string(mode),
		CreatedAt:    s.now(),
	}
	if err := s.uowFactory.NewUnitOfWork(ctx).PlanRepository().Create(ctx, &plan); err != nil {
		return nil, err
	}

	s.log.Info(interviewModule, "Plan created", map[string]interface{}{
		"plan_id": plan.Id.String(),
		"user_id": userId.String(),
		"mode":    plan.Mode,
	})

	return &dto.CreatePlanResponse{
		Id:           plan.Id,
		CurrentPhase: plan.CurrentPhase,
		Mode:         plan.Mode,
	}, nil
}

func (s *interviewService) GetPlan(ctx context.Context, userId uuid.UUID, planId uuid.UUID) (*dto.PlanDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	plan, err := s.ownedPlan(ctx, uow, userId, planId)
	if err != nil {
		return nil, err
	}

	byPlan := specification.ByPlanID{PlanID: plan.Id}
	values, err := uow.PlanItemRepository().FindValues(ctx, byPlan)
	if err != nil {
		return nil, err
	}
	goals, err := uow.PlanItemRepository().FindGoals(ctx, byPlan)
	if err != nil {
		return nil, err
	}
	tasks, err := uow.PlanItemRepository().FindTasks(ctx, byPlan)
	if err != nil {
		return nil, err
	}

	res := &dto.PlanDetailResponse{
		Id:              plan.Id,
		Title:           plan.Title,
		CurrentPhase:    plan.CurrentPhase,
		Mode:            plan.Mode,
		LastExtractedAt: plan.LastExtractedAt,
		Values:          toValueResponses(values),
		Goals:           toGoalResponses(goals),
		Tasks:           toTaskResponses(tasks),
		CreatedAt:       plan.CreatedAt,
		UpdatedAt:       plan.UpdatedAt,
	}
	if plan.ReassessmentMonths > 0 {
		res.Reassessment = &dto.ReassessmentResponse{Months: plan.ReassessmentMonths, Reason: plan.ReassessmentReason}
	}
	return res, nil
}

func (s *interviewService) Turn(ctx context.Context, userId uuid.UUID, req *dto.TurnRequest) (*dto.TurnResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	plan, err := s.ownedPlan(ctx, uow, userId, req.PlanId)
	if err != nil {
		return nil, err
	}

	excerpts := toExcerpts(req.Documents)
	if err := document.Validate(excerpts); err != nil {
		return nil, err
	}

	// an empty request mode falls back to the mode the plan was started in
	mode := req.Mode
	if mode == "" {
		mode = plan.Mode
	}

	result, err := s.orchestrator.Turn(ctx, conversation.TurnInput{
		UserId:          userId.String(),
		PlanId:          plan.Id.String(),
		Message:         req.Message,
		Phase:           req.Phase,
		Mode:            mode,
		History:         toMessages(req.ConversationHistory),
		DocumentContext: document.Compose(excerpts, document.DefaultPerExcerptLimit, s.cfg.DocumentCharLimit),
		PlanContext:     req.PlanContext,
	})
	if err != nil {
		return nil, err
	}

	if plan.CurrentPhase != result.Phase.String() || plan.Mode != string(result.Mode) {
		plan.CurrentPhase = result.Phase.String()
		plan.Mode = string(result.Mode)
		now := s.now()
		plan.UpdatedAt = &now
		if err := uow.PlanRepository().Update(ctx, plan); err != nil {
			// the reply is still good, the stored phase just lags
			s.log.Warn(interviewModule, "Failed to record plan phase", map[string]interface{}{
				"plan_id": plan.Id.String(),
				"error":   err.Error(),
			})
		}
	}

	res := &dto.TurnResponse{
		Message:           result.Message,
		Phase:             result.Phase.String(),
		FollowUpQuestions: result.FollowUpQuestions,
		Mode:              string(result.Mode),
	}
	suggested := ""
	if result.SuggestedNextPhase != nil {
		suggested = result.SuggestedNextPhase.String()
		res.SuggestedNextPhase = &suggested
	}

	s.publish(ctx, events.NewTurnCompleted(events.TurnCompleted{
		PlanId:             plan.Id.String(),
		Phase:              res.Phase,
		SuggestedNextPhase: suggested,
		Mode:               res.Mode,
	}, s.now()))

	return res, nil
}

func (s *interviewService) Extract(ctx context.Context, userId uuid.UUID, req *dto.ExtractRequest) (*dto.ExtractResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	plan, err := s.ownedPlan(ctx, uow, userId, req.PlanId)
	if err != nil {
		return nil, err
	}

	excerpts := toExcerpts(req.Documents)
	if err := document.Validate(excerpts); err != nil {
		return nil, err
	}
	documentContext := document.Compose(excerpts, document.DefaultPerExcerptLimit, s.cfg.DocumentCharLimit)

	result, err := s.pipeline.Extract(ctx, toMessages(req.Transcript), documentContext)
	if err != nil {
		return nil, err
	}

	saved, err := s.saveHierarchy(ctx, uow, plan, result)
	if err != nil {
		return nil, fmt.Errorf("save extracted plan: %w", err)
	}

	s.publish(ctx, events.NewPlanExtracted(events.PlanExtracted{
		PlanId:             plan.Id.String(),
		Values:             len(saved.Values),
		Goals:              len(saved.Goals),
		Tasks:              len(saved.Tasks),
		TasksDropped:       countSkipped(saved.Skipped, "task"),
		ReassessmentMonths: saved.Reassessment.Months,
	}, s.now()))

	return saved, nil
}

// saveHierarchy replaces the plan's values, goals and tasks in one transaction.
// Parents are resolved through the ids assigned to the titles of this batch.
func (s *interviewService) saveHierarchy(ctx context.Context, uow unitofwork.UnitOfWork, plan *entity.Plan, result *extraction.Result) (*dto.ExtractResponse, error) {
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	items := uow.PlanItemRepository()
	if err := items.DeleteAllByPlanId(ctx, plan.Id); err != nil {
		return nil, err
	}

	now := s.now()
	skipped := make([]entity.SkippedEntity, 0, len(result.Skipped))
	for _, sk := range result.Skipped {
		skipped = append(skipped, entity.SkippedEntity{Kind: sk.Kind, Title: sk.Title, Reason: sk.Reason})
	}

	values := make([]*entity.PlanValue, 0, len(result.Values))
	for _, v := range result.Values {
		values = append(values, &entity.PlanValue{
			PlanId:      plan.Id,
			Title:       v.Title,
			Description: v.Description,
			Confidence:  v.Confidence,
			SourceQuote: v.SourceQuote,
			CreatedAt:   now,
		})
	}
	if err := items.CreateValues(ctx, values); err != nil {
		return nil, err
	}
	valueIds := map[string]uuid.UUID{}
	for _, v := range values {
		if _, seen := valueIds[v.Title]; !seen {
			valueIds[v.Title] = v.Id
		}
	}

	goals := make([]*entity.PlanGoal, 0, len(result.Goals))
	for _, g := range result.Goals {
		goal := &entity.PlanGoal{
			PlanId:                plan.Id,
			Title:                 g.Title,
			Description:           g.Description,
			Confidence:            g.Confidence,
			SourceQuote:           g.SourceQuote,
			MeasurementSuggestion: g.MeasurementSuggestion,
			Timeframe:             string(g.TimeframeSuggestion),
			IsReachGoal:           g.IsReachGoal,
			CreatedAt:             now,
		}
		if id, ok := valueIds[g.ParentValueTitle]; ok && g.ParentValueTitle != "" {
			goal.ValueId = &id
		}
		goals = append(goals, goal)
	}
	if err := items.CreateGoals(ctx, goals); err != nil {
		return nil, err
	}
	goalIds := map[string]uuid.UUID{}
	for _, g := range goals {
		if _, seen := goalIds[g.Title]; !seen {
			goalIds[g.Title] = g.Id
		}
	}

	tasks := make([]*entity.PlanTask, 0, len(result.Tasks))
	for _, t := range result.Tasks {
		goalId, ok := goalIds[t.ParentGoalTitle]
		if !ok {
			skipped = append(skipped, entity.SkippedEntity{Kind: "task", Title: t.Title, Reason: "parent goal not saved"})
			continue
		}
		tasks = append(tasks, &entity.PlanTask{
			PlanId:      plan.Id,
			GoalId:      goalId,
			Title:       t.Title,
			Description: t.Description,
			Confidence:  t.Confidence,
			SourceQuote: t.SourceQuote,
			CreatedAt:   now,
		})
	}
	if err := items.CreateTasks(ctx, tasks); err != nil {
		return nil, err
	}

	if err := uow.ExtractionRunRepository().Create(ctx, &entity.ExtractionRun{
		PlanId:             plan.Id,
		ValueCount:         len(values),
		GoalCount:          len(goals),
		TaskCount:          len(tasks),
		Skipped:            skipped,
		ReassessmentMonths: result.Reassessment.Months,
		CreatedAt:          now,
	}); err != nil {
		return nil, err
	}

	plan.ReassessmentMonths = result.Reassessment.Months
	plan.ReassessmentReason = result.Reassessment.Reason
	plan.LastExtractedAt = &now
	plan.UpdatedAt = &now
	if err := uow.PlanRepository().Update(ctx, plan); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.log.Info(interviewModule, "Plan hierarchy saved", map[string]interface{}{
		"plan_id": plan.Id.String(),
		"values":  len(values),
		"goals":   len(goals),
		"tasks":   len(tasks),
		"skipped": len(skipped),
	})

	skippedRes := make([]dto.SkippedResponse, len(skipped))
	for i, sk := range skipped {
		skippedRes[i] = dto.SkippedResponse{Kind: sk.Kind, Title: sk.Title, Reason: sk.Reason}
	}
	return &dto.ExtractResponse{
		Values:       toValueResponses(values),
		Goals:        toGoalResponses(goals),
		Tasks:        toTaskResponses(tasks),
		Reassessment: dto.ReassessmentResponse{Months: result.Reassessment.Months, Reason: result.Reassessment.Reason},
		Skipped:      skippedRes,
	}, nil
}

func (s *interviewService) Phases() []dto.PhaseResponse {
	all := phase.All()
	out := make([]dto.PhaseResponse, len(all))
	for i, p := range all {
		out[i] = dto.PhaseResponse{
			Id:                p.String(),
			Title:             p.Title(),
			Ordinal:           p.Ordinal(),
			Terminal:          p.Terminal(),
			FollowUpQuestions: s.rules.FollowUps(p),
		}
	}
	return out
}

// ownedPlan reports a plan owned by someone else as not found.
func (s *interviewService) ownedPlan(ctx context.Context, uow unitofwork.UnitOfWork, userId, planId uuid.UUID) (*entity.Plan, error) {
	plan, err := uow.PlanRepository().FindOne(ctx, specification.OwnedPlan{PlanID: planId, UserID: userId})
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, apierr.NotFound("plan_not_found", errPlanNotFound)
	}
	return plan, nil
}

// publish never fails the request; events are auxiliary.
func (s *interviewService) publish(ctx context.Context, evt events.Event) {
	if s.publisherService == nil {
		return
	}
	if err := s.publisherService.Publish(ctx, evt); err != nil {
		s.log.Warn(interviewModule, "Failed to publish event", map[string]interface{}{
			"event_type": evt.EventType(),
			"error":      err.Error(),
		})
	}
}

func toMessages(in []dto.ConversationMessage) []interview.Message {
	out := make([]interview.Message, len(in))
	for i, m := range in {
		out[i] = interview.Message{
			Id:        m.Id,
			Role:      interview.Role(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
	}
	return out
}

func toExcerpts(in []dto.DocumentExcerpt) []document.Excerpt {
	out := make([]document.Excerpt, len(in))
	for i, d := range in {
		out[i] = document.Excerpt{Kind: document.ParseKind(d.Kind), Text: d.Text}
	}
	return out
}

func toValueResponses(values []*entity.PlanValue) []dto.ValueResponse {
	out := make([]dto.ValueResponse, len(values))
	for i, v := range values {
		out[i] = dto.ValueResponse{
			Id:          v.Id,
			Title:       v.Title,
			Description: v.Description,
			Confidence:  v.Confidence,
			SourceQuote: v.SourceQuote,
		}
	}
	return out
}

func toGoalResponses(goals []*entity.PlanGoal) []dto.GoalResponse {
	out := make([]dto.GoalResponse, len(goals))
	for i, g := range goals {
		out[i] = dto.GoalResponse{
			Id:                    g.Id,
			ValueId:               g.ValueId,
			Title:                 g.Title,
			Description:           g.Description,
			Confidence:            g.Confidence,
			SourceQuote:           g.SourceQuote,
			MeasurementSuggestion: g.MeasurementSuggestion,
			Timeframe:             g.Timeframe,
			IsReachGoal:           g.IsReachGoal,
		}
	}
	return out
}

func toTaskResponses(tasks []*entity.PlanTask) []dto.TaskResponse {
	out := make([]dto.TaskResponse, len(tasks))
	for i, t := range tasks {
		out[i] = dto.TaskResponse{
			Id:          t.Id,
			GoalId:      t.GoalId,
			Title:       t.Title,
			Description: t.Description,
			Confidence:  t.Confidence,
			SourceQuote: t.SourceQuote,
		}
	}
	return out
}

func countSkipped(skipped []dto.SkippedResponse, kind string) int {
	n := 0
	for _, sk := range skipped {
		if sk.Kind == kind {
			n++
		}
	}
	return n
}
