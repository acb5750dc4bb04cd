package mapper

import (
	"encoding/json"
	"time"

	"ai-lifeplan-be/internal/entity"
	"ai-lifeplan-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PlanMapper struct{}

func NewPlanMapper() *PlanMapper {
	return &PlanMapper{}
}

func (m *PlanMapper) ToEntity(p *model.Plan) *entity.Plan {
	if p == nil {
		return nil
	}
	var deletedAt *time.Time
	if p.DeletedAt.Valid {
		t := p.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		updatedAt = &t
	}

	return &entity.Plan{
		Id:                 p.Id,
		UserId:             p.UserId,
		Title:              p.Title,
		CurrentPhase:       p.CurrentPhase,
		Mode:               p.Mode,
		ReassessmentMonths: p.ReassessmentMonths,
		ReassessmentReason: p.ReassessmentReason,
		LastExtractedAt:    p.LastExtractedAt,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          updatedAt,
		DeletedAt:          deletedAt,
		IsDeleted:          p.DeletedAt.Valid,
	}
}

func (m *PlanMapper) ToModel(p *entity.Plan) *model.Plan {
	if p == nil {
		return nil
	}
	var deletedAt gorm.DeletedAt
	if p.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *p.DeletedAt, Valid: true}
	} else if p.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if p.UpdatedAt != nil {
		updatedAt = *p.UpdatedAt
	}

	return &model.Plan{
		Id:                 p.Id,
		UserId:             p.UserId,
		Title:              p.Title,
		CurrentPhase:       p.CurrentPhase,
		Mode:               p.Mode,
		ReassessmentMonths: p.ReassessmentMonths,
		ReassessmentReason: p.ReassessmentReason,
		LastExtractedAt:    p.LastExtractedAt,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          updatedAt,
		DeletedAt:          deletedAt,
	}
}

func (m *PlanMapper) ToEntities(plans []*model.Plan) []*entity.Plan {
	entities := make([]*entity.Plan, len(plans))
	for i, p := range plans {
		entities[i] = m.ToEntity(p)
	}
	return entities
}

// PlanItemMapper covers the extracted hierarchy: values, goals, tasks and the
// extraction run record.
type PlanItemMapper struct{}

func NewPlanItemMapper() *PlanItemMapper {
	return &PlanItemMapper{}
}

func (m *PlanItemMapper) ValueToModel(v *entity.PlanValue) *model.PlanValue {
	return &model.PlanValue{
		Id:          v.Id,
		PlanId:      v.PlanId,
		Title:       v.Title,
		Description: v.Description,
		Confidence:  v.Confidence,
		SourceQuote: v.SourceQuote,
		CreatedAt:   v.CreatedAt,
	}
}

func (m *PlanItemMapper) ValueToEntity(v *model.PlanValue) *entity.PlanValue {
	return &entity.PlanValue{
		Id:          v.Id,
		PlanId:      v.PlanId,
		Title:       v.Title,
		Description: v.Description,
		Confidence:  v.Confidence,
		SourceQuote: v.SourceQuote,
		CreatedAt:   v.CreatedAt,
	}
}

func (m *PlanItemMapper) GoalToModel(g *entity.PlanGoal) *model.PlanGoal {
	return &model.PlanGoal{
		Id:                    g.Id,
		PlanId:                g.PlanId,
		ValueId:               g.ValueId,
		Title:                 g.Title,
		Description:           g.Description,
		Confidence:            g.Confidence,
		SourceQuote:           g.SourceQuote,
		MeasurementSuggestion: g.MeasurementSuggestion,
		Timeframe:             g.Timeframe,
		IsReachGoal:           g.IsReachGoal,
		CreatedAt:             g.CreatedAt,
	}
}

func (m *PlanItemMapper) GoalToEntity(g *model.PlanGoal) *entity.PlanGoal {
	return &entity.PlanGoal{
		Id:                    g.Id,
		PlanId:                g.PlanId,
		ValueId:               g.ValueId,
		Title:                 g.Title,
		Description:           g.Description,
		Confidence:            g.Confidence,
		SourceQuote:           g.SourceQuote,
		MeasurementSuggestion: g.MeasurementSuggestion,
		Timeframe:             g.Timeframe,
		IsReachGoal:           g.IsReachGoal,
		CreatedAt:             g.CreatedAt,
	}
}

func (m *PlanItemMapper) TaskToModel(t *entity.PlanTask) *model.PlanTask {
	return &model.PlanTask{
		Id:          t.Id,
		PlanId:      t.PlanId,
		GoalId:      t.GoalId,
		Title:       t.Title,
		Description: t.Description,
		Confidence:  t.Confidence,
		SourceQuote: t.SourceQuote,
		CreatedAt:   t.CreatedAt,
	}
}

func (m *PlanItemMapper) TaskToEntity(t *model.PlanTask) *entity.PlanTask {
	return &entity.PlanTask{
		Id:          t.Id,
		PlanId:      t.PlanId,
		GoalId:      t.GoalId,
		Title:       t.Title,
		Description: t.Description,
		Confidence:  t.Confidence,
		SourceQuote: t.SourceQuote,
		CreatedAt:   t.CreatedAt,
	}
}

func (m *PlanItemMapper) RunToModel(r *entity.ExtractionRun) (*model.ExtractionRun, error) {
	skipped := r.Skipped
	if skipped == nil {
		skipped = []entity.SkippedEntity{}
	}
	raw, err := json.Marshal(skipped)
	if err != nil {
		return nil, err
	}
	return &model.ExtractionRun{
		Id:                 r.Id,
		PlanId:             r.PlanId,
		ValueCount:         r.ValueCount,
		GoalCount:          r.GoalCount,
		TaskCount:          r.TaskCount,
		Skipped:            datatypes.JSON(raw),
		ReassessmentMonths: r.ReassessmentMonths,
		CreatedAt:          r.CreatedAt,
	}, nil
}

func (m *PlanItemMapper) RunToEntity(r *model.ExtractionRun) *entity.ExtractionRun {
	var skipped []entity.SkippedEntity
	if len(r.Skipped) > 0 {
		// a corrupt column should not hide the run itself
		_ = json.Unmarshal(r.Skipped, &skipped)
	}
	return &entity.ExtractionRun{
		Id:                 r.Id,
		PlanId:             r.PlanId,
		ValueCount:         r.ValueCount,
		GoalCount:          r.GoalCount,
		TaskCount:          r.TaskCount,
		Skipped:            skipped,
		ReassessmentMonths: r.ReassessmentMonths,
		CreatedAt:          r.CreatedAt,
	}
}
