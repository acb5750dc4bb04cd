package implementation

import (
	"context"

	"ai-lifeplan-be/internal/entity"
	"ai-lifeplan-be/internal/mapper"
	"ai-lifeplan-be/internal/model"
	"ai-lifeplan-be/internal/repository/contract"
	"ai-lifeplan-be/internal/repository/scope"
	"ai-lifeplan-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PlanItemRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PlanItemMapper
}

func NewPlanItemRepository(db *gorm.DB) contract.PlanItemRepository {
	return &PlanItemRepositoryImpl{
		db:     db,
		mapper: mapper.NewPlanItemMapper(),
	}
}

func (r *PlanItemRepositoryImpl) CreateValues(ctx context.Context, values []*entity.PlanValue) error {
	if len(values) == 0 {
		return nil
	}
	models := make([]*model.PlanValue, len(values))
	for i, v := range values {
		models[i] = r.mapper.ValueToModel(v)
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*values[i] = *r.mapper.ValueToEntity(m)
	}
	return nil
}

func (r *PlanItemRepositoryImpl) CreateGoals(ctx context.Context, goals []*entity.PlanGoal) error {
	if len(goals) == 0 {
		return nil
	}
	models := make([]*model.PlanGoal, len(goals))
	for i, g := range goals {
		models[i] = r.mapper.GoalToModel(g)
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*goals[i] = *r.mapper.GoalToEntity(m)
	}
	return nil
}

func (r *PlanItemRepositoryImpl) CreateTasks(ctx context.Context, tasks []*entity.PlanTask) error {
	if len(tasks) == 0 {
		return nil
	}
	models := make([]*model.PlanTask, len(tasks))
	for i, t := range tasks {
		models[i] = r.mapper.TaskToModel(t)
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*tasks[i] = *r.mapper.TaskToEntity(m)
	}
	return nil
}

// DeleteAllByPlanId removes tasks first so no task outlives its goal.
func (r *PlanItemRepositoryImpl) DeleteAllByPlanId(ctx context.Context, planId uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("plan_id = ?", planId).Delete(&model.PlanTask{}).Error; err != nil {
		return err
	}
	if err := db.Where("plan_id = ?", planId).Delete(&model.PlanGoal{}).Error; err != nil {
		return err
	}
	return db.Where("plan_id = ?", planId).Delete(&model.PlanValue{}).Error
}

func (r *PlanItemRepositoryImpl) FindValues(ctx context.Context, specs ...specification.Specification) ([]*entity.PlanValue, error) {
	var models []*model.PlanValue
	if err := applySpecifications(r.db.WithContext(ctx).Scopes(scope.OrderByCreatedAsc), specs...).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.PlanValue, len(models))
	for i, m := range models {
		out[i] = r.mapper.ValueToEntity(m)
	}
	return out, nil
}

func (r *PlanItemRepositoryImpl) FindGoals(ctx context.Context, specs ...specification.Specification) ([]*entity.PlanGoal, error) {
	var models []*model.PlanGoal
	if err := applySpecifications(r.db.WithContext(ctx).Scopes(scope.OrderByCreatedAsc), specs...).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.PlanGoal, len(models))
	for i, m := range models {
		out[i] = r.mapper.GoalToEntity(m)
	}
	return out, nil
}

func (r *PlanItemRepositoryImpl) FindTasks(ctx context.Context, specs ...specification.Specification) ([]*entity.PlanTask, error) {
	var models []*model.PlanTask
	if err := applySpecifications(r.db.WithContext(ctx).Scopes(scope.OrderByCreatedAsc), specs...).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.PlanTask, len(models))
	for i, m := range models {
		out[i] = r.mapper.TaskToEntity(m)
	}
	return out, nil
}
