package contract

import (
	"context"

	"ai-lifeplan-be/internal/entity"
	"ai-lifeplan-be/internal/repository/specification"

	"github.com/google/uuid"
)

// PlanItemRepository stores the extracted hierarchy of a plan. Items are
// replaced as a whole on every extraction, never edited in place.
type PlanItemRepository interface {
	CreateValues(ctx context.Context, values []*entity.PlanValue) error
	CreateGoals(ctx context.Context, goals []*entity.PlanGoal) error
	CreateTasks(ctx context.Context, tasks []*entity.PlanTask) error
	DeleteAllByPlanId(ctx context.Context, planId uuid.UUID) error

	FindValues(ctx context.Context, specs ...specification.Specification) ([]*entity.PlanValue, error)
	FindGoals(ctx context.Context, specs ...specification.Specification) ([]*entity.PlanGoal, error)
	FindTasks(ctx context.Context, specs ...specification.Specification) ([]*entity.PlanTask, error)
}
