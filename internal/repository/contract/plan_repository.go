package contract

import (
	"context"

	"ai-lifeplan-be/internal/entity"
	"ai-lifeplan-be/internal/repository/specification"
)

type PlanRepository interface {
	Create(ctx context.Context, plan *entity.Plan) error
	Update(ctx context.Context, plan *entity.Plan) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Plan, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Plan, error)
}
