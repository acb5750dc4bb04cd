package contract

import (
	"context"

	"ai-lifeplan-be/internal/entity"
	"ai-lifeplan-be/internal/repository/specification"
)

type ExtractionRunRepository interface {
	Create(ctx context.Context, run *entity.ExtractionRun) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ExtractionRun, error)
}
