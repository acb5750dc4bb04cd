package unitofwork

import (
	"context"

	"ai-lifeplan-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	PlanRepository() contract.PlanRepository
	PlanItemRepository() contract.PlanItemRepository
	ExtractionRunRepository() contract.ExtractionRunRepository
}
