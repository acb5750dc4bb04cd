package implementation

import (
	"context"

	"ai-lifeplan-be/internal/entity"
	"ai-lifeplan-be/internal/mapper"
	"ai-lifeplan-be/internal/model"
	"ai-lifeplan-be/internal/repository/contract"
	"ai-lifeplan-be/internal/repository/scope"
	"ai-lifeplan-be/internal/repository/specification"

	"gorm.io/gorm"
)

type ExtractionRunRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PlanItemMapper
}

func NewExtractionRunRepository(db *gorm.DB) contract.ExtractionRunRepository {
	return &ExtractionRunRepositoryImpl{
		db:     db,
		mapper: mapper.NewPlanItemMapper(),
	}
}

func (r *ExtractionRunRepositoryImpl) Create(ctx context.Context, run *entity.ExtractionRun) error {
	m, err := r.mapper.RunToModel(run)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*run = *r.mapper.RunToEntity(m)
	return nil
}

func (r *ExtractionRunRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ExtractionRun, error) {
	var models []*model.ExtractionRun
	if err := applySpecifications(r.db.WithContext(ctx).Scopes(scope.OrderByCreatedDesc), specs...).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.ExtractionRun, len(models))
	for i, m := range models {
		out[i] = r.mapper.RunToEntity(m)
	}
	return out, nil
}
