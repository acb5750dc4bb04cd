package implementation

import (
	"context"
	"errors"

	"ai-lifeplan-be/internal/entity"
	"ai-lifeplan-be/internal/mapper"
	"ai-lifeplan-be/internal/model"
	"ai-lifeplan-be/internal/repository/contract"
	"ai-lifeplan-be/internal/repository/specification"

	"gorm.io/gorm"
)

type PlanRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PlanMapper
}

func NewPlanRepository(db *gorm.DB) contract.PlanRepository {
	return &PlanRepositoryImpl{
		db:     db,
		mapper: mapper.NewPlanMapper(),
	}
}

func applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *PlanRepositoryImpl) Create(ctx context.Context, plan *entity.Plan) error {
	m := r.mapper.ToModel(plan)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*plan = *r.mapper.ToEntity(m)
	return nil
}

func (r *PlanRepositoryImpl) Update(ctx context.Context, plan *entity.Plan) error {
	m := r.mapper.ToModel(plan)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*plan = *r.mapper.ToEntity(m)
	return nil
}

func (r *PlanRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Plan, error) {
	var m model.Plan
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *PlanRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Plan, error) {
	var models []*model.Plan
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
