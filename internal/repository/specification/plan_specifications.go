package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByPlanID filters plan children (values, goals, tasks, runs) by their plan.
type ByPlanID struct {
	PlanID uuid.UUID
}

func (s ByPlanID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("plan_id = ?", s.PlanID)
}

// OwnedPlan matches one plan only when it belongs to the user.
type OwnedPlan struct {
	PlanID uuid.UUID
	UserID uuid.UUID
}

func (s OwnedPlan) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ? AND user_id = ?", s.PlanID, s.UserID)
}
