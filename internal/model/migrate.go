package model

import "gorm.io/gorm"

// AutoMigrate creates or updates every table this service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Plan{},
		&PlanValue{},
		&PlanGoal{},
		&PlanTask{},
		&ExtractionRun{},
	)
}
