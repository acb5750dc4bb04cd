package scope

import "gorm.io/gorm"

// OrderByCreatedDesc puts the newest rows first, e.g. extraction runs.
func OrderByCreatedDesc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}

// OrderByCreatedAsc keeps extracted items in the order they were saved.
func OrderByCreatedAsc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}
