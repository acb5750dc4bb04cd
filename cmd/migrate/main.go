package main

import (
	"log"

	"ai-lifeplan-be/internal/config"
	"ai-lifeplan-be/internal/model"
	"ai-lifeplan-be/pkg/database"
)

func main() {
	// 1. Load Environment Variables
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}
	_, isSqlite := database.Dialector(cfg.Database.Connection)

	log.Println("Starting GORM Migration...")

	// 3. Pre-Migration: Extensions (postgres only)
	if !isSqlite {
		log.Println("Step 1: Setting up Extensions...")
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate plan tables
	log.Println("Step 2: Running AutoMigrate...")
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	if isSqlite {
		log.Println("Success: Database migration completed (sqlite, views skipped).")
		return
	}

	// 5. Post-Migration: Views
	log.Println("Step 3: Creating Views...")

	postMigrationSQL := []string{
		// View: plan_overview, item counts per live plan
		`CREATE OR REPLACE VIEW plan_overview AS
		 SELECT p.id AS plan_id, p.user_id, p.title, p.current_phase, p.mode, p.last_extracted_at,
		        (SELECT COUNT(*) FROM plan_values v WHERE v.plan_id = p.id) AS value_count,
		        (SELECT COUNT(*) FROM plan_goals g WHERE g.plan_id = p.id) AS goal_count,
		        (SELECT COUNT(*) FROM plan_tasks t WHERE t.plan_id = p.id) AS task_count
		 FROM plans p
		 WHERE p.deleted_at IS NULL;`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("Success: Database migration completed successfully via GORM.")
}
