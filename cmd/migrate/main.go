package main

import (
	"log"
	"os"

	"atomics-registration-be/internal/model"
	"atomics-registration-be/pkg/database"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		color.Red("Error: DB_CONNECTION_STRING is not set")
		os.Exit(1)
	}

	// 2. Connect
	db, err := database.NewGormDBFromDSN(dsn, database.PoolConfig{MaxOpen: 2})
	if err != nil {
		color.Red("Error: Failed to connect to database: %v", err)
		os.Exit(1)
	}

	color.Cyan("Starting registration schema migration...")

	// 3. Extensions (gen_random_uuid)
	color.Yellow("Step 1: Setting up extensions...")
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Printf("Warn: Failed to create pgcrypto extension: %v. Continuing...", err)
	}

	// 4. AutoMigrate
	color.Yellow("Step 2: Running AutoMigrate...")
	if err := db.AutoMigrate(&model.Registration{}); err != nil {
		color.Red("Error: AutoMigrate failed: %v", err)
		os.Exit(1)
	}

	// 5. Post-migration
	color.Yellow("Step 3: Creating indexes...")
	postMigrationSQL := []string{
		// Reconcile sweep scans pending payments by age.
		`CREATE INDEX IF NOT EXISTS idx_registrations_pending_payments
		 ON registrations (payment_checked_at NULLS FIRST, updated_at)
		 WHERE payment_status = 'pending' AND external_payment_ref IS NOT NULL;`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	color.Green("✅ Success: Database migration completed successfully via GORM.")
}
