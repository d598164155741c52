package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/kumarketplace/marketplace/database/seeders"
	"github.com/kumarketplace/marketplace/internal/server"
	"github.com/kumarketplace/marketplace/pkg/database"
	"github.com/kumarketplace/marketplace/pkg/logger"
	"github.com/kumarketplace/marketplace/pkg/migration"
)

// bootDB loads config and opens the database connection.
func bootDB() (*gorm.DB, server.Settings, error) {
	settings, err := server.FromConfig()
	if err != nil {
		return nil, settings, err
	}
	logger.Setup(settings.Production)

	db, err := database.Open(settings.Database)
	return db, settings, err
}

// marketplace migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := bootDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		fmt.Println("Running migrations…")
		return migration.New(db, os.Stdout).Run()
	},
}

// marketplace migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := bootDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		fmt.Println("Rolling back last batch…")
		return migration.New(db, os.Stdout).Rollback()
	},
}

// marketplace migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := bootDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		return migration.New(db, os.Stdout).Status()
	},
}

// marketplace seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run all database seeders",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, settings, err := bootDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		seeders.Register("admin", seeders.Admin(settings.AdminEmail, settings.AdminPassword))

		fmt.Println("Running seeders…")
		return seeders.RunAll(context.Background(), db, os.Stdout)
	},
}
