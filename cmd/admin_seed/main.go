package main

import (
	"errors"
	"flag"
	"os"

	"cardledger/internal/config"
	"cardledger/internal/models"
	"cardledger/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	reset := flag.Bool("reset", false, "drop and recreate the schema before seeding")
	flag.Parse()

	cfg := config.Load()
	log := config.NewLogger(cfg)

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	adminName := config.GetEnv("ADMIN_NAME", "Administrator")

	if adminEmail == "" || adminPassword == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set in environment")
	}

	db, err := repositories.InitDB(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("database initialization failed")
	}
	defer func() {
		sqlDB, err := db.DB()
		if err != nil {
			log.WithError(err).Warn("failed to get SQL DB instance")
			return
		}
		if err := sqlDB.Close(); err != nil {
			log.WithError(err).Warn("failed to close PostgreSQL connection")
		}
	}()

	if *reset {
		if config.IsProduction() {
			log.Fatal("refusing to reset the schema in production")
		}
		if err := repositories.DropAllTables(db); err != nil {
			log.WithError(err).Fatal("failed to drop tables")
		}
		if err := repositories.Migrate(db); err != nil {
			log.WithError(err).Fatal("failed to migrate")
		}
		log.Info("schema reset")
	}

	userRepo := repositories.NewUserRepository(db, nil, log)
	if _, err := userRepo.GetByEmail(adminEmail); err == nil {
		log.Info("admin user already exists")
		return
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		log.WithError(err).Fatal("failed to look up admin user")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.WithError(err).Fatal("failed to hash password")
	}

	adminUser := &models.User{
		Email:        adminEmail,
		Password:     string(hashedPassword),
		Name:         adminName,
		Role:         models.RoleAdmin,
		TokenVersion: 1,
	}
	if err := userRepo.Create(adminUser); err != nil {
		log.WithError(err).Fatal("failed to create admin user")
	}

	log.WithField("user_id", adminUser.ID).Info("admin account created")
}
