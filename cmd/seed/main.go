package main

import (
	"context"
	"errors"
	"log"

	"github.com/joho/godotenv"

	"archinsight/internal/config"
	"archinsight/internal/db"
	errs "archinsight/internal/errors"
	"archinsight/internal/model"
	"archinsight/internal/repository"
)

const starterTeamName = "Architecture"

func main() {
	log.Println("Starting seed script...")

	_ = godotenv.Load()
	cfg := config.Load()

	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Team{},
		&model.Session{},
		&model.Block{},
		&model.APIKey{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx := context.Background()
	userRepo := repository.NewUserRepository(gormDB)
	teamRepo := repository.NewTeamRepository(gormDB)

	// Starter team, shared by the seeded admins.
	team := &model.Team{Name: starterTeamName, Description: "Default team for seeded accounts"}
	if err := teamRepo.Create(ctx, team); err != nil {
		if !errors.Is(err, errs.ErrTeamExists) {
			log.Fatalf("Failed to create team: %v", err)
		}
		teams, listErr := teamRepo.List(ctx)
		if listErr != nil {
			log.Fatalf("Failed to list teams: %v", listErr)
		}
		for i := range teams {
			if teams[i].Name == starterTeamName {
				team = &teams[i]
				break
			}
		}
		log.Printf("Team %q already exists (id=%d)", team.Name, team.ID)
	} else {
		log.Printf("Created team %q (id=%d)", team.Name, team.ID)
	}

	if len(cfg.AdminPersonalNumbers) == 0 {
		log.Println("ADMIN_PERSONAL_NUMBERS is empty, no admins to seed")
		return
	}

	created, skipped := 0, 0
	for _, pn := range cfg.AdminPersonalNumbers {
		teamID := team.ID
		user := &model.User{
			PersonalNumber: pn,
			Role:           model.RoleAdmin,
			Status:         model.StatusActive,
			TeamID:         &teamID,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			if errors.Is(err, errs.ErrUserExists) {
				skipped++
				continue
			}
			log.Fatalf("Failed to create admin %q: %v", pn, err)
		}
		created++
		log.Printf("Created admin %q (id=%d)", user.PersonalNumber, user.ID)
	}

	log.Printf("Seed complete: %d admins created, %d already present", created, skipped)
}
