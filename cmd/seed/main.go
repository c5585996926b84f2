// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev account (dev.active) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	accountdomain "sso-reconciler/internal/account/domain"
	accountrepo "sso-reconciler/internal/account/repository"
	"sso-reconciler/internal/config"
	"sso-reconciler/internal/db"
	profilefielddomain "sso-reconciler/internal/profilefield/domain"
	profilefieldrepo "sso-reconciler/internal/profilefield/repository"
	"sso-reconciler/internal/security"
)

const (
	activeUsername  = "dev.active"
	activeEmail     = "dev.active@example.com"
	nologinUsername = "dev.nologin"
	nologinEmail    = "dev.nologin@example.com"
	deletedUsername = "dev.deleted"
	deletedEmail    = "dev.deleted@example.com"
	devPassword     = "password123"
	departmentField = "department"
	costCenterField = "costcenter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	accounts := accountrepo.NewPostgresRepository(conn)
	fields := profilefieldrepo.NewPostgresRepository(conn)
	ctx := context.Background()

	existing, err := accounts.GetByMatcher(ctx, "username", activeUsername)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev.active exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()

	active := &accountdomain.Account{
		Username:     activeUsername,
		Email:        activeEmail,
		FirstName:    "Dev",
		LastName:     "Active",
		AuthMethod:   accountdomain.AuthMethodSAML,
		PasswordHash: passwordHash,
		TimeModified: now,
		CreatedAt:    now,
	}
	if err := accounts.Create(ctx, active); err != nil {
		log.Fatalf("create active account: %v", err)
	}

	nologin := &accountdomain.Account{
		Username:     nologinUsername,
		Email:        nologinEmail,
		FirstName:    "Dev",
		LastName:     "NoLogin",
		AuthMethod:   accountdomain.AuthMethodNoLogin,
		PasswordHash: passwordHash,
		TimeModified: now,
		CreatedAt:    now,
	}
	if err := accounts.Create(ctx, nologin); err != nil {
		log.Fatalf("create nologin account: %v", err)
	}

	deleted := &accountdomain.Account{
		Username:     deletedUsername,
		Email:        deletedEmail,
		FirstName:    "Dev",
		LastName:     "Deleted",
		AuthMethod:   accountdomain.AuthMethodSAML,
		PasswordHash: passwordHash,
		Deleted:      true,
		TimeModified: now,
		CreatedAt:    now,
	}
	if err := accounts.Create(ctx, deleted); err != nil {
		log.Fatalf("create deleted account: %v", err)
	}

	for shortName, name := range map[string]string{
		departmentField: "Department",
		costCenterField: "Cost Center",
	} {
		def, err := fields.GetDefinitionByShortName(ctx, shortName)
		if err != nil {
			log.Fatalf("field check %s: %v", shortName, err)
		}
		if def != nil {
			continue
		}
		if err := fields.CreateDefinition(ctx, &profilefielddomain.FieldDefinition{ShortName: shortName, Name: name}); err != nil {
			log.Fatalf("create field %s: %v", shortName, err)
		}
	}

	deptDef, err := fields.GetDefinitionByShortName(ctx, departmentField)
	if err != nil {
		log.Fatalf("load department field: %v", err)
	}
	if err := fields.UpsertValue(ctx, active.ID, deptDef.ID, "Engineering"); err != nil {
		log.Fatalf("seed department value: %v", err)
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Active account: %s / %s (auth %s)\n", activeUsername, devPassword, accountdomain.AuthMethodSAML)
	fmt.Printf("Refused accounts: %s (nologin), %s (deleted)\n", nologinUsername, deletedUsername)
}
