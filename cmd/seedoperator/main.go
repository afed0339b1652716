// Command seedoperator creates or updates an operator account.
//
//	go run ./cmd/seedoperator -username admin -password secret -role admin
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/makingtools/rapidbites-sub001/internal/config"
	"github.com/makingtools/rapidbites-sub001/internal/infra"
	"github.com/makingtools/rapidbites-sub001/internal/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	username := flag.String("username", "admin", "login name")
	password := flag.String("password", "", "plain-text password (required)")
	name := flag.String("name", "Administrator", "display name")
	email := flag.String("email", "", "contact e-mail")
	role := flag.String("role", model.RoleAdmin, "cashier | supervisor | admin")
	flag.Parse()

	switch *role {
	case model.RoleCashier, model.RoleSupervisor, model.RoleAdmin:
	default:
		log.Fatal().Str("role", *role).Msg("unknown role")
	}
	if *password == "" {
		log.Fatal().Msg("-password is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt error")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	var mail *string
	if *email != "" {
		mail = email
	}
	result := db.WithContext(context.Background()).Exec(`
		INSERT INTO operators (username, name, email, password_hash, role)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (username) DO UPDATE
		SET password_hash = EXCLUDED.password_hash,
		    name = EXCLUDED.name,
		    email = EXCLUDED.email,
		    role = EXCLUDED.role,
		    active = true,
		    updated_at = NOW()
	`, *username, *name, mail, string(hash), *role)
	if result.Error != nil {
		log.Fatal().Err(result.Error).Msg("insert error")
	}
	fmt.Printf("operator %q (%s) created/updated\n", *username, *role)
}
