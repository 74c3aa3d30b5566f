// Command seed creates or updates an administrator account so a fresh
// deployment has a dashboard login.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sose-portal-api/pkg/config"
	"github.com/noah-isme/sose-portal-api/pkg/database"
)

func main() {
	var (
		email    string
		password string
		fullName string
		role     string
	)
	flag.StringVar(&email, "email", "admin@sose.local", "administrator email")
	flag.StringVar(&password, "password", "", "administrator password (required)")
	flag.StringVar(&fullName, "name", "Portal Admin", "administrator display name")
	flag.StringVar(&role, "role", "SUPERADMIN", "role: SUPERADMIN or ADMIN")
	flag.Parse()

	if password == "" {
		log.Fatal("missing -password")
	}
	if role != "SUPERADMIN" && role != "ADMIN" {
		log.Fatalf("invalid role %q", role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close() //nolint:errcheck

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now().UTC()
	_, err = db.Exec(`
		INSERT INTO users (id, email, password_hash, full_name, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, $6)
		ON CONFLICT (email) DO UPDATE
		SET password_hash = EXCLUDED.password_hash,
		    full_name = EXCLUDED.full_name,
		    role = EXCLUDED.role,
		    active = TRUE,
		    updated_at = EXCLUDED.updated_at`,
		uuid.NewString(), email, string(hash), fullName, role, now)
	if err != nil {
		log.Fatalf("failed to upsert user: %v", err)
	}

	log.Printf("administrator %s ready", email)
}
