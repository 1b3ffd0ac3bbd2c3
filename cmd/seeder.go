package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with one user per role for development and testing.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := initGorm(sqlxDB)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{
				"notifications", "expense_files", "expense_status_logs",
				"expenses", "advance_requests", "user_roles", "profiles", "users",
			} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)

		seedUsers := []struct {
			Email      string
			Name       string
			Department string
			Roles      []string
		}{
			{"owner@mail.com", "Olivia Owner", "Management", []string{"employee", "owner"}},
			{"manager@mail.com", "Morgan Manager", "Engineering", []string{"employee", "manager"}},
			{"accounts@mail.com", "Avery Accounts", "Finance", []string{"employee", "accounts"}},
			{"employee@mail.com", "Emery Employee", "Engineering", []string{"employee"}},
		}

		for _, u := range seedUsers {
			userID, err := ensureUser(db, u.Email, u.Name, u.Department, string(hash))
			if err != nil {
				log.Fatalf("failed to seed user %s: %v", u.Email, err)
			}
			for _, role := range u.Roles {
				if err := ensureRole(db, userID, role); err != nil {
					log.Fatalf("failed to grant role %s to %s: %v", role, u.Email, err)
				}
			}
			fmt.Printf("Seeded %s with roles %v\n", u.Email, u.Roles)
		}
	},
}

func ensureUser(db *gorm.DB, email, name, department, passwordHash string) (int64, error) {
	var userID int64
	row := db.Raw("SELECT id FROM users WHERE email = ?", email).Row()
	if err := row.Scan(&userID); err == nil {
		return userID, nil
	}

	if err := db.Exec(
		"INSERT INTO users (email, password_hash, is_active, created_at, updated_at) VALUES (?, ?, true, now(), now())",
		email, passwordHash,
	).Error; err != nil {
		return 0, err
	}
	if err := db.Raw("SELECT id FROM users WHERE email = ?", email).Row().Scan(&userID); err != nil {
		return 0, err
	}

	if err := db.Exec(
		"INSERT INTO profiles (user_id, name, department, created_at, updated_at) VALUES (?, ?, ?, now(), now())",
		userID, name, department,
	).Error; err != nil {
		return 0, err
	}

	return userID, nil
}

func ensureRole(db *gorm.DB, userID int64, role string) error {
	var exists int
	if err := db.Raw(
		"SELECT 1 FROM user_roles WHERE user_id = ? AND role = ?", userID, role,
	).Row().Scan(&exists); err == nil {
		return nil
	}
	return db.Exec(
		"INSERT INTO user_roles (user_id, role, created_at) VALUES (?, ?, now())",
		userID, role,
	).Error
}
