// Package users is the credential store: account management and password
// verification over a single relational table. Passwords are bcrypt-hashed
// and never leave this package.
package users

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/omlean/opboard/internal/config"
	"github.com/omlean/opboard/internal/models"
)

// ErrInvalidCredentials is returned by Verify for an unknown username or a
// wrong password, indistinguishably.
var ErrInvalidCredentials = errors.New("users: invalid credentials")

// Connect opens a GORM connection to the credential database named by the
// configuration: a local sqlite file by default, or a MySQL server.
func Connect(cfg config.CredentialsConfig) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	switch cfg.Driver {
	case "mysql":
		dsn := fmt.Sprintf("root@tcp(%s:%d)/%s?parseTime=true", cfg.Host, cfg.Port, cfg.Database)
		db, err := gorm.Open(mysql.Open(dsn), gcfg)
		if err != nil {
			return nil, fmt.Errorf("users: connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
		}
		return db, nil
	default:
		db, err := gorm.Open(sqlite.Open(cfg.Path), gcfg)
		if err != nil {
			return nil, fmt.Errorf("users: open %s: %w", cfg.Path, err)
		}
		return db, nil
	}
}

// AutoMigrate creates or updates the credential table.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.UserAccount{}); err != nil {
		return fmt.Errorf("users: auto-migrate: %w", err)
	}
	return nil
}

// Store wraps the credential database with account operations.
type Store struct {
	db *gorm.DB
}

// NewStore returns a Store over an already-migrated database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// EnsureDefaultAdmin seeds admin/admin123 when the table is empty, so a
// fresh install is reachable. Returns true when the account was created.
func (s *Store) EnsureDefaultAdmin() (bool, error) {
	var count int64
	if err := s.db.Model(&models.UserAccount{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("users: count accounts: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	if err := s.Create("admin", "admin123", models.RoleAdministrator, ""); err != nil {
		return false, err
	}
	return true, nil
}

// Create adds an account with a bcrypt-hashed password.
func (s *Store) Create(username, password, role, stage string) error {
	if username == "" || password == "" {
		return fmt.Errorf("users: username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("users: hash password: %w", err)
	}
	account := models.UserAccount{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		Stage:        stage,
	}
	if err := s.db.Create(&account).Error; err != nil {
		return fmt.Errorf("users: create %s: %w", username, err)
	}
	return nil
}

// Verify checks a username/password pair and returns the account on
// success. Unknown users and wrong passwords both yield
// ErrInvalidCredentials.
func (s *Store) Verify(username, password string) (*models.UserAccount, error) {
	var account models.UserAccount
	if err := s.db.Where("username = ?", username).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("users: lookup %s: %w", username, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &account, nil
}

// List returns all accounts ordered by username.
func (s *Store) List() ([]models.UserAccount, error) {
	var accounts []models.UserAccount
	if err := s.db.Order("username ASC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	return accounts, nil
}

// Update changes an account's password, role and/or stage assignment.
// Empty arguments leave the corresponding field unchanged.
func (s *Store) Update(id uint, password, role, stage string) error {
	updates := map[string]interface{}{}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("users: hash password: %w", err)
		}
		updates["password_hash"] = string(hash)
	}
	if role != "" {
		updates["role"] = role
	}
	if stage != "" {
		updates["stage"] = stage
	}
	if len(updates) == 0 {
		return nil
	}
	res := s.db.Model(&models.UserAccount{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("users: update %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("users: account not found: %d", id)
	}
	return nil
}

// Delete removes an account. The admin account cannot be deleted.
func (s *Store) Delete(id uint) error {
	var account models.UserAccount
	if err := s.db.Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("users: account not found: %d", id)
		}
		return fmt.Errorf("users: lookup %d: %w", id, err)
	}
	if account.Username == "admin" {
		return fmt.Errorf("users: the admin account cannot be deleted")
	}
	if err := s.db.Delete(&models.UserAccount{}, id).Error; err != nil {
		return fmt.Errorf("users: delete %d: %w", id, err)
	}
	return nil
}

// StageAssignments maps usernames to their assigned stage, for dangling
// reference checks when the catalog changes.
func (s *Store) StageAssignments() (map[string]string, error) {
	accounts, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(accounts))
	for _, a := range accounts {
		if a.Stage != "" {
			out[a.Username] = a.Stage
		}
	}
	return out, nil
}
