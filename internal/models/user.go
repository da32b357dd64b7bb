package models

// Roles a user account can hold.
const (
	RoleAdministrator = "administrator"
	RolePlanner       = "planner"
	RoleWorker        = "worker"
)

// UserAccount is a credential store row. The core only consumes Role and
// Stage for authorization; passwords never leave the users package.
type UserAccount struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"size:64;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:128;not null"`
	Role         string `gorm:"size:16;default:worker"`
	Stage        string `gorm:"size:64"`
}
