package todoapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TodoPriority is the todo's priority level
type TodoPriority = string

const (
	// PriorityLow is the lowest priority
	PriorityLow TodoPriority = "low"
	// PriorityMedium is the default priority
	PriorityMedium TodoPriority = "medium"
	// PriorityHigh is the highest priority
	PriorityHigh TodoPriority = "high"
)

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	FullName       string     `bun:"full_name,notnull" json:"full_name,omitempty"`
	PasswordHash   string     `bun:"password_hash,notnull" json:"-"`
	IsActive       bool       `bun:"is_active" json:"is_active"`
	LoginAttempts  int        `bun:"login_attempts" json:"-"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"-"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"-"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// Todo is the todo model, every record belongs to exactly one user
type Todo struct {
	bun.BaseModel `bun:"table:todos,alias:tdo"`
	ID            uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Title         string       `bun:"title,notnull" json:"title"`
	Description   string       `bun:"description" json:"description,omitempty"`
	Completed     bool         `bun:"is_completed" json:"is_completed"`
	Priority      TodoPriority `bun:"priority,notnull" json:"priority"`
	UserID        uuid.UUID    `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	CreatedAt     *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time   `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// ValidPriority reports whether the value is one of the known levels
func ValidPriority(p TodoPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
