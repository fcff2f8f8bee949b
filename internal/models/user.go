package models

import (
	"time"

	"github.com/lib/pq"
)

// UserRole represents the two account kinds.
type UserRole string

const (
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// User represents an account stored in the users table.
type User struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Email          string         `db:"email" json:"email"`
	PasswordHash   string         `db:"password_hash" json:"-"`
	Role           UserRole       `db:"role" json:"role"`
	RefreshToken   string         `db:"refresh_token" json:"-"`
	Classrooms     pq.StringArray `db:"classrooms" json:"classrooms"`
	Tasks          pq.StringArray `db:"tasks" json:"tasks"`
	CompletedTasks pq.StringArray `db:"completed_tasks" json:"completedTasks"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// HasCompleted reports whether taskID is in the user's completed list.
func (u *User) HasCompleted(taskID string) bool {
	return contains(u.CompletedTasks, taskID)
}

// UserSummary is the sanitized identity shown next to submission status.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Summary strips everything but identity fields.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

func contains(list []string, id string) bool {
	for _, item := range list {
		if item == id {
			return true
		}
	}
	return false
}
