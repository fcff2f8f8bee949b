package models

import (
	"fmt"
	"strings"
	"time"
)

// DueDateLayout is the stored calendar date form, e.g. 2099_01_01.
const DueDateLayout = "2006_01_02"

// SubmissionStatus is derived from a student's completed task list.
type SubmissionStatus string

const (
	StatusPending   SubmissionStatus = "pending"
	StatusSubmitted SubmissionStatus = "submitted"
)

// Task is an assignment given to every student enrolled at creation time.
type Task struct {
	ID          string       `db:"id" json:"id"`
	Title       string       `db:"title" json:"title"`
	Description string       `db:"description" json:"description"`
	DueDate     string       `db:"due_date" json:"dueDate"`
	ClassroomID string       `db:"classroom_id" json:"classroom"`
	TeacherID   string       `db:"teacher_id" json:"teacher"`
	Submissions []Submission `db:"-" json:"submissions"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updatedAt"`
}

// Submission records one upload event. Students may submit more than once.
type Submission struct {
	ID          string    `db:"id" json:"id"`
	TaskID      string    `db:"task_id" json:"-"`
	StudentID   string    `db:"student_id" json:"studentID"`
	File        string    `db:"file" json:"file"`
	SubmittedAt string    `db:"submitted_at" json:"submittedAt"`
	CreatedAt   time.Time `db:"created_at" json:"-"`
}

// ParseDueDate reads a YYYY_MM_DD date. Dashes are accepted as separators too.
func ParseDueDate(raw string) (time.Time, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), "-", "_")
	t, err := time.ParseInLocation(DueDateLayout, normalized, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("due date must use YYYY_MM_DD: %w", err)
	}
	return t, nil
}

// FormatDate renders the UTC calendar date of t in stored form.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DueDateLayout)
}

// DuePassed reports whether the UTC calendar date of now is strictly after the due date.
func DuePassed(dueDate string, now time.Time) (bool, error) {
	due, err := ParseDueDate(dueDate)
	if err != nil {
		return false, err
	}
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return today.After(due), nil
}

// StudentTask pairs a task with the requesting student's status.
type StudentTask struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	DueDate     string           `json:"dueDate"`
	Status      SubmissionStatus `json:"status"`
}

// SubmissionFile is a stored submission with a time-limited download link.
type SubmissionFile struct {
	ID          string    `json:"id"`
	SubmittedAt string    `json:"submittedAt"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// StudentSubmissionStatus is one row of the teacher's submission overview.
type StudentSubmissionStatus struct {
	Student     UserSummary      `json:"student"`
	Status      SubmissionStatus `json:"status"`
	Submissions []SubmissionFile `json:"submissions,omitempty"`
}

// TaskSubmissions is the teacher's overview of a task.
type TaskSubmissions struct {
	TaskID   string                    `json:"taskID"`
	Title    string                    `json:"title"`
	DueDate  string                    `json:"dueDate"`
	Students []StudentSubmissionStatus `json:"students"`
}
