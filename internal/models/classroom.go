package models

import (
	"time"

	"github.com/lib/pq"
)

// Classroom is owned by a single teacher and lists its students and tasks.
type Classroom struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	TeacherID string         `db:"teacher_id" json:"teacher"`
	Students  pq.StringArray `db:"students" json:"students"`
	Tasks     pq.StringArray `db:"tasks" json:"tasks"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// OwnedBy reports whether teacherID owns the classroom.
func (c *Classroom) OwnedBy(teacherID string) bool {
	return c.TeacherID == teacherID
}

// HasStudent reports whether studentID is enrolled.
func (c *Classroom) HasStudent(studentID string) bool {
	return contains(c.Students, studentID)
}

// HasTask reports whether taskID was assigned to the classroom.
func (c *Classroom) HasTask(taskID string) bool {
	return contains(c.Tasks, taskID)
}

// ClassroomSummary is the classroom view without back-references.
type ClassroomSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Summary strips membership lists.
func (c *Classroom) Summary() ClassroomSummary {
	return ClassroomSummary{ID: c.ID, Name: c.Name}
}
