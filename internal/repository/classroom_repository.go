package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/classconnect-api/internal/models"
)

const classroomColumns = `id, name, teacher_id, students, tasks, created_at, updated_at`

// ClassroomRepository manages classrooms and the membership lists that point at them.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs the repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// CreateForTeacher inserts the classroom and appends its id to the owner's classrooms in one transaction.
func (r *ClassroomRepository) CreateForTeacher(ctx context.Context, classroom *models.Classroom) error {
	if classroom.ID == "" {
		classroom.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	classroom.Students = pq.StringArray{}
	classroom.Tasks = pq.StringArray{}
	classroom.CreatedAt = now
	classroom.UpdatedAt = now

	return withTx(ctx, r.db, "create classroom", func(tx *sqlx.Tx) error {
		const insertQuery = `INSERT INTO classrooms (id, name, teacher_id, students, tasks, created_at, updated_at)
VALUES ($1, $2, $3, '{}', '{}', $4, $5)`
		if _, err := tx.ExecContext(ctx, insertQuery, classroom.ID, classroom.Name, classroom.TeacherID, now, now); err != nil {
			return fmt.Errorf("insert classroom: %w", err)
		}
		const linkQuery = `UPDATE users SET classrooms = array_append(classrooms, $1::text), updated_at = $2 WHERE id = $3`
		res, err := tx.ExecContext(ctx, linkQuery, classroom.ID, now, classroom.TeacherID)
		if err != nil {
			return fmt.Errorf("link classroom to teacher: %w", err)
		}
		return expectRow(res)
	})
}

// FindByID returns a classroom by identifier.
func (r *ClassroomRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	query := `SELECT ` + classroomColumns + ` FROM classrooms WHERE id = $1 LIMIT 1`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, id); err != nil {
		return nil, passNoRows(err, "find classroom by id")
	}
	return &classroom, nil
}

// FindByIDs returns classrooms matching ids in no particular order. Deleted ids are skipped.
func (r *ClassroomRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Classroom, error) {
	if len(ids) == 0 {
		return []models.Classroom{}, nil
	}
	query := `SELECT ` + classroomColumns + ` FROM classrooms WHERE id = ANY($1)`
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find classrooms by ids: %w", err)
	}
	return classrooms, nil
}

// ListByTeacher returns every classroom owned by teacherID, oldest first.
func (r *ClassroomRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Classroom, error) {
	query := `SELECT ` + classroomColumns + ` FROM classrooms WHERE teacher_id = $1 ORDER BY created_at ASC`
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, teacherID); err != nil {
		return nil, fmt.Errorf("list classrooms by teacher: %w", err)
	}
	return classrooms, nil
}

// UpdateName renames a classroom.
func (r *ClassroomRepository) UpdateName(ctx context.Context, id, name string) error {
	const query = `UPDATE classrooms SET name = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, name, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("rename classroom: %w", err)
	}
	return expectRow(res)
}

// Delete removes the classroom row only. Membership lists and tasks keep their references.
func (r *ClassroomRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM classrooms WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete classroom: %w", err)
	}
	return expectRow(res)
}

// AddStudent appends the student to the classroom and the classroom to the student atomically.
func (r *ClassroomRepository) AddStudent(ctx context.Context, classroomID, studentID string) error {
	now := time.Now().UTC()
	return withTx(ctx, r.db, "add student", func(tx *sqlx.Tx) error {
		const classroomQuery = `UPDATE classrooms SET students = array_append(students, $1::text), updated_at = $2 WHERE id = $3`
		res, err := tx.ExecContext(ctx, classroomQuery, studentID, now, classroomID)
		if err != nil {
			return fmt.Errorf("append classroom student: %w", err)
		}
		if err := expectRow(res); err != nil {
			return err
		}
		const userQuery = `UPDATE users SET classrooms = array_append(classrooms, $1::text), updated_at = $2 WHERE id = $3`
		res, err = tx.ExecContext(ctx, userQuery, classroomID, now, studentID)
		if err != nil {
			return fmt.Errorf("append student classroom: %w", err)
		}
		return expectRow(res)
	})
}

// RemoveStudent removes every occurrence of the link on both sides atomically.
func (r *ClassroomRepository) RemoveStudent(ctx context.Context, classroomID, studentID string) error {
	now := time.Now().UTC()
	return withTx(ctx, r.db, "remove student", func(tx *sqlx.Tx) error {
		const classroomQuery = `UPDATE classrooms SET students = array_remove(students, $1::text), updated_at = $2 WHERE id = $3`
		res, err := tx.ExecContext(ctx, classroomQuery, studentID, now, classroomID)
		if err != nil {
			return fmt.Errorf("remove classroom student: %w", err)
		}
		if err := expectRow(res); err != nil {
			return err
		}
		const userQuery = `UPDATE users SET classrooms = array_remove(classrooms, $1::text), updated_at = $2 WHERE id = $3`
		res, err = tx.ExecContext(ctx, userQuery, classroomID, now, studentID)
		if err != nil {
			return fmt.Errorf("remove student classroom: %w", err)
		}
		return expectRow(res)
	})
}
