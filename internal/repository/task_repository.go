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

const (
	taskColumns       = `id, title, description, due_date, classroom_id, teacher_id, created_at, updated_at`
	submissionColumns = `id, task_id, student_id, file, submitted_at, created_at`
)

// TaskRepository manages tasks, their submissions and the per-student task lists.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository constructs the repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// CreateForClassroom inserts the task, appends it to the classroom and to every
// student enrolled right now, all in one transaction.
func (r *TaskRepository) CreateForClassroom(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	task.Submissions = []models.Submission{}

	return withTx(ctx, r.db, "assign task", func(tx *sqlx.Tx) error {
		const insertQuery = `INSERT INTO tasks (id, title, description, due_date, classroom_id, teacher_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		if _, err := tx.ExecContext(ctx, insertQuery, task.ID, task.Title, task.Description, task.DueDate, task.ClassroomID, task.TeacherID, now, now); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		const classroomQuery = `UPDATE classrooms SET tasks = array_append(tasks, $1::text), updated_at = $2 WHERE id = $3`
		res, err := tx.ExecContext(ctx, classroomQuery, task.ID, now, task.ClassroomID)
		if err != nil {
			return fmt.Errorf("append classroom task: %w", err)
		}
		if err := expectRow(res); err != nil {
			return err
		}
		const studentsQuery = `UPDATE users SET tasks = array_append(tasks, $1::text), updated_at = $2
WHERE id = ANY(SELECT unnest(students) FROM classrooms WHERE id = $3)`
		if _, err := tx.ExecContext(ctx, studentsQuery, task.ID, now, task.ClassroomID); err != nil {
			return fmt.Errorf("assign task to students: %w", err)
		}
		return nil
	})
}

// FindByID returns a task without its submissions.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 LIMIT 1`
	var task models.Task
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		return nil, passNoRows(err, "find task by id")
	}
	return &task, nil
}

// FindByIDs returns tasks matching ids in no particular order.
func (r *TaskRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Task, error) {
	if len(ids) == 0 {
		return []models.Task{}, nil
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ANY($1)`
	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find tasks by ids: %w", err)
	}
	return tasks, nil
}

// Update persists title, description and due date.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	const query = `UPDATE tasks SET title = $2, description = $3, due_date = $4, updated_at = $5 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, task.ID, task.Title, task.Description, task.DueDate, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return expectRow(res)
}

// CreateSubmission records the submission and moves the task from the student's
// pending list to the completed list, appending only when it is not already there.
func (r *TaskRepository) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	submission.CreatedAt = now

	return withTx(ctx, r.db, "submit task", func(tx *sqlx.Tx) error {
		const insertQuery = `INSERT INTO task_submissions (id, task_id, student_id, file, submitted_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
		if _, err := tx.ExecContext(ctx, insertQuery, submission.ID, submission.TaskID, submission.StudentID, submission.File, submission.SubmittedAt, now); err != nil {
			return fmt.Errorf("insert submission: %w", err)
		}
		const moveQuery = `UPDATE users SET tasks = array_remove(tasks, $1::text),
completed_tasks = CASE WHEN $1::text = ANY(completed_tasks) THEN completed_tasks ELSE array_append(completed_tasks, $1::text) END,
updated_at = $2 WHERE id = $3`
		res, err := tx.ExecContext(ctx, moveQuery, submission.TaskID, now, submission.StudentID)
		if err != nil {
			return fmt.Errorf("complete student task: %w", err)
		}
		return expectRow(res)
	})
}

// ListSubmissions returns a task's submissions in insertion order.
func (r *TaskRepository) ListSubmissions(ctx context.Context, taskID string) ([]models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM task_submissions WHERE task_id = $1 ORDER BY seq ASC`
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, taskID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// FindSubmission returns a submission by identifier.
func (r *TaskRepository) FindSubmission(ctx context.Context, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM task_submissions WHERE id = $1 LIMIT 1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, passNoRows(err, "find submission")
	}
	return &submission, nil
}
