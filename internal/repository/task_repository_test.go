package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classconnect-api/internal/models"
)

func TestTaskRepositoryCreateForClassroom(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
		WithArgs(sqlmock.AnyArg(), "HW1", "Chapter 1", "2099_01_01", "c1", "teacher-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE classrooms SET tasks = array_append(tasks, $1::text)")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ANY(SELECT unnest(students) FROM classrooms WHERE id = $3)")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "c1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	task := &models.Task{Title: "HW1", Description: "Chapter 1", DueDate: "2099_01_01", ClassroomID: "c1", TeacherID: "teacher-1"}
	require.NoError(t, repo.CreateForClassroom(context.Background(), task))
	assert.NotEmpty(t, task.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryCreateRollsBackWhenStudentUpdateFails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE classrooms SET tasks")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET tasks")).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := repo.CreateForClassroom(context.Background(), &models.Task{Title: "HW1", ClassroomID: "c1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assign task to students")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryCreateSubmission(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO task_submissions")).
		WithArgs(sqlmock.AnyArg(), "k1", "s1", "uploads/1_hw.pdf", "2030_01_01", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("completed_tasks = CASE WHEN $1::text = ANY(completed_tasks) THEN completed_tasks ELSE array_append(completed_tasks, $1::text) END")).
		WithArgs("k1", sqlmock.AnyArg(), "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	submission := &models.Submission{TaskID: "k1", StudentID: "s1", File: "uploads/1_hw.pdf", SubmittedAt: "2030_01_01"}
	require.NoError(t, repo.CreateSubmission(context.Background(), submission))
	assert.NotEmpty(t, submission.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET title = $2, description = $3, due_date = $4, updated_at = $5 WHERE id = $1")).
		WithArgs("k1", "HW1b", "desc", "2099_02_02", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), &models.Task{ID: "k1", Title: "HW1b", Description: "desc", DueDate: "2099_02_02"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryListSubmissions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "task_id", "student_id", "file", "submitted_at", "created_at"}).
		AddRow("sub1", "k1", "s1", "uploads/1_a.pdf", "2030_01_01", now).
		AddRow("sub2", "k1", "s1", "uploads/2_a.pdf", "2030_01_02", now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM task_submissions WHERE task_id = $1 ORDER BY seq ASC")).
		WithArgs("k1").
		WillReturnRows(rows)

	submissions, err := repo.ListSubmissions(context.Background(), "k1")
	require.NoError(t, err)
	require.Len(t, submissions, 2)
	assert.Equal(t, "uploads/2_a.pdf", submissions[1].File)
	assert.NoError(t, mock.ExpectationsWereMet())
}
