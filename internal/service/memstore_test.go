package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/noah-isme/classconnect-api/internal/models"
	"github.com/noah-isme/classconnect-api/internal/repository"
)

// memStore mirrors the repository semantics over maps: list columns keep order and duplicates,
// multi-row writes are all-or-nothing.
type memStore struct {
	mu          sync.Mutex
	seq         int
	users       map[string]*models.User
	classrooms  map[string]*models.Classroom
	tasks       map[string]*models.Task
	submissions []models.Submission

	failSubmission error
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[string]*models.User{},
		classrooms: map[string]*models.Classroom{},
		tasks:      map[string]*models.Task{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func cloneList(list pq.StringArray) pq.StringArray {
	out := make(pq.StringArray, len(list))
	copy(out, list)
	return out
}

func removeAll(list pq.StringArray, id string) pq.StringArray {
	out := pq.StringArray{}
	for _, item := range list {
		if item != id {
			out = append(out, item)
		}
	}
	return out
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Classrooms = cloneList(u.Classrooms)
	c.Tasks = cloneList(u.Tasks)
	c.CompletedTasks = cloneList(u.CompletedTasks)
	return &c
}

func cloneClassroom(c *models.Classroom) *models.Classroom {
	out := *c
	out.Students = cloneList(c.Students)
	out.Tasks = cloneList(c.Tasks)
	return &out
}

// user returns a snapshot for assertions.
func (m *memStore) user(id string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneUser(m.users[id])
}

func (m *memStore) classroom(id string) *models.Classroom {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneClassroom(m.classrooms[id])
}

type memUsers struct{ *memStore }

func (r memUsers) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = r.nextID("user")
	}
	user.Classrooms, user.Tasks, user.CompletedTasks = pq.StringArray{}, pq.StringArray{}, pq.StringArray{}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r memUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cloneUser(u), nil
}

func (r memUsers) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	out := []models.User{}
	for _, id := range ids {
		if u, ok := r.users[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, *cloneUser(u))
		}
	}
	return out, nil
}

func (r memUsers) UpdateRefreshToken(ctx context.Context, id, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.RefreshToken = token
	return nil
}

type memClassrooms struct{ *memStore }

func (r memClassrooms) CreateForTeacher(ctx context.Context, classroom *models.Classroom) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	teacher, ok := r.users[classroom.TeacherID]
	if !ok {
		return sql.ErrNoRows
	}
	if classroom.ID == "" {
		classroom.ID = r.nextID("classroom")
	}
	classroom.Students, classroom.Tasks = pq.StringArray{}, pq.StringArray{}
	r.classrooms[classroom.ID] = cloneClassroom(classroom)
	teacher.Classrooms = append(teacher.Classrooms, classroom.ID)
	return nil
}

func (r memClassrooms) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.classrooms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cloneClassroom(c), nil
}

func (r memClassrooms) FindByIDs(ctx context.Context, ids []string) ([]models.Classroom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Classroom{}
	for _, id := range ids {
		if c, ok := r.classrooms[id]; ok {
			out = append(out, *cloneClassroom(c))
		}
	}
	return out, nil
}

func (r memClassrooms) ListByTeacher(ctx context.Context, teacherID string) ([]models.Classroom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Classroom{}
	for _, c := range r.classrooms {
		if c.TeacherID == teacherID {
			out = append(out, *cloneClassroom(c))
		}
	}
	return out, nil
}

func (r memClassrooms) UpdateName(ctx context.Context, id, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.classrooms[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.Name = name
	return nil
}

func (r memClassrooms) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.classrooms[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.classrooms, id)
	return nil
}

func (r memClassrooms) AddStudent(ctx context.Context, classroomID, studentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.classrooms[classroomID]
	u, uok := r.users[studentID]
	if !ok || !uok {
		return sql.ErrNoRows
	}
	c.Students = append(c.Students, studentID)
	u.Classrooms = append(u.Classrooms, classroomID)
	return nil
}

func (r memClassrooms) RemoveStudent(ctx context.Context, classroomID, studentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.classrooms[classroomID]
	u, uok := r.users[studentID]
	if !ok || !uok {
		return sql.ErrNoRows
	}
	c.Students = removeAll(c.Students, studentID)
	u.Classrooms = removeAll(u.Classrooms, classroomID)
	return nil
}

type memTasks struct{ *memStore }

func (r memTasks) CreateForClassroom(ctx context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.classrooms[task.ClassroomID]
	if !ok {
		return sql.ErrNoRows
	}
	if task.ID == "" {
		task.ID = r.nextID("task")
	}
	stored := *task
	r.tasks[task.ID] = &stored
	c.Tasks = append(c.Tasks, task.ID)
	seen := map[string]bool{}
	for _, sid := range c.Students {
		if u, ok := r.users[sid]; ok && !seen[sid] {
			seen[sid] = true
			u.Tasks = append(u.Tasks, task.ID)
		}
	}
	return nil
}

func (r memTasks) FindByID(ctx context.Context, id string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	c := *t
	return &c, nil
}

func (r memTasks) FindByIDs(ctx context.Context, ids []string) ([]models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Task{}
	for _, id := range ids {
		if t, ok := r.tasks[id]; ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r memTasks) Update(ctx context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *task
	r.tasks[task.ID] = &stored
	return nil
}

func (r memTasks) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSubmission != nil {
		return r.failSubmission
	}
	u, ok := r.users[submission.StudentID]
	if !ok {
		return sql.ErrNoRows
	}
	if submission.ID == "" {
		submission.ID = r.nextID("submission")
	}
	r.submissions = append(r.submissions, *submission)
	u.Tasks = removeAll(u.Tasks, submission.TaskID)
	if !u.HasCompleted(submission.TaskID) {
		u.CompletedTasks = append(u.CompletedTasks, submission.TaskID)
	}
	return nil
}

func (r memTasks) ListSubmissions(ctx context.Context, taskID string) ([]models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Submission{}
	for _, s := range r.submissions {
		if s.TaskID == taskID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r memTasks) FindSubmission(ctx context.Context, id string) (*models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.submissions {
		if s.ID == id {
			c := s
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}
