package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classconnect-api/internal/models"
	appErrors "github.com/noah-isme/classconnect-api/pkg/errors"
	"github.com/noah-isme/classconnect-api/pkg/export"
	"github.com/noah-isme/classconnect-api/pkg/logger"
)

type taskRepository interface {
	CreateForClassroom(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, id string) (*models.Task, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	CreateSubmission(ctx context.Context, submission *models.Submission) error
	ListSubmissions(ctx context.Context, taskID string) ([]models.Submission, error)
	FindSubmission(ctx context.Context, id string) (*models.Submission, error)
}

type taskUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

type submissionStorage interface {
	SaveUpload(originalName string, r io.Reader) (string, error)
	Open(location string) (*os.File, error)
	Delete(location string) error
}

type downloadSigner interface {
	Generate(ownerID, location string) (string, time.Time, error)
	Parse(token string) (ownerID, location string, expiresAt time.Time, err error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type documentRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// TaskConfig tunes submission handling.
type TaskConfig struct {
	// DownloadPath is the public route serving signed downloads, e.g. /api/files/download.
	DownloadPath string
	MaxFileSize  int64
}

// AssignTaskRequest creates a task in a classroom.
type AssignTaskRequest struct {
	ClassroomID string `validate:"required"`
	TeacherID   string `validate:"required"`
	Title       string `validate:"required"`
	Description string `validate:"required"`
	DueDate     string `validate:"required"`
}

// UpdateTaskRequest changes only the non-empty fields.
type UpdateTaskRequest struct {
	ClassroomID string
	TaskID      string
	TeacherID   string
	Title       string
	Description string
	DueDate     string
}

// SubmitTaskRequest carries an uploaded file for a task.
type SubmitTaskRequest struct {
	StudentID   string
	ClassroomID string
	TaskID      string
	FileName    string
	FileSize    int64
	File        io.Reader
}

// ExportFile is a rendered submission report.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// DownloadFile is an opened submission file. The caller closes File.
type DownloadFile struct {
	Name string
	File *os.File
}

// TaskService assigns tasks and tracks submissions.
type TaskService struct {
	tasks      taskRepository
	users      taskUserRepository
	classrooms classroomFinder
	storage    submissionStorage
	signer     downloadSigner
	csv        csvRenderer
	pdf        documentRenderer
	xlsx       documentRenderer
	metrics    *MetricsService
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        TaskConfig
	now        func() time.Time
}

// NewTaskService constructs the service. metrics and cache may be nil.
func NewTaskService(tasks taskRepository, users taskUserRepository, classrooms classroomFinder, storage submissionStorage, signer downloadSigner, metrics *MetricsService, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg TaskConfig) *TaskService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DownloadPath == "" {
		cfg.DownloadPath = "/files/download"
	}
	return &TaskService{
		tasks:      tasks,
		users:      users,
		classrooms: classrooms,
		storage:    storage,
		signer:     signer,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		xlsx:       export.NewXLSXExporter(),
		metrics:    metrics,
		cache:      cache,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Assign creates the task and hands it to every student enrolled right now.
func (s *TaskService) Assign(ctx context.Context, req AssignTaskRequest) (*models.Task, error) {
	if _, err := requireRole(ctx, s.users, req.TeacherID, models.RoleTeacher); err != nil {
		return nil, err
	}
	classroom, err := loadOwnedClassroom(ctx, s.classrooms, req.ClassroomID, req.TeacherID)
	if err != nil {
		return nil, err
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "title, description and dueDate are required")
	}
	dueDate, err := normalizeDueDate(req.DueDate)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     dueDate,
		ClassroomID: classroom.ID,
		TeacherID:   req.TeacherID,
	}
	if err := s.tasks.CreateForClassroom(ctx, task); err != nil {
		return nil, mutationError(err, "classroom", "assign task")
	}
	// Teacher listings embed classroom.tasks.
	s.cache.Invalidate(ctx, teacherClassroomsKey(classroom.TeacherID))
	s.metrics.RecordTaskAssigned()
	logger.WithContext(ctx, s.logger).Info("task assigned",
		zap.String("task_id", task.ID), zap.String("classroom_id", classroom.ID), zap.Int("students", len(classroom.Students)))
	return task, nil
}

// Update applies a partial update. Ownership is checked before the task is looked up.
func (s *TaskService) Update(ctx context.Context, req UpdateTaskRequest) (*models.Task, error) {
	if _, err := loadOwnedClassroom(ctx, s.classrooms, req.ClassroomID, req.TeacherID); err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}
	if task.ClassroomID != req.ClassroomID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found in this classroom")
	}

	if title := strings.TrimSpace(req.Title); title != "" {
		task.Title = title
	}
	if description := strings.TrimSpace(req.Description); description != "" {
		task.Description = description
	}
	if req.DueDate != "" {
		dueDate, err := normalizeDueDate(req.DueDate)
		if err != nil {
			return nil, err
		}
		task.DueDate = dueDate
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, mutationError(err, "task", "update task")
	}
	if task.Submissions == nil {
		task.Submissions = []models.Submission{}
	}
	return task, nil
}

// ListForStudent returns the classroom's tasks with the student's status for each.
func (s *TaskService) ListForStudent(ctx context.Context, studentID, classroomID string) ([]models.StudentTask, error) {
	student, err := loadUser(ctx, s.users, studentID, "student")
	if err != nil {
		return nil, err
	}
	classroom, err := loadClassroom(ctx, s.classrooms, classroomID)
	if err != nil {
		return nil, err
	}
	if !classroom.HasStudent(student.ID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not part of this classroom")
	}

	found, err := s.tasks.FindByIDs(ctx, classroom.Tasks)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load tasks")
	}
	byID := make(map[string]models.Task, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}

	result := make([]models.StudentTask, 0, len(classroom.Tasks))
	for _, id := range classroom.Tasks {
		task, ok := byID[id]
		if !ok {
			continue
		}
		result = append(result, models.StudentTask{
			ID:          task.ID,
			Title:       task.Title,
			Description: task.Description,
			DueDate:     task.DueDate,
			Status:      statusFor(student, task.ID),
		})
	}
	return result, nil
}

// Submit stores the file and records the submission. The file is removed if recording fails.
func (s *TaskService) Submit(ctx context.Context, req SubmitTaskRequest) (*models.Submission, error) {
	student, err := loadUser(ctx, s.users, req.StudentID, "student")
	if err != nil {
		return nil, err
	}
	classroom, err := loadClassroom(ctx, s.classrooms, req.ClassroomID)
	if err != nil {
		return nil, err
	}
	if !classroom.HasStudent(student.ID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "student is not part of this classroom")
	}
	if !classroom.HasTask(req.TaskID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "task is not part of this classroom")
	}
	task, err := s.loadTask(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	passed, err := models.DuePassed(task.DueDate, now)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "task has an unreadable due date")
	}
	if passed {
		return nil, appErrors.Clone(appErrors.ErrDueDatePassed, "due date has passed")
	}

	if req.File == nil || req.FileName == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if s.cfg.MaxFileSize > 0 && req.FileSize > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSize))
	}

	location, err := s.storage.SaveUpload(req.FileName, req.File)
	if err != nil {
		s.metrics.RecordSubmission(false)
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to store file")
	}

	submission := &models.Submission{
		TaskID:      task.ID,
		StudentID:   student.ID,
		File:        location,
		SubmittedAt: models.FormatDate(now),
	}
	if err := s.tasks.CreateSubmission(ctx, submission); err != nil {
		s.metrics.RecordSubmission(false)
		if delErr := s.storage.Delete(location); delErr != nil {
			logger.WithContext(ctx, s.logger).Warn("failed to remove orphaned upload", zap.String("file", location), zap.Error(delErr))
		}
		return nil, mutationError(err, "student", "record submission")
	}

	s.metrics.RecordSubmission(true)
	logger.WithContext(ctx, s.logger).Info("task submitted",
		zap.String("task_id", task.ID), zap.String("student_id", student.ID), zap.String("file", location))
	return submission, nil
}

// Status reports one student's derived status for a task.
func (s *TaskService) Status(ctx context.Context, classroomID, taskID, studentID string) (*models.StudentSubmissionStatus, error) {
	if _, err := loadClassroom(ctx, s.classrooms, classroomID); err != nil {
		return nil, err
	}
	if _, err := s.loadTask(ctx, taskID); err != nil {
		return nil, err
	}
	student, err := loadUser(ctx, s.users, studentID, "student")
	if err != nil {
		return nil, err
	}
	return &models.StudentSubmissionStatus{
		Student: student.Summary(),
		Status:  statusFor(student, taskID),
	}, nil
}

// AllSubmissions lists every enrolled student's status and stored files for a task.
func (s *TaskService) AllSubmissions(ctx context.Context, classroomID, taskID, teacherID string) (*models.TaskSubmissions, error) {
	if _, err := requireRole(ctx, s.users, teacherID, models.RoleTeacher); err != nil {
		return nil, err
	}
	classroom, err := loadOwnedClassroom(ctx, s.classrooms, classroomID, teacherID)
	if err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.ClassroomID != classroom.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found in this classroom")
	}

	students, err := s.users.FindByIDs(ctx, classroom.Students)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load students")
	}
	byID := make(map[string]*models.User, len(students))
	for i := range students {
		byID[students[i].ID] = &students[i]
	}

	submissions, err := s.tasks.ListSubmissions(ctx, task.ID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load submissions")
	}
	files := make(map[string][]models.SubmissionFile)
	for _, sub := range submissions {
		file, err := s.signFile(sub)
		if err != nil {
			return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to sign download link")
		}
		files[sub.StudentID] = append(files[sub.StudentID], file)
	}

	result := &models.TaskSubmissions{
		TaskID:   task.ID,
		Title:    task.Title,
		DueDate:  task.DueDate,
		Students: make([]models.StudentSubmissionStatus, 0, len(classroom.Students)),
	}
	for _, id := range classroom.Students {
		student, ok := byID[id]
		if !ok {
			continue
		}
		result.Students = append(result.Students, models.StudentSubmissionStatus{
			Student:     student.Summary(),
			Status:      statusFor(student, task.ID),
			Submissions: files[id],
		})
	}
	return result, nil
}

// Export renders the submission overview in the requested format.
func (s *TaskService) Export(ctx context.Context, classroomID, taskID, teacherID, format string) (*ExportFile, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "format must be csv, pdf or xlsx")
	}
	overview, err := s.AllSubmissions(ctx, classroomID, taskID, teacherID)
	if err != nil {
		return nil, err
	}

	dataset := submissionDataset(overview)
	title := fmt.Sprintf("%s (due %s)", overview.Title, overview.DueDate)
	var data []byte
	switch f {
	case export.FormatPDF:
		data, err = s.pdf.Render(dataset, title)
	case export.FormatXLSX:
		data, err = s.xlsx.Render(dataset, overview.Title)
	default:
		data, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to render export")
	}

	return &ExportFile{
		Name:        fmt.Sprintf("submissions_%s_%s.%s", sanitizeFilename(overview.Title), s.now().UTC().Format("20060102_150405"), f),
		ContentType: f.ContentType(),
		Data:        data,
	}, nil
}

// OpenDownload validates a signed token and opens the referenced submission file.
func (s *TaskService) OpenDownload(ctx context.Context, token string) (*DownloadFile, error) {
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "token is required")
	}
	submissionID, location, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrForbidden, "invalid or expired download link")
	}
	submission, err := s.tasks.FindSubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load submission")
	}
	if submission.File != location {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download link does not match submission")
	}
	file, err := s.storage.Open(location)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to open file")
	}
	return &DownloadFile{Name: path.Base(location), File: file}, nil
}

func (s *TaskService) loadTask(ctx context.Context, id string) (*models.Task, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "task id is required")
	}
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load task")
	}
	return task, nil
}

func (s *TaskService) signFile(sub models.Submission) (models.SubmissionFile, error) {
	token, expiresAt, err := s.signer.Generate(sub.ID, sub.File)
	if err != nil {
		return models.SubmissionFile{}, err
	}
	return models.SubmissionFile{
		ID:          sub.ID,
		SubmittedAt: sub.SubmittedAt,
		DownloadURL: s.cfg.DownloadPath + "?token=" + url.QueryEscape(token),
		ExpiresAt:   expiresAt,
	}, nil
}

func statusFor(student *models.User, taskID string) models.SubmissionStatus {
	if student.HasCompleted(taskID) {
		return models.StatusSubmitted
	}
	return models.StatusPending
}

func normalizeDueDate(raw string) (string, error) {
	due, err := models.ParseDueDate(raw)
	if err != nil {
		return "", appErrors.WrapAs(err, appErrors.ErrValidation, "dueDate must be a date in YYYY_MM_DD form")
	}
	return models.FormatDate(due), nil
}

func submissionDataset(overview *models.TaskSubmissions) export.Dataset {
	headers := []string{"Student", "Email", "Status", "Submissions", "Last Submitted"}
	rows := make([]map[string]string, 0, len(overview.Students))
	for _, st := range overview.Students {
		last := ""
		if n := len(st.Submissions); n > 0 {
			last = st.Submissions[n-1].SubmittedAt
		}
		rows = append(rows, map[string]string{
			"Student":        st.Student.Name,
			"Email":          st.Student.Email,
			"Status":         string(st.Status),
			"Submissions":    strconv.Itoa(len(st.Submissions)),
			"Last Submitted": last,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "task"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 60 {
		return result[:60]
	}
	return result
}
