package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classconnect-api/internal/models"
	appErrors "github.com/noah-isme/classconnect-api/pkg/errors"
	"github.com/noah-isme/classconnect-api/pkg/logger"
)

type classroomUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type classroomRepository interface {
	CreateForTeacher(ctx context.Context, classroom *models.Classroom) error
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Classroom, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Classroom, error)
	UpdateName(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
	AddStudent(ctx context.Context, classroomID, studentID string) error
	RemoveStudent(ctx context.Context, classroomID, studentID string) error
}

// CreateClassroomRequest is the payload for creating a classroom.
type CreateClassroomRequest struct {
	TeacherID string `validate:"required"`
	Name      string `validate:"required"`
}

// MembershipRequest identifies a student being added to or removed from a classroom.
type MembershipRequest struct {
	ClassroomID string `validate:"required"`
	TeacherID   string `validate:"required"`
	StudentID   string `validate:"required"`
}

// ClassroomService manages classroom lifecycle and enrolment.
type ClassroomService struct {
	users      classroomUserRepository
	classrooms classroomRepository
	cache      *CacheService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewClassroomService constructs the service. cache may be nil.
func NewClassroomService(users classroomUserRepository, classrooms classroomRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomService{users: users, classrooms: classrooms, cache: cache, validator: validate, logger: logger}
}

// Create makes a classroom owned by the teacher and links it to the teacher.
func (s *ClassroomService) Create(ctx context.Context, req CreateClassroomRequest) (*models.ClassroomSummary, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "all fields are required")
	}
	if _, err := requireRole(ctx, s.users, req.TeacherID, models.RoleTeacher); err != nil {
		return nil, err
	}

	classroom := &models.Classroom{Name: req.Name, TeacherID: req.TeacherID}
	if err := s.classrooms.CreateForTeacher(ctx, classroom); err != nil {
		return nil, mutationError(err, "teacher", "create classroom")
	}
	s.cache.Invalidate(ctx, teacherClassroomsKey(req.TeacherID))

	summary := classroom.Summary()
	return &summary, nil
}

// Rename changes the classroom name. Ownership is checked before the name.
func (s *ClassroomService) Rename(ctx context.Context, classroomID, teacherID, name string) (*models.Classroom, error) {
	classroom, err := loadOwnedClassroom(ctx, s.classrooms, classroomID, teacherID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}
	if err := s.classrooms.UpdateName(ctx, classroom.ID, name); err != nil {
		return nil, mutationError(err, "classroom", "rename classroom")
	}
	classroom.Name = name
	s.invalidateClassroom(ctx, classroom)
	return classroom, nil
}

// Delete removes the classroom row. Students, the owner and tasks keep their references.
func (s *ClassroomService) Delete(ctx context.Context, classroomID, teacherID string) error {
	classroom, err := loadOwnedClassroom(ctx, s.classrooms, classroomID, teacherID)
	if err != nil {
		return err
	}
	if err := s.classrooms.Delete(ctx, classroom.ID); err != nil {
		return mutationError(err, "classroom", "delete classroom")
	}
	s.invalidateClassroom(ctx, classroom)
	logger.WithContext(ctx, s.logger).Info("classroom deleted", zap.String("classroom_id", classroom.ID), zap.Int("students", len(classroom.Students)), zap.Int("tasks", len(classroom.Tasks)))
	return nil
}

// ListForTeacher returns every classroom the teacher owns.
func (s *ClassroomService) ListForTeacher(ctx context.Context, teacherID string) ([]models.Classroom, error) {
	if _, err := requireRole(ctx, s.users, teacherID, models.RoleTeacher); err != nil {
		return nil, err
	}

	key := teacherClassroomsKey(teacherID)
	var cached []models.Classroom
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	classrooms, err := s.classrooms.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list classrooms")
	}
	if classrooms == nil {
		classrooms = []models.Classroom{}
	}
	s.cache.Set(ctx, key, classrooms)
	return classrooms, nil
}

// ListForStudent resolves the student's classrooms in list order. Deleted classrooms are skipped.
func (s *ClassroomService) ListForStudent(ctx context.Context, studentID string) ([]models.ClassroomSummary, error) {
	student, err := loadUser(ctx, s.users, studentID, "student")
	if err != nil {
		return nil, err
	}

	key := studentClassroomsKey(studentID)
	var cached []models.ClassroomSummary
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	found, err := s.classrooms.FindByIDs(ctx, student.Classrooms)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load classrooms")
	}
	byID := make(map[string]models.Classroom, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	result := make([]models.ClassroomSummary, 0, len(student.Classrooms))
	for _, id := range student.Classrooms {
		if c, ok := byID[id]; ok {
			result = append(result, c.Summary())
		}
	}
	s.cache.Set(ctx, key, result)
	return result, nil
}

// AddStudent enrols a student. Adding the same student twice keeps both entries.
func (s *ClassroomService) AddStudent(ctx context.Context, req MembershipRequest) error {
	classroom, err := s.checkMembershipRequest(ctx, req)
	if err != nil {
		return err
	}
	if classroom.HasStudent(req.StudentID) {
		logger.WithContext(ctx, s.logger).Warn("student already enrolled, adding duplicate entry",
			zap.String("classroom_id", classroom.ID), zap.String("student_id", req.StudentID))
	}
	if err := s.classrooms.AddStudent(ctx, classroom.ID, req.StudentID); err != nil {
		return mutationError(err, "classroom", "add student")
	}
	s.cache.Invalidate(ctx, studentClassroomsKey(req.StudentID), teacherClassroomsKey(classroom.TeacherID))
	return nil
}

// RemoveStudent removes every enrolment entry between the student and classroom.
func (s *ClassroomService) RemoveStudent(ctx context.Context, req MembershipRequest) error {
	classroom, err := s.checkMembershipRequest(ctx, req)
	if err != nil {
		return err
	}
	if err := s.classrooms.RemoveStudent(ctx, classroom.ID, req.StudentID); err != nil {
		return mutationError(err, "classroom", "remove student")
	}
	s.cache.Invalidate(ctx, studentClassroomsKey(req.StudentID), teacherClassroomsKey(classroom.TeacherID))
	return nil
}

func (s *ClassroomService) checkMembershipRequest(ctx context.Context, req MembershipRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "classroom, teacher and student ids are required")
	}
	if _, err := requireRole(ctx, s.users, req.TeacherID, models.RoleTeacher); err != nil {
		return nil, err
	}
	classroom, err := loadOwnedClassroom(ctx, s.classrooms, req.ClassroomID, req.TeacherID)
	if err != nil {
		return nil, err
	}
	if _, err := requireRole(ctx, s.users, req.StudentID, models.RoleStudent); err != nil {
		return nil, err
	}
	return classroom, nil
}

func (s *ClassroomService) invalidateClassroom(ctx context.Context, classroom *models.Classroom) {
	keys := make([]string, 0, len(classroom.Students)+1)
	keys = append(keys, teacherClassroomsKey(classroom.TeacherID))
	for _, studentID := range classroom.Students {
		keys = append(keys, studentClassroomsKey(studentID))
	}
	s.cache.Invalidate(ctx, keys...)
}
