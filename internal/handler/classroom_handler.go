package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classconnect-api/internal/models"
	"github.com/noah-isme/classconnect-api/internal/service"
	appErrors "github.com/noah-isme/classconnect-api/pkg/errors"
	"github.com/noah-isme/classconnect-api/pkg/response"
)

type classroomService interface {
	Rename(ctx context.Context, classroomID, teacherID, name string) (*models.Classroom, error)
	Delete(ctx context.Context, classroomID, teacherID string) error
	AddStudent(ctx context.Context, req service.MembershipRequest) error
	RemoveStudent(ctx context.Context, req service.MembershipRequest) error
}

type classroomTaskService interface {
	Assign(ctx context.Context, req service.AssignTaskRequest) (*models.Task, error)
	Update(ctx context.Context, req service.UpdateTaskRequest) (*models.Task, error)
	Status(ctx context.Context, classroomID, taskID, studentID string) (*models.StudentSubmissionStatus, error)
	AllSubmissions(ctx context.Context, classroomID, taskID, teacherID string) (*models.TaskSubmissions, error)
	Export(ctx context.Context, classroomID, taskID, teacherID, format string) (*service.ExportFile, error)
}

// ClassroomHandler serves membership, task and submission routes of a single classroom.
type ClassroomHandler struct {
	classrooms classroomService
	tasks      classroomTaskService
}

// NewClassroomHandler constructs a classroom handler.
func NewClassroomHandler(classrooms classroomService, tasks classroomTaskService) *ClassroomHandler {
	return &ClassroomHandler{classrooms: classrooms, tasks: tasks}
}

type teacherPayload struct {
	TeacherID string `json:"teacherID"`
}

type membershipPayload struct {
	TeacherID string `json:"teacherID"`
	StudentID string `json:"studentID"`
}

type renamePayload struct {
	TeacherID string `json:"teacherID"`
	Name      string `json:"name"`
}

type taskPayload struct {
	TeacherID   string `json:"teacherID"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"`
}

type statusPayload struct {
	StudentID string `json:"studentID"`
}

// teacherID returns the acting teacher, taken from the body, the query or the token.
func teacherID(c *gin.Context, fromBody string) (string, error) {
	if fromBody == "" {
		fromBody = c.Query("teacherID")
	}
	return actingID(c, fromBody, "teacherID")
}

// AddStudent godoc
// @Summary Add a student to a classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param classroomID path string true "Classroom ID"
// @Param payload body membershipPayload true "Membership"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classrooms/{classroomID}/students [post]
func (h *ClassroomHandler) AddStudent(c *gin.Context) {
	var payload membershipPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid membership payload"))
		return
	}
	teacher, err := teacherID(c, payload.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.classrooms.AddStudent(c.Request.Context(), service.MembershipRequest{
		ClassroomID: c.Param("classroomID"),
		TeacherID:   teacher,
		StudentID:   payload.StudentID,
	}); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil, "student added to classroom successfully")
}

// RemoveStudent godoc
// @Summary Remove a student from a classroom
// @Tags Classrooms
// @Produce json
// @Param classroomID path string true "Classroom ID"
// @Param studentID path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classrooms/{classroomID}/students/{studentID} [delete]
func (h *ClassroomHandler) RemoveStudent(c *gin.Context) {
	var payload teacherPayload
	if err := bindOptionalJSON(c, &payload); err != nil {
		response.Error(c, err)
		return
	}
	teacher, err := teacherID(c, payload.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.classrooms.RemoveStudent(c.Request.Context(), service.MembershipRequest{
		ClassroomID: c.Param("classroomID"),
		TeacherID:   teacher,
		StudentID:   c.Param("studentID"),
	}); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil, "student removed from classroom successfully")
}

// Rename godoc
// @Summary Rename a classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param classroomID path string true "Classroom ID"
// @Param payload body renamePayload true "New name"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classrooms/{classroomID} [put]
func (h *ClassroomHandler) Rename(c *gin.Context) {
	var payload renamePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid classroom payload"))
		return
	}
	teacher, err := teacherID(c, payload.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}

	classroom, err := h.classrooms.Rename(c.Request.Context(), c.Param("classroomID"), teacher, payload.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, classroom, "classroom updated successfully")
}

// Delete godoc
// @Summary Delete a classroom
// @Tags Classrooms
// @Produce json
// @Param classroomID path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classrooms/{classroomID} [delete]
func (h *ClassroomHandler) Delete(c *gin.Context) {
	var payload teacherPayload
	if err := bindOptionalJSON(c, &payload); err != nil {
		response.Error(c, err)
		return
	}
	teacher, err := teacherID(c, payload.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.classrooms.Delete(c.Request.Context(), c.Param("classroomID"), teacher); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, nil, "classroom deleted successfully")
}

// AssignTask godoc
// @Summary Assign a task to every current student
// @Tags Tasks
// @Accept json
// @Produce json
// @Param classroomID path string true "Classroom ID"
// @Param payload body taskPayload true "Task; dueDate as YYYY_MM_DD"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classrooms/{classroomID}/tasks [post]
func (h *ClassroomHandler) AssignTask(c *gin.Context) {
	var payload taskPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid task payload"))
		return
	}
	teacher, err := teacherID(c, payload.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}

	task, err := h.tasks.Assign(c.Request.Context(), service.AssignTaskRequest{
		ClassroomID: c.Param("classroomID"),
		TeacherID:   teacher,
		Title:       payload.Title,
		Description: payload.Description,
		DueDate:     payload.DueDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, task, "task assigned successfully")
}

// UpdateTask godoc
// @Summary Update task fields
// @Description Only non-empty fields change.
// @Tags Tasks
// @Accept json
// @Produce json
// @Param classroomID path string true "Classroom ID"
// @Param taskID path string true "Task ID"
// @Param payload body taskPayload true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classrooms/{classroomID}/tasks/{taskID} [put]
func (h *ClassroomHandler) UpdateTask(c *gin.Context) {
	var payload taskPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid task payload"))
		return
	}
	teacher, err := teacherID(c, payload.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), service.UpdateTaskRequest{
		ClassroomID: c.Param("classroomID"),
		TaskID:      c.Param("taskID"),
		TeacherID:   teacher,
		Title:       payload.Title,
		Description: payload.Description,
		DueDate:     payload.DueDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, task, "task updated successfully")
}

// Submissions godoc
// @Summary Every student's status and files for a task
// @Tags Tasks
// @Produce json
// @Param classroomID path string true "Classroom ID"
// @Param taskID path string true "Task ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classrooms/{classroomID}/tasks/{taskID}/submissions [get]
func (h *ClassroomHandler) Submissions(c *gin.Context) {
	var payload teacherPayload
	if err := bindOptionalJSON(c, &payload); err != nil {
		response.Error(c, err)
		return
	}
	teacher, err := teacherID(c, payload.TeacherID)
	if err != nil {
		response.Error(c, err)
		return
	}

	overview, err := h.tasks.AllSubmissions(c.Request.Context(), c.Param("classroomID"), c.Param("taskID"), teacher)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, overview, "submissions fetched successfully")
}

// SubmissionStatus godoc
// @Summary One student's status for a task
// @Description Students may only ask about themselves.
// @Tags Tasks
// @Produce json
// @Param classroomID path string true "Classroom ID"
// @Param taskID path string true "Task ID"
// @Param studentID query string false "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classrooms/{classroomID}/tasks/{taskID}/submission [get]
func (h *ClassroomHandler) SubmissionStatus(c *gin.Context) {
	var payload statusPayload
	if err := bindOptionalJSON(c, &payload); err != nil {
		response.Error(c, err)
		return
	}
	studentID := payload.StudentID
	if studentID == "" {
		studentID = c.Query("studentID")
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if claims.Role == models.RoleStudent {
		self, err := actingID(c, studentID, "studentID")
		if err != nil {
			response.Error(c, err)
			return
		}
		studentID = self
	}

	status, err := h.tasks.Status(c.Request.Context(), c.Param("classroomID"), c.Param("taskID"), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status, "submission status fetched successfully")
}

// Export godoc
// @Summary Export the submission table
// @Tags Tasks
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param classroomID path string true "Classroom ID"
// @Param taskID path string true "Task ID"
// @Param format query string false "csv, pdf or xlsx"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classrooms/{classroomID}/tasks/{taskID}/submissions/export [get]
func (h *ClassroomHandler) Export(c *gin.Context) {
	teacher, err := teacherID(c, "")
	if err != nil {
		response.Error(c, err)
		return
	}

	file, err := h.tasks.Export(c.Request.Context(), c.Param("classroomID"), c.Param("taskID"), teacher, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
