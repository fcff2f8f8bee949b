package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classconnect-api/internal/models"
	"github.com/noah-isme/classconnect-api/internal/service"
	appErrors "github.com/noah-isme/classconnect-api/pkg/errors"
	"github.com/noah-isme/classconnect-api/pkg/response"
)

type studentClassroomService interface {
	ListForStudent(ctx context.Context, studentID string) ([]models.ClassroomSummary, error)
}

type studentTaskService interface {
	ListForStudent(ctx context.Context, studentID, classroomID string) ([]models.StudentTask, error)
	Submit(ctx context.Context, req service.SubmitTaskRequest) (*models.Submission, error)
}

// multipartEnvelope is the allowance for boundaries and part headers on top of the file itself.
const multipartEnvelope = 64 << 10

// StudentHandler serves the student facing classroom and task routes.
type StudentHandler struct {
	classrooms studentClassroomService
	tasks      studentTaskService
	maxUpload  int64
}

// NewStudentHandler constructs a student handler. Submission bodies larger than maxUpload plus the
// multipart envelope are cut off while reading; maxUpload <= 0 disables the cap.
func NewStudentHandler(classrooms studentClassroomService, tasks studentTaskService, maxUpload int64) *StudentHandler {
	return &StudentHandler{classrooms: classrooms, tasks: tasks, maxUpload: maxUpload}
}

// Classrooms godoc
// @Summary List a student's classrooms
// @Tags Students
// @Produce json
// @Param studentID path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{studentID}/classrooms [get]
func (h *StudentHandler) Classrooms(c *gin.Context) {
	classrooms, err := h.classrooms.ListForStudent(c.Request.Context(), c.Param("studentID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, classrooms, "classrooms fetched successfully")
}

// Tasks godoc
// @Summary List a classroom's tasks with the student's status
// @Tags Students
// @Produce json
// @Param studentID path string true "Student ID"
// @Param classroomID path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{studentID}/classrooms/{classroomID}/tasks [get]
func (h *StudentHandler) Tasks(c *gin.Context) {
	tasks, err := h.tasks.ListForStudent(c.Request.Context(), c.Param("studentID"), c.Param("classroomID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tasks, "tasks fetched successfully")
}

// Submit godoc
// @Summary Submit a file for a task
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param studentID path string true "Student ID"
// @Param classroomID path string true "Classroom ID"
// @Param taskID path string true "Task ID"
// @Param file formData file true "Submission file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{studentID}/classrooms/{classroomID}/tasks/{taskID} [post]
func (h *StudentHandler) Submit(c *gin.Context) {
	req := service.SubmitTaskRequest{
		StudentID:   c.Param("studentID"),
		ClassroomID: c.Param("classroomID"),
		TaskID:      c.Param("taskID"),
	}

	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+multipartEnvelope)
	}

	// A missing file is reported by the service so the membership and due date checks run first.
	header, err := c.FormFile("file")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", h.maxUpload)))
		return
	}
	if err != nil && !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid multipart payload"))
		return
	}
	if header != nil {
		file, err := header.Open()
		if err != nil {
			response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "unreadable file"))
			return
		}
		defer file.Close()
		req.File = file
		req.FileName = header.Filename
		req.FileSize = header.Size
	}

	submission, err := h.tasks.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, submission, "task submitted successfully")
}
