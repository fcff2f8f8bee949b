package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classconnect-api/internal/models"
	"github.com/noah-isme/classconnect-api/internal/service"
	appErrors "github.com/noah-isme/classconnect-api/pkg/errors"
	"github.com/noah-isme/classconnect-api/pkg/response"
)

type teacherClassroomService interface {
	Create(ctx context.Context, req service.CreateClassroomRequest) (*models.ClassroomSummary, error)
	ListForTeacher(ctx context.Context, teacherID string) ([]models.Classroom, error)
}

// TeacherHandler serves the teacher's own classroom collection.
type TeacherHandler struct {
	classrooms teacherClassroomService
}

// NewTeacherHandler constructs a teacher handler.
func NewTeacherHandler(classrooms teacherClassroomService) *TeacherHandler {
	return &TeacherHandler{classrooms: classrooms}
}

type createClassroomPayload struct {
	Name string `json:"name"`
}

// CreateClassroom godoc
// @Summary Create a classroom
// @Tags Teachers
// @Accept json
// @Produce json
// @Param teacherID path string true "Teacher ID"
// @Param payload body createClassroomPayload true "Classroom"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{teacherID}/classrooms [post]
func (h *TeacherHandler) CreateClassroom(c *gin.Context) {
	var payload createClassroomPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid classroom payload"))
		return
	}

	classroom, err := h.classrooms.Create(c.Request.Context(), service.CreateClassroomRequest{
		TeacherID: c.Param("teacherID"),
		Name:      payload.Name,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, classroom, "classroom created successfully")
}

// ListClassrooms godoc
// @Summary List a teacher's classrooms
// @Tags Teachers
// @Produce json
// @Param teacherID path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{teacherID}/classrooms [get]
func (h *TeacherHandler) ListClassrooms(c *gin.Context) {
	classrooms, err := h.classrooms.ListForTeacher(c.Request.Context(), c.Param("teacherID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, classrooms, "classrooms fetched successfully")
}
