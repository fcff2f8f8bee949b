package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/classconnect-api/internal/middleware"
	"github.com/noah-isme/classconnect-api/internal/models"
	"github.com/noah-isme/classconnect-api/internal/service"
	appErrors "github.com/noah-isme/classconnect-api/pkg/errors"
)

type authServiceMock struct {
	registered  *models.RegisterRequest
	loginResp   *models.LoginResponse
	loginErr    error
	refreshWith string
	loggedOut   string
}

func (m *authServiceMock) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	m.registered = &req
	return &models.User{ID: "u1", Name: req.Name, Email: req.Email, Role: req.Role}, nil
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	return m.loginResp, m.loginErr
}

func (m *authServiceMock) Refresh(ctx context.Context, refreshToken string) (*models.LoginResponse, error) {
	m.refreshWith = refreshToken
	if refreshToken == "" {
		return nil, appErrors.ErrUnauthorized
	}
	return m.loginResp, nil
}

func (m *authServiceMock) Logout(ctx context.Context, userID string) error {
	m.loggedOut = userID
	return nil
}

type classroomServiceMock struct {
	membership    *service.MembershipRequest
	deletedBy     string
	renamedBy     string
	createdFor    string
	studentLookup string
}

func (m *classroomServiceMock) Create(ctx context.Context, req service.CreateClassroomRequest) (*models.ClassroomSummary, error) {
	m.createdFor = req.TeacherID
	return &models.ClassroomSummary{ID: "c1", Name: req.Name}, nil
}

func (m *classroomServiceMock) ListForTeacher(ctx context.Context, teacherID string) ([]models.Classroom, error) {
	return []models.Classroom{{ID: "c1", Name: "Math101", TeacherID: teacherID}}, nil
}

func (m *classroomServiceMock) ListForStudent(ctx context.Context, studentID string) ([]models.ClassroomSummary, error) {
	m.studentLookup = studentID
	return []models.ClassroomSummary{{ID: "c1", Name: "Math101"}}, nil
}

func (m *classroomServiceMock) Rename(ctx context.Context, classroomID, teacherID, name string) (*models.Classroom, error) {
	m.renamedBy = teacherID
	return &models.Classroom{ID: classroomID, Name: name, TeacherID: teacherID}, nil
}

func (m *classroomServiceMock) Delete(ctx context.Context, classroomID, teacherID string) error {
	m.deletedBy = teacherID
	return nil
}

func (m *classroomServiceMock) AddStudent(ctx context.Context, req service.MembershipRequest) error {
	m.membership = &req
	return nil
}

func (m *classroomServiceMock) RemoveStudent(ctx context.Context, req service.MembershipRequest) error {
	m.membership = &req
	return nil
}

type taskServiceMock struct {
	submitted      *service.SubmitTaskRequest
	submittedBody  string
	statusFor      string
	exportFormat   string
	assigned       *service.AssignTaskRequest
	download       *service.DownloadFile
	downloadErr    error
	downloadTokens []string
}

func (m *taskServiceMock) Assign(ctx context.Context, req service.AssignTaskRequest) (*models.Task, error) {
	m.assigned = &req
	return &models.Task{ID: "t1", Title: req.Title, ClassroomID: req.ClassroomID}, nil
}

func (m *taskServiceMock) Update(ctx context.Context, req service.UpdateTaskRequest) (*models.Task, error) {
	return &models.Task{ID: req.TaskID, Title: req.Title}, nil
}

func (m *taskServiceMock) ListForStudent(ctx context.Context, studentID, classroomID string) ([]models.StudentTask, error) {
	return []models.StudentTask{{ID: "t1", Title: "HW1", Status: models.StatusPending}}, nil
}

func (m *taskServiceMock) Submit(ctx context.Context, req service.SubmitTaskRequest) (*models.Submission, error) {
	m.submitted = &req
	if req.File == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	body, err := io.ReadAll(req.File)
	if err != nil {
		return nil, err
	}
	m.submittedBody = string(body)
	return &models.Submission{ID: "sub1", StudentID: req.StudentID, File: "uploads/1_" + req.FileName}, nil
}

func (m *taskServiceMock) Status(ctx context.Context, classroomID, taskID, studentID string) (*models.StudentSubmissionStatus, error) {
	m.statusFor = studentID
	return &models.StudentSubmissionStatus{Student: models.UserSummary{ID: studentID}, Status: models.StatusPending}, nil
}

func (m *taskServiceMock) AllSubmissions(ctx context.Context, classroomID, taskID, teacherID string) (*models.TaskSubmissions, error) {
	return &models.TaskSubmissions{TaskID: taskID}, nil
}

func (m *taskServiceMock) Export(ctx context.Context, classroomID, taskID, teacherID, format string) (*service.ExportFile, error) {
	m.exportFormat = format
	return &service.ExportFile{Name: "submissions_HW1.csv", ContentType: "text/csv", Data: []byte("Student\n")}, nil
}

func (m *taskServiceMock) OpenDownload(ctx context.Context, token string) (*service.DownloadFile, error) {
	m.downloadTokens = append(m.downloadTokens, token)
	return m.download, m.downloadErr
}

type tokenStub map[string]*models.JWTClaims

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func testTokens() tokenStub {
	claim := func(id string, role models.UserRole) *models.JWTClaims {
		return &models.JWTClaims{UserID: id, Role: role, RegisteredClaims: jwt.RegisteredClaims{Subject: id}}
	}
	return tokenStub{
		"teacher": claim("t1", models.RoleTeacher),
		"student": claim("s1", models.RoleStudent),
	}
}

type testServer struct {
	router     *gin.Engine
	auth       *authServiceMock
	classrooms *classroomServiceMock
	tasks      *taskServiceMock
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)
	auth := &authServiceMock{}
	classrooms := &classroomServiceMock{}
	tasks := &taskServiceMock{}
	handlers := Handlers{
		Auth:      NewAuthHandler(auth, nil, CookieConfig{Secure: true}),
		Student:   NewStudentHandler(classrooms, tasks, 0),
		Teacher:   NewTeacherHandler(classrooms),
		Classroom: NewClassroomHandler(classrooms, tasks),
		File:      NewFileHandler(tasks),
		Metrics:   NewMetricsHandler(nil, nil),
	}
	router := NewRouter(RouterConfig{}, handlers, testTokens(), nil, nil, zap.NewNop())
	return &testServer{router: router, auth: auth, classrooms: classrooms, tasks: tasks}
}

func (s *testServer) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: token})
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}
