package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/classconnect-api/internal/models"
	appErrors "github.com/noah-isme/classconnect-api/pkg/errors"
	"github.com/noah-isme/classconnect-api/pkg/storage"
)

type fixture struct {
	store      *memStore
	uploadDir  string
	files      *storage.LocalStorage
	auth       *AuthService
	classrooms *ClassroomService
	tasks      *TaskService
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "access-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenSecret: "refresh-secret",
		RefreshTokenExpiry: time.Hour,
		Issuer:             "classconnect-test",
		BcryptCost:         bcrypt.MinCost,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	dir := t.TempDir()
	files, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("download-secret", time.Hour)

	users := memUsers{store}
	classrooms := memClassrooms{store}
	return &fixture{
		store:      store,
		uploadDir:  dir,
		files:      files,
		auth:       NewAuthService(users, nil, nil, testAuthConfig()),
		classrooms: NewClassroomService(users, classrooms, nil, nil, nil),
		tasks:      NewTaskService(memTasks{store}, users, classrooms, files, signer, nil, nil, nil, nil, TaskConfig{DownloadPath: "/files/download", MaxFileSize: 1024}),
	}
}

// at pins the task service clock.
func (f *fixture) at(now time.Time) {
	f.tasks.now = func() time.Time { return now }
}

func (f *fixture) register(t *testing.T, name string, role models.UserRole) *models.User {
	t.Helper()
	user, err := f.auth.Register(context.Background(), models.RegisterRequest{
		Name:     name,
		Email:    name + "@example.com",
		Password: "secret-" + name,
		Role:     role,
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) classroom(t *testing.T, teacherID, name string, students ...string) string {
	t.Helper()
	ctx := context.Background()
	created, err := f.classrooms.Create(ctx, CreateClassroomRequest{TeacherID: teacherID, Name: name})
	require.NoError(t, err)
	for _, sid := range students {
		require.NoError(t, f.classrooms.AddStudent(ctx, MembershipRequest{ClassroomID: created.ID, TeacherID: teacherID, StudentID: sid}))
	}
	return created.ID
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, status, appErrors.FromError(err).Status, err.Error())
}
