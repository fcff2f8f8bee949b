package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/classconnect-api/internal/models"
	appErrors "github.com/noah-isme/classconnect-api/pkg/errors"
)

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type classroomFinder interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
}

func loadUser(ctx context.Context, users userFinder, id, label string) (*models.User, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, label+" id is required")
	}
	user, err := users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, label+" not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load "+label)
	}
	return user, nil
}

// requireRole loads a user and rejects it with 400 when the stored role differs.
func requireRole(ctx context.Context, users userFinder, id string, role models.UserRole) (*models.User, error) {
	user, err := loadUser(ctx, users, id, string(role))
	if err != nil {
		return nil, err
	}
	if user.Role != role {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user is not a "+string(role))
	}
	return user, nil
}

func loadClassroom(ctx context.Context, classrooms classroomFinder, id string) (*models.Classroom, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classroom id is required")
	}
	classroom, err := classrooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load classroom")
	}
	return classroom, nil
}

// loadOwnedClassroom resolves the classroom then applies the ownership check (401).
func loadOwnedClassroom(ctx context.Context, classrooms classroomFinder, classroomID, teacherID string) (*models.Classroom, error) {
	classroom, err := loadClassroom(ctx, classrooms, classroomID)
	if err != nil {
		return nil, err
	}
	if !classroom.OwnedBy(teacherID) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "teacher is not the owner of this classroom")
	}
	return classroom, nil
}

// mutationError maps a repository write failure, treating a vanished row as not found.
func mutationError(err error, entity, action string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	return appErrors.WrapAs(err, appErrors.ErrInternal, "failed to "+action)
}
