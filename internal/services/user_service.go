// Package services – UserService
//
// Manages user registration and lookup. Phone numbers are normalized before
// they touch the database so the webhook path and the API path agree on the
// external identity.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/remindly/go-reminder-backend/internal/domain"
	"github.com/remindly/go-reminder-backend/internal/repo"
	"github.com/remindly/go-reminder-backend/internal/whatsapp"
)

// UserService provides user-level operations.
type UserService struct {
	UoW *repo.UnitOfWork
}

// NewUserService constructs a UserService.
func NewUserService(uow *repo.UnitOfWork) *UserService {
	return &UserService{UoW: uow}
}

// Register creates a user. A phone collision returns ErrDuplicateUser.
func (s *UserService) Register(ctx context.Context, firstName, lastName, phone, timezone, language string) (*domain.User, error) {
	phone = whatsapp.CleanPhone(phone)
	var out *domain.User
	err := s.UoW.Do(ctx, func(tx *gorm.DB) error {
		u, err := repo.CreateUser(ctx, tx, firstName, lastName, phone, timezone, language)
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return nil, ErrDuplicateUser
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches a user by ID, or ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, id uint) (*domain.User, error) {
	var out *domain.User
	err := s.UoW.View(ctx, func(db *gorm.DB) error {
		u, err := repo.GetUser(ctx, db, id)
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// LookupByPhone fetches a user by phone number, or ErrUserNotFound.
func (s *UserService) LookupByPhone(ctx context.Context, phone string) (*domain.User, error) {
	phone = whatsapp.CleanPhone(phone)
	var out *domain.User
	err := s.UoW.View(ctx, func(db *gorm.DB) error {
		u, err := repo.GetUserByPhone(ctx, db, phone)
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns every registered user.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := s.UoW.View(ctx, func(db *gorm.DB) error {
		users, err := repo.ListUsers(ctx, db)
		if err != nil {
			return err
		}
		out = users
		return nil
	})
	return out, err
}
