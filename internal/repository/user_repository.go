package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	apierrors "github.com/yukikurage/taskpilot/internal/errors"
	"github.com/yukikurage/taskpilot/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user models.User) (*models.User, error) {
	if _, err := r.FindByEmail(ctx, user.Email); err == nil {
		return nil, &apierrors.ConflictError{Resource: "user", Field: "email", Value: user.Email}
	} else if !isNotFound(err) {
		return nil, err
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &apierrors.ConflictError{Resource: "user", Field: "email", Value: user.Email}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// Update replaces a stored user
func (r *GormUserRepository) Update(ctx context.Context, user models.User) (*models.User, error) {
	existing, err := r.FindByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	user.CreatedAt = existing.CreatedAt
	if err := r.db.WithContext(ctx).Save(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &apierrors.ConflictError{Resource: "user", Field: "email", Value: user.Email}
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &user, nil
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apierrors.NotFoundError{Resource: "user", ID: id}
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apierrors.NotFoundError{Resource: "user", ID: email}
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// List returns all users ordered by creation time
func (r *GormUserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func isNotFound(err error) bool {
	var notFound *apierrors.NotFoundError
	return errors.As(err, &notFound)
}
