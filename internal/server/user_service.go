package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/taskkit/internal/config"
	"github.com/jonathan/taskkit/internal/db"
)

// UserStore is the persistence the account routes need.
type UserStore interface {
	Create(ctx context.Context, u *db.User) error
	FindByUsername(ctx context.Context, username string) (*db.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
}

// SignupForm is the posted signup form.
type SignupForm struct {
	Username string `validate:"required,max=80"`
	Email    string `validate:"required,email,max=120"`
	Password string `validate:"required"`
}

// LoginForm is the posted login form.
type LoginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// UserService provides business logic for user authentication operations
type UserService struct {
	store          UserStore
	passwordConfig *config.PasswordConfig
	validator      *validator.Validate
}

// NewUserService creates a new UserService with the given dependencies
func NewUserService(store UserStore, passwordConfig *config.PasswordConfig) *UserService {
	return &UserService{
		store:          store,
		passwordConfig: passwordConfig,
		validator:      validator.New(),
	}
}

// Register creates a new user with a bcrypt-hashed password
func (s *UserService) Register(ctx context.Context, form SignupForm) (*db.User, error) {
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)
	if err := s.validate(form); err != nil {
		return nil, err
	}

	exists, err := s.store.ExistsByUsernameOrEmail(ctx, form.Username, form.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}
	if exists {
		return nil, &ErrUserExists{Username: form.Username, Email: form.Email}
	}

	passwordHash, err := s.passwordConfig.HashPassword(form.Password)
	if errors.Is(err, config.ErrPasswordTooLong) {
		return nil, &ErrValidation{Field: "Password", Message: "Password is too long."}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &db.User{Username: form.Username, Email: form.Email, PasswordHash: passwordHash}
	if err := s.store.Create(ctx, user); err != nil {
		// Lost a race with a concurrent signup.
		if errors.Is(err, db.ErrDuplicateUser) {
			return nil, &ErrUserExists{Username: form.Username, Email: form.Email}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login authenticates a user and returns user data
func (s *UserService) Login(ctx context.Context, form LoginForm) (*db.User, error) {
	form.Username = strings.TrimSpace(form.Username)
	if err := s.validator.Struct(form); err != nil {
		// Security: missing fields look the same as wrong ones
		return nil, &ErrInvalidCredentials{}
	}

	user, err := s.store.FindByUsername(ctx, form.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	// Security: Always return generic error if user not found or password wrong
	if user == nil || !s.passwordConfig.VerifyPassword(form.Password, user.PasswordHash) {
		return nil, &ErrInvalidCredentials{}
	}

	return user, nil
}

func (s *UserService) validate(form SignupForm) error {
	err := s.validator.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return &ErrValidation{Field: "form", Message: err.Error()}
	}

	for _, fe := range fieldErrors {
		if fe.Tag() == "required" {
			return &ErrValidation{Field: "form", Message: MsgFieldsRequired}
		}
	}

	fe := fieldErrors[0]
	switch fe.Tag() {
	case "email":
		return &ErrValidation{Field: fe.Field(), Message: "Please enter a valid email address."}
	case "max":
		return &ErrValidation{Field: fe.Field(), Message: fmt.Sprintf("%s must be at most %s characters.", fe.Field(), fe.Param())}
	default:
		return &ErrValidation{Field: fe.Field(), Message: fmt.Sprintf("%s is invalid.", fe.Field())}
	}
}
