package services

import (
	"context"
	"errors"
	"fmt"

	"chatroom-service/internal/models"
	"chatroom-service/internal/repository"
	"chatroom-service/pkg/logger"

	"golang.org/x/crypto/bcrypt"
)

// Custom errors
var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

type UserService struct {
	repo   *repository.UserRepository
	tokens *TokenService
	log    *logger.Logger
}

func NewUserService(repo *repository.UserRepository, tokens *TokenService, log *logger.Logger) *UserService {
	return &UserService{
		repo:   repo,
		tokens: tokens,
		log:    log,
	}
}

func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	// Username is checked before email so the conflict message is deterministic.
	if _, err := s.repo.FindByUsername(ctx, req.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}
	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	color := req.Color
	if color == "" {
		color = models.DefaultColor
	}
	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		Color:    color,
	}
	if err := s.repo.Create(ctx, &user); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	s.log.Info("user registered", "userID", user.ID, "username", user.Username)
	return s.authResponse(&user)
}

func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.repo.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	s.log.Debug("user logged in", "userID", user.ID)
	return s.authResponse(user)
}

// UpdateProfile applies the non-nil fields of req to the user.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, req *models.UpdateProfileRequest) (*models.ProfileResponse, error) {
	var (
		user *models.User
		err  error
	)
	if req.Color != nil {
		user, err = s.repo.UpdateColor(ctx, userID, *req.Color)
	} else {
		user, err = s.repo.FindByID(ctx, userID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &models.ProfileResponse{User: user.ToResponse()}, nil
}

func (s *UserService) authResponse(user *models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.Sign(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		AccessToken: token,
		User:        user.ToResponse(),
	}, nil
}
