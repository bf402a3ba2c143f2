package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	config "github.com/mrusso/postdeck/configs"
	"github.com/mrusso/postdeck/internal/models"
	"github.com/mrusso/postdeck/internal/repository"
	"github.com/mrusso/postdeck/internal/transfer"
	"github.com/mrusso/postdeck/pkg/utils"
)

const tokenDuration = 30 * 24 * time.Hour

type AuthService interface {
	Register(ctx context.Context, r *transfer.Register) (string, error)
	Login(ctx context.Context, l *transfer.Login) (string, error)
}

type authService struct {
	cfg config.Config
	u   repository.UserRepository
}

func NewAuthService(cfg config.Config, u repository.UserRepository) AuthService {
	return &authService{
		cfg: cfg,
		u:   u,
	}
}

func (s *authService) Register(ctx context.Context, r *transfer.Register) (string, error) {
	if r.Email == "" || r.Password == "" {
		err := errors.New("email and password are required")
		slog.Info(err.Error())
		return "", err
	}

	_, exists, err := s.u.GetByEmail(ctx, r.Email)
	if err != nil {
		return "", err
	}
	if exists {
		err := errors.New("email is already registered")
		slog.Info(err.Error())
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	userID, err := s.u.Create(ctx, nil, &models.User{
		Email:        r.Email,
		Name:         r.Name,
		PasswordHash: string(hash),
	})
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return utils.GenerateToken(s.cfg.SecretKey, strconv.FormatInt(userID, 10), tokenDuration)
}

func (s *authService) Login(ctx context.Context, l *transfer.Login) (string, error) {
	user, exists, err := s.u.GetByEmail(ctx, l.Email)
	if err != nil {
		return "", err
	}
	if !exists {
		err := errors.New("invalid email or password")
		slog.Info(err.Error())
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(l.Password)); err != nil {
		err = errors.New("invalid email or password")
		slog.Info(err.Error())
		return "", err
	}

	return utils.GenerateToken(s.cfg.SecretKey, strconv.FormatInt(user.ID, 10), tokenDuration)
}
