package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"showroom/internal/domain"
	"showroom/internal/domain/models"
	"showroom/internal/utils"
	"showroom/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

// ErrInvalidCredentials covers both unknown email and wrong password.
var ErrInvalidCredentials = errors.New("email atau password salah")

var ErrInvalidToken = errors.New("token tidak valid")

type AuthService struct {
	Users     UserStore
	Secret    []byte
	Validator *validation.Validator
	Now       func() time.Time
}

func (s AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s AuthService) Register(ctx context.Context, in models.RegisterInput) (models.PublicUser, error) {
	in.Name = utils.NormalizeSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)

	v := s.Validator
	if v == nil {
		v = validation.New()
	}
	if err := v.Validate(in); err != nil {
		return models.PublicUser{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.PublicUser{}, domain.InternalError{Msg: "gagal meng-hash password", Err: err}
	}
	now := s.now()
	u := models.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return models.PublicUser{}, err
	}
	utils.LogEvent(utils.RequestIDFrom(ctx), "auth", "register", "user_id="+u.ID)
	return u.ToPublic(), nil
}

// Login returns a signed HS256 token and the public profile.
func (s AuthService) Login(ctx context.Context, in models.LoginInput) (string, models.PublicUser, error) {
	u, err := s.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if domain.IsNotFound(err) {
			return "", models.PublicUser{}, ErrInvalidCredentials
		}
		return "", models.PublicUser{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return "", models.PublicUser{}, ErrInvalidCredentials
	}
	if u.Status != "" && u.Status != "active" {
		return "", models.PublicUser{}, domain.ForbiddenError{Resource: "user", Msg: "akun tidak aktif"}
	}

	token, err := s.Issue(u.ID, u.Role)
	if err != nil {
		return "", models.PublicUser{}, domain.InternalError{Msg: "gagal membuat token", Err: err}
	}
	utils.LogEvent(utils.RequestIDFrom(ctx), "auth", "login", "user_id="+u.ID)
	return token, u.ToPublic(), nil
}

func (s AuthService) Issue(userID, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     s.now().Add(tokenTTL).Unix(),
	})
	return token.SignedString(s.Secret)
}

// ParseToken verifies a bearer token and returns who is calling.
func (s AuthService) ParseToken(raw string) (domain.RequestContext, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.Secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return domain.RequestContext{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.RequestContext{}, ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	if userID == "" {
		return domain.RequestContext{}, ErrInvalidToken
	}
	return domain.RequestContext{UserID: userID, Role: strings.ToLower(role)}, nil
}
