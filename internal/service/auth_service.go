package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"controlling_roaster/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL = time.Hour
	tokenIssuer     = "controlling_roaster"
	maxUsernameLen  = 64
)

var (
	ErrInvalidUsername = errors.New("username must be 1-64 characters without spaces")
	ErrInvalidPassword = errors.New("invalid password")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidToken    = errors.New("invalid token")

	ErrOperatorExists = repository.ErrOperatorExists
)

// AuthService registers operators and issues the bearer tokens that guard
// the control API.
type AuthService struct {
	authRepo   repository.Authorization
	signingKey []byte
	tokenTTL   time.Duration
	now        func() time.Time
}

func NewAuthService(repo repository.Authorization, signingKey string, tokenTTL time.Duration) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &AuthService{authRepo: repo, signingKey: []byte(signingKey), tokenTTL: tokenTTL, now: time.Now}
}

// OperatorClaims is the JWT payload. The subject carries the operator id too.
type OperatorClaims struct {
	jwt.RegisteredClaims
	OperatorID int `json:"operator_id"`
}

// SignUp stores a new operator with a bcrypt hash of password.
func (s *AuthService) SignUp(ctx context.Context, username, password string) (int, error) {
	username, err := checkUsername(username)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(password) == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidPassword)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}
	return s.authRepo.Create(ctx, username, string(hash))
}

// GenerateToken checks the credentials and signs a token for the operator.
func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (string, error) {
	u, err := s.authRepo.GetByUsername(ctx, strings.TrimSpace(username))
	switch {
	case err != nil:
		return "", err
	case u == nil:
		return "", ErrUserNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidPassword
	}

	now := s.now()
	claims := &OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.Itoa(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
		OperatorID: u.ID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// ParseToken verifies an HS256 token from this service and returns the
// operator id.
func (s *AuthService) ParseToken(accessToken string) (int, error) {
	var claims OperatorClaims
	_, err := jwt.ParseWithClaims(accessToken, &claims,
		func(*jwt.Token) (interface{}, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.OperatorID <= 0 {
		return 0, ErrInvalidToken
	}
	return claims.OperatorID, nil
}

func checkUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > maxUsernameLen || strings.ContainsAny(username, " \t\r\n") {
		return "", ErrInvalidUsername
	}
	return username, nil
}
