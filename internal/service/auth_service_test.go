package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"controlling_roaster/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// operatorStore is an in-memory repository.Authorization.
type operatorStore struct {
	byName map[string]models.Operator
	err    error
	nextID int
}

func newOperatorStore() *operatorStore {
	return &operatorStore{byName: map[string]models.Operator{}, nextID: 1}
}

func (s *operatorStore) Create(ctx context.Context, username, hash string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if _, ok := s.byName[username]; ok {
		return 0, errors.New("UNIQUE constraint failed: users.username")
	}
	id := s.nextID
	s.nextID++
	s.byName[username] = models.Operator{ID: id, Username: username, PasswordHash: hash}
	return id, nil
}

func (s *operatorStore) GetByUsername(ctx context.Context, username string) (*models.Operator, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.byName[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

const testSigningKey = "roaster-test-key"

func fixedClock(at time.Time) func() time.Time { return func() time.Time { return at } }

func TestAuthService_SignUpThenSignIn(t *testing.T) {
	store := newOperatorStore()
	svc := NewAuthService(store, testSigningKey, time.Hour)

	id, err := svc.SignUp(context.Background(), "  roastmaster ", "s3cr3t")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	stored, ok := store.byName["roastmaster"]
	if !ok {
		t.Fatalf("username must be stored trimmed, have %v", store.byName)
	}
	if stored.PasswordHash == "s3cr3t" || bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cr3t")) != nil {
		t.Fatalf("password must be stored as a bcrypt hash")
	}

	token, err := svc.GenerateToken(context.Background(), "roastmaster", "s3cr3t")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	got, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if got != id {
		t.Fatalf("operator id=%d; want %d", got, id)
	}

	var claims OperatorClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}
	if claims.Issuer != tokenIssuer || claims.Subject != "1" {
		t.Fatalf("claims iss=%q sub=%q", claims.Issuer, claims.Subject)
	}
}

func TestAuthService_SignUp_Rejects(t *testing.T) {
	cases := []struct {
		name, user, pass string
		want             error
	}{
		{"empty username", "   ", "pw", ErrInvalidUsername},
		{"username with space", "roast master", "pw", ErrInvalidUsername},
		{"username too long", strings.Repeat("r", maxUsernameLen+1), "pw", ErrInvalidUsername},
		{"blank password", "bob", " \t", ErrInvalidPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newOperatorStore()
			_, err := NewAuthService(store, testSigningKey, 0).SignUp(context.Background(), tc.user, tc.pass)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v; want %v", err, tc.want)
			}
			if len(store.byName) != 0 {
				t.Fatalf("nothing may be stored on rejection")
			}
		})
	}

	t.Run("duplicate surfaces the store error", func(t *testing.T) {
		svc := NewAuthService(newOperatorStore(), testSigningKey, 0)
		if _, err := svc.SignUp(context.Background(), "carl", "pw"); err != nil {
			t.Fatalf("first SignUp: %v", err)
		}
		if _, err := svc.SignUp(context.Background(), "carl", "pw"); err == nil {
			t.Fatal("duplicate username accepted")
		}
	})
}

func TestAuthService_GenerateToken_Failures(t *testing.T) {
	store := newOperatorStore()
	svc := NewAuthService(store, testSigningKey, time.Hour)
	if _, err := svc.SignUp(context.Background(), "eve", "correct"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	if _, err := svc.GenerateToken(context.Background(), "ghost", "pw"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown operator: err=%v", err)
	}
	if _, err := svc.GenerateToken(context.Background(), "eve", "wrong"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("wrong password: err=%v", err)
	}

	store.err = errors.New("database is locked")
	if _, err := svc.GenerateToken(context.Background(), "eve", "correct"); !errors.Is(err, store.err) {
		t.Fatalf("store failure: err=%v", err)
	}
}

func TestNewAuthService_DefaultTTL(t *testing.T) {
	if svc := NewAuthService(newOperatorStore(), testSigningKey, -time.Minute); svc.tokenTTL != defaultTokenTTL {
		t.Fatalf("ttl=%v; want %v", svc.tokenTTL, defaultTokenTTL)
	}
}

func TestAuthService_ParseToken_Rejects(t *testing.T) {
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := NewAuthService(newOperatorStore(), testSigningKey, time.Hour)
	svc.now = fixedClock(issued.Add(time.Minute))

	sign := func(method jwt.SigningMethod, key any, c OperatorClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, &c).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	valid := func(id int) OperatorClaims {
		return OperatorClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    tokenIssuer,
				IssuedAt:  jwt.NewNumericDate(issued),
				ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
			},
			OperatorID: id,
		}
	}

	if id, err := svc.ParseToken(sign(jwt.SigningMethodHS256, []byte(testSigningKey), valid(5))); err != nil || id != 5 {
		t.Fatalf("valid token: id=%d err=%v", id, err)
	}

	expired := valid(5)
	expired.ExpiresAt = jwt.NewNumericDate(issued.Add(30 * time.Second))
	foreign := valid(5)
	foreign.Issuer = "someone-else"

	cases := map[string]string{
		"malformed":         "not-a-jwt",
		"other key":         sign(jwt.SigningMethodHS256, []byte("different-key"), valid(5)),
		"other hmac method": sign(jwt.SigningMethodHS512, []byte(testSigningKey), valid(5)),
		"unsigned":          sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid(5)),
		"expired":           sign(jwt.SigningMethodHS256, []byte(testSigningKey), expired),
		"foreign issuer":    sign(jwt.SigningMethodHS256, []byte(testSigningKey), foreign),
		"no operator":       sign(jwt.SigningMethodHS256, []byte(testSigningKey), valid(0)),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.ParseToken(tok); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err=%v; want ErrInvalidToken", err)
			}
		})
	}
}
