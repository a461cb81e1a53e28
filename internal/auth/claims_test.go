package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateAccessToken("alice", RoleOperator, testSecret, 5)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "alice" || claims.Role != RoleOperator || claims.ID == "" {
		t.Errorf("claims = %+v", claims)
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl < 4*time.Minute || ttl > 5*time.Minute {
		t.Errorf("ttl = %v, want about 5m", ttl)
	}
}

func TestGenerateAccessToken_Errors(t *testing.T) {
	if _, err := GenerateAccessToken("alice", RoleAdmin, "", 5); !errors.Is(err, ErrNoSecret) {
		t.Errorf("empty secret error = %v, want ErrNoSecret", err)
	}
	if _, err := GenerateAccessToken("alice", Role("owner"), testSecret, 5); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("bad role error = %v, want ErrInvalidRole", err)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	valid, err := GenerateAccessToken("bob", RoleViewer, testSecret, 5)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("signing: %v", err)
		}
		return s
	}
	now := time.Now()

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "another-secret-that-is-32-characters-long"},
		{"garbage", "not.a.jwt", testSecret},
		{"expired", sign(CustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "bob", ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))},
			Role:             RoleViewer,
		}, jwt.SigningMethodHS256, []byte(testSecret)), testSecret},
		{"missing subject", sign(CustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))},
			Role:             RoleViewer,
		}, jwt.SigningMethodHS256, []byte(testSecret)), testSecret},
		{"unknown role", sign(CustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "bob", ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))},
			Role:             Role("owner"),
		}, jwt.SigningMethodHS256, []byte(testSecret)), testSecret},
		{"wrong algorithm", sign(CustomClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "bob", ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))},
			Role:             RoleViewer,
		}, jwt.SigningMethodHS512, []byte(testSecret)), testSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, tt.secret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleViewer, PermStoveRead, true},
		{RoleViewer, PermStoveOperate, false},
		{RoleOperator, PermStoveOperate, true},
		{RoleOperator, PermStoveManage, false},
		{RoleOperator, PermWorldEdit, false},
		{RoleAdmin, PermStoveManage, true},
		{RoleAdmin, PermWorldEdit, true},
		{RoleAdmin, PermAuditRead, true},
		{RoleOperator, PermAuditRead, false},
		{Role("owner"), PermStoveRead, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.perm), func(t *testing.T) {
			if got := HasPermission(tt.role, tt.perm); got != tt.want {
				t.Errorf("HasPermission() = %v, want %v", got, tt.want)
			}
		})
	}
}
