package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAccessToken_SetsAccessType(t *testing.T) {
	token, err := GenerateAccessToken("test-secret", "user-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := ValidateToken("test-secret", token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.TokenType != TokenTypeAccess {
		t.Errorf("expected token type %q, got %q", TokenTypeAccess, claims.TokenType)
	}
	if claims.Subject != "user-123" {
		t.Errorf("expected subject %q, got %q", "user-123", claims.Subject)
	}
}

func TestGenerateRefreshToken_CarriesTokenID(t *testing.T) {
	token, err := GenerateRefreshToken("test-secret", "user-123", "rt-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := ValidateToken("test-secret", token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.TokenType != TokenTypeRefresh {
		t.Errorf("expected token type %q, got %q", TokenTypeRefresh, claims.TokenType)
	}
	if claims.ID != "rt-1" {
		t.Errorf("expected token id %q, got %q", "rt-1", claims.ID)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	token, _ := GenerateAccessToken("secret-one", "user-123")

	if _, err := ValidateToken("secret-two", token); err == nil {
		t.Error("expected error for wrong secret, got nil")
	}
}

func TestValidateToken_ExpiredToken(t *testing.T) {
	claims := &Claims{
		UserID:    "user-123",
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("unexpected error signing token: %v", err)
	}

	if _, err := ValidateToken("test-secret", signed); err == nil {
		t.Error("expected error for expired token, got nil")
	}
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	claims := &Claims{
		UserID:    "user-123",
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("unexpected error signing token: %v", err)
	}

	if _, err := ValidateToken("test-secret", signed); err == nil {
		t.Error("expected error for foreign issuer, got nil")
	}
}

func TestValidateToken_InvalidString(t *testing.T) {
	if _, err := ValidateToken("test-secret", "not-a-valid-jwt"); err == nil {
		t.Error("expected error for invalid token string, got nil")
	}
}

func TestAccessToken_HasCorrectDuration(t *testing.T) {
	token, _ := GenerateAccessToken("test-secret", "user-123")

	claims, err := ValidateToken("test-secret", token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedExpiry := time.Now().Add(AccessTokenDuration)
	delta := expectedExpiry.Sub(claims.ExpiresAt.Time).Abs()
	if delta > 2*time.Second {
		t.Errorf("access token expiry off by %v", delta)
	}
}

func TestValidateToken_RejectsNonHMACSigning(t *testing.T) {
	claims := &Claims{
		UserID:    "user-123",
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("unexpected error signing token: %v", err)
	}

	if _, err := ValidateToken("test-secret", signed); err == nil {
		t.Error("expected error for non-HMAC signing method, got nil")
	}
}
