package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthService issues and validates the tokens dashboard sockets present
// when connecting to the gateway.
type AuthService struct {
	secretKey   string
	tokenExpiry time.Duration
}

// DashboardClaims is the JWT claims structure for dashboard tokens.
type DashboardClaims struct {
	Client string `json:"client"`
	jwt.RegisteredClaims
}

var authService *AuthService

// InitAuthService initializes the token service. With an empty secret
// the key is loaded from, or generated and persisted to, a dotfile in
// the home directory.
func InitAuthService(secretKey string, tokenExpiry time.Duration) *AuthService {
	if secretKey == "" {
		homeDir, _ := os.UserHomeDir()
		keyFile := filepath.Join(homeDir, ".nigran-secret-key")
		if homeDir == "" {
			keyFile = filepath.Join(os.TempDir(), ".nigran-secret-key")
		}

		if data, err := os.ReadFile(keyFile); err == nil && len(data) > 0 {
			secretKey = strings.TrimSpace(string(data))
			log.Printf("[AUTH] loaded secret key from %s", keyFile)
		} else {
			randomBytes := make([]byte, 32)
			if _, err := rand.Read(randomBytes); err != nil {
				secretKey = fmt.Sprintf("nigran-%d-backup", time.Now().UnixNano())
				log.Printf("[AUTH] random generation failed, using fallback key")
			} else {
				secretKey = "nigran-" + hex.EncodeToString(randomBytes)
			}
			if err := os.WriteFile(keyFile, []byte(secretKey), 0600); err != nil {
				log.Printf("[AUTH] could not persist secret key to %s: %v", keyFile, err)
			} else {
				log.Printf("[AUTH] generated and persisted secret key to %s", keyFile)
			}
		}
	}

	if tokenExpiry == 0 {
		tokenExpiry = 30 * 24 * time.Hour
	}

	secretKey = strings.TrimSpace(secretKey)
	if len(secretKey) < 32 {
		// HMAC-SHA256 wants at least 32 bytes of key material.
		needed := 32 - len(secretKey)
		paddingBytes := make([]byte, needed)
		_, _ = rand.Read(paddingBytes)
		secretKey = secretKey + hex.EncodeToString(paddingBytes)
	}

	authService = &AuthService{
		secretKey:   secretKey,
		tokenExpiry: tokenExpiry,
	}
	return authService
}

// GenerateToken creates a dashboard token for the named client.
func GenerateToken(client string) (string, error) {
	if authService == nil {
		return "", fmt.Errorf("auth service not initialized")
	}

	now := time.Now()
	claims := DashboardClaims{
		Client: client,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(authService.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "nigran-gateway",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(authService.secretKey))
}

// ValidateToken verifies and parses a dashboard token.
func ValidateToken(tokenString string) (*DashboardClaims, error) {
	if authService == nil {
		return nil, fmt.Errorf("auth service not initialized")
	}

	claims := &DashboardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(authService.secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// GetTokenExpiry returns when a token issued now would expire.
func GetTokenExpiry() time.Time {
	if authService == nil {
		return time.Time{}
	}
	return time.Now().Add(authService.tokenExpiry)
}
