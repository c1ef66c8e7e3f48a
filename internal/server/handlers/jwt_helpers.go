package handlers

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims представляет JWT claims для нашего приложения
type CustomClaims struct {
	ActorID  string `json:"actor_id"`
	DeviceID string `json:"device_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig содержит конфигурацию для JWT
type JWTConfig struct {
	Secret         []byte
	AccessTokenTTL time.Duration
}

// GenerateAccessToken создает новый JWT access token.
// Token issuance lives with the external auth service; this helper exists
// for local development and tests.
func GenerateAccessToken(cfg JWTConfig, actorID, deviceID string) (string, error) {
	now := time.Now()

	claims := CustomClaims{
		ActorID:  actorID,
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "entsync",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateAccessToken валидирует и парсит JWT access token
func ValidateAccessToken(cfg JWTConfig, tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
