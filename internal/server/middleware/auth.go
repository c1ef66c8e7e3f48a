package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mkarpoff/entsync/internal/server/handlers"
)

// AuthMiddleware создает middleware для проверки JWT токена.
// Resolves the bearer token to an actor before the coordinator ever runs;
// the engine itself never sees unauthenticated requests.
func AuthMiddleware(logger *slog.Logger, jwtConfig handlers.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header")
				http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("Invalid Authorization header format")
				http.Error(w, "Unauthorized: invalid token format", http.StatusUnauthorized)
				return
			}

			claims, err := handlers.ValidateAccessToken(jwtConfig, parts[1])
			if err != nil {
				logger.Warn("Invalid access token", "error", err)
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			// Добавляем данные из токена в контекст
			ctx := context.WithValue(r.Context(), handlers.ActorKey, claims.ActorID)
			if claims.DeviceID != "" {
				ctx = context.WithValue(ctx, handlers.DeviceIDKey, claims.DeviceID)
			}

			logger.Debug("Actor authenticated", "actor", claims.ActorID, "device_id", claims.DeviceID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
