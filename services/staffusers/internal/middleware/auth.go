// Package middleware содержит HTTP middleware сервиса сотрудников.
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/staff-users/pkg/jwt"
	"example.com/staff-users/pkg/logger"
	"example.com/staff-users/services/staffusers/internal/httputil"
)

// Тексты ответов 401. Тело ответа - сам текст (text/plain), клиенты gateway сравнивают его буквально.
const (
	MsgNotLoggedIn  = "Not Logged In"
	MsgMissingCreds = "Missing Creds"
	MsgTokenExpired = "Token Expired"
	MsgInvalidToken = "Invalid Token"
)

// TokenValidator - интерфейс для валидации gateway-токенов.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// AuthMiddleware проверяет токен gateway (HS256) из заголовка Authorization.
type AuthMiddleware struct {
	validator TokenValidator
}

// NewAuthMiddleware создаёт новый middleware для аутентификации.
func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Handle возвращает Gin handler function для middleware.
func (m *AuthMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.FromContext(c.Request.Context())

		token, err := httputil.AuthorizationToken(c)
		switch {
		case errors.Is(err, httputil.ErrNoAuthorization):
			log.Debug().Msg("Отсутствует заголовок Authorization")
			unauthorized(c, MsgNotLoggedIn)
			return
		case err != nil:
			log.Debug().Err(err).Msg("Заголовок Authorization не читается как ASCII")
			unauthorized(c, MsgMissingCreds)
			return
		}

		claims, err := m.validator.ValidateToken(token)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				log.Debug().Msg("Токен просрочен")
				unauthorized(c, MsgTokenExpired)
				return
			}
			log.Warn().Err(err).Msg("Ошибка валидации токена")
			unauthorized(c, MsgInvalidToken)
			return
		}

		c.Set("token_issuer", claims.Issuer)
		c.Set("gateway_access", claims.GatewayAccess)
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.String(http.StatusUnauthorized, message)
	c.Abort()
}
